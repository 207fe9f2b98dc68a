package metalogger

import (
	"context"
	"errors"

	"vidcompress/airtable"
	"vidcompress/logger"
)

type LookupStatus int

const (
	Found LookupStatus = iota
	NotFound
	LookupFailed
)

func (s LookupStatus) String() string {
	switch s {
	case Found:
		return "found"
	case NotFound:
		return "not_found"
	default:
		return "failed"
	}
}

// Lookup is the result of FindRecordByJobID. Err is set only when Status is LookupFailed.
type Lookup struct {
	Status   LookupStatus
	RecordID string
	Err      error
}

// FindRecordByJobID returns the first record whose Job ID matches. When several
// records share a job id the first one is authoritative.
func (s *Service) FindRecordByJobID(ctx context.Context, jobID string) Lookup {
	if jobID == "" {
		return Lookup{Status: LookupFailed, Err: errors.New("job id required")}
	}

	records, err := s.Store.List(ctx, airtable.ListOptions{
		FilterByFormula: airtable.EqualsFormula(FieldJobID, jobID),
		MaxRecords:      1,
	})
	if err != nil {
		logger.Errorf("Error finding record for job %s: %v", jobID, err)
		return Lookup{Status: LookupFailed, Err: err}
	}
	if len(records) == 0 {
		return Lookup{Status: NotFound}
	}
	return Lookup{Status: Found, RecordID: records[0].ID}
}

type DeleteStatus int

const (
	Deleted DeleteStatus = iota
	DeleteNotFound
	DeleteFailed
)

func (s DeleteStatus) String() string {
	switch s {
	case Deleted:
		return "deleted"
	case DeleteNotFound:
		return "not_found"
	default:
		return "failed"
	}
}

// Outcome is the result of DeleteRecord.
type Outcome struct {
	Status DeleteStatus
	Err    error
}

// DeleteRecord removes a record by id.
func (s *Service) DeleteRecord(ctx context.Context, recordID string) Outcome {
	if recordID == "" {
		return Outcome{Status: DeleteFailed, Err: errors.New("record id required")}
	}

	err := s.Store.Delete(ctx, recordID)
	switch {
	case err == nil:
		logger.Infof("Deleted record %s", recordID)
		return Outcome{Status: Deleted}
	case errors.Is(err, airtable.ErrRecordNotFound):
		return Outcome{Status: DeleteNotFound, Err: err}
	default:
		logger.Errorf("Error deleting record %s: %v", recordID, err)
		return Outcome{Status: DeleteFailed, Err: err}
	}
}
