// Package metalogger turns completion and failure envelopes into rows of the
// Airtable record store.
package metalogger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"vidcompress/airtable"
	"vidcompress/logger"
	"vidcompress/models"
)

// Record store field names.
const (
	FieldFileName         = "File Name"
	FieldOriginalSize     = "Original Size (MB)"
	FieldCompressedSize   = "Compressed Size (MB)"
	FieldProcessingTime   = "Processing Time (minutes)"
	FieldStatus           = "Status"
	FieldUploader         = "Original Uploader"
	FieldUploadDate       = "Upload Date"
	FieldProcessingDate   = "Processing Date"
	FieldCompletionDate   = "Completion Date"
	FieldCompressedURL    = "Compressed URL"
	FieldJobID            = "Job ID"
	FieldCompressionRatio = "Compression Ratio"
	FieldErrorMessage     = "Error Message"
)

const (
	StatusCompleted = "Completed"
	StatusFailed    = "Failed"
)

var (
	ErrUnknownEnvelope = errors.New("unknown envelope type")
	ErrMissingPayload  = errors.New("envelope payload missing")
)

// Store is the record store. *airtable.Client satisfies it.
type Store interface {
	Create(ctx context.Context, fields airtable.Fields) (*airtable.Record, error)
	Update(ctx context.Context, id string, fields airtable.Fields) (*airtable.Record, error)
	List(ctx context.Context, opts airtable.ListOptions) ([]airtable.Record, error)
	Delete(ctx context.Context, id string) error
}

// Service is the metadata logger.
type Service struct {
	Store Store
	Now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{Store: store, Now: time.Now}
}

// Handle logs one envelope and reports the outcome in a Response. It never panics
// on a malformed envelope; all failures become a 500.
func (s *Service) Handle(ctx context.Context, env models.Envelope) models.Response {
	logger.Infof("Received %s envelope for job %s", env.Kind(), env.JobID())

	switch env.Kind() {
	case models.EnvelopeCompletion:
		if env.Result == nil {
			return s.fail(fmt.Errorf("%w: completion envelope has no result", ErrMissingPayload))
		}
		var info models.JobInfo
		if env.JobInfo != nil {
			info = *env.JobInfo
		}
		id, err := s.LogCompletion(ctx, info, *env.Result)
		if err != nil {
			return s.fail(err)
		}
		return models.NewResponse(200, map[string]interface{}{
			"message":  "Metadata logged successfully",
			"recordId": id,
		})

	case models.EnvelopeFailure:
		if env.FailureInfo == nil {
			return s.fail(fmt.Errorf("%w: failure envelope has no failure_info", ErrMissingPayload))
		}
		id, err := s.LogFailure(ctx, *env.FailureInfo)
		if err != nil {
			return s.fail(err)
		}
		return models.NewResponse(200, map[string]interface{}{
			"message":  "Failure logged successfully",
			"recordId": id,
		})

	default:
		return s.fail(fmt.Errorf("%w: %q", ErrUnknownEnvelope, env.Type))
	}
}

func (s *Service) fail(err error) models.Response {
	logger.Errorf("Error logging metadata: %v", err)
	return models.ErrorResponse(err)
}

// CompletionFields builds the record for a successful job.
func (s *Service) CompletionFields(info models.JobInfo, result models.Result) airtable.Fields {
	now := s.timestamp()

	compressedSize := 0.0
	compressedURL := ""
	if len(result.CompressedFiles) > 0 {
		compressedSize = toMB(result.CompressedFiles[0].Size)
		compressedURL = result.CompressedFiles[0].URL
	}

	processingDate := info.UserMetadata[models.MetaProcessingStartTime]
	if processingDate == "" {
		processingDate = now
	}

	fields := airtable.Fields{
		FieldFileName:       result.OriginalFile.Name,
		FieldOriginalSize:   toMB(result.OriginalFile.Size),
		FieldCompressedSize: compressedSize,
		FieldProcessingTime: result.ProcessingTime,
		FieldStatus:         StatusCompleted,
		FieldUploader:       result.OriginalFile.Uploader,
		FieldUploadDate:     now,
		FieldProcessingDate: processingDate,
		FieldCompletionDate: now,
		FieldCompressedURL:  compressedURL,
		FieldJobID:          result.JobID,
	}
	if ratio := result.CompressionStats.CompressionRatio; ratio > 0 {
		fields[FieldCompressionRatio] = round2(ratio)
	}
	return fields
}

// FailureFields builds the record for a failed job.
func (s *Service) FailureFields(f models.FailureInfo) airtable.Fields {
	return airtable.Fields{
		FieldFileName:       f.OriginalFile.Name,
		FieldOriginalSize:   toMB(f.OriginalFile.Size),
		FieldStatus:         StatusFailed,
		FieldUploader:       f.OriginalFile.Uploader,
		FieldUploadDate:     s.timestamp(),
		FieldProcessingDate: f.Timestamp,
		FieldErrorMessage:   fmt.Sprintf("%s: %s", f.ErrorCode, f.ErrorMessage),
		FieldJobID:          f.JobID,
	}
}

// LogCompletion creates a record for a successful job and returns its id.
// Repeated calls for the same job create separate records.
func (s *Service) LogCompletion(ctx context.Context, info models.JobInfo, result models.Result) (string, error) {
	rec, err := s.Store.Create(ctx, s.CompletionFields(info, result))
	if err != nil {
		return "", fmt.Errorf("failed to log completion for job %s: %w", result.JobID, err)
	}
	logger.Infof("Created record %s for job %s", rec.ID, result.JobID)
	return rec.ID, nil
}

// LogFailure creates a record for a failed job and returns its id.
func (s *Service) LogFailure(ctx context.Context, f models.FailureInfo) (string, error) {
	rec, err := s.Store.Create(ctx, s.FailureFields(f))
	if err != nil {
		return "", fmt.Errorf("failed to log failure for job %s: %w", f.JobID, err)
	}
	logger.Infof("Created failure record %s for job %s", rec.ID, f.JobID)
	return rec.ID, nil
}

// UpdateRecord patches fields of an existing record.
func (s *Service) UpdateRecord(ctx context.Context, recordID string, fields airtable.Fields) (*airtable.Record, error) {
	rec, err := s.Store.Update(ctx, recordID, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to update record %s: %w", recordID, err)
	}
	logger.Infof("Updated record %s", recordID)
	return rec, nil
}

func (s *Service) timestamp() string {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return now().UTC().Format(time.RFC3339)
}

func toMB(n int64) float64 {
	return round2(float64(n) / (1024 * 1024))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
