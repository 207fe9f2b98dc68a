package completion

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"vidcompress/models"
)

// ErrInvalidEvent is returned when a completion event lacks a required field.
var ErrInvalidEvent = errors.New("invalid MediaConvert event format")

type rawEvent struct {
	Time   string          `json:"time"`
	Detail *rawEventDetail `json:"detail"`
}

type rawEventDetail struct {
	JobID              string                     `json:"jobId"`
	Status             string                     `json:"status"`
	UserMetadata       map[string]interface{}     `json:"userMetadata"`
	OutputGroupDetails []models.OutputGroupDetail `json:"outputGroupDetails"`
}

// ParseEvent extracts the job info from a MediaConvert "Job State Change" event.
func ParseEvent(raw []byte) (models.JobInfo, error) {
	var ev rawEvent
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&ev); err != nil {
		return models.JobInfo{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	switch {
	case ev.Detail == nil:
		return models.JobInfo{}, fmt.Errorf("%w: missing detail", ErrInvalidEvent)
	case ev.Detail.JobID == "":
		return models.JobInfo{}, fmt.Errorf("%w: missing detail.jobId", ErrInvalidEvent)
	case ev.Detail.Status == "":
		return models.JobInfo{}, fmt.Errorf("%w: missing detail.status", ErrInvalidEvent)
	case ev.Time == "":
		return models.JobInfo{}, fmt.Errorf("%w: missing time", ErrInvalidEvent)
	}

	return models.JobInfo{
		JobID:              ev.Detail.JobID,
		Status:             ev.Detail.Status,
		Timestamp:          ev.Time,
		UserMetadata:       stringifyMetadata(ev.Detail.UserMetadata),
		OutputGroupDetails: ev.Detail.OutputGroupDetails,
	}, nil
}

// stringifyMetadata flattens user metadata values, which may be numbers or
// booleans, to strings.
func stringifyMetadata(raw map[string]interface{}) map[string]string {
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
			out[k] = ""
		case string:
			out[k] = val
		case json.Number:
			out[k] = val.String()
		case bool:
			out[k] = strconv.FormatBool(val)
		default:
			data, _ := json.Marshal(val)
			out[k] = string(data)
		}
	}
	return out
}
