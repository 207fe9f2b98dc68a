package models

import (
	"encoding/json"
	"fmt"
)

// Envelope types accepted by the metadata logger.
const (
	EnvelopeCompletion = "completion"
	EnvelopeFailure    = "failure"
)

// Envelope is the message contract between the completion handler and the metadata logger.
type Envelope struct {
	Type        string       `json:"type"`
	JobInfo     *JobInfo     `json:"job_info,omitempty"`
	Result      *Result      `json:"result,omitempty"`
	FailureInfo *FailureInfo `json:"failure_info,omitempty"`
}

// NewCompletionEnvelope wraps a successful result.
func NewCompletionEnvelope(info JobInfo, result Result) Envelope {
	return Envelope{Type: EnvelopeCompletion, JobInfo: &info, Result: &result}
}

// NewFailureEnvelope wraps a failed job.
func NewFailureEnvelope(failure FailureInfo) Envelope {
	return Envelope{Type: EnvelopeFailure, FailureInfo: &failure}
}

// Kind returns the envelope type, treating an empty type as a completion.
func (e Envelope) Kind() string {
	if e.Type == "" {
		return EnvelopeCompletion
	}
	return e.Type
}

// JobID returns the job identifier carried by whichever payload is present.
func (e Envelope) JobID() string {
	switch {
	case e.Result != nil:
		return e.Result.JobID
	case e.FailureInfo != nil:
		return e.FailureInfo.JobID
	case e.JobInfo != nil:
		return e.JobInfo.JobID
	}
	return ""
}

// Response is what both handlers return to the invoking platform.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// NewResponse marshals body into a Response. Marshal failures degrade to a 500.
func NewResponse(status int, body map[string]interface{}) Response {
	data, err := json.Marshal(body)
	if err != nil {
		data, _ = json.Marshal(map[string]string{"error": fmt.Sprintf("failed to marshal response: %v", err)})
		status = 500
	}
	return Response{StatusCode: status, Body: string(data)}
}

// ErrorResponse builds a 500 response carrying err in the "error" field.
func ErrorResponse(err error) Response {
	return NewResponse(500, map[string]interface{}{"error": err.Error()})
}

// DecodeBody unmarshals the response body into a generic map.
func (r Response) DecodeBody() (map[string]interface{}, error) {
	body := make(map[string]interface{})
	if r.Body == "" {
		return body, nil
	}
	if err := json.Unmarshal([]byte(r.Body), &body); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}
	return body, nil
}

// OK reports a 2xx status.
func (r Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
