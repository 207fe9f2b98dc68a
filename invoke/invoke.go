// Package invoke forwards envelopes from the completion handler to the
// metadata logger over one of several transports.
package invoke

import (
	"context"
	"encoding/json"
	"fmt"

	"vidcompress/models"
)

// MetadataLogger accepts one envelope and reports the logger's response.
type MetadataLogger interface {
	LogEvent(ctx context.Context, env models.Envelope) (models.Response, error)
}

// EnvelopeHandler is the in-process metadata logger entry point.
type EnvelopeHandler interface {
	Handle(ctx context.Context, env models.Envelope) models.Response
}

// Direct calls an in-process handler.
type Direct struct {
	Handler EnvelopeHandler
}

func (d Direct) LogEvent(ctx context.Context, env models.Envelope) (models.Response, error) {
	return d.Handler.Handle(ctx, env), nil
}

// Forward sends env and treats any response other than 200 as an error.
func Forward(ctx context.Context, l MetadataLogger, env models.Envelope) (models.Response, error) {
	resp, err := l.LogEvent(ctx, env)
	if err != nil {
		return resp, fmt.Errorf("failed to invoke metadata logger: %w", err)
	}
	if resp.StatusCode != 200 {
		return resp, fmt.Errorf("metadata logger returned status %d: %s", resp.StatusCode, responseError(resp))
	}
	return resp, nil
}

func responseError(resp models.Response) string {
	body, err := resp.DecodeBody()
	if err == nil {
		if msg, ok := body["error"].(string); ok && msg != "" {
			return msg
		}
	}
	return resp.Body
}

// queued is the synthetic response for fire-and-forget transports.
func queued(env models.Envelope, messageID string) models.Response {
	return models.NewResponse(200, map[string]interface{}{
		"message":   "queued",
		"jobId":     env.JobID(),
		"messageId": messageID,
	})
}

func marshalEnvelope(env models.Envelope) ([]byte, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return data, nil
}
