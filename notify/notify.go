// Package notify publishes human-readable job notifications.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"vidcompress/models"
)

// MaxSubjectLength is the SNS subject limit. Longer subjects are truncated.
const MaxSubjectLength = 100

// Notification is one message to publish.
type Notification struct {
	Subject    string
	Message    string
	Attributes map[string]string
}

// Notifier delivers notifications to some channel.
type Notifier interface {
	Publish(ctx context.Context, n Notification) error
}

// Multi fans a notification out to every notifier in order. All notifiers are
// attempted; their errors are joined.
type Multi []Notifier

func (m Multi) Publish(ctx context.Context, n Notification) error {
	var errs []error
	for _, target := range m {
		if target == nil {
			continue
		}
		if err := target.Publish(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards every notification.
type Nop struct{}

func (Nop) Publish(context.Context, Notification) error { return nil }

// Completion describes a successfully compressed video.
func Completion(result models.Result) Notification {
	var b strings.Builder
	fmt.Fprintf(&b, "Video compression completed.\n\n")
	fmt.Fprintf(&b, "Job ID: %s\n", result.JobID)
	fmt.Fprintf(&b, "File: %s\n", result.OriginalFile.Name)
	fmt.Fprintf(&b, "Uploader: %s\n", result.OriginalFile.Uploader)
	fmt.Fprintf(&b, "Original size: %.2f MB\n", bytesToMB(result.OriginalFile.Size))
	fmt.Fprintf(&b, "Processing time: %.2f minutes\n", result.ProcessingTime)

	if len(result.CompressedFiles) > 0 {
		fmt.Fprintf(&b, "\nOutputs:\n")
		for _, f := range result.CompressedFiles {
			fmt.Fprintf(&b, "- %s (%.2f MB)\n", f.URL, bytesToMB(f.Size))
		}
	}
	if !result.CompressionStats.IsEmpty() {
		s := result.CompressionStats
		fmt.Fprintf(&b, "\nCompression ratio: %.2f\n", s.CompressionRatio)
		fmt.Fprintf(&b, "Space saved: %.2f MB (%.1f%%)\n", bytesToMB(s.SpaceSaved), s.SpaceSavedPercent)
	}

	return Notification{
		Subject: truncateSubject("Video compression completed: " + result.OriginalFile.Name),
		Message: b.String(),
		Attributes: map[string]string{
			"event":  "completion",
			"job_id": result.JobID,
			"status": result.Status,
		},
	}
}

// Failure describes a job the transcoding service rejected.
func Failure(f models.FailureInfo) Notification {
	var b strings.Builder
	fmt.Fprintf(&b, "Video compression failed.\n\n")
	fmt.Fprintf(&b, "Job ID: %s\n", f.JobID)
	fmt.Fprintf(&b, "File: %s\n", f.OriginalFile.Name)
	fmt.Fprintf(&b, "Uploader: %s\n", f.OriginalFile.Uploader)
	fmt.Fprintf(&b, "Error code: %s\n", f.ErrorCode)
	fmt.Fprintf(&b, "Error message: %s\n", f.ErrorMessage)
	fmt.Fprintf(&b, "Timestamp: %s\n", f.Timestamp)

	return Notification{
		Subject: truncateSubject("Video compression failed: " + f.OriginalFile.Name),
		Message: b.String(),
		Attributes: map[string]string{
			"event":      "failure",
			"job_id":     f.JobID,
			"status":     f.Status,
			"error_code": f.ErrorCode,
		},
	}
}

// HandlerError reports an unexpected error in the completion handler itself.
// The raw event is attached so the job can be replayed by hand.
func HandlerError(err error, event json.RawMessage) Notification {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "The completion handler failed.\n\n")
	fmt.Fprintf(&b, "Error: %s\n", msg)
	if len(event) > 0 {
		fmt.Fprintf(&b, "\nEvent:\n%s\n", string(event))
	}

	return Notification{
		Subject:    truncateSubject("Video compression handler error: " + msg),
		Message:    b.String(),
		Attributes: map[string]string{"event": "handler_error"},
	}
}

func truncateSubject(s string) string {
	// subjects must be a single line
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= MaxSubjectLength {
		return s
	}
	return string(r[:MaxSubjectLength-3]) + "..."
}

func bytesToMB(n int64) float64 {
	return float64(n) / (1024 * 1024)
}
