// Package completion handles MediaConvert job state change events.
package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"vidcompress/config"
	"vidcompress/invoke"
	"vidcompress/journal"
	"vidcompress/logger"
	"vidcompress/mediaconvert"
	"vidcompress/models"
	"vidcompress/notify"
	"vidcompress/storage"
)

var ErrUnsupportedStatus = errors.New("unsupported job status")

// Handler processes one completion event per call. Journal is optional.
type Handler struct {
	Config       config.Config
	MediaConvert mediaconvert.Client
	Storage      *storage.Router
	Notifier     notify.Notifier
	Logger       invoke.MetadataLogger
	Journal      *journal.Journal
}

// Handle never returns an error or panics to the caller; failures become a 500
// response after a best-effort handler error notification.
func (h *Handler) Handle(ctx context.Context, raw json.RawMessage) (resp models.Response) {
	logger.Debugf("Received event: %s", string(raw))

	jobID := ""
	defer func() {
		if r := recover(); r != nil {
			resp = h.handlerError(ctx, jobID, fmt.Errorf("panic while handling completion event: %v", r), raw)
		}
	}()

	info, err := ParseEvent(raw)
	if err != nil {
		return h.handlerError(ctx, "", err, raw)
	}
	jobID = info.JobID

	switch info.Status {
	case models.JobStatusComplete:
		result, recID, err := h.handleSuccess(ctx, info)
		if err != nil {
			return h.handlerError(ctx, jobID, err, raw)
		}
		h.record(journal.Entry{JobID: jobID, Outcome: journal.OutcomeCompleted, RecordID: recID})
		return models.NewResponse(200, map[string]interface{}{
			"message": "Job completed successfully",
			"jobId":   jobID,
			"result":  result,
		})

	case models.JobStatusError:
		recID, err := h.handleFailure(ctx, info)
		if err != nil {
			return h.handlerError(ctx, jobID, err, raw)
		}
		h.record(journal.Entry{JobID: jobID, Outcome: journal.OutcomeFailed, RecordID: recID})
		return models.NewResponse(200, map[string]interface{}{
			"message": "Job failed, error handled",
			"jobId":   jobID,
		})

	default:
		return h.handlerError(ctx, jobID, fmt.Errorf("%w: %s", ErrUnsupportedStatus, info.Status), raw)
	}
}

func (h *Handler) handleSuccess(ctx context.Context, info models.JobInfo) (models.Result, string, error) {
	job, err := h.MediaConvert.GetJob(ctx, info.JobID)
	if err != nil {
		return models.Result{}, "", err
	}

	outputs, err := deriveOutputs(job)
	if err != nil {
		return models.Result{}, "", fmt.Errorf("failed to derive outputs for job %s: %w", info.JobID, err)
	}
	if len(outputs) == 0 {
		outputs = outputsFromEvent(info.OutputGroupDetails)
	}

	meta := mergeMetadata(info.UserMetadata, job.UserMetadata)
	result := models.Result{
		JobID:           info.JobID,
		Status:          models.ResultStatusCompleted,
		ProcessingTime:  processingTime(job, models.JobInfo{Timestamp: info.Timestamp, UserMetadata: meta}),
		OriginalFile:    originalFile(meta),
		CompressedFiles: []models.CompressedFile{},
	}

	for _, out := range outputs {
		file, err := h.compressedFileInfo(ctx, out)
		if err != nil {
			return models.Result{}, "", err
		}
		result.CompressedFiles = append(result.CompressedFiles, file)
	}
	result.CompressionStats = compressionStats(result.OriginalFile, result.CompressedFiles)

	h.cleanupTempFiles(ctx, job)

	logger.Infof("Job %s completed successfully (%d outputs)", info.JobID, len(result.CompressedFiles))

	h.publish(ctx, notify.Completion(result))

	resp, err := invoke.Forward(ctx, h.Logger, models.NewCompletionEnvelope(info, result))
	if err != nil {
		return models.Result{}, "", err
	}
	return result, recordID(resp), nil
}

func (h *Handler) handleFailure(ctx context.Context, info models.JobInfo) (string, error) {
	job, err := h.MediaConvert.GetJob(ctx, info.JobID)
	if err != nil {
		return "", err
	}

	failure := models.FailureInfo{
		JobID:        info.JobID,
		Status:       models.ResultStatusFailed,
		ErrorCode:    job.ErrorCode,
		ErrorMessage: job.ErrorMessage,
		OriginalFile: originalFile(mergeMetadata(info.UserMetadata, job.UserMetadata)),
		Timestamp:    info.Timestamp,
	}
	if failure.ErrorCode == "" {
		failure.ErrorCode = "UNKNOWN"
	}
	if failure.ErrorMessage == "" {
		failure.ErrorMessage = "Unknown error"
	}

	logger.Warnf("Job %s failed: %s: %s", info.JobID, failure.ErrorCode, failure.ErrorMessage)

	h.publish(ctx, notify.Failure(failure))

	resp, err := invoke.Forward(ctx, h.Logger, models.NewFailureEnvelope(failure))
	if err != nil {
		return "", err
	}
	return recordID(resp), nil
}

// compressedFileInfo moves an output out of the temporary bucket when needed
// and reads its final size and URL.
func (h *Handler) compressedFileInfo(ctx context.Context, out output) (models.CompressedFile, error) {
	loc := out.Location
	if h.Config.TempBucket != "" && loc.Bucket == h.Config.TempBucket &&
		h.Config.CompressedBucket != "" && h.Config.CompressedBucket != h.Config.TempBucket {
		dst := loc.WithBucket(h.Config.CompressedBucket)
		if err := h.Storage.Move(ctx, loc, dst); err != nil {
			return models.CompressedFile{}, fmt.Errorf("failed to move output to compressed bucket: %w", err)
		}
		loc = dst
	}

	size, err := h.Storage.Size(ctx, loc)
	if err != nil {
		return models.CompressedFile{}, fmt.Errorf("failed to get output file info: %w", err)
	}

	return models.CompressedFile{
		Destination:  out.Destination,
		NameModifier: out.NameModifier,
		Size:         size,
		URL:          h.Storage.URL(loc),
	}, nil
}

// cleanupTempFiles deletes job inputs that live in the temporary bucket.
// Failures are logged and do not fail the job.
func (h *Handler) cleanupTempFiles(ctx context.Context, job *mediaconvert.Job) {
	if h.Config.TempBucket == "" {
		return
	}
	for _, input := range job.Inputs {
		loc, err := storage.ParseLocation(input)
		if err != nil {
			logger.Warnf("Skipping cleanup of unparseable input %q: %v", input, err)
			continue
		}
		if loc.Bucket != h.Config.TempBucket {
			continue
		}
		err = h.Storage.Delete(ctx, loc)
		switch {
		case errors.Is(err, storage.ErrObjectNotFound):
			logger.Infof("Temporary file %s already removed, skipping", loc)
		case err != nil:
			logger.Warnf("Failed to clean up temporary file %s: %v", loc, err)
		default:
			logger.Infof("Cleaned up temporary file %s", loc)
		}
	}
}

func (h *Handler) publish(ctx context.Context, n notify.Notification) {
	if h.Notifier == nil {
		return
	}
	if err := h.Notifier.Publish(ctx, n); err != nil {
		logger.Errorf("Failed to send notification %q: %v", n.Subject, err)
	}
}

func (h *Handler) handlerError(ctx context.Context, jobID string, err error, raw json.RawMessage) models.Response {
	logger.Errorf("Error handling completion event: %v", err)
	h.publish(ctx, notify.HandlerError(err, raw))
	if jobID != "" {
		h.record(journal.Entry{JobID: jobID, Outcome: journal.OutcomeError, Error: err.Error()})
	}
	return models.ErrorResponse(err)
}

func (h *Handler) record(entry journal.Entry) {
	if h.Journal == nil {
		return
	}
	entry.Timestamp = time.Now().UTC()
	if err := h.Journal.Append(entry); err != nil {
		logger.Warnf("Failed to journal job %s: %v", entry.JobID, err)
	}
}

func recordID(resp models.Response) string {
	body, err := resp.DecodeBody()
	if err != nil {
		return ""
	}
	id, _ := body["recordId"].(string)
	return id
}
