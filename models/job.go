package models

// Job statuses reported by the transcoding service in completion events.
const (
	JobStatusComplete = "COMPLETE"
	JobStatusError    = "ERROR"
)

// Result statuses carried onward to notifications and the record store.
const (
	ResultStatusCompleted = "completed"
	ResultStatusFailed    = "failed"
)

// User metadata keys attached to the transcoding job at upload time.
const (
	MetaOriginalFileName    = "OriginalFileName"
	MetaOriginalSize        = "OriginalSize"
	MetaUploader            = "Uploader"
	MetaProcessingStartTime = "ProcessingStartTime"
)

// JobInfo is the parsed form of one completion event. It is not modified after parsing.
type JobInfo struct {
	JobID              string              `json:"job_id"`
	Status             string              `json:"status"`
	Timestamp          string              `json:"timestamp"`
	UserMetadata       map[string]string   `json:"user_metadata"`
	OutputGroupDetails []OutputGroupDetail `json:"output_group_details"`
}

// OutputGroupDetail mirrors detail.outputGroupDetails in the completion event.
type OutputGroupDetail struct {
	Type          string         `json:"type,omitempty"`
	OutputDetails []OutputDetail `json:"outputDetails,omitempty"`
}

type OutputDetail struct {
	OutputFilePaths []string `json:"outputFilePaths,omitempty"`
	DurationInMs    int64    `json:"durationInMs,omitempty"`
}

type OriginalFile struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"` // bytes
	Uploader string `json:"uploader"`
}

type CompressedFile struct {
	Destination  string `json:"destination"`
	NameModifier string `json:"name_modifier"`
	Size         int64  `json:"size"`
	URL          string `json:"url"`
}

// CompressionStats is empty when no ratio could be computed.
type CompressionStats struct {
	CompressionRatio  float64 `json:"compression_ratio,omitempty"`
	OriginalSize      int64   `json:"original_size,omitempty"`
	CompressedSize    int64   `json:"compressed_size,omitempty"`
	SpaceSaved        int64   `json:"space_saved,omitempty"`
	SpaceSavedPercent float64 `json:"space_saved_percent,omitempty"`
}

// IsEmpty reports whether no statistics were computed.
func (s CompressionStats) IsEmpty() bool {
	return s == CompressionStats{}
}

// Result is built while handling a successful completion.
type Result struct {
	JobID            string           `json:"job_id"`
	Status           string           `json:"status"`
	ProcessingTime   float64          `json:"processing_time"` // minutes
	OriginalFile     OriginalFile     `json:"original_file"`
	CompressedFiles  []CompressedFile `json:"compressed_files"`
	CompressionStats CompressionStats `json:"compression_stats"`
}

// FailureInfo is the error-path counterpart of Result.
type FailureInfo struct {
	JobID        string       `json:"job_id"`
	Status       string       `json:"status"`
	ErrorCode    string       `json:"error_code"`
	ErrorMessage string       `json:"error_message"`
	OriginalFile OriginalFile `json:"original_file"`
	Timestamp    string       `json:"timestamp"`
}
