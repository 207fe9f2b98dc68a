package completion

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vidcompress/airtable"
	"vidcompress/airtable/airtabletest"
	"vidcompress/config"
	"vidcompress/invoke"
	"vidcompress/journal"
	"vidcompress/logger"
	"vidcompress/mediaconvert"
	"vidcompress/metalogger"
	"vidcompress/models"
	"vidcompress/notify"
	"vidcompress/storage"
)

type fakeMediaConvert struct {
	jobs  map[string]*mediaconvert.Job
	err   error
	calls int
}

func (f *fakeMediaConvert) GetJob(_ context.Context, id string) (*mediaconvert.Job, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	job, ok := f.jobs[id]
	if !ok {
		return nil, errors.New("job not found")
	}
	return job, nil
}

type recordingNotifier struct {
	sent []notify.Notification
}

func (r *recordingNotifier) Publish(_ context.Context, n notify.Notification) error {
	r.sent = append(r.sent, n)
	return nil
}

type testEnv struct {
	handler  *Handler
	mc       *fakeMediaConvert
	notifier *recordingNotifier
	table    *airtabletest.Server
	baseDir  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	baseDir := t.TempDir()
	router := storage.NewRouter()
	router.Register(storage.SchemeLocal, storage.NewLocalBackend(baseDir, "http://files.local"))

	table := airtabletest.NewServer("key")
	t.Cleanup(table.Close)
	svc := metalogger.NewService(airtable.NewClient(table.URL, "appTEST", "Processed Videos", "key"))

	j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Failed to open journal: %v", err)
	}
	t.Cleanup(func() { j.Close() })

	mc := &fakeMediaConvert{jobs: map[string]*mediaconvert.Job{}}
	notifier := &recordingNotifier{}

	return &testEnv{
		handler: &Handler{
			Config:       config.Config{TempBucket: "temp", CompressedBucket: "compressed"},
			MediaConvert: mc,
			Storage:      router,
			Notifier:     notifier,
			Logger:       invoke.Direct{Handler: svc},
			Journal:      j,
		},
		mc:       mc,
		notifier: notifier,
		table:    table,
		baseDir:  baseDir,
	}
}

func (e *testEnv) writeFile(t *testing.T, rel string, size int) {
	t.Helper()
	p := filepath.Join(e.baseDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, make([]byte, size), 0644); err != nil {
		t.Fatal(err)
	}
}

func (e *testEnv) exists(rel string) bool {
	_, err := os.Stat(filepath.Join(e.baseDir, filepath.FromSlash(rel)))
	return err == nil
}

const completeEvent = `{
	"version": "0",
	"detail-type": "MediaConvert Job State Change",
	"source": "aws.mediaconvert",
	"time": "2026-05-01T12:10:00Z",
	"detail": {
		"jobId": "1714565000000-abc123",
		"status": "COMPLETE",
		"userMetadata": {
			"OriginalFileName": "clip.mov",
			"OriginalSize": "100",
			"Uploader": "sam",
			"ProcessingStartTime": "2026-05-01T12:00:00Z"
		}
	}
}`

const errorEvent = `{
	"time": "2026-05-01T12:10:00Z",
	"detail": {
		"jobId": "1714565000000-def456",
		"status": "ERROR",
		"userMetadata": {"OriginalFileName": "bad.avi", "OriginalSize": "2097152", "Uploader": "kim"}
	}
}`

func TestHandleCompleteJob(t *testing.T) {
	env := newTestEnv(t)
	env.writeFile(t, "temp/uploads/clip.mov", 100)
	env.writeFile(t, "temp/outputs/clip_720p.mp4", 40)

	start := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	finish := start.Add(150 * time.Second)
	env.mc.jobs["1714565000000-abc123"] = &mediaconvert.Job{
		ID:           "1714565000000-abc123",
		Status:       "COMPLETE",
		Inputs:       []string{"file://temp/uploads/clip.mov"},
		OutputGroups: []mediaconvert.OutputGroup{{Destination: "file://temp/outputs/", Outputs: []mediaconvert.Output{{NameModifier: "_720p", Extension: "mp4"}}}},
		StartTime:    &start,
		FinishTime:   &finish,
	}

	resp := env.handler.Handle(context.Background(), []byte(completeEvent))
	if resp.StatusCode != 200 {
		t.Fatalf("Expected 200, got %+v", resp)
	}
	body, _ := resp.DecodeBody()
	if body["message"] != "Job completed successfully" || body["jobId"] != "1714565000000-abc123" {
		t.Errorf("Unexpected body %v", body)
	}

	result := body["result"].(map[string]interface{})
	if result["processing_time"] != 2.5 {
		t.Errorf("Expected processing time 2.5, got %v", result["processing_time"])
	}
	stats := result["compression_stats"].(map[string]interface{})
	if stats["compression_ratio"] != 0.6 || stats["space_saved"] != 60.0 {
		t.Errorf("Unexpected stats %v", stats)
	}
	files := result["compressed_files"].([]interface{})
	first := files[0].(map[string]interface{})
	if first["url"] != "http://files.local/compressed/outputs/clip_720p.mp4" || first["size"] != 40.0 {
		t.Errorf("Unexpected compressed file %v", first)
	}

	if env.exists("temp/outputs/clip_720p.mp4") || !env.exists("compressed/outputs/clip_720p.mp4") {
		t.Error("Expected output moved to the compressed bucket")
	}
	if env.exists("temp/uploads/clip.mov") {
		t.Error("Expected temporary input to be cleaned up")
	}

	if len(env.notifier.sent) != 1 || !strings.Contains(env.notifier.sent[0].Subject, "completed") {
		t.Errorf("Expected one completion notification, got %+v", env.notifier.sent)
	}

	records := env.table.Records()
	if len(records) != 1 || records[0].Fields[metalogger.FieldCompressionRatio] != 0.6 {
		t.Fatalf("Expected one logged record with ratio 0.6, got %+v", records)
	}

	entries, err := env.handler.Journal.ListByJob("1714565000000-abc123")
	if err != nil || len(entries) != 1 || entries[0].Outcome != journal.OutcomeCompleted || entries[0].RecordID != records[0].ID {
		t.Errorf("Unexpected journal entries %+v (%v)", entries, err)
	}
}

func TestHandleErrorJob(t *testing.T) {
	env := newTestEnv(t)
	env.mc.jobs["1714565000000-def456"] = &mediaconvert.Job{
		ID:           "1714565000000-def456",
		Status:       "ERROR",
		ErrorCode:    "1010",
		ErrorMessage: "Unsupported codec",
	}

	resp := env.handler.Handle(context.Background(), []byte(errorEvent))
	body, _ := resp.DecodeBody()
	if resp.StatusCode != 200 || body["message"] != "Job failed, error handled" {
		t.Fatalf("Unexpected response %+v", resp)
	}

	records := env.table.Records()
	if len(records) != 1 {
		t.Fatalf("Expected one failure record, got %d", len(records))
	}
	f := records[0].Fields
	if f[metalogger.FieldErrorMessage] != "1010: Unsupported codec" || f[metalogger.FieldOriginalSize] != 2.0 {
		t.Errorf("Unexpected failure fields %v", f)
	}
	if f[metalogger.FieldProcessingDate] != "2026-05-01T12:10:00Z" {
		t.Errorf("Expected processing date from event time, got %v", f[metalogger.FieldProcessingDate])
	}
	if len(env.notifier.sent) != 1 || env.notifier.sent[0].Attributes["error_code"] != "1010" {
		t.Errorf("Expected failure notification, got %+v", env.notifier.sent)
	}
}

func TestHandleErrorJobDefaults(t *testing.T) {
	env := newTestEnv(t)
	env.mc.jobs["1714565000000-def456"] = &mediaconvert.Job{ID: "1714565000000-def456", Status: "ERROR"}

	if resp := env.handler.Handle(context.Background(), []byte(errorEvent)); resp.StatusCode != 200 {
		t.Fatalf("Unexpected response %+v", resp)
	}
	if got := env.table.Records()[0].Fields[metalogger.FieldErrorMessage]; got != "UNKNOWN: Unknown error" {
		t.Errorf("Unexpected error message %v", got)
	}
}

func TestHandleMissingJobID(t *testing.T) {
	env := newTestEnv(t)

	resp := env.handler.Handle(context.Background(), []byte(`{"time":"2026-05-01T12:10:00Z","detail":{"status":"COMPLETE"}}`))
	body, _ := resp.DecodeBody()
	if resp.StatusCode != 500 || body["error"] == nil || body["error"] == "" {
		t.Fatalf("Expected 500 with error, got %+v", resp)
	}
	if len(env.table.Requests()) != 0 || env.mc.calls != 0 {
		t.Error("Record store and MediaConvert must not be touched")
	}
	if len(env.notifier.sent) != 1 || !strings.Contains(env.notifier.sent[0].Subject, "handler error") {
		t.Errorf("Expected handler error notification, got %+v", env.notifier.sent)
	}
}

func TestHandleUnsupportedStatus(t *testing.T) {
	env := newTestEnv(t)

	resp := env.handler.Handle(context.Background(), []byte(`{"time":"t","detail":{"jobId":"j1","status":"PROGRESSING"}}`))
	if resp.StatusCode != 500 || !strings.Contains(resp.Body, "unsupported job status") {
		t.Errorf("Expected unsupported status error, got %+v", resp)
	}

	entries, _ := env.handler.Journal.ListByJob("j1")
	if len(entries) != 1 || entries[0].Outcome != journal.OutcomeError {
		t.Errorf("Expected an error journal entry, got %+v", entries)
	}
}

func TestHandleLoggerFailureIs500(t *testing.T) {
	env := newTestEnv(t)
	env.mc.jobs["1714565000000-def456"] = &mediaconvert.Job{ID: "1714565000000-def456", Status: "ERROR"}
	env.table.FailNext(503)

	resp := env.handler.Handle(context.Background(), []byte(errorEvent))
	if resp.StatusCode != 500 {
		t.Errorf("Expected 500 when the logger fails, got %+v", resp)
	}
	// failure notification, then handler error notification
	if len(env.notifier.sent) != 2 {
		t.Errorf("Expected two notifications, got %d", len(env.notifier.sent))
	}
}

type panickingMediaConvert struct{}

func (panickingMediaConvert) GetJob(context.Context, string) (*mediaconvert.Job, error) {
	panic("boom")
}

func TestHandleRecoversPanics(t *testing.T) {
	env := newTestEnv(t)
	env.handler.MediaConvert = panickingMediaConvert{}

	resp := env.handler.Handle(context.Background(), []byte(errorEvent))
	if resp.StatusCode != 500 || !strings.Contains(resp.Body, "boom") {
		t.Errorf("Expected recovered panic as 500, got %+v", resp)
	}
}

func TestDuplicateDeliveryCreatesTwoRecords(t *testing.T) {
	env := newTestEnv(t)
	env.mc.jobs["1714565000000-def456"] = &mediaconvert.Job{ID: "1714565000000-def456", Status: "ERROR"}

	env.handler.Handle(context.Background(), []byte(errorEvent))
	env.handler.Handle(context.Background(), []byte(errorEvent))

	if n := len(env.table.Records()); n != 2 {
		t.Errorf("Expected two records, got %d", n)
	}
	entries, _ := env.handler.Journal.ListByJob("1714565000000-def456")
	if len(entries) != 2 {
		t.Errorf("Expected two journal entries, got %d", len(entries))
	}
}

func TestParseEvent(t *testing.T) {
	info, err := ParseEvent([]byte(completeEvent))
	if err != nil {
		t.Fatalf("ParseEvent failed: %v", err)
	}
	if info.JobID != "1714565000000-abc123" || info.Status != models.JobStatusComplete || info.Timestamp != "2026-05-01T12:10:00Z" {
		t.Errorf("Unexpected info %+v", info)
	}
	if info.UserMetadata[models.MetaUploader] != "sam" {
		t.Errorf("Expected user metadata, got %v", info.UserMetadata)
	}

	bad := []string{
		`not json`,
		`{"time":"t"}`,
		`{"time":"t","detail":{"status":"COMPLETE"}}`,
		`{"time":"t","detail":{"jobId":"j"}}`,
		`{"detail":{"jobId":"j","status":"COMPLETE"}}`,
	}
	for _, raw := range bad {
		if _, err := ParseEvent([]byte(raw)); !errors.Is(err, ErrInvalidEvent) {
			t.Errorf("ParseEvent(%s): expected ErrInvalidEvent, got %v", raw, err)
		}
	}
}

func TestHandleCompleteJobWithUnescapedKeys(t *testing.T) {
	env := newTestEnv(t)
	env.writeFile(t, "temp/uploads/clip#1 100%.mov", 100)
	env.writeFile(t, "temp/outputs/clip#1 100%_720p.mp4", 40)

	env.mc.jobs["1714565000000-abc123"] = &mediaconvert.Job{
		ID:           "1714565000000-abc123",
		Status:       "COMPLETE",
		Inputs:       []string{"file://temp/uploads/clip#1 100%.mov"},
		OutputGroups: []mediaconvert.OutputGroup{{Destination: "file://temp/outputs/", Outputs: []mediaconvert.Output{{NameModifier: "_720p", Extension: "mp4"}}}},
	}

	resp := env.handler.Handle(context.Background(), []byte(completeEvent))
	if resp.StatusCode != 200 {
		t.Fatalf("Expected 200, got %+v", resp)
	}
	if !env.exists("compressed/outputs/clip#1 100%_720p.mp4") || env.exists("temp/outputs/clip#1 100%_720p.mp4") {
		t.Error("Expected output moved to the compressed bucket under the same key")
	}
	if env.exists("temp/uploads/clip#1 100%.mov") {
		t.Error("Expected temporary input to be cleaned up")
	}
	if len(env.table.Records()) != 1 {
		t.Errorf("Expected one record, got %d", len(env.table.Records()))
	}
}

func TestParseEventNumericMetadata(t *testing.T) {
	info, err := ParseEvent([]byte(`{
		"time": "2026-05-01T12:10:00Z",
		"detail": {
			"jobId": "j-num",
			"status": "COMPLETE",
			"userMetadata": {"OriginalFileName": "clip.mov", "OriginalSize": 104857600, "Resized": true, "Note": null}
		}
	}`))
	if err != nil {
		t.Fatalf("ParseEvent failed: %v", err)
	}
	if info.UserMetadata[models.MetaOriginalSize] != "104857600" {
		t.Errorf("Expected numeric size as string, got %q", info.UserMetadata[models.MetaOriginalSize])
	}
	if info.UserMetadata["Resized"] != "true" || info.UserMetadata["Note"] != "" {
		t.Errorf("Unexpected metadata %v", info.UserMetadata)
	}
	if originalFile(info.UserMetadata).Size != 104857600 {
		t.Errorf("Expected size 104857600, got %d", originalFile(info.UserMetadata).Size)
	}
}

func TestCleanupSkipsMissingTempInput(t *testing.T) {
	env := newTestEnv(t)
	env.writeFile(t, "temp/uploads/present.mov", 10)

	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(os.Stdout)

	env.handler.cleanupTempFiles(context.Background(), &mediaconvert.Job{Inputs: []string{
		"file://temp/uploads/gone.mov",
		"file://temp/uploads/present.mov",
		"file://other/uploads/kept.mov",
	}})

	out := buf.String()
	if !strings.Contains(out, "already removed, skipping") || !strings.Contains(out, "gone.mov") {
		t.Errorf("Expected missing input logged as skipped, got %q", out)
	}
	if strings.Contains(out, "[WARN]") {
		t.Errorf("Expected no warning for a missing input, got %q", out)
	}
	if env.exists("temp/uploads/present.mov") {
		t.Error("Expected present input to be cleaned up")
	}
}
