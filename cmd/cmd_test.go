package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vidcompress/config"
	"vidcompress/invoke"
	"vidcompress/journal"
	"vidcompress/models"
	"vidcompress/notify"
)

func testConfig(t *testing.T) config.Config {
	return config.Config{
		AWSRegion:         "us-east-1",
		AWSAccessKeyID:    "AKIDEXAMPLE",
		AWSSecretAccessKey: "secret",
		TempBucket:        "temp",
		LocalStorageDir:   t.TempDir(),
		DataDir:           t.TempDir(),
		LoggerTransport:   config.TransportDirect,
		AirtableAPIURL:    "http://127.0.0.1:1",
		AirtableBaseID:    "app",
		AirtableTableName: "t",
		AirtableAPIKey:    "k",
	}
}

func TestMetadataLoggerTransports(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	cases := map[string]bool{
		config.TransportDirect: true,
		config.TransportLambda: true,
		config.TransportRedis:  true,
		config.TransportHTTP:   false, // no LOGGER_URL
		config.TransportSQS:    false, // no LOGGER_QUEUE_URL
		"carrier-pigeon":       false,
	}
	for transport, ok := range cases {
		cfg.LoggerTransport = transport
		a := newApp(cfg)
		l, err := a.MetadataLogger(ctx)
		if ok && (err != nil || l == nil) {
			t.Errorf("%s: expected a logger, got %v", transport, err)
		}
		if !ok && err == nil {
			t.Errorf("%s: expected an error", transport)
		}
		a.Close()
	}

	cfg.LoggerTransport = config.TransportDirect
	l, _ := newApp(cfg).MetadataLogger(ctx)
	if _, isDirect := l.(invoke.Direct); !isDirect {
		t.Errorf("Expected direct transport, got %T", l)
	}
}

func TestNotifierSelection(t *testing.T) {
	cfg := testConfig(t)
	n, err := newApp(cfg).Notifier(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := n.(notify.Nop); !ok {
		t.Errorf("Expected Nop without targets, got %T", n)
	}

	cfg.SNSTopic = "arn:aws:sns:us-east-1:123:topic"
	cfg.WebhookURL = "http://example.invalid/hook"
	n, _ = newApp(cfg).Notifier(context.Background())
	if m, ok := n.(notify.Multi); !ok || len(m) != 2 {
		t.Errorf("Expected two notifiers, got %#v", n)
	}
}

func TestIngestUploadsWithMetadata(t *testing.T) {
	cfg := testConfig(t)
	src := filepath.Join(t.TempDir(), "clip.mov")
	os.WriteFile(src, []byte("video-bytes"), 0644)

	root := NewRootCmd(cfg)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"ingest", src, "--dest", "file://temp/uploads/", "--uploader", "sam"})
	if err := root.Execute(); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	uri := strings.TrimSpace(out.String())
	if !strings.HasPrefix(uri, "file://temp/uploads/") || !strings.HasSuffix(uri, "/clip.mov") {
		t.Fatalf("Unexpected location %q", uri)
	}

	key := strings.TrimPrefix(uri, "file://temp/")
	stored := filepath.Join(cfg.LocalStorageDir, "temp", filepath.FromSlash(key))
	data, err := os.ReadFile(stored)
	if err != nil || string(data) != "video-bytes" {
		t.Fatalf("Expected uploaded bytes at %s: %v", stored, err)
	}
	meta, _ := os.ReadFile(stored + ".meta")
	for _, want := range []string{"OriginalFileName=clip.mov", "OriginalSize=11", "Uploader=sam"} {
		if !strings.Contains(string(meta), want) {
			t.Errorf("Expected %q in metadata %q", want, meta)
		}
	}
}

func TestUploadMetadata(t *testing.T) {
	now := time.Date(2026, 2, 3, 4, 5, 6, 0, time.FixedZone("x", 3600))
	m := uploadMetadata("a.mov", 42, "kim", now)
	if m[models.MetaOriginalSize] != "42" || m[models.MetaProcessingStartTime] != "2026-02-03T03:05:06Z" {
		t.Errorf("Unexpected metadata %v", m)
	}
}

func TestHistoryCommand(t *testing.T) {
	cfg := testConfig(t)

	j, err := journal.Open(cfg.JournalPath())
	if err != nil {
		t.Fatal(err)
	}
	j.Append(journal.Entry{JobID: "job-1", Outcome: journal.OutcomeCompleted, RecordID: "rec1"})
	j.Close()

	root := NewRootCmd(cfg)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"history", "job-1"})
	if err := root.Execute(); err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(out.String(), "job-1") || !strings.Contains(out.String(), "rec1") {
		t.Errorf("Unexpected output %q", out.String())
	}
}
