package config

import (
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TEMP_BUCKET", "")
	t.Setenv("AIRTABLE_TABLE_NAME", "")
	t.Setenv("LOGGER_TRANSPORT", "")
	t.Setenv("VIDCOMPRESS_DATA_DIR", "")

	cfg := Load()

	if cfg.TempBucket != "vidcompress-temp-processing" {
		t.Errorf("Expected default temp bucket, got %s", cfg.TempBucket)
	}
	if cfg.AirtableTableName != "Processed Videos" {
		t.Errorf("Expected default table name, got %s", cfg.AirtableTableName)
	}
	if cfg.LoggerTransport != TransportDirect {
		t.Errorf("Expected direct transport by default, got %s", cfg.LoggerTransport)
	}
	if cfg.AirtableEnabled() {
		t.Error("Placeholder Airtable credentials should not count as enabled")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("COMPRESSED_BUCKET", "final-videos")
	t.Setenv("LOGGER_TRANSPORT", "SQS")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("AIRTABLE_API_KEY", "patXYZ")
	t.Setenv("AIRTABLE_BASE_ID", "appABC")
	t.Setenv("WEBHOOK_HEADERS", "X-Token: abc; X-Env:prod ;broken")

	cfg := Load()

	if cfg.CompressedBucket != "final-videos" {
		t.Errorf("Expected compressed bucket final-videos, got %s", cfg.CompressedBucket)
	}
	if cfg.LoggerTransport != TransportSQS {
		t.Errorf("Expected transport to be lower-cased, got %s", cfg.LoggerTransport)
	}
	if cfg.RedisDB != 3 {
		t.Errorf("Expected redis db 3, got %d", cfg.RedisDB)
	}
	if !cfg.AirtableEnabled() {
		t.Error("Expected Airtable to be enabled with real credentials")
	}
	if len(cfg.WebhookHeaders) != 2 || cfg.WebhookHeaders["X-Token"] != "abc" || cfg.WebhookHeaders["X-Env"] != "prod" {
		t.Errorf("Unexpected webhook headers: %v", cfg.WebhookHeaders)
	}
}

func TestJournalPath(t *testing.T) {
	cfg := Config{DataDir: "/tmp/vidcompress-test-data"}
	expected := filepath.Join("/tmp/vidcompress-test-data", "journal.db")
	if cfg.JournalPath() != expected {
		t.Errorf("Expected journal path %s, got %s", expected, cfg.JournalPath())
	}

	if (Config{}).JournalPath() != "" {
		t.Error("Expected empty journal path when data dir is unset")
	}
}

func TestParseIntFallback(t *testing.T) {
	if parseInt("abc", 7) != 7 {
		t.Error("Expected fallback for non-numeric input")
	}
	if parseInt("-1", 7) != 7 {
		t.Error("Expected fallback for negative input")
	}
}
