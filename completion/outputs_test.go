package completion

import (
	"testing"
	"time"

	"vidcompress/mediaconvert"
	"vidcompress/models"
)

func TestDeriveOutputs(t *testing.T) {
	job := &mediaconvert.Job{
		ID:     "job",
		Inputs: []string{"s3://temp/uploads/My Clip.final.mov"},
		OutputGroups: []mediaconvert.OutputGroup{
			{Destination: "s3://compressed/videos/", Outputs: []mediaconvert.Output{
				{NameModifier: "_720p", Extension: "mp4"},
				{NameModifier: "_480p", Extension: "webm"},
			}},
			{Destination: "s3://compressed/thumbs/poster", Outputs: []mediaconvert.Output{{NameModifier: "_thumb", Extension: "jpg"}}},
			{Destination: "", Outputs: []mediaconvert.Output{{NameModifier: "_hls"}}},
		},
	}

	outputs, err := deriveOutputs(job)
	if err != nil {
		t.Fatalf("deriveOutputs failed: %v", err)
	}

	want := []string{
		"s3://compressed/videos/My Clip.final_720p.mp4",
		"s3://compressed/videos/My Clip.final_480p.webm",
		"s3://compressed/thumbs/poster_thumb.jpg",
	}
	if len(outputs) != len(want) {
		t.Fatalf("Expected %d outputs, got %d", len(want), len(outputs))
	}
	for i, w := range want {
		if outputs[i].Location.String() != w {
			t.Errorf("Output %d: expected %s, got %s", i, w, outputs[i].Location)
		}
	}
	if outputs[2].Destination != "s3://compressed/thumbs/poster" || outputs[2].NameModifier != "_thumb" {
		t.Errorf("Unexpected output metadata %+v", outputs[2])
	}
}

func TestDeriveOutputsBadDestination(t *testing.T) {
	job := &mediaconvert.Job{OutputGroups: []mediaconvert.OutputGroup{{Destination: "no-scheme", Outputs: []mediaconvert.Output{{}}}}}
	if _, err := deriveOutputs(job); err == nil {
		t.Error("Expected error for destination without scheme")
	}
}

func TestOutputsFromEvent(t *testing.T) {
	outputs := outputsFromEvent([]models.OutputGroupDetail{{
		OutputDetails: []models.OutputDetail{{OutputFilePaths: []string{"s3://compressed/out/a.mp4", "::bad"}}},
	}})
	if len(outputs) != 1 || outputs[0].Location.Key != "out/a.mp4" || outputs[0].Destination != "s3://compressed/out/" {
		t.Errorf("Unexpected outputs %+v", outputs)
	}
}

func TestOriginalFileDefaults(t *testing.T) {
	f := originalFile(map[string]string{models.MetaOriginalSize: "not-a-number"})
	if f.Name != "unknown" || f.Uploader != "unknown" || f.Size != 0 {
		t.Errorf("Unexpected defaults %+v", f)
	}

	f = originalFile(map[string]string{models.MetaOriginalFileName: "a.mov", models.MetaOriginalSize: " 2048 ", models.MetaUploader: "u"})
	if f.Name != "a.mov" || f.Size != 2048 || f.Uploader != "u" {
		t.Errorf("Unexpected file %+v", f)
	}
}

func TestMergeMetadataPrefersEvent(t *testing.T) {
	m := mergeMetadata(map[string]string{"a": "event", "b": ""}, map[string]string{"a": "job", "b": "job", "c": "job"})
	if m["a"] != "event" || m["b"] != "job" || m["c"] != "job" {
		t.Errorf("Unexpected merge %v", m)
	}
}

func TestProcessingTime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	finish := start.Add(100 * time.Second)

	if got := processingTime(&mediaconvert.Job{StartTime: &start, FinishTime: &finish}, models.JobInfo{}); got != 1.67 {
		t.Errorf("Expected 1.67 from job timing, got %v", got)
	}

	info := models.JobInfo{
		Timestamp:    "2026-01-01T00:03:00Z",
		UserMetadata: map[string]string{models.MetaProcessingStartTime: "2026-01-01T00:00:00Z"},
	}
	if got := processingTime(&mediaconvert.Job{}, info); got != 3 {
		t.Errorf("Expected 3 from event fallback, got %v", got)
	}

	if got := processingTime(&mediaconvert.Job{}, models.JobInfo{Timestamp: "garbage"}); got != 0 {
		t.Errorf("Expected 0 without timing, got %v", got)
	}
	if got := processingTime(&mediaconvert.Job{StartTime: &finish, FinishTime: &start}, models.JobInfo{}); got != 0 {
		t.Errorf("Expected 0 for negative duration, got %v", got)
	}
}

func TestCompressionStats(t *testing.T) {
	orig := models.OriginalFile{Size: 104857600}

	stats := compressionStats(orig, []models.CompressedFile{{Size: 41943040}, {Size: 1}})
	if round2(stats.CompressionRatio) != 0.6 || stats.SpaceSaved != 62914560 || stats.SpaceSavedPercent != 60 {
		t.Errorf("Unexpected stats %+v", stats)
	}

	if !compressionStats(orig, nil).IsEmpty() {
		t.Error("Expected empty stats without outputs")
	}
	if !compressionStats(models.OriginalFile{}, []models.CompressedFile{{Size: 10}}).IsEmpty() {
		t.Error("Expected empty stats without original size")
	}
}
