package completion

import (
	"math"
	"path"
	"strconv"
	"strings"
	"time"

	"vidcompress/mediaconvert"
	"vidcompress/models"
	"vidcompress/storage"
)

// output is one file the job wrote.
type output struct {
	Destination  string // as configured on the output group
	NameModifier string
	Location     storage.Location
}

// deriveOutputs computes the object written for every output of every file
// output group. MediaConvert names outputs <destination prefix><input base><name modifier>.<ext>;
// a destination that does not end in "/" supplies the base name itself.
func deriveOutputs(job *mediaconvert.Job) ([]output, error) {
	inputBase := job.ID
	if len(job.Inputs) > 0 {
		if loc, err := storage.ParseLocation(job.Inputs[0]); err == nil {
			b := loc.Base()
			inputBase = strings.TrimSuffix(b, path.Ext(b))
		}
	}

	var outputs []output
	for _, group := range job.OutputGroups {
		if group.Destination == "" {
			continue
		}
		dest, err := storage.ParseLocation(group.Destination)
		if err != nil {
			return nil, err
		}

		prefix, base := dest, inputBase
		if !dest.IsPrefix() {
			prefix, base = dest.Dir(), dest.Base()
		}

		for _, o := range group.Outputs {
			outputs = append(outputs, output{
				Destination:  group.Destination,
				NameModifier: o.NameModifier,
				Location:     prefix.Join(base + o.NameModifier + "." + o.Extension),
			})
		}
	}
	return outputs, nil
}

// outputsFromEvent falls back to the file paths reported in the event itself.
func outputsFromEvent(details []models.OutputGroupDetail) []output {
	var outputs []output
	for _, group := range details {
		for _, d := range group.OutputDetails {
			for _, p := range d.OutputFilePaths {
				loc, err := storage.ParseLocation(p)
				if err != nil {
					continue
				}
				outputs = append(outputs, output{Destination: loc.Dir().String(), Location: loc})
			}
		}
	}
	return outputs
}

// originalFile reads the upload metadata, defaulting missing values.
func originalFile(meta map[string]string) models.OriginalFile {
	f := models.OriginalFile{Name: "unknown", Uploader: "unknown"}
	if v := meta[models.MetaOriginalFileName]; v != "" {
		f.Name = v
	}
	if v := meta[models.MetaUploader]; v != "" {
		f.Uploader = v
	}
	if n, err := strconv.ParseInt(strings.TrimSpace(meta[models.MetaOriginalSize]), 10, 64); err == nil && n > 0 {
		f.Size = n
	}
	return f
}

// mergeMetadata prefers the event's user metadata and fills gaps from the job.
func mergeMetadata(event, job map[string]string) map[string]string {
	merged := make(map[string]string, len(event)+len(job))
	for k, v := range job {
		merged[k] = v
	}
	for k, v := range event {
		if v != "" {
			merged[k] = v
		}
	}
	return merged
}

// processingTime returns minutes rounded to two decimals. Job timing is used
// when present, otherwise the event time minus the upload's ProcessingStartTime.
func processingTime(job *mediaconvert.Job, info models.JobInfo) float64 {
	var d time.Duration
	switch {
	case job.StartTime != nil && job.FinishTime != nil:
		d = job.FinishTime.Sub(*job.StartTime)
	default:
		start, err1 := time.Parse(time.RFC3339, info.UserMetadata[models.MetaProcessingStartTime])
		end, err2 := time.Parse(time.RFC3339, info.Timestamp)
		if err1 != nil || err2 != nil {
			return 0
		}
		d = end.Sub(start)
	}
	if d <= 0 {
		return 0
	}
	return round2(d.Minutes())
}

// compressionStats compares the original against the first compressed output.
func compressionStats(original models.OriginalFile, compressed []models.CompressedFile) models.CompressionStats {
	if len(compressed) == 0 || original.Size <= 0 || compressed[0].Size <= 0 {
		return models.CompressionStats{}
	}
	c := compressed[0].Size
	ratio := 1 - float64(c)/float64(original.Size)
	return models.CompressionStats{
		CompressionRatio:  ratio,
		OriginalSize:      original.Size,
		CompressedSize:    c,
		SpaceSaved:        original.Size - c,
		SpaceSavedPercent: round2(ratio * 100),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
