// Package mediaconvert reads job details from AWS Elemental MediaConvert.
package mediaconvert

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/mediaconvert"
	"github.com/aws/aws-sdk-go-v2/service/mediaconvert/types"
)

// Job is the subset of a MediaConvert job the completion handler needs.
type Job struct {
	ID           string
	Status       string
	ErrorCode    string
	ErrorMessage string
	Inputs       []string // FileInput URIs
	OutputGroups []OutputGroup
	StartTime    *time.Time
	FinishTime   *time.Time
	UserMetadata map[string]string
}

// OutputGroup is one file output group. Destination is empty for groups that
// do not write files (e.g. streaming packages without file settings).
type OutputGroup struct {
	Destination string
	Outputs     []Output
}

type Output struct {
	NameModifier string
	Extension    string // explicit extension, or derived from the container
}

// Client fetches job details by id.
type Client interface {
	GetJob(ctx context.Context, id string) (*Job, error)
}

// AWSClient is the MediaConvert-backed Client. It is bound to an explicit
// account endpoint at construction time.
type AWSClient struct {
	api *mediaconvert.Client
}

// NewAWSClient builds a client for the account-specific endpoint.
func NewAWSClient(cfg aws.Config, endpoint string) *AWSClient {
	api := mediaconvert.NewFromConfig(cfg, func(o *mediaconvert.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return &AWSClient{api: api}
}

func (c *AWSClient) GetJob(ctx context.Context, id string) (*Job, error) {
	out, err := c.api.GetJob(ctx, &mediaconvert.GetJobInput{Id: aws.String(id)})
	if err != nil {
		return nil, fmt.Errorf("mediaconvert get job %s: %w", id, err)
	}
	if out.Job == nil {
		return nil, fmt.Errorf("mediaconvert get job %s: empty response", id)
	}
	return convertJob(out.Job), nil
}

func convertJob(j *types.Job) *Job {
	job := &Job{
		ID:           aws.ToString(j.Id),
		Status:       string(j.Status),
		ErrorMessage: aws.ToString(j.ErrorMessage),
		UserMetadata: j.UserMetadata,
	}
	if j.ErrorCode != nil {
		job.ErrorCode = strconv.Itoa(int(*j.ErrorCode))
	}
	if j.Timing != nil {
		job.StartTime = j.Timing.StartTime
		job.FinishTime = j.Timing.FinishTime
	}
	if j.Settings == nil {
		return job
	}

	for _, in := range j.Settings.Inputs {
		if in.FileInput != nil {
			job.Inputs = append(job.Inputs, *in.FileInput)
		}
	}

	for _, og := range j.Settings.OutputGroups {
		group := OutputGroup{}
		if og.OutputGroupSettings != nil && og.OutputGroupSettings.FileGroupSettings != nil {
			group.Destination = aws.ToString(og.OutputGroupSettings.FileGroupSettings.Destination)
		}
		for _, o := range og.Outputs {
			out := Output{NameModifier: aws.ToString(o.NameModifier)}
			switch {
			case o.Extension != nil && *o.Extension != "":
				out.Extension = strings.TrimPrefix(*o.Extension, ".")
			case o.ContainerSettings != nil:
				out.Extension = ContainerExtension(string(o.ContainerSettings.Container))
			default:
				out.Extension = ContainerExtension("")
			}
			group.Outputs = append(group.Outputs, out)
		}
		job.OutputGroups = append(job.OutputGroups, group)
	}

	return job
}

// ContainerExtension maps a MediaConvert container type to its file extension.
func ContainerExtension(container string) string {
	switch strings.ToUpper(container) {
	case "MOV":
		return "mov"
	case "MKV":
		return "mkv"
	case "WEBM":
		return "webm"
	case "MXF":
		return "mxf"
	case "M2TS":
		return "m2ts"
	case "F4V":
		return "f4v"
	case "OGG":
		return "ogg"
	case "GIF":
		return "gif"
	case "Y4M":
		return "y4m"
	default:
		return "mp4"
	}
}
