package queue

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"vidcompress/journal"
	"vidcompress/models"
)

type handlerFunc func(ctx context.Context, env models.Envelope) models.Response

func (f handlerFunc) Handle(ctx context.Context, env models.Envelope) models.Response {
	return f(ctx, env)
}

type fakeSQS struct {
	batches [][]types.Message
	deleted []string
	err     error
}

func (f *fakeSQS) ReceiveMessage(_ context.Context, in *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.batches) == 0 {
		return &sqs.ReceiveMessageOutput{}, nil
	}
	batch := f.batches[0]
	f.batches = f.batches[1:]
	return &sqs.ReceiveMessageOutput{Messages: batch}, nil
}

func (f *fakeSQS) DeleteMessage(_ context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(in.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func sqsMessage(id, body string) types.Message {
	return types.Message{MessageId: aws.String(id), Body: aws.String(body), ReceiptHandle: aws.String("rh-" + id)}
}

func TestPollHandlesAndAcksEveryMessage(t *testing.T) {
	api := &fakeSQS{batches: [][]types.Message{{
		sqsMessage("1", `{"type":"failure","failure_info":{"job_id":"job-ok"}}`),
		sqsMessage("2", `not json`),
		sqsMessage("3", `{"type":"completion","result":{"job_id":"job-bad"}}`),
	}}}

	j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()

	var handled []string
	c := NewConsumer(NewSQSSource(api, "https://sqs.local/q"), handlerFunc(func(_ context.Context, env models.Envelope) models.Response {
		handled = append(handled, env.JobID())
		if env.JobID() == "job-bad" {
			return models.ErrorResponse(errors.New("store down"))
		}
		return models.NewResponse(200, map[string]interface{}{"recordId": "rec1"})
	}), j)

	n, err := c.Poll(context.Background())
	if err != nil || n != 3 {
		t.Fatalf("Poll returned %d, %v", n, err)
	}
	if len(handled) != 2 {
		t.Errorf("Expected two envelopes handled, got %v", handled)
	}
	if len(api.deleted) != 3 {
		t.Errorf("Expected all three messages acknowledged, got %v", api.deleted)
	}

	ok, _ := j.ListByJob("job-ok")
	if len(ok) != 1 || ok[0].Outcome != journal.OutcomeFailed || ok[0].RecordID != "rec1" {
		t.Errorf("Unexpected journal entry for job-ok: %+v", ok)
	}
	bad, _ := j.ListByJob("job-bad")
	if len(bad) != 1 || bad[0].Outcome != journal.OutcomeError || bad[0].Error == "" {
		t.Errorf("Unexpected journal entry for job-bad: %+v", bad)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	api := &fakeSQS{err: errors.New("unreachable")}
	c := NewConsumer(NewSQSSource(api, "q"), handlerFunc(func(context.Context, models.Envelope) models.Response {
		return models.Response{StatusCode: 200}
	}), nil)
	c.ErrorBackoff = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected nil on cancellation, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}
