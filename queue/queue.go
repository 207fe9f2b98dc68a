// Package queue drains envelopes queued by the sqs and redis logger
// transports and hands them to the metadata logger.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"vidcompress/invoke"
	"vidcompress/journal"
	"vidcompress/logger"
	"vidcompress/models"
)

// Message is one queued envelope.
type Message struct {
	ID      string
	Body    string
	receipt string
}

// Source yields queued messages. Receive blocks for a bounded time and may
// return no messages.
type Source interface {
	Receive(ctx context.Context) ([]Message, error)
	Ack(ctx context.Context, msg Message) error
}

// Consumer processes one message at a time. Every message is acknowledged
// once handled, whatever the outcome; failed envelopes are logged and journaled.
type Consumer struct {
	Source  Source
	Handler invoke.EnvelopeHandler
	Journal *journal.Journal

	// ErrorBackoff is the pause after a failed Receive.
	ErrorBackoff time.Duration
}

func NewConsumer(source Source, handler invoke.EnvelopeHandler, j *journal.Journal) *Consumer {
	return &Consumer{Source: source, Handler: handler, Journal: j, ErrorBackoff: 5 * time.Second}
}

// Run polls until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	logger.Info("Queue consumer started")
	for {
		select {
		case <-ctx.Done():
			logger.Info("Queue consumer stopped due to context cancellation")
			return nil
		default:
		}

		if _, err := c.Poll(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			logger.Errorf("Failed to receive messages: %v", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.ErrorBackoff):
			}
		}
	}
}

// Poll receives one batch and processes it, returning the number of messages handled.
func (c *Consumer) Poll(ctx context.Context) (int, error) {
	messages, err := c.Source.Receive(ctx)
	if err != nil {
		return 0, err
	}

	for _, msg := range messages {
		c.process(ctx, msg)
		if err := c.Source.Ack(ctx, msg); err != nil {
			logger.Errorf("Failed to acknowledge message %s: %v", msg.ID, err)
		}
	}
	return len(messages), nil
}

func (c *Consumer) process(ctx context.Context, msg Message) {
	var env models.Envelope
	if err := json.Unmarshal([]byte(msg.Body), &env); err != nil {
		logger.Errorf("Dropping malformed message %s: %v", msg.ID, err)
		return
	}

	resp := c.Handler.Handle(ctx, env)
	entry := journal.Entry{JobID: env.JobID(), Outcome: journal.OutcomeCompleted, Timestamp: time.Now().UTC()}
	if env.Kind() == models.EnvelopeFailure {
		entry.Outcome = journal.OutcomeFailed
	}
	if resp.StatusCode != 200 {
		err := fmt.Errorf("metadata logger returned status %d: %s", resp.StatusCode, resp.Body)
		logger.Errorf("Failed to log envelope for job %s: %v", env.JobID(), err)
		entry.Outcome = journal.OutcomeError
		entry.Error = err.Error()
	} else {
		logger.Infof("Logged %s envelope for job %s", env.Kind(), env.JobID())
		if body, err := resp.DecodeBody(); err == nil {
			entry.RecordID, _ = body["recordId"].(string)
		}
	}

	if c.Journal != nil && entry.JobID != "" {
		if err := c.Journal.Append(entry); err != nil {
			logger.Warnf("Failed to journal job %s: %v", entry.JobID, err)
		}
	}
}
