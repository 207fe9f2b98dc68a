package queue

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SQSAPI is the part of the SQS client used for consuming.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

type SQSSource struct {
	Client   SQSAPI
	QueueURL string
}

func NewSQSSource(client SQSAPI, queueURL string) *SQSSource {
	return &SQSSource{Client: client, QueueURL: queueURL}
}

func (s *SQSSource) Receive(ctx context.Context) ([]Message, error) {
	output, err := s.Client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(s.QueueURL),
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     20,
		VisibilityTimeout:   300, // 5 minutes
	})
	if err != nil {
		return nil, err
	}

	messages := make([]Message, 0, len(output.Messages))
	for _, m := range output.Messages {
		messages = append(messages, Message{
			ID:      aws.ToString(m.MessageId),
			Body:    aws.ToString(m.Body),
			receipt: aws.ToString(m.ReceiptHandle),
		})
	}
	return messages, nil
}

func (s *SQSSource) Ack(ctx context.Context, msg Message) error {
	_, err := s.Client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(s.QueueURL),
		ReceiptHandle: aws.String(msg.receipt),
	})
	return err
}

// RedisSource pops envelopes from a list. BLPOP removes the message, so Ack is a no-op.
type RedisSource struct {
	Client       *redis.Client
	Queue        string
	BlockTimeout time.Duration
}

func NewRedisSource(client *redis.Client, queue string) *RedisSource {
	return &RedisSource{Client: client, Queue: queue, BlockTimeout: 20 * time.Second}
}

func (s *RedisSource) Receive(ctx context.Context) ([]Message, error) {
	// BLPop returns [key, value]
	result, err := s.Client.BLPop(ctx, s.BlockTimeout, s.Queue).Result()
	if err == redis.Nil {
		return []Message{}, nil
	}
	if err != nil {
		return nil, err
	}
	return []Message{{ID: uuid.NewString(), Body: result[1]}}, nil
}

func (s *RedisSource) Ack(context.Context, Message) error { return nil }
