package invoke

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"vidcompress/models"
)

// SQSAPI is the part of the SQS client used to enqueue envelopes.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQS enqueues envelopes for the consume command.
type SQS struct {
	Client   SQSAPI
	QueueURL string
}

func NewSQS(client SQSAPI, queueURL string) *SQS {
	return &SQS{Client: client, QueueURL: queueURL}
}

func (q *SQS) LogEvent(ctx context.Context, env models.Envelope) (models.Response, error) {
	data, err := marshalEnvelope(env)
	if err != nil {
		return models.Response{}, err
	}

	out, err := q.Client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.QueueURL),
		MessageBody: aws.String(string(data)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"type": {DataType: aws.String("String"), StringValue: aws.String(env.Kind())},
		},
	})
	if err != nil {
		return models.Response{}, fmt.Errorf("failed to send envelope to queue: %w", err)
	}
	return queued(env, aws.ToString(out.MessageId)), nil
}

// Redis pushes envelopes onto a list drained by the consume command.
type Redis struct {
	Client *redis.Client
	Queue  string
}

func NewRedis(client *redis.Client, queue string) *Redis {
	return &Redis{Client: client, Queue: queue}
}

func (q *Redis) LogEvent(ctx context.Context, env models.Envelope) (models.Response, error) {
	data, err := marshalEnvelope(env)
	if err != nil {
		return models.Response{}, err
	}
	if err := q.Client.RPush(ctx, q.Queue, data).Err(); err != nil {
		return models.Response{}, fmt.Errorf("failed to push envelope to %s: %w", q.Queue, err)
	}
	return queued(env, uuid.NewString()), nil
}
