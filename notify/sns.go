package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"vidcompress/logger"
)

// SNSAPI is the part of the SNS client the publisher uses.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSPublisher publishes to one topic.
type SNSPublisher struct {
	Client   SNSAPI
	TopicARN string
}

func NewSNSPublisher(client SNSAPI, topicARN string) *SNSPublisher {
	return &SNSPublisher{Client: client, TopicARN: topicARN}
}

func (p *SNSPublisher) Publish(ctx context.Context, n Notification) error {
	input := &sns.PublishInput{
		TopicArn: aws.String(p.TopicARN),
		Subject:  aws.String(truncateSubject(n.Subject)),
		Message:  aws.String(n.Message),
	}
	if len(n.Attributes) > 0 {
		input.MessageAttributes = make(map[string]types.MessageAttributeValue, len(n.Attributes))
		for k, v := range n.Attributes {
			if v == "" {
				continue // SNS rejects empty string attributes
			}
			input.MessageAttributes[k] = types.MessageAttributeValue{
				DataType:    aws.String("String"),
				StringValue: aws.String(v),
			}
		}
	}

	out, err := p.Client.Publish(ctx, input)
	if err != nil {
		return fmt.Errorf("sns publish to %s: %w", p.TopicARN, err)
	}
	logger.Debugf("Published notification %q (message id %s)", n.Subject, aws.ToString(out.MessageId))
	return nil
}
