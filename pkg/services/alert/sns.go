package alert

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// SNS subjects are limited to 100 characters.
const maxSubjectLength = 100

type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type SNSTransport struct {
	client   SNSAPI
	topicARN string
}

func NewSNSTransport(client SNSAPI, topicARN string) (*SNSTransport, error) {
	if topicARN == "" {
		return nil, fmt.Errorf("sns topic arn is required")
	}
	return &SNSTransport{client: client, topicARN: topicARN}, nil
}

func (t *SNSTransport) Publish(ctx context.Context, subject, body string) error {
	if len(subject) > maxSubjectLength {
		subject = subject[:maxSubjectLength]
	}
	_, err := t.client.Publish(ctx, &sns.PublishInput{
		TopicArn: awssdk.String(t.topicARN),
		Subject:  awssdk.String(subject),
		Message:  awssdk.String(body),
	})
	if err != nil {
		return fmt.Errorf("sns publish to %s: %w", t.topicARN, err)
	}
	return nil
}
