package sms

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNS publishes transactional SMS directly to a phone number.
type SNS struct {
	client   *sns.Client
	senderID string
}

func NewSNS(ctx context.Context, region, senderID string) (*SNS, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config: %w", err)
	}
	return &SNS{client: sns.NewFromConfig(awsCfg), senderID: senderID}, nil
}

func (s *SNS) IsConfigured() bool {
	return s.client != nil
}

func (s *SNS) SendSMS(ctx context.Context, msg Message) (*Response, error) {
	if !s.IsConfigured() {
		return nil, ErrNotConfigured
	}

	attrs := map[string]types.MessageAttributeValue{
		"AWS.SNS.SMS.SMSType": {
			DataType:    aws.String("String"),
			StringValue: aws.String("Transactional"),
		},
	}
	if s.senderID != "" {
		attrs["AWS.SNS.SMS.SenderID"] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(s.senderID),
		}
	}

	out, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber:       aws.String(msg.To),
		Message:           aws.String(msg.Body),
		MessageAttributes: attrs,
	})
	if err != nil {
		return nil, fmt.Errorf("sns publish: %w", err)
	}
	return &Response{MessageID: aws.ToString(out.MessageId), Provider: "sns", Status: "queued"}, nil
}

var _ Provider = (*SNS)(nil)
