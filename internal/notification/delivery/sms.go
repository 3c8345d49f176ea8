package delivery

import (
	"context"
	"fmt"

	awsclient "studentservices-api/internal/common/aws"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SMSAlerter publishes short staff alerts through SNS, either to a phone
// number or a topic.
type SMSAlerter struct {
	client   awsclient.SNSAPI
	phone    string
	topicARN string
	senderID string
}

func NewSMSAlerter(client awsclient.SNSAPI, phone, topicARN, senderID string) *SMSAlerter {
	return &SMSAlerter{client: client, phone: phone, topicARN: topicARN, senderID: senderID}
}

func (a *SMSAlerter) Alert(ctx context.Context, text string) error {
	input := &sns.PublishInput{Message: aws.String(text)}
	switch {
	case a.topicARN != "":
		input.TopicArn = aws.String(a.topicARN)
	case a.phone != "":
		input.PhoneNumber = aws.String(a.phone)
	default:
		return fmt.Errorf("sms alert has no destination")
	}
	if a.senderID != "" {
		input.MessageAttributes = map[string]types.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {DataType: aws.String("String"), StringValue: aws.String(a.senderID)},
		}
	}

	if _, err := a.client.Publish(ctx, input); err != nil {
		return fmt.Errorf("publish sms alert: %w", err)
	}
	return nil
}
