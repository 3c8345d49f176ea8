package delivery

import (
	"context"
	"fmt"

	awsclient "studentservices-api/internal/common/aws"
	apperrors "studentservices-api/internal/common/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

type SESMailer struct {
	client awsclient.SESAPI
	from   string
}

func NewSESMailer(client awsclient.SESAPI, from string) *SESMailer {
	return &SESMailer{client: client, from: from}
}

func (m *SESMailer) Name() string { return "ses" }

func (m *SESMailer) Send(ctx context.Context, msg *Message) error {
	if len(msg.To) == 0 {
		return apperrors.NewDeliveryFailureError(m.Name(), fmt.Errorf("no recipients"))
	}
	from := msg.From
	if from == "" {
		from = m.from
	}

	_, err := m.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: msg.To,
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(msg.PlainBody), Charset: aws.String("UTF-8")},
				Html: &types.Content{Data: aws.String(msg.HTMLBody), Charset: aws.String("UTF-8")},
			},
		},
		Source: aws.String(from),
	})
	if err != nil {
		return apperrors.NewDeliveryFailureError(m.Name(), err)
	}
	return nil
}
