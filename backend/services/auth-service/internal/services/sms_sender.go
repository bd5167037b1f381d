package services

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-utils"
)

// SMSSender delivers a text message to an E.164 number.
type SMSSender interface {
	Send(ctx context.Context, to, body string) error
}

// NewTwilioClient builds a Twilio REST client with the shared outbound
// timeout applied.
func NewTwilioClient(accountSID, authToken string) *twilio.RestClient {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	client.SetTimeout(utils.TwilioRequestTimeout)
	return client
}

type twilioSMSSender struct {
	client *twilio.RestClient
	from   string
}

// NewTwilioSMSSender sends through the Messages API from the given number.
func NewTwilioSMSSender(client *twilio.RestClient, from string) SMSSender {
	return &twilioSMSSender{client: client, from: from}
}

func (s *twilioSMSSender) Send(ctx context.Context, to, body string) error {
	// twilio-go has no per-call context; bail out early if the caller gave up.
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(body)

	resp, err := s.client.Api.CreateMessage(params)
	if err != nil {
		if restErr, ok := err.(*twilioclient.TwilioRestError); ok {
			return fmt.Errorf("twilio %d: %s", restErr.Status, restErr.Message)
		}
		return err
	}
	if resp != nil && resp.Sid != nil {
		utils.Logger.Debugf("Twilio accepted message %s to %s", *resp.Sid, utils.MaskPhone(to))
	}
	return nil
}
