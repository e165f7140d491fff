package dialer

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioDispatcher places calls directly through Twilio's REST API,
// bypassing the call backend. The answer URL points at the TwiML the
// agent serves for the connected leg.
type TwilioDispatcher struct {
	client     *twilio.RestClient
	fromNumber string
	answerURL  string
}

func NewTwilioDispatcher(accountSID, authToken, fromNumber, answerURL string) *TwilioDispatcher {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioDispatcher{client: client, fromNumber: fromNumber, answerURL: answerURL}
}

func (d *TwilioDispatcher) Dispatch(ctx context.Context, toNumber string) error {
	params := &twilioApi.CreateCallParams{}
	params.SetTo(toNumber)
	params.SetFrom(d.fromNumber)
	params.SetUrl(d.answerURL)

	if _, err := d.client.Api.CreateCall(params); err != nil {
		return fmt.Errorf("dialer: twilio create call: %w", err)
	}
	return nil
}
