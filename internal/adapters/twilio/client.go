package twilio

import (
	"context"
	"fmt"

	"github.com/ridgelineradio/call-relay/pkg/logger"
	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

// Client wraps the Twilio REST API for placing, redirecting and
// messaging call legs. It implements call.Telephony.
//
// The generated Twilio bindings do not take a context, so the ctx
// arguments bound the callers' intent only.
type Client struct {
	rest *twilio.RestClient
	from string
}

// NewClient creates a Twilio control client sending from the given
// number.
func NewClient(accountSID, authToken, fromNumber string) *Client {
	return &Client{
		rest: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		}),
		from: fromNumber,
	}
}

// PlaceCall dials an outbound call. Twilio fetches the call
// instructions from answerURL when the callee picks up.
func (c *Client) PlaceCall(_ context.Context, to, answerURL string) (string, error) {
	params := &api.CreateCallParams{}
	params.SetTo(to)
	params.SetFrom(c.from)
	params.SetUrl(answerURL)
	params.SetMethod("POST")

	resp, err := c.rest.Api.CreateCall(params)
	if err != nil {
		return "", fmt.Errorf("create call to %s: %w", to, err)
	}
	if resp.Sid == nil {
		return "", fmt.Errorf("create call to %s: no SID in response", to)
	}
	logger.Base().Info("placed outbound call", zap.String("call_sid", *resp.Sid), zap.String("to", to))
	return *resp.Sid, nil
}

// RedirectToConference updates an in-progress call leg with an inline
// conference-join document.
func (c *Client) RedirectToConference(_ context.Context, callSID, room string) error {
	doc, err := ConferenceDocument(room)
	if err != nil {
		return fmt.Errorf("build conference document: %w", err)
	}

	params := &api.UpdateCallParams{}
	params.SetTwiml(doc)
	if _, err := c.rest.Api.UpdateCall(callSID, params); err != nil {
		return fmt.Errorf("redirect call %s to conference %s: %w", callSID, room, err)
	}
	return nil
}

// RedirectToURL points an in-progress call leg at a new instruction
// document URL.
func (c *Client) RedirectToURL(_ context.Context, callSID, instructionURL string) error {
	params := &api.UpdateCallParams{}
	params.SetUrl(instructionURL)
	params.SetMethod("POST")
	if _, err := c.rest.Api.UpdateCall(callSID, params); err != nil {
		return fmt.Errorf("redirect call %s to %s: %w", callSID, instructionURL, err)
	}
	return nil
}

// SendSMS sends a text message from the configured number.
func (c *Client) SendSMS(_ context.Context, to, body string) error {
	params := &api.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(c.from)
	params.SetBody(body)
	if _, err := c.rest.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("send SMS to %s: %w", to, err)
	}
	return nil
}
