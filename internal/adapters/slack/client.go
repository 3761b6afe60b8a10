package slack

import (
	"context"
	"fmt"

	"github.com/ridgelineradio/call-relay/internal/services/call"
	"github.com/ridgelineradio/call-relay/pkg/logger"
	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

// AcceptActionID identifies the "answer this call" button in interactive
// payloads.
const AcceptActionID = "accept_call"

// Client posts actionable call alerts to a Slack channel. It implements
// call.Notifier. A nil token leaves the client disabled: every method
// fails fast so the lifecycle controller logs and moves on.
type Client struct {
	api     *slack.Client
	channel string
}

// NewClient creates a Slack notifier for the given channel. Returns a
// disabled client when the token is empty.
func NewClient(botToken, channel string) *Client {
	if botToken == "" || channel == "" {
		logger.Base().Warn("Slack credentials not provided, chat notifications disabled")
		return &Client{}
	}
	return &Client{
		api:     slack.New(botToken),
		channel: channel,
	}
}

// Enabled reports whether the client has credentials.
func (c *Client) Enabled() bool {
	return c.api != nil
}

// PostCallAlert posts the inbound-call alert with an answer button and
// returns the handle needed to update it.
func (c *Client) PostCallAlert(ctx context.Context, callSID, caller string) (call.NotificationRef, error) {
	if !c.Enabled() {
		return call.NotificationRef{}, fmt.Errorf("slack notifications disabled")
	}

	header := slack.NewSectionBlock(
		slack.NewTextBlockObject(slack.MarkdownType,
			fmt.Sprintf(":telephone_receiver: *%s is calling Ridgeline!*", caller), false, false),
		nil, nil)
	answer := slack.NewButtonBlockElement(AcceptActionID, callSID,
		slack.NewTextBlockObject(slack.PlainTextType, "Answer call", false, false))
	answer.Style = slack.StylePrimary
	actions := slack.NewActionBlock("call_actions", answer)

	channel, timestamp, err := c.api.PostMessageContext(ctx, c.channel,
		slack.MsgOptionBlocks(header, actions),
		slack.MsgOptionText(fmt.Sprintf("%s is calling Ridgeline!", caller), false))
	if err != nil {
		return call.NotificationRef{}, fmt.Errorf("post call alert: %w", err)
	}

	logger.Base().Info("posted call alert",
		zap.String("call_sid", callSID),
		zap.String("channel", channel),
		zap.String("ts", timestamp))
	return call.NotificationRef{Channel: channel, Timestamp: timestamp}, nil
}

// UpdateAlert replaces the alert's content in place, removing the
// answer button so nobody accepts a call that is already resolved.
func (c *Client) UpdateAlert(ctx context.Context, ref call.NotificationRef, text string) error {
	if !c.Enabled() {
		return fmt.Errorf("slack notifications disabled")
	}

	body := slack.NewSectionBlock(
		slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil)
	_, _, _, err := c.api.UpdateMessageContext(ctx, ref.Channel, ref.Timestamp,
		slack.MsgOptionBlocks(body),
		slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("update call alert: %w", err)
	}
	return nil
}

// PostMessage posts a plain message to the alert channel.
func (c *Client) PostMessage(ctx context.Context, text string) error {
	if !c.Enabled() {
		return fmt.Errorf("slack notifications disabled")
	}
	if _, _, err := c.api.PostMessageContext(ctx, c.channel, slack.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	return nil
}

// ResponderPhone resolves a responder's phone number from their Slack
// profile.
func (c *Client) ResponderPhone(ctx context.Context, userID string) (string, error) {
	if !c.Enabled() {
		return "", fmt.Errorf("slack notifications disabled")
	}

	user, err := c.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("look up user %s: %w", userID, err)
	}
	if user.Profile.Phone == "" {
		return "", fmt.Errorf("user %s has no phone number in their profile", userID)
	}
	return user.Profile.Phone, nil
}
