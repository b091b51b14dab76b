package notify

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/JakeFAU/stockwatch/internal/monitor"
)

// SMSConfig configures the Twilio SMS channel.
type SMSConfig struct {
	AccountSID string
	AuthToken  string
	From       string
	To         string
}

func (c SMSConfig) complete() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.From != "" && c.To != ""
}

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// SMS sends short text messages through Twilio.
type SMS struct {
	cfg SMSConfig
	api messageCreator
}

// NewSMS builds the channel. Incomplete credentials yield an unconfigured channel.
func NewSMS(cfg SMSConfig) *SMS {
	if !cfg.complete() {
		return &SMS{cfg: cfg}
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &SMS{cfg: cfg, api: client.Api}
}

// Name implements Channel.
func (s *SMS) Name() string { return "sms" }

// Configured implements Channel.
func (s *SMS) Configured() bool { return s.api != nil }

// Send implements Channel.
func (s *SMS) Send(ctx context.Context, event monitor.Event) error {
	if !s.Configured() {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("sms send: %w", err)
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(s.cfg.To)
	params.SetFrom(s.cfg.From)
	params.SetBody(Plain(event))
	if _, err := s.api.CreateMessage(params); err != nil {
		return fmt.Errorf("twilio create message: %w", err)
	}
	return nil
}
