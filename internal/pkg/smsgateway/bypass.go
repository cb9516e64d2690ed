package smsgateway

import (
	"context"
	"log/slog"

	"github.com/samber/lo"
)

// BypassID is the message id reported for messages that were not sent.
const BypassID = "bypassed"

// Bypass is a Gateway that logs messages instead of sending them.
type Bypass struct{}

// NewBypass returns a Bypass gateway.
func NewBypass() *Bypass {
	return &Bypass{}
}

// Send logs msg and returns a receipt with BypassID.
func (*Bypass) Send(ctx context.Context, msg Message) (*Receipt, error) {
	numbers := lo.Uniq(lo.Compact(msg.PhoneNumbers))
	if len(numbers) == 0 || msg.Text == "" {
		return nil, ErrInvalidMessage
	}

	slog.InfoContext(ctx, "sms gateway bypassed", "recipients", len(numbers), "length", len(msg.Text))

	return &Receipt{
		ID:    BypassID,
		State: StatePending,
		Recipients: lo.Map(numbers, func(n string, _ int) RecipientState {
			return RecipientState{PhoneNumber: n, State: StatePending}
		}),
	}, nil
}

// GetState reports every message as pending.
func (*Bypass) GetState(_ context.Context, id string) (*Receipt, error) {
	if id == "" {
		return nil, ErrInvalidMessage
	}

	return &Receipt{ID: id, State: StatePending}, nil
}
