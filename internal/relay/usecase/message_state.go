package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/samber/lo"
	"github.com/shandysiswandi/gorelay/internal/pkg/goerror"
	"github.com/shandysiswandi/gorelay/internal/pkg/smsgateway"
)

type MessageStateInput struct {
	ID string
}

type RecipientState struct {
	PhoneNumber string
	State       string
	Error       string
}

type MessageStateOutput struct {
	ID         string
	State      string
	Recipients []RecipientState
}

func (s *Usecase) MessageState(ctx context.Context, in MessageStateInput) (*MessageStateOutput, error) {
	ctx, span := s.startSpan(ctx, "MessageState")
	defer span.End()

	id := strings.TrimSpace(in.ID)
	if id == "" {
		return nil, goerror.NewInvalidFormat("Message id is required.")
	}

	if id == smsgateway.BypassID {
		return &MessageStateOutput{ID: id, State: smsgateway.StatePending}, nil
	}

	receipt, err := s.gateway.GetState(ctx, id)
	if err != nil {
		var he *smsgateway.HTTPError
		if errors.As(err, &he) && he.StatusCode == http.StatusNotFound {
			return nil, goerror.NewBusiness("Message not found.", goerror.CodeNotFound)
		}

		slog.ErrorContext(ctx, "failed to get message state", "message_id", id, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &MessageStateOutput{
		ID:    receipt.ID,
		State: receipt.State,
		Recipients: lo.Map(receipt.Recipients, func(r smsgateway.RecipientState, _ int) RecipientState {
			return RecipientState{PhoneNumber: r.PhoneNumber, State: r.State, Error: r.Error}
		}),
	}, nil
}
