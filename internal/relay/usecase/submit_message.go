package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/gorelay/internal/pkg/goerror"
	"github.com/shandysiswandi/gorelay/internal/pkg/idempotency"
	"github.com/shandysiswandi/gorelay/internal/pkg/smsgateway"
	"github.com/shandysiswandi/gorelay/internal/relay/entity"
	"go.opentelemetry.io/otel/attribute"
)

type SubmitMessageInput struct {
	PhoneNumber    string
	Name           string
	Message        string
	Code           string
	Website        string
	Interaction    *entity.Interaction
	IdempotencyKey string
}

type SubmitMessageOutput struct {
	MessageID string
	Replayed  bool
}

// SubmitMessage relays a verified visitor message to the owner's phone.
//
// Checks run in a fixed order and stop at the first failure. The submission
// is recorded only after the gateway accepted the message, or right away in
// bypass mode.
func (s *Usecase) SubmitMessage(ctx context.Context, in SubmitMessageInput) (*SubmitMessageOutput, error) {
	ctx, span := s.startSpan(ctx, "SubmitMessage")
	defer span.End()

	phone, err := entity.NormalizePhoneNumber(in.PhoneNumber)
	if err != nil {
		return nil, violation(err)
	}

	if err := entity.CheckHoneypot(in.Website); err != nil {
		slog.WarnContext(ctx, "honeypot field filled", "phone", phone.Masked())
		return nil, violation(err)
	}

	if err := entity.CheckInteraction(in.Interaction); err != nil {
		slog.WarnContext(ctx, "suspicious form interaction", "phone", phone.Masked(), "reason", err.Error())
		return nil, violation(err)
	}

	if in.Name == "" || in.Message == "" || in.Code == "" {
		return nil, violation(entity.ViolationFieldsRequired)
	}

	if err := entity.CheckSenderName(in.Name); err != nil {
		return nil, violation(err)
	}

	deliver := func(ctx context.Context) (string, error) {
		return s.deliverMessage(ctx, phone, in)
	}

	if in.IdempotencyKey == "" || s.idemp == nil {
		id, err := deliver(ctx)
		if err != nil {
			return nil, err
		}
		return &SubmitMessageOutput{MessageID: id}, nil
	}

	key, err := s.idempotencyKey(phone, in.IdempotencyKey)
	if err != nil {
		return nil, goerror.NewServer(err)
	}

	id, replayed, err := s.idemp.Exec(ctx, key, deliver, idempotency.WithStateTTL(s.settings.IdempotencyTTL))
	if errors.Is(err, idempotency.ErrAlreadyInProgress) {
		return nil, goerror.NewBusiness("A submission with this idempotency key is already in progress.", goerror.CodeConflict)
	}

	var gerr *goerror.Error
	if err != nil && !errors.As(err, &gerr) {
		slog.ErrorContext(ctx, "failed to run idempotent submission", "phone", phone.Masked(), "error", err)
		return nil, goerror.NewServer(err)
	}
	if err != nil {
		return nil, err
	}

	if replayed {
		slog.InfoContext(ctx, "message submission replayed", "phone", phone.Masked(), "message_id", id)
	}

	return &SubmitMessageOutput{MessageID: id, Replayed: replayed}, nil
}

func (s *Usecase) deliverMessage(ctx context.Context, phone entity.PhoneNumber, in SubmitMessageInput) (string, error) {
	if err := s.checkSubmissionLimit(ctx, phone, ""); err != nil {
		return "", err
	}

	if err := entity.CheckMessage(in.Message); err != nil {
		return "", violation(err)
	}

	ok, err := s.totp.VerifyCode(phone.String(), s.settings.Salt, strings.TrimSpace(in.Code))
	if err != nil {
		slog.ErrorContext(ctx, "failed to verify code", "phone", phone.Masked(), "error", err)
		return "", goerror.NewServer(err)
	}
	if !ok {
		slog.WarnContext(ctx, "message rejected by verification", "phone", phone.Masked())
		return "", goerror.NewBusiness("Your verification code is invalid or has expired. Please try again.", goerror.CodeUnauthorized)
	}

	if s.settings.GatewayBypass {
		s.limiter.RecordSubmission(phone.String())
		slog.InfoContext(ctx, "message delivery bypassed", "phone", phone.Masked())
		return smsgateway.BypassID, nil
	}

	body := entity.FormatRelayBody(s.settings.MessageSource, strings.TrimSpace(in.Name), phone, in.Message)
	receipt, err := s.gateway.Send(ctx, smsgateway.Message{
		PhoneNumbers: []string{s.settings.OwnerPhone.String()},
		Text:         body,
	})
	if err != nil {
		add(ctx, s.telemetry.deliveryFailed, attribute.String("kind", "message"))
		slog.ErrorContext(ctx, "failed to send message", "phone", phone.Masked(), "error", err)
		return "", goerror.NewServerMsg(err, "Failed to send message.")
	}

	s.limiter.RecordSubmission(phone.String())
	add(ctx, s.telemetry.messageSent)

	slog.InfoContext(ctx, "message relayed", "phone", phone.Masked(), "message_id", receipt.ID)

	return receipt.ID, nil
}

func (s *Usecase) idempotencyKey(phone entity.PhoneNumber, key string) (string, error) {
	raw := phone.String() + ":" + key
	if s.keyHash == nil {
		return "relay:message:" + raw, nil
	}

	sum, err := s.keyHash.Hash(raw)
	if err != nil {
		return "", err
	}
	return "relay:message:" + string(sum), nil
}
