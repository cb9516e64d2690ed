package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/gorelay/internal/pkg/goerror"
	"github.com/shandysiswandi/gorelay/internal/pkg/smsgateway"
	"github.com/shandysiswandi/gorelay/internal/relay/entity"
	"go.opentelemetry.io/otel/attribute"
)

type RequestCodeInput struct {
	PhoneNumber string
}

type RequestCodeOutput struct {
	MessageID string
}

// RequestCode texts a verification code to the caller's own number.
//
// Nothing is recorded against the limits unless the gateway accepted the message.
func (s *Usecase) RequestCode(ctx context.Context, in RequestCodeInput) (*RequestCodeOutput, error) {
	ctx, span := s.startSpan(ctx, "RequestCode")
	defer span.End()

	phone, err := entity.NormalizePhoneNumber(in.PhoneNumber)
	if err != nil {
		return nil, violation(err)
	}

	if err := s.checkOTPLimit(ctx, phone); err != nil {
		return nil, err
	}

	if err := s.checkSubmissionLimit(ctx, phone, ""); err != nil {
		return nil, err
	}

	code, err := s.totp.GenerateCode(phone.String(), s.settings.Salt)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate verification code", "phone", phone.Masked(), "error", err)
		return nil, goerror.NewServer(err)
	}

	receipt, err := s.gateway.Send(ctx, smsgateway.Message{
		PhoneNumbers: []string{phone.String()},
		Text:         entity.FormatCodeBody(code, time.Duration(s.totp.StepSeconds())*time.Second),
	})
	if err != nil {
		add(ctx, s.telemetry.deliveryFailed, attribute.String("kind", "otp"))
		slog.ErrorContext(ctx, "failed to send verification code", "phone", phone.Masked(), "error", err)
		return nil, goerror.NewServerMsg(err, "An error occurred while trying to send the verification code.")
	}

	s.limiter.RecordOTPRequest(phone.String())
	add(ctx, s.telemetry.otpSent)

	slog.InfoContext(ctx, "verification code sent", "phone", phone.Masked(), "message_id", receipt.ID)

	return &RequestCodeOutput{MessageID: receipt.ID}, nil
}
