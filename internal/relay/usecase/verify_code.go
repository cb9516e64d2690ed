package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/gorelay/internal/pkg/goerror"
	"github.com/shandysiswandi/gorelay/internal/relay/entity"
)

type VerifyCodeInput struct {
	PhoneNumber string
	Code        string
}

// VerifyCode checks a code without side effects. Codes stay valid for their
// whole window, so a verified code can still be used to submit a message.
func (s *Usecase) VerifyCode(ctx context.Context, in VerifyCodeInput) error {
	ctx, span := s.startSpan(ctx, "VerifyCode")
	defer span.End()

	phone, err := entity.NormalizePhoneNumber(in.PhoneNumber)
	if err != nil {
		return violation(err)
	}

	code := strings.TrimSpace(in.Code)
	if code == "" {
		return violation(entity.ViolationCodeRequired)
	}

	if err := s.checkSubmissionLimit(ctx, phone,
		"You have already sent a message within the last week. Please try again later."); err != nil {
		return err
	}

	ok, err := s.totp.VerifyCode(phone.String(), s.settings.Salt, code)
	if err != nil {
		slog.ErrorContext(ctx, "failed to verify code", "phone", phone.Masked(), "error", err)
		return goerror.NewServer(err)
	}

	if !ok {
		slog.WarnContext(ctx, "invalid verification code", "phone", phone.Masked())
		return goerror.NewBusiness("Invalid or expired verification code.", goerror.CodeUnauthorized)
	}

	return nil
}
