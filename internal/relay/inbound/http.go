package inbound

import (
	"context"

	"github.com/shandysiswandi/gorelay/internal/pkg/router"
	"github.com/shandysiswandi/gorelay/internal/relay/usecase"
)

type uc interface {
	RequestCode(ctx context.Context, in usecase.RequestCodeInput) (*usecase.RequestCodeOutput, error)
	VerifyCode(ctx context.Context, in usecase.VerifyCodeInput) error

	SubmitMessage(ctx context.Context, in usecase.SubmitMessageInput) (*usecase.SubmitMessageOutput, error)
	MessageState(ctx context.Context, in usecase.MessageStateInput) (*usecase.MessageStateOutput, error)

	Diagnostics(ctx context.Context, in usecase.DiagnosticsInput) (*usecase.DiagnosticsOutput, error)
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	// Verification
	r.POST("/api/v1/relay/otp", end.RequestCode)
	r.POST("/api/v1/relay/otp/verify", end.VerifyCode)

	// Messages
	r.POST("/api/v1/relay/messages", end.SubmitMessage)
	r.GET("/api/v1/relay/messages/:id", end.MessageState)

	// Operations
	r.GET("/api/v1/relay/diagnostics", end.Diagnostics)
}
