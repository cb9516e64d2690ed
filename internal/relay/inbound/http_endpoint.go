package inbound

import (
	"time"

	"github.com/samber/lo"
	"github.com/shandysiswandi/gorelay/internal/pkg/router"
	"github.com/shandysiswandi/gorelay/internal/relay/entity"
	"github.com/shandysiswandi/gorelay/internal/relay/usecase"
)

// HTTPEndpoint exposes the relay over HTTP.
type HTTPEndpoint struct {
	uc uc
}

// RequestCode texts a verification code to the given number.
func (h *HTTPEndpoint) RequestCode(r *router.Request) (any, error) {
	var req RequestCodeRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.RequestCode(r.Context(), usecase.RequestCodeInput{PhoneNumber: req.PhoneNumber})
	if err != nil {
		return nil, err
	}

	return RequestCodeResponse{MessageID: resp.MessageID}, nil
}

// VerifyCode checks a code without consuming it.
func (h *HTTPEndpoint) VerifyCode(r *router.Request) (any, error) {
	var req VerifyCodeRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.VerifyCode(r.Context(), usecase.VerifyCodeInput{
		PhoneNumber: req.PhoneNumber,
		Code:        req.Code,
	}); err != nil {
		return nil, err
	}

	return VerifyCodeResponse{Verified: true}, nil
}

// SubmitMessage relays a visitor message. An Idempotency-Key header makes
// client retries of the same submission safe.
func (h *HTTPEndpoint) SubmitMessage(r *router.Request) (any, error) {
	var req SubmitMessageRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	var interaction *entity.Interaction
	if d := req.InteractionData; d != nil {
		interaction = &entity.Interaction{
			MouseActivity:    d.MouseActivity,
			KeyboardActivity: d.KeyboardActivity,
		}
		if d.TimeSpent != nil {
			interaction.TimeSpent = lo.ToPtr(time.Duration(*d.TimeSpent) * time.Millisecond)
		}
	}

	resp, err := h.uc.SubmitMessage(r.Context(), usecase.SubmitMessageInput{
		PhoneNumber:    req.PhoneNumber,
		Name:           req.Name,
		Message:        req.Message,
		Code:           req.Code,
		Website:        req.Website,
		Interaction:    interaction,
		IdempotencyKey: r.GetHeader("Idempotency-Key"),
	})
	if err != nil {
		return nil, err
	}

	return SubmitMessageResponse{MessageID: resp.MessageID, Replayed: resp.Replayed}, nil
}

func (h *HTTPEndpoint) MessageState(r *router.Request) (any, error) {
	resp, err := h.uc.MessageState(r.Context(), usecase.MessageStateInput{ID: r.GetParam("id")})
	if err != nil {
		return nil, err
	}

	return MessageStateResponse{
		ID:    resp.ID,
		State: resp.State,
		Recipients: lo.Map(resp.Recipients, func(rs usecase.RecipientState, _ int) RecipientStateResponse {
			return RecipientStateResponse{PhoneNumber: rs.PhoneNumber, State: rs.State, Error: rs.Error}
		}),
	}, nil
}

func (h *HTTPEndpoint) Diagnostics(r *router.Request) (any, error) {
	resp, err := h.uc.Diagnostics(r.Context(), usecase.DiagnosticsInput{Test: r.GetQuery("test")})
	if err != nil {
		return nil, err
	}

	return DiagnosticsResponse{
		Timestamp:     resp.Timestamp,
		ProxyURL:      resp.ProxyURL,
		GatewayURL:    resp.GatewayURL,
		GatewayBypass: resp.GatewayBypass,
		DNS: lo.Map(resp.DNS, func(d usecase.DNSResult, _ int) DNSResultResponse {
			return DNSResultResponse{Host: d.Host, Addresses: d.Addresses, Success: d.Success, Error: d.Error}
		}),
		Connectivity: lo.Map(resp.Connectivity, toProbeResponse),
		Gateway:      lo.Map(resp.Gateway, toProbeResponse),
		GatewayError: resp.GatewayError,
		Limits:       resp.Limits,
	}, nil
}

func toProbeResponse(p usecase.ProbeResult, _ int) ProbeResultResponse {
	return ProbeResultResponse{
		Name:      p.Name,
		URL:       p.URL,
		ViaProxy:  p.ViaProxy,
		WithAuth:  p.WithAuth,
		Status:    p.Status,
		LatencyMS: p.LatencyMS,
		Success:   p.Success,
		Error:     p.Error,
	}
}
