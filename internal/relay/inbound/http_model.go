package inbound

import (
	"time"

	"github.com/shandysiswandi/gorelay/internal/pkg/ratelimit"
)

type RequestCodeRequest struct {
	PhoneNumber string `json:"phone_number"`
}

type RequestCodeResponse struct {
	MessageID string `json:"message_id"`
}

func (RequestCodeResponse) Message() string {
	return "Verification code sent successfully."
}

type VerifyCodeRequest struct {
	PhoneNumber string `json:"phone_number"`
	Code        string `json:"code"`
}

type VerifyCodeResponse struct {
	Verified bool `json:"verified"`
}

func (VerifyCodeResponse) Message() string {
	return "Verification code is valid."
}

type InteractionData struct {
	// TimeSpent is in milliseconds. Missing fields stay nil.
	TimeSpent        *int64 `json:"time_spent"`
	MouseActivity    *int   `json:"mouse_activity"`
	KeyboardActivity *int   `json:"keyboard_activity"`
}

type SubmitMessageRequest struct {
	PhoneNumber     string           `json:"phone_number"`
	Name            string           `json:"name"`
	Message         string           `json:"message"`
	Code            string           `json:"code"`
	Website         string           `json:"website"`
	InteractionData *InteractionData `json:"interaction_data"`
}

type SubmitMessageResponse struct {
	MessageID string `json:"message_id"`
	Replayed  bool   `json:"replayed,omitempty"`
}

func (SubmitMessageResponse) Message() string {
	return "Message sent successfully."
}

type RecipientStateResponse struct {
	PhoneNumber string `json:"phone_number"`
	State       string `json:"state"`
	Error       string `json:"error,omitempty"`
}

type MessageStateResponse struct {
	ID         string                   `json:"id"`
	State      string                   `json:"state"`
	Recipients []RecipientStateResponse `json:"recipients"`
}

type DNSResultResponse struct {
	Host      string   `json:"host"`
	Addresses []string `json:"addresses,omitempty"`
	Success   bool     `json:"success"`
	Error     string   `json:"error,omitempty"`
}

type ProbeResultResponse struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	ViaProxy  bool   `json:"via_proxy"`
	WithAuth  bool   `json:"with_auth"`
	Status    int    `json:"status,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

type DiagnosticsResponse struct {
	Timestamp     time.Time                  `json:"timestamp"`
	ProxyURL      string                     `json:"proxy_url,omitempty"`
	GatewayURL    string                     `json:"gateway_url,omitempty"`
	GatewayBypass bool                       `json:"gateway_bypass"`
	DNS           []DNSResultResponse        `json:"dns,omitempty"`
	Connectivity  []ProbeResultResponse      `json:"connectivity,omitempty"`
	Gateway       []ProbeResultResponse      `json:"gateway,omitempty"`
	GatewayError  string                     `json:"gateway_error,omitempty"`
	Limits        map[string]ratelimit.Stats `json:"limits"`
}
