package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shandysiswandi/gorelay/internal/pkg/otp"
)

const testConfig = `
instrument:
  enabled: false
  log_level: error
relay:
  salt: app-test-salt
  owner_phone: "2065550000"
  gateway_bypass: true
  diagnostics:
    enabled: false
`

type successEnvelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type errorEnvelope struct {
	Message string `json:"message"`
}

func startApp(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(testConfig), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)

	application := New()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	errs := application.Serve(l)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		application.Stop(ctx)
		<-errs
	})

	return "http://" + l.Addr().String()
}

func doJSON(t *testing.T, method, url string, payload any) (*http.Response, []byte) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(payload); err != nil {
			t.Fatalf("encode json: %v", err)
		}
		body = buf
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}

	return resp, respBody
}

func decodeSuccess(t *testing.T, body []byte, out any) {
	t.Helper()

	var env successEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("decode success envelope: %v", err)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("decode success data: %v", err)
	}
}

func decodeError(t *testing.T, body []byte) errorEnvelope {
	t.Helper()

	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return env
}

func TestRelayFlow(t *testing.T) {
	// Arrange
	base := startApp(t)
	phone := "2065551234"

	code, err := otp.NewDefault(nil).GenerateCode(phone, "app-test-salt")
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}

	// Act
	resp, body := doJSON(t, http.MethodPost, base+"/api/v1/relay/otp", map[string]string{"phone_number": phone})

	// Assert
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("request code failed: status=%d message=%q", resp.StatusCode, decodeError(t, body).Message)
	}

	resp, body = doJSON(t, http.MethodPost, base+"/api/v1/relay/otp/verify", map[string]string{
		"phone_number": phone,
		"code":         code,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("verify code failed: status=%d message=%q", resp.StatusCode, decodeError(t, body).Message)
	}

	resp, body = doJSON(t, http.MethodPost, base+"/api/v1/relay/messages", map[string]any{
		"phone_number": phone,
		"name":         "Ada Lovelace",
		"message":      "Hello, I enjoyed the write-up.",
		"code":         code,
		"interaction_data": map[string]int{
			"time_spent":        8000,
			"keyboard_activity": 25,
		},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit message failed: status=%d message=%q", resp.StatusCode, decodeError(t, body).Message)
	}

	var sent struct {
		MessageID string `json:"message_id"`
	}
	decodeSuccess(t, body, &sent)
	if sent.MessageID != "bypassed" {
		t.Fatalf("expected bypassed message id, got %q", sent.MessageID)
	}

	resp, body = doJSON(t, http.MethodGet, base+"/api/v1/relay/messages/"+sent.MessageID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("message state failed: status=%d message=%q", resp.StatusCode, decodeError(t, body).Message)
	}
}

func TestRequestCodeRateLimited(t *testing.T) {
	// Arrange
	base := startApp(t)
	payload := map[string]string{"phone_number": "(206) 555-7777"}

	for i := range 3 {
		resp, body := doJSON(t, http.MethodPost, base+"/api/v1/relay/otp", payload)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d failed: status=%d message=%q", i, resp.StatusCode, decodeError(t, body).Message)
		}
	}

	// Act
	resp, body := doJSON(t, http.MethodPost, base+"/api/v1/relay/otp", payload)

	// Assert
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
	want := "You have reached the maximum of 3 verification code requests per hour. Please try again later."
	if msg := decodeError(t, body).Message; msg != want {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestDiagnosticsDisabled(t *testing.T) {
	base := startApp(t)

	resp, _ := doJSON(t, http.MethodGet, base+"/api/v1/relay/diagnostics", nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodGet, base+"/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected healthy server, got %d", resp.StatusCode)
	}
}
