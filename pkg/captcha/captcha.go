package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/studyvault/studyvault-api/pkg/config"
)

// Verifier checks a client-supplied challenge token against the external
// verification service.
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// HTTPVerifier posts tokens to a reCAPTCHA-compatible verify endpoint.
// Only an explicit success flag in the response counts as a pass.
type HTTPVerifier struct {
	secret    string
	verifyURL string
	client    *http.Client
}

type verifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// NewHTTPVerifier builds a verifier from config.
func NewHTTPVerifier(cfg config.CaptchaConfig) *HTTPVerifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPVerifier{
		secret:    cfg.Secret,
		verifyURL: cfg.VerifyURL,
		client:    &http.Client{Timeout: timeout},
	}
}

// Verify posts the token and returns nil only when the service reports success.
func (v *HTTPVerifier) Verify(ctx context.Context, token, remoteIP string) error {
	if token == "" {
		return fmt.Errorf("captcha token missing")
	}

	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build captcha request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("captcha verification request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	var body verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode captcha response: %w", err)
	}

	if !body.Success {
		if len(body.ErrorCodes) > 0 {
			return fmt.Errorf("captcha rejected: %s", strings.Join(body.ErrorCodes, ", "))
		}
		return fmt.Errorf("captcha rejected")
	}

	return nil
}
