// Package privacyidea talks to a privacyIDEA server over its REST API and
// implements the mfa.Backend contract. Endpoints that manage tokens
// (triggerchallenge, token listing, token rollout) authenticate with the
// configured service account; the validate endpoints are unauthenticated.
package privacyidea

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/thomasdarimont/privacyidea-keycloak-provider/pkg/mfa"
)

const userAgent = "privacyidea-keycloak-provider/go"

// Client is a privacyIDEA REST API client. It is safe for concurrent use.
type Client struct {
	cfg  mfa.Config
	http *http.Client

	mu           sync.Mutex
	serviceToken string
}

// NewClient creates a client for the server named in the config. TLS
// verification follows cfg.VerifySSL.
func NewClient(cfg mfa.Config) *Client {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: !cfg.VerifySSL},
	}
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
		},
	}
}

// TriggerChallenges triggers all challenges for the user via the service
// account.
func (c *Client) TriggerChallenges(ctx context.Context, username, acceptLanguage string) (*mfa.ChallengeResult, error) {
	token, err := c.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{"user": {username}}
	if c.cfg.Realm != "" {
		params.Set("realm", c.cfg.Realm)
	}

	resp, err := c.post(ctx, "/validate/triggerchallenge", params, headers{
		"Authorization":   token,
		"Accept-Language": acceptLanguage,
	})
	if err != nil {
		return nil, fmt.Errorf("triggerchallenge failed: %w", err)
	}
	return resp.challengeResult(), nil
}

// ValidateCheck verifies a credential value, optionally bound to a
// transaction.
func (c *Client) ValidateCheck(ctx context.Context, username, credential, transactionID, acceptLanguage string) (*mfa.ChallengeResult, error) {
	params := url.Values{
		"user": {username},
		"pass": {credential},
	}
	if transactionID != "" {
		params.Set("transaction_id", transactionID)
	}
	if c.cfg.Realm != "" {
		params.Set("realm", c.cfg.Realm)
	}

	resp, err := c.post(ctx, "/validate/check", params, headers{"Accept-Language": acceptLanguage})
	if err != nil {
		return nil, fmt.Errorf("validate check failed: %w", err)
	}
	return resp.challengeResult(), nil
}

// ValidateCheckWebAuthn verifies a WebAuthn sign response. The individual
// fields of the sign response are posted alongside the user and transaction,
// the origin travels in the Origin header.
func (c *Client) ValidateCheckWebAuthn(ctx context.Context, username, transactionID, signResponse, origin, acceptLanguage string) (*mfa.ChallengeResult, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(signResponse), &fields); err != nil {
		return nil, fmt.Errorf("malformed webauthn sign response: %w", err)
	}

	params := url.Values{
		"user": {username},
		"pass": {""},
	}
	if transactionID != "" {
		params.Set("transaction_id", transactionID)
	}
	if c.cfg.Realm != "" {
		params.Set("realm", c.cfg.Realm)
	}
	for name, raw := range fields {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			s = string(raw)
		}
		params.Set(name, s)
	}

	resp, err := c.post(ctx, "/validate/check", params, headers{
		"Accept-Language": acceptLanguage,
		"Origin":          origin,
	})
	if err != nil {
		return nil, fmt.Errorf("webauthn validate check failed: %w", err)
	}
	return resp.challengeResult(), nil
}

// PollTransaction reports whether the out-of-band challenge has been
// answered.
func (c *Client) PollTransaction(ctx context.Context, transactionID string) (bool, error) {
	params := url.Values{"transaction_id": {transactionID}}
	resp, err := c.get(ctx, "/validate/polltransaction", params, nil)
	if err != nil {
		return false, fmt.Errorf("polltransaction failed: %w", err)
	}
	return resp.boolValue(), nil
}

// GetTokenInfo lists the tokens assigned to the user.
func (c *Client) GetTokenInfo(ctx context.Context, username string) ([]mfa.TokenInfo, error) {
	token, err := c.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{"user": {username}}
	resp, err := c.get(ctx, "/token/", params, headers{"Authorization": token})
	if err != nil {
		return nil, fmt.Errorf("token listing failed: %w", err)
	}

	var value struct {
		Tokens []mfa.TokenInfo `json:"tokens"`
	}
	if err := json.Unmarshal(resp.Result.Value, &value); err != nil {
		return nil, fmt.Errorf("malformed token listing: %w", err)
	}
	return value.Tokens, nil
}

// TokenRollout enrolls a new token of the given type for the user and returns
// the enrollment QR payload.
func (c *Client) TokenRollout(ctx context.Context, username, tokenType string) (*mfa.RolloutInfo, error) {
	token, err := c.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"user":   {username},
		"type":   {tokenType},
		"genkey": {"1"},
	}
	resp, err := c.post(ctx, "/token/init", params, headers{"Authorization": token})
	if err != nil {
		return nil, fmt.Errorf("token rollout failed: %w", err)
	}

	return &mfa.RolloutInfo{
		Serial:       resp.Detail.Serial,
		EnrollmentQR: resp.Detail.GoogleURL.Img,
	}, nil
}

// authenticate obtains a service account token, reusing a previously issued
// one. privacyIDEA tokens are valid long enough to cover one authentication
// attempt; a rejected cached token surfaces as a call failure and the next
// attempt re-authenticates.
func (c *Client) authenticate(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.serviceToken != "" {
		return c.serviceToken, nil
	}

	params := url.Values{
		"username": {c.cfg.ServiceAccount},
		"password": {c.cfg.ServicePassword},
	}
	if c.cfg.ServiceRealm != "" {
		params.Set("realm", c.cfg.ServiceRealm)
	}

	resp, err := c.post(ctx, "/auth", params, nil)
	if err != nil {
		return "", fmt.Errorf("service account authentication failed: %w", err)
	}

	var value struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp.Result.Value, &value); err != nil || value.Token == "" {
		return "", fmt.Errorf("service account authentication returned no token")
	}

	c.serviceToken = value.Token
	return c.serviceToken, nil
}

type headers map[string]string

func (c *Client) post(ctx context.Context, path string, params url.Values, h headers) (*apiResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.ServerURL+path, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, h)
}

func (c *Client) get(ctx context.Context, path string, params url.Values, h headers) (*apiResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.ServerURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return c.do(req, h)
}

func (c *Client) do(req *http.Request, h headers) (*apiResponse, error) {
	req.Header.Set("User-Agent", userAgent)
	for name, value := range h {
		if value != "" {
			req.Header.Set(name, value)
		}
	}

	if c.cfg.DoLog {
		slog.Info("privacyidea request", "method", req.Method, "url", req.URL.Redacted())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, req.URL.Path)
	}

	var decoded apiResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("malformed response from %s: %w", req.URL.Path, err)
	}
	if decoded.Result.Error != nil {
		return nil, decoded.Result.Error
	}
	return &decoded, nil
}
