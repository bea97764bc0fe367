// Package client is a small HTTP client for the StauroX verification service.
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.HTTPClient = httpClient
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type LogInfo struct {
	BridgeID      string `json:"bridge_id"`
	Address       string `json:"address"`
	Capacity      int    `json:"capacity"`
	WriteCursor   int    `json:"write_cursor"`
	TotalAdmitted uint64 `json:"total_admitted"`
	CreatedAt     string `json:"created_at"`
}

type GuardianSignature struct {
	GuardianIndex uint8
	Signature     []byte
}

type SubmitResult struct {
	Status   string  `json:"status"`
	Sequence *uint64 `json:"sequence,omitempty"`
	Reason   string  `json:"reason,omitempty"`
	Digest   string  `json:"digest"`
}

type PayloadSummary struct {
	EmitterChain uint16 `json:"emitter_chain"`
	Nonce        uint32 `json:"nonce"`
	Action       uint8  `json:"action"`
	Amount       uint64 `json:"amount"`
	TargetChain  uint16 `json:"target_chain"`
}

type Entry struct {
	Sequence        uint64         `json:"sequence"`
	Digest          string         `json:"digest"`
	SourceTimestamp string         `json:"source_timestamp"`
	AdmittedAt      string         `json:"admitted_at"`
	Summary         PayloadSummary `json:"summary"`
	RiskScore       float64        `json:"risk_score"`
	Confirmation    string         `json:"confirmation"`
}

// APIError is a non-2xx response from the service.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
}

// EnsureLog creates the bridge's verification log if it does not exist yet and
// returns its header either way. Safe to call before every submission.
func (c *Client) EnsureLog(ctx context.Context, bridgeID string, capacity int) (LogInfo, error) {
	body := map[string]any{"bridge_id": bridgeID, "capacity": capacity}
	var out LogInfo
	if err := c.do(ctx, http.MethodPost, "/v1/bridges", body, &out); err != nil {
		return LogInfo{}, err
	}
	return out, nil
}

func (c *Client) Info(ctx context.Context, bridgeID string) (LogInfo, error) {
	var out LogInfo
	if err := c.do(ctx, http.MethodGet, "/v1/bridges/"+url.PathEscape(bridgeID), nil, &out); err != nil {
		return LogInfo{}, err
	}
	return out, nil
}

func (c *Client) Submit(ctx context.Context, bridgeID string, payload []byte, signatures []GuardianSignature) (SubmitResult, error) {
	sigs := make([]map[string]any, 0, len(signatures))
	for _, sig := range signatures {
		sigs = append(sigs, map[string]any{
			"guardian_index":   sig.GuardianIndex,
			"signature_base64": base64.StdEncoding.EncodeToString(sig.Signature),
		})
	}
	body := map[string]any{
		"payload_base64": base64.StdEncoding.EncodeToString(payload),
		"signatures":     sigs,
	}
	var out SubmitResult
	err := c.do(ctx, http.MethodPost, "/v1/bridges/"+url.PathEscape(bridgeID)+"/attestations", body, &out)
	if err != nil {
		return SubmitResult{}, err
	}
	return out, nil
}

func (c *Client) Recent(ctx context.Context, bridgeID string, limit int, before *uint64) ([]Entry, error) {
	path := "/v1/bridges/" + url.PathEscape(bridgeID) + "/verifications"
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if before != nil {
		query.Set("before", strconv.FormatUint(*before, 10))
	}
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	var out []Entry
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetBySequence(ctx context.Context, bridgeID string, sequence uint64) (Entry, error) {
	path := "/v1/bridges/" + url.PathEscape(bridgeID) + "/verifications/" + strconv.FormatUint(sequence, 10)
	var out Entry
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return Entry{}, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var decoded struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &decoded) == nil {
			apiErr.Code = decoded.Code
			apiErr.Message = decoded.Message
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}
