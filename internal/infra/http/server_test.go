package http

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"staurox/internal/config"
	"staurox/internal/domain"
	"staurox/internal/infra/crypto"
	"staurox/internal/infra/logmem"
	"staurox/internal/infra/ratelimit"
	"staurox/internal/usecase"
	"staurox/pkg/attest"

	"github.com/gin-gonic/gin"
)

var testNow = time.Date(2026, 1, 12, 5, 0, 0, 0, time.UTC)

type testHarness struct {
	server *Server
	store  *logmem.Store
	privs  []ed25519.PrivateKey
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	pubs := make([]ed25519.PublicKey, 4)
	privs := make([]ed25519.PrivateKey, 4)
	for i := range pubs {
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			t.Fatalf("generate guardian key: %v", err)
		}
		pubs[i] = pub
		privs[i] = priv
	}
	guardians, err := crypto.NewGuardianSet(pubs, 3)
	if err != nil {
		t.Fatalf("new guardian set: %v", err)
	}

	store := logmem.NewWithClock(func() time.Time { return testNow })
	submit := &usecase.VerifyAndAdmit{
		Logs:           store,
		Verifier:       guardians,
		Clock:          func() time.Time { return testNow },
		Capacity:       5,
		StalenessBound: 24 * time.Hour,
		SkewTolerance:  5 * time.Minute,
		GuardianCount:  guardians.Size(),
	}
	server := NewServerWithDeps(config.Config{LogCapacity: 5, QueryMaxLimit: 100}, ServerDeps{
		Submit: submit,
	})
	return &testHarness{server: server, store: store, privs: privs}
}

func (h *testHarness) request(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	h.server.r.ServeHTTP(w, req)
	return w
}

func (h *testHarness) sign(payload []byte, indices ...int) []guardianSignatureInput {
	digest := sha256.Sum256(payload)
	out := make([]guardianSignatureInput, 0, len(indices))
	for _, i := range indices {
		sig := ed25519.Sign(h.privs[i], digest[:])
		out = append(out, guardianSignatureInput{
			GuardianIndex:   uint8(i),
			SignatureBase64: base64.StdEncoding.EncodeToString(sig),
		})
	}
	return out
}

func testPayload(ts time.Time, nonce uint32) ([]byte, domain.Attestation) {
	a := domain.Attestation{
		Version:         attest.Version,
		EmitterChain:    1,
		Nonce:           nonce,
		SourceTimestamp: ts,
		Action:          domain.ActionTransferNative,
		Amount:          750,
		TargetChain:     2,
	}
	a.EmitterAddress[0] = 0x11
	a.Recipient[0] = 0x22
	return attest.Encode(a), a
}

func assertErrorCode(t *testing.T, body []byte, want string) {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if resp.Code != want {
		t.Fatalf("error code: got %q want %q", resp.Code, want)
	}
}

func TestHealthzEndpoint(t *testing.T) {
	h := newTestHarness(t)
	w := h.request(t, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"mode":"mem"`) {
		t.Fatalf("unexpected healthz body: %s", w.Body.String())
	}
}

func TestCreateBridgeEndpoint(t *testing.T) {
	h := newTestHarness(t)

	w := h.request(t, http.MethodPost, "/v1/bridges", createBridgeRequest{BridgeID: "1:1100", Capacity: 5})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var info logInfoResponse
	if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if info.BridgeID != "1:1100" || info.Capacity != 5 || info.TotalAdmitted != 0 {
		t.Fatalf("unexpected log info: %+v", info)
	}
	if info.Address == "" {
		t.Fatal("expected derived address")
	}

	// Same capacity is idempotent.
	w = h.request(t, http.MethodPost, "/v1/bridges", createBridgeRequest{BridgeID: "1:1100", Capacity: 5})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on re-create, got %d", w.Code)
	}
}

func TestCreateBridgeEndpoint_CapacityConflict(t *testing.T) {
	h := newTestHarness(t)

	if w := h.request(t, http.MethodPost, "/v1/bridges", createBridgeRequest{BridgeID: "1:1100", Capacity: 5}); w.Code != http.StatusOK {
		t.Fatalf("create: %d", w.Code)
	}
	w := h.request(t, http.MethodPost, "/v1/bridges", createBridgeRequest{BridgeID: "1:1100", Capacity: 9})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
	assertErrorCode(t, w.Body.Bytes(), "CONFIGURATION_CONFLICT")

	var resp errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if resp.Details["expected"] != float64(5) || resp.Details["actual"] != float64(9) {
		t.Fatalf("conflict details: %+v", resp.Details)
	}
}

func TestCreateBridgeEndpoint_BadRequests(t *testing.T) {
	h := newTestHarness(t)

	w := h.request(t, http.MethodPost, "/v1/bridges", createBridgeRequest{Capacity: 5})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing bridge id, got %d", w.Code)
	}
	assertErrorCode(t, w.Body.Bytes(), "BRIDGE_REQUIRED")

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/bridges", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	h.server.r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid json, got %d", w.Code)
	}
	assertErrorCode(t, w.Body.Bytes(), "INVALID_JSON")
}

func TestBridgeInfoEndpoint(t *testing.T) {
	h := newTestHarness(t)

	w := h.request(t, http.MethodGet, "/v1/bridges/1:1100", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before creation, got %d", w.Code)
	}

	if w := h.request(t, http.MethodPost, "/v1/bridges", createBridgeRequest{BridgeID: "1:1100", Capacity: 5}); w.Code != http.StatusOK {
		t.Fatalf("create: %d", w.Code)
	}
	w = h.request(t, http.MethodGet, "/v1/bridges/1:1100", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var info logInfoResponse
	if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if info.BridgeID != "1:1100" || info.WriteCursor != 0 {
		t.Fatalf("unexpected log info: %+v", info)
	}
}

func TestSubmitEndpoint_Admitted(t *testing.T) {
	h := newTestHarness(t)
	payload, att := testPayload(testNow.Add(-10*time.Second), 1)

	w := h.request(t, http.MethodPost, "/v1/bridges/"+att.BridgeID()+"/attestations", submitRequest{
		PayloadBase64: base64.StdEncoding.EncodeToString(payload),
		Signatures:    h.sign(payload, 0, 1, 2),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp submitResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "admitted" {
		t.Fatalf("status: got %q reason %q", resp.Status, resp.Reason)
	}
	if resp.Sequence == nil || *resp.Sequence != 0 {
		t.Fatalf("sequence: %v", resp.Sequence)
	}
	if len(resp.Digest) != 64 {
		t.Fatalf("digest hex length: %d", len(resp.Digest))
	}
}

func TestSubmitEndpoint_Duplicate(t *testing.T) {
	h := newTestHarness(t)
	payload, att := testPayload(testNow.Add(-10*time.Second), 1)
	body := submitRequest{
		PayloadBase64: base64.StdEncoding.EncodeToString(payload),
		Signatures:    h.sign(payload, 0, 1, 2),
	}
	path := "/v1/bridges/" + att.BridgeID() + "/attestations"

	if w := h.request(t, http.MethodPost, path, body); w.Code != http.StatusOK {
		t.Fatalf("first submit: %d", w.Code)
	}
	w := h.request(t, http.MethodPost, path, body)
	if w.Code != http.StatusOK {
		t.Fatalf("second submit: %d", w.Code)
	}
	var resp submitResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "duplicate" {
		t.Fatalf("status: got %q want duplicate", resp.Status)
	}
	if resp.Sequence != nil {
		t.Fatal("duplicate response carries a sequence")
	}
}

func TestSubmitEndpoint_BelowQuorum(t *testing.T) {
	h := newTestHarness(t)
	payload, att := testPayload(testNow.Add(-10*time.Second), 1)

	w := h.request(t, http.MethodPost, "/v1/bridges/"+att.BridgeID()+"/attestations", submitRequest{
		PayloadBase64: base64.StdEncoding.EncodeToString(payload),
		Signatures:    h.sign(payload, 0, 1),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp submitResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "rejected" || resp.Reason != "invalid_attestation" {
		t.Fatalf("got status %q reason %q", resp.Status, resp.Reason)
	}
}

func TestSubmitEndpoint_Stale(t *testing.T) {
	h := newTestHarness(t)
	payload, att := testPayload(testNow.Add(-25*time.Hour), 1)

	w := h.request(t, http.MethodPost, "/v1/bridges/"+att.BridgeID()+"/attestations", submitRequest{
		PayloadBase64: base64.StdEncoding.EncodeToString(payload),
		Signatures:    h.sign(payload, 0, 1, 2),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp submitResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "rejected" || resp.Reason != "stale" {
		t.Fatalf("got status %q reason %q", resp.Status, resp.Reason)
	}
}

func TestSubmitEndpoint_BadRequests(t *testing.T) {
	h := newTestHarness(t)

	w := h.request(t, http.MethodPost, "/v1/bridges/1:1100/attestations", submitRequest{
		PayloadBase64: "!!not-base64!!",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad encoding, got %d", w.Code)
	}
	assertErrorCode(t, w.Body.Bytes(), "INVALID_PAYLOAD_ENCODING")

	w = h.request(t, http.MethodPost, "/v1/bridges/1:1100/attestations", submitRequest{
		PayloadBase64: base64.StdEncoding.EncodeToString([]byte("too short")),
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed payload, got %d", w.Code)
	}
	assertErrorCode(t, w.Body.Bytes(), "MALFORMED_PAYLOAD")

	w = h.request(t, http.MethodPost, "/v1/bridges/1:1100/attestations", submitRequest{
		PayloadBase64: base64.StdEncoding.EncodeToString(make([]byte, attest.PayloadSize)),
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsupported version, got %d", w.Code)
	}
	assertErrorCode(t, w.Body.Bytes(), "UNSUPPORTED_VERSION")
}

func TestSubmitEndpoint_DisabledWithoutVerifier(t *testing.T) {
	gin.SetMode(gin.TestMode)
	server := NewServerWithDeps(config.Config{QueryMaxLimit: 100}, ServerDeps{
		Logs: logmem.New(),
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/bridges/1:1100/attestations", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	server.r.ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 in queries-only mode, got %d", w.Code)
	}
	assertErrorCode(t, w.Body.Bytes(), "SUBMISSIONS_DISABLED")
}

func TestRecentEndpoint(t *testing.T) {
	h := newTestHarness(t)

	var bridgeID string
	for i := uint32(0); i < 3; i++ {
		payload, att := testPayload(testNow.Add(-time.Minute), 10+i)
		bridgeID = att.BridgeID()
		w := h.request(t, http.MethodPost, "/v1/bridges/"+bridgeID+"/attestations", submitRequest{
			PayloadBase64: base64.StdEncoding.EncodeToString(payload),
			Signatures:    h.sign(payload, 0, 1, 2),
		})
		if w.Code != http.StatusOK {
			t.Fatalf("submit %d: %d", i, w.Code)
		}
	}

	w := h.request(t, http.MethodGet, "/v1/bridges/"+bridgeID+"/verifications", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var entries []entryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries: got %d want 3", len(entries))
	}
	for i, want := range []uint64{2, 1, 0} {
		if entries[i].Sequence != want {
			t.Fatalf("entry %d: sequence %d want %d", i, entries[i].Sequence, want)
		}
	}

	w = h.request(t, http.MethodGet, "/v1/bridges/"+bridgeID+"/verifications?limit=1", nil)
	if err := json.Unmarshal(w.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode limited response: %v", err)
	}
	if len(entries) != 1 || entries[0].Sequence != 2 {
		t.Fatalf("limited page: %+v", entries)
	}

	w = h.request(t, http.MethodGet, "/v1/bridges/"+bridgeID+"/verifications?before=2", nil)
	if err := json.Unmarshal(w.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode before response: %v", err)
	}
	if len(entries) != 2 || entries[0].Sequence != 1 {
		t.Fatalf("before page: %+v", entries)
	}

	w = h.request(t, http.MethodGet, "/v1/bridges/"+bridgeID+"/verifications?limit=nope", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", w.Code)
	}
	assertErrorCode(t, w.Body.Bytes(), "INVALID_LIMIT")
}

func TestGetBySequenceEndpoint(t *testing.T) {
	h := newTestHarness(t)
	payload, att := testPayload(testNow.Add(-time.Minute), 1)
	bridgeID := att.BridgeID()

	w := h.request(t, http.MethodPost, "/v1/bridges/"+bridgeID+"/attestations", submitRequest{
		PayloadBase64: base64.StdEncoding.EncodeToString(payload),
		Signatures:    h.sign(payload, 0, 1, 2),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("submit: %d", w.Code)
	}

	w = h.request(t, http.MethodGet, "/v1/bridges/"+bridgeID+"/verifications/0", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var entry entryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &entry); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if entry.Sequence != 0 {
		t.Fatalf("sequence: %d", entry.Sequence)
	}
	if entry.Digest != hex.EncodeToString(attest.Digest(att)) {
		t.Fatal("digest mismatch")
	}

	w = h.request(t, http.MethodGet, "/v1/bridges/"+bridgeID+"/verifications/9", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown sequence, got %d", w.Code)
	}

	w = h.request(t, http.MethodGet, "/v1/bridges/"+bridgeID+"/verifications/nope", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad sequence, got %d", w.Code)
	}
	assertErrorCode(t, w.Body.Bytes(), "INVALID_SEQUENCE")
}

func TestSubmitEndpoint_RateLimited(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newTestHarness(t)
	limiter := ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{})
	server := NewServerWithDeps(config.Config{
		QueryMaxLimit:          100,
		RateLimitRequests:      2,
		RateLimitWindowSeconds: 60,
	}, ServerDeps{
		Submit:      h.server.submitUC,
		RateLimiter: limiter,
	})

	payload, att := testPayload(testNow.Add(-time.Minute), 1)
	body, _ := json.Marshal(submitRequest{
		PayloadBase64: base64.StdEncoding.EncodeToString(payload),
		Signatures:    h.sign(payload, 0, 1, 2),
	})
	path := "/v1/bridges/" + att.BridgeID() + "/attestations"

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		server.r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("first requests: %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("third request: got %d want 429", codes[2])
	}
}

func TestRequestIDHeader(t *testing.T) {
	h := newTestHarness(t)

	w := h.request(t, http.MethodGet, "/healthz", nil)
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing generated request id")
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-123")
	h.server.r.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "req-123" {
		t.Fatalf("request id not propagated: %q", got)
	}
}
