package http

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"time"

	"staurox/internal/domain"
	"staurox/internal/usecase"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type createBridgeRequest struct {
	BridgeID string `json:"bridge_id"`
	Capacity int    `json:"capacity"`
}

type logInfoResponse struct {
	BridgeID      string `json:"bridge_id"`
	Address       string `json:"address"`
	Capacity      int    `json:"capacity"`
	WriteCursor   int    `json:"write_cursor"`
	TotalAdmitted uint64 `json:"total_admitted"`
	CreatedAt     string `json:"created_at"`
}

type guardianSignatureInput struct {
	GuardianIndex   uint8  `json:"guardian_index"`
	SignatureBase64 string `json:"signature_base64"`
}

type submitRequest struct {
	PayloadBase64 string                   `json:"payload_base64"`
	Signatures    []guardianSignatureInput `json:"signatures"`
}

type submitResponse struct {
	Status   string  `json:"status"`
	Sequence *uint64 `json:"sequence,omitempty"`
	Reason   string  `json:"reason,omitempty"`
	Digest   string  `json:"digest"`
}

type entryResponse struct {
	Sequence        uint64                `json:"sequence"`
	Digest          string                `json:"digest"`
	SourceTimestamp string                `json:"source_timestamp"`
	AdmittedAt      string                `json:"admitted_at"`
	Summary         domain.PayloadSummary `json:"summary"`
	RiskScore       float64               `json:"risk_score"`
	Confirmation    string                `json:"confirmation"`
}

func (s *Server) handleCreateBridge(c *gin.Context) {
	if s.logs == nil {
		writeErrorCode(c, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "log store is not configured")
		return
	}
	var req createBridgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	if req.BridgeID == "" {
		writeError(c, domain.ErrBridgeRequired)
		return
	}
	capacity := req.Capacity
	if capacity <= 0 {
		capacity = s.cfg.LogCapacity
	}
	info, err := s.logs.CreateIfMissing(c.Request.Context(), req.BridgeID, capacity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildLogInfoResponse(info))
}

func (s *Server) handleBridgeInfo(c *gin.Context) {
	if s.queryUC == nil {
		writeErrorCode(c, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "log store is not configured")
		return
	}
	info, err := s.queryUC.Info(c.Request.Context(), c.Param("bridge_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildLogInfoResponse(info))
}

func (s *Server) handleSubmit(c *gin.Context) {
	if s.submitUC == nil {
		writeErrorCode(c, http.StatusServiceUnavailable, "SUBMISSIONS_DISABLED", "submissions are disabled: no guardian set configured")
		return
	}
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	payload, err := base64.StdEncoding.DecodeString(req.PayloadBase64)
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_PAYLOAD_ENCODING", "invalid payload encoding")
		return
	}
	signatures := make([]domain.GuardianSignature, 0, len(req.Signatures))
	for _, sig := range req.Signatures {
		raw, err := base64.StdEncoding.DecodeString(sig.SignatureBase64)
		if err != nil {
			writeErrorCode(c, http.StatusBadRequest, "INVALID_SIGNATURE_ENCODING", "invalid signature encoding")
			return
		}
		signatures = append(signatures, domain.GuardianSignature{
			GuardianIndex: sig.GuardianIndex,
			Signature:     raw,
		})
	}

	result, err := s.submitUC.Execute(c.Request.Context(), usecase.SubmitAttestationRequest{
		BridgeID:   c.Param("bridge_id"),
		RawPayload: payload,
		Signatures: signatures,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	out := submitResponse{
		Status: string(result.Status),
		Reason: string(result.Reason),
		Digest: hex.EncodeToString(result.Digest),
	}
	if result.Status == domain.StatusAdmitted {
		seq := result.Sequence
		out.Sequence = &seq
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleRecent(c *gin.Context) {
	if s.queryUC == nil {
		writeErrorCode(c, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "log store is not configured")
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeErrorCode(c, http.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
			return
		}
		limit = parsed
	}
	var before *uint64
	if raw := c.Query("before"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeErrorCode(c, http.StatusBadRequest, "INVALID_BEFORE", "invalid before sequence")
			return
		}
		before = &parsed
	}

	entries, err := s.queryUC.Recent(c.Request.Context(), c.Param("bridge_id"), limit, before)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]entryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, buildEntryResponse(entry))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetBySequence(c *gin.Context) {
	if s.queryUC == nil {
		writeErrorCode(c, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "log store is not configured")
		return
	}
	sequence, err := strconv.ParseUint(c.Param("sequence"), 10, 64)
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_SEQUENCE", "invalid sequence")
		return
	}
	entry, err := s.queryUC.GetBySequence(c.Request.Context(), c.Param("bridge_id"), sequence)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildEntryResponse(entry))
}

func buildLogInfoResponse(info domain.LogInfo) logInfoResponse {
	return logInfoResponse{
		BridgeID:      info.BridgeID,
		Address:       info.Address,
		Capacity:      info.Capacity,
		WriteCursor:   info.WriteCursor,
		TotalAdmitted: info.TotalAdmitted,
		CreatedAt:     info.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func buildEntryResponse(entry domain.VerificationEntry) entryResponse {
	return entryResponse{
		Sequence:        entry.Sequence,
		Digest:          hex.EncodeToString(entry.Digest),
		SourceTimestamp: entry.SourceTimestamp.UTC().Format(time.RFC3339),
		AdmittedAt:      entry.AdmittedAt.UTC().Format(time.RFC3339),
		Summary:         entry.Summary,
		RiskScore:       entry.RiskScore,
		Confirmation:    string(entry.Confirmation),
	}
}

func writeError(c *gin.Context, err error) {
	var conflict *domain.ConfigurationConflictError
	if errors.As(err, &conflict) {
		c.JSON(http.StatusConflict, errorResponse{
			Code:    "CONFIGURATION_CONFLICT",
			Message: conflict.Error(),
			Details: map[string]any{
				"expected": conflict.Expected,
				"actual":   conflict.Actual,
			},
		})
		return
	}

	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrMalformedPayload):
		status, code = http.StatusBadRequest, "MALFORMED_PAYLOAD"
	case errors.Is(err, domain.ErrUnsupportedVersion):
		status, code = http.StatusBadRequest, "UNSUPPORTED_VERSION"
	case errors.Is(err, domain.ErrFieldOutOfRange):
		status, code = http.StatusBadRequest, "FIELD_OUT_OF_RANGE"
	case errors.Is(err, domain.ErrBridgeRequired):
		status, code = http.StatusBadRequest, "BRIDGE_REQUIRED"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	}
	writeErrorCode(c, status, code, err.Error())
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{
		Code:    code,
		Message: message,
	})
}
