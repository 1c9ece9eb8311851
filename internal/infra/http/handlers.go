package http

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Thedy09/nkwa-vault-sub001/internal/domain"
	"github.com/Thedy09/nkwa-vault-sub001/internal/usecase"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type certifyRequest struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Content     string       `json:"content"`
	ContentType string       `json:"content_type"`
	Language    string       `json:"language,omitempty"`
	Origin      string       `json:"origin,omitempty"`
	License     string       `json:"license,omitempty"`
	Contributor string       `json:"contributor"`
	Media       []mediaInput `json:"media,omitempty"`
}

type mediaInput struct {
	Filename    string `json:"filename"`
	MimeType    string `json:"mime_type"`
	BytesBase64 string `json:"bytes_base64"`
}

type certificateResponse struct {
	ContentID   string   `json:"content_id"`
	ContentHash string   `json:"content_hash"`
	MetadataCID string   `json:"metadata_cid"`
	MetadataURL string   `json:"metadata_url,omitempty"`
	MediaCIDs   []string `json:"media_cids,omitempty"`
	ContentType string   `json:"content_type,omitempty"`
	License     string   `json:"license,omitempty"`
	Contributor string   `json:"contributor"`
	LedgerTxRef string   `json:"ledger_tx_ref"`
	Sequence    int64    `json:"sequence,omitempty"`
	Status      string   `json:"status"`
	Mode        string   `json:"mode"`
	Timestamp   string   `json:"timestamp"`
}

type certifyResponse struct {
	Certificate   certificateResponse    `json:"certificate"`
	MediaFailures []mediaFailureResponse `json:"media_failures,omitempty"`
}

type mediaFailureResponse struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

type verificationResponse struct {
	ContentID     string `json:"content_id"`
	IsAuthentic   bool   `json:"is_authentic"`
	IPFSIntegrity string `json:"ipfs_integrity"`
	Status        string `json:"status"`
	LedgerHash    string `json:"ledger_hash"`
	CheckedAt     string `json:"checked_at"`
}

type awardRequest struct {
	Contributor string         `json:"contributor"`
	Reason      string         `json:"reason"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type rewardResponse struct {
	ID          string         `json:"id,omitempty"`
	Contributor string         `json:"contributor"`
	Points      int64          `json:"points"`
	Reason      string         `json:"reason"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	LedgerTxRef string         `json:"ledger_tx_ref"`
	Mode        string         `json:"mode"`
	Timestamp   string         `json:"timestamp"`
}

type standingResponse struct {
	Contributor     string  `json:"contributor"`
	Points          int64   `json:"points"`
	Level           string  `json:"level"`
	NextLevel       string  `json:"next_level,omitempty"`
	ProgressPercent float64 `json:"progress_percent"`
}

func (s *Server) handleCertify(c *gin.Context) {
	if s.certifyUC == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	var req certifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	sub := domain.ContentSubmission{
		ID:          req.ID,
		Title:       req.Title,
		Content:     req.Content,
		ContentType: req.ContentType,
		Language:    req.Language,
		Origin:      req.Origin,
		License:     req.License,
		Contributor: req.Contributor,
	}
	for _, m := range req.Media {
		data, err := base64.StdEncoding.DecodeString(m.BytesBase64)
		if err != nil {
			writeErrorCode(c, http.StatusBadRequest, "INVALID_MEDIA_ENCODING", "media bytes are not valid base64")
			return
		}
		sub.Media = append(sub.Media, domain.MediaFile{
			Filename: m.Filename,
			MimeType: m.MimeType,
			Bytes:    data,
		})
	}

	outcome, err := s.certifyUC.Execute(c.Request.Context(), sub)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := certifyResponse{Certificate: s.buildCertificateResponse(outcome.Certificate)}
	for _, failure := range outcome.MediaFailures {
		resp.MediaFailures = append(resp.MediaFailures, mediaFailureResponse{
			Filename: failure.Filename,
			Error:    failure.Err.Error(),
		})
	}
	status := http.StatusCreated
	if outcome.Certificate.Status == domain.StatusRecertified {
		status = http.StatusOK
	}
	c.JSON(status, resp)
}

func (s *Server) handleVerify(c *gin.Context) {
	if s.verifyUC == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	contentID := c.Param("content_id")
	expected, err := parseContentHash(c.Query("expected_hash"))
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_HASH", "expected_hash must be 64 hex chars")
		return
	}
	result, err := s.verifyUC.Execute(c.Request.Context(), contentID, expected)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, verificationResponse{
		ContentID:     result.ContentID,
		IsAuthentic:   result.IsAuthentic,
		IPFSIntegrity: string(result.IPFSIntegrity),
		Status:        string(result.Status),
		LedgerHash:    hex.EncodeToString(result.LedgerHash[:]),
		CheckedAt:     result.CheckedAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleCertificate(c *gin.Context) {
	if s.queryUC == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	cert, err := s.queryUC.Latest(c.Request.Context(), c.Param("content_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.buildCertificateResponse(*cert))
}

func (s *Server) handleHistory(c *gin.Context) {
	if s.queryUC == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	history, err := s.queryUC.History(c.Request.Context(), c.Param("content_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]certificateResponse, 0, len(history))
	for _, cert := range history {
		out = append(out, s.buildCertificateResponse(cert))
	}
	c.JSON(http.StatusOK, gin.H{"history": out})
}

func (s *Server) handleAward(c *gin.Context) {
	if s.rewards == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	if !s.requireAdminKey(c) {
		return
	}
	var req awardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	record, err := s.rewards.Award(c.Request.Context(), usecase.AwardRequest{
		Contributor: req.Contributor,
		Reason:      domain.ContributionType(req.Reason),
		Metadata:    req.Metadata,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, buildRewardResponse(*record))
}

func (s *Server) handleContributorCertificates(c *gin.Context) {
	if s.queryUC == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	certs, err := s.queryUC.ListByContributor(c.Request.Context(), c.Param("address"))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]certificateResponse, 0, len(certs))
	for _, cert := range certs {
		out = append(out, s.buildCertificateResponse(cert))
	}
	c.JSON(http.StatusOK, gin.H{"certificates": out})
}

func (s *Server) handleContributorRewards(c *gin.Context) {
	if s.rewards == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	records, err := s.rewards.History(c.Request.Context(), c.Param("address"))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]rewardResponse, 0, len(records))
	for _, record := range records {
		out = append(out, buildRewardResponse(record))
	}
	c.JSON(http.StatusOK, gin.H{"rewards": out})
}

func (s *Server) handleContributorBalance(c *gin.Context) {
	if s.rewards == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	address := c.Param("address")
	balance, err := s.rewards.BalanceOf(c.Request.Context(), address)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contributor": address, "balance": balance})
}

func (s *Server) handleContributorLevel(c *gin.Context) {
	if s.rewards == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	address := c.Param("address")
	standing, err := s.rewards.StandingOf(c.Request.Context(), address)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, standingResponse{
		Contributor:     address,
		Points:          standing.Points,
		Level:           standing.Current,
		NextLevel:       standing.Next,
		ProgressPercent: standing.ProgressPercent,
	})
}

func (s *Server) buildCertificateResponse(cert domain.Certificate) certificateResponse {
	resp := certificateResponse{
		ContentID:   cert.ContentID,
		ContentHash: hex.EncodeToString(cert.ContentHash[:]),
		MetadataCID: cert.MetadataCID,
		MediaCIDs:   cert.MediaCIDs,
		ContentType: cert.ContentType,
		License:     cert.License,
		Contributor: cert.Contributor,
		LedgerTxRef: cert.LedgerTxRef,
		Sequence:    cert.Sequence,
		Status:      string(cert.Status),
		Mode:        string(cert.Mode),
		Timestamp:   cert.Timestamp.UTC().Format(time.RFC3339),
	}
	if cert.MetadataCID != "" && s.certifyUC != nil && s.certifyUC.Store != nil {
		resp.MetadataURL = s.certifyUC.Store.GatewayURL(cert.MetadataCID)
	}
	return resp
}

func buildRewardResponse(record domain.RewardRecord) rewardResponse {
	return rewardResponse{
		ID:          record.ID,
		Contributor: record.Contributor,
		Points:      record.Points,
		Reason:      string(record.Reason),
		Metadata:    record.Metadata,
		LedgerTxRef: record.LedgerTxRef,
		Mode:        string(record.Mode),
		Timestamp:   record.Timestamp.UTC().Format(time.RFC3339),
	}
}

func parseContentHash(value string) (domain.ContentHash, error) {
	var hash domain.ContentHash
	decoded, err := hex.DecodeString(value)
	if err != nil {
		return hash, err
	}
	if len(decoded) != domain.HashSize {
		return hash, errors.New("wrong hash length")
	}
	copy(hash[:], decoded)
	return hash, nil
}

func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrValidation):
		status, code = http.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrUnknownContributionType):
		status, code = http.StatusBadRequest, "UNKNOWN_CONTRIBUTION_TYPE"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrAlreadyCertified):
		status, code = http.StatusConflict, "ALREADY_CERTIFIED"
	case errors.Is(err, domain.ErrStorageUnavailable):
		status, code = http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE"
	case errors.Is(err, domain.ErrLedgerUnavailable):
		status, code = http.StatusServiceUnavailable, "LEDGER_UNAVAILABLE"
	case errors.Is(err, domain.ErrCancelled):
		status, code = http.StatusServiceUnavailable, "CANCELLED"
	case errors.Is(err, domain.ErrEncoding):
		status, code = http.StatusBadRequest, "ENCODING"
	}
	writeErrorCode(c, status, code, err.Error())
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{
		Code:    code,
		Message: message,
	})
}
