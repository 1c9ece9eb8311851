package consensus

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Thedy09/nkwa-vault-sub001/internal/domain"
	"github.com/Thedy09/nkwa-vault-sub001/internal/infra/ledger"
)

// Client anchors certifications on an append-only consensus topic and mints a
// uniquely serial-numbered token per certification whose metadata points at
// the pinned content. Reward events go to the same topic.
type Client struct {
	baseURL    string
	topicID    string
	tokenID    string
	operatorID string
	httpDo     func(*http.Request) (*http.Response, error)
}

type Config struct {
	BaseURL    string
	TopicID    string
	TokenID    string
	OperatorID string
	HTTPClient *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("consensus base url is required")
	}
	if strings.TrimSpace(cfg.TopicID) == "" {
		return nil, errors.New("consensus topic id is required")
	}
	if strings.TrimSpace(cfg.TokenID) == "" {
		return nil, errors.New("consensus token id is required")
	}
	doer := http.DefaultClient.Do
	if cfg.HTTPClient != nil {
		doer = cfg.HTTPClient.Do
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		topicID:    cfg.TopicID,
		tokenID:    cfg.TokenID,
		operatorID: cfg.OperatorID,
		httpDo:     doer,
	}, nil
}

func (c *Client) Mode() domain.Mode {
	return domain.ModeLive
}

// Ping probes connectivity for the startup mode decision.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpDo(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("consensus health check returned %d", resp.StatusCode)
	}
	return nil
}

type topicMessage struct {
	Type        string `json:"type"`
	ContentID   string `json:"content_id"`
	ContentHash string `json:"content_hash,omitempty"`
	MetadataCID string `json:"metadata_cid,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	License     string `json:"license,omitempty"`
	Contributor string `json:"contributor,omitempty"`
	Points      int64  `json:"points,omitempty"`
	Reason      string `json:"reason,omitempty"`
	Operator    string `json:"operator,omitempty"`
	Timestamp   string `json:"timestamp"`
}

type submitResponse struct {
	SequenceNumber     int64  `json:"sequence_number"`
	ConsensusTimestamp string `json:"consensus_timestamp"`
}

type mintResponse struct {
	SerialNumber  int64  `json:"serial_number"`
	TransactionID string `json:"transaction_id"`
}

type lookupResponse struct {
	Found   bool         `json:"found"`
	Message topicMessage `json:"message"`
}

// Certify rejects a content id that already has a topic entry; the topic
// itself is append-only and enforces no uniqueness, so the duplicate check is
// a read against the gateway's content index.
func (c *Client) Certify(ctx context.Context, req ledger.CertifyRequest) (ledger.CertifyResult, error) {
	existing, err := c.Lookup(ctx, req.ContentID)
	if err != nil {
		return ledger.CertifyResult{}, err
	}
	if existing.Exists {
		return ledger.CertifyResult{}, fmt.Errorf("%w: %s", domain.ErrAlreadyCertified, req.ContentID)
	}
	return c.anchor(ctx, req)
}

func (c *Client) Recertify(ctx context.Context, req ledger.CertifyRequest) (ledger.CertifyResult, error) {
	return c.anchor(ctx, req)
}

func (c *Client) anchor(ctx context.Context, req ledger.CertifyRequest) (ledger.CertifyResult, error) {
	msg := topicMessage{
		Type:        "certification",
		ContentID:   req.ContentID,
		ContentHash: hex.EncodeToString(req.ContentHash[:]),
		MetadataCID: req.MetadataCID,
		ContentType: req.ContentType,
		License:     req.License,
		Contributor: req.Contributor,
		Operator:    c.operatorID,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	var submitted submitResponse
	if err := c.post(ctx, "/v1/topics/"+c.topicID+"/messages", msg, &submitted); err != nil {
		return ledger.CertifyResult{}, err
	}

	mintBody := map[string]string{"metadata": req.MetadataCID, "content_id": req.ContentID}
	var minted mintResponse
	if err := c.post(ctx, "/v1/tokens/"+c.tokenID+"/mint", mintBody, &minted); err != nil {
		return ledger.CertifyResult{}, err
	}

	return ledger.CertifyResult{
		TxRef:    fmt.Sprintf("%s/%d#%d", c.topicID, submitted.SequenceNumber, minted.SerialNumber),
		Sequence: submitted.SequenceNumber,
	}, nil
}

// Lookup reads the gateway's index of the latest topic entry per content id.
func (c *Client) Lookup(ctx context.Context, contentID string) (ledger.Record, error) {
	getURL := c.baseURL + "/v1/topics/" + c.topicID + "/contents/" + contentID
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, getURL, nil)
	if err != nil {
		return ledger.Record{}, err
	}
	resp, err := c.httpDo(httpReq)
	if err != nil {
		return ledger.Record{}, classifyNetworkErr(ctx, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ledger.Record{}, classifyNetworkErr(ctx, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return ledger.Record{Exists: false}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ledger.Record{}, classifyStatus(resp.StatusCode, body)
	}
	var found lookupResponse
	if err := json.Unmarshal(body, &found); err != nil {
		return ledger.Record{}, fmt.Errorf("%w: malformed lookup response: %v", domain.ErrLedgerUnavailable, err)
	}
	if !found.Found {
		return ledger.Record{Exists: false}, nil
	}
	return messageToRecord(found.Message)
}

func (c *Client) RecordReward(ctx context.Context, contributor string, points int64, reason string) (ledger.RewardResult, error) {
	msg := topicMessage{
		Type:        "reward",
		Contributor: contributor,
		Points:      points,
		Reason:      reason,
		Operator:    c.operatorID,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	var submitted submitResponse
	if err := c.post(ctx, "/v1/topics/"+c.topicID+"/messages", msg, &submitted); err != nil {
		return ledger.RewardResult{}, err
	}
	return ledger.RewardResult{
		TxRef: fmt.Sprintf("%s/%d", c.topicID, submitted.SequenceNumber),
	}, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.httpDo(httpReq)
	if err != nil {
		return classifyNetworkErr(ctx, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return classifyNetworkErr(ctx, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyStatus(resp.StatusCode, respBody)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: malformed response: %v", domain.ErrLedgerUnavailable, err)
	}
	return nil
}

func messageToRecord(msg topicMessage) (ledger.Record, error) {
	record := ledger.Record{
		ContentID:   msg.ContentID,
		MetadataCID: msg.MetadataCID,
		ContentType: msg.ContentType,
		License:     msg.License,
		Contributor: msg.Contributor,
		Exists:      true,
	}
	hashBytes, err := hex.DecodeString(msg.ContentHash)
	if err != nil || len(hashBytes) != domain.HashSize {
		return ledger.Record{}, fmt.Errorf("%w: malformed content hash on topic entry", domain.ErrLedgerUnavailable)
	}
	copy(record.ContentHash[:], hashBytes)
	if msg.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339, msg.Timestamp); err == nil {
			record.Timestamp = ts
		}
	}
	return record, nil
}

func classifyNetworkErr(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
		ctx.Err() != nil {
		return fmt.Errorf("%w: %v", domain.ErrCancelled, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
}

func classifyStatus(status int, body []byte) error {
	if status == http.StatusConflict {
		return fmt.Errorf("%w: %s", domain.ErrAlreadyCertified, strings.TrimSpace(string(body)))
	}
	if status == http.StatusTooManyRequests || status >= 500 {
		return fmt.Errorf("%w: consensus gateway returned %d", domain.ErrLedgerUnavailable, status)
	}
	return fmt.Errorf("consensus gateway rejected request with %d: %s", status, strings.TrimSpace(string(body)))
}

var _ ledger.Ledger = (*Client)(nil)
