package registry

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Thedy09/nkwa-vault-sub001/internal/domain"
	"github.com/Thedy09/nkwa-vault-sub001/internal/infra/ledger"
)

// errTxReverted marks a transaction that made it on chain but failed at
// execution, reported only through the receipt status.
var errTxReverted = errors.New("registry transaction reverted")

const (
	sigCertify      = "certify(string,bytes32,string,string,string,address)"
	sigRecertify    = "recertify(string,bytes32,string,string,string,address)"
	sigRecordReward = "recordReward(address,uint256,string)"
	sigGetContent   = "getContent(string)"

	receiptPollInterval = 500 * time.Millisecond
	receiptPollLimit    = 10
)

// Client talks to a stateful registry contract over JSON-RPC. Writes are
// transactions keyed by content id inside the contract; lookups are free
// eth_call reads. The contract rejects a duplicate certify by reverting.
type Client struct {
	rpcURL       string
	contractAddr string
	signerAddr   string
	httpDo       func(*http.Request) (*http.Response, error)
	nextID       atomic.Int64
}

type Config struct {
	RPCURL       string
	ContractAddr string
	SignerAddr   string
	HTTPClient   *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.RPCURL) == "" {
		return nil, errors.New("registry rpc url is required")
	}
	if strings.TrimSpace(cfg.ContractAddr) == "" {
		return nil, errors.New("registry contract address is required")
	}
	if strings.TrimSpace(cfg.SignerAddr) == "" {
		return nil, errors.New("registry signer address is required")
	}
	doer := http.DefaultClient.Do
	if cfg.HTTPClient != nil {
		doer = cfg.HTTPClient.Do
	}
	return &Client{
		rpcURL:       strings.TrimRight(cfg.RPCURL, "/"),
		contractAddr: cfg.ContractAddr,
		signerAddr:   cfg.SignerAddr,
		httpDo:       doer,
	}, nil
}

func (c *Client) Mode() domain.Mode {
	return domain.ModeLive
}

func (c *Client) Ping(ctx context.Context) error {
	var result string
	return c.rpc(ctx, "eth_blockNumber", []any{}, &result)
}

func (c *Client) Certify(ctx context.Context, req ledger.CertifyRequest) (ledger.CertifyResult, error) {
	result, err := c.transact(ctx, sigCertify, req)
	if err != nil && errors.Is(err, errTxReverted) {
		// The duplicate guard can fire at execution time instead of at
		// submission, leaving only a reverted receipt. Reconcile
		// through a read: an existing record means the uniqueness
		// constraint rejected this certify.
		record, lookupErr := c.Lookup(ctx, req.ContentID)
		if lookupErr == nil && record.Exists {
			return ledger.CertifyResult{}, fmt.Errorf("%w: %s", domain.ErrAlreadyCertified, req.ContentID)
		}
	}
	return result, err
}

func (c *Client) Recertify(ctx context.Context, req ledger.CertifyRequest) (ledger.CertifyResult, error) {
	return c.transact(ctx, sigRecertify, req)
}

func (c *Client) transact(ctx context.Context, signature string, req ledger.CertifyRequest) (ledger.CertifyResult, error) {
	contributor, err := addressArg(req.Contributor)
	if err != nil {
		return ledger.CertifyResult{}, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	calldata := encodeCall(signature,
		stringArg(req.ContentID),
		bytes32Arg(req.ContentHash),
		stringArg(req.MetadataCID),
		stringArg(req.ContentType),
		stringArg(req.License),
		contributor,
	)
	return c.sendAndWait(ctx, calldata)
}

func (c *Client) RecordReward(ctx context.Context, contributor string, points int64, reason string) (ledger.RewardResult, error) {
	addrArg, err := addressArg(contributor)
	if err != nil {
		return ledger.RewardResult{}, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	pointsArg, err := uint256Arg(points)
	if err != nil {
		return ledger.RewardResult{}, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	calldata := encodeCall(sigRecordReward, addrArg, pointsArg, stringArg(reason))
	result, err := c.sendAndWait(ctx, calldata)
	if err != nil {
		return ledger.RewardResult{}, err
	}
	return ledger.RewardResult{TxRef: result.TxRef}, nil
}

func (c *Client) Lookup(ctx context.Context, contentID string) (ledger.Record, error) {
	calldata := encodeCall(sigGetContent, stringArg(contentID))
	call := map[string]string{
		"to":   c.contractAddr,
		"data": "0x" + hex.EncodeToString(calldata),
	}
	var result string
	if err := c.rpc(ctx, "eth_call", []any{call, "latest"}, &result); err != nil {
		return ledger.Record{}, err
	}
	payload, err := hex.DecodeString(strings.TrimPrefix(result, "0x"))
	if err != nil {
		return ledger.Record{}, fmt.Errorf("%w: malformed eth_call result: %v", domain.ErrLedgerUnavailable, err)
	}
	return decodeContentRecord(contentID, payload)
}

// decodeContentRecord unpacks the getContent return tuple:
// (bytes32 hash, string metadataCid, string contentType, string license,
// address contributor, uint256 timestamp, bool exists).
func decodeContentRecord(contentID string, payload []byte) (ledger.Record, error) {
	if len(payload) == 0 {
		return ledger.Record{Exists: false}, nil
	}
	dec, err := newReturnDecoder(payload)
	if err != nil {
		return ledger.Record{}, fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
	}
	exists, err := dec.boolAt(6)
	if err != nil {
		return ledger.Record{}, fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
	}
	if !exists {
		return ledger.Record{Exists: false}, nil
	}
	hash, err := dec.bytes32At(0)
	if err != nil {
		return ledger.Record{}, fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
	}
	metadataCID, err := dec.stringAt(1)
	if err != nil {
		return ledger.Record{}, fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
	}
	contentType, err := dec.stringAt(2)
	if err != nil {
		return ledger.Record{}, fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
	}
	license, err := dec.stringAt(3)
	if err != nil {
		return ledger.Record{}, fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
	}
	contributor, err := dec.addressAt(4)
	if err != nil {
		return ledger.Record{}, fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
	}
	ts, err := dec.uint64At(5)
	if err != nil {
		return ledger.Record{}, fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
	}
	return ledger.Record{
		ContentID:   contentID,
		ContentHash: domain.ContentHash(hash),
		MetadataCID: metadataCID,
		ContentType: contentType,
		License:     license,
		Contributor: contributor,
		Timestamp:   time.Unix(ts, 0).UTC(),
		Exists:      true,
	}, nil
}

func (c *Client) sendAndWait(ctx context.Context, calldata []byte) (ledger.CertifyResult, error) {
	tx := map[string]string{
		"from": c.signerAddr,
		"to":   c.contractAddr,
		"data": "0x" + hex.EncodeToString(calldata),
	}
	var txHash string
	if err := c.rpc(ctx, "eth_sendTransaction", []any{tx}, &txHash); err != nil {
		return ledger.CertifyResult{}, err
	}

	blockNumber, err := c.waitReceipt(ctx, txHash)
	if err != nil {
		return ledger.CertifyResult{}, err
	}
	return ledger.CertifyResult{TxRef: txHash, Sequence: blockNumber}, nil
}

type txReceipt struct {
	BlockNumber string `json:"blockNumber"`
	Status      string `json:"status"`
}

func (c *Client) waitReceipt(ctx context.Context, txHash string) (int64, error) {
	for attempt := 0; attempt < receiptPollLimit; attempt++ {
		var receipt *txReceipt
		if err := c.rpc(ctx, "eth_getTransactionReceipt", []any{txHash}, &receipt); err != nil {
			return 0, err
		}
		if receipt != nil && receipt.BlockNumber != "" {
			if receipt.Status == "0x0" {
				return 0, fmt.Errorf("%w: %s", errTxReverted, txHash)
			}
			return parseHexInt(receipt.BlockNumber)
		}
		timer := time.NewTimer(receiptPollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return 0, fmt.Errorf("%w: %v", domain.ErrCancelled, ctx.Err())
		case <-timer.C:
		}
	}
	return 0, fmt.Errorf("%w: no receipt for %s after %d polls", domain.ErrLedgerUnavailable, txHash, receiptPollLimit)
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      int64  `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *Client) rpc(ctx context.Context, method string, params []any, out any) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", Method: method, Params: params, ID: c.nextID.Add(1)})
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpDo(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return fmt.Errorf("%w: %v", domain.ErrCancelled, err)
		}
		return fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: rpc endpoint returned %d", domain.ErrLedgerUnavailable, resp.StatusCode)
	}
	var parsed rpcResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return fmt.Errorf("%w: malformed rpc response: %v", domain.ErrLedgerUnavailable, err)
	}
	if parsed.Error != nil {
		return classifyRPCError(parsed.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(parsed.Result, out); err != nil {
		return fmt.Errorf("%w: malformed rpc result: %v", domain.ErrLedgerUnavailable, err)
	}
	return nil
}

// classifyRPCError maps contract reverts onto the shared taxonomy. A revert
// mentioning the duplicate guard is the contract's uniqueness constraint
// firing, not an outage.
func classifyRPCError(rpcErr *rpcError) error {
	msg := strings.ToLower(rpcErr.Message)
	if strings.Contains(msg, "already certified") || strings.Contains(msg, "duplicate content") {
		return fmt.Errorf("%w: %s", domain.ErrAlreadyCertified, rpcErr.Message)
	}
	if strings.Contains(msg, "revert") {
		return fmt.Errorf("registry contract reverted: %s", rpcErr.Message)
	}
	return fmt.Errorf("%w: rpc error %d: %s", domain.ErrLedgerUnavailable, rpcErr.Code, rpcErr.Message)
}

func parseHexInt(value string) (int64, error) {
	parsed, err := strconv.ParseInt(strings.TrimPrefix(value, "0x"), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed block number %q", domain.ErrLedgerUnavailable, value)
	}
	return parsed, nil
}

var _ ledger.Ledger = (*Client)(nil)
