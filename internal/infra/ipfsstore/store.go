package ipfsstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	shell "github.com/ipfs/go-ipfs-api"

	"github.com/Thedy09/nkwa-vault-sub001/internal/domain"
)

// DefaultGatewayURL is used for public content links when no gateway is
// configured.
const DefaultGatewayURL = "https://ipfs.io"

// Client pins bytes to an IPFS node and retrieves them by CID. The store is
// content-addressed, so Put is idempotent in effect: identical bytes always
// come back under the same CID.
type Client struct {
	sh      *shell.Shell
	gateway string
}

func NewClient(apiAddr, gatewayURL string) (*Client, error) {
	if strings.TrimSpace(apiAddr) == "" {
		return nil, errors.New("ipfs api address is required")
	}
	if gatewayURL == "" {
		gatewayURL = DefaultGatewayURL
	}
	return &Client{
		sh:      shell.NewShell(apiAddr),
		gateway: strings.TrimRight(gatewayURL, "/"),
	}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.sh.ID(); err != nil {
		return fmt.Errorf("ipfs node unreachable: %w", err)
	}
	return nil
}

func (c *Client) Put(ctx context.Context, data []byte, contentTypeHint string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrCancelled, err)
	}
	cid, err := c.sh.Add(bytes.NewReader(data), shell.Pin(true))
	if err != nil {
		return "", classifyStoreErr(ctx, err)
	}
	return cid, nil
}

func (c *Client) Get(ctx context.Context, cid string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCancelled, err)
	}
	reader, err := c.sh.Cat(cid)
	if err != nil {
		return nil, classifyStoreErr(ctx, err)
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, classifyStoreErr(ctx, err)
	}
	return data, nil
}

// GatewayURL is a pure string transform; it never touches the network.
func (c *Client) GatewayURL(cid string) string {
	return GatewayURL(c.gateway, cid)
}

func GatewayURL(gateway, cid string) string {
	if gateway == "" {
		gateway = DefaultGatewayURL
	}
	return strings.TrimRight(gateway, "/") + "/ipfs/" + cid
}

func classifyStoreErr(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		return fmt.Errorf("%w: %v", domain.ErrCancelled, err)
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "not found") || strings.Contains(msg, "no link named") ||
		strings.Contains(msg, "invalid path") {
		return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
}
