package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/layer-3/tia/core"
	"github.com/layer-3/tia/ports"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://etalon.cash/tia"
	DefaultTimeout = 10 * time.Second

	// maxBodySize bounds how much of a response body is read
	maxBodySize = 4 << 20
)

// Config represents integration API configuration
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client is a lightweight client to the token integration REST API.
// It performs no retries.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new integration API client
func NewClient(config Config, logger *zap.Logger) *Client {
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}
}

var _ ports.Integration = (*Client)(nil)

// RecoverAddress asks the API to validate the signed message and recover
// the signing wallet address, returned in checksum format.
func (c *Client) RecoverAddress(ctx context.Context, message, signature string) (string, error) {
	res, err := c.call(ctx, "/wallet-by-signed", walletBySignedRequest{Message: message, Signature: signature})
	if err != nil {
		return "", err
	}

	switch res.StatusCode {
	case http.StatusTooManyRequests:
		return "", core.ErrRateLimited
	case http.StatusBadRequest:
		return "", core.ErrInvalidSignature
	}
	if err := res.expectBody("/wallet-by-signed"); err != nil {
		return "", err
	}

	var body walletBySignedResponse
	if err := json.Unmarshal(res.Body, &body); err != nil {
		return "", fmt.Errorf("%w: decode wallet-by-signed: %v", core.ErrServiceError, err)
	}
	if body.Address == "" || !common.IsHexAddress(body.Address) {
		return "", fmt.Errorf("%w: wallet-by-signed returned no valid address", core.ErrServiceError)
	}

	return common.HexToAddress(body.Address).Hex(), nil
}

// TokenBalance gets the token balance of a wallet. The address is
// case-sensitive and must be in checksum format.
func (c *Client) TokenBalance(ctx context.Context, address string) (*core.TokenBalance, error) {
	res, err := c.call(ctx, "/token-balance", tokenBalanceRequest{Address: address})
	if err != nil {
		return nil, err
	}
	if res.StatusCode == http.StatusTooManyRequests {
		return nil, core.ErrRateLimited
	}
	if err := res.expectBody("/token-balance"); err != nil {
		return nil, err
	}

	var body tokenBalanceResponse
	if err := decodeNumbers(res.Body, &body); err != nil {
		return nil, fmt.Errorf("%w: decode token-balance: %v", core.ErrServiceError, err)
	}
	if body.Balance == "" {
		return nil, fmt.Errorf("%w: token-balance returned no balance", core.ErrServiceError)
	}
	decimals, err := body.Decimals.decimals()
	if err != nil {
		return nil, fmt.Errorf("%w: token-balance decimals: %v", core.ErrServiceError, err)
	}

	return &core.TokenBalance{
		Address:  address,
		Balance:  body.Balance.String(),
		Decimals: decimals,
	}, nil
}

// TokenChanges gets token balance changes with id >= since. The next query
// should use the last id + 1, or repeat since when nothing was returned.
func (c *Client) TokenChanges(ctx context.Context, since int64) ([]core.TokenBalanceChange, error) {
	res, err := c.call(ctx, "/token-changes", tokenChangesRequest{Since: since})
	if err != nil {
		return nil, err
	}
	if res.StatusCode == http.StatusTooManyRequests {
		return nil, core.ErrRateLimited
	}
	if err := res.expectBody("/token-changes"); err != nil {
		return nil, err
	}

	var body tokenChangesResponse
	if err := decodeNumbers(res.Body, &body); err != nil {
		return nil, fmt.Errorf("%w: decode token-changes: %v", core.ErrServiceError, err)
	}
	decimals, err := body.Decimals.decimals()
	if err != nil {
		return nil, fmt.Errorf("%w: token-changes decimals: %v", core.ErrServiceError, err)
	}

	changes := make([]core.TokenBalanceChange, 0, len(body.Changes))
	for _, ch := range body.Changes {
		id, err := ch.ID.Int64()
		if err != nil {
			return nil, fmt.Errorf("%w: token-changes id: %v", core.ErrServiceError, err)
		}
		changes = append(changes, core.TokenBalanceChange{
			ID: id,
			TokenBalance: core.TokenBalance{
				Address:  ch.Address,
				Balance:  ch.Balance.String(),
				Decimals: decimals,
			},
		})
	}

	return changes, nil
}

// ContractInfo gets information about the tracked token contract
func (c *Client) ContractInfo(ctx context.Context) (*core.ContractInfo, error) {
	res, err := c.call(ctx, "/contract-info", nil)
	if err != nil {
		return nil, err
	}
	if res.StatusCode == http.StatusTooManyRequests {
		return nil, core.ErrRateLimited
	}
	if err := res.expectBody("/contract-info"); err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := decodeNumbers(res.Body, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode contract-info: %v", core.ErrServiceError, err)
	}
	var body contractInfoResponse
	if err := decodeNumbers(res.Body, &body); err != nil {
		return nil, fmt.Errorf("%w: decode contract-info: %v", core.ErrServiceError, err)
	}

	info := &core.ContractInfo{
		ContractAddress: body.ContractAddress,
		Raw:             raw,
	}
	if common.IsHexAddress(body.ContractAddress) {
		info.ContractAddress = common.HexToAddress(body.ContractAddress).Hex()
	}
	if body.BlockNumber != "" {
		if info.BlockNumber, err = body.BlockNumber.Int64(); err != nil {
			return nil, fmt.Errorf("%w: contract-info block_number: %v", core.ErrServiceError, err)
		}
	}
	if info.Decimals, err = body.Decimals.decimals(); err != nil {
		return nil, fmt.Errorf("%w: contract-info decimals: %v", core.ErrServiceError, err)
	}

	return info, nil
}

// result is the outcome of one HTTP exchange before classification
type result struct {
	StatusCode int
	Body       []byte // nil when the body is empty or JSON null
}

// expectBody classifies anything but a 200 with a non-null body as a
// service error
func (r *result) expectBody(endpoint string) error {
	if r.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s responded with status %d", core.ErrServiceError, endpoint, r.StatusCode)
	}
	if r.Body == nil {
		return fmt.Errorf("%w: %s responded with an empty body", core.ErrServiceError, endpoint)
	}
	return nil
}

// call performs a POST with a JSON body, or a GET when payload is nil
func (c *Client) call(ctx context.Context, endpoint string, payload any) (*result, error) {
	method := http.MethodGet
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s request: %w", endpoint, err)
		}
		method = http.MethodPost
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Integration request failed",
			zap.String("endpoint", endpoint),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, &core.TransportError{Op: method + " " + endpoint, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &core.TransportError{Op: "read " + endpoint, Err: err}
	}

	c.logger.Debug("Integration request completed",
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	res := &result{StatusCode: resp.StatusCode}
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		res.Body = trimmed
	}
	return res, nil
}
