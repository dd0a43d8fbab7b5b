package etherscan

// Package etherscan contains the client for the explorer API.
// Transport layer only: sends query-string GET requests, unwraps the
// status/result envelope, knows nothing about wallets or cursors.

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/v0idum/nft-transfers-tracker/internal/infra/log"
	"github.com/v0idum/nft-transfers-tracker/internal/infra/retry"
)

// EndBlockSentinel is the fixed upper bound the explorer expects when the
// caller wants "everything up to now".
const EndBlockSentinel = 999999999

var defaultRetry = retry.Options{
	MaxRetries: 3,
	BaseDelay:  300 * time.Millisecond,
	MaxDelay:   5 * time.Second,
}

// Client calls the explorer API. Requests are paced by a rate limiter and
// guarded by a circuit breaker so a broken upstream does not burn the
// per-key quota.
type Client struct {
	baseURL         string
	apiKey          string
	httpClient      *http.Client
	rateLimiter     *rate.Limiter
	circuitBreaker  *gobreaker.CircuitBreaker
	maxResponseSize int64
}

// NewClient builds a Client for the given API base URL and key.
// timeout is the per-request HTTP timeout in seconds.
func NewClient(baseURL, apiKey string, timeout int) *Client {
	if timeout <= 0 {
		timeout = 30
	}

	// Free-tier explorer keys allow 5 req/s.
	rateLimiter := rate.NewLimiter(rate.Limit(5), 5)

	circuitBreaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "EtherscanAPI",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	return &Client{
		baseURL:         strings.TrimRight(baseURL, "?"),
		apiKey:          apiKey,
		rateLimiter:     rateLimiter,
		circuitBreaker:  circuitBreaker,
		maxResponseSize: 10 * 1024 * 1024,
		httpClient: &http.Client{
			Timeout: time.Duration(timeout) * time.Second,
			Transport: &http.Transport{
				DisableKeepAlives: false,
				MaxIdleConns:      10,
				IdleConnTimeout:   90 * time.Second,
			},
		},
	}
}

// CloseIdleConnections releases the pooled connections. The tracking loop
// calls it at the end of every sweep.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// get performs one rate-limited, breaker-guarded, retried GET and returns
// the raw body.
func (c *Client) get(ctx context.Context, params url.Values) ([]byte, error) {
	requestID := log.GenerateRequestID()
	startTime := time.Now()

	if ctx.Err() != nil {
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	params.Set("apikey", c.apiKey)
	fullURL := c.baseURL + "?" + params.Encode()
	endpoint := params.Get("module") + "/" + params.Get("action")

	var respBody []byte
	_, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		return nil, retry.Do(ctx, defaultRetry, func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
			if err != nil {
				return err
			}
			req.Header.Set("Accept", "application/json")

			log.LogRequest(requestID, http.MethodGet, endpoint)

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("failed to perform request: %w", err)
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseSize))
			if err != nil {
				return fmt.Errorf("failed to read response: %w", err)
			}

			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return &retry.HTTPError{
					StatusCode: resp.StatusCode,
					Body:       body,
					RetryAfter: retry.ParseRetryAfter(resp.Header.Get("Retry-After")),
				}
			}

			respBody = body
			return nil
		})
	})
	duration := time.Since(startTime).Milliseconds()
	if err != nil {
		log.LogResponse(requestID, 0, duration, zap.String("endpoint", endpoint), zap.Error(err))
		return nil, err
	}

	log.LogResponse(requestID, http.StatusOK, duration, zap.String("endpoint", endpoint))
	return respBody, nil
}

// BlockNumber returns the current chain head height.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	params := url.Values{}
	params.Set("module", "proxy")
	params.Set("action", "eth_blockNumber")

	body, err := c.get(ctx, params)
	if err != nil {
		return 0, err
	}

	// The proxy module answers with a bare hex string in result.
	var resp struct {
		Result string `json:"result"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("failed to decode block number: %w", err)
	}
	height, err := strconv.ParseUint(strings.TrimPrefix(resp.Result, "0x"), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad block number %q", ErrEnvelope, resp.Result)
	}
	return height, nil
}

// AddressExists checks an address via the balance action. The explorer
// answers status "1" for any well-formed, known address.
func (c *Client) AddressExists(ctx context.Context, address string) (bool, error) {
	params := url.Values{}
	params.Set("module", "account")
	params.Set("action", "balance")
	params.Set("address", address)
	params.Set("tag", "latest")

	body, err := c.get(ctx, params)
	if err != nil {
		return false, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return false, fmt.Errorf("failed to decode balance response: %w", err)
	}
	return env.Status == "1", nil
}

// TokenNFTTransfers lists ERC-721 transfer events for address starting at
// startBlock, oldest first. An empty list with status "0" and a "No
// transactions found" message is a normal quiet result, not a failure.
func (c *Client) TokenNFTTransfers(ctx context.Context, address string, startBlock uint64) ([]NFTTransferEvent, error) {
	params := url.Values{}
	params.Set("module", "account")
	params.Set("action", "tokennfttx")
	params.Set("address", address)
	params.Set("startblock", strconv.FormatUint(startBlock, 10))
	params.Set("endblock", strconv.Itoa(EndBlockSentinel))
	params.Set("sort", "asc")

	body, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Status  string          `json:"status"`
		Message string          `json:"message"`
		Result  json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode transfer list: %w", err)
	}

	if resp.Status != "1" {
		if strings.HasPrefix(resp.Message, "No transactions") {
			return nil, nil
		}
		var detail string
		json.Unmarshal(resp.Result, &detail)
		if isRateLimitNotice(resp.Message) || isRateLimitNotice(detail) {
			return nil, fmt.Errorf("%w: %s", ErrRateLimited, detail)
		}
		return nil, fmt.Errorf("%w: status %q message %q", ErrEnvelope, resp.Status, resp.Message)
	}

	var events []NFTTransferEvent
	if err := json.Unmarshal(resp.Result, &events); err != nil {
		return nil, fmt.Errorf("%w: result is not an event list", ErrEnvelope)
	}
	return events, nil
}

func isRateLimitNotice(s string) bool {
	return strings.Contains(strings.ToLower(s), "rate limit")
}
