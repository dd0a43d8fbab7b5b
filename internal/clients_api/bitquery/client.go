package bitquery

// Package bitquery contains the client for the indexer GraphQL API.
// POST requests with an X-API-KEY header; the transport mirrors the
// explorer client (rate limiter, circuit breaker, retry with jitter).

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/v0idum/nft-transfers-tracker/internal/infra/log"
	"github.com/v0idum/nft-transfers-tracker/internal/infra/retry"
)

// ErrEnvelope marks a 200 response whose data.ethereum envelope does not
// contain the queried field.
var ErrEnvelope = errors.New("bitquery: unexpected response envelope")

var defaultRetry = retry.Options{
	MaxRetries: 3,
	BaseDelay:  300 * time.Millisecond,
	MaxDelay:   5 * time.Second,
}

type Client struct {
	url             string
	apiKey          string
	httpClient      *http.Client
	rateLimiter     *rate.Limiter
	circuitBreaker  *gobreaker.CircuitBreaker
	maxResponseSize int64
}

// NewClient builds a Client for the given GraphQL endpoint and key.
// timeout is the per-request HTTP timeout in seconds.
func NewClient(url, apiKey string, timeout int) *Client {
	if timeout <= 0 {
		timeout = 30
	}

	return &Client{
		url:         url,
		apiKey:      apiKey,
		rateLimiter: rate.NewLimiter(rate.Limit(10), 10),
		circuitBreaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "BitqueryAPI",
			MaxRequests: 3,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 5
			},
		}),
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

// CloseIdleConnections releases the pooled connections at sweep end.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// post runs one GraphQL query and returns the raw data payload.
func (c *Client) post(ctx context.Context, operation, query string, variables map[string]any) (json.RawMessage, error) {
	requestID := log.GenerateRequestID()
	startTime := time.Now()

	if ctx.Err() != nil {
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	payload, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	var respBody []byte
	_, err = c.circuitBreaker.Execute(func() (interface{}, error) {
		return nil, retry.Do(ctx, defaultRetry, func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Accept", "application/json")
			req.Header.Set("X-API-KEY", c.apiKey)

			log.LogRequest(requestID, http.MethodPost, operation)

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
		log.LogResponse(requestID, 0, duration, zap.String("endpoint", operation), zap.Error(err))
		return nil, err
	}

	log.LogResponse(requestID, http.StatusOK, duration, zap.String("endpoint", operation))

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode graphql response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrEnvelope, envelope.Errors[0].Message)
	}
	if len(envelope.Data) == 0 {
		return nil, fmt.Errorf("%w: empty data", ErrEnvelope)
	}
	return envelope.Data, nil
}

// TransactionFees fetches value/fee figures for one transaction hash.
func (c *Client) TransactionFees(ctx context.Context, txHash string) (*TxFees, error) {
	data, err := c.post(ctx, "tx_fees", txFeesQuery, map[string]any{"hash": txHash})
	if err != nil {
		return nil, err
	}

	var resp struct {
		Ethereum struct {
			Transactions []TxFees `json:"transactions"`
		} `json:"ethereum"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnvelope, err)
	}
	if len(resp.Ethereum.Transactions) == 0 {
		return nil, fmt.Errorf("%w: no fee data for %s", ErrEnvelope, txHash)
	}
	return &resp.Ethereum.Transactions[0], nil
}

// AddressTransactions lists transactions touching address with block
// height strictly above minHeight, oldest first.
func (c *Client) AddressTransactions(ctx context.Context, address string, minHeight uint64) ([]AddressTx, error) {
	data, err := c.post(ctx, "address_txs", addressTxQuery, map[string]any{
		"address":   address,
		"minHeight": minHeight,
	})
	if err != nil {
		return nil, err
	}

	var resp struct {
		Ethereum *struct {
			Transactions []AddressTx `json:"transactions"`
		} `json:"ethereum"`
	}
	if err := json.Unmarshal(data, &resp); err != nil || resp.Ethereum == nil {
		return nil, fmt.Errorf("%w: missing ethereum.transactions", ErrEnvelope)
	}
	return resp.Ethereum.Transactions, nil
}

// TransactionTransfers lists the currency transfers bundled in one
// transaction hash.
func (c *Client) TransactionTransfers(ctx context.Context, txHash string) ([]Transfer, error) {
	data, err := c.post(ctx, "tx_transfers", txTransfersQuery, map[string]any{"hash": txHash})
	if err != nil {
		return nil, err
	}

	var resp struct {
		Ethereum *struct {
			Transfers []Transfer `json:"transfers"`
		} `json:"ethereum"`
	}
	if err := json.Unmarshal(data, &resp); err != nil || resp.Ethereum == nil {
		return nil, fmt.Errorf("%w: missing ethereum.transfers", ErrEnvelope)
	}
	return resp.Ethereum.Transfers, nil
}
