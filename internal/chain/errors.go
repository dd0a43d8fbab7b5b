package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/v0idum/nft-transfers-tracker/internal/clients_api/bitquery"
	"github.com/v0idum/nft-transfers-tracker/internal/clients_api/etherscan"
	"github.com/v0idum/nft-transfers-tracker/internal/infra/retry"
)

// FetchErrorKind drives the loop's skip policy. All kinds are handled the
// same way today (skip the wallet, retry next cycle), but rate-limit
// failures are logged louder.
type FetchErrorKind string

const (
	FetchNetwork     FetchErrorKind = "network"
	FetchMalformed   FetchErrorKind = "malformed"
	FetchRateLimited FetchErrorKind = "rate_limited"
)

// FetchError is the typed failure of one wallet's fetch. It never crosses
// the tracking loop boundary unhandled.
type FetchError struct {
	Kind FetchErrorKind
	Op   string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// wrapFetchErr classifies an upstream failure. Context cancellation is
// passed through untouched so shutdown is not misreported as a fetch
// failure.
func wrapFetchErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	kind := FetchNetwork
	switch {
	case retry.IsRateLimited(err), errors.Is(err, etherscan.ErrRateLimited):
		kind = FetchRateLimited
	case isMalformed(err):
		kind = FetchMalformed
	}
	return &FetchError{Kind: kind, Op: op, Err: err}
}

func isMalformed(err error) bool {
	if errors.Is(err, etherscan.ErrEnvelope) || errors.Is(err, bitquery.ErrEnvelope) {
		return true
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}
