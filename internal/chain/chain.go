package chain

// Package chain turns "give me new activity for address X above block B"
// into upstream calls. Two strategies satisfy the same contract: a direct
// NFT-transfer scan against the explorer, and a transaction+transfer
// reconciliation against the indexer. The strategy is picked once at
// startup from configuration.

import (
	"context"

	"github.com/v0idum/nft-transfers-tracker/internal/domain"
)

// Client is the fetch contract the tracking loop runs against.
type Client interface {
	// FetchSince returns normalized activity for address with block height
	// strictly above cursor, in ascending block order. An empty result and
	// a nil error is a normal quiet poll.
	FetchSince(ctx context.Context, address string, cursor uint64) ([]domain.ActivityItem, error)

	// ValidateAddress checks the address against the chain at registration
	// time.
	ValidateAddress(ctx context.Context, address string) (bool, error)

	// CurrentHead resolves the present chain height, used to seed the
	// cursor of a freshly registered wallet so only future activity is
	// tracked.
	CurrentHead(ctx context.Context) (uint64, error)

	// CloseIdleConnections releases pooled upstream connections. The loop
	// calls it at the end of every sweep and on sweep failure.
	CloseIdleConnections()
}
