package tracker

// The tracking loop: sweep all wallets sequentially, fetch new activity
// above each wallet's cursor, filter, deliver, advance the cursor, sleep,
// repeat. Wallets are never processed concurrently so the outbound
// request rate against per-key upstream quotas stays bounded.

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/v0idum/nft-transfers-tracker/internal/chain"
	"github.com/v0idum/nft-transfers-tracker/internal/domain"
	"github.com/v0idum/nft-transfers-tracker/internal/infra/log"
)

// WalletStore is the persisted wallet registry the engine runs against.
type WalletStore interface {
	ListAll(ctx context.Context) ([]domain.Wallet, error)
	AdvanceCursor(ctx context.Context, address string, chatID int64, newBlock uint64) error
	Add(ctx context.Context, w domain.Wallet) error
	Exists(ctx context.Context, name string, chatID int64) (bool, error)
	Delete(ctx context.Context, name string, chatID int64) (bool, error)
}

// NotificationSink delivers one formatted message to its owning chat.
type NotificationSink interface {
	Send(chatID int64, text string) error
}

// Config holds the pacing knobs of the loop.
type Config struct {
	CycleInterval time.Duration // sleep between sweeps
	WalletDelay   time.Duration // pause between wallets
	DeliveryDelay time.Duration // pause between notifications
	ErrorDelay    time.Duration // pause after a failed sweep
}

// Service is the engine surface: the perpetual tracking loop plus the
// registration operations the chat layer calls.
type Service struct {
	store WalletStore
	chain chain.Client
	sink  NotificationSink
	cfg   Config
}

func New(store WalletStore, chainClient chain.Client, sink NotificationSink, cfg Config) *Service {
	if cfg.CycleInterval <= 0 {
		cfg.CycleInterval = 5 * time.Second
	}
	if cfg.WalletDelay <= 0 {
		cfg.WalletDelay = 2 * time.Second
	}
	if cfg.DeliveryDelay <= 0 {
		cfg.DeliveryDelay = 500 * time.Millisecond
	}
	if cfg.ErrorDelay <= 0 {
		cfg.ErrorDelay = 2 * time.Second
	}
	return &Service{store: store, chain: chainClient, sink: sink, cfg: cfg}
}

// Start runs sweeps until ctx is cancelled. A failed sweep is logged and
// retried after the error delay; nothing thrown inside a sweep escapes
// this loop.
func (s *Service) Start(ctx context.Context) {
	log.LogSuccess("Started tracking wallets")

	for {
		err := s.sweep(ctx)

		if ctx.Err() != nil {
			log.LogInfo("Tracking stopped")
			return
		}

		delay := s.cfg.CycleInterval
		if err != nil {
			log.LogError("Sweep failed", zap.Error(err))
			delay = s.cfg.ErrorDelay
		}
		if !sleepCtx(ctx, delay) {
			log.LogInfo("Tracking stopped")
			return
		}
	}
}

// sweep walks every wallet once. The deferred recover is the top-level
// safety net: a panicking wallet aborts the rest of the pass but never
// the process, and cursors already advanced stay advanced. The HTTP
// session is released on every exit path.
func (s *Service) sweep(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sweep panic: %v", r)
		}
		s.chain.CloseIdleConnections()
	}()

	wallets, err := s.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list wallets: %w", err)
	}

	for _, wallet := range wallets {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		s.processWallet(ctx, wallet)

		if !sleepCtx(ctx, s.cfg.WalletDelay) {
			return ctx.Err()
		}
	}
	return nil
}

// processWallet runs one Fetch → Filter → Deliver → Advance pass for one
// wallet. Failures are contained here: a failing wallet is skipped with
// its cursor untouched and retried on the next cycle.
func (s *Service) processWallet(ctx context.Context, wallet domain.Wallet) {
	items, err := s.chain.FetchSince(ctx, wallet.Address, wallet.CursorBlock)
	if err != nil {
		logFetchError(wallet, err)
		return
	}
	if len(items) == 0 {
		return
	}

	log.LogInfo("New activity",
		zap.String("wallet", wallet.Name),
		zap.Int64("chat_id", wallet.ChatID),
		zap.Int("items", len(items)))

	for _, item := range FilterActivity(items) {
		if ctx.Err() != nil {
			// Shutdown mid-batch: leave the cursor alone so the batch is
			// re-fetched next start (at-least-once).
			return
		}

		text := FormatNotification(item, wallet)
		if err := s.sink.Send(wallet.ChatID, text); err != nil {
			log.LogError("Failed to deliver notification",
				zap.String("wallet", wallet.Name),
				zap.String("tx", item.TxHash),
				zap.Error(err))
		} else {
			log.LogInfo("Notification sent",
				zap.String("wallet", wallet.Name),
				zap.String("tx", item.TxHash))
		}

		if !sleepCtx(ctx, s.cfg.DeliveryDelay) {
			return
		}
	}

	// Advance past the highest block of the whole fetched batch, filtered
	// items included, so a quiet block is never re-scanned.
	newCursor := maxBlock(items) + 1
	if err := s.store.AdvanceCursor(ctx, wallet.Address, wallet.ChatID, newCursor); err != nil {
		log.LogError("Failed to advance cursor",
			zap.String("wallet", wallet.Name),
			zap.Uint64("block", newCursor),
			zap.Error(err))
		return
	}
	log.LogInfo("Cursor advanced",
		zap.String("wallet", wallet.Name),
		zap.Uint64("block", newCursor))
}

// RegisterWallet validates the address against the chain, rejects
// duplicates, seeds the cursor at the current head and persists the
// wallet. Only future activity is tracked.
func (s *Service) RegisterWallet(ctx context.Context, w domain.Wallet) error {
	if !looksLikeAddress(w.Address) {
		return ErrInvalidAddress
	}

	ok, err := s.chain.ValidateAddress(ctx, w.Address)
	if err != nil {
		return fmt.Errorf("address validation failed: %w", err)
	}
	if !ok {
		return ErrInvalidAddress
	}

	exists, err := s.store.Exists(ctx, w.Name, w.ChatID)
	if err != nil {
		return fmt.Errorf("failed to check wallet: %w", err)
	}
	if exists {
		return ErrDuplicateWallet
	}

	head, err := s.chain.CurrentHead(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve chain head: %w", err)
	}
	w.CursorBlock = head

	if err := s.store.Add(ctx, w); err != nil {
		return fmt.Errorf("failed to store wallet: %w", err)
	}

	log.LogSuccess("Wallet added",
		zap.String("name", w.Name),
		zap.Int64("chat_id", w.ChatID),
		zap.Uint64("cursor", w.CursorBlock))
	return nil
}

// RemoveWallet deletes the chat's wallet by name.
func (s *Service) RemoveWallet(ctx context.Context, name string, chatID int64) error {
	removed, err := s.store.Delete(ctx, name, chatID)
	if err != nil {
		return fmt.Errorf("failed to delete wallet: %w", err)
	}
	if !removed {
		return ErrWalletNotFound
	}

	log.LogSuccess("Wallet removed", zap.String("name", name), zap.Int64("chat_id", chatID))
	return nil
}

func looksLikeAddress(address string) bool {
	return len(address) == 42 && strings.HasPrefix(address, "0x")
}

func maxBlock(items []domain.ActivityItem) uint64 {
	var max uint64
	for _, item := range items {
		if item.BlockHeight > max {
			max = item.BlockHeight
		}
	}
	return max
}

func logFetchError(wallet domain.Wallet, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	var fetchErr *chain.FetchError
	if errors.As(err, &fetchErr) {
		if fetchErr.Kind == chain.FetchRateLimited {
			log.LogWarn("Upstream rate limit hit, wallet skipped",
				zap.String("wallet", wallet.Name),
				zap.Error(err))
			return
		}
		log.LogWarn("Fetch failed, wallet skipped",
			zap.String("wallet", wallet.Name),
			zap.String("kind", string(fetchErr.Kind)),
			zap.Error(err))
		return
	}
	log.LogWarn("Fetch failed, wallet skipped",
		zap.String("wallet", wallet.Name),
		zap.Error(err))
}

// sleepCtx sleeps for d unless ctx ends first; reports whether the full
// sleep completed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
