package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/v0idum/nft-transfers-tracker/internal/chain"
	"github.com/v0idum/nft-transfers-tracker/internal/domain"
)

type cursorUpdate struct {
	address  string
	chatID   int64
	newBlock uint64
}

type fakeStore struct {
	mu       sync.Mutex
	wallets  []domain.Wallet
	advanced []cursorUpdate
	listErr  error
}

func (f *fakeStore) ListAll(context.Context) ([]domain.Wallet, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Wallet(nil), f.wallets...), nil
}

func (f *fakeStore) AdvanceCursor(_ context.Context, address string, chatID int64, newBlock uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.advanced = append(f.advanced, cursorUpdate{address, chatID, newBlock})
	return nil
}

func (f *fakeStore) Add(_ context.Context, w domain.Wallet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wallets = append(f.wallets, w)
	return nil
}

func (f *fakeStore) Exists(_ context.Context, name string, chatID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, w := range f.wallets {
		if w.Name == name && w.ChatID == chatID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) Delete(_ context.Context, name string, chatID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, w := range f.wallets {
		if w.Name == name && w.ChatID == chatID {
			f.wallets = append(f.wallets[:i], f.wallets[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type fakeChain struct {
	mu       sync.Mutex
	items    []domain.ActivityItem
	fetchErr error
	valid    bool
	validErr error
	head     uint64
	cursors  []uint64
}

func (f *fakeChain) FetchSince(_ context.Context, _ string, cursor uint64) ([]domain.ActivityItem, error) {
	f.mu.Lock()
	f.cursors = append(f.cursors, cursor)
	f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.items, nil
}

func (f *fakeChain) ValidateAddress(context.Context, string) (bool, error) {
	return f.valid, f.validErr
}

func (f *fakeChain) CurrentHead(context.Context) (uint64, error) { return f.head, nil }

func (f *fakeChain) CloseIdleConnections() {}

type sentMsg struct {
	chatID int64
	text   string
}

type fakeSink struct {
	mu      sync.Mutex
	sent    []sentMsg
	sendErr error
}

func (f *fakeSink) Send(chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMsg{chatID, text})
	return f.sendErr
}

func fastConfig() Config {
	return Config{
		CycleInterval: time.Millisecond,
		WalletDelay:   time.Millisecond,
		DeliveryDelay: time.Millisecond,
		ErrorDelay:    time.Millisecond,
	}
}

func trackedWallet() domain.Wallet {
	return domain.Wallet{
		Name:        "main",
		Address:     "0x1111111111111111111111111111111111111111",
		ChatID:      7,
		CursorBlock: 100,
	}
}

func TestSweepDeliversAndAdvancesCursor(t *testing.T) {
	store := &fakeStore{wallets: []domain.Wallet{trackedWallet()}}
	sink := &fakeSink{}
	ch := &fakeChain{items: []domain.ActivityItem{
		{TxHash: "0x1", BlockHeight: 101, Transfers: nftTransfer()},
		{TxHash: "0x2", BlockHeight: 103},
		{TxHash: "0x3", BlockHeight: 103, Transfers: nftTransfer()},
	}}

	svc := New(store, ch, sink, fastConfig())
	if err := svc.sweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	if len(sink.sent) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(sink.sent))
	}
	if sink.sent[0].chatID != 7 {
		t.Errorf("notification sent to chat %d, want 7", sink.sent[0].chatID)
	}
	if len(ch.cursors) != 1 || ch.cursors[0] != 100 {
		t.Errorf("fetch cursors = %v, want [100]", ch.cursors)
	}
	if len(store.advanced) != 1 {
		t.Fatalf("expected 1 cursor advance, got %d", len(store.advanced))
	}
	if got := store.advanced[0].newBlock; got != 104 {
		t.Errorf("cursor advanced to %d, want 104", got)
	}
}

func TestSweepFetchErrorLeavesCursor(t *testing.T) {
	store := &fakeStore{wallets: []domain.Wallet{trackedWallet()}}
	sink := &fakeSink{}
	ch := &fakeChain{fetchErr: &chain.FetchError{
		Kind: chain.FetchNetwork,
		Op:   "token transfers",
		Err:  errors.New("connection refused"),
	}}

	svc := New(store, ch, sink, fastConfig())
	if err := svc.sweep(context.Background()); err != nil {
		t.Fatalf("sweep should isolate wallet failures, got %v", err)
	}

	if len(sink.sent) != 0 {
		t.Errorf("expected no notifications, got %d", len(sink.sent))
	}
	if len(store.advanced) != 0 {
		t.Errorf("cursor advanced on fetch error: %v", store.advanced)
	}
}

func TestSweepQuietWallet(t *testing.T) {
	store := &fakeStore{wallets: []domain.Wallet{trackedWallet()}}
	sink := &fakeSink{}
	ch := &fakeChain{}

	svc := New(store, ch, sink, fastConfig())
	for i := 0; i < 2; i++ {
		if err := svc.sweep(context.Background()); err != nil {
			t.Fatalf("sweep %d: %v", i, err)
		}
	}

	if len(sink.sent) != 0 {
		t.Errorf("quiet wallet produced %d notifications", len(sink.sent))
	}
	if len(store.advanced) != 0 {
		t.Errorf("quiet wallet advanced cursor: %v", store.advanced)
	}
	if len(ch.cursors) != 2 || ch.cursors[1] != 100 {
		t.Errorf("fetch cursors = %v, want [100 100]", ch.cursors)
	}
}

func TestSweepFilteredOnlyBatchStillAdvances(t *testing.T) {
	store := &fakeStore{wallets: []domain.Wallet{trackedWallet()}}
	sink := &fakeSink{}
	ch := &fakeChain{items: []domain.ActivityItem{
		{TxHash: "0x2", BlockHeight: 105},
	}}

	svc := New(store, ch, sink, fastConfig())
	if err := svc.sweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	if len(sink.sent) != 0 {
		t.Errorf("native-only batch produced %d notifications", len(sink.sent))
	}
	if len(store.advanced) != 1 || store.advanced[0].newBlock != 106 {
		t.Errorf("cursor advance = %v, want one advance to 106", store.advanced)
	}
}

func TestSweepDeliveryFailureStillAdvances(t *testing.T) {
	store := &fakeStore{wallets: []domain.Wallet{trackedWallet()}}
	sink := &fakeSink{sendErr: errors.New("chat not found")}
	ch := &fakeChain{items: []domain.ActivityItem{
		{TxHash: "0x1", BlockHeight: 101, Transfers: nftTransfer()},
	}}

	svc := New(store, ch, sink, fastConfig())
	if err := svc.sweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	if len(store.advanced) != 1 || store.advanced[0].newBlock != 102 {
		t.Errorf("cursor advance = %v, want one advance to 102", store.advanced)
	}
}

func TestRegisterWalletSeedsCursorAtHead(t *testing.T) {
	store := &fakeStore{}
	ch := &fakeChain{valid: true, head: 500}
	svc := New(store, ch, &fakeSink{}, fastConfig())

	w := trackedWallet()
	w.CursorBlock = 0
	if err := svc.RegisterWallet(context.Background(), w); err != nil {
		t.Fatalf("RegisterWallet: %v", err)
	}

	if len(store.wallets) != 1 {
		t.Fatalf("expected 1 stored wallet, got %d", len(store.wallets))
	}
	if got := store.wallets[0].CursorBlock; got != 500 {
		t.Errorf("cursor seeded at %d, want 500", got)
	}
}

func TestRegisterWalletRejectsMalformedAddress(t *testing.T) {
	svc := New(&fakeStore{}, &fakeChain{valid: true}, &fakeSink{}, fastConfig())

	w := trackedWallet()
	w.Address = "nonsense"
	if err := svc.RegisterWallet(context.Background(), w); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("err = %v, want ErrInvalidAddress", err)
	}
}

func TestRegisterWalletRejectsUnknownAddress(t *testing.T) {
	svc := New(&fakeStore{}, &fakeChain{valid: false}, &fakeSink{}, fastConfig())

	if err := svc.RegisterWallet(context.Background(), trackedWallet()); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("err = %v, want ErrInvalidAddress", err)
	}
}

func TestRegisterWalletRejectsDuplicate(t *testing.T) {
	store := &fakeStore{wallets: []domain.Wallet{trackedWallet()}}
	svc := New(store, &fakeChain{valid: true}, &fakeSink{}, fastConfig())

	if err := svc.RegisterWallet(context.Background(), trackedWallet()); !errors.Is(err, ErrDuplicateWallet) {
		t.Fatalf("err = %v, want ErrDuplicateWallet", err)
	}
}

func TestRemoveWalletNotFound(t *testing.T) {
	svc := New(&fakeStore{}, &fakeChain{}, &fakeSink{}, fastConfig())

	if err := svc.RemoveWallet(context.Background(), "ghost", 7); !errors.Is(err, ErrWalletNotFound) {
		t.Fatalf("err = %v, want ErrWalletNotFound", err)
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	svc := New(&fakeStore{}, &fakeChain{}, &fakeSink{}, fastConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Start(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
