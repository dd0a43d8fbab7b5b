package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/v0idum/nft-transfers-tracker/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "wallets.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testWallet() domain.Wallet {
	return domain.Wallet{
		Name:        "main",
		Address:     "0x1111111111111111111111111111111111111111",
		ChatID:      7,
		CursorBlock: 100,
	}
}

func TestAddAndListAll(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Add(ctx, testWallet()); err != nil {
		t.Fatalf("Add: %v", err)
	}
	other := testWallet()
	other.Name = "cold"
	other.ChatID = 9
	if err := store.Add(ctx, other); err != nil {
		t.Fatalf("Add: %v", err)
	}

	wallets, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(wallets) != 2 {
		t.Fatalf("expected 2 wallets, got %d", len(wallets))
	}
}

func TestListByChat(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Add(ctx, testWallet()); err != nil {
		t.Fatalf("Add: %v", err)
	}
	other := testWallet()
	other.ChatID = 9
	if err := store.Add(ctx, other); err != nil {
		t.Fatalf("Add: %v", err)
	}

	wallets, err := store.ListByChat(ctx, 7)
	if err != nil {
		t.Fatalf("ListByChat: %v", err)
	}
	if len(wallets) != 1 || wallets[0].ChatID != 7 {
		t.Fatalf("ListByChat(7) = %v, want one wallet for chat 7", wallets)
	}
}

func TestAddRejectsDuplicateNamePerChat(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Add(ctx, testWallet()); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := store.Add(ctx, testWallet()); err == nil {
		t.Fatal("duplicate (name, chat_id) insert should fail")
	}

	// Same name under a different chat is fine.
	other := testWallet()
	other.ChatID = 9
	if err := store.Add(ctx, other); err != nil {
		t.Fatalf("same name in another chat should insert: %v", err)
	}
}

func TestExists(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ok, err := store.Exists(ctx, "main", 7)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if ok {
		t.Fatal("empty store reports wallet as existing")
	}

	if err := store.Add(ctx, testWallet()); err != nil {
		t.Fatalf("Add: %v", err)
	}

	ok, err = store.Exists(ctx, "main", 7)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !ok {
		t.Fatal("stored wallet not found")
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Add(ctx, testWallet()); err != nil {
		t.Fatalf("Add: %v", err)
	}

	removed, err := store.Delete(ctx, "main", 7)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !removed {
		t.Fatal("Delete reported no row removed")
	}

	removed, err = store.Delete(ctx, "main", 7)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if removed {
		t.Fatal("second Delete reported a removed row")
	}
}

func TestAdvanceCursorMonotonic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	w := testWallet()

	if err := store.Add(ctx, w); err != nil {
		t.Fatalf("Add: %v", err)
	}

	cursor := func() uint64 {
		t.Helper()
		wallets, err := store.ListAll(ctx)
		if err != nil {
			t.Fatalf("ListAll: %v", err)
		}
		if len(wallets) != 1 {
			t.Fatalf("expected 1 wallet, got %d", len(wallets))
		}
		return wallets[0].CursorBlock
	}

	if err := store.AdvanceCursor(ctx, w.Address, w.ChatID, 104); err != nil {
		t.Fatalf("AdvanceCursor: %v", err)
	}
	if got := cursor(); got != 104 {
		t.Fatalf("cursor = %d, want 104", got)
	}

	// Stale and equal updates are silent no-ops.
	for _, stale := range []uint64{104, 90} {
		if err := store.AdvanceCursor(ctx, w.Address, w.ChatID, stale); err != nil {
			t.Fatalf("AdvanceCursor(%d): %v", stale, err)
		}
		if got := cursor(); got != 104 {
			t.Fatalf("cursor moved backwards to %d after update to %d", got, stale)
		}
	}
}
