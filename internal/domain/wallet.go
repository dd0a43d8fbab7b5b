package domain

// Wallet is one tracked address owned by a Telegram chat.
// (Name, ChatID) is unique per owner; the same address may be tracked
// by any number of owners independently.
type Wallet struct {
	Name        string `db:"name"`
	Address     string `db:"address"`
	ChatID      int64  `db:"chat_id"`
	CursorBlock uint64 `db:"last_block"`
}
