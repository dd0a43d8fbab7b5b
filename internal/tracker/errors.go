package tracker

// ValidationError is a registration failure the caller should surface to
// the user verbatim. Never retried automatically.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

var (
	ErrInvalidAddress  = &ValidationError{"invalid wallet address"}
	ErrDuplicateWallet = &ValidationError{"wallet already added"}
	ErrWalletNotFound  = &ValidationError{"wallet not tracked"}
)
