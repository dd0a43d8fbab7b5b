package domain

// ZeroAddress is the Ethereum burn/mint address. A transfer whose sender
// is the zero address is a mint.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// AssetKind classifies one asset movement inside a transaction.
type AssetKind string

const (
	AssetKindERC20  AssetKind = "ERC20"
	AssetKindERC721 AssetKind = "ERC721"
)

// TransferDetail is one non-native asset movement bundled in a transaction.
type TransferDetail struct {
	Sender       string
	Receiver     string
	AssetAddress string
	AssetSymbol  string
	AssetName    string
	AssetKind    AssetKind
	TokenID      string
}

// ActivityItem is one normalized on-chain transaction touching a tracked
// wallet. TxHash is the identity key for deduplication. Items live for a
// single polling cycle and are discarded after delivery.
type ActivityItem struct {
	TxHash         string
	BlockHeight    uint64
	BlockTimestamp int64
	From           string
	To             string
	Success        bool
	NativeValue    float64
	NativeValueUSD float64
	FeeNative      float64
	FeeUSD         float64
	Transfers      []TransferDetail
}

// IsMint reports whether the transaction created the asset rather than
// moved it between holders.
func (a ActivityItem) IsMint() bool {
	return a.From == ZeroAddress
}
