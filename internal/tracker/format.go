package tracker

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/v0idum/nft-transfers-tracker/internal/domain"
)

// Explorer and marketplace link templates.
const (
	explorerTxURL      = "https://etherscan.io/tx/%s"
	explorerAddressURL = "https://etherscan.io/address/%s"
	explorerTokenURL   = "https://etherscan.io/token/%s"
	openseaAssetURL    = "https://opensea.io/assets/%s/%s"
)

const timestampLayout = "2006-01-02 15:04:05"

// FormatNotification renders one Telegram HTML message for one activity
// item. Pure: same item and wallet always produce the same text.
func FormatNotification(item domain.ActivityItem, wallet domain.Wallet) string {
	header := "New Transfer!"
	if item.IsMint() {
		header = "New Mint!"
	}

	status := "Success"
	if !item.Success {
		status = "Failed"
	}

	lines := []string{
		fmt.Sprintf("Wallet tracked: %s", link(fmt.Sprintf(explorerAddressURL, wallet.Address), wallet.Name)),
		link(fmt.Sprintf(explorerTxURL, item.TxHash), header),
		fmt.Sprintf("From➡: %s", link(fmt.Sprintf(explorerAddressURL, item.From), item.From)),
		fmt.Sprintf("To⬅: %s", link(fmt.Sprintf(explorerAddressURL, item.To), item.To)),
	}

	for _, t := range item.Transfers {
		lines = append(lines, transferLine(t))
	}

	lines = append(lines,
		fmt.Sprintf("Status: %s", status),
		fmt.Sprintf("Timestamp: %s", time.Unix(item.BlockTimestamp, 0).Format(timestampLayout)),
		fmt.Sprintf("Transaction Value💰: %s Ether ($%s)", native(item.NativeValue), usd(item.NativeValueUSD)),
		fmt.Sprintf("Transaction Fee💲: %s Ether ($%s)", native(item.FeeNative), usd(item.FeeUSD)),
	)

	return strings.Join(lines, "\n\n")
}

// transferLine renders one asset movement. NFTs link to the marketplace
// asset page, fungible assets to the explorer token page.
func transferLine(t domain.TransferDetail) string {
	name := assetDisplayName(t)
	if t.AssetKind == domain.AssetKindERC721 && t.TokenID != "" {
		label := fmt.Sprintf("%s #%s", name, t.TokenID)
		return fmt.Sprintf("NFT: %s", link(fmt.Sprintf(openseaAssetURL, t.AssetAddress, t.TokenID), label))
	}
	label := name
	if t.AssetSymbol != "" {
		label = fmt.Sprintf("%s (%s)", name, t.AssetSymbol)
	}
	return fmt.Sprintf("Asset: %s", link(fmt.Sprintf(explorerTokenURL, t.AssetAddress), label))
}

// assetDisplayName falls back to the contract address when the on-chain
// name is empty or the upstream "-" placeholder.
func assetDisplayName(t domain.TransferDetail) string {
	if t.AssetName == "" || t.AssetName == "-" {
		return t.AssetAddress
	}
	return t.AssetName
}

func link(url, label string) string {
	return fmt.Sprintf(`<a href="%s">%s</a>`, url, html.EscapeString(label))
}

func native(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(5)
}

func usd(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
