package chain

import (
	"context"
	"strings"

	"github.com/v0idum/nft-transfers-tracker/internal/clients_api/bitquery"
	"github.com/v0idum/nft-transfers-tracker/internal/clients_api/etherscan"
	"github.com/v0idum/nft-transfers-tracker/internal/domain"
)

// ReconcileStrategy lists every transaction touching the address above
// the cursor, then reconciles each with its currency transfers. Only
// token-class transfers whose symbol is not the native/wrapped currency
// are attached; items keep flowing with empty transfer lists and the
// activity filter downstream drops them.
type ReconcileStrategy struct {
	indexer  *bitquery.Client
	explorer *etherscan.Client
}

func NewReconcileStrategy(indexer *bitquery.Client, explorer *etherscan.Client) *ReconcileStrategy {
	return &ReconcileStrategy{indexer: indexer, explorer: explorer}
}

// nativeSymbols are asset symbols that never count as token activity.
var nativeSymbols = map[string]bool{
	"ETH":  true,
	"WETH": true,
}

func qualifies(t bitquery.Transfer) bool {
	switch strings.ToUpper(t.Currency.TokenType) {
	case "ERC20", "ERC721":
	default:
		return false
	}
	return !nativeSymbols[strings.ToUpper(t.Currency.Symbol)]
}

func assetKind(tokenType string) domain.AssetKind {
	if strings.EqualFold(tokenType, "ERC721") {
		return domain.AssetKindERC721
	}
	return domain.AssetKindERC20
}

func (s *ReconcileStrategy) FetchSince(ctx context.Context, address string, cursor uint64) ([]domain.ActivityItem, error) {
	txs, err := s.indexer.AddressTransactions(ctx, address, cursor)
	if err != nil {
		return nil, wrapFetchErr("address_txs", err)
	}

	var items []domain.ActivityItem
	for _, tx := range txs {
		transfers, err := s.indexer.TransactionTransfers(ctx, tx.Hash)
		if err != nil {
			return nil, wrapFetchErr("tx_transfers", err)
		}

		var details []domain.TransferDetail
		for _, t := range transfers {
			if !qualifies(t) {
				continue
			}
			details = append(details, domain.TransferDetail{
				Sender:       t.Sender.Address,
				Receiver:     t.Receiver.Address,
				AssetAddress: t.Currency.Address,
				AssetSymbol:  t.Currency.Symbol,
				AssetName:    t.Currency.Name,
				AssetKind:    assetKind(t.Currency.TokenType),
			})
		}

		items = append(items, domain.ActivityItem{
			TxHash:         tx.Hash,
			BlockHeight:    tx.Block.Height,
			BlockTimestamp: tx.Block.Timestamp.Unixtime,
			From:           tx.Sender.Address,
			To:             tx.To.Address,
			Success:        tx.Success,
			NativeValue:    tx.Value,
			NativeValueUSD: tx.USDValue,
			FeeNative:      tx.Fee,
			FeeUSD:         tx.USDFee,
			Transfers:      details,
		})
	}
	return items, nil
}

func (s *ReconcileStrategy) ValidateAddress(ctx context.Context, address string) (bool, error) {
	ok, err := s.explorer.AddressExists(ctx, address)
	if err != nil {
		return false, wrapFetchErr("address_check", err)
	}
	return ok, nil
}

func (s *ReconcileStrategy) CurrentHead(ctx context.Context) (uint64, error) {
	head, err := s.explorer.BlockNumber(ctx)
	if err != nil {
		return 0, wrapFetchErr("block_number", err)
	}
	return head, nil
}

func (s *ReconcileStrategy) CloseIdleConnections() {
	s.indexer.CloseIdleConnections()
	s.explorer.CloseIdleConnections()
}
