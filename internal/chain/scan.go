package chain

import (
	"context"
	"fmt"
	"strconv"

	"github.com/v0idum/nft-transfers-tracker/internal/clients_api/bitquery"
	"github.com/v0idum/nft-transfers-tracker/internal/clients_api/etherscan"
	"github.com/v0idum/nft-transfers-tracker/internal/domain"
)

// ScanStrategy asks the explorer for NFT transfer events directly and
// enriches each event with fee/value figures from the indexer. Filtering
// happens at the source: events with token ID "0" (native or self
// transfers reported by the explorer) never become activity items.
type ScanStrategy struct {
	explorer *etherscan.Client
	indexer  *bitquery.Client
}

func NewScanStrategy(explorer *etherscan.Client, indexer *bitquery.Client) *ScanStrategy {
	return &ScanStrategy{explorer: explorer, indexer: indexer}
}

func (s *ScanStrategy) FetchSince(ctx context.Context, address string, cursor uint64) ([]domain.ActivityItem, error) {
	events, err := s.explorer.TokenNFTTransfers(ctx, address, cursor+1)
	if err != nil {
		return nil, wrapFetchErr("nft_transfers", err)
	}

	var items []domain.ActivityItem
	for _, ev := range events {
		if ev.TokenID == "0" {
			continue
		}

		height, err := strconv.ParseUint(ev.BlockNumber, 10, 64)
		if err != nil {
			return nil, wrapFetchErr("nft_transfers", fmt.Errorf("%w: bad block number %q", etherscan.ErrEnvelope, ev.BlockNumber))
		}
		timestamp, err := strconv.ParseInt(ev.TimeStamp, 10, 64)
		if err != nil {
			return nil, wrapFetchErr("nft_transfers", fmt.Errorf("%w: bad timestamp %q", etherscan.ErrEnvelope, ev.TimeStamp))
		}

		fees, err := s.indexer.TransactionFees(ctx, ev.Hash)
		if err != nil {
			return nil, wrapFetchErr("tx_fees", err)
		}

		items = append(items, domain.ActivityItem{
			TxHash:         ev.Hash,
			BlockHeight:    height,
			BlockTimestamp: timestamp,
			From:           ev.From,
			To:             ev.To,
			Success:        true, // the explorer lists executed transfers only
			NativeValue:    fees.Value,
			NativeValueUSD: fees.USDValue,
			FeeNative:      fees.Fee,
			FeeUSD:         fees.USDFee,
			Transfers: []domain.TransferDetail{{
				Sender:       ev.From,
				Receiver:     ev.To,
				AssetAddress: ev.ContractAddress,
				AssetSymbol:  ev.TokenSymbol,
				AssetName:    ev.TokenName,
				AssetKind:    domain.AssetKindERC721,
				TokenID:      ev.TokenID,
			}},
		})
	}
	return items, nil
}

func (s *ScanStrategy) ValidateAddress(ctx context.Context, address string) (bool, error) {
	ok, err := s.explorer.AddressExists(ctx, address)
	if err != nil {
		return false, wrapFetchErr("address_check", err)
	}
	return ok, nil
}

func (s *ScanStrategy) CurrentHead(ctx context.Context) (uint64, error) {
	head, err := s.explorer.BlockNumber(ctx)
	if err != nil {
		return 0, wrapFetchErr("block_number", err)
	}
	return head, nil
}

func (s *ScanStrategy) CloseIdleConnections() {
	s.explorer.CloseIdleConnections()
	s.indexer.CloseIdleConnections()
}
