package tracker

import "github.com/v0idum/nft-transfers-tracker/internal/domain"

// FilterActivity drops items carrying no qualifying asset transfers.
// Such items are real transactions but not token activity from the
// user's point of view. Pure, order-preserving and idempotent; a no-op
// for the scan strategy (which filters at the source) and the primary
// filter for the reconcile strategy.
func FilterActivity(items []domain.ActivityItem) []domain.ActivityItem {
	filtered := make([]domain.ActivityItem, 0, len(items))
	for _, item := range items {
		if len(item.Transfers) == 0 {
			continue
		}
		filtered = append(filtered, item)
	}
	return filtered
}
