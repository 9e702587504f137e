package projection

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"marketScope/internal/model"
	"marketScope/internal/storage"
)

// ApplyPricesSet synchronizes listing prices for a set of tokens.
// Ownership and activity history are untouched.
func (h *Handlers) ApplyPricesSet(ctx context.Context, record model.LedgerRecord, data model.PricesSetEventData) error {
	contract := data.Nft

	currency, err := h.store.Currencies().Get(ctx, data.Currency)
	if err != nil {
		return fmt.Errorf("currency %s: %w", data.Currency, err)
	}
	price, err := displayAmount(data.Price, currency.Decimals)
	if err != nil {
		return fmt.Errorf("listing price: %w", err)
	}

	for _, tokenID := range data.TokenIDs {
		listing := &model.Listing{
			ContractAddress: contract,
			TokenID:         tokenID,
			Price:           price,
			Currency:        data.Currency,
			PriceUSD:        price * currency.USDPrice,
		}
		if err := h.store.Listings().Upsert(ctx, listing); err != nil {
			return fmt.Errorf("upsert listing %d: %w", tokenID, err)
		}
	}

	if err := h.store.Collections().RecomputeStats(ctx, contract); err != nil {
		return fmt.Errorf("recompute stats: %w", err)
	}

	h.logger.Debug("prices set",
		zap.String("contract", contract),
		zap.Int("tokens", len(data.TokenIDs)),
		zap.Float64("price", price),
	)
	return nil
}

// ApplyPriceRemoved clears a token's active listing. Stats are recomputed
// even when the listing is already gone: a redelivered record may follow a
// crash between the listing delete and the recompute, and the floor must
// not stay stale. The activity entry is appended when a listing was
// removed now, or kept when an earlier application already wrote it.
func (h *Handlers) ApplyPriceRemoved(ctx context.Context, record model.LedgerRecord, data model.PriceRemovedEventData) error {
	contract := data.Nft

	removed := false
	if _, err := h.store.Listings().Get(ctx, contract, data.TokenID); err == nil {
		removed = true
	} else if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("load listing: %w", err)
	}

	if removed {
		if err := h.store.Listings().Delete(ctx, contract, data.TokenID); err != nil {
			return fmt.Errorf("delete listing: %w", err)
		}
	}

	appendEntry := removed
	if !appendEntry {
		if _, err := h.store.Activities().GetByTxLog(ctx, record.TxHash, record.LogIndex); err == nil {
			appendEntry = true
		} else if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("load activity: %w", err)
		}
	}
	if appendEntry {
		entry := &model.ActivityEntry{
			TxHash:          record.TxHash,
			LogIndex:        record.LogIndex,
			ContractAddress: contract,
			TokenID:         data.TokenID,
			Event:           model.ActivityPriceRemoved,
			Time:            record.BlockTime,
		}
		if err := h.store.Activities().Upsert(ctx, entry); err != nil {
			return fmt.Errorf("append activity: %w", err)
		}
	}

	if err := h.store.Collections().RecomputeStats(ctx, contract); err != nil {
		return fmt.Errorf("recompute stats: %w", err)
	}

	h.logger.Debug("price removed",
		zap.String("contract", contract),
		zap.Uint64("token_id", data.TokenID),
		zap.Bool("listing_removed", removed),
	)
	return nil
}
