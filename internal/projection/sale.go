package projection

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"marketScope/internal/model"
	"marketScope/internal/storage"
)

// ApplySale projects a settlement (buy or offer acceptance). The paired
// transfer event always immediately precedes the sale event in the same
// transaction; its activity entry at (txHash, logIndex-1) is required
// context and is rewritten into the sale entry.
func (h *Handlers) ApplySale(ctx context.Context, record model.LedgerRecord, data model.SaleEventData) error {
	contract := data.Nft

	if _, err := h.store.NFTs().Get(ctx, contract, data.TokenID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: nft %s/%d missing for sale %s", ErrConsistency, contract, data.TokenID, record.ID())
		}
		return fmt.Errorf("load nft: %w", err)
	}

	if record.LogIndex == 0 {
		return fmt.Errorf("%w: sale %s has no preceding log", ErrConsistency, record.ID())
	}
	entry, err := h.store.Activities().GetByTxLog(ctx, record.TxHash, record.LogIndex-1)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: transfer activity %s:%d missing for sale %s", ErrConsistency, record.TxHash, record.LogIndex-1, record.ID())
		}
		return fmt.Errorf("load preceding activity: %w", err)
	}

	currency, err := h.store.Currencies().Get(ctx, data.Currency)
	if err != nil {
		return fmt.Errorf("currency %s: %w", data.Currency, err)
	}
	amount, err := displayAmount(data.Amount, currency.Decimals)
	if err != nil {
		return fmt.Errorf("sale amount: %w", err)
	}

	entry.Event = model.ActivitySale
	entry.From = data.Seller
	entry.To = data.Buyer
	entry.Amount = amount
	entry.Currency = currency.Symbol
	if err := h.store.Activities().Upsert(ctx, entry); err != nil {
		return fmt.Errorf("update activity: %w", err)
	}

	txRecord := &model.TransactionRecord{
		TxHash:          record.TxHash,
		LogIndex:        record.LogIndex,
		ContractAddress: contract,
		TokenID:         data.TokenID,
		Seller:          data.Seller,
		Buyer:           data.Buyer,
		Amount:          amount,
		AmountUSD:       amount * currency.USDPrice,
		Currency:        currency.Symbol,
		Time:            record.BlockTime,
	}
	if err := h.store.Transactions().Upsert(ctx, txRecord); err != nil {
		return fmt.Errorf("record transaction: %w", err)
	}

	// Notify the passive side of the settlement.
	notification := &model.Notification{
		TxHash:          record.TxHash,
		LogIndex:        record.LogIndex,
		ContractAddress: contract,
		TokenID:         data.TokenID,
		Time:            record.BlockTime,
	}
	if record.Kind == model.KindOfferAccepted {
		notification.Recipient = data.Buyer
		notification.Type = model.NotificationOfferAccepted
	} else {
		notification.Recipient = data.Seller
		notification.Type = model.NotificationSold
	}
	if err := h.store.Notifications().Upsert(ctx, notification); err != nil {
		return fmt.Errorf("notify: %w", err)
	}

	if err := h.store.Bids().DeleteByBidder(ctx, contract, data.TokenID, data.Buyer); err != nil {
		return fmt.Errorf("purge buyer bids: %w", err)
	}

	if err := h.store.Collections().RecomputeStats(ctx, contract); err != nil {
		return fmt.Errorf("recompute stats: %w", err)
	}

	h.logger.Debug("sale applied",
		zap.String("contract", contract),
		zap.Uint64("token_id", data.TokenID),
		zap.Float64("amount", amount),
		zap.String("currency", currency.Symbol),
	)
	return nil
}
