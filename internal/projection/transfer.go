package projection

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"marketScope/internal/model"
	"marketScope/internal/nft"
	"marketScope/internal/storage"
)

// ApplyTransfer projects an ownership change. A transfer to the burn
// address is terminal: the token and everything referencing it are
// removed so no dangling references remain.
func (h *Handlers) ApplyTransfer(ctx context.Context, record model.LedgerRecord, data model.TransferEventData) error {
	contract := data.Nft

	if !nft.IsBurnAddress(data.From) {
		if err := h.store.Users().Ensure(ctx, data.From); err != nil {
			return fmt.Errorf("ensure sender: %w", err)
		}
	}
	if !nft.IsBurnAddress(data.To) {
		if err := h.store.Users().Ensure(ctx, data.To); err != nil {
			return fmt.Errorf("ensure recipient: %w", err)
		}
	}

	if nft.IsBurnAddress(data.To) {
		return h.burn(ctx, contract, data.TokenID)
	}

	// A transfer invalidates any active ask on the token.
	if err := h.store.Listings().Delete(ctx, contract, data.TokenID); err != nil {
		return fmt.Errorf("clear listing: %w", err)
	}

	token, err := h.store.NFTs().Get(ctx, contract, data.TokenID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("load nft: %w", err)
		}
		token = &model.NFT{ContractAddress: contract, TokenID: data.TokenID}
	}

	token.Owner = data.To
	if !token.Minted {
		token.Minted = true
		token.MintTxHash = record.TxHash
	}
	if err := h.store.NFTs().Upsert(ctx, token); err != nil {
		return fmt.Errorf("upsert nft: %w", err)
	}

	if !nft.IsBurnAddress(data.From) {
		entry := &model.ActivityEntry{
			TxHash:          record.TxHash,
			LogIndex:        record.LogIndex,
			ContractAddress: contract,
			TokenID:         data.TokenID,
			Event:           model.ActivityTransfer,
			From:            data.From,
			To:              data.To,
			Time:            record.BlockTime,
		}
		if err := h.store.Activities().Upsert(ctx, entry); err != nil {
			return fmt.Errorf("append activity: %w", err)
		}

		// The new owner's own bids on the token are now meaningless.
		if err := h.store.Bids().DeleteByBidder(ctx, contract, data.TokenID, data.To); err != nil {
			return fmt.Errorf("purge self bids: %w", err)
		}
	}

	if err := h.store.Collections().RecomputeStats(ctx, contract); err != nil {
		return fmt.Errorf("recompute stats: %w", err)
	}

	h.logger.Debug("transfer applied",
		zap.String("contract", contract),
		zap.Uint64("token_id", data.TokenID),
		zap.String("to", data.To),
	)
	return nil
}

// burn cascade-deletes everything referencing the token, refreshes the
// collection aggregates, then removes the token itself.
func (h *Handlers) burn(ctx context.Context, contract string, tokenID uint64) error {
	if err := h.store.Bids().DeleteForToken(ctx, contract, tokenID); err != nil {
		return fmt.Errorf("delete bids: %w", err)
	}
	if err := h.store.Activities().DeleteForToken(ctx, contract, tokenID); err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	if err := h.store.Listings().Delete(ctx, contract, tokenID); err != nil {
		return fmt.Errorf("delete listing: %w", err)
	}
	if err := h.store.Favorites().DeleteForToken(ctx, contract, tokenID); err != nil {
		return fmt.Errorf("delete favorites: %w", err)
	}
	if err := h.store.Notifications().DeleteForToken(ctx, contract, tokenID); err != nil {
		return fmt.Errorf("delete notifications: %w", err)
	}
	if err := h.store.Collections().RecomputeStats(ctx, contract); err != nil {
		return fmt.Errorf("recompute stats: %w", err)
	}
	if err := h.store.NFTs().Delete(ctx, contract, tokenID); err != nil {
		return fmt.Errorf("delete nft: %w", err)
	}

	h.logger.Info("token burned",
		zap.String("contract", contract),
		zap.Uint64("token_id", tokenID),
	)
	return nil
}
