package projection

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"marketScope/internal/model"
	"marketScope/internal/storage"
)

// ApplyClone materializes a token cloned from an origin template. The new
// token inherits the origin's metadata when the origin is known.
func (h *Handlers) ApplyClone(ctx context.Context, record model.LedgerRecord, data model.CloneEventData) error {
	contract := data.Nft

	if err := h.store.Users().Ensure(ctx, data.Owner); err != nil {
		return fmt.Errorf("ensure owner: %w", err)
	}

	token := &model.NFT{
		ContractAddress: contract,
		TokenID:         data.TokenID,
		Owner:           data.Owner,
		Minted:          true,
		MintTxHash:      record.TxHash,
	}
	origin, err := h.store.NFTs().Get(ctx, contract, data.OriginTokenID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("load origin: %w", err)
	}
	if origin != nil {
		token.Name = origin.Name
		token.TokenURI = origin.TokenURI
	}
	if err := h.store.NFTs().Upsert(ctx, token); err != nil {
		return fmt.Errorf("upsert clone: %w", err)
	}

	entry := &model.ActivityEntry{
		TxHash:          record.TxHash,
		LogIndex:        record.LogIndex,
		ContractAddress: contract,
		TokenID:         data.TokenID,
		Event:           model.ActivityClone,
		To:              data.Owner,
		Time:            record.BlockTime,
	}
	if err := h.store.Activities().Upsert(ctx, entry); err != nil {
		return fmt.Errorf("append activity: %w", err)
	}

	if err := h.store.Collections().RecomputeStats(ctx, contract); err != nil {
		return fmt.Errorf("recompute stats: %w", err)
	}

	h.logger.Debug("clone applied",
		zap.String("contract", contract),
		zap.Uint64("origin", data.OriginTokenID),
		zap.Uint64("token_id", data.TokenID),
	)
	return nil
}
