package model

// TransferEventData is the decoded ERC-721 Transfer payload.
type TransferEventData struct {
	Nft     string `json:"nft"`
	From    string `json:"from"`
	To      string `json:"to"`
	TokenID uint64 `json:"token_id"`
}

// SaleEventData is the decoded Bought / OfferAccepted payload.
// Amount is the raw on-chain integer amount as a decimal string.
type SaleEventData struct {
	Nft      string `json:"nft"`
	Seller   string `json:"seller"`
	Buyer    string `json:"buyer"`
	TokenID  uint64 `json:"token_id"`
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
}

// PricesSetEventData is the decoded bulk PricesSet payload.
type PricesSetEventData struct {
	Nft      string   `json:"nft"`
	TokenIDs []uint64 `json:"token_ids"`
	Price    string   `json:"price"`
	Currency string   `json:"currency"`
}

// PriceRemovedEventData is the decoded PriceRemoved payload.
type PriceRemovedEventData struct {
	Nft     string `json:"nft"`
	TokenID uint64 `json:"token_id"`
}

// CloneEventData is the decoded Cloned payload. TokenID is the new token,
// OriginTokenID the template it was cloned from.
type CloneEventData struct {
	Nft           string `json:"nft"`
	Owner         string `json:"owner"`
	OriginTokenID uint64 `json:"origin_token_id"`
	TokenID       uint64 `json:"token_id"`
}
