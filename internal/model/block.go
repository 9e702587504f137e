package model

// BlockHeader is the enclosing block context delivered with a webhook batch.
type BlockHeader struct {
	Number    uint64 `json:"number"`
	Hash      string `json:"hash"`
	Timestamp uint64 `json:"timestamp"`
}

// RawLog is one undecoded chain log as delivered by the push collaborator.
type RawLog struct {
	Address  string   `json:"address"`
	Topics   []string `json:"topics"`
	Data     string   `json:"data"`
	TxHash   string   `json:"tx_hash"`
	LogIndex uint64   `json:"log_index"`
}
