// Package webhook is the HTTP ingestion boundary. It accepts push batches
// of raw logs with their enclosing block header; routing and auth live in
// front of it and are not this system's concern.
package webhook

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"marketScope/internal/model"
)

// Ingester consumes one (blockHeader, logs[]) batch.
type Ingester interface {
	IngestBatch(ctx context.Context, header model.BlockHeader, logs []model.RawLog) (int, error)
}

// Batch is the webhook request body.
type Batch struct {
	Block model.BlockHeader `json:"block"`
	Logs  []model.RawLog    `json:"logs"`
}

// Server handles webhook pushes.
type Server struct {
	ingester Ingester
	logger   *zap.Logger
}

func NewServer(ingester Ingester, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{ingester: ingester, logger: logger}
}

// Handler returns the webhook routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook/logs", s.handleLogs)
	return mux
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var batch Batch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	ingested, err := s.ingester.IngestBatch(r.Context(), batch.Block, batch.Logs)
	if err != nil {
		s.logger.Warn("ingest failed",
			zap.Uint64("block", batch.Block.Number),
			zap.Error(err),
		)
		// The push collaborator retries per its own policy.
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"ingested": ingested})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
