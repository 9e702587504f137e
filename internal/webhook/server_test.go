package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"marketScope/internal/model"
)

type fakeIngester struct {
	header model.BlockHeader
	logs   []model.RawLog
	result int
	err    error
	calls  int
}

func (f *fakeIngester) IngestBatch(_ context.Context, header model.BlockHeader, logs []model.RawLog) (int, error) {
	f.calls++
	f.header = header
	f.logs = logs
	return f.result, f.err
}

func postLogs(t *testing.T, server *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook/logs", strings.NewReader(body))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleLogs(t *testing.T) {
	ingester := &fakeIngester{result: 2}
	server := NewServer(ingester, nil)

	body := `{
		"block": {"number": 100, "hash": "0xblock", "timestamp": 1700000000},
		"logs": [
			{"address": "0x1111111111111111111111111111111111111111", "topics": ["0xaa"], "data": "0x", "tx_hash": "0xf00d", "log_index": 0},
			{"address": "0x1111111111111111111111111111111111111111", "topics": ["0xbb"], "data": "0x", "tx_hash": "0xf00d", "log_index": 1}
		]
	}`
	rec := postLogs(t, server, body)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ingester.calls != 1 {
		t.Fatalf("calls = %d, want 1", ingester.calls)
	}
	if ingester.header.Number != 100 {
		t.Fatalf("block = %d, want 100", ingester.header.Number)
	}
	if len(ingester.logs) != 2 {
		t.Fatalf("logs = %d, want 2", len(ingester.logs))
	}

	var resp map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response body: %v", err)
	}
	if resp["ingested"] != 2 {
		t.Fatalf("ingested = %d, want 2", resp["ingested"])
	}
}

func TestHandleLogsMethodNotAllowed(t *testing.T) {
	ingester := &fakeIngester{}
	server := NewServer(ingester, nil)

	req := httptest.NewRequest(http.MethodGet, "/webhook/logs", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
	if ingester.calls != 0 {
		t.Fatalf("ingester called on GET")
	}
}

func TestHandleLogsInvalidBody(t *testing.T) {
	ingester := &fakeIngester{}
	server := NewServer(ingester, nil)

	rec := postLogs(t, server, "{not json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if ingester.calls != 0 {
		t.Fatalf("ingester called with invalid body")
	}
}

func TestHandleLogsIngestError(t *testing.T) {
	ingester := &fakeIngester{err: errors.New("decode log 100:1: bad topics")}
	server := NewServer(ingester, nil)

	rec := postLogs(t, server, `{"block": {"number": 100}, "logs": []}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}
