package web

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/hodlbook/internal/domain"
	"github.com/vadiminshakov/hodlbook/internal/services/pricer"
	"github.com/vadiminshakov/hodlbook/internal/services/tracker"
	"github.com/vadiminshakov/hodlbook/internal/storage/transactions"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) (*Server, *tracker.Tracker) {
	t.Helper()
	store, err := transactions.NewJSONStore(filepath.Join(t.TempDir(), "transactions.json"))
	require.NoError(t, err)

	p := pricer.NewStaticPricer(map[string]float64{"bitcoin": 150, "ethereum": 20})
	tr := tracker.New(zap.NewNop(), store, p, 3)
	return NewServer(zap.NewNop(), ":0", tr), tr
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func addTx(t *testing.T, s *Server, asset, action string, qty, price float64, date string) domain.Transaction {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/api/transactions", map[string]any{
		"asset": asset, "action": action, "quantity": qty, "unitPrice": price, "date": date,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var tx domain.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tx))
	return tx
}

// refreshSettled refreshes until no background refresh (triggered by
// mutations) supersedes the call.
func refreshSettled(t *testing.T, tr *tracker.Tracker) {
	t.Helper()
	require.Eventually(t, func() bool {
		_, err := tr.Refresh(context.Background())
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)
}

func TestServer_Health(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_Index(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "HODLBOOK")
}

func TestServer_TransactionsLifecycle(t *testing.T) {
	s, _ := newTestServer(t)

	first := addTx(t, s, "Bitcoin", "buy", 1, 100, "2024-01-01")
	second := addTx(t, s, "bitcoin", "sell", 0.5, 200, "2024-01-10")
	assert.Equal(t, "bitcoin", first.Asset)

	rec := do(t, s, http.MethodGet, "/api/transactions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var txs []domain.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &txs))
	require.Len(t, txs, 2)
	assert.Equal(t, second.ID, txs[0].ID, "newest first")

	rec = do(t, s, http.MethodDelete, "/api/transactions/"+second.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodDelete, "/api/transactions/"+second.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodDelete, "/api/transactions", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/transactions", nil)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestServer_AddTransactionValidation(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name string
		body any
	}{
		{"empty asset", map[string]any{"asset": "", "action": "buy", "quantity": 1, "unitPrice": 1}},
		{"bad action", map[string]any{"asset": "btc", "action": "hold", "quantity": 1, "unitPrice": 1}},
		{"zero quantity", map[string]any{"asset": "btc", "action": "buy", "quantity": 0, "unitPrice": 1}},
		{"negative price", map[string]any{"asset": "btc", "action": "buy", "quantity": 1, "unitPrice": -1}},
		{"bad date", map[string]any{"asset": "btc", "action": "buy", "quantity": 1, "unitPrice": 1, "date": "yesterday"}},
		{"not json", "{"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/transactions", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "error")
		})
	}
}

func TestServer_Portfolio(t *testing.T) {
	s, tr := newTestServer(t)
	addTx(t, s, "bitcoin", "buy", 1, 100, "2024-01-01")
	addTx(t, s, "bitcoin", "buy", 1, 120, "2024-01-02")
	addTx(t, s, "bitcoin", "sell", 1, 130, "2024-01-03")

	refreshSettled(t, tr)

	rec := do(t, s, http.MethodGet, "/api/portfolio", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp portfolioResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	btc, ok := resp.Portfolio.Asset("bitcoin")
	require.True(t, ok)
	assert.Equal(t, 1.0, btc.QuantityHeld)
	assert.Equal(t, 120.0, btc.AverageCost)
	assert.Equal(t, 150.0, btc.CurrentValue)
	assert.Equal(t, 30.0, btc.UnrealizedPnl)
	assert.Equal(t, 30.0, btc.RealizedPnl)
	require.Contains(t, resp.Positions, "bitcoin")
	assert.Len(t, resp.Positions["bitcoin"].OpenLots, 1)

	rec = do(t, s, http.MethodGet, "/api/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var hist historyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hist))
	require.Len(t, hist.History, 3)
	for _, p := range hist.History {
		assert.Equal(t, 150.0, p.TotalValue)
	}
}

func TestServer_PortfolioRefreshesOnFirstRequest(t *testing.T) {
	s, tr := newTestServer(t)
	require.Nil(t, tr.Latest())

	rec := do(t, s, http.MethodGet, "/api/portfolio", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, tr.Latest())
}

func TestServer_CoinChart(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/coins/bitcoin/chart?days=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var chart tracker.CoinChart
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &chart))
	assert.Equal(t, "bitcoin", chart.Asset)
	assert.Len(t, chart.Points, 5)

	rec = do(t, s, http.MethodGet, "/api/coins/bitcoin/chart?days=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/coins/nocoin/chart", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestServer_Stream(t *testing.T) {
	s, tr := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	report, err := tr.Refresh(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/stream", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readEvent := func() (id, event, data string) {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			switch {
			case line == "":
				if event != "" {
					return
				}
			case strings.HasPrefix(line, "id: "):
				id = strings.TrimPrefix(line, "id: ")
			case strings.HasPrefix(line, "event: "):
				event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			}
		}
	}

	id, event, data := readEvent()
	assert.Equal(t, "report", event)
	assert.Equal(t, fmt.Sprintf("%d-1", report.Epoch), id)
	var got tracker.Report
	require.NoError(t, json.Unmarshal([]byte(data), &got))
	assert.Equal(t, report.Generation, got.Generation)

	_, err = tr.Refresh(context.Background())
	require.NoError(t, err)

	id, event, _ = readEvent()
	assert.Equal(t, "report", event)
	assert.Equal(t, fmt.Sprintf("%d-2", report.Epoch), id)
}

func TestServer_StreamReplaysAfterRestart(t *testing.T) {
	s, tr := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	report, err := tr.Refresh(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/stream", nil)
	require.NoError(t, err)
	// id from a previous server process with a much higher generation
	req.Header.Set("Last-Event-ID", fmt.Sprintf("%d-50", report.Epoch-1))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("id: %d-1\n", report.Epoch), line)
}

// racingPortfolio supersedes the first refresh and publishes a newer report
// shortly after.
type racingPortfolio struct {
	Portfolio

	mu      sync.Mutex
	latestR *tracker.Report
	reports chan *tracker.Report
}

func (p *racingPortfolio) Latest() *tracker.Report {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latestR
}

func (p *racingPortfolio) Subscribe() (<-chan *tracker.Report, func()) {
	return p.reports, func() {}
}

func (p *racingPortfolio) Refresh(context.Context) (*tracker.Report, error) {
	go func() {
		time.Sleep(20 * time.Millisecond)
		r := &tracker.Report{Epoch: 1, Generation: 2, Snapshot: domain.NewPortfolioSnapshot()}
		p.mu.Lock()
		p.latestR = r
		p.mu.Unlock()
		p.reports <- r
	}()
	return nil, tracker.ErrSuperseded
}

func TestServer_PortfolioWaitsForNewerRefresh(t *testing.T) {
	p := &racingPortfolio{reports: make(chan *tracker.Report, 1)}
	s := NewServer(zap.NewNop(), ":0", p)

	rec := do(t, s, http.MethodGet, "/api/portfolio", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp portfolioResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint64(2), resp.Generation)
}

func TestParseLastEventID(t *testing.T) {
	assert.Equal(t, eventID{epoch: 100, gen: 7}, parseLastEventID("100-7", ""))
	assert.Equal(t, eventID{epoch: 100, gen: 9}, parseLastEventID("", "100-9"))
	assert.Equal(t, eventID{epoch: 100, gen: 7}, parseLastEventID("100-7", "100-9"))
	assert.True(t, parseLastEventID("7", "").IsZero())
	assert.True(t, parseLastEventID("x-1", "").IsZero())
	assert.True(t, parseLastEventID("", "").IsZero())
}

func TestEventID_Precedes(t *testing.T) {
	id := eventID{epoch: 100, gen: 5}
	assert.True(t, id.Precedes(&tracker.Report{Epoch: 100, Generation: 6}))
	assert.False(t, id.Precedes(&tracker.Report{Epoch: 100, Generation: 5}))
	assert.True(t, id.Precedes(&tracker.Report{Epoch: 200, Generation: 1}), "new server process")
	assert.True(t, eventID{}.Precedes(&tracker.Report{Epoch: 100, Generation: 1}))
	assert.Equal(t, "100-5", id.String())
}
