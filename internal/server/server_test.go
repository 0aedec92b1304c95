package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/tickerwatch/internal/app"
	"github.com/bobmcallan/tickerwatch/internal/common"
	"github.com/bobmcallan/tickerwatch/internal/models"
)

const testChart = `{"chart":{"result":[{"meta":{"currency":"USD","symbol":"AAPL","fullExchangeName":"NasdaqGS","regularMarketTime":1767312000,"regularMarketPrice":200.5,"previousClose":195.0,"regularMarketVolume":1000,"longName":"Apple Inc."},"timestamp":[1767225600,1767312000],"indicators":{"quote":[{"open":[194.0,196.0],"close":[195.0,200.5]}]}}],"error":null}}`

// newTestServer wires a full App against a fake Yahoo endpoint.
// AAPL resolves, FAIL answers 503 and every other symbol is unknown.
func newTestServer(t *testing.T) (*Server, *app.App) {
	t.Helper()

	yahoo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v8/finance/chart/AAPL":
			w.Write([]byte(testChart))
		case "/v8/finance/chart/FAIL":
			w.WriteHeader(http.StatusServiceUnavailable)
		case "/v1/finance/search":
			if r.URL.Query().Get("q") == "broken" {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Write([]byte(`{"quotes":[{"symbol":"AAPL","shortname":"Apple Inc.","exchange":"NMS","typeDisp":"Equity"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
		}
	}))
	t.Cleanup(yahoo.Close)

	config := common.NewDefaultConfig()
	config.Storage.Backend = "memory"
	config.Gateway.Fallback = "none"
	config.Gateway.Yahoo.BaseURL = yahoo.URL
	config.Gateway.Yahoo.RateLimit = 1000

	a, err := app.New(context.Background(), config, common.NewSilentLogger())
	require.NoError(t, err)
	t.Cleanup(a.Close)

	return NewServer(a), a
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthAndVersion(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))

	rec = do(t, s, http.MethodGet, "/api/version", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version"`)

	rec = do(t, s, http.MethodPost, "/api/health", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStockQuote(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/stocks/aapl", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode[struct{ Quote models.Quote }](t, rec)
	assert.Equal(t, "AAPL", body.Quote.Symbol)
	assert.Equal(t, 200.5, body.Quote.Price)
	assert.True(t, body.Quote.Change.Valid)

	rec = do(t, s, http.MethodGet, "/api/stocks/NOPE", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeUnknownSymbol, decode[ErrorResponse](t, rec).Code)

	rec = do(t, s, http.MethodGet, "/api/stocks/FAIL", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/stocks/bad%20sym", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/stocks/AAPL/extra", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStockChart(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/stocks/AAPL/chart?range=5d", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode[struct {
		Symbol   string
		Range    string
		Interval string
		Points   []models.HistoryPoint
	}](t, rec)
	assert.Equal(t, "AAPL", body.Symbol)
	assert.Equal(t, "5d", body.Range)
	assert.Equal(t, "1d", body.Interval)
	assert.Len(t, body.Points, 2)

	rec = do(t, s, http.MethodGet, "/api/stocks/AAPL/chart?range=decade", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1y", decode[struct{ Range string }](t, rec).Range)

	rec = do(t, s, http.MethodGet, "/api/stocks/AAPL/chart.png", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
}

func TestSearch(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/search?q=apple", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct{ Results []models.SearchResult }](t, rec)
	require.Len(t, body.Results, 1)
	assert.Equal(t, "AAPL", body.Results[0].Symbol)

	for _, path := range []string{"/api/search", "/api/search?q=%20", "/api/search?q=broken"} {
		rec = do(t, s, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Contains(t, rec.Body.String(), `"results":[]`, path)
	}
}

func TestMarketEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/market-movers", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	movers := decode[models.Movers](t, rec)
	require.Len(t, movers.Gainers, 1)
	assert.Equal(t, "AAPL", movers.Gainers[0].Symbol)
	assert.NotNil(t, movers.Losers)

	rec = do(t, s, http.MethodGet, "/api/market/indices", "")
	require.Equal(t, http.StatusOK, rec.Code)
	tape := decode[models.IndexTape](t, rec)
	assert.NotEmpty(t, tape.Indices)
}

func TestAlertsLifecycle(t *testing.T) {
	s, a := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/alerts", `{"symbol":"aapl","targetPrice":199,"condition":"above"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[models.Alert](t, rec)
	assert.Equal(t, "AAPL", created.Symbol)
	assert.True(t, created.Active)
	assert.False(t, created.Triggered)

	rec = do(t, s, http.MethodGet, "/api/alerts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[struct{ Alerts []models.Alert }](t, rec).Alerts, 1)

	// 200.5 >= 199 fires once
	rec = do(t, s, http.MethodPost, "/api/alerts/evaluate", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ev := decode[models.Evaluation](t, rec)
	require.Len(t, ev.Triggered, 1)
	assert.Equal(t, created.ID, ev.Triggered[0].ID)

	rec = do(t, s, http.MethodPost, "/api/alerts/evaluate", "")
	assert.Empty(t, decode[models.Evaluation](t, rec).Triggered)

	stored, err := a.Alerts.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.True(t, stored[0].Triggered)

	rec = do(t, s, http.MethodDelete, "/api/alerts/"+itoa(created.ID), "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodDelete, "/api/alerts/"+itoa(created.ID), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodDelete, "/api/alerts/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateAlert_Rejections(t *testing.T) {
	s, a := newTestServer(t)

	tests := []struct {
		name   string
		body   string
		status int
		field  string
	}{
		{"negative target", `{"symbol":"AAPL","targetPrice":-5,"condition":"above"}`, http.StatusBadRequest, "targetPrice"},
		{"bad condition", `{"symbol":"AAPL","targetPrice":5,"condition":"sideways"}`, http.StatusBadRequest, "condition"},
		{"missing symbol", `{"targetPrice":5,"condition":"below"}`, http.StatusBadRequest, "symbol"},
		{"malformed json", `{"symbol":`, http.StatusBadRequest, ""},
		{"unknown symbol", `{"symbol":"NOPE","targetPrice":5,"condition":"below"}`, http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/alerts", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.field != "" {
				assert.Equal(t, tt.field, decode[ErrorResponse](t, rec).Field)
			}
		})
	}

	stored, err := a.Alerts.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stored, "rejected alerts must not be persisted")
}

func TestPortfolioLifecycle(t *testing.T) {
	s, a := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/portfolio", "")
	require.Equal(t, http.StatusOK, rec.Code)
	empty := decode[models.PortfolioSnapshot](t, rec)
	assert.Empty(t, empty.Holdings)
	assert.Equal(t, 0.0, empty.Summary.TotalProfitLossPercent)

	rec = do(t, s, http.MethodPost, "/api/portfolio/holdings", `{"symbol":"AAPL","purchasePrice":100,"quantity":2,"purchaseDate":"2025-03-01"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	h := decode[models.Holding](t, rec)
	assert.Equal(t, "Apple Inc.", h.StockName)

	rec = do(t, s, http.MethodPost, "/api/portfolio/holdings", `{"symbol":"AAPL","purchasePrice":100,"quantity":1.5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	require.NoError(t, a.PortfolioService.RefreshPrices(context.Background()))

	rec = do(t, s, http.MethodGet, "/api/portfolio", "")
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[models.PortfolioSnapshot](t, rec)
	require.Len(t, snap.Holdings, 1)
	assert.Equal(t, 200.0, snap.Summary.TotalInvestment)
	assert.Equal(t, 401.0, snap.Summary.CurrentValue)
	assert.Equal(t, 100.5, snap.Summary.TotalProfitLossPercent)

	rec = do(t, s, http.MethodGet, "/api/portfolio/holdings", "")
	assert.Len(t, decode[struct{ Holdings []models.Holding }](t, rec).Holdings, 1)

	rec = do(t, s, http.MethodDelete, "/api/portfolio/holdings/"+itoa(h.ID), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, s, http.MethodDelete, "/api/portfolio/holdings/"+itoa(h.ID), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebSocket_ReceivesPublishedEvents(t *testing.T) {
	s, a := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return a.Hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	a.Hub.Publish(models.EventIndexTape, map[string]string{"hello": "world"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev models.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, models.EventIndexTape, ev.Type)
	assert.NotEmpty(t, ev.ID)
}

func TestMCPEndpoint_Initialize(t *testing.T) {
	s, _ := newTestServer(t)

	body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"1.0.0"}}}`
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tickerwatch")
}

func TestShutdownEndpoint(t *testing.T) {
	s, a := newTestServer(t)
	ch := make(chan struct{}, 1)
	s.SetShutdownChannel(ch)

	rec := do(t, s, http.MethodPost, "/api/shutdown", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("shutdown was not signalled")
	}

	a.Config.Environment = "production"
	rec = do(t, s, http.MethodPost, "/api/shutdown", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func itoa(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
