package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"stockticker/internal/provider"
	"stockticker/internal/resolve"
	"stockticker/internal/symbol"
	"stockticker/internal/watchlist"
)

// fakeProvider knows a fixed set of canonical symbols.
type fakeProvider struct {
	name   string
	prices map[string]float64
}

func (f fakeProvider) Name() string { return f.name }

func (f fakeProvider) Fetch(_ context.Context, raw string) (*provider.Quote, error) {
	sym := symbol.Normalize(raw)
	price, ok := f.prices[sym]
	if !ok {
		return nil, fmt.Errorf("%s: %w", sym, provider.ErrNoQuote)
	}
	return &provider.Quote{
		Symbol:     sym,
		Name:       "N" + sym,
		Price:      price,
		Change:     1,
		Source:     provider.Source(f.name),
		ReceivedAt: time.Date(2024, 1, 5, 7, 0, 0, 0, time.UTC),
	}, nil
}

type panicResolver struct{}

func (panicResolver) Resolve(context.Context, string) *provider.Quote { panic("boom") }
func (panicResolver) ResolveAll(context.Context, []string) []*provider.Quote {
	panic("boom")
}

func newServer(t *testing.T) *server {
	t.Helper()
	primary := fakeProvider{"tencent", map[string]float64{"AAPL": 190, "159919.SH": 3.9}}
	secondary := fakeProvider{"sina", map[string]float64{"AAPL": 191, "600000.SH": 10.2}}
	store, err := watchlist.Open(filepath.Join(t.TempDir(), "watchlist.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return &server{
		resolver: resolve.New([]provider.Provider{primary, secondary}),
		watch:    store,
		log:      zerolog.Nop(),
		timeout:  time.Second,
	}
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, target, rd))
	return rr
}

func TestQuote(t *testing.T) {
	t.Parallel()

	h := newServer(t).routes()

	// Act: the ambiguous code only exists on the alternate exchange
	rr := do(t, h, http.MethodGet, "/api/quote?symbol=159919", "")

	// Assert
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))
	body := rr.Body.String()
	require.True(t, gjson.Get(body, "success").Bool())
	require.Equal(t, "159919.SH", gjson.Get(body, "data.symbol").String())
	require.Equal(t, "tencent", gjson.Get(body, "data.source").String())
	require.InDelta(t, 3.9, gjson.Get(body, "data.price").Float(), 1e-9)
	require.True(t, gjson.Get(body, "data.bid_ask_imbalance").Exists())
	require.Equal(t, gjson.Null, gjson.Get(body, "data.bid_ask_imbalance").Type)
}

func TestQuote_Miss(t *testing.T) {
	t.Parallel()

	h := newServer(t).routes()

	rr := do(t, h, http.MethodGet, "/api/quote?symbol=bogus", "")

	require.Equal(t, http.StatusBadGateway, rr.Code)
	require.False(t, gjson.Get(rr.Body.String(), "success").Bool())
	require.Equal(t, "could not retrieve data for bogus", gjson.Get(rr.Body.String(), "error").String())

	rr = do(t, h, http.MethodGet, "/api/quote", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodPost, "/api/quote?symbol=AAPL", "")
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestQuotes_GetAndPost(t *testing.T) {
	t.Parallel()

	h := newServer(t).routes()

	rr := do(t, h, http.MethodGet, "/api/quotes?symbols=AAPL,%20bogus%20,600000", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rows := gjson.Get(rr.Body.String(), "rows").Array()
	require.Len(t, rows, 3)
	require.Equal(t, "tencent", rows[0].Get("quote.source").String())
	require.Equal(t, "bogus", rows[1].Get("symbol").String())
	require.Equal(t, gjson.Null, rows[1].Get("quote").Type)
	require.Equal(t, "sina", rows[2].Get("quote.source").String())

	rr = do(t, h, http.MethodPost, "/api/quotes", `{"symbols":["600000","AAPL"]}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Equal(t, []string{"600000.SH", "AAPL"}, stringsOf(gjson.Get(rr.Body.String(), "rows.#.quote.symbol").Array()))
}

func TestQuotes_BadRequests(t *testing.T) {
	t.Parallel()

	h := newServer(t).routes()

	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/quotes?symbols=", "").Code)
	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/quotes", `{"symbols":[]}`).Code)
	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/quotes", `{"tickers":["A"]}`).Code)
	require.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodPut, "/api/quotes", "").Code)

	many := strings.TrimSuffix(strings.Repeat("A,", maxSymbols+1), ",")
	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/quotes?symbols="+many, "").Code)
}

func TestWatchlistAndBoard(t *testing.T) {
	t.Parallel()

	h := newServer(t).routes()

	// Arrange: build a list through the API
	for _, sym := range []string{"600000", "bogus", "aapl"} {
		rr := do(t, h, http.MethodPost, "/api/watchlist", fmt.Sprintf(`{"symbol":%q}`, sym))
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	}
	rr := do(t, h, http.MethodGet, "/api/watchlist", "")
	require.Equal(t, `["AAPL","BOGUS","600000"]`, gjson.Get(rr.Body.String(), "symbols").Raw)

	// Assert: edit errors map to statuses
	require.Equal(t, http.StatusConflict, do(t, h, http.MethodPost, "/api/watchlist", `{"symbol":"AAPL"}`).Code)
	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/watchlist", `{"symbol":"  "}`).Code)
	require.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/api/watchlist?symbol=MSFT", "").Code)
	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/watchlist/move", `{"from":0,"to":9}`).Code)
	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/watchlist/move", `{"from":0}`).Code)

	// Act: reorder and remove
	rr = do(t, h, http.MethodPost, "/api/watchlist/move", `{"from":2,"to":0}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Equal(t, `["600000","AAPL","BOGUS"]`, gjson.Get(rr.Body.String(), "symbols").Raw)

	// Assert: board rows follow list order with display text
	rr = do(t, h, http.MethodGet, "/api/board", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := rr.Body.String()
	require.Equal(t, "N600000.SH (600000)", gjson.Get(body, "rows.0.display_name").String())
	require.Equal(t, "sina", gjson.Get(body, "rows.0.quote.source").String())
	require.Contains(t, gjson.Get(body, "rows.1.copy_text").String(), "Price: 190.00")
	require.Equal(t, "BOGUS", gjson.Get(body, "rows.2.copy_text").String())
	require.Equal(t, gjson.Null, gjson.Get(body, "rows.2.quote").Type)

	rr = do(t, h, http.MethodDelete, "/api/watchlist?symbol=bogus", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Equal(t, `["600000","AAPL"]`, gjson.Get(rr.Body.String(), "symbols").Raw)
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	s := newServer(t)
	h := s.routes()

	// Assert: CORS preflight short-circuits
	rr := do(t, h, http.MethodOptions, "/api/quotes", "")
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))

	// Assert: gzip when accepted
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, "gzip", rr.Header().Get("Content-Encoding"))
	zr, err := gzip.NewReader(bytes.NewReader(rr.Body.Bytes()))
	require.NoError(t, err)
	plain, err := io.ReadAll(zr)
	require.NoError(t, err)
	require.Equal(t, "ok", gjson.GetBytes(plain, "status").String())

	// Assert: panics become a JSON 500
	s.resolver = panicResolver{}
	rr = do(t, s.routes(), http.MethodGet, "/api/quote?symbol=AAPL", "")
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Equal(t, "internal server error", gjson.Get(rr.Body.String(), "error").String())
}

func stringsOf(rs []gjson.Result) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.String()
	}
	return out
}
