package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"stockticker/internal/board"
	"stockticker/internal/provider"
	"stockticker/internal/watchlist"
)

const maxSymbols = 1000

type quoteResolver interface {
	Resolve(ctx context.Context, raw string) *provider.Quote
	ResolveAll(ctx context.Context, symbols []string) []*provider.Quote
}

type watchStore interface {
	List(ctx context.Context) ([]string, error)
	Add(ctx context.Context, raw string) (string, error)
	Remove(ctx context.Context, raw string) error
	Move(ctx context.Context, from, to int) error
}

type server struct {
	resolver quoteResolver
	watch    watchStore
	log      zerolog.Logger
	timeout  time.Duration
}

type quoteResponse struct {
	Success bool            `json:"success"`
	Data    *provider.Quote `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type rowsResponse struct {
	Rows []board.Row `json:"rows"`
}

type boardRow struct {
	board.Row
	DisplayName string `json:"display_name"`
	CopyText    string `json:"copy_text"`
}

type boardResponse struct {
	Rows []boardRow `json:"rows"`
}

type watchlistResponse struct {
	Symbols []string `json:"symbols"`
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/api/quote", s.handleQuote)
	mux.HandleFunc("/api/quotes", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			s.handleGetQuotes(w, r)
		case http.MethodPost:
			s.handlePostQuotes(w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	})
	mux.HandleFunc("/api/board", s.handleBoard)
	mux.HandleFunc("/api/watchlist", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			s.handleListWatch(w, r)
		case http.MethodPost:
			s.handleAddWatch(w, r)
		case http.MethodDelete:
			s.handleRemoveWatch(w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	})
	mux.HandleFunc("/api/watchlist/move", s.handleMoveWatch)

	return withJSONHeaders(withGzip(recoverPanic(s.log, limitBody(logRequests(s.log, mux)))))
}

func (s *server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), s.timeout)
}

func (s *server) handleQuote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	sym := strings.TrimSpace(r.URL.Query().Get("symbol"))
	if sym == "" {
		writeError(w, http.StatusBadRequest, "missing symbol query param")
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	q := s.resolver.Resolve(ctx, sym)
	if q == nil {
		writeError(w, http.StatusBadGateway, fmt.Sprintf("could not retrieve data for %s", sym))
		return
	}
	writeJSON(w, http.StatusOK, quoteResponse{Success: true, Data: q})
}

func (s *server) handleGetQuotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("symbols")
	if strings.TrimSpace(q) == "" {
		writeError(w, http.StatusBadRequest, "missing symbols query param")
		return
	}
	s.writeRows(w, r, splitCSV(q))
}

type postBody struct {
	Symbols []string `json:"symbols"`
}

func (s *server) handlePostQuotes(w http.ResponseWriter, r *http.Request) {
	var b postBody
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&b); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(b.Symbols) == 0 {
		writeError(w, http.StatusBadRequest, "symbols cannot be empty")
		return
	}
	s.writeRows(w, r, b.Symbols)
}

func (s *server) writeRows(w http.ResponseWriter, r *http.Request, symbols []string) {
	if len(symbols) > maxSymbols {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("too many symbols (max %d)", maxSymbols))
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	quotes := s.resolver.ResolveAll(ctx, symbols)
	writeJSON(w, http.StatusOK, rowsResponse{Rows: board.Rows(symbols, quotes)})
}

// handleBoard resolves the whole watch list, in list order.
func (s *server) handleBoard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	symbols, err := s.watch.List(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("list watch list")
		writeError(w, http.StatusInternalServerError, "could not read watch list")
		return
	}
	rows := board.Rows(symbols, s.resolver.ResolveAll(ctx, symbols))
	out := make([]boardRow, len(rows))
	for i, row := range rows {
		out[i] = boardRow{Row: row, DisplayName: row.DisplayName(), CopyText: row.CopyText()}
	}
	writeJSON(w, http.StatusOK, boardResponse{Rows: out})
}

func (s *server) handleListWatch(w http.ResponseWriter, r *http.Request) {
	symbols, err := s.watch.List(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("list watch list")
		writeError(w, http.StatusInternalServerError, "could not read watch list")
		return
	}
	writeJSON(w, http.StatusOK, watchlistResponse{Symbols: symbols})
}

type addBody struct {
	Symbol string `json:"symbol"`
}

func (s *server) handleAddWatch(w http.ResponseWriter, r *http.Request) {
	var b addBody
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sym, err := s.watch.Add(r.Context(), b.Symbol)
	if err != nil {
		s.writeWatchError(w, err)
		return
	}
	s.log.Info().Str("symbol", sym).Msg("watch list add")
	s.writeWatchList(w, r, http.StatusCreated)
}

func (s *server) handleRemoveWatch(w http.ResponseWriter, r *http.Request) {
	sym := r.URL.Query().Get("symbol")
	if err := s.watch.Remove(r.Context(), sym); err != nil {
		s.writeWatchError(w, err)
		return
	}
	s.log.Info().Str("symbol", sym).Msg("watch list remove")
	s.writeWatchList(w, r, http.StatusOK)
}

type moveBody struct {
	From *int `json:"from"`
	To   *int `json:"to"`
}

func (s *server) handleMoveWatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var b moveBody
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil || b.From == nil || b.To == nil {
		writeError(w, http.StatusBadRequest, `body must be {"from":n,"to":m}`)
		return
	}
	if err := s.watch.Move(r.Context(), *b.From, *b.To); err != nil {
		s.writeWatchError(w, err)
		return
	}
	s.log.Info().Int("from", *b.From).Int("to", *b.To).Msg("watch list move")
	s.writeWatchList(w, r, http.StatusOK)
}

func (s *server) writeWatchList(w http.ResponseWriter, r *http.Request, status int) {
	symbols, err := s.watch.List(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("list watch list")
		writeError(w, http.StatusInternalServerError, "could not read watch list")
		return
	}
	writeJSON(w, status, watchlistResponse{Symbols: symbols})
}

func (s *server) writeWatchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, watchlist.ErrEmpty), errors.Is(err, watchlist.ErrOutOfRange):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, watchlist.ErrDuplicate):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, watchlist.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.log.Error().Err(err).Msg("watch list edit")
		writeError(w, http.StatusInternalServerError, "could not update watch list")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, quoteResponse{Success: false, Error: msg})
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
