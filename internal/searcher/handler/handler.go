package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/library"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/searcher/service"
	apperrors "github.com/Adithya-Monish-Kumar-K/book-search-engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/pkg/middleware"
)

type SearchResponse struct {
	Kind   string         `json:"kind"`
	Query  string         `json:"query"`
	Total  int            `json:"total"`
	Cached bool           `json:"cached"`
	Books  []library.Book `json:"books"`
}

type SuggestedBook struct {
	library.Book
	Distance float64 `json:"distance"`
}

type SuggestionsResponse struct {
	For   []int           `json:"for"`
	Total int             `json:"total"`
	Books []SuggestedBook `json:"books"`
}

type DistanceResponse struct {
	From     int      `json:"from"`
	To       int      `json:"to"`
	Distance *float64 `json:"distance"`
}

// searchParams are the mutually exclusive query modes of GET /api/books.
var searchParams = []string{"search", "searchByTitle", "searchByAuthor", "regex", "suggestions"}

const maxStatsTop = 100

type Handler struct {
	svc            *service.Service
	cache          *cache.QueryCache
	collector      *analytics.Collector
	maxSuggestions int
	logger         *slog.Logger
}

// New creates the book API handler. queryCache and collector may be nil.
func New(svc *service.Service, queryCache *cache.QueryCache, collector *analytics.Collector, maxSuggestions int) *Handler {
	if maxSuggestions <= 0 {
		maxSuggestions = 12
	}
	return &Handler{
		svc:            svc,
		cache:          queryCache,
		collector:      collector,
		maxSuggestions: maxSuggestions,
		logger:         slog.Default().With("component", "book-handler"),
	}
}

// Register mounts the book and cache routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/books", h.Books)
	mux.HandleFunc("GET /api/books/{id}", h.Book)
	mux.HandleFunc("GET /api/books/{id}/distance/{other}", h.Distance)
	mux.HandleFunc("GET /api/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /api/stats", h.SearchStats)
}

// Book serves GET /api/books/{id}.
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	book, err := h.svc.Book(id)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, book)
}

// Distance serves GET /api/books/{id}/distance/{other}. The distance is
// null when either book has no keywords to compare.
func (h *Handler) Distance(w http.ResponseWriter, r *http.Request) {
	from, err := pathID(r, "id")
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	to, err := pathID(r, "other")
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	d, err := h.svc.JaccardDistance(from, to)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	resp := DistanceResponse{From: from, To: to}
	if !math.IsNaN(d) {
		resp.Distance = &d
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// Books serves GET /api/books. At most one of search, searchByTitle,
// searchByAuthor, regex and suggestions may be given; without any of them
// the whole catalog is listed. closeness=true orders keyword and regex
// results by the closeness ranking; title and author results always are.
func (h *Handler) Books(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var mode string
	for _, p := range searchParams {
		if !q.Has(p) {
			continue
		}
		if mode != "" {
			h.writeError(w, http.StatusBadRequest, fmt.Sprintf("parameters %q and %q cannot be combined", mode, p))
			return
		}
		mode = p
	}
	byCloseness, err := parseBool(q.Get("closeness"))
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}

	switch mode {
	case "":
		ids := h.svc.Snapshot().Library.IDs()
		if byCloseness {
			ids = h.svc.OrderByCloseness(ids)
		}
		h.writeJSON(w, http.StatusOK, SearchResponse{Kind: "all", Total: len(ids), Books: h.svc.Books(ids)})
	case "suggestions":
		h.suggestions(w, r, q.Get("suggestions"), q.Get("limit"))
	default:
		h.search(w, r, mode, q.Get(mode), q.Get("field"), byCloseness)
	}
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request, mode, query, field string, byCloseness bool) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	if strings.TrimSpace(query) == "" {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("parameter %q must not be empty", mode))
		return
	}

	var (
		kind    string
		compute func() ([]int, error)
	)
	switch mode {
	case "search":
		kind = "search"
		compute = func() ([]int, error) { return h.svc.Search(ctx, query) }
	case "searchByTitle":
		kind = "search_title"
		compute = func() ([]int, error) { return h.svc.SearchTitles(ctx, query) }
	case "searchByAuthor":
		kind = "search_author"
		compute = func() ([]int, error) { return h.svc.SearchAuthors(ctx, query) }
	case "regex":
		if field == "" {
			kind = "regex"
			compute = func() ([]int, error) { return h.svc.SearchRegex(ctx, query, false) }
			break
		}
		f, err := service.ParseField(field)
		if err != nil {
			h.writeAppError(w, r, err)
			return
		}
		kind = "regex_" + string(f)
		compute = func() ([]int, error) { return h.svc.BooksMatchingRegex(ctx, query, f) }
	}

	ids, cached, err := h.cache.GetOrCompute(ctx, kind, query, compute)
	if err != nil {
		log.Warn("book search failed", "kind", kind, "query", query, "error", err)
		h.writeAppError(w, r, err)
		return
	}
	if byCloseness && (mode == "search" || mode == "regex") {
		ids = h.svc.OrderByCloseness(ids)
	}

	latency := time.Since(start)
	log.Info("book search completed",
		"kind", kind,
		"query", query,
		"results", len(ids),
		"cache_hit", cached,
		"latency_ms", latency.Milliseconds(),
	)
	h.collector.Track(analytics.NewSearchEvent(kind, query, len(ids), latency, cached, middleware.GetRequestID(ctx)))

	h.writeJSON(w, http.StatusOK, SearchResponse{
		Kind:   kind,
		Query:  query,
		Total:  len(ids),
		Cached: cached,
		Books:  h.svc.Books(ids),
	})
}

func (h *Handler) suggestions(w http.ResponseWriter, r *http.Request, rawIDs, rawLimit string) {
	start := time.Now()
	ids, err := parseIDs(rawIDs)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	limit := h.maxSuggestions
	if rawLimit != "" {
		n, err := strconv.Atoi(rawLimit)
		if err != nil || n < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, h.maxSuggestions)
	}

	found, err := h.svc.Suggestions(ids, limit)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	resp := SuggestionsResponse{For: ids, Total: len(found), Books: make([]SuggestedBook, 0, len(found))}
	for _, s := range found {
		book, err := h.svc.Book(s.ID)
		if err != nil {
			continue
		}
		resp.Books = append(resp.Books, SuggestedBook{Book: book, Distance: s.Distance})
	}
	h.collector.Track(analytics.NewSearchEvent("suggestions", rawIDs, len(found), time.Since(start), false, middleware.GetRequestID(r.Context())))
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func pathID(r *http.Request, name string) (int, error) {
	raw := r.PathValue(name)
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: book id %q is not a number", apperrors.ErrInvalidInput, raw)
	}
	return id, nil
}

func parseIDs(raw string) ([]int, error) {
	var ids []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%w: book id %q is not a number", apperrors.ErrInvalidInput, part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: suggestions needs at least one book id", apperrors.ErrInvalidInput)
	}
	return ids, nil
}

func parseBool(raw string) (bool, error) {
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: closeness must be true or false", apperrors.ErrInvalidInput)
	}
	return b, nil
}

// SearchStats serves the aggregated search analytics. The optional top
// parameter bounds the query lists.
func (h *Handler) SearchStats(w http.ResponseWriter, r *http.Request) {
	top := analytics.DefaultTop
	if raw := r.URL.Query().Get("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxStatsTop {
			h.writeError(w, http.StatusBadRequest, fmt.Sprintf("top must be between 1 and %d", maxStatsTop))
			return
		}
		top = n
	}
	stats, ok := h.collector.Stats(top)
	if !ok {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// writeAppError maps err to its status. Server-side failures are logged and
// reported without detail.
func (h *Handler) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError && !errors.Is(err, apperrors.ErrTimeout) {
		logger.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
		h.writeError(w, status, "internal error")
		return
	}
	h.writeError(w, status, err.Error())
}
