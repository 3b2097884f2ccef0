// Package server exposes comparisons over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"doc-compare/internal/align"
	"doc-compare/internal/compare"
	"doc-compare/internal/config"
	"doc-compare/internal/database"
	"doc-compare/internal/models"
	"doc-compare/internal/render"
	"doc-compare/internal/segment"
	"doc-compare/internal/similarity"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server serves the comparison API. Store may be nil, in which case results
// are not persisted and the history endpoints answer 503.
type Server struct {
	cfg        *config.Config
	comparator *compare.Comparator
	segmenters *segment.Registry
	store      database.Store
	logger     *slog.Logger
}

// New creates a Server.
func New(cfg *config.Config, comparator *compare.Comparator, segmenters *segment.Registry, store database.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:        cfg,
		comparator: comparator,
		segmenters: segmenters,
		store:      store,
		logger:     logger,
	}
}

// Router returns the chi router with all routes and middleware mounted.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	if s.cfg.Server.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	}

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/compare", s.handleCompare)
		r.Post("/segment", s.handleSegment)
		r.Post("/diff", s.handleDiff)
		r.Get("/comparisons", s.handleList)
		r.Get("/comparisons/{id}", s.handleGet)
	})
	return r
}

// ListenAndServe serves the router on cfg.Server.Listen.
func (s *Server) ListenAndServe() error {
	s.logger.Info("listening", "addr", s.cfg.Server.Listen)
	return http.ListenAndServe(s.cfg.Server.Listen, s.Router())
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"store":  s.store != nil,
	})
}

// handleCompare compares the multipart files "a" and "b".
// POST /api/compare
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(s.cfg.Extraction.MaxFileMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, 2*maxBytes+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	dir, err := os.MkdirTemp("", "docdiff-upload-")
	if err != nil {
		s.logger.Error("failed to create upload dir", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	defer os.RemoveAll(dir)

	docA, err := saveUpload(r, "a", dir)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	docB, err := saveUpload(r, "b", dir)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	comparator := s.comparator
	if v := r.FormValue("strategy"); v != "" {
		strategy, err := parseStrategy(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		comparator = comparator.WithStrategy(strategy)
	}

	result, err := comparator.Compare(r.Context(), docA, docB)
	if err != nil {
		s.writeFailure(w, err)
		return
	}

	if s.store != nil {
		if err := s.store.SaveComparison(r.Context(), result); err != nil {
			// the comparison itself succeeded
			s.logger.Error("failed to save comparison", "error", err)
		}
	}
	writeJSON(w, http.StatusOK, result)
}

// saveUpload copies one multipart file into dir under a name in its own
// subdirectory, so both sides may share the same base name.
func saveUpload(r *http.Request, field, dir string) (models.Document, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return models.Document{}, fmt.Errorf("missing file %q", field)
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if name == "." || name == string(filepath.Separator) {
		name = field
	}
	sub := filepath.Join(dir, field)
	if err := os.MkdirAll(sub, 0o755); err != nil {
		return models.Document{}, fmt.Errorf("failed to store upload: %w", err)
	}
	path := filepath.Join(sub, name)
	if err := copyFile(path, file); err != nil {
		return models.Document{}, fmt.Errorf("failed to store upload: %w", err)
	}
	return models.Document{Path: path, Name: name}, nil
}

func copyFile(path string, src multipart.File) error {
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

type segmentRequest struct {
	Text     string `json:"text"`
	Strategy string `json:"strategy"`
}

type segmentResponse struct {
	Strategy string            `json:"strategy"`
	Sections models.SectionMap `json:"sections"`
	Keys     []string          `json:"keys"`
	Skipped  int               `json:"skipped"`
}

// handleSegment segments plain text.
// POST /api/segment
func (s *Server) handleSegment(w http.ResponseWriter, r *http.Request) {
	var req segmentRequest
	if !s.decodeText(w, r, &req) {
		return
	}
	strategy, err := parseStrategy(req.Strategy)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.segmenters.Segment(r.Context(), segment.Input{Text: req.Text}, strategy)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sorted := res.Sections.Keys()
	align.SortKeys(sorted)
	keys := make([]string, len(sorted))
	for i, k := range sorted {
		keys[i] = string(k)
	}
	writeJSON(w, http.StatusOK, segmentResponse{
		Strategy: string(res.Strategy),
		Sections: res.Sections,
		Keys:     keys,
		Skipped:  res.Skipped,
	})
}

type diffRequest struct {
	A    string `json:"a"`
	B    string `json:"b"`
	Mode string `json:"mode"`
}

type diffResponse struct {
	Tokens []models.DiffToken `json:"tokens"`
	models.Score
}

// handleDiff diffs two texts by words or lines. With ?format=html the
// response is a sanitized HTML fragment.
// POST /api/diff
func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	var req diffRequest
	if !s.decodeText(w, r, &req) {
		return
	}

	var tokens []models.DiffToken
	lines := false
	switch req.Mode {
	case "", "tokens":
		tokens = similarity.RenderDiff(req.A, req.B)
	case "lines":
		tokens = similarity.RenderLineDiff(req.A, req.B)
		lines = true
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported mode %q (use tokens or lines)", req.Mode))
		return
	}

	if r.URL.Query().Get("format") == "html" {
		body := render.HTML(tokens)
		if lines {
			body = "<pre>" + render.HTMLLines(tokens) + "</pre>"
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, body)
		return
	}

	writeJSON(w, http.StatusOK, diffResponse{Tokens: tokens, Score: similarity.Compute(req.A, req.B)})
}

// handleList lists stored comparisons, newest first.
// GET /api/comparisons?limit=
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "no comparison store configured")
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	list, err := s.store.ListComparisons(r.Context(), limit)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	if list == nil {
		list = []models.ComparisonSummary{}
	}
	writeJSON(w, http.StatusOK, list)
}

// handleGet returns one stored comparison.
// GET /api/comparisons/{id}
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "no comparison store configured")
		return
	}
	result, err := s.store.GetComparison(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// decodeText reads a JSON body of at most Server.MaxTextKB. It writes the
// error response and returns false when the body is too large or invalid.
func (s *Server) decodeText(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, int64(s.cfg.Server.MaxTextKB)<<10)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d KB", s.cfg.Server.MaxTextKB))
		return false
	}
	writeError(w, http.StatusBadRequest, "invalid request body")
	return false
}

// writeFailure maps domain errors to status codes.
func (s *Server) writeFailure(w http.ResponseWriter, err error) {
	var unsupported *models.UnsupportedFormatError
	var extraction *models.ExtractionError
	switch {
	case errors.As(err, &unsupported):
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.As(err, &extraction):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func parseStrategy(v string) (segment.Strategy, error) {
	switch segment.Strategy(v) {
	case "":
		return segment.StrategyAuto, nil
	case segment.StrategyAuto, segment.StrategyNumbering, segment.StrategyLayout, segment.StrategyLLM:
		return segment.Strategy(v), nil
	}
	return "", fmt.Errorf("unsupported strategy %q (use auto, numbering, layout or llm)", v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
