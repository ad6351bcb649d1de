// Package server exposes table and graph view models over HTTP as JSON.
//
// Routes:
//
//	GET /healthz
//	GET /api/tables/{kind}          projected table page
//	GET /api/entities/{kind}/{id}   one entity in wire shape
//	GET /api/graph                  graph model (json, dot or svg)
//
// Table query parameters mirror table.Query: search, tag (repeatable),
// sort, desc, page and page_size. The graph accepts sample (repeatable) to
// scope the graph and format to pick the encoding. Either endpoint refetches
// from the source on refresh=1 or on first use; afterwards the last good data
// is served, and a failed refresh still answers from it with the
// X-Labgraph-Stale header set.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/labgraph/pkg/entity"
	"github.com/matzehuels/labgraph/pkg/errors"
	"github.com/matzehuels/labgraph/pkg/graph"
	"github.com/matzehuels/labgraph/pkg/render/nodelink"
	"github.com/matzehuels/labgraph/pkg/source"
	"github.com/matzehuels/labgraph/pkg/table"
	"github.com/matzehuels/labgraph/pkg/view"
)

// StaleHeader is set when a refresh failed and older data was served.
const StaleHeader = "X-Labgraph-Stale"

const maxPageSize = 500

// Options configures a [Server].
type Options struct {
	PageSize    int // Default page size when the request has none
	SampleLimit int
	Projector   *table.Projector
	Logger      *log.Logger
}

// Server serves the view-model API for one source.
type Server struct {
	src       source.Source
	opts      Options
	projector *table.Projector
	logger    *log.Logger

	mu     sync.Mutex
	tables map[entity.Kind]*view.TableView
	graphs map[string]*view.GraphView
}

// New returns a server reading from src.
func New(src source.Source, opts Options) *Server {
	if opts.PageSize <= 0 {
		opts.PageSize = table.DefaultPageSize
	}
	if opts.Projector == nil {
		opts.Projector = table.NewProjector(table.DefaultLocale)
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Server{
		src:       src,
		opts:      opts,
		projector: opts.Projector,
		logger:    opts.Logger,
		tables:    make(map[entity.Kind]*view.TableView),
		graphs:    make(map[string]*view.GraphView),
	}
}

// Handler returns the HTTP handler with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/api", func(r chi.Router) {
		r.Get("/tables/{kind}", s.handleTable)
		r.Get("/entities/{kind}/{id}", s.handleEntity)
		r.Get("/graph", s.handleGraph)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info("serving", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).Round(time.Microsecond),
			"request", middleware.GetReqID(r.Context()))
	})
}

// =============================================================================
// Tables
// =============================================================================

func (s *Server) tableView(k entity.Kind) *view.TableView {
	s.mu.Lock()
	defer s.mu.Unlock()
	tv, ok := s.tables[k]
	if !ok {
		tv = view.NewTableView(s.src, k, view.TableOptions{
			PageSize:    s.opts.PageSize,
			SampleLimit: s.opts.SampleLimit,
			Projector:   s.projector,
			Logger:      s.logger,
		})
		s.tables[k] = tv
	}
	return tv
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	kind, err := entity.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeErr(w, err)
		return
	}
	q, err := parseQuery(r, s.opts.PageSize)
	if err != nil {
		writeErr(w, err)
		return
	}

	tv := s.tableView(kind)
	if !s.ensureFresh(w, r, tv) {
		return
	}
	writeJSON(w, http.StatusOK, s.projector.NewView(kind, tv.Rows(), q))
}

// refresher is the part of TableView and GraphView that ensureFresh needs.
type refresher interface {
	Refresh(context.Context) error
	Wait(context.Context) error
	State() view.State
}

// ensureFresh refreshes the view when asked to or when it holds no data.
// It reports whether the handler should go on to answer from the view.
func (s *Server) ensureFresh(w http.ResponseWriter, r *http.Request, v refresher) bool {
	if v.State().Applied > 0 && r.URL.Query().Get("refresh") == "" {
		return true
	}
	err := v.Refresh(r.Context())
	if stderrors.Is(err, view.ErrStale) {
		// A concurrent request began a newer fetch; its outcome decides.
		err = v.Wait(r.Context())
	}
	switch {
	case err == nil:
		return true
	case v.State().Applied > 0:
		w.Header().Set(StaleHeader, errors.UserMessage(err))
		return true
	}
	writeErr(w, err)
	return false
}

// parseQuery builds a table.Query from URL parameters, rejecting values
// the projection engine would panic on.
func parseQuery(r *http.Request, defaultSize int) (table.Query, error) {
	v := r.URL.Query()
	q := *table.NewQuery(defaultSize)

	positive := func(name string, dst *int) error {
		raw := v.Get(name)
		if raw == "" {
			return nil
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return errors.New(errors.ErrCodeInvalidInput, "%s must be a positive integer, got %q", name, raw)
		}
		*dst = n
		return nil
	}
	if err := positive("page_size", &q.PageSize); err != nil {
		return q, err
	}
	if q.PageSize > maxPageSize {
		return q, errors.New(errors.ErrCodeInvalidInput, "page_size must be at most %d", maxPageSize)
	}

	q.OnSearchChange(v.Get("search"))
	var tags []string
	for _, t := range v["tag"] {
		for _, part := range strings.Split(t, ",") {
			if part = strings.TrimSpace(part); part != "" {
				tags = append(tags, part)
			}
		}
	}
	q.OnTagSelectionChange(tags)
	if key := v.Get("sort"); key != "" {
		q.OnSortChange(key)
		q.Reversed = v.Get("desc") == "1" || v.Get("desc") == "true"
	}
	if err := positive("page", &q.Page); err != nil {
		return q, err
	}
	return q, nil
}

// =============================================================================
// Entities
// =============================================================================

func (s *Server) handleEntity(w http.ResponseWriter, r *http.Request) {
	kind, err := entity.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeErr(w, err)
		return
	}
	e, err := s.src.GetEntity(r.Context(), kind, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// =============================================================================
// Graph
// =============================================================================

func (s *Server) graphView(samples []string) *view.GraphView {
	key := strings.Join(samples, "\x00")
	s.mu.Lock()
	defer s.mu.Unlock()
	gv, ok := s.graphs[key]
	if !ok {
		gv = view.NewGraphView(s.src, view.GraphOptions{SampleIDs: samples, Logger: s.logger})
		s.graphs[key] = gv
	}
	return gv
}

type nodeJSON struct {
	ID         string        `json:"id"`
	X          float64       `json:"x"`
	Y          float64       `json:"y"`
	Label      string        `json:"label"`
	Size       float64       `json:"size"`
	Color      string        `json:"color"`
	Emphasized bool          `json:"emphasized"`
	Type       string        `json:"type"`
	Content    graph.Content `json:"content"`
}

type edgeJSON struct {
	Source  string        `json:"source"`
	Target  string        `json:"target"`
	Content graph.Content `json:"content,omitempty"`
}

type issueJSON struct {
	Kind  graph.IssueKind `json:"kind"`
	ID    string          `json:"id"`
	Error string          `json:"error"`
}

// Graph is the JSON form of a graph model and its build report.
type Graph struct {
	Nodes  []nodeJSON  `json:"nodes"`
	Edges  []edgeJSON  `json:"edges"`
	Issues []issueJSON `json:"issues"`
}

// EncodeGraph converts m and report to their JSON form.
func EncodeGraph(m *graph.Model, report graph.Report) Graph {
	out := Graph{
		Nodes:  make([]nodeJSON, 0, m.NodeCount()),
		Edges:  make([]edgeJSON, 0, m.EdgeCount()),
		Issues: make([]issueJSON, 0, len(report.Issues)),
	}
	for _, n := range m.Nodes() {
		out.Nodes = append(out.Nodes, nodeJSON{
			ID:         n.ID,
			X:          n.X,
			Y:          n.Y,
			Label:      n.Label,
			Size:       n.Size,
			Color:      n.Color.String(),
			Emphasized: n.Emphasized,
			Type:       string(n.Type),
			Content:    n.Content,
		})
	}
	for _, e := range m.Edges() {
		out.Edges = append(out.Edges, edgeJSON{Source: e.Source, Target: e.Target, Content: e.Content})
	}
	for _, i := range report.Issues {
		out.Issues = append(out.Issues, issueJSON{Kind: i.Kind, ID: i.ID, Error: i.Err.Error()})
	}
	return out
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	var samples []string
	for _, raw := range r.URL.Query()["sample"] {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				samples = append(samples, id)
			}
		}
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "dot" && format != "svg" {
		writeErr(w, errors.New(errors.ErrCodeInvalidInput, "format must be json, dot or svg; got %q", format))
		return
	}

	gv := s.graphView(samples)
	if !s.ensureFresh(w, r, gv) {
		return
	}
	m, report := gv.Render(r.Context())
	opts := nodelink.Options{Detailed: r.URL.Query().Get("detailed") != ""}

	switch format {
	case "dot":
		w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
		w.Write([]byte(nodelink.ToDOT(m, opts)))
	case "svg":
		svg, err := nodelink.Render(r.Context(), m, opts)
		if err != nil {
			writeErr(w, errors.Wrap(errors.ErrCodeInternal, err, "render svg"))
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Write(svg)
	default:
		writeJSON(w, http.StatusOK, EncodeGraph(m, report))
	}
}

// =============================================================================
// Responses
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorJSON struct {
	Code  errors.Code `json:"code"`
	Error string      `json:"error"`
}

func writeErr(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	writeJSON(w, statusFor(code), errorJSON{Code: code, Error: errors.UserMessage(err)})
}

func statusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidKind:
		return http.StatusBadRequest
	case errors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	case errors.ErrCodeNetwork, errors.ErrCodeInvalidFormat, errors.ErrCodeInvalidRecord:
		return http.StatusBadGateway
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
