// Package httpapi serves read-only queries over a flattened tree.
package httpapi

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/agentic-research/flattree/api"
	"github.com/agentic-research/flattree/internal/graph"
	"github.com/agentic-research/flattree/internal/index"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// Server is the HTTP API server. Every request reads the snapshot that is
// current when it arrives.
type Server struct {
	router chi.Router
	g      *graph.HotSwapGraph
	log    logrus.FieldLogger
}

func NewServer(g *graph.HotSwapGraph, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Server{g: g, log: log}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)
	r.Get("/roots", s.handleRoots)
	r.Get("/search", s.handleSearch)
	r.Get("/nodes/{key}", s.handleGetNode)
	r.Get("/nodes/{key}/children", s.handleChildren)
	r.Get("/nodes/{key}/ancestors", s.handleAncestors)

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.g.Current()
	writeJSON(w, http.StatusOK, api.Health{Status: "ok", Snapshot: snap.Report().ID, Nodes: snap.Len()})
}

func (s *Server) handleRoots(w http.ResponseWriter, r *http.Request) {
	roots := s.g.Roots()
	if roots == nil {
		roots = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"roots": roots})
}

func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	key, ok := nodeKey(w, r)
	if !ok {
		return
	}
	n, ok := s.g.GetNode(key)
	if !ok {
		jsonError(w, "node not found: "+key, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, n.API())
}

func (s *Server) handleChildren(w http.ResponseWriter, r *http.Request) {
	key, ok := nodeKey(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"children": graph.APINodes(s.g.Children(key))})
}

func (s *Server) handleAncestors(w http.ResponseWriter, r *http.Request) {
	key, ok := nodeKey(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ancestors": graph.APINodes(s.g.Ancestors(key))})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	field := q.Get("field")
	if field == "" {
		jsonError(w, "field query parameter is required", http.StatusBadRequest)
		return
	}
	mode, err := index.ParseMode(q.Get("mode"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	query := q.Get("q")
	keys := s.g.Search(field, query, mode)
	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, http.StatusOK, api.SearchResult{Field: field, Query: query, Mode: mode.String(), Keys: keys})
}

// nodeKey returns the {key} path parameter. chi matches against the raw path
// when the request escaped a character such as "/", so the parameter is
// unescaped in that case.
func nodeKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	key := chi.URLParam(r, "key")
	if r.URL.RawPath == "" {
		return key, true
	}
	unescaped, err := url.PathUnescape(key)
	if err != nil {
		jsonError(w, "invalid node key: "+err.Error(), http.StatusBadRequest)
		return "", false
	}
	return unescaped, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
