// Package server wires the gateway's HTTP surface: health, reflection and
// the query endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/omnidb-project/omnidb/pkg/client"
	"github.com/omnidb-project/omnidb/pkg/dialect"
	"github.com/omnidb-project/omnidb/pkg/pipeline"
	"github.com/omnidb-project/omnidb/pkg/record"
	"github.com/omnidb-project/omnidb/pkg/reflection"
)

// Submitter runs one query to its terminal record.
type Submitter interface {
	Submit(ctx context.Context, q record.Query) (record.Record, error)
}

// Lister reads back the audit history.
type Lister interface {
	ListAll(ctx context.Context) ([]record.Record, error)
}

// HandlerConfig assembles the gateway handler.
type HandlerConfig struct {
	Pipeline  Submitter
	Inspector reflection.Inspector
	Store     Lister
	Logger    *slog.Logger
}

// Handler serves the gateway's HTTP routes.
type Handler struct {
	mux       *http.ServeMux
	pipeline  Submitter
	inspector reflection.Inspector
	store     Lister
	logger    *slog.Logger
}

// NewHandler creates the gateway handler.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.Pipeline == nil {
		return nil, fmt.Errorf("pipeline is required")
	}
	if cfg.Inspector == nil {
		return nil, fmt.Errorf("inspector is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	h := &Handler{
		mux:       http.NewServeMux(),
		pipeline:  cfg.Pipeline,
		inspector: cfg.Inspector,
		store:     cfg.Store,
		logger:    cfg.Logger,
	}
	h.registerRoutes()
	return h, nil
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// registerRoutes registers all gateway routes. GET patterns also match
// HEAD requests, which covers the toolkit adapter's liveness and
// existence probes.
func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /{$}", h.home)
	h.mux.HandleFunc("GET /ping", h.ping)
	h.mux.HandleFunc("GET /reflection", h.listTables)
	h.mux.HandleFunc("GET /reflection/{table}", h.describeTable)
	h.mux.HandleFunc("GET /queries", h.listQueries)
	h.mux.HandleFunc("POST /queries", h.createQuery)
}

// home enumerates the connect URI for each persona.
func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	uris := make(map[string]string, len(client.Personas))
	for _, p := range client.Personas {
		uris[p.DisplayName] = p.ConnectURI(r.Host)
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": uris})
}

// ping is the health check endpoint.
func (h *Handler) ping(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}

// listTables returns all table names in the backing store.
func (h *Handler) listTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.inspector.ListTables(r.Context())
	if err != nil {
		h.logger.Error("listing tables", "error", err)
		writeError(w, http.StatusInternalServerError, "listing tables")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": tables})
}

// describeTable returns the columns of one table. The path value arrives
// percent-decoded, so encoded slashes in table names are handled.
func (h *Handler) describeTable(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("table")
	columns, err := h.inspector.DescribeTable(r.Context(), name)
	if err != nil {
		if errors.Is(err, reflection.ErrTableNotFound) {
			writeError(w, http.StatusNotFound, "table not found")
			return
		}
		h.logger.Error("describing table", "table", name, "error", err)
		writeError(w, http.StatusInternalServerError, "describing table")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": map[string]any{"columns": columns},
	})
}

// listQueries returns the full audit history, most recently finished
// first.
func (h *Handler) listQueries(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.ListAll(r.Context())
	if err != nil {
		h.logger.Error("listing queries", "error", err)
		writeError(w, http.StatusInternalServerError, "listing queries")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": records})
}

// createQuery validates and runs a submitted query, returning its
// terminal record. A failed audit write is logged but does not fail the
// request: the query itself already ran.
func (h *Handler) createQuery(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Dialect      string `json:"dialect"`
		SubmittedSQL string `json:"submitted_sql"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	d, err := dialect.Parse(body.Dialect)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.pipeline.Submit(r.Context(), record.Query{
		Dialect:      d,
		SubmittedSQL: body.SubmittedSQL,
	})
	if err != nil {
		var perr *pipeline.PersistError
		if !errors.As(err, &perr) {
			h.logger.Error("running query", "error", err)
			writeError(w, http.StatusInternalServerError, "running query")
			return
		}
		h.logger.Error("audit write failed", "record_id", rec.RecordID, "error", err)
	}
	writeJSON(w, http.StatusOK, rec)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
