// Package ticketserver implements the htsget v1.3 HTTP surface of
// spec.md §6.1: the reads/variants ticket endpoints and their
// service-info companions, translating HTTP requests into core
// query.Query values and core errors into the status codes of §7.
package ticketserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ga4gh/htsget-gateway/internal/htserr"
	"github.com/ga4gh/htsget-gateway/internal/indexcache"
	"github.com/ga4gh/htsget-gateway/internal/orchestrator"
	"github.com/ga4gh/htsget-gateway/internal/query"
	"github.com/ga4gh/htsget-gateway/internal/resolver"
)

var readsFormats = []query.Format{query.FormatBAM, query.FormatCRAM}
var variantsFormats = []query.Format{query.FormatVCF, query.FormatBCF}

// Handler serves the reads/variants ticket endpoints.
type Handler struct {
	Resolver    *resolver.Resolver
	ServiceInfo map[string]any

	// IndexCache is shared across every resolved storage backend's
	// per-request orchestrator, since a data file's id (and therefore
	// its index cache key) is independent of which location serves it.
	IndexCache indexcache.Store
}

// NewMux builds the routed http.Handler for the ticket server, spec.md
// §6.1's six routes. More specific patterns (the service-info paths)
// take priority over the "{id...}" wildcard per net/http's ServeMux
// pattern precedence.
func NewMux(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /reads/service-info", h.handleServiceInfo)
	mux.HandleFunc("POST /reads/service-info", h.handleServiceInfo)
	mux.HandleFunc("GET /variants/service-info", h.handleServiceInfo)
	mux.HandleFunc("POST /variants/service-info", h.handleServiceInfo)

	mux.HandleFunc("GET /reads/{id...}", h.serveFormats(readsFormats))
	mux.HandleFunc("POST /reads/{id...}", h.serveFormats(readsFormats))
	mux.HandleFunc("GET /variants/{id...}", h.serveFormats(variantsFormats))
	mux.HandleFunc("POST /variants/{id...}", h.serveFormats(variantsFormats))

	mux.HandleFunc("GET /healthz", handleHealthz)

	return mux
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (h *Handler) handleServiceInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.ServiceInfo); err != nil {
		slog.Error("encoding service-info response", "error", err)
	}
}

func (h *Handler) serveFormats(allowedFormats []query.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.PathValue("id")

		params, err := h.parseRequest(r)
		if err != nil {
			writeError(w, err)
			return
		}

		resp, err := h.resolveTicket(r, id, params, allowedFormats)
		if err != nil {
			slog.Error("ticket resolution failed", "id", id, "error", err, "duration", time.Since(start))
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(query.Ticket{HtsGet: resp}); err != nil {
			slog.Error("encoding ticket response", "id", id, "error", err)
			return
		}
		slog.Info("ticket served", "id", id, "format", resp.Format, "urls", len(resp.URLs), "duration", time.Since(start))
	}
}

func (h *Handler) parseRequest(r *http.Request) (requestParams, error) {
	if r.Method == http.MethodGet {
		return parseGETParams(r.URL.Query()), nil
	}

	var body postBody
	if r.ContentLength != 0 {
		dec := json.NewDecoder(r.Body)
		if err := dec.Decode(&body); err != nil {
			return requestParams{}, htserr.Wrap(htserr.InvalidInput, err, "decoding request body")
		}
	}
	return paramsFromPostBody(body), nil
}

// resolveTicket builds one query.Query per region, resolves each
// through the resolver, runs the orchestrator, and concatenates every
// region's URLs into a single response, spec.md §6.1's "regions" fan-out.
func (h *Handler) resolveTicket(r *http.Request, id string, params requestParams, allowedFormats []query.Format) (query.Response, error) {
	ctx := r.Context()

	var merged query.Response
	for i, reg := range params.Regions {
		q, err := toQuery(id, params, reg, allowedFormats)
		if err != nil {
			return query.Response{}, err
		}

		st, resolvedKey, err := h.Resolver.ResolveRequest(ctx, q)
		if err != nil {
			return query.Response{}, err
		}

		resp, err := orchestrator.New(st).WithIndexCache(h.IndexCache).Resolve(ctx, q, resolvedKey)
		if err != nil {
			return query.Response{}, err
		}

		if i == 0 {
			merged = resp
		} else {
			merged.URLs = append(merged.URLs, resp.URLs...)
		}
	}
	return merged, nil
}

func writeError(w http.ResponseWriter, err error) {
	status := htserr.StatusCodeForError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
