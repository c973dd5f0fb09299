// Package dataserver implements the optional local data server of
// spec.md §6.3 data_server: a plain HTTP file server, serving byte
// ranges for the Range-style tickets a localstorage backend renders.
package dataserver

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Handler serves files rooted at Root under ServeAt, delegating Range
// negotiation and 206 responses to http.ServeContent.
type Handler struct {
	Root    string
	ServeAt string
}

// New builds a data server handler rooted at root, serving under
// serveAt (e.g. "/data").
func New(root, serveAt string) *Handler {
	return &Handler{Root: root, ServeAt: strings.TrimSuffix(serveAt, "/")}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	rel := strings.TrimPrefix(r.URL.Path, h.ServeAt)
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	path := filepath.Join(h.Root, filepath.FromSlash(rel))
	relCheck, err := filepath.Rel(h.Root, path)
	if err != nil || strings.HasPrefix(relCheck, "..") {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		slog.Error("opening data file", "path", rel, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		slog.Error("statting data file", "path", rel, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	http.ServeContent(w, r, "", info.ModTime(), f)
}

// NewMux builds a server mux serving h under its configured ServeAt
// prefix plus a healthz endpoint, matching the ticket server's shape.
func NewMux(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(h.ServeAt+"/", h)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return mux
}
