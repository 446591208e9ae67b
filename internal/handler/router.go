package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/prn-tf/castore/internal/kv"
)

// Router is the HTTP entry point for the S3-subset adapter. Path
// grammar: /{namespace}/{path...}, where namespace is a decimal
// uint64.
type Router struct {
	objectHandler *ObjectHandler
	logger        zerolog.Logger
}

// NewRouter builds a Router dispatching onto objectHandler.
func NewRouter(objectHandler *ObjectHandler, logger zerolog.Logger) *Router {
	return &Router{
		objectHandler: objectHandler,
		logger:        logger.With().Str("component", "router").Logger(),
	}
}

// Handler returns the http.Handler to serve.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", rt.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	// HEAD <anything>: always 200 empty, so it is registered before
	// the namespaced route and matches every path shape.
	r.Head("/*", rt.objectHandler.HeadObject)
	r.Put("/{namespace}/*", rt.handleObject(http.MethodPut))
	r.Get("/{namespace}/*", rt.handleObject(http.MethodGet))
	r.NotFound(rt.handleInvalid)
	r.MethodNotAllowed(rt.handleInvalid)
	return r
}

func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// handleObject parses {namespace} and the wildcard path, then
// dispatches to the object handler for method.
func (rt *Router) handleObject(method string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ns, path, err := parseNamespacedPath(r)
		if err != nil {
			writeError(w, ErrInputError)
			return
		}

		switch method {
		case http.MethodPut:
			rt.objectHandler.PutObject(w, r, ns, path)
		case http.MethodGet:
			rt.objectHandler.GetObject(w, r, ns, path)
		}
	}
}

// handleInvalid is the catch-all for any method/URL combination this
// adapter does not define: HTTP 400.
func (rt *Router) handleInvalid(w http.ResponseWriter, r *http.Request) {
	writeError(w, ErrInputError)
}

// parseNamespacedPath extracts the decimal namespace and the
// remaining path segment from a request routed through
// /{namespace}/*.
func parseNamespacedPath(r *http.Request) (kv.Namespace, string, error) {
	nsParam := chi.URLParam(r, "namespace")
	n, err := strconv.ParseUint(nsParam, 10, 64)
	if err != nil {
		return 0, "", err
	}
	path := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	return kv.Namespace(n), path, nil
}
