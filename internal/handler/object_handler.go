package handler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/castore/internal/chunk"
	"github.com/prn-tf/castore/internal/chunkindex"
	"github.com/prn-tf/castore/internal/filestore"
	"github.com/prn-tf/castore/internal/hashid"
	"github.com/prn-tf/castore/internal/kv"
	"github.com/prn-tf/castore/internal/manifest"
	"github.com/prn-tf/castore/internal/nameindex"
)

// ObjectHandler handles PUT/GET/HEAD requests against a filestore.Store.
type ObjectHandler struct {
	store   *filestore.Store
	chunker *chunk.Chunker
	config  filestore.Config
	logger  zerolog.Logger
}

// NewObjectHandler creates an ObjectHandler backed by store. cfg
// governs the inline-vs-chunked threshold PutObject applies to bodies
// of known length; a zero Config falls back to filestore.DefaultConfig.
func NewObjectHandler(store *filestore.Store, chunker *chunk.Chunker, cfg filestore.Config, logger zerolog.Logger) *ObjectHandler {
	return &ObjectHandler{
		store:   store,
		chunker: chunker,
		config:  filestore.DefaultConfig().WithConfig(cfg),
		logger:  logger.With().Str("handler", "object").Logger(),
	}
}

// PutObject handles PUT /{namespace}/{path...}: uploads the request
// body as a file and binds path to the resulting file id.
//
// A body of known length that fits within config.SegmentSize is
// buffered and stored via UploadFile, so it is inlined or split per
// config.InlineSize/ChunkSize. Bodies of unknown length (chunked
// transfer encoding) or larger than one segment are streamed through
// chunker instead, always producing a Chunked manifest.
func (h *ObjectHandler) PutObject(w http.ResponseWriter, r *http.Request, ns kv.Namespace, path string) {
	ctx := r.Context()
	sess := h.store.WithNamespace(ns).WithConfig(h.config)

	var id hashid.FileId
	var err error
	if r.ContentLength >= 0 && uint64(r.ContentLength) <= h.config.SegmentSize {
		var contents []byte
		contents, err = io.ReadAll(r.Body)
		if err != nil {
			h.handleObjectError(w, fmt.Errorf("read request body: %w", err))
			return
		}
		id, err = sess.UploadFile(ctx, contents)
	} else {
		id, err = sess.StoreFile(ctx, r.Body, h.chunker)
	}
	if err != nil {
		h.handleObjectError(w, err)
		return
	}

	if err := sess.AssociateFilename(ctx, path, id); err != nil {
		h.handleObjectError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// GetObject handles GET /{namespace}/{path...}, including the three
// literal sub-resource stubs below.
func (h *ObjectHandler) GetObject(w http.ResponseWriter, r *http.Request, ns kv.Namespace, path string) {
	query := r.URL.Query()
	if _, ok := query["location"]; ok {
		writeLiteralXML(w, locationConstraintXML)
		return
	}
	if _, ok := query["object-lock"]; ok {
		writeLiteralXML(w, objectLockXML)
		return
	}
	if _, ok := query["versioning"]; ok {
		writeLiteralXML(w, versioningXML)
		return
	}

	ctx := r.Context()
	sess := h.store.WithNamespace(ns)

	data, err := sess.ReadNamedFile(ctx, path)
	if err != nil {
		h.handleObjectError(w, err)
		return
	}

	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	io.Copy(w, bytes.NewReader(data))
}

// HeadObject handles HEAD <anything>: always a bare 200 with an empty
// body, regardless of whether the resource actually exists.
func (h *ObjectHandler) HeadObject(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// handleObjectError maps store errors to S3-shaped error responses.
func (h *ObjectHandler) handleObjectError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, nameindex.ErrNotFound), errors.Is(err, manifest.ErrNotFound), errors.Is(err, chunkindex.ErrNotFound):
		writeError(w, ErrNoSuchKey)
	default:
		h.logger.Error().Err(err).Msg("unhandled object error")
		writeError(w, ErrInternalError)
	}
}
