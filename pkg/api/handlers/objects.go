package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/bucketd/internal/logger"
	"github.com/marmos91/bucketd/pkg/bufpool"
	"github.com/marmos91/bucketd/pkg/store"
)

// ObjectHandler serves the object CRUD and listing endpoints. It holds only
// immutable configuration; the filesystem is the sole shared mutable state.
type ObjectHandler struct {
	store     *store.Store
	maxUpload int64
}

// NewObjectHandler creates an object handler backed by the given store.
// maxUpload of zero or less disables the upload size limit.
func NewObjectHandler(s *store.Store, maxUpload int64) *ObjectHandler {
	return &ObjectHandler{
		store:     s,
		maxUpload: maxUpload,
	}
}

// objectKey extracts the wildcard key segment from the route. Percent
// escapes are decoded so keys like "a%20b.txt" address the same object a
// literal "a b.txt" does.
func objectKey(r *http.Request) string {
	key := chi.URLParam(r, "*")
	if decoded, err := url.PathUnescape(key); err == nil {
		return decoded
	}
	return key
}

// Put handles PUT /objects/{key} - create or overwrite an object.
//
// Conditional headers are evaluated against the current state before any
// body bytes are consumed. The check-then-write sequence is not atomic
// against a concurrent writer to the same key; callers using If-Match for
// optimistic concurrency must tolerate that window.
func (h *ObjectHandler) Put(w http.ResponseWriter, r *http.Request) {
	key := objectKey(r)
	path, err := h.store.Resolve(key)
	if err != nil {
		BadRequest(w, "Invalid object key")
		return
	}

	meta, statErr := h.store.Stat(path)
	exists := statErr == nil
	if statErr != nil && !errors.Is(statErr, store.ErrNotFound) {
		logger.Error("Failed to stat object", "key", key, "error", statErr)
		InternalServerError(w, "Failed to stat object")
		return
	}

	if inm := strings.TrimSpace(r.Header.Get("If-None-Match")); inm == "*" && exists {
		PreconditionFailed(w, "Object already exists")
		return
	}
	if im := strings.TrimSpace(r.Header.Get("If-Match")); im != "" {
		if !exists || im != meta.ETag() {
			PreconditionFailed(w, "ETag mismatch")
			return
		}
	}

	written, err := h.store.Write(r.Context(), path, r.Body, h.maxUpload)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrTooLarge):
			PayloadTooLarge(w, fmt.Sprintf("Upload exceeds the %d byte limit", h.maxUpload))
		case r.Context().Err() != nil:
			// Client went away; the partial file is already removed and
			// nobody is listening for the response.
			logger.Debug("Upload aborted by client", "key", key)
		default:
			logger.Error("Failed to write object", "key", key, "error", err)
			InternalServerError(w, "Failed to write object")
		}
		return
	}

	logger.Debug("Object stored", "key", key, "bytes", written, "overwritten", exists)
	if exists {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusCreated)
	}
}

// Head handles HEAD /objects/{key} - metadata without a body.
func (h *ObjectHandler) Head(w http.ResponseWriter, r *http.Request) {
	key := objectKey(r)
	path, err := h.store.Resolve(key)
	if err != nil {
		BadRequest(w, "Invalid object key")
		return
	}

	meta, err := h.store.Stat(path)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFound(w, "Object not found")
			return
		}
		logger.Error("Failed to stat object", "key", key, "error", err)
		InternalServerError(w, "Failed to stat object")
		return
	}

	etag := meta.ETag()
	if clientMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	writeObjectHeaders(w, r, key, meta.Size, etag)
	w.WriteHeader(http.StatusOK)
}

// Get handles GET /objects/{key} - stream an object, optionally partially.
//
// If-None-Match is checked before Range, so a revalidating client with a
// current tag gets 304 even when it also asked for a byte range.
func (h *ObjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	key := objectKey(r)
	path, err := h.store.Resolve(key)
	if err != nil {
		BadRequest(w, "Invalid object key")
		return
	}

	meta, err := h.store.Stat(path)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFound(w, "Object not found")
			return
		}
		logger.Error("Failed to stat object", "key", key, "error", err)
		InternalServerError(w, "Failed to stat object")
		return
	}

	etag := meta.ETag()
	if clientMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	if rangeHeader := r.Header.Get("Range"); rangeHeader != "" {
		start, end, ok := store.ParseRange(rangeHeader, meta.Size)
		if !ok {
			w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", meta.Size))
			WriteProblem(w, http.StatusRequestedRangeNotSatisfiable,
				"Range Not Satisfiable", "Requested range cannot be satisfied")
			return
		}
		h.streamRange(w, r, key, path, etag, start, end, meta.Size)
		return
	}

	f, err := h.store.Open(path)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFound(w, "Object not found")
			return
		}
		logger.Error("Failed to open object", "key", key, "error", err)
		InternalServerError(w, "Failed to open object")
		return
	}
	defer f.Close()

	writeObjectHeaders(w, r, key, meta.Size, etag)
	w.WriteHeader(http.StatusOK)
	buf := bufpool.Get(bufpool.StreamSize)
	defer bufpool.Put(buf)
	// The wrapper hides the file's WriteTo so the pooled buffer is used.
	if _, err := io.CopyBuffer(w, struct{ io.Reader }{f}, buf); err != nil {
		// Headers are out; a mid-stream failure can only be logged.
		logger.Debug("Download aborted", "key", key, "error", err)
	}
}

// streamRange serves a single satisfiable byte range as 206 Partial Content.
func (h *ObjectHandler) streamRange(w http.ResponseWriter, r *http.Request, key, path, etag string, start, end, total int64) {
	f, err := h.store.Open(path)
	if err != nil {
		logger.Error("Failed to open object", "key", key, "error", err)
		InternalServerError(w, "Failed to open object")
		return
	}
	defer f.Close()

	if _, err := f.Seek(start, io.SeekStart); err != nil {
		logger.Error("Failed to seek object", "key", key, "error", err)
		InternalServerError(w, "Failed to read object")
		return
	}

	length := end - start + 1
	writeObjectHeaders(w, r, key, length, etag)
	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, total))
	w.WriteHeader(http.StatusPartialContent)
	buf := bufpool.Get(bufpool.StreamSize)
	defer bufpool.Put(buf)
	if _, err := io.CopyBuffer(w, io.LimitReader(f, length), buf); err != nil {
		logger.Debug("Partial download aborted", "key", key, "error", err)
	}
}

// Delete handles DELETE /objects/{key}.
//
// A second delete of the same key reports 404, not success; callers must
// tolerate that asymmetry.
func (h *ObjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	key := objectKey(r)
	path, err := h.store.Resolve(key)
	if err != nil {
		BadRequest(w, "Invalid object key")
		return
	}

	if err := h.store.Remove(path); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFound(w, "Object not found")
			return
		}
		logger.Error("Failed to delete object", "key", key, "error", err)
		InternalServerError(w, "Failed to delete object")
		return
	}

	logger.Debug("Object deleted", "key", key)
	WriteNoContent(w)
}

// List handles GET /objects?prefix=&recursive=0|1.
func (h *ObjectHandler) List(w http.ResponseWriter, r *http.Request) {
	base := h.store.Root()
	if prefix := r.URL.Query().Get("prefix"); prefix != "" {
		resolved, err := h.store.Resolve(prefix)
		if err != nil {
			BadRequest(w, "Invalid prefix")
			return
		}
		base = resolved
	}
	recursive := r.URL.Query().Get("recursive") == "1"

	objects, err := h.store.Walk(base, recursive)
	if err != nil {
		logger.Error("Failed to list objects", "error", err)
		InternalServerError(w, "Failed to list objects")
		return
	}

	WriteJSONOK(w, objects)
}

// clientMatches reports whether the If-None-Match header value names the
// current tag.
func clientMatches(header, etag string) bool {
	return strings.TrimSpace(header) == etag
}

// writeObjectHeaders sets the common metadata headers for Head and Get
// responses. The disposition defaults to attachment; download=0 switches
// to inline viewing.
func writeObjectHeaders(w http.ResponseWriter, r *http.Request, key string, length int64, etag string) {
	disposition := "attachment"
	if r.URL.Query().Get("download") == "0" {
		disposition = "inline"
	}
	filename := key
	if idx := strings.LastIndex(key, "/"); idx >= 0 {
		filename = key[idx+1:]
	}

	w.Header().Set("Content-Type", store.ContentTypeForKey(key))
	w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
	w.Header().Set("ETag", etag)
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, filename))
}
