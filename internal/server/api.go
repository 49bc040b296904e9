package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/livetemplate/accordion"
	"github.com/livetemplate/accordion/internal/logging"
	"github.com/livetemplate/accordion/internal/store"
)

// maxRequestBodySize limits the size of incoming request bodies (1MB)
const maxRequestBodySize = 1 << 20

// collection is the envelope for list responses
type collection[T any] struct {
	Value []T `json:"value"`
}

// APIHandler exposes a store over the list REST API:
//
//	GET  /api/lists
//	POST /api/lists
//	GET  /api/lists/{name}
//	POST /api/lists/{name}/fields
//	GET  /api/lists/{name}/items
//	POST /api/lists/{name}/items
//
// It is the wire format the "rest" store backend consumes.
type APIHandler struct {
	store   store.Store
	timeout time.Duration
	log     *zap.Logger
	mux     *http.ServeMux
}

// NewAPIHandler creates an API handler for s
func NewAPIHandler(s store.Store, timeout time.Duration) *APIHandler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	h := &APIHandler{
		store:   s,
		timeout: timeout,
		log:     logging.Named("api"),
		mux:     http.NewServeMux(),
	}
	h.mux.HandleFunc("GET /api/lists", h.listContainers)
	h.mux.HandleFunc("POST /api/lists", h.createContainer)
	h.mux.HandleFunc("GET /api/lists/{name}", h.getContainer)
	h.mux.HandleFunc("POST /api/lists/{name}/fields", h.addField)
	h.mux.HandleFunc("GET /api/lists/{name}/items", h.listItems)
	h.mux.HandleFunc("POST /api/lists/{name}/items", h.addItem)
	return h
}

// ServeHTTP handles API requests
func (h *APIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *APIHandler) context(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.timeout)
}

func (h *APIHandler) listContainers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()

	containers, err := h.store.ListContainers(ctx)
	if err != nil {
		h.writeStoreError(w, "list containers", err)
		return
	}
	if containers == nil {
		containers = []store.Container{}
	}
	writeJSON(w, http.StatusOK, collection[store.Container]{Value: containers})
}

func (h *APIHandler) createContainer(w http.ResponseWriter, r *http.Request) {
	var c store.Container
	if !decodeBody(w, r, &c) {
		return
	}
	if c.Template == 0 {
		c.Template = store.GenericListTemplate
	}

	ctx, cancel := h.context(r)
	defer cancel()

	if err := h.store.CreateContainer(ctx, c.Name, c.Description, c.Template); err != nil {
		h.writeStoreError(w, "create container", err)
		return
	}
	c.Fields = nil
	writeJSON(w, http.StatusCreated, c)
}

func (h *APIHandler) getContainer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()

	c, err := h.store.GetContainer(ctx, r.PathValue("name"))
	if err != nil {
		h.writeStoreError(w, "get container", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *APIHandler) addField(w http.ResponseWriter, r *http.Request) {
	var f store.Field
	if !decodeBody(w, r, &f) {
		return
	}

	ctx, cancel := h.context(r)
	defer cancel()

	if err := h.store.AddField(ctx, r.PathValue("name"), f); err != nil {
		h.writeStoreError(w, "add field", err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (h *APIHandler) listItems(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()

	items, err := h.store.ListItems(ctx, r.PathValue("name"))
	if err != nil {
		h.writeStoreError(w, "list items", err)
		return
	}
	if items == nil {
		items = []accordion.Item{}
	}
	writeJSON(w, http.StatusOK, collection[accordion.Item]{Value: items})
}

func (h *APIHandler) addItem(w http.ResponseWriter, r *http.Request) {
	var item accordion.Item
	if !decodeBody(w, r, &item) {
		return
	}
	if strings.TrimSpace(item.Title) == "" {
		writeJSONError(w, http.StatusBadRequest, "Title is required")
		return
	}

	ctx, cancel := h.context(r)
	defer cancel()

	stored, err := h.store.AddItem(ctx, r.PathValue("name"), item)
	if err != nil {
		h.writeStoreError(w, "add item", err)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

// decodeBody reads a JSON request body, writing a 400 on failure
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// writeStoreError maps a store error to its HTTP status
func (h *APIHandler) writeStoreError(w http.ResponseWriter, op string, err error) {
	status := statusFor(store.Classify(err))
	if status >= 500 {
		h.log.Error("store call failed", zap.String("op", op), zap.Error(err))
	}
	writeJSONError(w, status, err.Error())
}

func statusFor(kind store.Kind) int {
	switch kind {
	case store.KindNotFound:
		return http.StatusNotFound
	case store.KindConflict:
		return http.StatusConflict
	case store.KindValidation:
		return http.StatusBadRequest
	case store.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
