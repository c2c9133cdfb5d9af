package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/atlekbai/crm_backoffice/internal/filter"
	"github.com/atlekbai/crm_backoffice/internal/middleware"
	"github.com/atlekbai/crm_backoffice/internal/view"
)

// maxBodyBytes caps request bodies of create, update and apply.
const maxBodyBytes = 1 << 20

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	views    *view.Service
	executor *view.Executor
	health   Pinger

	defaultLimit int
	maxLimit     int
}

func New(views *view.Service, executor *view.Executor, health Pinger, defaultLimit, maxLimit int) *Handler {
	return &Handler{
		views:        views,
		executor:     executor,
		health:       health,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

// Register mounts the view routes on r. Everything under /views requires
// X-User-ID.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)

	views := r.PathPrefix("/views").Subrouter()
	views.Use(middleware.ContentType, middleware.Identity)
	views.HandleFunc("", h.List).Methods(http.MethodGet)
	views.HandleFunc("", h.Create).Methods(http.MethodPost)
	views.HandleFunc("/fields/{entity}", h.Fields).Methods(http.MethodGet)
	views.HandleFunc("/{id}", h.Get).Methods(http.MethodGet)
	views.HandleFunc("/{id}", h.Update).Methods(http.MethodPut)
	views.HandleFunc("/{id}", h.Delete).Methods(http.MethodDelete)
	views.HandleFunc("/{id}/apply", h.Apply).Methods(http.MethodPost)
}

type applyRequest struct {
	AdditionalFilters []filter.Predicate `json:"additionalFilters"`
}

// List handles GET /views?entity=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	views, err := h.views.List(r.Context(), requester(r), r.URL.Query().Get("entity"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if views == nil {
		views = []view.View{}
	}
	writeJSON(w, http.StatusOK, views)
}

// Get handles GET /views/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := viewID(w, r)
	if !ok {
		return
	}
	v, err := h.views.Get(r.Context(), id, requester(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// Create handles POST /views
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in view.Input
	if !decodeBody(w, r, &in, false) {
		return
	}
	v, err := h.views.Create(r.Context(), requester(r), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// Update handles PUT /views/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := viewID(w, r)
	if !ok {
		return
	}
	var in view.Input
	if !decodeBody(w, r, &in, false) {
		return
	}
	v, err := h.views.Update(r.Context(), id, requester(r), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// Delete handles DELETE /views/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := viewID(w, r)
	if !ok {
		return
	}
	if err := h.views.Delete(r.Context(), id, requester(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Apply handles POST /views/{id}/apply?page=&limit=
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	id, ok := viewID(w, r)
	if !ok {
		return
	}
	v, err := h.views.Get(r.Context(), id, requester(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	q := r.URL.Query()
	page, err := view.ParsePage(q.Get("page"), q.Get("limit"), h.defaultLimit, h.maxLimit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var body applyRequest
	if !decodeBody(w, r, &body, true) {
		return
	}

	res, err := h.executor.ApplyView(r.Context(), v, body.AdditionalFilters, page)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeResult(w, res)
}

// Fields handles GET /views/fields/{entity}
func (h *Handler) Fields(w http.ResponseWriter, r *http.Request) {
	attrs, err := h.views.Fields(mux.Vars(r)["entity"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, attrs)
}

// Health handles GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.health.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Store unreachable", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func requester(r *http.Request) uuid.UUID {
	id, _ := middleware.UserID(r.Context())
	return id
}

func viewID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_PARAM", "Invalid ID format", err.Error())
		return uuid.Nil, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst)
	if optional && errors.Is(err, io.EOF) {
		return true
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Malformed request body", err.Error())
		return false
	}
	return true
}
