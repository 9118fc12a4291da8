package catalog

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/sellergrid/service-core-go/internal/requestctx"
	"github.com/sellergrid/service-core-go/internal/result"
)

// Handler exposes HTTP endpoints for product operations. Mutating endpoints
// expect the authenticated identity id in the request context.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func statusFor(k result.Kind) int {
	switch k {
	case result.KindNotFound:
		return http.StatusNotFound
	case result.KindDuplicateResource:
		return http.StatusConflict
	case result.KindUnauthorized:
		return http.StatusForbidden
	case result.KindStoreUnavailable:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// ProductRequest request body for create and update endpoints.
type ProductRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Available   bool    `json:"available"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	res := h.svc.List(r.Context())
	if !res.OK() {
		h.writeFailure(w, res.Kind(), res.Message())
		return
	}
	h.writeJSON(w, http.StatusOK, res.Value())
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	res := h.svc.GetByID(r.Context(), r.PathValue("id"))
	if !res.OK() {
		h.writeFailure(w, res.Kind(), res.Message())
		return
	}
	h.writeJSON(w, http.StatusOK, res.Value())
}

func (h *Handler) ListByOwner(w http.ResponseWriter, r *http.Request) {
	res := h.svc.ListByOwner(r.Context(), r.PathValue("ownerId"))
	if !res.OK() {
		h.writeFailure(w, res.Kind(), res.Message())
		return
	}
	h.writeJSON(w, http.StatusOK, res.Value())
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	requester, ok := requestctx.Subject(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	res := h.svc.Add(r.Context(), ProductInput(req), requester)
	if !res.OK() {
		h.writeFailure(w, res.Kind(), res.Message())
		return
	}
	h.writeJSON(w, http.StatusCreated, res.Value())
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	requester, ok := requestctx.Subject(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	res := h.svc.Update(r.Context(), r.PathValue("id"), ProductInput(req), requester)
	if !res.OK() {
		h.writeFailure(w, res.Kind(), res.Message())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	requester, ok := requestctx.Subject(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	res := h.svc.Delete(r.Context(), r.PathValue("id"), requester)
	if !res.OK() {
		h.writeFailure(w, res.Kind(), res.Message())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeFailure(w http.ResponseWriter, kind result.Kind, msg string) {
	status := statusFor(kind)
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	h.writeError(w, status, msg)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
