package identity

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/sellergrid/service-core-go/internal/identity/entity"
	"github.com/sellergrid/service-core-go/internal/result"
)

// Handler exposes HTTP endpoints for the identity flows and the
// administrative user CRUD. It performs the single translation from Result
// kinds to transport status codes.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// StatusForKind maps a failure kind to an HTTP status code.
func StatusForKind(k result.Kind) int {
	switch k {
	case result.KindDuplicateEmail:
		return http.StatusConflict
	case result.KindInvalidCredentials:
		return http.StatusUnauthorized
	case result.KindUserNotFound, result.KindNotFound:
		return http.StatusNotFound
	case result.KindUnauthorized:
		return http.StatusForbidden
	case result.KindStoreUnavailable:
		return http.StatusInternalServerError
	default:
		// token failures and anything unclassified
		return http.StatusBadRequest
	}
}

// RegisterRequest request body for the register endpoint.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	role, ok := entity.ParseRole(req.Role)
	if !ok {
		role = entity.RoleUser
	}
	res := h.svc.Register(r.Context(), req.Name, req.Email, role, req.Password)
	if !res.OK() {
		h.writeFailure(w, res.Kind(), res.Message())
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]bool{"registered": true})
}

// LoginRequest login payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	res := h.svc.Authenticate(r.Context(), req.Email, req.Password)
	if !res.OK() {
		h.writeFailure(w, res.Kind(), res.Message())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"token": res.Value()})
}

func (h *Handler) ConfirmEmail(w http.ResponseWriter, r *http.Request) {
	tok := r.URL.Query().Get("token")
	res := h.svc.ConfirmEmail(r.Context(), tok)
	if !res.OK() {
		h.writeFailure(w, res.Kind(), res.Message())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"confirmed": true})
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	res := h.svc.ForgotPassword(r.Context(), req.Email)
	if !res.OK() {
		h.writeFailure(w, res.Kind(), res.Message())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"sent": true})
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	res := h.svc.ResetPassword(r.Context(), req.Token, req.NewPassword)
	if !res.OK() {
		h.writeFailure(w, res.Kind(), res.Message())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"reset": true})
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	role, ok := entity.ParseRole(req.Role)
	if !ok {
		role = entity.RoleUser
	}
	res := h.svc.CreateUser(r.Context(), req.Name, req.Email, role, req.Password)
	if !res.OK() {
		h.writeFailure(w, res.Kind(), res.Message())
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]string{"id": res.Value()})
}

// UpdateUserRequest update payload.
type UpdateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	role, ok := entity.ParseRole(req.Role)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "unknown role")
		return
	}
	res := h.svc.UpdateUser(r.Context(), r.PathValue("id"), req.Name, req.Email, role)
	if !res.OK() {
		h.writeFailure(w, res.Kind(), res.Message())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	res := h.svc.DeleteUser(r.Context(), r.PathValue("id"))
	if !res.OK() {
		h.writeFailure(w, res.Kind(), res.Message())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	res := h.svc.GetUserByID(r.Context(), r.PathValue("id"))
	if !res.OK() {
		h.writeFailure(w, res.Kind(), res.Message())
		return
	}
	h.writeJSON(w, http.StatusOK, res.Value())
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	res := h.svc.GetAllUsers(r.Context())
	if !res.OK() {
		h.writeFailure(w, res.Kind(), res.Message())
		return
	}
	h.writeJSON(w, http.StatusOK, res.Value())
}

func (h *Handler) writeFailure(w http.ResponseWriter, kind result.Kind, msg string) {
	status := StatusForKind(kind)
	if status == http.StatusInternalServerError {
		// never leak infrastructure detail
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
