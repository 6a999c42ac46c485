package account

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/dinherin/internal/account"
	"github.com/MrJamesThe3rd/dinherin/internal/auth"
	"github.com/MrJamesThe3rd/dinherin/internal/http/response"
)

// CheckoutSessionHeader carries the provider checkout session id back after a
// completed checkout.
const CheckoutSessionHeader = "sessionId"

type Handler struct {
	svc    *account.Service
	issuer *auth.Issuer
}

func NewHandler(svc *account.Service, issuer *auth.Issuer) *Handler {
	return &Handler{svc: svc, issuer: issuer}
}

// PublicRoutes registers the endpoints reachable without a session.
func (h *Handler) PublicRoutes(r chi.Router) {
	r.Post("/signup", h.signUp)
	r.Post("/login", h.login)
	r.Get("/auto-login", h.autoLogin)
	r.Post("/reset-password/request", h.requestReset)
	r.Post("/reset-password/verify", h.verifyReset)
	r.Post("/reset-password/reset", h.resetPassword)
}

// Routes registers the endpoints acting on the session's account.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.me)
	r.Patch("/profile", h.updateProfile)
	r.Put("/password", h.updatePassword)
	r.Post("/api-key", h.regenerateAPIKey)
	r.Delete("/", h.delete)
}

type signUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) signUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !decode(w, r, &req) {
		return
	}

	acct, err := h.svc.SignUp(r.Context(), account.SignUpParams{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		response.Fail(w, r, err)
		return
	}

	h.respondSession(w, r, http.StatusCreated, acct)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}

	acct, err := h.svc.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		response.Fail(w, r, err)
		return
	}

	h.respondSession(w, r, http.StatusOK, acct)
}

// autoLogin opens a session for the account a checkout was just completed
// for, so password-less accounts created at checkout can set a password.
func (h *Handler) autoLogin(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get(CheckoutSessionHeader)
	if sessionID == "" {
		response.Error(w, http.StatusBadRequest, "sessionId not sent")
		return
	}

	acct, err := h.svc.GetByCheckoutSession(r.Context(), sessionID)
	if err != nil {
		response.Fail(w, r, err)
		return
	}

	h.respondSession(w, r, http.StatusOK, acct)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	acct, ok := callerFrom(w, r)
	if !ok {
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{"success": true, "account": toResponse(acct)})
}

type updateProfileRequest struct {
	Name string `json:"name"`
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	acct, ok := callerFrom(w, r)
	if !ok {
		return
	}

	var req updateProfileRequest
	if !decode(w, r, &req) {
		return
	}

	name, err := h.svc.UpdateProfile(r.Context(), acct.ID, req.Name)
	if err != nil {
		response.Fail(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{"success": true, "name": name})
}

type updatePasswordRequest struct {
	Password string `json:"password"`
}

func (h *Handler) updatePassword(w http.ResponseWriter, r *http.Request) {
	acct, ok := callerFrom(w, r)
	if !ok {
		return
	}

	var req updatePasswordRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.svc.ChangePassword(r.Context(), acct.ID, req.Password); err != nil {
		response.Fail(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{"success": true, "message": "Password updated successfully"})
}

func (h *Handler) regenerateAPIKey(w http.ResponseWriter, r *http.Request) {
	acct, ok := callerFrom(w, r)
	if !ok {
		return
	}

	key, err := h.svc.RegenerateAPIKey(r.Context(), acct.ID)
	if err != nil {
		response.Fail(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{"success": true, "api_key": key})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	acct, ok := callerFrom(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), acct.ID); err != nil {
		response.Fail(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{"success": true})
}

type resetRequest struct {
	Email    string `json:"email"`
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (h *Handler) requestReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !decode(w, r, &req) {
		return
	}

	if req.Email == "" {
		response.Error(w, http.StatusBadRequest, "invalid email")
		return
	}

	if err := h.svc.RequestPasswordReset(r.Context(), req.Email); err != nil {
		response.Fail(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) verifyReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.svc.VerifyResetToken(r.Context(), req.Token); err != nil {
		response.Fail(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{"success": true, "valid": true})
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.svc.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		response.Fail(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{"success": true})
}

type sessionResponse struct {
	Success   bool            `json:"success"`
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Account   accountResponse `json:"account"`
}

func (h *Handler) respondSession(w http.ResponseWriter, r *http.Request, status int, acct *account.Account) {
	token, expiresAt, err := h.issuer.Issue(acct)
	if err != nil {
		response.Fail(w, r, err)
		return
	}

	response.JSON(w, status, sessionResponse{
		Success:   true,
		Token:     token,
		ExpiresAt: expiresAt,
		Account:   toResponse(acct),
	})
}

func callerFrom(w http.ResponseWriter, r *http.Request) (*account.Account, bool) {
	acct, ok := auth.AccountFrom(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "unauthorized")
	}

	return acct, ok
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body", err.Error())
		return false
	}

	return true
}
