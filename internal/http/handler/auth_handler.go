package handler

import (
	"net/http"
	"time"

	"github.com/blogverse/blogverse/internal/http/response"
	"github.com/blogverse/blogverse/internal/observability"
	"github.com/blogverse/blogverse/internal/service"
)

type AuthHandler struct {
	authSvc *service.AuthService
}

func NewAuthHandler(authSvc *service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "sign_up", status, time.Since(start))
	}()

	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		status = "failure"
		return
	}
	user, err := h.authSvc.Signup(r.Context(), service.SignupRequest{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		status = "failure"
		serviceError(w, r, err)
		return
	}
	observability.Audit(r, "auth.signup.success", "user_id", user.ID)
	response.OK(w, r, http.StatusCreated,
		"Account created. Please check your email to verify your account.",
		user.Public())
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "sign_in", status, time.Since(start))
	}()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		status = "failure"
		return
	}
	token, user, err := h.authSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		status = "failure"
		observability.Audit(r, "auth.login.failed")
		serviceError(w, r, err)
		return
	}
	observability.Audit(r, "auth.login.success", "user_id", user.ID)
	response.Data(w, r, http.StatusOK, map[string]any{
		"token": token,
		"user":  user.Public(),
	})
}

func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "verify_email", status, time.Since(start))
	}()

	var req struct {
		Token string `json:"token"`
	}
	if !decodeJSON(w, r, &req) {
		status = "failure"
		return
	}
	user, err := h.authSvc.VerifyEmail(r.Context(), req.Token)
	if err != nil {
		status = "failure"
		observability.Audit(r, "auth.verify_email.failed")
		serviceError(w, r, err)
		return
	}
	observability.Audit(r, "auth.verify_email.success", "user_id", user.ID)
	response.Message(w, r, http.StatusOK, "Email verified successfully")
}

// ResendVerification answers with the same generic message whether or not
// the address maps to an account.
func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "resend_verification", status, time.Since(start))
	}()

	var req struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &req) {
		status = "failure"
		return
	}
	if err := h.authSvc.ResendVerification(r.Context(), req.Email); err != nil {
		status = "failure"
		serviceError(w, r, err)
		return
	}
	response.Message(w, r, http.StatusOK, "If an account exists, a verification email has been sent.")
}

// ForgotPassword never discloses whether the address is registered.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "forgot_password", status, time.Since(start))
	}()

	var req struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &req) {
		status = "failure"
		return
	}
	if err := h.authSvc.ForgotPassword(r.Context(), req.Email); err != nil {
		status = "failure"
		serviceError(w, r, err)
		return
	}
	response.Message(w, r, http.StatusOK, "If an account exists, a password reset email has been sent.")
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "reset_password", status, time.Since(start))
	}()

	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		status = "failure"
		return
	}
	if err := h.authSvc.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		status = "failure"
		observability.Audit(r, "auth.reset_password.failed")
		serviceError(w, r, err)
		return
	}
	observability.Audit(r, "auth.reset_password.success")
	response.Message(w, r, http.StatusOK, "Password reset successfully")
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	user, err := h.authSvc.GetUserByID(r.Context(), userID)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	response.Data(w, r, http.StatusOK, user.Public())
}
