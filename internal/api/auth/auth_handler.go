package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/aiarcade/aiarcade/app/observability/metrics"
	"github.com/aiarcade/aiarcade/config"
	"github.com/aiarcade/aiarcade/internal/api"
	"github.com/aiarcade/aiarcade/internal/api/session"
	"github.com/aiarcade/aiarcade/internal/mailer"
	"github.com/aiarcade/aiarcade/internal/types"
)

// AuthHandler translates HTTP requests into AuthService calls and owns the
// responsibility of dispatching emails whenever the service hands back a
// code. This keeps the service free of transport concerns.
type AuthHandler struct {
	authService AuthService
	mailer      mailer.Dispatcher
	sessions    *session.Holder
	cfg         *config.Config
	logger      *slog.Logger
}

func NewAuthHandler(authService AuthService, dispatcher mailer.Dispatcher, sessions *session.Holder, cfg *config.Config, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		mailer:      dispatcher,
		sessions:    sessions,
		cfg:         cfg,
		logger:      logger,
	}
}

type registerResponse struct {
	Success              bool               `json:"success"`
	Message              string             `json:"message"`
	RequiresVerification bool               `json:"requiresVerification"`
	User                 *types.UserProfile `json:"user,omitempty"`
	// Populated only in the degraded path where email dispatch failed and
	// the code is surfaced for manual entry.
	VerificationCode string `json:"verificationCode,omitempty"`
}

type loginResponse struct {
	Success              bool               `json:"success"`
	Message              string             `json:"message"`
	User                 *types.UserProfile `json:"user,omitempty"`
	AccessToken          string             `json:"access_token,omitempty"`
	RequiresVerification bool               `json:"requiresVerification,omitempty"`
	Email                string             `json:"email,omitempty"`
}

type verifyResponse struct {
	Success    bool               `json:"success"`
	Message    string             `json:"message"`
	User       *types.UserProfile `json:"user,omitempty"`
	RedirectTo string             `json:"redirectTo,omitempty"`
}

type meResponse struct {
	Success       bool               `json:"success"`
	Authenticated bool               `json:"authenticated"`
	User          *types.UserProfile `json:"user,omitempty"`
}

// Register godoc
// @Summary      Register a new account
// @Description  Creates an unverified account and emails a verification code. With resendOnly, re-issues the code instead.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body RegisterRequest true "Registration payload"
// @Success      201 {object} registerResponse
// @Failure      400 {object} types.Response "Validation failure"
// @Failure      409 {object} types.Response "Email or username taken"
// @Router       /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Register"))

	var req RegisterRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if req.ResendOnly {
		h.resendVerification(w, r, req.Email)
		return
	}

	if req.Email == "" || req.Password == "" || req.Username == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Email, password, and username are required")
		return
	}

	result, err := h.authService.Register(ctx, RegisterParams{
		Email:           req.Email,
		Password:        req.Password,
		Username:        req.Username,
		LinkedinProfile: req.LinkedinProfile,
		GithubProfile:   req.GithubProfile,
	})
	if err != nil {
		l.WarnContext(ctx, "Registration failed", slog.Any("error", err))
		switch {
		case errors.Is(err, types.ErrConflict):
			api.ErrorResponse(w, r, http.StatusConflict, "An account with that email or username already exists")
		case errors.Is(err, types.ErrValidation):
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		default:
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to register account")
		}
		return
	}
	metrics.Get().RegisterRequestsTotal.Add(ctx, 1)
	metrics.Get().VerificationCodesIssuedTotal.Add(ctx, 1)

	resp := registerResponse{
		Success:              true,
		Message:              "Registered. Check your email for a verification code.",
		RequiresVerification: result.RequiresVerification,
		User:                 result.User,
	}

	// The account exists either way; a failed send degrades rather than
	// rolling back registration.
	if err := h.mailer.SendVerificationCode(result.User.Email, result.User.Username, result.VerificationCode); err != nil {
		l.ErrorContext(ctx, "Verification email dispatch failed", slog.Any("error", err))
		resp.Message = "Registered, but the verification email failed to send. Enter the code below manually."
		resp.VerificationCode = result.VerificationCode
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, resp)
}

// Login godoc
// @Summary      Log in
// @Description  Checks credentials. Unverified accounts get a fresh verification code emailed instead of a session.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body LoginRequest true "Credentials"
// @Success      200 {object} loginResponse
// @Failure      401 {object} loginResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Login"))

	var req LoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" || req.Password == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Email and password are required")
		return
	}

	result, err := h.authService.Login(ctx, req.Email, req.Password)
	metrics.Get().LoginRequestsTotal.Add(ctx, 1)
	if err != nil {
		metrics.Get().LoginFailuresTotal.Add(ctx, 1)
		switch {
		case errors.Is(err, types.ErrAccountLocked):
			api.WriteJSONResponse(w, r, http.StatusUnauthorized, loginResponse{
				Success: false,
				Message: "Account temporarily locked after repeated failed logins. Try again later.",
			})
		case errors.Is(err, types.ErrUnauthenticated):
			api.WriteJSONResponse(w, r, http.StatusUnauthorized, loginResponse{
				Success: false,
				Message: "Invalid email or password",
			})
		default:
			l.ErrorContext(ctx, "Login failed unexpectedly", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Server error")
		}
		return
	}

	if result.RequiresVerification {
		if err := h.mailer.SendVerificationCode(req.Email, result.Username, result.VerificationCode); err != nil {
			l.ErrorContext(ctx, "Verification email dispatch failed", slog.Any("error", err))
		}
		api.WriteJSONResponse(w, r, http.StatusUnauthorized, loginResponse{
			Success:              false,
			Message:              "Email not verified. A new verification code has been sent.",
			RequiresVerification: true,
			Email:                req.Email,
		})
		return
	}

	h.sessions.Set(result.User)
	api.WriteJSONResponse(w, r, http.StatusOK, loginResponse{
		Success:     true,
		Message:     "Login successful",
		User:        result.User,
		AccessToken: result.AccessToken,
	})
}

// VerifyEmail godoc
// @Summary      Verify email with a code
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body VerifyEmailRequest true "Email and code"
// @Success      200 {object} verifyResponse
// @Failure      400 {object} types.Response "Expired, mismatched, or unknown"
// @Router       /auth/verify-email [post]
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "VerifyEmail"))

	var req VerifyEmailRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" || req.Code == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Email and code are required")
		return
	}

	start := time.Now()
	user, err := h.authService.VerifyEmailWithCode(ctx, req.Email, req.Code)
	metrics.Get().VerificationDurationSeconds.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		switch {
		case errors.Is(err, types.ErrCodeExpired):
			api.ErrorResponse(w, r, http.StatusBadRequest, "Verification code has expired. Request a new one.")
		case errors.Is(err, types.ErrCodeMismatch):
			api.ErrorResponse(w, r, http.StatusBadRequest, "Verification code is incorrect")
		case errors.Is(err, types.ErrAlreadyVerified):
			api.ErrorResponse(w, r, http.StatusBadRequest, "Email is already verified")
		case errors.Is(err, types.ErrNotFound):
			api.ErrorResponse(w, r, http.StatusBadRequest, "No account found for that email")
		default:
			l.ErrorContext(ctx, "Verification failed unexpectedly", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Server error")
		}
		return
	}

	h.sessions.Set(user)
	api.WriteJSONResponse(w, r, http.StatusOK, verifyResponse{
		Success:    true,
		Message:    "Email verified",
		User:       user,
		RedirectTo: h.cfg.Auth.VerifyRedirectTo,
	})
}

// ResendVerification godoc
// @Summary      Resend the verification code
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body ResendVerificationRequest true "Email"
// @Success      200 {object} types.Response
// @Failure      400 {object} types.Response
// @Router       /auth/verify-email [put]
func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req ResendVerificationRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	h.resendVerification(w, r, req.Email)
}

func (h *AuthHandler) resendVerification(w http.ResponseWriter, r *http.Request, email string) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "ResendVerification"))

	if email == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Email is required")
		return
	}

	code, username, err := h.authService.ResendVerificationCode(ctx, email)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrNotFound):
			api.ErrorResponse(w, r, http.StatusBadRequest, "No account found for that email")
		case errors.Is(err, types.ErrAlreadyVerified):
			api.ErrorResponse(w, r, http.StatusBadRequest, "Email is already verified")
		default:
			l.ErrorContext(ctx, "Resend failed unexpectedly", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Server error")
		}
		return
	}

	metrics.Get().VerificationCodesIssuedTotal.Add(ctx, 1)

	if err := h.mailer.SendVerificationCode(email, username, code); err != nil {
		l.ErrorContext(ctx, "Verification email dispatch failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to send verification email")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{
		Success: true,
		Message: "A new verification code has been sent",
	})
}

// RequestPasswordReset godoc
// @Summary      Request a password reset code
// @Description  Always answers with the same generic message, whether or not the email exists.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body RecoveryRequest true "Email"
// @Success      200 {object} types.Response
// @Router       /auth/reset-password [post]
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "RequestPasswordReset"))

	var req RecoveryRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Email is required")
		return
	}

	// Identical response for existing and non-existing accounts so the
	// endpoint can't be used to probe for registered emails.
	genericResp := map[string]string{
		"message": "If that email is registered, a reset code has been sent",
	}

	code, username, err := h.authService.SendPasswordRecovery(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			l.ErrorContext(ctx, "Recovery code issue failed", slog.Any("error", err))
		}
		api.WriteJSONResponse(w, r, http.StatusOK, genericResp)
		return
	}

	if err := h.mailer.SendPasswordReset(req.Email, username, code); err != nil {
		l.ErrorContext(ctx, "Reset email dispatch failed", slog.Any("error", err))
	}
	api.WriteJSONResponse(w, r, http.StatusOK, genericResp)
}

// ConfirmPasswordReset godoc
// @Summary      Reset the password with a code
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body ResetPasswordRequest true "Email, code, and new password"
// @Success      200 {object} types.Response
// @Failure      400 {object} types.Response "Bad code or policy violations"
// @Router       /auth/reset-password [put]
func (h *AuthHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "ConfirmPasswordReset"))

	var req ResetPasswordRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" || req.Code == "" || req.NewPassword == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Email, code, and newPassword are required")
		return
	}

	err := h.authService.ResetPassword(ctx, req.Email, req.Code, req.NewPassword)
	if err != nil {
		var policyErr *PasswordPolicyError
		switch {
		case errors.As(err, &policyErr):
			api.WriteJSONResponse(w, r, http.StatusBadRequest, map[string]interface{}{
				"message": "Password does not meet the policy",
				"errors":  policyErr.Violations,
			})
		case errors.Is(err, types.ErrCodeExpired):
			api.ErrorResponse(w, r, http.StatusBadRequest, "Reset code has expired. Request a new one.")
		case errors.Is(err, types.ErrCodeMismatch), errors.Is(err, types.ErrNotFound):
			api.ErrorResponse(w, r, http.StatusBadRequest, "Reset code is invalid")
		default:
			l.ErrorContext(ctx, "Password reset failed unexpectedly", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Server error")
		}
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, map[string]string{
		"message": "Password has been reset",
	})
}

// Me godoc
// @Summary      Current session
// @Description  Returns the authenticated profile, or authenticated:false when the token is absent or invalid.
// @Tags         Auth
// @Produce      json
// @Success      200 {object} meResponse
// @Router       /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Me"))

	tokenString := BearerToken(r)
	if tokenString == "" {
		api.WriteJSONResponse(w, r, http.StatusOK, meResponse{Success: true, Authenticated: false})
		return
	}

	claims, err := ParseAccessToken(h.cfg.JWT, tokenString)
	if err != nil {
		api.WriteJSONResponse(w, r, http.StatusOK, meResponse{Success: true, Authenticated: false})
		return
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		api.WriteJSONResponse(w, r, http.StatusOK, meResponse{Success: true, Authenticated: false})
		return
	}

	// Served from the session cache inside the debounce window, otherwise
	// re-fetched from the database.
	user, err := h.sessions.Refresh(ctx, userID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.WriteJSONResponse(w, r, http.StatusOK, meResponse{Success: true, Authenticated: false})
			return
		}
		l.ErrorContext(ctx, "Profile fetch failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Server error")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, meResponse{
		Success:       true,
		Authenticated: true,
		User:          user,
	})
}
