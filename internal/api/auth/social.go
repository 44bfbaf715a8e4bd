package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/github"
	"github.com/markbates/goth/providers/google"

	"github.com/aiarcade/aiarcade/config"
	"github.com/aiarcade/aiarcade/internal/api"
)

// SetupOAuthProviders registers the social login providers with goth.
// Providers with empty keys are skipped so local setups without OAuth
// credentials still boot.
func SetupOAuthProviders(cfg *config.Config) {
	gothic.Store = sessions.NewCookieStore([]byte(cfg.OAuth.SessionSecret))

	var providers []goth.Provider
	if cfg.OAuth.GithubClientKey != "" {
		providers = append(providers, github.New(
			cfg.OAuth.GithubClientKey,
			cfg.OAuth.GithubClientSecret,
			fmt.Sprintf("%s/api/v1/auth/github/callback", cfg.OAuth.CallbackBaseURL),
			"user:email",
		))
	}
	if cfg.OAuth.GoogleClientKey != "" {
		providers = append(providers, google.New(
			cfg.OAuth.GoogleClientKey,
			cfg.OAuth.GoogleClientSecret,
			fmt.Sprintf("%s/api/v1/auth/google/callback", cfg.OAuth.CallbackBaseURL),
			"email", "profile",
		))
	}
	goth.UseProviders(providers...)
}

func withProvider(r *http.Request) *http.Request {
	provider := chi.URLParam(r, "provider")
	return r.WithContext(context.WithValue(r.Context(), gothic.ProviderParamKey, provider))
}

// BeginOAuth redirects the user to the provider's consent screen.
func (h *AuthHandler) BeginOAuth(w http.ResponseWriter, r *http.Request) {
	gothic.BeginAuthHandler(w, withProvider(r))
}

// OAuthCallback completes the provider handshake and logs the user in,
// provisioning an account on first sight. Provider accounts skip the email
// verification handshake entirely.
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "OAuthCallback"))

	provider := chi.URLParam(r, "provider")
	providerUser, err := gothic.CompleteUserAuth(w, withProvider(r))
	if err != nil {
		l.WarnContext(ctx, "OAuth completion failed", slog.String("provider", provider), slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Social login failed")
		return
	}

	user, err := h.authService.GetOrCreateUserFromProvider(ctx, provider, providerUser)
	if err != nil {
		l.ErrorContext(ctx, "Provider account lookup failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Social login failed")
		return
	}

	token, err := h.authService.IssueAccessToken(user)
	if err != nil {
		l.ErrorContext(ctx, "Token issue failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Social login failed")
		return
	}

	h.sessions.Set(user)
	api.WriteJSONResponse(w, r, http.StatusOK, loginResponse{
		Success:     true,
		Message:     "Login successful",
		User:        user,
		AccessToken: token,
	})
}
