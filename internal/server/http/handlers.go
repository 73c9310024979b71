package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/authgate/internal/errs"
	"github.com/and161185/authgate/internal/model"
	"github.com/and161185/authgate/internal/service"
)

// OAuthFlow is the OAuth exchange surface consumed by the handlers.
// Implemented by service.OAuthService.
type OAuthFlow interface {
	AuthorizationURL() string
	CompleteLogin(ctx context.Context, code string) (uuid.UUID, model.Tokens, error)
}

// Handlers carries the services behind the HTTP surface.
type Handlers struct {
	auth        service.AuthService
	oauth       OAuthFlow
	frontendURL string
	log         *zap.Logger
}

// NewHandlers constructs the handler set.
func NewHandlers(auth service.AuthService, oauth OAuthFlow, frontendURL string, log *zap.Logger) *Handlers {
	return &Handlers{auth: auth, oauth: oauth, frontendURL: frontendURL, log: log}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type logoutRequest struct {
	UserID       string `json:"userId"`
	RefreshToken string `json:"refreshToken"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	UserID       string `json:"userId,omitempty"`
}

// Register handles POST /api/auth/register.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	userID, tokens, err := h.auth.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, http.StatusCreated, "User registered successfully", tokenPair{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		UserID:       userID.String(),
	})
}

// Login handles POST /api/auth/login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeErr(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	userID, tokens, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, http.StatusOK, "User logged in successfully", tokenPair{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		UserID:       userID.String(),
	})
}

// Logout handles POST /api/auth/logout. The session is addressed either by
// user id or by an outstanding refresh token. A logout with no active
// session answers 200: repeating a logout is not a client error.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var err error
	switch {
	case req.RefreshToken != "":
		err = h.auth.LogoutByRefreshToken(r.Context(), req.RefreshToken)
	case req.UserID != "":
		var userID uuid.UUID
		userID, err = uuid.FromString(req.UserID)
		if err != nil {
			writeErr(w, http.StatusBadRequest, "Invalid user id")
			return
		}
		err = h.auth.Logout(r.Context(), userID)
	default:
		writeErr(w, http.StatusBadRequest, "userId or refreshToken is required")
		return
	}

	if err != nil && !errors.Is(err, errs.ErrNotLoggedIn) {
		writeError(w, err)
		return
	}
	writeOK(w, http.StatusOK, "User logged out successfully", nil)
}

// RefreshToken handles POST /api/auth/refresh-token.
func (h *Handlers) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.RefreshToken == "" {
		writeErr(w, http.StatusBadRequest, "Refresh token not provided")
		return
	}
	tokens, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, http.StatusOK, "Token refreshed successfully", tokenPair{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	})
}

// GoogleLogin handles GET /api/auth/google: redirect to the provider.
func (h *Handlers) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.oauth.AuthorizationURL(), http.StatusFound)
}

// GoogleCallback handles GET /api/auth/google/callback.
func (h *Handlers) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeErr(w, http.StatusBadRequest, "Authorization code not provided")
		return
	}
	userID, _, err := h.oauth.CompleteLogin(r.Context(), code)
	if err != nil {
		h.log.Error("oauth exchange failed", zap.Error(err))
		writeError(w, err)
		return
	}
	q := url.Values{}
	q.Set("success", "true")
	q.Set("userid", userID.String())
	http.Redirect(w, r, h.frontendURL+"?"+q.Encode(), http.StatusFound)
}

// Me handles GET /api/auth/me: a protected route validating the bearer token.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	tokenStr := bearerToken(r)
	if tokenStr == "" {
		writeErr(w, http.StatusUnauthorized, "Missing bearer token")
		return
	}
	claims, err := h.auth.Validate(r.Context(), tokenStr)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, http.StatusOK, "Token is valid", map[string]any{
		"userId": claims.Subject,
		"email":  claims.Email,
		"role":   claims.Role,
	})
}

// Health handles GET /healthz.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, http.StatusOK, "ok", nil)
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}
