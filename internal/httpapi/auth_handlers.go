package httpapi

import (
	"net/http"
	"strings"
	"time"

	"offcampus.org/internal/audit"
	"offcampus.org/internal/obs"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken     string `json:"access_token"`
	AccessExpiresAt string `json:"access_expires_at"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "email and password are required")
		return
	}

	pair, principal, err := a.ledger.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	obs.TokenIssued("account")
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"email": principal.Account.Email,
		"role":  principal.Account.Role,
	})

	writeJSON(w, http.StatusOK, pair)
}

func (a *API) handlePoliceLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "email and password are required")
		return
	}

	pair, principal, err := a.ledger.PoliceLogin(r.Context(), req.Email, req.Password)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	obs.TokenIssued("police")
	_ = audit.LogEvent(r.Context(), "auth.police.login", map[string]any{
		"email": principal.PoliceEmail,
	})

	writeJSON(w, http.StatusOK, pair)
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		writeError(w, r, http.StatusBadRequest, "refresh_token is required")
		return
	}

	access, exp, err := a.ledger.RefreshAccessToken(r.Context(), req.RefreshToken)
	if err != nil {
		obs.RefreshValidation("rejected")
		handleDomainError(w, r, err)
		return
	}

	obs.RefreshValidation("accepted")
	_ = audit.LogEvent(r.Context(), "auth.refresh", nil)

	writeJSON(w, http.StatusOK, refreshResponse{
		AccessToken:     access,
		AccessExpiresAt: exp.Format(time.RFC3339),
	})
}

// handleLogout revokes the presented refresh token. The operation always
// succeeds from the client's point of view: a token that never existed is as
// unusable as one just deleted.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.ledger.RevokeRefreshToken(r.Context(), req.RefreshToken); err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.logout", nil)

	writeJSON(w, http.StatusOK, map[string]any{"status": "logged_out"})
}
