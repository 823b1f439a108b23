package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"offcampus.org/internal/audit"
	"offcampus.org/internal/auth"
	"offcampus.org/internal/campus"
)

type createAccountRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FullName  string `json:"full_name"`
	StudentID string `json:"student_id"`
}

func (a *API) handleAccountsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createAccount(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost)
	}
}

func (a *API) handleAccountResource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/accounts/")

	if rest == "me" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.getOwnAccount(w, r)
		return
	}

	if suffix, ok := strings.CutSuffix(rest, "/status"); ok {
		id, err := strconv.ParseInt(suffix, 10, 64)
		if err != nil {
			writeError(w, r, http.StatusNotFound, "account not found")
			return
		}
		if r.Method != http.MethodPut {
			methodNotAllowed(w, r, http.MethodPut)
			return
		}
		a.updateAccountStatus(w, r, id)
		return
	}

	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		writeError(w, r, http.StatusNotFound, "account not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.getAccount(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet)
	}
}

// createAccount is the public signup endpoint. All self-registered accounts
// start as students; admin accounts are provisioned through seeds.
func (a *API) createAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		writeError(w, r, http.StatusBadRequest, "a valid email is required")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, r, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}
	if strings.TrimSpace(req.FullName) == "" {
		writeError(w, r, http.StatusBadRequest, "full_name is required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	account := &campus.Account{
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(req.FullName),
		Role:         campus.RoleStudent,
		Status:       campus.StatusActive,
		StudentID:    strings.TrimSpace(req.StudentID),
	}
	if err := a.campus.CreateAccount(r.Context(), account); err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "account.create", map[string]any{
		"account_id": account.ID,
		"email":      account.Email,
	})

	w.Header().Set("Location", "/v1/accounts/"+strconv.FormatInt(account.ID, 10))
	writeJSON(w, http.StatusCreated, account)
}

func (a *API) getOwnAccount(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	if claims.IsPolice() {
		// The police principal has no account row; synthesize its profile.
		writeJSON(w, http.StatusOK, map[string]any{
			"email": claims.Email,
			"role":  claims.Role,
		})
		return
	}
	account, err := a.campus.GetAccount(r.Context(), claims.AccountID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// getAccount allows admins to inspect any account; students only their own.
func (a *API) getAccount(w http.ResponseWriter, r *http.Request, id int64) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	if claims.Role != campus.RoleAdmin && claims.AccountID != id {
		handleDomainError(w, r, auth.ErrUnauthorized)
		return
	}
	account, err := a.campus.GetAccount(r.Context(), id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

type accountStatusRequest struct {
	Status string `json:"status"`
}

func (a *API) updateAccountStatus(w http.ResponseWriter, r *http.Request, id int64) {
	if _, err := requireRole(r.Context(), campus.RoleAdmin); err != nil {
		handleDomainError(w, r, err)
		return
	}

	var req accountStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	status := strings.TrimSpace(req.Status)
	if status != campus.StatusActive && status != campus.StatusDisabled {
		writeError(w, r, http.StatusBadRequest, "status must be active or disabled")
		return
	}

	if err := a.campus.UpdateAccountStatus(r.Context(), id, status); err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "account.status.update", map[string]any{
		"account_id": id,
		"status":     status,
	})

	writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": status})
}
