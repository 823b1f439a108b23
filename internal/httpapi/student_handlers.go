package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"offcampus.org/internal/audit"
	"offcampus.org/internal/auth"
	"offcampus.org/internal/campus"
	"offcampus.org/internal/query"
)

// listResponse is the envelope for every collection endpoint.
type listResponse struct {
	Items any        `json:"items"`
	Page  query.Page `json:"page"`
}

type studentRequest struct {
	AccountID      int64  `json:"account_id"`
	Phone          string `json:"phone"`
	Address        string `json:"address"`
	GraduationYear int    `json:"graduation_year"`
}

func (a *API) handleStudentsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listStudents(w, r)
	case http.MethodPost:
		a.createStudent(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleStudentResource(w http.ResponseWriter, r *http.Request) {
	id, ok := resourceID(w, r, "/v1/students/")
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.getStudent(w, r, id)
	case http.MethodPut:
		a.updateStudent(w, r, id)
	case http.MethodDelete:
		a.deleteStudent(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) listStudents(w http.ResponseWriter, r *http.Request) {
	if _, err := requireRole(r.Context(), campus.RoleAdmin, auth.RolePolice); err != nil {
		handleDomainError(w, r, err)
		return
	}
	params, err := parseListParams(r)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	items, page, err := a.campus.ListStudents(r.Context(), params)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Items: items, Page: page})
}

func (a *API) createStudent(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var req studentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	accountID := req.AccountID
	if accountID == 0 {
		accountID = claims.AccountID
	}
	// Students may only create their own profile.
	if claims.Role != campus.RoleAdmin && accountID != claims.AccountID {
		handleDomainError(w, r, auth.ErrUnauthorized)
		return
	}
	if accountID == 0 {
		writeError(w, r, http.StatusBadRequest, "account_id is required")
		return
	}

	student := &campus.Student{
		AccountID:      accountID,
		Phone:          strings.TrimSpace(req.Phone),
		Address:        strings.TrimSpace(req.Address),
		GraduationYear: req.GraduationYear,
	}
	if err := a.campus.CreateStudent(r.Context(), student); err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "student.create", map[string]any{
		"student_id": student.ID,
		"account_id": student.AccountID,
	})

	w.Header().Set("Location", "/v1/students/"+strconv.FormatInt(student.ID, 10))
	writeJSON(w, http.StatusCreated, student)
}

func (a *API) getStudent(w http.ResponseWriter, r *http.Request, id int64) {
	student, err := a.campus.GetStudent(r.Context(), id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if err := a.requireOwnerOrStaff(r.Context(), student.AccountID); err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, student)
}

func (a *API) updateStudent(w http.ResponseWriter, r *http.Request, id int64) {
	existing, err := a.campus.GetStudent(r.Context(), id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	if claims.Role != campus.RoleAdmin && claims.AccountID != existing.AccountID {
		handleDomainError(w, r, auth.ErrUnauthorized)
		return
	}

	var req studentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	existing.Phone = strings.TrimSpace(req.Phone)
	existing.Address = strings.TrimSpace(req.Address)
	existing.GraduationYear = req.GraduationYear
	if err := a.campus.UpdateStudent(r.Context(), existing); err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

func (a *API) deleteStudent(w http.ResponseWriter, r *http.Request, id int64) {
	if _, err := requireRole(r.Context(), campus.RoleAdmin); err != nil {
		handleDomainError(w, r, err)
		return
	}
	if err := a.campus.DeleteStudent(r.Context(), id); err != nil {
		handleDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "student.delete", map[string]any{
		"student_id": id,
		"at":         time.Now().UTC().Format(time.RFC3339),
	})
	w.WriteHeader(http.StatusNoContent)
}

// requireOwnerOrStaff permits the owning account, admins and police.
func (a *API) requireOwnerOrStaff(ctx context.Context, accountID int64) error {
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		return auth.ErrUnauthorized
	}
	if claims.IsPolice() || claims.Role == campus.RoleAdmin || claims.AccountID == accountID {
		return nil
	}
	return auth.ErrUnauthorized
}

// resourceID extracts the trailing numeric id from the path.
func resourceID(w http.ResponseWriter, r *http.Request, prefix string) (int64, bool) {
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	if rest == "" || strings.Contains(rest, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return 0, false
	}
	return id, true
}
