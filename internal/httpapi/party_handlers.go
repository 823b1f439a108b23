package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"offcampus.org/internal/audit"
	"offcampus.org/internal/campus"
)

type partyRequest struct {
	HostStudentID int64     `json:"host_student_id"`
	LocationID    int64     `json:"location_id"`
	Name          string    `json:"name"`
	StartsAt      time.Time `json:"starts_at"`
	EndsAt        time.Time `json:"ends_at"`
	Expected      int       `json:"expected_attendance"`
}

func (a *API) handlePartiesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listParties(w, r)
	case http.MethodPost:
		a.createParty(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handlePartyResource(w http.ResponseWriter, r *http.Request) {
	id, ok := resourceID(w, r, "/v1/parties/")
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.getParty(w, r, id)
	case http.MethodPut:
		a.updateParty(w, r, id)
	case http.MethodDelete:
		a.deleteParty(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

// listParties is open to every authenticated principal: police patrol from
// it, students check what is registered near them.
func (a *API) listParties(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	items, page, err := a.campus.ListParties(r.Context(), params)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Items: items, Page: page})
}

func (a *API) createParty(w http.ResponseWriter, r *http.Request) {
	if _, err := requireRole(r.Context(), campus.RoleStudent, campus.RoleAdmin); err != nil {
		handleDomainError(w, r, err)
		return
	}

	var req partyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if msg := validateParty(&req); msg != "" {
		writeError(w, r, http.StatusBadRequest, msg)
		return
	}

	party := &campus.Party{
		HostStudentID: req.HostStudentID,
		LocationID:    req.LocationID,
		Name:          req.Name,
		StartsAt:      req.StartsAt.UTC(),
		EndsAt:        req.EndsAt.UTC(),
		Expected:      req.Expected,
		Registered:    true,
	}
	if err := a.campus.CreateParty(r.Context(), party); err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "party.register", map[string]any{
		"party_id":    party.ID,
		"location_id": party.LocationID,
		"starts_at":   party.StartsAt.Format(time.RFC3339),
	})

	w.Header().Set("Location", "/v1/parties/"+strconv.FormatInt(party.ID, 10))
	writeJSON(w, http.StatusCreated, party)
}

func (a *API) getParty(w http.ResponseWriter, r *http.Request, id int64) {
	party, err := a.campus.GetParty(r.Context(), id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, party)
}

func (a *API) updateParty(w http.ResponseWriter, r *http.Request, id int64) {
	if _, err := requireRole(r.Context(), campus.RoleStudent, campus.RoleAdmin); err != nil {
		handleDomainError(w, r, err)
		return
	}

	existing, err := a.campus.GetParty(r.Context(), id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	var req partyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if msg := validateParty(&req); msg != "" {
		writeError(w, r, http.StatusBadRequest, msg)
		return
	}

	existing.LocationID = req.LocationID
	existing.Name = req.Name
	existing.StartsAt = req.StartsAt.UTC()
	existing.EndsAt = req.EndsAt.UTC()
	existing.Expected = req.Expected
	if err := a.campus.UpdateParty(r.Context(), existing); err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

func (a *API) deleteParty(w http.ResponseWriter, r *http.Request, id int64) {
	if _, err := requireRole(r.Context(), campus.RoleAdmin); err != nil {
		handleDomainError(w, r, err)
		return
	}
	if err := a.campus.DeleteParty(r.Context(), id); err != nil {
		handleDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "party.delete", map[string]any{"party_id": id})
	w.WriteHeader(http.StatusNoContent)
}

func validateParty(req *partyRequest) string {
	if req.HostStudentID <= 0 {
		return "host_student_id is required"
	}
	if req.LocationID <= 0 {
		return "location_id is required"
	}
	if req.Name == "" {
		return "name is required"
	}
	if req.StartsAt.IsZero() || req.EndsAt.IsZero() {
		return "starts_at and ends_at are required"
	}
	if !req.EndsAt.After(req.StartsAt) {
		return "ends_at must be after starts_at"
	}
	if req.Expected < 0 {
		return "expected_attendance must be >= 0"
	}
	return ""
}
