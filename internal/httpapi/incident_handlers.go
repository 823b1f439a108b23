package httpapi

import (
	"net/http"
	"strings"
	"time"

	"offcampus.org/internal/audit"
	"offcampus.org/internal/auth"
	"offcampus.org/internal/campus"
	"offcampus.org/internal/stream"
)

type incidentRequest struct {
	LocationID  int64     `json:"location_id"`
	PartyID     *int64    `json:"party_id"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func (a *API) handleIncidentsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listIncidents(w, r)
	case http.MethodPost:
		a.createIncident(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleIncidentResource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/incidents/")
	if rest == "" || strings.Contains(rest, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	a.getIncident(w, r, rest)
}

func (a *API) listIncidents(w http.ResponseWriter, r *http.Request) {
	if _, err := requireRole(r.Context(), campus.RoleAdmin, auth.RolePolice); err != nil {
		handleDomainError(w, r, err)
		return
	}
	params, err := parseListParams(r)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	items, page, err := a.campus.ListIncidents(r.Context(), params)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Items: items, Page: page})
}

func (a *API) createIncident(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var req incidentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.LocationID <= 0 {
		writeError(w, r, http.StatusBadRequest, "location_id is required")
		return
	}
	if strings.TrimSpace(req.Category) == "" {
		writeError(w, r, http.StatusBadRequest, "category is required")
		return
	}
	occurred := req.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}

	incident := &campus.Incident{
		LocationID:  req.LocationID,
		PartyID:     req.PartyID,
		Reporter:    claims.Subject,
		Category:    strings.TrimSpace(req.Category),
		Description: strings.TrimSpace(req.Description),
		OccurredAt:  occurred.UTC(),
	}
	if err := a.campus.CreateIncident(r.Context(), incident); err != nil {
		handleDomainError(w, r, err)
		return
	}

	if a.hub != nil {
		evt := stream.IncidentEvent{
			IncidentID: incident.ID,
			LocationID: incident.LocationID,
			Category:   incident.Category,
			Reporter:   incident.Reporter,
			OccurredAt: incident.OccurredAt,
			Timestamp:  time.Now().UTC(),
		}
		if loc, err := a.campus.GetLocation(r.Context(), incident.LocationID); err == nil {
			evt.Address = loc.StreetAddress + ", " + loc.City
		}
		a.hub.Publish(evt)
	}

	_ = audit.LogEvent(r.Context(), "incident.report", map[string]any{
		"incident_id": incident.ID,
		"location_id": incident.LocationID,
		"category":    incident.Category,
	})

	w.Header().Set("Location", "/v1/incidents/"+incident.ID)
	writeJSON(w, http.StatusCreated, incident)
}

func (a *API) getIncident(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := requireRole(r.Context(), campus.RoleAdmin, auth.RolePolice); err != nil {
		handleDomainError(w, r, err)
		return
	}
	incident, err := a.campus.GetIncident(r.Context(), id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, incident)
}
