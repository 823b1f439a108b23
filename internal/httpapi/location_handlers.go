package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"offcampus.org/internal/audit"
	"offcampus.org/internal/auth"
	"offcampus.org/internal/campus"
)

type locationRequest struct {
	StreetAddress string `json:"street_address"`
	City          string `json:"city"`
	Zip           string `json:"zip"`
}

func (a *API) handleLocationsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listLocations(w, r)
	case http.MethodPost:
		a.createLocation(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleLocationResource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/locations/")

	// Counter increments are sub-resources: POST /v1/locations/{id}/warnings
	// and POST /v1/locations/{id}/citations.
	for suffix, counter := range map[string]string{"/warnings": "warning", "/citations": "citation"} {
		if idPart, ok := strings.CutSuffix(rest, suffix); ok {
			id, err := strconv.ParseInt(idPart, 10, 64)
			if err != nil {
				writeError(w, r, http.StatusNotFound, "location not found")
				return
			}
			if r.Method != http.MethodPost {
				methodNotAllowed(w, r, http.MethodPost)
				return
			}
			a.incrementLocationCounter(w, r, id, counter)
			return
		}
	}

	id, ok := resourceID(w, r, "/v1/locations/")
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.getLocation(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet)
	}
}

func (a *API) listLocations(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	items, page, err := a.campus.ListLocations(r.Context(), params)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Items: items, Page: page})
}

func (a *API) createLocation(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.StreetAddress) == "" || strings.TrimSpace(req.City) == "" {
		writeError(w, r, http.StatusBadRequest, "street_address and city are required")
		return
	}

	loc := &campus.Location{
		StreetAddress: strings.TrimSpace(req.StreetAddress),
		City:          strings.TrimSpace(req.City),
		Zip:           strings.TrimSpace(req.Zip),
	}
	if err := a.campus.CreateLocation(r.Context(), loc); err != nil {
		handleDomainError(w, r, err)
		return
	}

	w.Header().Set("Location", "/v1/locations/"+strconv.FormatInt(loc.ID, 10))
	writeJSON(w, http.StatusCreated, loc)
}

func (a *API) getLocation(w http.ResponseWriter, r *http.Request, id int64) {
	loc, err := a.campus.GetLocation(r.Context(), id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

// incrementLocationCounter records a warning or citation against the address.
// Police only: the counters feed the enforcement history of a rental and must
// not be inflatable by residents.
func (a *API) incrementLocationCounter(w http.ResponseWriter, r *http.Request, id int64, counter string) {
	claims, err := requireRole(r.Context(), auth.RolePolice)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	var loc *campus.Location
	switch counter {
	case "warning":
		loc, err = a.campus.AddLocationWarning(r.Context(), id)
	case "citation":
		loc, err = a.campus.AddLocationCitation(r.Context(), id)
	}
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "location."+counter, map[string]any{
		"location_id":    id,
		"officer":        claims.Email,
		"warning_count":  loc.WarningCount,
		"citation_count": loc.CitationCount,
	})

	writeJSON(w, http.StatusOK, loc)
}
