package http

import (
	"net/http"
	"strconv"
	"strings"

	"portal/internal/core"
)

type branchJSON struct {
	Name      string  `json:"name"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	DistanceM float64 `json:"distance_m"`
}

type nearestJSON struct {
	branchJSON
	Method string `json:"method"`
}

func (s *Server) handleBranches(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.refPoint(w, r)
	if !ok {
		return
	}

	out := make([]branchJSON, len(s.branches))
	for i, b := range s.branches {
		out[i] = branchJSON{
			Name:      b.Name,
			Lat:       b.Location.Lat,
			Lng:       b.Location.Lng,
			DistanceM: core.Haversine(ref, b.Location),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// handleNearestBranch picks the closest branch to the reference point. The
// default ranking is straight-line distance; ?by=road asks the routing
// server instead, whose answer depends on its road network data.
func (s *Server) handleNearestBranch(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.refPoint(w, r)
	if !ok {
		return
	}

	by := strings.TrimSpace(r.URL.Query().Get("by"))
	switch by {
	case "", "line":
		branch, distance, found := core.Nearest(ref, s.branches)
		if !found {
			writeError(w, http.StatusNotFound, "no branches available")
			return
		}
		writeJSON(w, http.StatusOK, nearestJSON{
			branchJSON: branchJSON{
				Name:      branch.Name,
				Lat:       branch.Location.Lat,
				Lng:       branch.Location.Lng,
				DistanceM: distance,
			},
			Method: "line",
		})
	case "road":
		if s.roadRouter == nil {
			writeError(w, http.StatusServiceUnavailable, "road routing is not configured")
			return
		}
		branch, distance, found := s.roadRouter.Nearest(r.Context(), ref, s.branches)
		if !found {
			writeError(w, http.StatusNotFound, "no reachable branches")
			return
		}
		writeJSON(w, http.StatusOK, nearestJSON{
			branchJSON: branchJSON{
				Name:      branch.Name,
				Lat:       branch.Location.Lat,
				Lng:       branch.Location.Lng,
				DistanceM: distance,
			},
			Method: "road",
		})
	default:
		writeError(w, http.StatusBadRequest, "unknown ranking method: "+by)
	}
}

// refPoint reads the reference coordinates from the query, falling back to
// the configured default. Malformed or out-of-range coordinates are a 422.
func (s *Server) refPoint(w http.ResponseWriter, r *http.Request) (core.Point, bool) {
	ref := s.reference

	latStr := strings.TrimSpace(r.URL.Query().Get("lat"))
	lngStr := strings.TrimSpace(r.URL.Query().Get("lng"))
	if latStr != "" || lngStr != "" {
		lat, latErr := strconv.ParseFloat(latStr, 64)
		lng, lngErr := strconv.ParseFloat(lngStr, 64)
		if latErr != nil || lngErr != nil {
			writeError(w, http.StatusUnprocessableEntity, "lat and lng must both be decimal degrees")
			return core.Point{}, false
		}
		ref = core.Point{Lat: lat, Lng: lng}
	}

	if err := ref.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return core.Point{}, false
	}
	return ref, true
}
