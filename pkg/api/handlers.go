package api

import (
	"encoding/json"
	"net/http"

	"github.com/qrmfg/portal/pkg/rbac"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleMenu returns the navigation entries visible to the current
// principal. No principal means no menu, not an error dialog.
func (s *Server) handleMenu(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principals.Current()
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	menu := s.nav.BuildMenu(p)
	if s.metrics != nil {
		s.metrics.MenuBuildsTotal.Inc()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": menu})
}

type accessCheckRequest struct {
	Kind     rbac.RequirementKind `json:"kind"`
	Path     string               `json:"path,omitempty"`
	DataType string               `json:"data_type,omitempty"`
	Roles    []string             `json:"roles,omitempty"`
	Mode     rbac.RequireMode     `json:"mode,omitempty"`
}

type accessCheckResponse struct {
	Granted bool                 `json:"granted"`
	Source  rbac.DecisionSource  `json:"source,omitempty"`
	Kind    rbac.RequirementKind `json:"kind"`
}

// handleAccessCheck resolves a single declared requirement for the current
// principal. Errors resolve to denied; transport failures are already
// logged by the engine and never surface as user-facing errors.
func (s *Server) handleAccessCheck(w http.ResponseWriter, r *http.Request) {
	var req accessCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	resp := accessCheckResponse{Kind: req.Kind}
	switch req.Kind {
	case rbac.KindScreen:
		d, _ := s.engine.CheckScreen(r.Context(), req.Path)
		resp.Granted = d.Granted
		resp.Source = d.Source
	case rbac.KindData:
		d, _ := s.engine.CheckData(r.Context(), req.DataType)
		resp.Granted = d.Granted
		resp.Source = d.Source
	case rbac.KindRoles:
		roles := make([]rbac.Role, 0, len(req.Roles))
		for _, raw := range req.Roles {
			role, err := rbac.ParseRole(raw)
			if err != nil {
				// Unknown roles deny rather than default.
				writeJSON(w, http.StatusOK, accessCheckResponse{Kind: req.Kind})
				return
			}
			roles = append(roles, role)
		}
		mode := req.Mode
		if mode == "" {
			mode = rbac.ModeAny
		}
		resp.Granted = s.engine.CheckRoles(rbac.RoleRequirement(mode, roles...))
		resp.Source = rbac.SourceLocal
	default:
		http.Error(w, "unknown requirement kind", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleListQueries returns the quality queries visible to the current
// principal, plant-scoped and memoized per principal in the response
// cache.
func (s *Server) handleListQueries(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principals.Current()
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	cacheKey := "queries:" + p.ID
	if s.cache != nil {
		if payload, hit, err := s.cache.Get(r.Context(), cacheKey); err == nil && hit {
			if s.metrics != nil {
				s.metrics.ResponseCacheHitsTotal.Inc()
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write(payload)
			return
		}
		if s.metrics != nil {
			s.metrics.ResponseCacheMissesTotal.Inc()
		}
	}

	visible := rbac.FilterByPlant(s.queries.List(), func(q Query) rbac.PlantCode {
		return q.Plant
	}, p)

	payload, err := json.Marshal(map[string]interface{}{"queries": visible})
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if s.cache != nil {
		if err := s.cache.Set(r.Context(), cacheKey, payload, 0); err != nil {
			s.log.WithError(err).Warn("failed to cache query list")
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}

type createQueryRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	MaterialCode string `json:"material_code,omitempty"`
	ProjectCode  string `json:"project_code,omitempty"`
	Plant        string `json:"plant"`
}

// handleCreateQuery creates a quality query from sanitized form input.
// Input that cannot be sanitized cleanly is rejected, not stored.
func (s *Server) handleCreateQuery(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principals.Current()
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var req createQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Title == "" || req.Plant == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"errors": []string{"title and plant are required"},
		})
		return
	}

	plant := rbac.PlantCode(req.Plant)
	if !p.IsAdmin() && !p.HasPlant(plant) {
		// Raising a query against a plant outside the principal's scope is
		// denied the same way reading one is.
		http.NotFound(w, r)
		return
	}

	title := s.sanitizer.Sanitize(req.Title)
	desc := s.sanitizer.Sanitize(req.Description)
	if errs := append(title.Errors, desc.Errors...); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": errs})
		return
	}

	created := s.queries.Add(Query{
		Title:        title.SanitizedValue,
		Description:  desc.SanitizedValue,
		MaterialCode: req.MaterialCode,
		ProjectCode:  req.ProjectCode,
		Plant:        plant,
		RaisedBy:     p.ID,
	})

	if s.cache != nil {
		if _, err := s.cache.Invalidate(r.Context(), "queries:*"); err != nil {
			s.log.WithError(err).Warn("failed to invalidate query cache")
		}
	}

	writeJSON(w, http.StatusCreated, created)
}

// handleCacheStats feeds the admin cache-monitor screen with both decision
// cache and response cache counters.
func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"decision_cache": s.engine.CacheStats(),
	}
	if s.cache != nil {
		stats["response_cache"] = s.cache.Stats()
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleAudit returns the most recent access-decision audit entries.
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"entries": []struct{}{}})
		return
	}

	entries, err := s.audit.Recent(r.Context(), 100)
	if err != nil {
		s.log.WithError(err).Error("failed to load audit entries")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
