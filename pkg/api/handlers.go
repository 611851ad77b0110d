package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rubiojr/wsearch/pkg/log"
	"github.com/rubiojr/wsearch/pkg/search"
	"github.com/rubiojr/wsearch/pkg/version"
)

type searchParams struct {
	query  string
	limit  int
	offset int
}

func (s *Server) parseSearchParams(values url.Values) (searchParams, map[string]string) {
	params := searchParams{limit: s.limits.DefaultLimit}
	detail := map[string]string{}

	params.query = strings.TrimSpace(values.Get("query"))
	switch n := utf8.RuneCountInString(params.query); {
	case n == 0:
		detail["query"] = "This field is required."
	case n > s.limits.MaxQueryLength:
		detail["query"] = fmt.Sprintf("Ensure this field has no more than %d characters.", s.limits.MaxQueryLength)
	}

	if v := values.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		switch {
		case err != nil:
			detail["limit"] = "A valid integer is required."
		case limit < 1:
			detail["limit"] = "Ensure this value is greater than or equal to 1."
		case limit > s.limits.MaxLimit:
			detail["limit"] = fmt.Sprintf("Ensure this value is less than or equal to %d.", s.limits.MaxLimit)
		default:
			params.limit = limit
		}
	}

	if v := values.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		switch {
		case err != nil:
			detail["offset"] = "A valid integer is required."
		case offset < 0:
			detail["offset"] = "Ensure this value is greater than or equal to 0."
		default:
			params.offset = offset
		}
	}

	if len(detail) > 0 {
		return params, detail
	}
	return params, nil
}

func (s *Server) HandleWorkspaceSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := s.logger.With("request_id", RequestID(ctx))

	user, err := s.users.ResolveUser(r)
	if err != nil {
		if !errors.Is(err, ErrNoUser) {
			logger.Errorf("resolving user: %v", err)
		}
		s.writeError(w, http.StatusUnauthorized, ErrorNotAuthenticated, "Authentication credentials were not provided.", nil)
		return
	}

	workspaceID, err := strconv.ParseInt(r.PathValue("workspace_id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusNotFound, ErrorWorkspaceNotFound, "The requested workspace does not exist.", nil)
		return
	}

	params, detail := s.parseSearchParams(r.URL.Query())
	if detail != nil {
		s.writeError(w, http.StatusBadRequest, ErrorRequestValidation, "Invalid query parameters.", detail)
		return
	}

	workspace, err := s.workspaces.GetWorkspace(ctx, workspaceID)
	if err != nil {
		s.writeSearchError(w, logger, err)
		return
	}

	resp, err := s.handler.SearchWorkspace(ctx, user, workspace, params.query, params.limit, params.offset)
	if err != nil {
		s.writeSearchError(w, logger, err)
		return
	}
	for _, te := range resp.Degraded {
		logger.With("workspace", workspace.ID, "type", te.Type, "stage", te.Stage).Warnf("results incomplete: %v", te.Err)
	}

	results := resp.Results
	if results == nil {
		results = []search.SearchResult{}
	}
	s.writeJSON(w, http.StatusOK, SearchResponse{Results: results, HasMore: resp.HasMore})
}

func (s *Server) writeSearchError(w http.ResponseWriter, logger *log.Logger, err error) {
	switch {
	case errors.Is(err, search.ErrWorkspaceNotFound):
		s.writeError(w, http.StatusNotFound, ErrorWorkspaceNotFound, "The requested workspace does not exist.", nil)
	case errors.Is(err, search.ErrUserNotInWorkspace):
		s.writeError(w, http.StatusBadRequest, ErrorUserNotInWorkspace, "The user doesn't belong to the workspace.", nil)
	default:
		logger.Errorf("workspace search failed: %v", err)
		s.writeError(w, http.StatusInternalServerError, ErrorSearchFailed, "Search failed.", nil)
	}
}

func (s *Server) HandleListTypes(w http.ResponseWriter, r *http.Request) {
	all := s.handler.Registry().All()
	infos := make([]TypeInfo, 0, len(all))
	for _, t := range all {
		infos = append(infos, TypeInfo{Type: t.Type(), Name: t.Name(), Priority: t.Priority()})
	}

	s.writeJSON(w, http.StatusOK, ListTypesResponse{Types: infos, Count: len(infos)})
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   version.APIVersion(),
	}

	s.writeJSON(w, http.StatusOK, health)
}
