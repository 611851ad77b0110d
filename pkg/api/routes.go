package api

import (
	"net/http"
)

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/search/workspace/{workspace_id}/{$}", s.HandleWorkspaceSearch)
	mux.HandleFunc("GET /api/search/workspace/{workspace_id}", s.HandleWorkspaceSearch)
	mux.HandleFunc("GET /api/search/types", s.HandleListTypes)
	mux.HandleFunc("GET /health", s.HandleHealth)
}
