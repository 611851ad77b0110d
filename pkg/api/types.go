package api

import (
	"time"

	"github.com/rubiojr/wsearch/pkg/search"
)

// Error codes returned in ErrorResponse.Error.
const (
	ErrorRequestValidation  = "ERROR_REQUEST_BODY_VALIDATION"
	ErrorWorkspaceNotFound  = "ERROR_GROUP_DOES_NOT_EXIST"
	ErrorUserNotInWorkspace = "ERROR_USER_NOT_IN_GROUP"
	ErrorNotAuthenticated   = "ERROR_NOT_AUTHENTICATED"
	ErrorSearchFailed       = "ERROR_SEARCH_FAILED"
)

type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Detail  map[string]string `json:"detail,omitempty"`
}

// SearchResponse is the envelope of the workspace search endpoint.
type SearchResponse struct {
	Results []search.SearchResult `json:"results"`
	HasMore bool                  `json:"has_more"`
}

type TypeInfo struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Priority int    `json:"priority"`
}

type ListTypesResponse struct {
	Types []TypeInfo `json:"types"`
	Count int        `json:"count"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}
