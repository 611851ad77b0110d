package search

import (
	"encoding/json"
)

// User is the caller of a search.
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Workspace is the scope of a search.
type Workspace struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// SearchContext carries the parameters of one search call. It is built once
// by the handler and passed by value to every type.
type SearchContext struct {
	Query  string
	Limit  int
	Offset int
}

// SearchResult is one item of the result list. Optional fields are omitted
// from the output mapping when unset.
type SearchResult struct {
	Type        string
	ID          string
	Title       string
	Subtitle    *string
	Description *string
	Metadata    map[string]any
	CreatedOn   *string
	UpdatedOn   *string
}

// ToMap returns the output mapping of the result.
func (r SearchResult) ToMap() map[string]any {
	m := map[string]any{
		"type":  r.Type,
		"id":    r.ID,
		"title": r.Title,
	}
	if r.Subtitle != nil {
		m["subtitle"] = *r.Subtitle
	}
	if r.Description != nil {
		m["description"] = *r.Description
	}
	if r.Metadata != nil {
		m["metadata"] = r.Metadata
	}
	if r.CreatedOn != nil {
		m["created_on"] = *r.CreatedOn
	}
	if r.UpdatedOn != nil {
		m["updated_on"] = *r.UpdatedOn
	}
	return m
}

func (r SearchResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.ToMap())
}

// Row is one row of the normalized projection every type contributes to the
// combined query.
type Row struct {
	SearchType string
	ObjectID   string
	SortKey    int64
	Rank       *float64
	Priority   int
	Title      string
	Subtitle   *string
	Payload    map[string]any
}

// Record is a concrete entity loaded by a type-scoped search.
type Record struct {
	ID        int64
	Name      string
	CreatedOn *string
	UpdatedOn *string
	Attrs     map[string]any
}

// Response is the outcome of a workspace search.
type Response struct {
	Results []SearchResult `json:"results"`
	HasMore bool           `json:"has_more"`

	// Degraded lists the types that were left out of this response.
	Degraded []TypeError `json:"-"`
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

func payloadString(payload map[string]any, key string) *string {
	v, ok := payload[key]
	if !ok || v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

// PayloadInt64 reads an integer from a decoded JSON payload.
func PayloadInt64(payload map[string]any, key string) (int64, bool) {
	switch v := payload[key].(type) {
	case float64:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case int64:
		return v, true
	case int:
		return int64(v), true
	}
	return 0, false
}
