package search

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchResultOmitsUnsetFields(t *testing.T) {
	r := SearchResult{Type: "database", ID: "1", Title: "Database 1"}
	assert.Equal(t, map[string]any{"type": "database", "id": "1", "title": "Database 1"}, r.ToMap())

	r.Subtitle = StringPtr("Database")
	r.Metadata = map[string]any{}
	m := r.ToMap()
	assert.Equal(t, "Database", m["subtitle"])
	assert.Contains(t, m, "metadata")
	assert.NotContains(t, m, "description")
	assert.NotContains(t, m, "created_on")

	raw, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"database","id":"1","title":"Database 1","subtitle":"Database","metadata":{}}`, string(raw))
}

func TestResponseJSON(t *testing.T) {
	resp := Response{
		Results:  []SearchResult{{Type: "builder", ID: "4", Title: "Test Builder"}},
		HasMore:  true,
		Degraded: []TypeError{{Type: "database_row", Stage: StageQuery}},
	}
	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"results":[{"type":"builder","id":"4","title":"Test Builder"}],"has_more":true}`, string(raw))
}

func TestDefaultPostprocess(t *testing.T) {
	rows := []Row{
		{
			SearchType: "database",
			ObjectID:   "3",
			Title:      "CRM",
			Subtitle:   StringPtr("Database"),
			Payload: map[string]any{
				"description":  "customers",
				"created_on":   "2025-01-01T00:00:00Z",
				"workspace_id": float64(1),
			},
		},
		{SearchType: "database", ObjectID: "4"},
	}

	results := DefaultPostprocess(rows)
	require.Len(t, results, 2)

	assert.Equal(t, "CRM", results[0].Title)
	require.NotNil(t, results[0].Description)
	assert.Equal(t, "customers", *results[0].Description)
	require.NotNil(t, results[0].CreatedOn)
	assert.Nil(t, results[0].UpdatedOn)
	assert.Equal(t, float64(1), results[0].Metadata["workspace_id"])

	assert.Equal(t, "4", results[1].Title, "title falls back to the object id")
	assert.NotNil(t, results[1].Metadata)
}

func TestTypeError(t *testing.T) {
	inner := assert.AnError
	te := TypeError{Type: "database_row", Stage: StagePostprocess, Err: inner}
	assert.ErrorIs(t, te, inner)
	assert.Contains(t, te.Error(), "database_row")
	assert.Contains(t, te.Error(), "postprocess")

	resp := &Response{Degraded: []TypeError{te}}
	assert.True(t, resp.IsDegraded())
	assert.ErrorIs(t, resp.DegradedError(), inner)
	assert.NoError(t, (&Response{}).DegradedError())
}
