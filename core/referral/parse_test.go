package referral

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angeraphael/parrainage/core"
)

const scenarioJSON = `{
	"id": 1, "nom": "Diop", "prenom": "Awa", "niveau": 0,
	"enfants": [
		{"id": 2, "nom": "Fall", "prenom": "Moussa", "niveau": 1, "enfants": [
			{"id": 4, "nom": "Sarr", "prenom": "Fatou", "niveau": 2, "enfants": []}
		]},
		{"id": 3, "nom": "Ba", "prenom": "Ousmane", "niveau": 1}
	]
}`

func fieldNames(t *testing.T, err error) map[string]string {
	t.Helper()
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr), "want *core.ValidationError, got %T: %v", err, err)
	flds := make(map[string]string, len(vErr.Fields))
	for _, f := range vErr.Fields {
		flds[f.Field] = f.Error
	}
	return flds
}

func TestParseTree(t *testing.T) {
	root, err := ParseTree([]byte(scenarioJSON))
	require.NoError(t, err)
	require.NotNil(t, root)

	assert.Equal(t, 1, root.ID)
	assert.Equal(t, "Awa", root.FirstName)
	assert.Equal(t, "Diop", root.LastName)
	require.Len(t, root.Children, 2)
	assert.Equal(t, 2, root.Children[0].ID)
	assert.Equal(t, 4, root.Children[0].Children[0].ID)
	assert.Equal(t, 3, root.Children[1].ID)
	assert.Empty(t, root.Children[1].Children)

	stats, err := ComputeStats(root)
	require.NoError(t, err)
	assert.Equal(t, Stats{TotalMembers: 4, MaxLevel: 2}, stats)
}

func TestParseTree_noData(t *testing.T) {
	for _, payload := range []string{"", "  ", "null", " null\n"} {
		root, err := ParseTree([]byte(payload))
		if err != nil || root != nil {
			t.Errorf("ParseTree(%q) = (%v, %v), want (nil, nil)", payload, root, err)
		}
	}
}

func TestParseTree_invalid(t *testing.T) {
	tests := []struct {
		name       string
		payload    string
		wantFields map[string]string
	}{
		{
			name:    "missing fields",
			payload: `{"nom": "Diop"}`,
			wantFields: map[string]string{
				"id":     "this field is required",
				"prenom": "this field is required",
				"niveau": "this field is required",
			},
		},
		{
			name:       "negative level",
			payload:    `{"id": 1, "nom": "Diop", "prenom": "Awa", "niveau": -1}`,
			wantFields: map[string]string{"niveau": "niveau must be 0 or greater"},
		},
		{
			name:       "nested missing field",
			payload:    `{"id": 1, "nom": "D", "prenom": "A", "niveau": 0, "enfants": [{"id": 2, "nom": "F", "niveau": 1}]}`,
			wantFields: map[string]string{"enfants[0].prenom": "this field is required"},
		},
		{
			name:       "blank names",
			payload:    `{"id": 1, "nom": "", "prenom": "  ", "niveau": 0}`,
			wantFields: map[string]string{"nom": "this field cannot be blank", "prenom": "this field cannot be blank"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := ParseTree([]byte(tt.payload))
			assert.Nil(t, root)
			assert.Equal(t, tt.wantFields, fieldNames(t, err))
		})
	}
}

func TestParseTree_malformed(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		wantField string
	}{
		{name: "children not a sequence", payload: `{"id": 1, "nom": "D", "prenom": "A", "niveau": 0, "enfants": {"id": 2}}`, wantField: "enfants"},
		{name: "id not an integer", payload: `{"id": "one", "nom": "D", "prenom": "A", "niveau": 0}`, wantField: "id"},
		{name: "not an object", payload: `[1, 2]`, wantField: "arbre"},
		{name: "syntax error", payload: `{"id": 1,`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTree([]byte(tt.payload))
			var vErr *core.ValidationError
			require.True(t, errors.As(err, &vErr), "want *core.ValidationError, got %T: %v", err, err)
			if tt.wantField == "" {
				assert.Empty(t, vErr.Fields)
				return
			}
			require.Len(t, vErr.Fields, 1)
			assert.Equal(t, tt.wantField, vErr.Fields[0].Field)
		})
	}
}
