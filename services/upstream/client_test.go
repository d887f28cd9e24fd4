package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angeraphael/parrainage/core"
	"github.com/angeraphael/parrainage/core/referral"
)

const treeBody = `{"success": true, "arbre": {
	"id": 1, "nom": "Diop", "prenom": "Awa", "niveau": 0,
	"enfants": [
		{"id": 2, "nom": "Fall", "prenom": "Moussa", "niveau": 1, "enfants": [
			{"id": 4, "nom": "Sarr", "prenom": "Fatou", "niveau": 2, "enfants": []}
		]},
		{"id": 3, "nom": "Ba", "prenom": "Ousmane", "niveau": 1, "enfants": []}
	]
}}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(core.UpstreamConfig{BaseURL: srv.URL + "/api", Timeout: 5 * time.Second})
}

func TestClient_FetchTree_request(t *testing.T) {
	var gotReq *http.Request
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotReq = r
		_, _ = w.Write([]byte(treeBody))
	})

	root, err := c.FetchTree(context.Background(), "s3cr3t", 5)
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, gotReq.Method)
	assert.Equal(t, "/api/parrainage/arbre", gotReq.URL.Path)
	assert.Equal(t, "5", gotReq.URL.Query().Get("profondeur"))
	assert.Equal(t, "Bearer s3cr3t", gotReq.Header.Get("Authorization"))
	assert.Equal(t, "application/json", gotReq.Header.Get("Accept"))

	stats, err := referral.ComputeStats(root)
	require.NoError(t, err)
	assert.Equal(t, referral.Stats{TotalMembers: 4, MaxLevel: 2}, stats)
}

func TestClient_FetchTree(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantNil   bool
		wantErr   *APIError
		wantValid bool
	}{
		{name: "no tree", status: http.StatusOK, body: `{"success": true, "arbre": null}`, wantNil: true},
		{name: "not successful", status: http.StatusOK, body: `{"success": false}`, wantNil: true},
		{name: "malformed tree", status: http.StatusOK, body: `{"success": true, "arbre": {"id": 1}}`, wantValid: true},
		{
			name: "unauthenticated", status: http.StatusUnauthorized, body: `{"message": "Unauthenticated."}`,
			wantErr: &APIError{Status: http.StatusUnauthorized, Message: "Unauthenticated."},
		},
		{
			name: "validation error", status: http.StatusUnprocessableEntity,
			body:    `{"message": "La profondeur est invalide", "errors": {"profondeur": ["trop grande"]}}`,
			wantErr: &APIError{Status: http.StatusUnprocessableEntity, Message: "La profondeur est invalide", Errors: map[string][]string{"profondeur": {"trop grande"}}},
		},
		{
			name: "non JSON error", status: http.StatusBadGateway, body: `<html>oops</html>`,
			wantErr: &APIError{Status: http.StatusBadGateway, Message: "Une erreur est survenue"},
		},
		{
			name: "non JSON success", status: http.StatusOK, body: `<html>oops</html>`,
			wantErr: &APIError{Status: http.StatusBadGateway, Message: "Réponse invalide du serveur"},
		},
		{
			name: "mistyped envelope", status: http.StatusOK, body: `{"success": "yes"}`,
			wantErr: &APIError{Status: http.StatusBadGateway, Message: "Réponse invalide du serveur"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			root, err := c.FetchTree(context.Background(), "token", 5)
			switch {
			case tt.wantNil:
				assert.NoError(t, err)
				assert.Nil(t, root)
			case tt.wantValid:
				var vErr *core.ValidationError
				assert.True(t, errors.As(err, &vErr), "want *core.ValidationError, got %v", err)
			default:
				var apiErr *APIError
				require.True(t, errors.As(err, &apiErr), "want *APIError, got %v", err)
				assert.Equal(t, tt.wantErr.Status, apiErr.Status)
				assert.Equal(t, tt.wantErr.Message, apiErr.Message)
				assert.Equal(t, tt.wantErr.Errors, apiErr.Errors)
			}
		})
	}
}

func TestClient_connectionError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(core.UpstreamConfig{BaseURL: url, Timeout: time.Second})
	_, err := c.FetchTree(context.Background(), "token", 5)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "want *APIError, got %v", err)
	assert.Equal(t, 0, apiErr.Status)
	assert.Equal(t, "Erreur de connexion au serveur", apiErr.Message)
}

func TestClient_cancelled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.FetchTree(ctx, "token", 5)
	assert.Equal(t, context.Canceled, err)
}

func TestClient_FetchFilleuls(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/parrainage/filleuls" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"success": true, "total": 2, "filleuls": [
			{"id": 5, "nom": "Ba", "prenom": "Ousmane", "niveau": 0, "a_fait_depot": false, "date_inscription": "2025-01-03"},
			{"id": 6, "nom": "Sow", "prenom": "Aïda", "niveau": 3, "niveau_label": "VIP", "a_fait_depot": true, "date_depot": "2025-02-01", "date_inscription": "2025-01-09", "nombre_filleuls": 4}
		]}`))
	})

	filleuls, err := c.FetchFilleuls(context.Background(), "token")
	require.NoError(t, err)
	require.Len(t, filleuls, 2)
	assert.Equal(t, "Ousmane", filleuls[0].FirstName)
	assert.False(t, filleuls[0].HasDeposited)
	assert.Nil(t, filleuls[0].ReferralsCount)
	assert.True(t, filleuls[1].HasDeposited)
	require.NotNil(t, filleuls[1].ReferralsCount)
	assert.Equal(t, 4, *filleuls[1].ReferralsCount)
}

func TestClient_FetchInfoAndMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/parrainage":
			_, _ = w.Write([]byte(`{"success": true, "niveau_actuel": 1, "code_parrainage": "AR-123", "nombre_filleuls": 0,
				"avantages_niveau_suivant": {"niveau_cible": 2, "condition": "3 filleuls", "avantage": "-10%"},
				"explication_systeme": {"intro": "Parrainez", "niveaux": [{"niveau": 1, "condition": "1 filleul", "avantage": "cours"}], "important": ["dépôt requis"]}}`))
		case "/api/parrainage/message":
			_, _ = w.Write([]byte(`{"message": "Rejoins-moi avec le code AR-123"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	info, err := c.FetchInfo(context.Background(), "token")
	require.NoError(t, err)
	assert.Equal(t, "AR-123", info.Code)
	assert.Equal(t, 1, info.CurrentLevel)
	assert.NotNil(t, info.Filleuls)
	require.NotNil(t, info.NextLevel)
	assert.Equal(t, 2, info.NextLevel.TargetLevel)
	assert.Len(t, info.Explanation.Levels, 1)

	msg, err := c.FetchShareMessage(context.Background(), "token")
	require.NoError(t, err)
	assert.Equal(t, "Rejoins-moi avec le code AR-123", msg)
}

func TestClient_FetchFilleuls_invalidResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>oops</html>`))
	})

	_, err := c.FetchFilleuls(context.Background(), "token")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "want *APIError, got %v", err)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "Réponse invalide du serveur", apiErr.Message)
	assert.Error(t, apiErr.Err)
}
