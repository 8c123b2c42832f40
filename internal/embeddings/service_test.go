package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewService(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:   "valid config",
			config: Config{BaseURL: "http://localhost:8080", Model: "BAAI/bge-small-en-v1.5"},
		},
		{
			name:    "missing base URL",
			config:  Config{Model: "BAAI/bge-small-en-v1.5"},
			wantErr: ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewService(tt.config)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, svc)
		})
	}
}

func TestService_EmbedDocuments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/embed", r.URL.Path)

		var req teiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Truncate)

		inputs, ok := req.Inputs.([]interface{})
		require.True(t, ok)

		out := make([][]float32, len(inputs))
		for i := range out {
			out[i] = []float32{0.1, 0.2, 0.3}
		}
		require.NoError(t, json.NewEncoder(w).Encode(out))
	}))
	defer server.Close()

	svc, err := NewService(Config{BaseURL: server.URL, Model: "test-model"})
	require.NoError(t, err)

	embeddings, err := svc.EmbedDocuments(context.Background(), []string{"hello", "world"})
	require.NoError(t, err)
	require.Len(t, embeddings, 2)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, embeddings[0])
}

func TestService_EmbedDocuments_Empty(t *testing.T) {
	svc, err := NewService(Config{BaseURL: "http://localhost:1", Model: "test-model"})
	require.NoError(t, err)

	_, err = svc.EmbedDocuments(context.Background(), nil)
	require.ErrorIs(t, err, ErrEmptyInput)
}

func TestService_EmbedDocuments_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	svc, err := NewService(Config{BaseURL: server.URL, Model: "test-model"})
	require.NoError(t, err)

	_, err = svc.EmbedDocuments(context.Background(), []string{"hello"})
	require.ErrorIs(t, err, ErrEmbeddingFailed)
	assert.Contains(t, err.Error(), "503")
}

func TestService_EmbedDocuments_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode([][]float32{{0.1}}))
	}))
	defer server.Close()

	svc, err := NewService(Config{BaseURL: server.URL, Model: "test-model"})
	require.NoError(t, err)

	_, err = svc.EmbedDocuments(context.Background(), []string{"a", "b"})
	require.ErrorIs(t, err, ErrEmbeddingFailed)
}

func TestService_EmbedQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode([][]float32{{0.5, 0.5}}))
	}))
	defer server.Close()

	svc, err := NewService(Config{BaseURL: server.URL, Model: "test-model"})
	require.NoError(t, err)

	vec, err := svc.EmbedQuery(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.5}, vec)

	_, err = svc.EmbedQuery(context.Background(), "")
	require.ErrorIs(t, err, ErrEmptyInput)
}

func TestDetectDimensionFromModel(t *testing.T) {
	assert.Equal(t, 384, detectDimensionFromModel("BAAI/bge-small-en-v1.5"))
	assert.Equal(t, 768, detectDimensionFromModel("BAAI/bge-base-en-v1.5"))
	assert.Equal(t, 1024, detectDimensionFromModel("BAAI/bge-large-en-v1.5"))
	assert.Equal(t, 384, detectDimensionFromModel("unknown"))
}
