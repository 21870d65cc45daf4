package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retrievalcore/internal/config"
)

func writeEmbeddings(w http.ResponseWriter, dims ...int) {
	data := make([]map[string]interface{}, len(dims))
	for i, d := range dims {
		vec := make([]float32, d)
		for j := range vec {
			vec[j] = 0.1
		}
		data[i] = map[string]interface{}{"embedding": vec}
	}
	b, _ := json.Marshal(map[string]interface{}{"data": data})
	_, _ = w.Write(b)
}

func TestEmbedText_BearerAuth(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		writeEmbeddings(w, 3)
	}))
	defer ts.Close()

	cfg := config.EmbeddingConfig{BaseURL: ts.URL, Path: "/", Model: "m", AuthHeader: "Authorization", APIKey: "secret", Dimensions: 3}
	out, err := EmbedText(context.Background(), cfg, []string{"x"})
	require.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Len(t, out[0], 3)
}

func TestEmbedText_CustomHeader(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "abc", r.Header.Get("x-api-key"))
		writeEmbeddings(w, 2)
	}))
	defer ts.Close()

	cfg := config.EmbeddingConfig{BaseURL: ts.URL, Path: "/", Model: "m", AuthHeader: "x-api-key", APIKey: "abc"}
	_, err := EmbedText(context.Background(), cfg, []string{"x"})
	require.NoError(t, err)
}

func TestEmbedText_DimensionMismatch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEmbeddings(w, 4)
	}))
	defer ts.Close()

	cfg := config.EmbeddingConfig{BaseURL: ts.URL, Path: "/", Model: "m", Dimensions: 1536}
	_, err := EmbedText(context.Background(), cfg, []string{"x"})
	assert.Error(t, err)
}

func TestEmbedText_CountMismatch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEmbeddings(w, 2)
	}))
	defer ts.Close()

	cfg := config.EmbeddingConfig{BaseURL: ts.URL, Path: "/", Model: "m"}
	_, err := EmbedText(context.Background(), cfg, []string{"x", "y"})
	assert.Error(t, err)
}

func TestCheckReachability(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEmbeddings(w, 1)
	}))
	defer ts.Close()

	cfg := config.EmbeddingConfig{BaseURL: ts.URL, Path: "/", Model: "m"}
	require.NoError(t, CheckReachability(context.Background(), cfg))
}
