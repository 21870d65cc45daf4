package sparseencoder

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

func TestEncodeDisabled(t *testing.T) {
	c := NewClient(config.SparseEncoderConfig{Enabled: false})
	weights, ok, err := c.Encode(context.Background(), "두통")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, weights)
}

func TestEncodeSuccess(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := json.Marshal(map[string]any{"weights": map[string]float64{"두통": 2.5}})
		_, _ = w.Write(b)
	}))
	defer ts.Close()

	c := NewClient(config.SparseEncoderConfig{Enabled: true, BaseURL: ts.URL, MaxScore: 10})
	weights, ok, err := c.Encode(context.Background(), "두통")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2.5, weights["두통"])
	assert.Equal(t, 10.0, c.MaxScore())
}

func TestEncodeLatchesOffOnFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := NewClient(config.SparseEncoderConfig{Enabled: true, BaseURL: ts.URL})
	_, _, err := c.Encode(context.Background(), "두통")
	assert.Error(t, err)
	assert.True(t, c.Disabled())

	weights, ok, err := c.Encode(context.Background(), "두통")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, weights)
}
