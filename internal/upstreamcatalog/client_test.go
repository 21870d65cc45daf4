package upstreamcatalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanStripsTagsAndEntities(t *testing.T) {
	got := Clean("<p>두통 &amp; 발열</p>   시 복용")
	assert.Equal(t, "두통 & 발열 시 복용", got)
}

func TestFetchPagesStopsOnHasMoreFalse(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		more := calls < 2
		_ = json.NewEncoder(w).Encode(pageResponse{
			Items: []RawDrug{{ID: "d1", Name: "타이레놀"}},
			More:  more,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	items, err := c.FetchPages(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Len(t, items, 2)
}

func TestFetchPagesPropagatesStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.FetchPages(context.Background(), 1)
	assert.Error(t, err)
}
