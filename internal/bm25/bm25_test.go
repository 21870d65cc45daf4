package bm25

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocs() []Document {
	return []Document{
		{ID: "1", Text: "두통약 두통 완화"},
		{ID: "2", Text: "감기약 감기 증상 완화"},
		{ID: "3", Text: "소화제 위장약 소화"},
	}
}

func TestSearchReturnsRelevantTopResult(t *testing.T) {
	idx := Build(sampleDocs())
	results := idx.Search("두통", 5)
	require.NotEmpty(t, results)
	assert.Equal(t, "1", results[0].ID)
}

func TestSearchEmptyQueryTokens(t *testing.T) {
	idx := Build([]Document{{ID: "1", Text: "테스트 문서"}})
	results := idx.Search("이 가 을 를", 5)
	assert.Empty(t, results)
}

func TestSearchTopKLimit(t *testing.T) {
	docs := make([]Document, 0, 10)
	for i := 0; i < 10; i++ {
		docs = append(docs, Document{ID: string(rune('a' + i)), Text: "두통 완화 약품"})
	}
	idx := Build(docs)
	results := idx.Search("두통", 3)
	assert.LessOrEqual(t, len(results), 3)
}

func TestSearchNilIndex(t *testing.T) {
	var idx *Index
	assert.Nil(t, idx.Search("두통", 5))
}

type fakeSource struct {
	docs []Document
	err  error
}

func (f fakeSource) LoadDocuments(context.Context) ([]Document, error) { return f.docs, f.err }

func TestGetBuildsOnce(t *testing.T) {
	mu.Lock()
	current = nil
	mu.Unlock()

	src := fakeSource{docs: sampleDocs()}
	idx1, err := Get(context.Background(), src)
	require.NoError(t, err)
	idx2, err := Get(context.Background(), fakeSource{docs: nil})
	require.NoError(t, err)
	assert.Same(t, idx1, idx2)
}

func TestRefreshRebuilds(t *testing.T) {
	mu.Lock()
	current = nil
	mu.Unlock()

	_, err := Get(context.Background(), fakeSource{docs: sampleDocs()})
	require.NoError(t, err)

	refreshed, err := Refresh(context.Background(), fakeSource{docs: []Document{{ID: "9", Text: "새로운 문서"}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"9"}, refreshed.docIDs)
}
