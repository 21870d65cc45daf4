package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeEmpty(t *testing.T) {
	assert.Nil(t, Tokenize("", true))
}

func TestTokenizeRemovesStopwords(t *testing.T) {
	result := Tokenize("이 가 을 를", false)
	for _, sw := range []string{"이", "가", "을", "를"} {
		assert.NotContains(t, result, sw)
	}
}

func TestTokenizeRemovesShortTokens(t *testing.T) {
	result := Tokenize("a b c 약", false)
	for _, short := range []string{"a", "b", "c", "약"} {
		assert.NotContains(t, result, short)
	}
}

func TestTokenizeGeneratesNgrams(t *testing.T) {
	result := Tokenize("두통약", false)
	assert.Contains(t, result, "두통약")
	assert.Contains(t, result, "두통")
	assert.Contains(t, result, "통약")
}

func TestTokenizeSynonymExpansion(t *testing.T) {
	result := Tokenize("머리가 아파요", true)
	assert.True(t, contains(result, "두통") || contains(result, "편두통"))
}

func TestTokenizeNoSynonymExpansionIsSmaller(t *testing.T) {
	withSyn := Tokenize("배가 아파요", true)
	withoutSyn := Tokenize("배가 아파요", false)
	assert.GreaterOrEqual(t, len(withSyn), len(withoutSyn))
}

func TestTokenizeSymptomKeywordWeight(t *testing.T) {
	result := Tokenize("두통", false)
	count := 0
	for _, tok := range result {
		if tok == "두통" {
			count++
		}
	}
	assert.GreaterOrEqual(t, count, 2)
}

func TestTokenizePartialSynonymMatching(t *testing.T) {
	result := Tokenize("열나요", true)
	assert.True(t, contains(result, "발열") || contains(result, "고열"))
}

func TestTokenizeLowercasesASCII(t *testing.T) {
	result := Tokenize("ASPIRIN aspirin", false)
	assert.Contains(t, result, "aspirin")
}

func contains(ss []string, target string) bool {
	for _, s := range ss {
		if s == target {
			return true
		}
	}
	return false
}
