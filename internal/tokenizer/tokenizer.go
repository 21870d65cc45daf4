// Package tokenizer implements the character-based Korean tokenizer
// used by the BM25 index: no morphological analysis, just Hangul-aware
// n-grams, a fixed stopword list, symptom-keyword weighting, and
// query-time synonym expansion.
package tokenizer

import (
	"strings"
	"unicode"
)

// stopwords mirror the original service's fixed particle/copula list —
// Korean BM25 has no stemmer, so these are filtered by exact match.
var stopwords = map[string]struct{}{
	"이": {}, "가": {}, "을": {}, "를": {}, "의": {}, "에": {}, "에서": {}, "으로": {}, "로": {}, "와": {}, "과": {},
	"는": {}, "은": {}, "도": {}, "만": {}, "까지": {}, "부터": {}, "에게": {}, "한테": {}, "께": {},
	"하다": {}, "있다": {}, "되다": {}, "없다": {}, "않다": {}, "이다": {}, "아니다": {},
	"그": {}, "저": {}, "이것": {}, "그것": {}, "저것": {}, "여기": {}, "거기": {}, "저기": {},
	"및": {}, "등": {}, "것": {}, "수": {}, "때": {}, "중": {}, "내": {}, "위": {}, "후": {}, "전": {},
	"좀": {}, "너무": {}, "매우": {}, "정말": {}, "아주": {}, "많이": {}, "조금": {}, "약간": {},
	"해요": {}, "합니다": {}, "해주세요": {}, "주세요": {}, "싶어요": {}, "같아요": {},
}

// SymptomKeywords get emitted twice by Tokenize, giving BM25's term
// frequency a built-in boost for lay symptom vocabulary without needing
// a separate weighting pass over the index.
var SymptomKeywords = map[string]struct{}{
	"두통": {}, "열": {}, "발열": {}, "기침": {}, "콧물": {}, "재채기": {}, "인후통": {}, "목아픔": {},
	"복통": {}, "설사": {}, "변비": {}, "구토": {}, "소화불량": {}, "속쓰림": {}, "위통": {},
	"근육통": {}, "관절통": {}, "요통": {}, "허리": {}, "어깨": {}, "무릎": {},
	"피로": {}, "무기력": {}, "권태": {}, "졸음": {}, "불면": {}, "두드러기": {},
	"가려움": {}, "발진": {}, "염증": {}, "통증": {}, "붓기": {}, "부종": {},
	"어지러움": {}, "현기증": {}, "메스꺼움": {}, "구역질": {},
	"감기": {}, "독감": {}, "알레르기": {}, "비염": {}, "천식": {},
}

// synonyms maps a lay-language surface form to the clinical terms it
// should expand to at query time. Matching is substring-based (the
// surface forms are verb stems like "머리가", not whole tokens), seeded
// from the symptom families documented for this tokenizer.
var synonyms = map[string][]string{
	"머리가": {"두통", "편두통"},
	"머리아": {"두통", "편두통"},
	"열나":   {"발열", "고열"},
	"열이":   {"발열", "고열"},
	"배가":   {"복통"},
	"배아":   {"복통"},
	"속이":   {"소화불량", "속쓰림"},
	"기침이":  {"기침"},
	"콧물이":  {"콧물", "비염"},
	"근육이":  {"근육통"},
	"잠이":   {"불면"},
	"못자":   {"불면"},
	"어지러":  {"어지러움", "현기증"},
	"토할":   {"구토", "메스꺼움"},
	"가려워":  {"가려움", "두드러기"},
}

// Tokenize splits text into BM25 corpus tokens: lowercase, strip
// non-word/non-Hangul runes, drop stopwords and single-character
// tokens, generate Hangul 2-gram/3-grams, double-emit symptom
// keywords, and optionally expand lay synonyms into their clinical
// equivalents. Synonym expansion should only run at query time —
// documents are indexed with the literal vocabulary they contain.
func Tokenize(text string, expandSynonyms bool) []string {
	if text == "" {
		return nil
	}
	text = strings.ToLower(text)
	text = stripNonWord(text)

	words := strings.Fields(text)
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if _, stop := stopwords[w]; stop {
			continue
		}
		if utf8RuneCount(w) <= 1 {
			continue
		}
		tokens = append(tokens, w)
	}

	out := make([]string, 0, len(tokens)*2)
	for _, tok := range tokens {
		out = append(out, tok)

		if isHangulOnly(tok) && utf8RuneCount(tok) >= 2 {
			out = append(out, ngrams(tok, 2)...)
			if utf8RuneCount(tok) >= 3 {
				out = append(out, ngrams(tok, 3)...)
			}
		}

		if _, ok := SymptomKeywords[tok]; ok {
			out = append(out, tok, tok)
		}

		if expandSynonyms {
			out = append(out, expand(tok)...)
		}
	}
	return out
}

// expand returns the synonym expansions whose lay surface form is a
// substring of tok (e.g. "머리가아파요" contains "머리가").
func expand(tok string) []string {
	var out []string
	for surface, clinical := range synonyms {
		if strings.Contains(tok, surface) {
			out = append(out, clinical...)
		}
	}
	return out
}

func stripNonWord(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsDigit(r) || unicode.IsLetter(r) || isHangulSyllable(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return b.String()
}

func isHangulSyllable(r rune) bool {
	return r >= 0xAC00 && r <= 0xD7A3
}

func isHangulOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !isHangulSyllable(r) {
			return false
		}
	}
	return true
}

func utf8RuneCount(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}

// ngrams returns all contiguous rune n-grams of length n from s.
func ngrams(s string, n int) []string {
	runes := []rune(s)
	if len(runes) < n {
		return nil
	}
	out := make([]string, 0, len(runes)-n+1)
	for i := 0; i+n <= len(runes); i++ {
		out = append(out, string(runes[i:i+n]))
	}
	return out
}
