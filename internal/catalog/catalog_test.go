package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDrugSearchableTextLeadsWithEfficacy(t *testing.T) {
	d := Drug{Name: "타이레놀", Efficacy: "해열, 진통", CautionInfo: strings.Repeat("주의사항 ", 100)}
	text := d.SearchableText()
	assert.True(t, strings.HasPrefix(text, "해열, 진통"))
	assert.Contains(t, text, "product: 타이레놀")
}

func TestDrugSearchableTextTruncatesCaution(t *testing.T) {
	d := Drug{Name: "x", Efficacy: "y", CautionInfo: strings.Repeat("a", 500)}
	text := d.SearchableText()
	applies := strings.SplitN(text, "applies: ", 2)[1]
	assert.LessOrEqual(t, len(applies), 200)
}

func TestDrugIndexTextDiffersFromSearchableText(t *testing.T) {
	d := Drug{Name: "아스피린", Efficacy: "두통 완화", UseMethod: "1일 3회", CautionInfo: "공복 복용 금지", SideEffects: "위장장애"}
	assert.NotEqual(t, d.IndexText(), d.SearchableText())
}

func TestDiseaseSearchableText(t *testing.T) {
	d := Disease{Name: "편두통", Symptoms: "두통, 메스꺼움", Causes: "스트레스", Treatment: "진통제"}
	text := d.SearchableText()
	assert.Equal(t, "질병: 편두통. 증상: 두통, 메스꺼움. 원인: 스트레스. 치료: 진통제", text)
}
