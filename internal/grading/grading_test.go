package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchFreeText_KeywordThreshold(t *testing.T) {
	cfg := DefaultConfig()

	reference := "mitochondria produces energy via oxidative phosphorylation"

	testCases := []struct {
		name    string
		answer  string
		matched bool
	}{
		{
			// 3 из 5 значимых слов — ровно порог 60%
			name:    "enough keywords",
			answer:  "energy mitochondria phosphorylation",
			matched: true,
		},
		{
			name:    "too few keywords",
			answer:  "energy production",
			matched: false,
		},
		{
			name:    "case and punctuation ignored",
			answer:  "ENERGY, mitochondria... PHOSPHORYLATION!",
			matched: true,
		},
		{
			name:    "empty answer",
			answer:  "",
			matched: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := MatchFreeText(cfg, tc.answer, []string{reference})
			assert.Equal(t, tc.matched, got)
		})
	}
}

func TestMatchFreeText_SeveralReferences(t *testing.T) {
	cfg := DefaultConfig()

	references := []string{
		"completely different reference sentence here",
		"insulin lowers blood glucose",
	}

	assert.True(t, MatchFreeText(cfg, "glucose is lowered by insulin in blood", references))
	assert.False(t, MatchFreeText(cfg, "nothing relevant", references))
}

func TestMatchFreeText_ConfigurableThreshold(t *testing.T) {
	cfg := Config{KeywordThreshold: 1.0, MinKeywordLen: 3}

	reference := "insulin lowers blood glucose"

	// при пороге 100% трёх слов из четырёх уже не хватает
	assert.False(t, MatchFreeText(cfg, "insulin lowers glucose", []string{reference}))
	assert.True(t, MatchFreeText(cfg, "insulin lowers blood glucose", []string{reference}))
}

func TestGradeChoice(t *testing.T) {
	testCases := []struct {
		name     string
		selected []int64
		correct  []int64
		want     bool
	}{
		{name: "exact match single", selected: []int64{3}, correct: []int64{3}, want: true},
		{name: "wrong single", selected: []int64{2}, correct: []int64{3}, want: false},
		{name: "exact set", selected: []int64{1, 3}, correct: []int64{3, 1}, want: true},
		{name: "partial set", selected: []int64{1}, correct: []int64{1, 3}, want: false},
		{name: "extra option", selected: []int64{1, 3, 4}, correct: []int64{1, 3}, want: false},
		{name: "empty selection", selected: nil, correct: []int64{1}, want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, GradeChoice(tc.selected, tc.correct))
		})
	}
}
