package grading

import (
	"strings"
	"unicode"
)

// Config задаёт параметры эвристики проверки свободного текста.
// Пороги — настройки, а не инварианты: продукт ещё не определился
// с настоящей стратегией оценивания.
type Config struct {
	// KeywordThreshold — минимальная доля ключевых слов эталона,
	// которые должны встретиться в ответе.
	KeywordThreshold float64

	// MinKeywordLen — слова длиной не больше этого значения
	// не считаются ключевыми.
	MinKeywordLen int
}

// DefaultConfig возвращает параметры эвристики по умолчанию.
func DefaultConfig() Config {
	return Config{
		KeywordThreshold: 0.60,
		MinKeywordLen:    3,
	}
}

// normalize приводит строку к нижнему регистру, выбрасывает пунктуацию
// и схлопывает пробелы.
func normalize(s string) string {
	out := make([]rune, 0, len(s))
	space := false

	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			space = true
		case unicode.IsPunct(r):
			space = true
		default:
			if space && len(out) > 0 {
				out = append(out, ' ')
			}

			space = false

			out = append(out, unicode.ToLower(r))
		}
	}

	return string(out)
}

// keywords возвращает ключевые слова эталонного ответа.
func keywords(reference string, minLen int) []string {
	words := strings.Fields(normalize(reference))

	out := make([]string, 0, len(words))
	for _, word := range words {
		if len([]rune(word)) > minLen {
			out = append(out, word)
		}
	}

	return out
}

// MatchFreeText проверяет свободный текстовый ответ по эвристике
// вхождения ключевых слов. Эталон считается совпавшим, если не меньше
// KeywordThreshold его ключевых слов встречаются в ответе как подстроки.
// Результат — ориентировочная локальная оценка, не итоговая.
func MatchFreeText(cfg Config, userText string, references []string) bool {
	normalized := normalize(userText)
	if normalized == "" {
		return false
	}

	for _, reference := range references {
		words := keywords(reference, cfg.MinKeywordLen)
		if len(words) == 0 {
			continue
		}

		matched := 0

		for _, word := range words {
			if strings.Contains(normalized, word) {
				matched++
			}
		}

		if float64(matched)/float64(len(words)) >= cfg.KeywordThreshold {
			return true
		}
	}

	return false
}

// GradeChoice проверяет ответ на вопрос с вариантами: выбранное
// множество должно в точности совпасть с множеством правильных.
func GradeChoice(selected []int64, correct []int64) bool {
	if len(selected) != len(correct) {
		return false
	}

	set := make(map[int64]struct{}, len(correct))
	for _, id := range correct {
		set[id] = struct{}{}
	}

	for _, id := range selected {
		if _, ok := set[id]; !ok {
			return false
		}
	}

	return true
}
