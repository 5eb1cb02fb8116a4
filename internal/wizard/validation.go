package wizard

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrValidation — базовая ошибка валидации шага мастера.
var ErrValidation = errors.New("validation error")

// maxTitleLen — предел длины названия, дальше бэкенд обрезает сам.
const maxTitleLen = 100

// titleDenied вырезает из названия всё, кроме букв, цифр, пробелов,
// дефисов, скобок, точек, запятых и двоеточий. Бэкенд отклоняет
// названия со спецсимволами, и до него такие не должны доходить.
var titleDenied = regexp.MustCompile(`[^a-zA-Z0-9 \-().,:]`)

// ValidateCourseStep проверяет первый шаг: выбран хотя бы один
// учебный блок или модуль.
func ValidateCourseStep(cfg Config) error {
	if len(cfg.UnitIDs) == 0 && len(cfg.ModuleIDs) == 0 {
		return fmt.Errorf("%w, select at least one unit or module", ErrValidation)
	}

	return nil
}

// ValidateCountStep проверяет шаг количества вопросов:
// 1 <= запрошено <= доступно.
func ValidateCountStep(cfg Config, available int) error {
	if cfg.Count < 1 {
		return fmt.Errorf("%w, question count must be at least 1", ErrValidation)
	}

	if cfg.Count > available {
		return fmt.Errorf(
			"%w, requested %d questions but only %d available",
			ErrValidation,
			cfg.Count,
			available,
		)
	}

	return nil
}

// SanitizeTitle приводит название к виду, который примет бэкенд.
func SanitizeTitle(title string) string {
	title = titleDenied.ReplaceAllString(title, "")
	title = strings.TrimSpace(title)

	runes := []rune(title)
	if len(runes) > maxTitleLen {
		title = string(runes[:maxTitleLen])
	}

	return strings.TrimSpace(title)
}

func validateTitle(sanitized string) error {
	if sanitized == "" {
		return fmt.Errorf("%w, title is empty after sanitization", ErrValidation)
	}

	return nil
}
