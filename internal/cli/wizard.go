package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/letsssgooo/quizTaker/internal/domain/models"
	"github.com/letsssgooo/quizTaker/internal/wizard"
)

// runWizard проводит пользователя по трём шагам создания квиза:
// выбор блоков, необязательные фильтры, количество и название.
// Каждый шаг валидируется до перехода к следующему.
func (a *App) runWizard(ctx context.Context) (*models.Session, error) {
	cfg := wizard.Config{QuizType: models.QuizTypePractice}

	// шаг 1: учебные блоки
	units, err := a.client.Units(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch units: %w", err)
	}

	if len(units) == 0 {
		return nil, errors.New("backend returned no units")
	}

	fmt.Fprintln(a.out, "Учебные блоки:")

	for i, unit := range units {
		fmt.Fprintf(a.out, "  %d) %s\n", i+1, unit.Name)
	}

	for {
		raw, promptErr := a.prompt("Номера блоков через запятую: ")
		if promptErr != nil {
			return nil, promptErr
		}

		cfg.UnitIDs = cfg.UnitIDs[:0]

		for _, part := range strings.Split(raw, ",") {
			number, convErr := strconv.Atoi(strings.TrimSpace(part))
			if convErr != nil || number < 1 || number > len(units) {
				continue
			}

			cfg.UnitIDs = append(cfg.UnitIDs, units[number-1].ID)
		}

		if err = wizard.ValidateCourseStep(cfg); err == nil {
			break
		}

		fmt.Fprintln(a.out, "Нужно выбрать хотя бы один блок.")
	}

	// шаг 2: необязательные фильтры
	raw, err := a.prompt("Типы вопросов (qcu,qcm,text; пусто — все): ")
	if err != nil {
		return nil, err
	}

	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		cfg.Types = append(cfg.Types, models.NormalizeQuestionType(part))
	}

	raw, err = a.prompt("Годы (например 2019-2023; пусто — все): ")
	if err != nil {
		return nil, err
	}

	if from, to, ok := parseYearRange(raw); ok {
		cfg.YearFrom = from
		cfg.YearTo = to
	}

	questions, err := a.wizard.CollectQuestions(ctx, cfg)
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(a.out, "Доступно вопросов: %d\n", len(questions))

	// шаг 3: количество и название
	for {
		raw, err = a.prompt("Сколько вопросов взять: ")
		if err != nil {
			return nil, err
		}

		cfg.Count, _ = strconv.Atoi(strings.TrimSpace(raw))

		if err = wizard.ValidateCountStep(cfg, len(questions)); err == nil {
			break
		}

		fmt.Fprintln(a.out, err.Error())
	}

	for {
		raw, err = a.prompt("Название квиза: ")
		if err != nil {
			return nil, err
		}

		cfg.Title = raw

		if wizard.SanitizeTitle(raw) != "" {
			break
		}

		fmt.Fprintln(a.out, "Название пустое после очистки, попробуйте другое.")
	}

	raw, err = a.prompt("Лимит времени в минутах (пусто — без лимита): ")
	if err != nil {
		return nil, err
	}

	cfg.TimeLimitMinutes, _ = strconv.Atoi(strings.TrimSpace(raw))

	sess, err := a.wizard.CreateSession(ctx, cfg, questions)
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(a.out, "Сессия создана: %s (%s)\n", sess.Title, sess.ID)

	return sess, nil
}

func (a *App) prompt(label string) (string, error) {
	fmt.Fprint(a.out, label)

	if !a.in.Scan() {
		if err := a.in.Err(); err != nil {
			return "", err
		}

		return "", errors.New("input closed")
	}

	return strings.TrimSpace(a.in.Text()), nil
}

func parseYearRange(raw string) (int, int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, 0, false
	}

	parts := strings.SplitN(raw, "-", 2)

	from, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}

	to := from

	if len(parts) == 2 {
		if to, err = strconv.Atoi(strings.TrimSpace(parts[1])); err != nil {
			return 0, 0, false
		}
	}

	return from, to, true
}
