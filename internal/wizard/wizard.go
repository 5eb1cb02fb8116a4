package wizard

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/letsssgooo/quizTaker/internal/api"
	"github.com/letsssgooo/quizTaker/internal/domain/models"
)

// Config — конфигурация создания квиза, накапливаемая по шагам.
type Config struct {
	UnitIDs          []int64
	ModuleIDs        []int64
	Types            []models.QuestionType // пустой — все типы
	YearFrom         int                   // 0 — без нижней границы
	YearTo           int                   // 0 — без верхней границы
	Count            int
	Title            string
	QuizType         models.QuizType
	TimeLimitMinutes int
}

// Wizard собирает сессию квиза: тянет вопросы-кандидаты с бэкенда,
// фильтрует на клиенте, сэмплирует и создаёт сессию.
type Wizard struct {
	client api.Client
	rng    *rand.Rand
}

// NewWizard создаёт новый Wizard.
func NewWizard(client api.Client) *Wizard {
	return &Wizard{
		client: client,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CollectQuestions тянет кандидатов по выбранным блокам и модулям,
// применяет фильтры по типу и году и убирает дубли по question id.
func (w *Wizard) CollectQuestions(ctx context.Context, cfg Config) ([]models.Question, error) {
	if err := ValidateCourseStep(cfg); err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{})
	questions := make([]models.Question, 0, 64)

	appendQuestions := func(batch []models.Question) {
		for _, q := range batch {
			if _, ok := seen[q.ID]; ok {
				continue
			}

			if !matchesFilters(cfg, q) {
				continue
			}

			seen[q.ID] = struct{}{}
			questions = append(questions, q)
		}
	}

	for _, unitID := range cfg.UnitIDs {
		batch, err := w.client.QuestionsByUnit(ctx, unitID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch questions for unit %d: %w", unitID, err)
		}

		appendQuestions(batch)
	}

	for _, moduleID := range cfg.ModuleIDs {
		batch, err := w.client.QuestionsByModule(ctx, moduleID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch questions for module %d: %w", moduleID, err)
		}

		appendQuestions(batch)
	}

	return questions, nil
}

func matchesFilters(cfg Config, q models.Question) bool {
	if len(cfg.Types) > 0 {
		found := false

		for _, t := range cfg.Types {
			if q.Type == t {
				found = true
				break
			}
		}

		if !found {
			return false
		}
	}

	if cfg.YearFrom > 0 && q.Year != 0 && q.Year < cfg.YearFrom {
		return false
	}

	if cfg.YearTo > 0 && q.Year != 0 && q.Year > cfg.YearTo {
		return false
	}

	return true
}

// Sample случайно выбирает не больше n вопросов из кандидатов.
// Исходный слайс не изменяется.
func (w *Wizard) Sample(questions []models.Question, n int) []models.Question {
	if n >= len(questions) {
		out := make([]models.Question, len(questions))
		copy(out, questions)

		return out
	}

	indexes := w.rng.Perm(len(questions))

	out := make([]models.Question, 0, n)
	for _, idx := range indexes[:n] {
		out = append(out, questions[idx])
	}

	return out
}

// CreateSession запрашивает создание сессии на бэкенде и возвращает
// локальную модель сессии с серверным id.
func (w *Wizard) CreateSession(
	ctx context.Context,
	cfg Config,
	questions []models.Question,
) (*models.Session, error) {
	if err := ValidateCountStep(cfg, len(questions)); err != nil {
		return nil, err
	}

	title := SanitizeTitle(cfg.Title)

	if err := validateTitle(title); err != nil {
		return nil, err
	}

	picked := w.Sample(questions, cfg.Count)

	questionIDs := make([]int64, 0, len(picked))
	for _, q := range picked {
		questionIDs = append(questionIDs, q.ID)
	}

	quizType := cfg.QuizType
	if quizType == "" {
		quizType = models.QuizTypePractice
	}

	resp, err := w.client.CreateSession(ctx, api.CreateSessionRequest{
		// клиентский id запроса: бэкенд дедуплицирует повторные создания
		ClientRequestID: uuid.NewString(),
		Type:            quizType,
		QuestionIDs:     questionIDs,
		Title:           title,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	now := time.Now()

	return &models.Session{
		ID:               resp.SessionID,
		Title:            title,
		Type:             quizType,
		Status:           resp.Status,
		Questions:        picked,
		TimeLimitMinutes: cfg.TimeLimitMinutes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}
