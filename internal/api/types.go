package api

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/letsssgooo/quizTaker/internal/domain/models"
)

// ErrSessionCompleted возвращается бэкендом при попытке изменить ответ
// в уже завершённой сессии. Клиент обязан показать это как уведомление,
// а не как падение.
var ErrSessionCompleted = errors.New("cannot modify completed quiz session")

// CreateSessionRequest — запрос на создание сессии.
type CreateSessionRequest struct {
	ClientRequestID string          `json:"clientRequestId,omitempty"`
	Type            models.QuizType `json:"type"`
	QuestionIDs     []int64         `json:"questionIds"`
	Title           string          `json:"title"`
}

// CreateSessionResponse — ответ на создание сессии.
type CreateSessionResponse struct {
	SessionID string               `json:"sessionId"`
	Status    models.SessionStatus `json:"status"`
}

// UpdateAnswerRequest — запрос на изменение одного ответа (режим
// редактирования). Заполняется ровно одно поле.
type UpdateAnswerRequest struct {
	SelectedAnswerID  *int64  `json:"selectedAnswerId,omitempty"`
	SelectedAnswerIDs []int64 `json:"selectedAnswerIds,omitempty"`
}

// AnswerSubmission — одна запись массовой отправки ответов.
// Форма строго по типу вопроса: либо selectedAnswerId, либо selectedAnswerIds.
type AnswerSubmission struct {
	QuestionID        int64   `json:"questionId"`
	SelectedAnswerID  *int64  `json:"selectedAnswerId,omitempty"`
	SelectedAnswerIDs []int64 `json:"selectedAnswerIds,omitempty"`
	TimeSpent         int     `json:"timeSpent"`
}

// BulkSubmitRequest — запрос массовой отправки ответов сессии.
type BulkSubmitRequest struct {
	Answers        []AnswerSubmission `json:"answers"`
	TotalTimeSpent int                `json:"totalTimeSpent,omitempty"`
}

// SubmitResult — авторитетный результат сессии, посчитанный бэкендом.
// Имеет приоритет над любой локальной оценкой.
type SubmitResult struct {
	ScoreOutOf20      float64              `json:"scoreOutOf20"`
	PercentageScore   float64              `json:"percentageScore"`
	TimeSpent         int                  `json:"timeSpent"`
	AnsweredQuestions int                  `json:"answeredQuestions"`
	TotalQuestions    int                  `json:"totalQuestions"`
	Status            models.SessionStatus `json:"status"`
}

// Unit — учебный блок, по которому можно запросить вопросы.
type Unit struct {
	ID      int64    `json:"id"`
	Name    string   `json:"name"`
	Modules []Module `json:"modules,omitempty"`
}

// Module — модуль внутри учебного блока.
type Module struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Client определяет интерфейс клиента бэкенда квизов.
type Client interface {
	// CreateSession создаёт сессию и возвращает серверный session id.
	CreateSession(ctx context.Context, req CreateSessionRequest) (*CreateSessionResponse, error)

	// GetSession возвращает сессию с вопросами.
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)

	// UpdateSessionStatus переводит сессию в целевой статус.
	// Идемпотентен: повторный вызов с тем же статусом безвреден.
	UpdateSessionStatus(ctx context.Context, sessionID string, status models.SessionStatus) error

	// UpdateAnswer изменяет один ответ (только режим редактирования).
	// Возвращает ErrSessionCompleted, если бэкенд запрещает правку.
	UpdateAnswer(ctx context.Context, sessionID string, questionID int64, req UpdateAnswerRequest) error

	// SubmitAnswers отправляет все ответы сессии одним запросом.
	SubmitAnswers(ctx context.Context, sessionID string, req BulkSubmitRequest) (*SubmitResult, error)

	// Units возвращает список учебных блоков с модулями.
	Units(ctx context.Context) ([]Unit, error)

	// QuestionsByUnit возвращает вопросы учебного блока.
	QuestionsByUnit(ctx context.Context, unitID int64) ([]models.Question, error)

	// QuestionsByModule возвращает вопросы модуля.
	QuestionsByModule(ctx context.Context, moduleID int64) ([]models.Question, error)
}

// Таймауты
const (
	timeoutRequest = 10 * time.Second
	timeoutSubmit  = 30 * time.Second
)

// rawOption — вариант ответа в том виде, в каком его отдаёт бэкенд.
// Признак правильности исторически приходит под четырьмя разными
// именами; нормализуем на границе, чтобы дальше было одно поле.
type rawOption struct {
	ID              int64  `json:"id"`
	Text            string `json:"text"`
	IsCorrect       *bool  `json:"isCorrect"`
	Correct         *bool  `json:"correct"`
	IsRightAnswer   *bool  `json:"isRightAnswer"`
	IsCorrectAnswer *bool  `json:"isCorrectAnswer"`
}

func (o rawOption) normalized() models.Option {
	correct := false

	for _, flag := range []*bool{o.IsCorrect, o.Correct, o.IsRightAnswer, o.IsCorrectAnswer} {
		if flag != nil && *flag {
			correct = true
			break
		}
	}

	return models.Option{
		ID:        o.ID,
		Text:      o.Text,
		IsCorrect: correct,
	}
}

// rawQuestion — вопрос в том виде, в каком его отдаёт бэкенд.
type rawQuestion struct {
	ID               int64                `json:"id"`
	Text             string               `json:"text"`
	Type             string               `json:"type"`
	Options          []rawOption          `json:"options"`
	ReferenceAnswers []string             `json:"referenceAnswers"`
	Images           []string             `json:"images"`
	Case             *models.ClinicalCase `json:"clinicalCase"`
	Explanation      string               `json:"explanation"`
	Year             int                  `json:"year"`
}

func (q rawQuestion) normalized() models.Question {
	options := make([]models.Option, 0, len(q.Options))
	for _, opt := range q.Options {
		options = append(options, opt.normalized())
	}

	return models.Question{
		ID:               q.ID,
		Text:             q.Text,
		Type:             models.NormalizeQuestionType(q.Type),
		Options:          options,
		ReferenceAnswers: q.ReferenceAnswers,
		Images:           q.Images,
		Case:             q.Case,
		Explanation:      q.Explanation,
		Year:             q.Year,
	}
}

// rawSession — сессия в том виде, в каком её отдаёт бэкенд.
type rawSession struct {
	ID               string        `json:"id"`
	Title            string        `json:"title"`
	Type             string        `json:"type"`
	Status           string        `json:"status"`
	Questions        []rawQuestion `json:"questions"`
	CurrentIndex     int           `json:"currentQuestionIndex"`
	TimeLimitMinutes int           `json:"timeLimitMinutes"`
	TimeSpentSeconds int           `json:"timeSpent"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

func (s rawSession) normalized() *models.Session {
	questions := make([]models.Question, 0, len(s.Questions))
	for _, q := range s.Questions {
		questions = append(questions, q.normalized())
	}

	return &models.Session{
		ID:               s.ID,
		Title:            s.Title,
		Type:             models.QuizType(s.Type),
		Status:           models.SessionStatus(s.Status),
		Questions:        questions,
		CurrentIndex:     s.CurrentIndex,
		TimeLimitMinutes: s.TimeLimitMinutes,
		TimeSpentSeconds: s.TimeSpentSeconds,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

// ParseQuestions нормализует сырой JSON-список вопросов бэкенда.
// Вынесено отдельно, чтобы нормализацию можно было тестировать без HTTP.
func ParseQuestions(data []byte) ([]models.Question, error) {
	var raw []rawQuestion
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	questions := make([]models.Question, 0, len(raw))
	for _, q := range raw {
		questions = append(questions, q.normalized())
	}

	return questions, nil
}
