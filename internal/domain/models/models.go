package models

import (
	"time"
)

// Файл с основными моделями предметной области. Модели заполняются
// из ответов бэкенда (пакет api) и дальше не изменяются в течение
// жизни сессии, меняется только прогресс (см. snapshot.go).

// QuizType — тип сессии квиза.
type QuizType string

const (
	QuizTypePractice QuizType = "PRACTICE"
	QuizTypeExam     QuizType = "EXAM"
	QuizTypeRemedial QuizType = "REMEDIAL"
)

// SessionStatus — статус сессии квиза.
type SessionStatus string

const (
	StatusNotStarted SessionStatus = "NOT_STARTED"
	StatusInProgress SessionStatus = "IN_PROGRESS"
	StatusCompleted  SessionStatus = "COMPLETED"
	StatusAbandoned  SessionStatus = "ABANDONED"
)

// statusRank задаёт порядок статусов для проверки монотонности переходов.
var statusRank = map[SessionStatus]int{
	StatusNotStarted: 0,
	StatusInProgress: 1,
	StatusCompleted:  2,
	StatusAbandoned:  2,
}

// CanTransitionTo проверяет допустимость перехода статуса.
// Переходы только вперёд, COMPLETED — терминальный статус.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	if s == StatusCompleted || s == StatusAbandoned {
		return false
	}

	from, ok := statusRank[s]
	if !ok {
		return false
	}

	to, ok := statusRank[next]
	if !ok {
		return false
	}

	return to > from
}

// QuestionType — тип вопроса из закрытого набора.
type QuestionType string

const (
	QuestionSingleChoice QuestionType = "single_choice"
	QuestionMultiChoice  QuestionType = "multiple_choice"
	QuestionFreeText     QuestionType = "free_text"
	QuestionClinicalCase QuestionType = "clinical_case"
)

// NormalizeQuestionType приводит строку типа вопроса из бэкенда к
// закрытому набору. Неизвестные типы считаются single choice, чтобы
// дальше по коду не приходилось угадывать форму ответа.
func NormalizeQuestionType(raw string) QuestionType {
	switch QuestionType(raw) {
	case QuestionSingleChoice, QuestionMultiChoice, QuestionFreeText, QuestionClinicalCase:
		return QuestionType(raw)
	}

	switch raw {
	case "SINGLE_CHOICE", "single", "qcu", "QCU":
		return QuestionSingleChoice
	case "MULTIPLE_CHOICE", "multi", "qcm", "QCM":
		return QuestionMultiChoice
	case "FREE_TEXT", "open", "text", "QROC":
		return QuestionFreeText
	case "CLINICAL_CASE", "case", "cas_clinique":
		return QuestionClinicalCase
	}

	return QuestionSingleChoice
}

// Option представляет вариант ответа на вопрос.
type Option struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// ClinicalCase содержит клинический контекст вопроса.
// Все три поля обязаны приходить с бэкенда, клиент ничего не выдумывает.
type ClinicalCase struct {
	Patient     string `json:"patient"`
	History     string `json:"history"`
	Examination string `json:"examination"`
}

// Complete сообщает, достаточно ли данных для отображения кейса.
func (c *ClinicalCase) Complete() bool {
	return c != nil && c.Patient != "" && c.History != "" && c.Examination != ""
}

// Question представляет один вопрос сессии.
// После загрузки вопрос неизменяем.
type Question struct {
	ID               int64         `json:"id"`
	Text             string        `json:"text"`
	Type             QuestionType  `json:"type"`
	Options          []Option      `json:"options"`
	ReferenceAnswers []string      `json:"referenceAnswers,omitempty"`
	Images           []string      `json:"images,omitempty"`
	Case             *ClinicalCase `json:"clinicalCase,omitempty"`
	Explanation      string        `json:"explanation,omitempty"`
	Year             int           `json:"year,omitempty"`
}

// CorrectOptionIDs возвращает идентификаторы правильных вариантов.
func (q *Question) CorrectOptionIDs() []int64 {
	ids := make([]int64, 0, len(q.Options))
	for _, opt := range q.Options {
		if opt.IsCorrect {
			ids = append(ids, opt.ID)
		}
	}

	return ids
}

// Session представляет одну попытку прохождения квиза.
type Session struct {
	ID               string        `json:"id"`
	Title            string        `json:"title"`
	Type             QuizType      `json:"type"`
	Status           SessionStatus `json:"status"`
	Questions        []Question    `json:"questions"`
	CurrentIndex     int           `json:"currentIndex"`
	TimeLimitMinutes int           `json:"timeLimitMinutes,omitempty"`
	TimeSpentSeconds int           `json:"timeSpentSeconds"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

// TotalQuestions возвращает число вопросов в сессии.
func (s *Session) TotalQuestions() int {
	return len(s.Questions)
}

// QuestionByID возвращает вопрос по идентификатору.
func (s *Session) QuestionByID(id int64) (*Question, bool) {
	for i := range s.Questions {
		if s.Questions[i].ID == id {
			return &s.Questions[i], true
		}
	}

	return nil, false
}

// CurrentQuestion возвращает вопрос под курсором.
func (s *Session) CurrentQuestion() (*Question, bool) {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Questions) {
		return nil, false
	}

	return &s.Questions[s.CurrentIndex], true
}
