package session

import (
	"github.com/letsssgooo/quizTaker/internal/api"
	"github.com/letsssgooo/quizTaker/internal/domain/models"
)

// TimerState — состояние таймера сессии.
type TimerState struct {
	IsRunning       bool
	IsPaused        bool
	TotalSeconds    int
	QuestionSeconds int
	LimitSeconds    int // 0 — без лимита
	TimeUpFired     bool
}

// State — полное состояние активной сессии.
// Рендер читает копию состояния и никогда не мутирует её напрямую:
// все изменения идут через Engine.Apply.
type State struct {
	Session             *models.Session
	Timer               TimerState
	IsAnswerRevealed    bool
	ShowExplanation     bool
	EditingQuestionID   *int64 // nil — обычный режим
	SubmittingAnswer    bool
	PendingSubmission   bool
	LastSubmissionError string
	LocalAnswers        map[int64]models.StoredAnswer
}

// AnswerFor возвращает локальный ответ на вопрос, если он есть.
func (s State) AnswerFor(questionID int64) (models.StoredAnswer, bool) {
	answer, ok := s.LocalAnswers[questionID]
	return answer, ok
}

// NotificationType — тип уведомления для пользователя.
type NotificationType string

const (
	// NotifyTimeUp — лимит времени исчерпан (однократно).
	NotifyTimeUp NotificationType = "time_up"

	// NotifyCompleted — сессия завершена, результат получен.
	NotifyCompleted NotificationType = "completed"

	// NotifySubmitFailed — массовая отправка не удалась,
	// ответы сохранены локально, повтор безопасен.
	NotifySubmitFailed NotificationType = "submit_failed"

	// NotifyNothingToSubmit — ни одного ответа не сохранено.
	// Это предупреждение, а не ошибка.
	NotifyNothingToSubmit NotificationType = "nothing_to_submit"

	// NotifyEditRejected — бэкенд отказал в правке завершённой сессии.
	NotifyEditRejected NotificationType = "edit_rejected"

	// NotifyEditSaved — правка одного ответа принята бэкендом.
	NotifyEditSaved NotificationType = "edit_saved"
)

// Notification — уведомление машины состояний для слоя отображения.
type Notification struct {
	Type    NotificationType
	Message string
	Result  *api.SubmitResult // только для NotifyCompleted
}
