package session

import (
	"github.com/letsssgooo/quizTaker/internal/domain/models"
)

// Event — закрытый набор событий машины состояний сессии.
// Обработка — исчерпывающий type switch в Engine.Apply: новое событие
// без ветки в Apply падает с ошибкой, а не проваливается в default.
type Event interface {
	isEvent()
}

// NextQuestion — переход к следующему вопросу.
type NextQuestion struct{}

// PreviousQuestion — переход к предыдущему вопросу.
type PreviousQuestion struct{}

// GoToQuestion — переход к вопросу по индексу (0-based).
// Выход за границы — no-op.
type GoToQuestion struct {
	Index int
}

// SubmitAnswer — ответ пользователя на вопрос.
type SubmitAnswer struct {
	QuestionID int64
	Value      models.AnswerValue
	Bookmarked bool
	Flags      []string
	Note       string
}

// RevealAnswer — показать правильный ответ и объяснение.
// Идемпотентно; откатывается только уходом с вопроса.
type RevealAnswer struct{}

// PauseQuiz — поставить таймер на паузу.
type PauseQuiz struct{}

// ResumeQuiz — снять таймер с паузы.
type ResumeQuiz struct{}

// CompleteQuiz — локально завершить сессию и перейти в режим просмотра.
// Сетевую отправку не выполняет, это дело SubmitAll.
type CompleteQuiz struct{}

// EnterEditMode — войти в режим правки одного вопроса завершённой сессии.
type EnterEditMode struct {
	QuestionID int64
}

// ExitEditMode — выйти из режима правки.
type ExitEditMode struct{}

// Tick — секундный тик таймера.
type Tick struct{}

func (NextQuestion) isEvent()     {}
func (PreviousQuestion) isEvent() {}
func (GoToQuestion) isEvent()     {}
func (SubmitAnswer) isEvent()     {}
func (RevealAnswer) isEvent()     {}
func (PauseQuiz) isEvent()        {}
func (ResumeQuiz) isEvent()       {}
func (CompleteQuiz) isEvent()     {}
func (EnterEditMode) isEvent()    {}
func (ExitEditMode) isEvent()     {}
func (Tick) isEvent()             {}
