package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/letsssgooo/quizTaker/internal/api"
	"github.com/letsssgooo/quizTaker/internal/domain/models"
	"github.com/letsssgooo/quizTaker/internal/grading"
	"github.com/letsssgooo/quizTaker/internal/storage"
)

// Ошибки машины состояний.
var (
	ErrNoSession   = errors.New("no active session")
	ErrEditOnly    = errors.New("session is completed, answer mutation requires edit mode")
	ErrNotEditable = errors.New("edit mode is allowed only for completed session")
)

// Engine — машина состояний активной сессии квиза.
// Единственное место, где применяются мутации; всё отображение
// строится поверх копий State. Хранилище и клиент бэкенда передаются
// снаружи, чтобы тесты могли подставить свои.
type Engine struct {
	state         State
	store         storage.SnapshotStore
	client        api.Client
	grading       grading.Config
	notifications chan Notification
	mu            sync.Mutex
}

// NewEngine создаёт новую машину состояний.
func NewEngine(store storage.SnapshotStore, client api.Client, gradingCfg grading.Config) *Engine {
	return &Engine{
		store:         store,
		client:        client,
		grading:       gradingCfg,
		notifications: make(chan Notification, 16),
		state: State{
			LocalAnswers: make(map[int64]models.StoredAnswer),
		},
	}
}

// Notifications возвращает канал уведомлений для слоя отображения.
func (e *Engine) Notifications() <-chan Notification {
	return e.notifications
}

// notify отправляет уведомление, не блокируясь: если канал переполнен,
// уведомление теряется, а не подвешивает машину состояний.
func (e *Engine) notify(n Notification) {
	select {
	case e.notifications <- n:
	default:
		slog.Warn("notification channel is full, dropping", "type", n.Type)
	}
}

// Hydrate загружает сессию в машину состояний.
// Если для session id есть локальный снапшот, прогресс и ответы
// берутся из него: сервер даёт только список вопросов и метаданные.
func (e *Engine) Hydrate(ctx context.Context, session *models.Session) error {
	if session == nil {
		return ErrNoSession
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.Session = session
	e.state.LocalAnswers = make(map[int64]models.StoredAnswer)
	e.state.IsAnswerRevealed = false
	e.state.ShowExplanation = false
	e.state.EditingQuestionID = nil
	e.state.Timer = TimerState{
		IsRunning:    true,
		LimitSeconds: session.TimeLimitMinutes * 60,
	}

	snap, err := e.store.LoadSessionState(ctx, session.ID)

	switch {
	case err == nil:
		session.CurrentIndex = snap.CurrentIndex
		session.Status = snap.Status
		session.TimeSpentSeconds = snap.TimeSpentSeconds
		e.state.Timer.TotalSeconds = snap.TimeSpentSeconds

		for id, answer := range snap.Answers {
			e.state.LocalAnswers[id] = answer
		}

		slog.Info(
			"resumed session from local snapshot",
			"session_id", session.ID,
			"answers", len(snap.Answers),
			"current_index", snap.CurrentIndex,
		)
	case errors.Is(err, storage.ErrNotFound):
		if saveErr := e.store.SaveSessionState(ctx, models.NewSnapshot(session)); saveErr != nil {
			// потеря локальной записи не должна ронять сессию
			slog.Warn("failed to save initial snapshot", "session_id", session.ID, "err", saveErr)
		}
	default:
		slog.Warn("failed to load local snapshot", "session_id", session.ID, "err", err)
	}

	if session.Status == models.StatusCompleted {
		e.state.IsAnswerRevealed = true
		e.state.ShowExplanation = true
		e.state.Timer.IsRunning = false
	}

	return nil
}

// State возвращает копию текущего состояния для отображения.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := e.state

	out.LocalAnswers = make(map[int64]models.StoredAnswer, len(e.state.LocalAnswers))
	for id, answer := range e.state.LocalAnswers {
		out.LocalAnswers[id] = answer
	}

	return out
}

// Apply применяет событие к состоянию.
// Набор событий закрыт: неизвестный тип — ошибка программиста.
func (e *Engine) Apply(ctx context.Context, event Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Session == nil {
		return ErrNoSession
	}

	switch ev := event.(type) {
	case NextQuestion:
		e.goTo(ctx, e.state.Session.CurrentIndex+1)
	case PreviousQuestion:
		e.goTo(ctx, e.state.Session.CurrentIndex-1)
	case GoToQuestion:
		e.goTo(ctx, ev.Index)
	case SubmitAnswer:
		return e.submitAnswer(ctx, ev)
	case RevealAnswer:
		e.state.IsAnswerRevealed = true
		e.state.ShowExplanation = true
	case PauseQuiz:
		e.state.Timer.IsPaused = true
	case ResumeQuiz:
		e.state.Timer.IsPaused = false
	case CompleteQuiz:
		e.completeLocally(ctx)
	case EnterEditMode:
		if e.state.Session.Status != models.StatusCompleted {
			return ErrNotEditable
		}

		id := ev.QuestionID
		e.state.EditingQuestionID = &id
	case ExitEditMode:
		e.state.EditingQuestionID = nil
	case Tick:
		e.tick(ctx)
	default:
		return fmt.Errorf("unknown event type %T", event)
	}

	return nil
}

// goTo перемещает курсор с проверкой границ.
// Выход за границы — no-op, состояние не меняется.
func (e *Engine) goTo(ctx context.Context, index int) {
	session := e.state.Session
	if index < 0 || index >= session.TotalQuestions() {
		return
	}

	session.CurrentIndex = index
	e.state.IsAnswerRevealed = false
	e.state.ShowExplanation = false
	e.state.Timer.QuestionSeconds = 0

	e.persistProgress(ctx, models.SessionProgress{CurrentIndex: &index})
}

// persistProgress сохраняет прогресс в локальное хранилище.
// Сбой хранилища логируется и глотается: обновление прогресса
// не имеет права уронить сессию.
func (e *Engine) persistProgress(ctx context.Context, progress models.SessionProgress) {
	if err := e.store.UpdateSessionProgress(ctx, e.state.Session.ID, progress); err != nil {
		slog.Warn(
			"failed to persist session progress",
			"session_id", e.state.Session.ID,
			"err", err,
		)
	}
}

// submitAnswer обрабатывает ответ пользователя.
func (e *Engine) submitAnswer(ctx context.Context, ev SubmitAnswer) error {
	session := e.state.Session

	question, ok := session.QuestionByID(ev.QuestionID)
	if !ok {
		return fmt.Errorf("question %d is not in session %s", ev.QuestionID, session.ID)
	}

	// пустой ответ не сериализуется в снапшот и ломает восстановление
	if ev.Value == nil {
		return fmt.Errorf("answer for question %d has no value", ev.QuestionID)
	}

	if v, isMulti := ev.Value.(models.MultiChoice); isMulti && len(v.OptionIDs) == 0 {
		return fmt.Errorf("multiple choice answer for question %d has no options", ev.QuestionID)
	}

	if session.Status == models.StatusCompleted {
		if e.state.EditingQuestionID == nil || *e.state.EditingQuestionID != ev.QuestionID {
			slog.Warn(
				"answer rejected: session is completed and question is not in edit mode",
				"session_id", session.ID,
				"question_id", ev.QuestionID,
			)

			return nil
		}

		return e.updateAnswerRemote(ctx, question, ev)
	}

	answer := models.StoredAnswer{
		QuestionID:       ev.QuestionID,
		Value:            ev.Value,
		IsCorrect:        e.grade(question, ev.Value),
		TimeSpentSeconds: e.state.Timer.QuestionSeconds,
		AnsweredAt:       time.Now(),
		Bookmarked:       ev.Bookmarked,
		Flags:            ev.Flags,
		Note:             ev.Note,
	}

	e.state.LocalAnswers[ev.QuestionID] = answer

	if err := e.store.SaveAnswer(ctx, session.ID, answer); err != nil {
		slog.Warn("failed to persist answer", "session_id", session.ID, "err", err)
	}

	e.promoteToInProgress(ctx)

	return nil
}

// promoteToInProgress переводит сессию из NOT_STARTED в IN_PROGRESS
// при первом сохранённом ответе: локально сразу, на бэкенде —
// неблокирующе и без гарантий.
func (e *Engine) promoteToInProgress(ctx context.Context) {
	session := e.state.Session
	if !session.Status.CanTransitionTo(models.StatusInProgress) {
		return
	}

	session.Status = models.StatusInProgress

	status := models.StatusInProgress
	e.persistProgress(ctx, models.SessionProgress{Status: &status})

	sessionID := session.ID

	go func() {
		if err := e.client.UpdateSessionStatus(context.Background(), sessionID, models.StatusInProgress); err != nil {
			slog.Warn("failed to promote session status on backend", "session_id", sessionID, "err", err)
		}
	}()
}

// updateAnswerRemote — правка одного ответа завершённой сессии.
// В отличие от обычного пути, идёт на бэкенд синхронно: авторитетная
// запись уже зафиксирована на сервере.
func (e *Engine) updateAnswerRemote(ctx context.Context, question *models.Question, ev SubmitAnswer) error {
	req := api.UpdateAnswerRequest{}

	switch v := ev.Value.(type) {
	case models.SingleChoice:
		req.SelectedAnswerID = &v.OptionID
	case models.MultiChoice:
		req.SelectedAnswerIDs = v.OptionIDs
	default:
		return fmt.Errorf("edit mode supports only choice answers, got %T", ev.Value)
	}

	err := e.client.UpdateAnswer(ctx, e.state.Session.ID, ev.QuestionID, req)

	if errors.Is(err, api.ErrSessionCompleted) {
		e.notify(Notification{
			Type:    NotifyEditRejected,
			Message: "Сессия уже завершена на сервере: правка невозможна, пройдите квиз заново.",
		})

		e.state.EditingQuestionID = nil

		return nil
	}

	if err != nil {
		e.notify(Notification{
			Type:    NotifyEditRejected,
			Message: "Не удалось сохранить правку, попробуйте ещё раз.",
		})

		slog.Warn("failed to update answer on backend", "question_id", ev.QuestionID, "err", err)

		return nil
	}

	answer := models.StoredAnswer{
		QuestionID:       ev.QuestionID,
		Value:            ev.Value,
		IsCorrect:        e.grade(question, ev.Value),
		TimeSpentSeconds: e.state.Timer.QuestionSeconds,
		AnsweredAt:       time.Now(),
	}

	e.state.LocalAnswers[ev.QuestionID] = answer
	e.state.EditingQuestionID = nil

	e.notify(Notification{Type: NotifyEditSaved, Message: "Ответ обновлён."})

	return nil
}

// completeLocally завершает сессию локально и включает режим просмотра.
// Повторное завершение безвредно: статус и прогресс не трогаются.
func (e *Engine) completeLocally(ctx context.Context) {
	session := e.state.Session

	if session.Status.CanTransitionTo(models.StatusCompleted) {
		session.Status = models.StatusCompleted

		status := models.StatusCompleted
		e.persistProgress(ctx, models.SessionProgress{Status: &status})
	}

	e.state.Timer.IsRunning = false
	e.state.IsAnswerRevealed = true
	e.state.ShowExplanation = true
}

// tick — секундный тик таймера. Лимит времени — рекомендация, не
// жёсткий стоп: уведомление срабатывает один раз, квиз ставится на
// паузу, но пользователь может продолжить.
func (e *Engine) tick(ctx context.Context) {
	timer := &e.state.Timer
	if !timer.IsRunning || timer.IsPaused {
		return
	}

	timer.TotalSeconds++
	timer.QuestionSeconds++

	// прогресс по времени пишем раз в пять секунд, а не на каждый тик
	if timer.TotalSeconds%5 == 0 {
		spent := timer.TotalSeconds
		e.persistProgress(ctx, models.SessionProgress{TimeSpentSeconds: &spent})
	}

	if timer.LimitSeconds > 0 && timer.TotalSeconds > timer.LimitSeconds && !timer.TimeUpFired {
		timer.TimeUpFired = true
		timer.IsPaused = true

		e.notify(Notification{
			Type:    NotifyTimeUp,
			Message: "Время вышло. Можно продолжить, лимит — рекомендация.",
		})
	}
}

// grade выполняет локальную ориентировочную оценку ответа.
// Для свободного текста без эталонов возвращает nil (не оценён).
func (e *Engine) grade(question *models.Question, value models.AnswerValue) *bool {
	var result bool

	switch v := value.(type) {
	case models.SingleChoice:
		result = grading.GradeChoice([]int64{v.OptionID}, question.CorrectOptionIDs())
	case models.MultiChoice:
		result = grading.GradeChoice(v.OptionIDs, question.CorrectOptionIDs())
	case models.FreeText:
		if len(question.ReferenceAnswers) == 0 {
			return nil
		}

		result = grading.MatchFreeText(e.grading, v.Text, question.ReferenceAnswers)
	default:
		return nil
	}

	return &result
}

// RunTicker запускает секундный тик до отмены контекста.
// Вызывается один раз из main в отдельной горутине.
func (e *Engine) RunTicker(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := e.Apply(ctx, Tick{}); err != nil && !errors.Is(err, ErrNoSession) {
				slog.Warn("timer tick failed", "err", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
