package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/letsssgooo/quizTaker/internal/api"
	"github.com/letsssgooo/quizTaker/internal/domain/models"
	"github.com/letsssgooo/quizTaker/internal/storage"
)

// ErrNoServerSession возвращается при попытке отправки без серверного
// session id: отправлять некуда, сетевой вызов даже не начинается.
var ErrNoServerSession = errors.New("session has no server id, nothing to submit to")

// SubmitAll отправляет все локально сохранённые ответы одним запросом
// и согласует статусы. Протокол local-first: до подтверждения успеха
// бэкендом локальные ответы не трогаются, повтор всегда безопасен.
//
// Порядок шагов важен:
//  1. локальный снапшот помечается COMPLETED;
//  2. ответы читаются из хранилища и приводятся к форме бэкенда
//     строго по типу вопроса, кривые записи отбрасываются;
//  3. один массовый запрос; неуспех прерывает всё, локальные данные целы;
//  4. перевод статуса на бэкенде — best-effort, его сбой не фатален:
//     ответы уже записаны на сервере;
//  5. снапшот удаляется только после успеха массовой отправки.
//
// Возвращает nil-результат без ошибки, если отправлять нечего.
func (e *Engine) SubmitAll(ctx context.Context) (*api.SubmitResult, error) {
	e.mu.Lock()

	session := e.state.Session
	if session == nil {
		e.mu.Unlock()
		return nil, ErrNoSession
	}

	if session.ID == "" {
		e.mu.Unlock()
		return nil, ErrNoServerSession
	}

	sessionID := session.ID
	typeByQuestion := make(map[int64]models.QuestionType, session.TotalQuestions())

	for i := range session.Questions {
		typeByQuestion[session.Questions[i].ID] = session.Questions[i].Type
	}

	e.state.SubmittingAnswer = true
	e.state.PendingSubmission = true
	e.state.LastSubmissionError = ""
	e.mu.Unlock()

	result, err := e.submitAll(ctx, sessionID, typeByQuestion)

	e.mu.Lock()
	e.state.SubmittingAnswer = false
	e.state.PendingSubmission = err != nil

	if err != nil {
		e.state.LastSubmissionError = err.Error()
	}
	e.mu.Unlock()

	return result, err
}

func (e *Engine) submitAll(
	ctx context.Context,
	sessionID string,
	typeByQuestion map[int64]models.QuestionType,
) (*api.SubmitResult, error) {
	snap, err := e.store.CompleteSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("no local snapshot for session %s, nothing to submit", sessionID)
		}

		return nil, fmt.Errorf("failed to complete local snapshot: %w", err)
	}

	answers, err := e.store.AnswersForSubmission(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read answers for submission: %w", err)
	}

	entries := shapeAnswers(answers, typeByQuestion)

	if len(entries) == 0 {
		e.notify(Notification{
			Type:    NotifyNothingToSubmit,
			Message: "Нет сохранённых ответов, отправлять нечего.",
		})

		slog.Warn("nothing to submit", "session_id", sessionID)

		return nil, nil
	}

	req := api.BulkSubmitRequest{
		Answers:        entries,
		TotalTimeSpent: snap.TimeSpentSeconds,
	}

	result, err := e.client.SubmitAnswers(ctx, sessionID, req)
	if err != nil {
		e.notify(Notification{
			Type:    NotifySubmitFailed,
			Message: "Отправка не удалась. Ответы сохранены локально, повторите позже.",
		})

		return nil, fmt.Errorf("bulk submit failed: %w", err)
	}

	// ответы уже на сервере: сбой перевода статуса не фатален,
	// страница результатов умеет восстановить статус по ответам
	if err = e.client.UpdateSessionStatus(ctx, sessionID, models.StatusCompleted); err != nil {
		slog.Warn("failed to mark session completed on backend", "session_id", sessionID, "err", err)
	}

	if err = e.Apply(ctx, CompleteQuiz{}); err != nil {
		slog.Warn("failed to complete session locally", "session_id", sessionID, "err", err)
	}

	if err = e.store.RemoveSessionState(ctx, sessionID); err != nil {
		slog.Warn("failed to remove local snapshot", "session_id", sessionID, "err", err)
	}

	e.notify(Notification{
		Type:   NotifyCompleted,
		Result: result,
		Message: fmt.Sprintf(
			"Сессия завершена: %.1f/20, отвечено %d из %d.",
			result.ScoreOutOf20,
			result.AnsweredQuestions,
			result.TotalQuestions,
		),
	})

	return result, nil
}

// shapeAnswers приводит сохранённые ответы к форме массовой отправки.
// Форма определяется типом вопроса; запись, которую не удалось привести
// ни к одной форме, отбрасывается и не отправляется.
func shapeAnswers(
	answers []models.StoredAnswer,
	typeByQuestion map[int64]models.QuestionType,
) []api.AnswerSubmission {
	entries := make([]api.AnswerSubmission, 0, len(answers))

	for _, answer := range answers {
		entry, ok := shapeAnswer(answer, typeByQuestion[answer.QuestionID])
		if !ok {
			slog.Warn("dropping malformed answer entry", "question_id", answer.QuestionID)
			continue
		}

		entries = append(entries, entry)
	}

	return entries
}

func shapeAnswer(
	answer models.StoredAnswer,
	questionType models.QuestionType,
) (api.AnswerSubmission, bool) {
	entry := api.AnswerSubmission{
		QuestionID: answer.QuestionID,
		TimeSpent:  answer.TimeSpentSeconds,
	}

	switch questionType {
	case models.QuestionSingleChoice:
		id, ok := singleID(answer.Value)
		if !ok {
			return entry, false
		}

		entry.SelectedAnswerID = &id

		return entry, true
	case models.QuestionMultiChoice:
		ids, ok := multiIDs(answer.Value)
		if !ok {
			return entry, false
		}

		entry.SelectedAnswerIDs = ids

		return entry, true
	default:
		// тип не распознан: пробуем одиночную форму, потом множественную
		if id, ok := singleID(answer.Value); ok {
			entry.SelectedAnswerID = &id
			return entry, true
		}

		if ids, ok := multiIDs(answer.Value); ok {
			entry.SelectedAnswerIDs = ids
			return entry, true
		}

		return entry, false
	}
}

// singleID извлекает одиночный id варианта: либо он сохранён напрямую,
// либо берётся первый элемент сохранённого массива.
func singleID(value models.AnswerValue) (int64, bool) {
	switch v := value.(type) {
	case models.SingleChoice:
		if v.OptionID <= 0 {
			return 0, false
		}

		return v.OptionID, true
	case models.MultiChoice:
		if len(v.OptionIDs) == 0 || v.OptionIDs[0] <= 0 {
			return 0, false
		}

		return v.OptionIDs[0], true
	}

	return 0, false
}

// multiIDs извлекает массив id вариантов, отфильтровывая некорректные.
func multiIDs(value models.AnswerValue) ([]int64, bool) {
	switch v := value.(type) {
	case models.MultiChoice:
		ids := make([]int64, 0, len(v.OptionIDs))

		for _, id := range v.OptionIDs {
			if id > 0 {
				ids = append(ids, id)
			}
		}

		if len(ids) == 0 {
			return nil, false
		}

		return ids, true
	case models.SingleChoice:
		if v.OptionID <= 0 {
			return nil, false
		}

		return []int64{v.OptionID}, true
	}

	return nil, false
}
