package storage

import (
	"context"
	"errors"

	"github.com/letsssgooo/quizTaker/internal/domain/models"
)

// ErrNotFound возвращается, когда снапшот для session id отсутствует.
// Это не сбой хранилища: отсутствие снапшота — штатная ситуация.
var ErrNotFound = errors.New("snapshot not found")

// Stats — сводка по содержимому хранилища для индикации в UI.
type Stats struct {
	SessionCount int
	AnswerCount  int
	ApproxBytes  int64
}

// SnapshotStore определяет интерфейс локального хранилища снапшотов.
// Хранилище — единственный источник правды о том, на что пользователь
// уже ответил, вплоть до финальной отправки на бэкенд.
type SnapshotStore interface {
	// SaveSessionState вставляет или полностью заменяет снапшот сессии.
	// Слияния нет: вызывающий обязан передать целый валидный снапшот.
	SaveSessionState(ctx context.Context, snap *models.Snapshot) error

	// LoadSessionState возвращает снапшот по session id
	// или ErrNotFound, если его нет.
	LoadSessionState(ctx context.Context, sessionID string) (*models.Snapshot, error)

	// UpdateSessionProgress вносит в снапшот только переданные поля прогресса.
	// Возвращает ErrNotFound, если снапшота ещё нет.
	UpdateSessionProgress(ctx context.Context, sessionID string, progress models.SessionProgress) error

	// SaveAnswer вставляет или заменяет один ответ в снапшоте
	// по ключу question id и обновляет время последнего изменения.
	SaveAnswer(ctx context.Context, sessionID string, answer models.StoredAnswer) error

	// AnswersForSubmission возвращает все сохранённые ответы сессии.
	// Порядок не гарантируется, отправка независима по question id.
	AnswersForSubmission(ctx context.Context, sessionID string) ([]models.StoredAnswer, error)

	// CompleteSession переводит снапшот в статус COMPLETED и возвращает его.
	// Возвращённый снапшот — ровно то, что уйдёт на бэкенд.
	CompleteSession(ctx context.Context, sessionID string) (*models.Snapshot, error)

	// RemoveSessionState удаляет снапшот целиком. Вызывается только после
	// подтверждённой успешной отправки ответов.
	RemoveSessionState(ctx context.Context, sessionID string) error

	// Stats возвращает сводку по хранилищу.
	Stats(ctx context.Context) (Stats, error)
}

// ApplyProgress применяет частичное обновление прогресса к снапшоту.
// Общая для всех реализаций логика слияния.
func ApplyProgress(snap *models.Snapshot, progress models.SessionProgress) {
	if progress.CurrentIndex != nil {
		snap.CurrentIndex = *progress.CurrentIndex
	}

	if progress.TimeSpentSeconds != nil {
		snap.TimeSpentSeconds = *progress.TimeSpentSeconds
	}

	if progress.Status != nil {
		snap.Status = *progress.Status
	}
}
