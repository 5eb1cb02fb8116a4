package storage

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/letsssgooo/quizTaker/internal/domain/models"
)

// MemoryStorage реализует SnapshotStore в памяти.
// Используется в тестах и при запуске с --no-persist.
type MemoryStorage struct {
	snapshots map[string]*models.Snapshot
	mu        sync.RWMutex
}

// NewMemoryStorage создаёт новый MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		snapshots: make(map[string]*models.Snapshot),
	}
}

// cloneSnapshot делает глубокую копию снапшота, чтобы вызывающий не мог
// изменить хранимое состояние мимо интерфейса.
func cloneSnapshot(snap *models.Snapshot) (*models.Snapshot, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}

	out := &models.Snapshot{}
	if err = json.Unmarshal(data, out); err != nil {
		return nil, err
	}

	if out.Answers == nil {
		out.Answers = make(map[int64]models.StoredAnswer)
	}

	return out, nil
}

// SaveSessionState вставляет или полностью заменяет снапшот сессии.
func (s *MemoryStorage) SaveSessionState(ctx context.Context, snap *models.Snapshot) error {
	stored, err := cloneSnapshot(snap)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots[snap.SessionID] = stored

	return nil
}

// LoadSessionState возвращает снапшот по session id или ErrNotFound.
func (s *MemoryStorage) LoadSessionState(ctx context.Context, sessionID string) (*models.Snapshot, error) {
	s.mu.RLock()
	snap, ok := s.snapshots[sessionID]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}

	return cloneSnapshot(snap)
}

// UpdateSessionProgress вносит в снапшот только переданные поля прогресса.
func (s *MemoryStorage) UpdateSessionProgress(
	ctx context.Context,
	sessionID string,
	progress models.SessionProgress,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.snapshots[sessionID]
	if !ok {
		return ErrNotFound
	}

	ApplyProgress(snap, progress)
	snap.UpdatedAt = time.Now()

	return nil
}

// SaveAnswer вставляет или заменяет один ответ в снапшоте.
func (s *MemoryStorage) SaveAnswer(
	ctx context.Context,
	sessionID string,
	answer models.StoredAnswer,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.snapshots[sessionID]
	if !ok {
		return ErrNotFound
	}

	snap.Answers[answer.QuestionID] = answer
	snap.UpdatedAt = time.Now()

	return nil
}

// AnswersForSubmission возвращает все сохранённые ответы сессии.
func (s *MemoryStorage) AnswersForSubmission(
	ctx context.Context,
	sessionID string,
) ([]models.StoredAnswer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[sessionID]
	if !ok {
		return nil, ErrNotFound
	}

	answers := make([]models.StoredAnswer, 0, len(snap.Answers))
	for _, answer := range snap.Answers {
		answers = append(answers, answer)
	}

	return answers, nil
}

// CompleteSession переводит снапшот в статус COMPLETED и возвращает его.
func (s *MemoryStorage) CompleteSession(
	ctx context.Context,
	sessionID string,
) (*models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.snapshots[sessionID]
	if !ok {
		return nil, ErrNotFound
	}

	snap.Status = models.StatusCompleted
	snap.UpdatedAt = time.Now()

	return cloneSnapshot(snap)
}

// RemoveSessionState удаляет снапшот целиком.
func (s *MemoryStorage) RemoveSessionState(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.snapshots, sessionID)

	return nil
}

// Stats возвращает сводку по хранилищу.
func (s *MemoryStorage) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{SessionCount: len(s.snapshots)}

	for _, snap := range s.snapshots {
		stats.AnswerCount += len(snap.Answers)

		data, err := json.Marshal(snap)
		if err != nil {
			continue
		}

		stats.ApproxBytes += int64(len(data))
	}

	return stats, nil
}
