package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/letsssgooo/quizTaker/internal/domain/models"
	"github.com/letsssgooo/quizTaker/internal/storage"
)

// Storage реализует storage.SnapshotStore поверх postgres.
// Вариант для общих машин в аудиториях: студент может продолжить
// сессию с другого хоста, снапшоты лежат централизованно.
type Storage struct {
	pool *pgxpool.Pool
}

// NewStorage подключается к базе по dsn и инициализирует схему.
func NewStorage(ctx context.Context, dsn string) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	query := `
	CREATE TABLE IF NOT EXISTS quiz_snapshots (
		session_id   TEXT PRIMARY KEY,
		status       TEXT NOT NULL,
		answer_count INTEGER NOT NULL DEFAULT 0,
		data         JSONB NOT NULL,
		updated_at   TIMESTAMPTZ NOT NULL
	)
	`

	if _, err = pool.Exec(ctx, query); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create snapshots table: %w", err)
	}

	return &Storage{pool: pool}, nil
}

// Close закрывает пул соединений.
func (s *Storage) Close() {
	s.pool.Close()
}

func (s *Storage) writeSnapshot(ctx context.Context, snap *models.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to serialize snapshot: %w", err)
	}

	query := `
	INSERT INTO quiz_snapshots (session_id, status, answer_count, data, updated_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (session_id) DO UPDATE SET
		status = excluded.status,
		answer_count = excluded.answer_count,
		data = excluded.data,
		updated_at = excluded.updated_at
	`

	_, err = s.pool.Exec(
		ctx,
		query,
		snap.SessionID,
		string(snap.Status),
		len(snap.Answers),
		data,
		snap.UpdatedAt,
	)

	return err
}

func (s *Storage) readSnapshot(ctx context.Context, sessionID string) (*models.Snapshot, error) {
	var data []byte

	query := `SELECT data FROM quiz_snapshots WHERE session_id = $1`

	err := s.pool.QueryRow(ctx, query, sessionID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	snap := &models.Snapshot{}
	if err = json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("failed to deserialize snapshot: %w", err)
	}

	if snap.Answers == nil {
		snap.Answers = make(map[int64]models.StoredAnswer)
	}

	return snap, nil
}

// SaveSessionState вставляет или полностью заменяет снапшот сессии.
func (s *Storage) SaveSessionState(ctx context.Context, snap *models.Snapshot) error {
	return s.writeSnapshot(ctx, snap)
}

// LoadSessionState возвращает снапшот по session id или storage.ErrNotFound.
func (s *Storage) LoadSessionState(ctx context.Context, sessionID string) (*models.Snapshot, error) {
	return s.readSnapshot(ctx, sessionID)
}

// UpdateSessionProgress вносит в снапшот только переданные поля прогресса.
func (s *Storage) UpdateSessionProgress(
	ctx context.Context,
	sessionID string,
	progress models.SessionProgress,
) error {
	snap, err := s.readSnapshot(ctx, sessionID)
	if err != nil {
		return err
	}

	storage.ApplyProgress(snap, progress)
	snap.UpdatedAt = time.Now()

	return s.writeSnapshot(ctx, snap)
}

// SaveAnswer вставляет или заменяет один ответ в снапшоте.
func (s *Storage) SaveAnswer(
	ctx context.Context,
	sessionID string,
	answer models.StoredAnswer,
) error {
	snap, err := s.readSnapshot(ctx, sessionID)
	if err != nil {
		return err
	}

	snap.Answers[answer.QuestionID] = answer
	snap.UpdatedAt = time.Now()

	return s.writeSnapshot(ctx, snap)
}

// AnswersForSubmission возвращает все сохранённые ответы сессии.
func (s *Storage) AnswersForSubmission(
	ctx context.Context,
	sessionID string,
) ([]models.StoredAnswer, error) {
	snap, err := s.readSnapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	answers := make([]models.StoredAnswer, 0, len(snap.Answers))
	for _, answer := range snap.Answers {
		answers = append(answers, answer)
	}

	return answers, nil
}

// CompleteSession переводит снапшот в статус COMPLETED и возвращает его.
func (s *Storage) CompleteSession(
	ctx context.Context,
	sessionID string,
) (*models.Snapshot, error) {
	snap, err := s.readSnapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	snap.Status = models.StatusCompleted
	snap.UpdatedAt = time.Now()

	if err = s.writeSnapshot(ctx, snap); err != nil {
		return nil, err
	}

	return snap, nil
}

// RemoveSessionState удаляет снапшот целиком.
func (s *Storage) RemoveSessionState(ctx context.Context, sessionID string) error {
	query := `DELETE FROM quiz_snapshots WHERE session_id = $1`

	_, err := s.pool.Exec(ctx, query, sessionID)

	return err
}

// Stats возвращает сводку по хранилищу.
func (s *Storage) Stats(ctx context.Context) (storage.Stats, error) {
	query := `
	SELECT
		COUNT(*),
		COALESCE(SUM(answer_count), 0),
		COALESCE(SUM(LENGTH(data::text)), 0)
	FROM quiz_snapshots
	`

	var stats storage.Stats

	err := s.pool.QueryRow(ctx, query).Scan(
		&stats.SessionCount,
		&stats.AnswerCount,
		&stats.ApproxBytes,
	)
	if err != nil {
		return storage.Stats{}, fmt.Errorf("failed to get storage stats: %w", err)
	}

	return stats, nil
}
