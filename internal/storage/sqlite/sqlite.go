package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/letsssgooo/quizTaker/internal/domain/models"
	"github.com/letsssgooo/quizTaker/internal/storage"
)

// Storage реализует storage.SnapshotStore поверх локального sqlite-файла.
// Это основной бэкенд: снапшоты переживают перезапуск клиента.
type Storage struct {
	db *sqlx.DB
}

// NewStorage открывает (или создаёт) базу в каталоге dataDir
// и инициализирует схему.
func NewStorage(dataDir string) (*Storage, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "quiztaker.db")

	db, err := sqlx.Connect("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// sqlite не поддерживает несколько писателей
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS quiz_snapshots (
			session_id   TEXT PRIMARY KEY,
			status       TEXT NOT NULL,
			answer_count INTEGER NOT NULL DEFAULT 0,
			data         TEXT NOT NULL,
			updated_at   TIMESTAMP NOT NULL
		)
	`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create snapshots table: %w", err)
	}

	return &Storage{db: db}, nil
}

// Close закрывает соединение с базой.
func (s *Storage) Close() error {
	return s.db.Close()
}

// SaveSessionState вставляет или полностью заменяет снапшот сессии.
func (s *Storage) SaveSessionState(ctx context.Context, snap *models.Snapshot) error {
	return s.writeSnapshot(ctx, snap)
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

	_, err = s.db.ExecContext(
		ctx,
		query,
		snap.SessionID,
		string(snap.Status),
		len(snap.Answers),
		string(data),
		snap.UpdatedAt,
	)

	return err
}

func (s *Storage) readSnapshot(ctx context.Context, sessionID string) (*models.Snapshot, error) {
	var data string

	err := s.db.GetContext(
		ctx,
		&data,
		"SELECT data FROM quiz_snapshots WHERE session_id = $1",
		sessionID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	snap := &models.Snapshot{}
	if err = json.Unmarshal([]byte(data), snap); err != nil {
		return nil, fmt.Errorf("failed to deserialize snapshot: %w", err)
	}

	if snap.Answers == nil {
		snap.Answers = make(map[int64]models.StoredAnswer)
	}

	return snap, nil
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
	_, err := s.db.ExecContext(
		ctx,
		"DELETE FROM quiz_snapshots WHERE session_id = $1",
		sessionID,
	)

	return err
}

// Stats возвращает сводку по хранилищу.
func (s *Storage) Stats(ctx context.Context) (storage.Stats, error) {
	var row struct {
		Sessions int           `db:"sessions"`
		Answers  sql.NullInt64 `db:"answers"`
		Bytes    sql.NullInt64 `db:"bytes"`
	}

	query := `
	SELECT
		COUNT(*) AS sessions,
		SUM(answer_count) AS answers,
		SUM(LENGTH(data)) AS bytes
	FROM quiz_snapshots
	`

	if err := s.db.GetContext(ctx, &row, query); err != nil {
		return storage.Stats{}, fmt.Errorf("failed to get storage stats: %w", err)
	}

	return storage.Stats{
		SessionCount: row.Sessions,
		AnswerCount:  int(row.Answers.Int64),
		ApproxBytes:  row.Bytes.Int64,
	}, nil
}
