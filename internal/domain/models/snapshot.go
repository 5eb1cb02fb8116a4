package models

import "time"

// SnapshotSettings содержит настройки сессии, которые должны пережить
// перезапуск клиента вместе с прогрессом.
type SnapshotSettings struct {
	ExplanationTiming string `json:"explanationTiming,omitempty"` // "after_each" или "at_end"
	TimeLimitMinutes  int    `json:"timeLimitMinutes,omitempty"`
	Shuffle           bool   `json:"shuffle,omitempty"`
}

// Snapshot — локальная проекция сессии и её ответов.
// Существует не более одного снапшота на session id; при старте клиент
// восстанавливает прогресс из снапшота, а не из состояния бэкенда
// (бэкенд даёт только список вопросов и метаданные).
type Snapshot struct {
	SessionID        string                 `json:"sessionId"`
	Title            string                 `json:"title"`
	Type             QuizType               `json:"type"`
	Status           SessionStatus          `json:"status"`
	CurrentIndex     int                    `json:"currentIndex"`
	TotalQuestions   int                    `json:"totalQuestions"`
	Answers          map[int64]StoredAnswer `json:"answers"`
	StartedAt        time.Time              `json:"startedAt"`
	UpdatedAt        time.Time              `json:"updatedAt"`
	TimeSpentSeconds int                    `json:"timeSpent"`
	Bookmarked       []int64                `json:"bookmarked,omitempty"`
	Flagged          []int64                `json:"flagged,omitempty"`
	Settings         SnapshotSettings       `json:"settings"`
}

// NewSnapshot создаёт пустой снапшот для сессии.
func NewSnapshot(s *Session) *Snapshot {
	now := time.Now()

	return &Snapshot{
		SessionID:      s.ID,
		Title:          s.Title,
		Type:           s.Type,
		Status:         s.Status,
		CurrentIndex:   s.CurrentIndex,
		TotalQuestions: s.TotalQuestions(),
		Answers:        make(map[int64]StoredAnswer),
		StartedAt:      now,
		UpdatedAt:      now,
		Settings: SnapshotSettings{
			TimeLimitMinutes: s.TimeLimitMinutes,
		},
	}
}

// SessionProgress — частичное обновление прогресса снапшота.
// Nil-поле означает «не трогать».
type SessionProgress struct {
	CurrentIndex     *int
	TimeSpentSeconds *int
	Status           *SessionStatus
}
