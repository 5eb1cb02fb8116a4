package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letsssgooo/quizTaker/internal/api"
	"github.com/letsssgooo/quizTaker/internal/domain/models"
	"github.com/letsssgooo/quizTaker/internal/grading"
	"github.com/letsssgooo/quizTaker/internal/session"
	"github.com/letsssgooo/quizTaker/internal/storage"
)

// fakeClient отдаёт одну сессию и записывает обращения к бэкенду.
type fakeClient struct {
	mu sync.Mutex

	session   *models.Session
	submitted []api.BulkSubmitRequest
}

func (f *fakeClient) CreateSession(
	_ context.Context,
	_ api.CreateSessionRequest,
) (*api.CreateSessionResponse, error) {
	return nil, nil
}

func (f *fakeClient) GetSession(_ context.Context, _ string) (*models.Session, error) {
	return f.session, nil
}

func (f *fakeClient) UpdateSessionStatus(_ context.Context, _ string, _ models.SessionStatus) error {
	return nil
}

func (f *fakeClient) UpdateAnswer(_ context.Context, _ string, _ int64, _ api.UpdateAnswerRequest) error {
	return nil
}

func (f *fakeClient) SubmitAnswers(
	_ context.Context,
	_ string,
	req api.BulkSubmitRequest,
) (*api.SubmitResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.submitted = append(f.submitted, req)

	return &api.SubmitResult{
		ScoreOutOf20:      20,
		PercentageScore:   100,
		AnsweredQuestions: 1,
		TotalQuestions:    1,
		Status:            models.StatusCompleted,
	}, nil
}

func (f *fakeClient) Units(_ context.Context) ([]api.Unit, error) {
	return nil, nil
}

func (f *fakeClient) QuestionsByUnit(_ context.Context, _ int64) ([]models.Question, error) {
	return nil, nil
}

func (f *fakeClient) QuestionsByModule(_ context.Context, _ int64) ([]models.Question, error) {
	return nil, nil
}

func (f *fakeClient) bulkRequests() []api.BulkSubmitRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]api.BulkSubmitRequest, len(f.submitted))
	copy(out, f.submitted)

	return out
}

func oneQuestionSession() *models.Session {
	return &models.Session{
		ID:     "s1",
		Title:  "Test quiz",
		Type:   models.QuizTypePractice,
		Status: models.StatusNotStarted,
		Questions: []models.Question{
			{
				ID:   101,
				Text: "question",
				Type: models.QuestionSingleChoice,
				Options: []models.Option{
					{ID: 1011, Text: "right", IsCorrect: true},
					{ID: 1012, Text: "wrong"},
				},
			},
		},
	}
}

// Полный прогон: ответ буквой, отправка, выход. Уведомления машины
// состояний рендерятся параллельно циклу команд, гонок быть не должно.
func TestRun_AnswerFinishQuit(t *testing.T) {
	client := &fakeClient{session: oneQuestionSession()}
	store := storage.NewMemoryStorage()
	engine := session.NewEngine(store, client, grading.DefaultConfig())

	in := strings.NewReader("a\nfinish\nq\n")
	var out bytes.Buffer

	app := NewApp(client, engine, store, in, &out)

	require.NoError(t, app.Run(context.Background(), "s1"))

	requests := client.bulkRequests()
	require.Len(t, requests, 1)
	require.Len(t, requests[0].Answers, 1)

	entry := requests[0].Answers[0]
	assert.Equal(t, int64(101), entry.QuestionID)
	require.NotNil(t, entry.SelectedAnswerID)
	assert.Equal(t, int64(1011), *entry.SelectedAnswerID)

	// снапшот убран после подтверждённой отправки
	_, err := store.LoadSessionState(context.Background(), "s1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.Contains(t, out.String(), "Вопрос 1/1")
}
