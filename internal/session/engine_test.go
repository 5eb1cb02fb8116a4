package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letsssgooo/quizTaker/internal/api"
	"github.com/letsssgooo/quizTaker/internal/domain/models"
	"github.com/letsssgooo/quizTaker/internal/grading"
	"github.com/letsssgooo/quizTaker/internal/storage"
)

// fakeClient записывает обращения к бэкенду и отдаёт заготовленные ответы.
type fakeClient struct {
	mu sync.Mutex

	submitResult *api.SubmitResult
	submitErr    error
	submitted    []api.BulkSubmitRequest

	statusUpdates []models.SessionStatus

	updateAnswerErr error
	updatedAnswers  []api.UpdateAnswerRequest
}

func (f *fakeClient) CreateSession(
	_ context.Context,
	_ api.CreateSessionRequest,
) (*api.CreateSessionResponse, error) {
	return nil, nil
}

func (f *fakeClient) GetSession(_ context.Context, _ string) (*models.Session, error) {
	return nil, nil
}

func (f *fakeClient) UpdateSessionStatus(
	_ context.Context,
	_ string,
	status models.SessionStatus,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.statusUpdates = append(f.statusUpdates, status)

	return nil
}

func (f *fakeClient) UpdateAnswer(
	_ context.Context,
	_ string,
	_ int64,
	req api.UpdateAnswerRequest,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.updateAnswerErr != nil {
		return f.updateAnswerErr
	}

	f.updatedAnswers = append(f.updatedAnswers, req)

	return nil
}

func (f *fakeClient) SubmitAnswers(
	_ context.Context,
	_ string,
	req api.BulkSubmitRequest,
) (*api.SubmitResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.submitErr != nil {
		return nil, f.submitErr
	}

	f.submitted = append(f.submitted, req)

	return f.submitResult, nil
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

func (f *fakeClient) statuses() []models.SessionStatus {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]models.SessionStatus, len(f.statusUpdates))
	copy(out, f.statusUpdates)

	return out
}

// singleChoiceQuestion строит вопрос с одним правильным вариантом.
// Первый вариант (id*10+1) всегда правильный.
func singleChoiceQuestion(id int64) models.Question {
	return models.Question{
		ID:   id,
		Text: "question",
		Type: models.QuestionSingleChoice,
		Options: []models.Option{
			{ID: id*10 + 1, Text: "right", IsCorrect: true},
			{ID: id*10 + 2, Text: "wrong"},
		},
	}
}

func testSession() *models.Session {
	return &models.Session{
		ID:     "s1",
		Title:  "Test quiz",
		Type:   models.QuizTypePractice,
		Status: models.StatusNotStarted,
		Questions: []models.Question{
			singleChoiceQuestion(101),
			singleChoiceQuestion(102),
			singleChoiceQuestion(103),
		},
	}
}

func newTestEngine(t *testing.T, sess *models.Session) (*Engine, *storage.MemoryStorage, *fakeClient) {
	t.Helper()

	store := storage.NewMemoryStorage()
	client := &fakeClient{}

	engine := NewEngine(store, client, grading.DefaultConfig())
	require.NoError(t, engine.Hydrate(context.Background(), sess))

	return engine, store, client
}

// drainNotifications выбирает все накопившиеся уведомления.
func drainNotifications(engine *Engine) []Notification {
	out := make([]Notification, 0, 4)

	for {
		select {
		case n := <-engine.Notifications():
			out = append(out, n)
		default:
			return out
		}
	}
}

func TestHydrate_FreshSessionCreatesSnapshot(t *testing.T) {
	_, store, _ := newTestEngine(t, testSession())

	snap, err := store.LoadSessionState(context.Background(), "s1")
	require.NoError(t, err)

	assert.Equal(t, models.StatusNotStarted, snap.Status)
	assert.Equal(t, 3, snap.TotalQuestions)
	assert.Empty(t, snap.Answers)
}

func TestHydrate_ResumesFromSnapshot(t *testing.T) {
	store := storage.NewMemoryStorage()
	ctx := context.Background()

	sess := testSession()

	snap := models.NewSnapshot(sess)
	snap.CurrentIndex = 2
	snap.Status = models.StatusInProgress
	snap.TimeSpentSeconds = 300
	snap.Answers[101] = models.StoredAnswer{
		QuestionID: 101,
		Value:      models.SingleChoice{OptionID: 1011},
		AnsweredAt: time.Now(),
	}
	require.NoError(t, store.SaveSessionState(ctx, snap))

	engine := NewEngine(store, &fakeClient{}, grading.DefaultConfig())

	// сервер отдал свежую сессию: курсор и ответы берутся из снапшота
	require.NoError(t, engine.Hydrate(ctx, testSession()))

	st := engine.State()
	assert.Equal(t, 2, st.Session.CurrentIndex)
	assert.Equal(t, models.StatusInProgress, st.Session.Status)
	assert.Equal(t, 300, st.Timer.TotalSeconds)

	answer, ok := st.AnswerFor(101)
	require.True(t, ok)
	assert.Equal(t, models.SingleChoice{OptionID: 1011}, answer.Value)
}

func TestGoToQuestion_Bounds(t *testing.T) {
	engine, _, _ := newTestEngine(t, testSession())
	ctx := context.Background()

	testCases := []struct {
		name  string
		index int
		want  int
	}{
		{name: "valid move", index: 2, want: 2},
		{name: "negative is noop", index: -1, want: 2},
		{name: "past the end is noop", index: 3, want: 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.NoError(t, engine.Apply(ctx, GoToQuestion{Index: tc.index}))
			assert.Equal(t, tc.want, engine.State().Session.CurrentIndex)
		})
	}
}

func TestNavigation_ResetsReveal(t *testing.T) {
	engine, _, _ := newTestEngine(t, testSession())
	ctx := context.Background()

	require.NoError(t, engine.Apply(ctx, RevealAnswer{}))
	assert.True(t, engine.State().IsAnswerRevealed)

	require.NoError(t, engine.Apply(ctx, NextQuestion{}))

	st := engine.State()
	assert.False(t, st.IsAnswerRevealed)
	assert.False(t, st.ShowExplanation)
	assert.Equal(t, 1, st.Session.CurrentIndex)
	assert.Equal(t, 0, st.Timer.QuestionSeconds)
}

func TestSubmitAnswer_GradesAndPersists(t *testing.T) {
	engine, store, client := newTestEngine(t, testSession())
	ctx := context.Background()

	require.NoError(t, engine.Apply(ctx, SubmitAnswer{
		QuestionID: 101,
		Value:      models.SingleChoice{OptionID: 1011},
	}))

	st := engine.State()

	answer, ok := st.AnswerFor(101)
	require.True(t, ok)
	require.NotNil(t, answer.IsCorrect)
	assert.True(t, *answer.IsCorrect)

	// первый ответ переводит сессию в IN_PROGRESS
	assert.Equal(t, models.StatusInProgress, st.Session.Status)

	stored, err := store.AnswersForSubmission(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, stored, 1)

	// продвижение статуса на бэкенде — fire-and-forget
	assert.Eventually(t, func() bool {
		statuses := client.statuses()
		return len(statuses) == 1 && statuses[0] == models.StatusInProgress
	}, time.Second, 10*time.Millisecond)
}

func TestSubmitAnswer_WrongOptionGradedIncorrect(t *testing.T) {
	engine, _, _ := newTestEngine(t, testSession())

	require.NoError(t, engine.Apply(context.Background(), SubmitAnswer{
		QuestionID: 101,
		Value:      models.SingleChoice{OptionID: 1012},
	}))

	answer, ok := engine.State().AnswerFor(101)
	require.True(t, ok)
	require.NotNil(t, answer.IsCorrect)
	assert.False(t, *answer.IsCorrect)
}

func TestSubmitAnswer_Idempotent(t *testing.T) {
	engine, _, _ := newTestEngine(t, testSession())
	ctx := context.Background()

	event := SubmitAnswer{QuestionID: 101, Value: models.SingleChoice{OptionID: 1011}}

	require.NoError(t, engine.Apply(ctx, event))
	first, _ := engine.State().AnswerFor(101)

	require.NoError(t, engine.Apply(ctx, event))
	second, _ := engine.State().AnswerFor(101)

	// повторная отправка того же значения ничего не меняет,
	// кроме служебных полей времени
	assert.Equal(t, first.Value, second.Value)
	assert.Equal(t, first.IsCorrect, second.IsCorrect)
	assert.Len(t, engine.State().LocalAnswers, 1)
}

func TestSubmitAnswer_CompletedSessionGuard(t *testing.T) {
	engine, store, _ := newTestEngine(t, testSession())
	ctx := context.Background()

	require.NoError(t, engine.Apply(ctx, SubmitAnswer{
		QuestionID: 101,
		Value:      models.SingleChoice{OptionID: 1011},
	}))
	require.NoError(t, engine.Apply(ctx, CompleteQuiz{}))

	before, err := store.AnswersForSubmission(ctx, "s1")
	require.NoError(t, err)

	// без режима правки ответ в завершённой сессии — no-op
	require.NoError(t, engine.Apply(ctx, SubmitAnswer{
		QuestionID: 102,
		Value:      models.SingleChoice{OptionID: 1021},
	}))

	_, answered := engine.State().AnswerFor(102)
	assert.False(t, answered)

	after, err := store.AnswersForSubmission(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, len(before), len(after))
}

func TestSubmitAnswer_EmptyValueRejected(t *testing.T) {
	sess := testSession()
	sess.Questions = append(sess.Questions, multiChoiceQuestion(104))

	engine, store, _ := newTestEngine(t, sess)
	ctx := context.Background()

	// ответ без значения не сериализуется в снапшот: такой записи
	// нельзя позволить дойти до хранилища
	err := engine.Apply(ctx, SubmitAnswer{QuestionID: 104, Value: models.MultiChoice{}})
	require.Error(t, err)

	err = engine.Apply(ctx, SubmitAnswer{QuestionID: 101})
	require.Error(t, err)

	_, answered := engine.State().AnswerFor(104)
	assert.False(t, answered)

	answers, err := store.AnswersForSubmission(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, answers)

	snap, err := store.LoadSessionState(ctx, "s1")
	require.NoError(t, err)

	// снапшот по-прежнему пригоден для восстановления
	data, err := json.Marshal(snap)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &models.Snapshot{}))
}

func TestSubmitAnswer_PromotesOnlyOnce(t *testing.T) {
	engine, _, client := newTestEngine(t, testSession())
	ctx := context.Background()

	require.NoError(t, engine.Apply(ctx, SubmitAnswer{
		QuestionID: 101,
		Value:      models.SingleChoice{OptionID: 1011},
	}))
	require.NoError(t, engine.Apply(ctx, SubmitAnswer{
		QuestionID: 102,
		Value:      models.SingleChoice{OptionID: 1021},
	}))

	assert.Eventually(t, func() bool {
		return len(client.statuses()) == 1
	}, time.Second, 10*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	assert.Len(t, client.statuses(), 1, "status must be promoted exactly once")
}

func TestCompleteQuiz_Idempotent(t *testing.T) {
	engine, store, _ := newTestEngine(t, testSession())
	ctx := context.Background()

	require.NoError(t, engine.Apply(ctx, CompleteQuiz{}))
	require.NoError(t, engine.Apply(ctx, CompleteQuiz{}))

	assert.Equal(t, models.StatusCompleted, engine.State().Session.Status)

	snap, err := store.LoadSessionState(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, snap.Status)
}

func TestCompleteQuiz_LocalOnly(t *testing.T) {
	engine, _, client := newTestEngine(t, testSession())
	ctx := context.Background()

	require.NoError(t, engine.Apply(ctx, CompleteQuiz{}))

	st := engine.State()
	assert.Equal(t, models.StatusCompleted, st.Session.Status)
	assert.True(t, st.IsAnswerRevealed)
	assert.True(t, st.ShowExplanation)
	assert.False(t, st.Timer.IsRunning)

	// локальное завершение не ходит в сеть
	assert.Empty(t, client.statuses())
	assert.Empty(t, client.submitted)
}

func TestTimer_TimeUpFiresOnce(t *testing.T) {
	sess := testSession()
	sess.TimeLimitMinutes = 1

	engine, _, _ := newTestEngine(t, sess)
	ctx := context.Background()

	for i := 0; i < 61; i++ {
		require.NoError(t, engine.Apply(ctx, Tick{}))
	}

	notifications := drainNotifications(engine)
	require.Len(t, notifications, 1)
	assert.Equal(t, NotifyTimeUp, notifications[0].Type)

	// квиз автоматически встал на паузу, но продолжить можно
	assert.True(t, engine.State().Timer.IsPaused)
	require.NoError(t, engine.Apply(ctx, ResumeQuiz{}))

	for i := 0; i < 59; i++ {
		require.NoError(t, engine.Apply(ctx, Tick{}))
	}

	assert.Empty(t, drainNotifications(engine), "time up must fire exactly once")
	assert.Equal(t, 120, engine.State().Timer.TotalSeconds)
}

func TestTimer_PauseStopsTicks(t *testing.T) {
	engine, _, _ := newTestEngine(t, testSession())
	ctx := context.Background()

	require.NoError(t, engine.Apply(ctx, Tick{}))
	require.NoError(t, engine.Apply(ctx, PauseQuiz{}))
	require.NoError(t, engine.Apply(ctx, Tick{}))
	require.NoError(t, engine.Apply(ctx, Tick{}))

	assert.Equal(t, 1, engine.State().Timer.TotalSeconds)

	require.NoError(t, engine.Apply(ctx, ResumeQuiz{}))
	require.NoError(t, engine.Apply(ctx, Tick{}))

	assert.Equal(t, 2, engine.State().Timer.TotalSeconds)
}

func TestEditMode_RequiresCompletedSession(t *testing.T) {
	engine, _, _ := newTestEngine(t, testSession())

	err := engine.Apply(context.Background(), EnterEditMode{QuestionID: 101})
	assert.ErrorIs(t, err, ErrNotEditable)
}

func TestEditMode_UpdatesAnswerSynchronously(t *testing.T) {
	engine, _, client := newTestEngine(t, testSession())
	ctx := context.Background()

	require.NoError(t, engine.Apply(ctx, SubmitAnswer{
		QuestionID: 101,
		Value:      models.SingleChoice{OptionID: 1012},
	}))
	require.NoError(t, engine.Apply(ctx, CompleteQuiz{}))

	require.NoError(t, engine.Apply(ctx, EnterEditMode{QuestionID: 101}))
	require.NoError(t, engine.Apply(ctx, SubmitAnswer{
		QuestionID: 101,
		Value:      models.SingleChoice{OptionID: 1011},
	}))

	// правка ушла на бэкенд синхронно
	require.Len(t, client.updatedAnswers, 1)
	require.NotNil(t, client.updatedAnswers[0].SelectedAnswerID)
	assert.Equal(t, int64(1011), *client.updatedAnswers[0].SelectedAnswerID)

	st := engine.State()
	assert.Nil(t, st.EditingQuestionID, "edit mode exits on success")

	answer, _ := st.AnswerFor(101)
	assert.Equal(t, models.SingleChoice{OptionID: 1011}, answer.Value)
}

func TestEditMode_BackendRejectsCompletedSession(t *testing.T) {
	engine, _, client := newTestEngine(t, testSession())
	ctx := context.Background()

	client.updateAnswerErr = api.ErrSessionCompleted

	require.NoError(t, engine.Apply(ctx, CompleteQuiz{}))
	require.NoError(t, engine.Apply(ctx, EnterEditMode{QuestionID: 101}))

	drainNotifications(engine)

	require.NoError(t, engine.Apply(ctx, SubmitAnswer{
		QuestionID: 101,
		Value:      models.SingleChoice{OptionID: 1011},
	}))

	notifications := drainNotifications(engine)
	require.Len(t, notifications, 1)
	assert.Equal(t, NotifyEditRejected, notifications[0].Type)

	// отказ бэкенда не падение: режим правки закрыт, ответ не записан
	st := engine.State()
	assert.Nil(t, st.EditingQuestionID)

	_, answered := st.AnswerFor(101)
	assert.False(t, answered)
}

func TestFreeTextAnswer_GradedByHeuristic(t *testing.T) {
	sess := testSession()
	sess.Questions = append(sess.Questions, models.Question{
		ID:               104,
		Text:             "open question",
		Type:             models.QuestionFreeText,
		ReferenceAnswers: []string{"insulin lowers blood glucose"},
	})

	engine, _, _ := newTestEngine(t, sess)
	ctx := context.Background()

	require.NoError(t, engine.Apply(ctx, SubmitAnswer{
		QuestionID: 104,
		Value:      models.FreeText{Text: "blood glucose is lowered by insulin"},
	}))

	answer, ok := engine.State().AnswerFor(104)
	require.True(t, ok)
	require.NotNil(t, answer.IsCorrect)
	assert.True(t, *answer.IsCorrect)
}

func TestFreeTextAnswer_NoReferencesLeftUngraded(t *testing.T) {
	sess := testSession()
	sess.Questions = append(sess.Questions, models.Question{
		ID:   104,
		Text: "open question",
		Type: models.QuestionFreeText,
	})

	engine, _, _ := newTestEngine(t, sess)

	require.NoError(t, engine.Apply(context.Background(), SubmitAnswer{
		QuestionID: 104,
		Value:      models.FreeText{Text: "anything"},
	}))

	answer, ok := engine.State().AnswerFor(104)
	require.True(t, ok)
	assert.Nil(t, answer.IsCorrect)
}
