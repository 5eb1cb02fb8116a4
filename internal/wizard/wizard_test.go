package wizard

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letsssgooo/quizTaker/internal/api"
	"github.com/letsssgooo/quizTaker/internal/domain/models"
)

// fakeClient отдаёт заранее заданные вопросы по блокам и модулям.
type fakeClient struct {
	byUnit   map[int64][]models.Question
	byModule map[int64][]models.Question

	created *api.CreateSessionRequest
}

func (f *fakeClient) CreateSession(
	_ context.Context,
	req api.CreateSessionRequest,
) (*api.CreateSessionResponse, error) {
	f.created = &req

	return &api.CreateSessionResponse{
		SessionID: "session-42",
		Status:    models.StatusNotStarted,
	}, nil
}

func (f *fakeClient) GetSession(_ context.Context, _ string) (*models.Session, error) {
	return nil, nil
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
	_ api.BulkSubmitRequest,
) (*api.SubmitResult, error) {
	return nil, nil
}

func (f *fakeClient) Units(_ context.Context) ([]api.Unit, error) {
	return nil, nil
}

func (f *fakeClient) QuestionsByUnit(_ context.Context, unitID int64) ([]models.Question, error) {
	return f.byUnit[unitID], nil
}

func (f *fakeClient) QuestionsByModule(_ context.Context, moduleID int64) ([]models.Question, error) {
	return f.byModule[moduleID], nil
}

func question(id int64, qType models.QuestionType, year int) models.Question {
	return models.Question{
		ID:   id,
		Text: "question",
		Type: qType,
		Year: year,
		Options: []models.Option{
			{ID: id * 10, Text: "a", IsCorrect: true},
			{ID: id*10 + 1, Text: "b"},
		},
	}
}

func TestCollectQuestions_DeduplicatesAndFilters(t *testing.T) {
	client := &fakeClient{
		byUnit: map[int64][]models.Question{
			1: {
				question(1, models.QuestionSingleChoice, 2020),
				question(2, models.QuestionMultiChoice, 2018),
			},
			2: {
				// дубль вопроса 1 из другого блока
				question(1, models.QuestionSingleChoice, 2020),
				question(3, models.QuestionSingleChoice, 2023),
			},
		},
	}

	w := NewWizard(client)

	cfg := Config{
		UnitIDs:  []int64{1, 2},
		Types:    []models.QuestionType{models.QuestionSingleChoice},
		YearFrom: 2019,
	}

	questions, err := w.CollectQuestions(context.Background(), cfg)
	require.NoError(t, err)

	ids := make([]int64, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.ID)
	}

	// вопрос 2 отсечён типом, дубль вопроса 1 не задвоился
	assert.ElementsMatch(t, []int64{1, 3}, ids)
}

func TestCollectQuestions_RequiresCourseSelection(t *testing.T) {
	w := NewWizard(&fakeClient{})

	_, err := w.CollectQuestions(context.Background(), Config{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestValidateCountStep(t *testing.T) {
	testCases := []struct {
		name      string
		count     int
		available int
		ok        bool
	}{
		{name: "valid", count: 5, available: 10, ok: true},
		{name: "zero", count: 0, available: 10, ok: false},
		{name: "too many", count: 11, available: 10, ok: false},
		{name: "exactly available", count: 10, available: 10, ok: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateCountStep(Config{Count: tc.count}, tc.available)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrValidation)
			}
		})
	}
}

func TestSanitizeTitle(t *testing.T) {
	testCases := []struct {
		name  string
		title string
		want  string
	}{
		{name: "plain", title: "Cardiology revision", want: "Cardiology revision"},
		{name: "allowed punctuation", title: "Unit 3: anatomy (part 1), v2.0 - final", want: "Unit 3: anatomy (part 1), v2.0 - final"},
		{name: "special characters stripped", title: "quiz <#1> @home!", want: "quiz 1 home"},
		{name: "only specials", title: "###@@@", want: ""},
		{name: "truncated to limit", title: strings.Repeat("a", 150), want: strings.Repeat("a", 100)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SanitizeTitle(tc.title))
		})
	}
}

func TestSample(t *testing.T) {
	w := NewWizard(&fakeClient{})

	questions := []models.Question{
		question(1, models.QuestionSingleChoice, 0),
		question(2, models.QuestionSingleChoice, 0),
		question(3, models.QuestionSingleChoice, 0),
		question(4, models.QuestionSingleChoice, 0),
	}

	picked := w.Sample(questions, 2)
	assert.Len(t, picked, 2)

	seen := make(map[int64]struct{})
	for _, q := range picked {
		seen[q.ID] = struct{}{}
	}

	assert.Len(t, seen, 2, "sampled questions must be distinct")

	all := w.Sample(questions, 10)
	assert.Len(t, all, 4)
}

func TestCreateSession(t *testing.T) {
	client := &fakeClient{}
	w := NewWizard(client)

	questions := []models.Question{
		question(1, models.QuestionSingleChoice, 0),
		question(2, models.QuestionSingleChoice, 0),
	}

	cfg := Config{
		UnitIDs: []int64{1},
		Count:   2,
		Title:   "My quiz! <draft>",
	}

	sess, err := w.CreateSession(context.Background(), cfg, questions)
	require.NoError(t, err)

	assert.Equal(t, "session-42", sess.ID)
	assert.Equal(t, models.StatusNotStarted, sess.Status)
	assert.Equal(t, models.QuizTypePractice, sess.Type)
	assert.Len(t, sess.Questions, 2)

	require.NotNil(t, client.created)
	assert.Equal(t, "My quiz draft", client.created.Title)
	assert.Len(t, client.created.QuestionIDs, 2)
	assert.NotEmpty(t, client.created.ClientRequestID)
}

func TestCreateSession_EmptyTitle(t *testing.T) {
	w := NewWizard(&fakeClient{})

	cfg := Config{Count: 1, Title: "###"}

	_, err := w.CreateSession(context.Background(), cfg, []models.Question{
		question(1, models.QuestionSingleChoice, 0),
	})

	assert.ErrorIs(t, err, ErrValidation)
}
