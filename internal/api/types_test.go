package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letsssgooo/quizTaker/internal/domain/models"
)

func TestParseQuestions_NormalizesCorrectnessFlags(t *testing.T) {
	// один и тот же признак правильности под четырьмя историческими именами
	data := []byte(`[
		{
			"id": 1,
			"text": "q",
			"type": "SINGLE_CHOICE",
			"options": [
				{"id": 11, "text": "a", "isCorrect": true},
				{"id": 12, "text": "b", "correct": true},
				{"id": 13, "text": "c", "isRightAnswer": true},
				{"id": 14, "text": "d", "isCorrectAnswer": true},
				{"id": 15, "text": "e"},
				{"id": 16, "text": "f", "isCorrect": false, "correct": false}
			]
		}
	]`)

	questions, err := ParseQuestions(data)
	require.NoError(t, err)
	require.Len(t, questions, 1)

	correct := questions[0].CorrectOptionIDs()
	assert.ElementsMatch(t, []int64{11, 12, 13, 14}, correct)
}

func TestParseQuestions_NormalizesQuestionType(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
		want models.QuestionType
	}{
		{name: "canonical single", raw: "SINGLE_CHOICE", want: models.QuestionSingleChoice},
		{name: "legacy single alias", raw: "QCU", want: models.QuestionSingleChoice},
		{name: "legacy multi alias", raw: "QCM", want: models.QuestionMultiChoice},
		{name: "legacy free text alias", raw: "QROC", want: models.QuestionFreeText},
		{name: "clinical case alias", raw: "cas_clinique", want: models.QuestionClinicalCase},
		{name: "unknown falls back to single", raw: "SOMETHING_NEW", want: models.QuestionSingleChoice},
		{name: "empty falls back to single", raw: "", want: models.QuestionSingleChoice},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data := []byte(`[{"id": 1, "text": "q", "type": "` + tc.raw + `", "options": []}]`)

			questions, err := ParseQuestions(data)
			require.NoError(t, err)
			require.Len(t, questions, 1)

			assert.Equal(t, tc.want, questions[0].Type)
		})
	}
}

func TestParseQuestions_KeepsQuestionFields(t *testing.T) {
	data := []byte(`[
		{
			"id": 7,
			"text": "describe the mechanism",
			"type": "QROC",
			"options": [],
			"referenceAnswers": ["insulin lowers blood glucose"],
			"images": ["a.png"],
			"clinicalCase": {
				"patient": "45 y.o. male",
				"history": "diabetes",
				"examination": "normal"
			},
			"explanation": "see lecture 3",
			"year": 2021
		}
	]`)

	questions, err := ParseQuestions(data)
	require.NoError(t, err)
	require.Len(t, questions, 1)

	q := questions[0]
	assert.Equal(t, int64(7), q.ID)
	assert.Equal(t, []string{"insulin lowers blood glucose"}, q.ReferenceAnswers)
	assert.Equal(t, []string{"a.png"}, q.Images)
	assert.Equal(t, "see lecture 3", q.Explanation)
	assert.Equal(t, 2021, q.Year)

	require.NotNil(t, q.Case)
	assert.True(t, q.Case.Complete())
}

func TestParseQuestions_MalformedJSON(t *testing.T) {
	_, err := ParseQuestions([]byte(`{"not": "a list"}`))
	assert.Error(t, err)
}

func TestRawSessionNormalized(t *testing.T) {
	raw := rawSession{
		ID:     "s1",
		Title:  "Cardiology",
		Type:   "EXAM",
		Status: "IN_PROGRESS",
		Questions: []rawQuestion{
			{ID: 1, Text: "q", Type: "QCM"},
		},
		CurrentIndex:     3,
		TimeLimitMinutes: 30,
		TimeSpentSeconds: 420,
	}

	sess := raw.normalized()

	assert.Equal(t, "s1", sess.ID)
	assert.Equal(t, models.QuizTypeExam, sess.Type)
	assert.Equal(t, models.StatusInProgress, sess.Status)
	assert.Equal(t, 3, sess.CurrentIndex)
	assert.Equal(t, 30, sess.TimeLimitMinutes)
	assert.Equal(t, 420, sess.TimeSpentSeconds)

	require.Len(t, sess.Questions, 1)
	assert.Equal(t, models.QuestionMultiChoice, sess.Questions[0].Type)
}
