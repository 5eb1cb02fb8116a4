package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// AnswerValue — закрытый набор форм ответа. Форма определяется типом
// вопроса, которому принадлежит ответ: ровно одно из трёх.
type AnswerValue interface {
	answerValue()
}

// SingleChoice — ответ на вопрос с одним вариантом.
type SingleChoice struct {
	OptionID int64
}

// MultiChoice — ответ на вопрос с несколькими вариантами.
type MultiChoice struct {
	OptionIDs []int64
}

// FreeText — свободный текстовый ответ.
type FreeText struct {
	Text string
}

func (SingleChoice) answerValue() {}
func (MultiChoice) answerValue()  {}
func (FreeText) answerValue()     {}

// StoredAnswer представляет локально сохранённый ответ на один вопрос.
type StoredAnswer struct {
	QuestionID       int64
	Value            AnswerValue
	IsCorrect        *bool // nil — ещё не оценён (свободный текст до проверки)
	TimeSpentSeconds int
	AnsweredAt       time.Time
	Bookmarked       bool
	Flags            []string
	Note             string
}

// storedAnswerJSON — плоская форма для сериализации в снапшот.
type storedAnswerJSON struct {
	QuestionID       int64     `json:"questionId"`
	SelectedAnswerID *int64    `json:"selectedAnswerId,omitempty"`
	SelectedIDs      []int64   `json:"selectedAnswerIds,omitempty"`
	TextAnswer       *string   `json:"textAnswer,omitempty"`
	IsCorrect        *bool     `json:"isCorrect,omitempty"`
	TimeSpentSeconds int       `json:"timeSpent"`
	AnsweredAt       time.Time `json:"answeredAt"`
	Bookmarked       bool      `json:"bookmarked,omitempty"`
	Flags            []string  `json:"flags,omitempty"`
	Note             string    `json:"note,omitempty"`
}

// MarshalJSON сериализует ответ в плоскую форму: заполнено ровно одно
// из полей selectedAnswerId / selectedAnswerIds / textAnswer.
func (a StoredAnswer) MarshalJSON() ([]byte, error) {
	out := storedAnswerJSON{
		QuestionID:       a.QuestionID,
		IsCorrect:        a.IsCorrect,
		TimeSpentSeconds: a.TimeSpentSeconds,
		AnsweredAt:       a.AnsweredAt,
		Bookmarked:       a.Bookmarked,
		Flags:            a.Flags,
		Note:             a.Note,
	}

	switch v := a.Value.(type) {
	case SingleChoice:
		out.SelectedAnswerID = &v.OptionID
	case MultiChoice:
		out.SelectedIDs = v.OptionIDs
	case FreeText:
		out.TextAnswer = &v.Text
	case nil:
		return nil, fmt.Errorf("answer for question %d has no value", a.QuestionID)
	default:
		return nil, fmt.Errorf("unknown answer value type %T", a.Value)
	}

	return json.Marshal(out)
}

// UnmarshalJSON восстанавливает ответ из плоской формы.
func (a *StoredAnswer) UnmarshalJSON(data []byte) error {
	var raw storedAnswerJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	a.QuestionID = raw.QuestionID
	a.IsCorrect = raw.IsCorrect
	a.TimeSpentSeconds = raw.TimeSpentSeconds
	a.AnsweredAt = raw.AnsweredAt
	a.Bookmarked = raw.Bookmarked
	a.Flags = raw.Flags
	a.Note = raw.Note

	switch {
	case raw.SelectedAnswerID != nil:
		a.Value = SingleChoice{OptionID: *raw.SelectedAnswerID}
	case raw.SelectedIDs != nil:
		a.Value = MultiChoice{OptionIDs: raw.SelectedIDs}
	case raw.TextAnswer != nil:
		a.Value = FreeText{Text: *raw.TextAnswer}
	default:
		return fmt.Errorf("stored answer for question %d has no value fields", raw.QuestionID)
	}

	return nil
}
