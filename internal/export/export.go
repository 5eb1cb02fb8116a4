package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/letsssgooo/quizTaker/internal/api"
	"github.com/letsssgooo/quizTaker/internal/domain/models"
)

// header — колонки отчёта по сессии.
var header = []string{
	"QuestionID",
	"Type",
	"Question",
	"YourAnswer",
	"LocalVerdict",
	"TimeSpentSec",
}

// rows собирает строки отчёта: по одной на вопрос сессии.
func rows(sess *models.Session, answers map[int64]models.StoredAnswer) [][]string {
	out := make([][]string, 0, sess.TotalQuestions())

	for i := range sess.Questions {
		q := &sess.Questions[i]

		answerText := ""
		verdict := "нет ответа"
		timeSpent := 0

		if answer, ok := answers[q.ID]; ok {
			answerText = answerString(q, answer.Value)
			timeSpent = answer.TimeSpentSeconds

			switch {
			case answer.IsCorrect == nil:
				verdict = "не оценён"
			case *answer.IsCorrect:
				verdict = "верно"
			default:
				verdict = "неверно"
			}
		}

		out = append(out, []string{
			fmt.Sprintf("%d", q.ID),
			string(q.Type),
			q.Text,
			answerText,
			verdict,
			fmt.Sprintf("%d", timeSpent),
		})
	}

	return out
}

func answerString(q *models.Question, value models.AnswerValue) string {
	optionText := func(id int64) string {
		for _, opt := range q.Options {
			if opt.ID == id {
				return opt.Text
			}
		}

		return fmt.Sprintf("#%d", id)
	}

	switch v := value.(type) {
	case models.SingleChoice:
		return optionText(v.OptionID)
	case models.MultiChoice:
		texts := make([]string, 0, len(v.OptionIDs))
		for _, id := range v.OptionIDs {
			texts = append(texts, optionText(id))
		}

		return strings.Join(texts, "; ")
	case models.FreeText:
		return v.Text
	}

	return ""
}

func summaryLines(result *api.SubmitResult) [][]string {
	if result == nil {
		return nil
	}

	return [][]string{
		{"Score", fmt.Sprintf("%.1f/20", result.ScoreOutOf20)},
		{"Percentage", fmt.Sprintf("%.0f%%", result.PercentageScore)},
		{"Answered", fmt.Sprintf("%d/%d", result.AnsweredQuestions, result.TotalQuestions)},
		{"TimeSpentSec", fmt.Sprintf("%d", result.TimeSpent)},
	}
}

// ResultsCSV экспортирует отчёт по сессии в CSV.
func ResultsCSV(
	sess *models.Session,
	answers map[int64]models.StoredAnswer,
	result *api.SubmitResult,
) ([]byte, error) {
	records := make([][]string, 0, sess.TotalQuestions()+6)
	records = append(records, header)
	records = append(records, rows(sess, answers)...)

	if summary := summaryLines(result); summary != nil {
		records = append(records, []string{})
		records = append(records, summary...)
	}

	var buf bytes.Buffer

	w := csv.NewWriter(&buf)
	if err := w.WriteAll(records); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// ResultsXLSX экспортирует отчёт по сессии в xlsx.
func ResultsXLSX(
	sess *models.Session,
	answers map[int64]models.StoredAnswer,
	result *api.SubmitResult,
) ([]byte, error) {
	f := excelize.NewFile()

	defer func() {
		_ = f.Close()
	}()

	const sheet = "Results"

	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}

	f.SetActiveSheet(index)

	if err = f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	writeRow := func(rowIdx int, values []string) error {
		for colIdx, value := range values {
			cell, cellErr := excelize.CoordinatesToCellName(colIdx+1, rowIdx)
			if cellErr != nil {
				return cellErr
			}

			if cellErr = f.SetCellValue(sheet, cell, value); cellErr != nil {
				return cellErr
			}
		}

		return nil
	}

	rowIdx := 1
	if err = writeRow(rowIdx, header); err != nil {
		return nil, err
	}

	for _, record := range rows(sess, answers) {
		rowIdx++

		if err = writeRow(rowIdx, record); err != nil {
			return nil, err
		}
	}

	rowIdx++

	for _, record := range summaryLines(result) {
		rowIdx++

		if err = writeRow(rowIdx, record); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err = f.Write(&buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
