package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/letsssgooo/quizTaker/internal/api"
	"github.com/letsssgooo/quizTaker/internal/domain/models"
	"github.com/letsssgooo/quizTaker/internal/session"
	"github.com/letsssgooo/quizTaker/internal/storage"
)

// AnswerLetters — допустимые буквы для вариантов (A-H до 8 вариантов).
var AnswerLetters = []string{"A", "B", "C", "D", "E", "F", "G", "H"}

// LetterToIndex преобразует букву в индекс (A=0, B=1, ...).
func LetterToIndex(letter string) (int, bool) {
	letter = strings.ToUpper(strings.TrimSpace(letter))

	for i, l := range AnswerLetters {
		if l == letter {
			return i, true
		}
	}

	return -1, false
}

// IndexToLetter преобразует индекс в букву (0=A, 1=B, ...).
func IndexToLetter(idx int) string {
	if idx >= 0 && idx < len(AnswerLetters) {
		return AnswerLetters[idx]
	}

	return ""
}

// Renderer печатает вопросы, результаты и уведомления в терминал.
// Состояния не имеет: всё читается из session.State.
type Renderer struct {
	out io.Writer
}

// NewRenderer создаёт новый Renderer.
func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{out: out}
}

// Question печатает текущий вопрос с вариантами и прогрессом.
func (r *Renderer) Question(st session.State) {
	sess := st.Session
	if sess == nil {
		fmt.Fprintln(r.out, "Нет активной сессии.")
		return
	}

	question, ok := sess.CurrentQuestion()
	if !ok {
		fmt.Fprintln(r.out, "Вопросов нет.")
		return
	}

	fmt.Fprintln(r.out)
	color.New(color.Bold).Fprintf(
		r.out,
		"Вопрос %d/%d",
		sess.CurrentIndex+1,
		sess.TotalQuestions(),
	)

	fmt.Fprintf(r.out, "   [%s]", timerLine(st.Timer))

	if st.EditingQuestionID != nil && *st.EditingQuestionID == question.ID {
		color.New(color.FgYellow).Fprint(r.out, "   РЕЖИМ ПРАВКИ")
	}

	fmt.Fprintln(r.out)

	if question.Type == models.QuestionClinicalCase {
		r.clinicalCase(question.Case)
	}

	fmt.Fprintln(r.out, question.Text)

	for _, img := range question.Images {
		fmt.Fprintf(r.out, "  (изображение: %s)\n", img)
	}

	answer, answered := st.AnswerFor(question.ID)

	switch question.Type {
	case models.QuestionFreeText:
		r.freeText(st, answer, answered, question)
	default:
		r.options(st, question, answer, answered)
	}

	if st.ShowExplanation && st.IsAnswerRevealed && question.Explanation != "" {
		fmt.Fprintln(r.out)
		color.New(color.FgCyan).Fprintln(r.out, "Объяснение: "+question.Explanation)
	}
}

// clinicalCase печатает контекст клинического кейса.
// Неполные данные — это явная ошибка, клиент не выдумывает содержимое.
func (r *Renderer) clinicalCase(c *models.ClinicalCase) {
	if !c.Complete() {
		color.New(color.FgRed, color.Bold).Fprintln(
			r.out,
			"Данные клинического кейса недоступны: вопрос нельзя отобразить корректно.",
		)

		return
	}

	panel := color.New(color.FgHiWhite)
	panel.Fprintln(r.out, "Пациент:     "+c.Patient)
	panel.Fprintln(r.out, "Анамнез:     "+c.History)
	panel.Fprintln(r.out, "Обследование: "+c.Examination)
	fmt.Fprintln(r.out)
}

func (r *Renderer) options(
	st session.State,
	question *models.Question,
	answer models.StoredAnswer,
	answered bool,
) {
	selected := selectedSet(answer, answered)

	for i, opt := range question.Options {
		line := fmt.Sprintf("  %s) %s", IndexToLetter(i), opt.Text)

		marker := " "
		if _, ok := selected[opt.ID]; ok {
			marker = "*"
		}

		switch {
		case st.IsAnswerRevealed && opt.IsCorrect:
			color.New(color.FgGreen).Fprintf(r.out, "%s%s\n", marker, line)
		case st.IsAnswerRevealed && !opt.IsCorrect && marker == "*":
			color.New(color.FgRed).Fprintf(r.out, "%s%s\n", marker, line)
		default:
			fmt.Fprintf(r.out, "%s%s\n", marker, line)
		}
	}

	if question.Type == models.QuestionMultiChoice && !st.IsAnswerRevealed {
		fmt.Fprintln(r.out, "  (несколько вариантов; подтвердите выбор командой ok)")
	}
}

func (r *Renderer) freeText(
	st session.State,
	answer models.StoredAnswer,
	answered bool,
	question *models.Question,
) {
	if !answered {
		fmt.Fprintln(r.out, "  (свободный ответ; введите текст)")
		return
	}

	if text, ok := answer.Value.(models.FreeText); ok {
		fmt.Fprintln(r.out, "  Ваш ответ: "+text.Text)
	}

	if st.IsAnswerRevealed {
		for _, ref := range question.ReferenceAnswers {
			color.New(color.FgGreen).Fprintln(r.out, "  Эталон: "+ref)
		}

		if answer.IsCorrect != nil {
			verdict := color.New(color.FgRed).Sprint("не засчитан")
			if *answer.IsCorrect {
				verdict = color.New(color.FgGreen).Sprint("засчитан")
			}

			fmt.Fprintf(r.out, "  Предварительная оценка: %s (не итоговая)\n", verdict)
		}
	}
}

func selectedSet(answer models.StoredAnswer, answered bool) map[int64]struct{} {
	set := make(map[int64]struct{})
	if !answered {
		return set
	}

	switch v := answer.Value.(type) {
	case models.SingleChoice:
		set[v.OptionID] = struct{}{}
	case models.MultiChoice:
		for _, id := range v.OptionIDs {
			set[id] = struct{}{}
		}
	}

	return set
}

func timerLine(t session.TimerState) string {
	minutes := t.TotalSeconds / 60
	seconds := t.TotalSeconds % 60

	line := fmt.Sprintf("%02d:%02d", minutes, seconds)

	if t.IsPaused {
		line += " пауза"
	}

	if t.LimitSeconds > 0 {
		line += fmt.Sprintf(" / лимит %d мин", t.LimitSeconds/60)
	}

	return line
}

// Results печатает авторитетный результат бэкенда.
func (r *Renderer) Results(result *api.SubmitResult) {
	if result == nil {
		return
	}

	fmt.Fprintln(r.out)
	color.New(color.Bold).Fprintln(r.out, "Результаты сессии")
	fmt.Fprintf(r.out, "  Балл:      %.1f/20 (%.0f%%)\n", result.ScoreOutOf20, result.PercentageScore)
	fmt.Fprintf(r.out, "  Отвечено:  %d из %d\n", result.AnsweredQuestions, result.TotalQuestions)
	fmt.Fprintf(r.out, "  Время:     %d сек\n", result.TimeSpent)
}

// Notification печатает уведомление машины состояний.
func (r *Renderer) Notification(n session.Notification) {
	switch n.Type {
	case session.NotifyTimeUp:
		color.New(color.FgYellow, color.Bold).Fprintln(r.out, n.Message)
	case session.NotifySubmitFailed, session.NotifyEditRejected:
		color.New(color.FgRed).Fprintln(r.out, n.Message)
	case session.NotifyCompleted:
		color.New(color.FgGreen, color.Bold).Fprintln(r.out, n.Message)
		r.Results(n.Result)
	default:
		fmt.Fprintln(r.out, n.Message)
	}
}

// Stats печатает сводку локального хранилища.
func (r *Renderer) Stats(stats storage.Stats) {
	fmt.Fprintf(
		r.out,
		"Локальное хранилище: %d сессий, %d ответов, ~%d байт\n",
		stats.SessionCount,
		stats.AnswerCount,
		stats.ApproxBytes,
	)
}
