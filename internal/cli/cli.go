package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/letsssgooo/quizTaker/internal/api"
	"github.com/letsssgooo/quizTaker/internal/domain/models"
	"github.com/letsssgooo/quizTaker/internal/export"
	"github.com/letsssgooo/quizTaker/internal/render"
	"github.com/letsssgooo/quizTaker/internal/session"
	"github.com/letsssgooo/quizTaker/internal/storage"
	"github.com/letsssgooo/quizTaker/internal/wizard"
)

// App — интерактивный терминальный фронт поверх машины состояний.
// Сам состояния почти не имеет: только переходное состояние формы
// (набранные, но не подтверждённые варианты множественного выбора).
type App struct {
	client api.Client
	engine *session.Engine
	store  storage.SnapshotStore
	wizard *wizard.Wizard
	render *render.Renderer

	in  *bufio.Scanner
	out io.Writer

	// outMu сериализует запись в out: в терминал пишут и цикл команд,
	// и горутина уведомлений
	outMu sync.Mutex

	// questionID -> набранные варианты множественного выбора
	pendingMulti map[int64]map[int64]struct{}

	// lastResult трогает только горутина цикла команд
	lastResult *api.SubmitResult
}

// NewApp создаёт новое приложение.
func NewApp(
	client api.Client,
	engine *session.Engine,
	store storage.SnapshotStore,
	in io.Reader,
	out io.Writer,
) *App {
	return &App{
		client:       client,
		engine:       engine,
		store:        store,
		wizard:       wizard.NewWizard(client),
		render:       render.NewRenderer(out),
		in:           bufio.NewScanner(in),
		out:          out,
		pendingMulti: make(map[int64]map[int64]struct{}),
	}
}

// Run запускает приложение: возобновляет сессию по id или проводит
// мастер создания, затем крутит цикл команд до выхода.
func (a *App) Run(ctx context.Context, resumeSessionID string) error {
	sess, err := a.openSession(ctx, resumeSessionID)
	if err != nil {
		return err
	}

	if err = a.engine.Hydrate(ctx, sess); err != nil {
		return err
	}

	tickerCtx, stopTicker := context.WithCancel(ctx)

	var wg sync.WaitGroup

	defer func() {
		stopTicker()
		wg.Wait()
	}()

	wg.Add(2)

	go func() {
		defer wg.Done()
		a.engine.RunTicker(tickerCtx)
	}()

	go func() {
		defer wg.Done()

		for {
			select {
			case <-tickerCtx.Done():
				return
			case n := <-a.engine.Notifications():
				a.outMu.Lock()
				a.render.Notification(n)
				a.outMu.Unlock()
			}
		}
	}()

	a.outMu.Lock()
	fmt.Fprintln(a.out, "Команды: A-H ответ, ok подтвердить, t <текст>, n/p/g N, r, pause, resume, finish, edit, export <файл>, stats, q")
	a.render.Question(a.engine.State())
	a.outMu.Unlock()

	for {
		a.outMu.Lock()
		fmt.Fprint(a.out, "> ")
		a.outMu.Unlock()

		if !a.in.Scan() {
			return a.in.Err()
		}

		line := strings.TrimSpace(a.in.Text())

		a.outMu.Lock()
		quit, cmdErr := a.handleCommand(ctx, line)
		if cmdErr != nil {
			fmt.Fprintln(a.out, cmdErr.Error())
		}
		a.outMu.Unlock()

		if quit {
			return nil
		}
	}
}

func (a *App) openSession(ctx context.Context, resumeSessionID string) (*models.Session, error) {
	if resumeSessionID != "" {
		sess, err := a.client.GetSession(ctx, resumeSessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to resume session %s: %w", resumeSessionID, err)
		}

		return sess, nil
	}

	return a.runWizard(ctx)
}

func (a *App) handleCommand(ctx context.Context, line string) (bool, error) {
	if line == "" {
		a.render.Question(a.engine.State())
		return false, nil
	}

	fields := strings.Fields(line)
	cmd := strings.ToLower(fields[0])

	switch cmd {
	case "q", "quit":
		return true, nil
	case "n":
		return false, a.applyAndRender(ctx, session.NextQuestion{})
	case "p":
		return false, a.applyAndRender(ctx, session.PreviousQuestion{})
	case "g":
		if len(fields) < 2 {
			return false, fmt.Errorf("usage: g <номер вопроса>")
		}

		number, err := strconv.Atoi(fields[1])
		if err != nil {
			return false, fmt.Errorf("invalid question number %q", fields[1])
		}

		return false, a.applyAndRender(ctx, session.GoToQuestion{Index: number - 1})
	case "r":
		return false, a.applyAndRender(ctx, session.RevealAnswer{})
	case "pause":
		return false, a.applyAndRender(ctx, session.PauseQuiz{})
	case "resume":
		return false, a.applyAndRender(ctx, session.ResumeQuiz{})
	case "ok":
		return false, a.confirmMulti(ctx)
	case "t":
		text := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))
		return false, a.submitFreeText(ctx, text)
	case "edit":
		return false, a.enterEdit(ctx)
	case "finish":
		return false, a.finish(ctx)
	case "export":
		if len(fields) < 2 {
			return false, fmt.Errorf("usage: export <файл.csv|файл.xlsx>")
		}

		return false, a.export(fields[1])
	case "stats":
		stats, err := a.store.Stats(ctx)
		if err != nil {
			return false, err
		}

		a.render.Stats(stats)

		return false, nil
	}

	if _, ok := render.LetterToIndex(cmd); ok {
		return false, a.pickOption(ctx, cmd)
	}

	return false, fmt.Errorf("unknown command %q", cmd)
}

func (a *App) applyAndRender(ctx context.Context, event session.Event) error {
	if err := a.engine.Apply(ctx, event); err != nil {
		return err
	}

	a.render.Question(a.engine.State())

	return nil
}

func (a *App) currentQuestion() (*models.Question, error) {
	st := a.engine.State()
	if st.Session == nil {
		return nil, session.ErrNoSession
	}

	question, ok := st.Session.CurrentQuestion()
	if !ok {
		return nil, fmt.Errorf("no current question")
	}

	return question, nil
}

// pickOption обрабатывает выбор варианта буквой.
// Одиночный выбор отправляется сразу, множественный — копится до ok.
func (a *App) pickOption(ctx context.Context, letter string) error {
	question, err := a.currentQuestion()
	if err != nil {
		return err
	}

	idx, _ := render.LetterToIndex(letter)
	if idx >= len(question.Options) {
		return fmt.Errorf("question has no option %s", strings.ToUpper(letter))
	}

	optionID := question.Options[idx].ID

	switch question.Type {
	case models.QuestionMultiChoice:
		set, ok := a.pendingMulti[question.ID]
		if !ok {
			set = make(map[int64]struct{})
			a.pendingMulti[question.ID] = set
		}

		if _, picked := set[optionID]; picked {
			delete(set, optionID)
		} else {
			set[optionID] = struct{}{}
		}

		fmt.Fprintf(a.out, "Выбрано вариантов: %d (ok — подтвердить)\n", len(set))

		return nil
	case models.QuestionFreeText:
		return fmt.Errorf("free text question, use: t <текст ответа>")
	default:
		return a.applyAndRender(ctx, session.SubmitAnswer{
			QuestionID: question.ID,
			Value:      models.SingleChoice{OptionID: optionID},
		})
	}
}

func (a *App) confirmMulti(ctx context.Context) error {
	question, err := a.currentQuestion()
	if err != nil {
		return err
	}

	if question.Type != models.QuestionMultiChoice {
		return fmt.Errorf("current question is not multiple choice")
	}

	set := a.pendingMulti[question.ID]
	if len(set) == 0 {
		return fmt.Errorf("no options picked yet")
	}

	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}

	delete(a.pendingMulti, question.ID)

	return a.applyAndRender(ctx, session.SubmitAnswer{
		QuestionID: question.ID,
		Value:      models.MultiChoice{OptionIDs: ids},
	})
}

func (a *App) submitFreeText(ctx context.Context, text string) error {
	if text == "" {
		return fmt.Errorf("usage: t <текст ответа>")
	}

	question, err := a.currentQuestion()
	if err != nil {
		return err
	}

	if question.Type != models.QuestionFreeText {
		return fmt.Errorf("current question is not free text")
	}

	return a.applyAndRender(ctx, session.SubmitAnswer{
		QuestionID: question.ID,
		Value:      models.FreeText{Text: text},
	})
}

func (a *App) enterEdit(ctx context.Context) error {
	question, err := a.currentQuestion()
	if err != nil {
		return err
	}

	return a.applyAndRender(ctx, session.EnterEditMode{QuestionID: question.ID})
}

func (a *App) finish(ctx context.Context) error {
	result, err := a.engine.SubmitAll(ctx)
	if err != nil {
		// уведомление уже ушло пользователю, здесь только лог
		slog.Warn("submission failed", "err", err)
		return nil
	}

	if result != nil {
		a.lastResult = result
	}

	return nil
}

func (a *App) export(path string) error {
	st := a.engine.State()
	if st.Session == nil {
		return session.ErrNoSession
	}

	var (
		data []byte
		err  error
	)

	switch {
	case strings.HasSuffix(path, ".xlsx"):
		data, err = export.ResultsXLSX(st.Session, st.LocalAnswers, a.lastResult)
	case strings.HasSuffix(path, ".csv"):
		data, err = export.ResultsCSV(st.Session, st.LocalAnswers, a.lastResult)
	default:
		return fmt.Errorf("unsupported export format, use .csv or .xlsx")
	}

	if err != nil {
		return err
	}

	if err = os.WriteFile(path, data, 0o644); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Отчёт сохранён: %s\n", path)

	return nil
}
