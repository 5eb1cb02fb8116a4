package slogcustom

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"strings"

	"github.com/fatih/color"
)

// CustomHandler — компактный цветной handler для slog.
type CustomHandler struct {
	l     *log.Logger
	level slog.Level
	attrs []slog.Attr
}

// NewCustomHandler создаёт новый CustomHandler.
func NewCustomHandler(out io.Writer, level slog.Level) *CustomHandler {
	return &CustomHandler{
		l:     log.New(out, "", 0),
		level: level,
	}
}

// ParseLevel разбирает уровень логирования из строки.
// Неизвестная строка трактуется как info.
func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c *CustomHandler) Handle(_ context.Context, r slog.Record) error {
	level := r.Level.String() + ":"

	switch r.Level {
	case slog.LevelDebug:
		level = color.MagentaString(level)
	case slog.LevelInfo:
		level = color.HiBlueString(level)
	case slog.LevelWarn:
		level = color.YellowString(level)
	case slog.LevelError:
		level = color.RedString(level)
	}

	attrsStr := ""

	for _, a := range c.attrs {
		attrsStr += color.GreenString(a.Key) + "=" + fmt.Sprint(a.Value.Any()) + " "
	}

	r.Attrs(func(a slog.Attr) bool {
		attrsStr += color.GreenString(a.Key) + "=" + fmt.Sprint(a.Value.Any()) + " "
		return true
	})

	c.l.Println(
		r.Time.Format("15:04:05.000"),
		level,
		r.Message,
		attrsStr,
	)

	return nil
}

func (c *CustomHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := &CustomHandler{
		l:     c.l,
		level: c.level,
		attrs: make([]slog.Attr, 0, len(c.attrs)+len(attrs)),
	}

	out.attrs = append(out.attrs, c.attrs...)
	out.attrs = append(out.attrs, attrs...)

	return out
}

func (c *CustomHandler) WithGroup(_ string) slog.Handler {
	return c
}

func (c *CustomHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= c.level
}
