package logger

import (
	"log/slog"
	"strconv"
	"time"
)

// Error records err under "error". Nil yields an empty attribute.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Errors groups the non-nil errors under "errors".
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// UserID records the caller's user id. An empty id yields an empty attribute.
func UserID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("user_id", id)
}

func RequestID(id string) slog.Attr {
	return slog.String("request_id", id)
}

func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Action records the automation action name.
func Action(name string) slog.Attr {
	return slog.String("action", name)
}

func Dimension(name string) slog.Attr {
	return slog.String("dimension", name)
}

func YearMonth(ym string) slog.Attr {
	return slog.String("year_month", ym)
}

func Status(code int) slog.Attr {
	return slog.Int("status", code)
}

func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}
