package usage

import "time"

// Clock supplies the wall-clock time used to derive the current month.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a plain function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads time.Now.
var SystemClock Clock = ClockFunc(time.Now)

// YearMonth formats t as the "YYYY-MM" record key. Months are UTC-based so
// that every instance agrees on the rollover instant.
func YearMonth(t time.Time) string {
	return t.UTC().Format("2006-01")
}
