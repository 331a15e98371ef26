package quota

import (
	"errors"
	"fmt"

	"github.com/dmitrymomot/replyflow/pkg/usage"
)

var (
	ErrMissingUserID    = errors.New("quota: missing user id")
	ErrMissingAction    = errors.New("quota: missing action")
	ErrLimitReached     = errors.New("quota: limit reached")
	ErrUsageUnavailable = errors.New("quota: usage store unavailable")
	ErrInvalidPolicy    = errors.New("quota: invalid action policy")
)

// LimitError is returned when a metered action is refused.
// It carries the bundle the decision was made on so callers can render it.
type LimitError struct {
	Action    string
	Dimension usage.Kind
	Bundle    usage.Bundle
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("quota: %s limit reached (%d/%d)",
		e.Dimension, e.Bundle.Usage.Count(e.Dimension), e.Bundle.Limits.For(e.Dimension))
}

// Is makes errors.Is(err, ErrLimitReached) hold.
func (e *LimitError) Is(target error) bool {
	return target == ErrLimitReached
}

// Message is the user-facing explanation.
func (e *LimitError) Message() string {
	switch e.Dimension {
	case usage.KindDrafts:
		return "Draft limit reached"
	case usage.KindSends:
		return "Send limit reached"
	default:
		return "Usage limit reached"
	}
}
