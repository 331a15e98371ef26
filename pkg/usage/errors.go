package usage

import "errors"

var (
	ErrMissingUserID = errors.New("usage.errors.missing_user_id")
	ErrInvalidKind   = errors.New("usage.errors.invalid_kind")
	ErrInvalidAmount = errors.New("usage.errors.invalid_amount")
	ErrInvalidLimit  = errors.New("usage.errors.invalid_limit")

	// ErrPlanNotFound is returned by Store.FindPlan when the user has no plan record.
	ErrPlanNotFound = errors.New("usage.errors.plan_not_found")

	ErrFailedToLoadPlan    = errors.New("usage.errors.failed_to_load_plan")
	ErrFailedToLoadUsage   = errors.New("usage.errors.failed_to_load_usage")
	ErrFailedToUpdateUsage = errors.New("usage.errors.failed_to_update_usage")
)
