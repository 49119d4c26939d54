package export

import (
	"fmt"

	"github.com/pithecene-io/inquire/types"
)

// Process exit codes of an export run.
const (
	ExitCodeSuccess = 0 // every selected query exported
	ExitCodePartial = 1 // some queries failed
	ExitCodeFailed  = 2 // the run failed as a whole or was canceled
	ExitCodeConfig  = 3 // invalid configuration, nothing ran
)

// ExitCode maps a run outcome to the process exit code.
func ExitCode(outcome *types.RunOutcome) int {
	if outcome == nil {
		return ExitCodeFailed
	}
	switch outcome.Status {
	case types.OutcomeSuccess:
		return ExitCodeSuccess
	case types.OutcomePartial:
		return ExitCodePartial
	default:
		return ExitCodeFailed
	}
}

// DetermineOutcome classifies a run whose session and catalog steps
// succeeded from its per-query results:
//   - canceled: ctxErr is set
//   - success: no query failed (including nothing selected)
//   - failed: queries failed and none succeeded
//   - partial: otherwise
func DetermineOutcome(succeeded, failed int, ctxErr error) *types.RunOutcome {
	switch {
	case ctxErr != nil:
		return &types.RunOutcome{
			Status:    types.OutcomeCanceled,
			Message:   fmt.Sprintf("run interrupted: %v", ctxErr),
			ErrorKind: "canceled",
		}
	case failed == 0:
		return &types.RunOutcome{
			Status:  types.OutcomeSuccess,
			Message: fmt.Sprintf("%d queries exported", succeeded),
		}
	case succeeded == 0:
		return &types.RunOutcome{
			Status:  types.OutcomeFailed,
			Message: fmt.Sprintf("all %d queries failed", failed),
		}
	default:
		return &types.RunOutcome{
			Status:  types.OutcomePartial,
			Message: fmt.Sprintf("%d queries exported, %d failed", succeeded, failed),
		}
	}
}
