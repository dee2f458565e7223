package executor

import (
	"errors"

	"github.com/devicelab-dev/gesture-runner/pkg/core"
)

// applyError fills the status, category and messages of a failed step.
func applyError(res *core.StepResult, err error) {
	cat := core.CategoryOf(err)
	res.Status = core.StatusFor(cat)
	res.Category = cat
	res.Error = err.Error()

	var execErr *core.ExecutionError
	if errors.As(err, &execErr) {
		res.Message = execErr.Message
		if res.Data == nil && len(execErr.Details) > 0 {
			res.Data = execErr.Details
		}
		return
	}
	res.Message = err.Error()
}
