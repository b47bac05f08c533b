package jobx

import (
	"net/http"

	"github.com/Abraxas-365/relay/pkg/errx"
)

var jobxErrors = errx.NewRegistry("JOBX")

var (
	ErrNotFound       = jobxErrors.Register("JOB_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Job not found")
	ErrInvalidJob     = jobxErrors.Register("INVALID_JOB", errx.TypeValidation, http.StatusBadRequest, "Invalid job definition")
	ErrNoHandler      = jobxErrors.Register("NO_HANDLER", errx.TypeInternal, http.StatusInternalServerError, "No handler registered for job type")
	ErrHandlerPanic   = jobxErrors.Register("HANDLER_PANIC", errx.TypeInternal, http.StatusInternalServerError, "Job handler panicked")
	ErrAlreadyRunning = jobxErrors.Register("ALREADY_RUNNING", errx.TypeConflict, http.StatusConflict, "Worker is already running")
)

// NotFound builds the error queues return for unknown job ids.
func NotFound(jobID string) *errx.Error {
	return jobxErrors.New(ErrNotFound).WithDetail("job_id", jobID)
}
