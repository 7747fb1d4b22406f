package helpers

import (
	"fmt"

	"github.com/oksasatya/go-ddd-user-management/pkg/mailer"
)

// EnsureRecipient copies the job recipient into the template data when missing.
func EnsureRecipient(job *mailer.EmailJob) {
	if job.Data == nil {
		job.Data = map[string]any{}
	}
	if v, ok := job.Data["Email"]; !ok || fmt.Sprintf("%v", v) == "" {
		job.Data["Email"] = job.To
	}
}
