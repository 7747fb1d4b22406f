package mailer

import (
	"context"
	"errors"
	"fmt"

	mailtpl "github.com/oksasatya/go-ddd-user-management/pkg/mailer/templates"
)

// ErrInvalidJob marks jobs that can never be delivered and must not be retried.
var ErrInvalidJob = errors.New("invalid email job")

// Deliver renders job (when it names a template) and hands it to s.
func Deliver(ctx context.Context, s Sender, job EmailJob) error {
	if job.To == "" {
		return fmt.Errorf("%w: missing recipient", ErrInvalidJob)
	}
	subject, text, html := job.Subject, job.Text, job.HTML
	if job.Template != "" {
		var err error
		subject, text, html, err = mailtpl.Render(job.Template, job.Data)
		if err != nil {
			return fmt.Errorf("%w: render %s: %v", ErrInvalidJob, job.Template, err)
		}
	}
	if subject == "" || (text == "" && html == "") {
		return fmt.Errorf("%w: empty message", ErrInvalidJob)
	}
	return s.Send(ctx, job.To, subject, text, html)
}
