// Package notifications delivers login codes and review updates by email
// and push notification.
package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"loanmanager/metrics"
)

// Dispatcher turns workflow events into mail and push messages.
type Dispatcher struct {
	mailer       Mailer
	pusher       Pusher
	dashboardURL string
	metrics      *metrics.Metrics
	log          logrus.FieldLogger
}

func NewDispatcher(mailer Mailer, pusher Pusher, dashboardURL string, m *metrics.Metrics, log logrus.FieldLogger) *Dispatcher {
	return &Dispatcher{
		mailer:       mailer,
		pusher:       pusher,
		dashboardURL: dashboardURL,
		metrics:      m,
		log:          log,
	}
}

// SendLoginCode mails a login code to email.
func (d *Dispatcher) SendLoginCode(ctx context.Context, email, code string) error {
	html, err := render(codeTemplate, struct{ Code string }{code})
	if err != nil {
		return err
	}
	if err := d.mailer.Send(ctx, []string{email}, codeSubject, html); err != nil {
		d.metrics.NotificationFailed("email")
		return fmt.Errorf("send login code: %w", err)
	}
	return nil
}

// NotifyAdmins mails every admin that an application awaits review.
func (d *Dispatcher) NotifyAdmins(ctx context.Context, emails []string) error {
	if len(emails) == 0 {
		return errors.New("no admin recipients")
	}
	html, err := render(adminTemplate, struct{ DashboardURL string }{d.dashboardURL})
	if err != nil {
		return err
	}
	if err := d.mailer.Send(ctx, emails, adminSubject, html); err != nil {
		d.metrics.NotificationFailed("email")
		return fmt.Errorf("notify admins: %w", err)
	}
	return nil
}

// NotifyDecision pushes the review outcome to the applicant's device.
func (d *Dispatcher) NotifyDecision(ctx context.Context, token string, approved bool) error {
	if token == "" {
		return errors.New("applicant has no device token")
	}
	title, body := RejectedTitle, RejectedBody
	if approved {
		title, body = ApprovedTitle, ApprovedBody
	}
	if err := d.pusher.Send(ctx, []string{token}, title, body); err != nil {
		d.metrics.NotificationFailed("push")
		return fmt.Errorf("notify decision: %w", err)
	}
	return nil
}
