package econdata

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"time"

	"cbslwatch-backend/lib/timezone"

	"github.com/jordan-wright/email"
)

type SmtpConfig struct {
	Server       string
	Port         int
	EmailAddress string
	Password     string
}

type AlertOptions struct {
	Smtp SmtpConfig
	// To receives the failure mail.
	To []string
}

type alerter struct {
	smtp SmtpConfig
	to   []string
}

func newAlerter(opts AlertOptions) *alerter {
	return &alerter{smtp: opts.Smtp, to: opts.To}
}

// RefreshFailed mails the operators about a terminally failed run.
// mail trouble is logged and absorbed, alerting never fails a
// refresh.
func (a *alerter) RefreshFailed(ctx context.Context, family, runId string, cause error) {
	mail := email.NewEmail()
	mail.From = fmt.Sprintf("cbslwatch <%s>", a.smtp.EmailAddress)
	mail.To = a.to
	mail.Subject = fmt.Sprintf("cbslwatch: %s refresh failed", family)
	mail.Text = []byte(fmt.Sprintf(
		"Refresh run %s for family %q failed at %s.\n\n%v\n",
		runId, family, timezone.Now().Format(time.RFC1123), cause,
	))

	err := mail.Send(
		fmt.Sprintf("%s:%d", a.smtp.Server, a.smtp.Port),
		smtp.PlainAuth("", a.smtp.EmailAddress, a.smtp.Password, a.smtp.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(fmt.Sprintf("%s:%d", a.smtp.Server, a.smtp.Port), nil)
	}
	if err != nil {
		slog.WarnContext(ctx, "failed to send alert mail",
			"family", family, "run", runId, "err", err)
	}
}
