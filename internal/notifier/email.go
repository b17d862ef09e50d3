// internal/notifier/email.go
package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"campusloan/internal/events"
)

// EmailSender delivers a rendered notification to one recipient.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogSender writes the email to the log instead of an SMTP transport. The
// real mail integration sits behind the EmailSender interface.
type LogSender struct {
	Logger *zap.Logger
}

func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	s.Logger.Info("email sent",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}

// Render builds the email subject and body for a notification event.
func Render(ev events.Event) (subject, body string) {
	switch ev.Event {
	case events.LoanCreated:
		subject = "Loan Reservation Confirmed"
		body = fmt.Sprintf("Your device reservation (ID: %s) is confirmed. Please pick it up. Expected Return Date: %s", ev.LoanID, ev.ExpectedReturnDate)
	case events.LoanCollected:
		subject = "Device Collected"
		body = fmt.Sprintf("You have collected the device (Loan ID: %s). Please return it on time.", ev.LoanID)
	case events.LoanReturned:
		subject = "Device Returned"
		body = fmt.Sprintf("You have successfully returned the device (Loan ID: %s). Thank you.", ev.LoanID)
	case events.WaitlistAvailable:
		subject = "Device Available"
		body = fmt.Sprintf("A device you are interested in (Model ID: %s) is now available! Reserve it quickly.", ev.DeviceModelID)
	default:
		subject = "Notification"
		raw, _ := json.Marshal(ev)
		body = string(raw)
	}
	return subject, body
}
