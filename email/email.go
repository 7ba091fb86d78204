// Package email sends portal notifications over SMTP using gomail.
//
// SMTP settings come from the standard configuration sources:
//
//	| Env                          | YAML                |
//	|------------------------------|---------------------|
//	| REGNUM__EMAIL__FROM          | email.from          |
//	| REGNUM__EMAIL__SMTP__HOST    | email.smtp.host     |
//	| REGNUM__EMAIL__SMTP__PORT    | email.smtp.port     |
//	| REGNUM__EMAIL__SMTP__USERNAME| email.smtp.username |
//	| REGNUM__EMAIL__SMTP__PASSWORD| email.smtp.password |
package email

import (
	"context"
	"fmt"

	"google.golang.org/grpc/codes"
	"gopkg.in/gomail.v2"

	"github.com/westkingdom/regnum-portal/config"
	"github.com/westkingdom/regnum-portal/errors"
	"github.com/westkingdom/regnum-portal/logging"
)

// Sender delivers a composed message. *SMTPSender is the production
// implementation; tests substitute a fake.
type Sender interface {
	Send(ctx context.Context, msg *gomail.Message) error
}

// SMTPSender sends mail through a configured SMTP relay.
type SMTPSender struct {
	from         string
	smtpHost     string
	smtpPort     int
	smtpUsername string
	smtpPassword string
}

// NewSMTPSender reads SMTP settings from the global configuration.
func NewSMTPSender() (*SMTPSender, error) {
	s := &SMTPSender{
		from:         config.String("email.from"),
		smtpHost:     config.String("email.smtp.host"),
		smtpPort:     config.Int("email.smtp.port"),
		smtpUsername: config.String("email.smtp.username"),
		smtpPassword: config.String("email.smtp.password"),
	}
	if s.from == "" {
		return nil, errors.NewC("email: config missing from address", codes.FailedPrecondition)
	}
	if s.smtpHost == "" {
		return nil, errors.NewC("email: config missing smtp host", codes.FailedPrecondition)
	}
	if s.smtpPort == 0 {
		return nil, errors.NewC("email: config missing smtp port", codes.FailedPrecondition)
	}
	return s, nil
}

// Send delivers the message, filling in the configured From header when the
// caller did not set one.
func (s *SMTPSender) Send(ctx context.Context, msg *gomail.Message) error {
	if len(msg.GetHeader("From")) == 0 {
		msg.SetHeader("From", s.from)
	}
	logging.Infow(ctx, "email: sending mail", "to", msg.GetHeader("To"))
	d := gomail.NewDialer(s.smtpHost, s.smtpPort, s.smtpUsername, s.smtpPassword)
	if err := d.DialAndSend(msg); err != nil {
		return errors.Wrap(err).WithCode(codes.Unavailable).Append("email: delivery failed")
	}
	return nil
}

// Notifier composes the portal's notification messages.
type Notifier struct {
	sender  Sender
	contact string
}

// NewNotifier returns a Notifier that addresses requests to the configured
// contact address.
func NewNotifier(sender Sender, contact string) *Notifier {
	return &Notifier{sender: sender, contact: contact}
}

// RequestAccess notifies the contact address that a signed-in user was
// denied and wants membership in the given group.
func (n *Notifier) RequestAccess(ctx context.Context, requester, name, group string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("To", n.contact)
	msg.SetHeader("Reply-To", requester)
	msg.SetHeader("Subject", fmt.Sprintf("Portal access request from %s", requester))
	msg.SetBody("text/plain", fmt.Sprintf(
		"%s (%s) signed in to the portal but is not a member of %s.\n\n"+
			"To grant access, add them to the group.\n", name, requester, group))

	if err := n.sender.Send(ctx, msg); err != nil {
		return err
	}
	logging.Infow(ctx, "email: access request sent", "requester", requester, "group", group)
	return nil
}
