package mailSender

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

type Mailer struct {
	Host     string
	Port     int
	Username string
	Password string
}

const (
	subjectSignup = "Your Backpack Verification Code"
	subjectReset  = "Reset your Backpack password"
)

// SendCode emails a verification code. The subject depends on the purpose the
// code was issued for.
func (m *Mailer) SendCode(to, code, purpose string) error {
	subject := subjectSignup
	if purpose == "password_reset" {
		subject = subjectReset
	}

	body := fmt.Sprintf(
		"Your Backpack verification code is %s. It expires in 15 minutes.\n\n"+
			"If you didn't request this, you can safely ignore this email.",
		code,
	)

	msg := gomail.NewMessage()
	msg.SetHeader("To", to)
	msg.SetHeader("From", m.Username)
	msg.SetHeader("Subject", subject)

	msg.SetBody("text/plain", body)

	dialer := gomail.NewDialer(m.Host, m.Port, m.Username, m.Password)
	return dialer.DialAndSend(msg)
}
