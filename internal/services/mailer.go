package services

import (
	"fmt"
	"net/smtp"
)

// Mailer sends OTP emails over SMTP. No queueing, no retries: a failed send
// surfaces to the caller immediately.
type Mailer struct {
	host string
	port string
	from string
	auth smtp.Auth
}

func NewMailer(host, port, username, password, from string) *Mailer {
	return &Mailer{
		host: host,
		port: port,
		from: from,
		auth: smtp.PlainAuth("", username, password, host),
	}
}

// SendOTP emails a verification code.
func (m *Mailer) SendOTP(to, code string) error {
	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: Your FileMind verification code\r\n\r\n"+
			"Your verification code is %s. It expires in 5 minutes.\r\n",
		m.from, to, code)

	addr := m.host + ":" + m.port
	if err := smtp.SendMail(addr, m.auth, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("mailer: send to %s: %w", to, err)
	}
	return nil
}
