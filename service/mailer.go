package service

import (
	mail "github.com/go-mail/mail/v2"
	"github.com/pkg/errors"

	"github.com/sendhub/sendhub/models"
	"github.com/sendhub/sendhub/utils"
)

// Mailer builds SMTP transports from per-user configs and performs sends.
// Passwords stored encrypted are decrypted with encKey; a nil key passes
// stored values through unchanged.
type Mailer struct {
	encKey []byte
}

func NewMailer(encKey []byte) *Mailer {
	return &Mailer{encKey: encKey}
}

func (m *Mailer) dialer(cfg *models.SmtpConfig) (*mail.Dialer, error) {
	password := cfg.Password
	if len(m.encKey) == 32 {
		dec, err := utils.Decrypt(password, m.encKey)
		if err != nil {
			return nil, errors.Wrap(err, "decrypt smtp password")
		}
		password = dec
	}
	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, password)
	d.SSL = cfg.Secure
	return d, nil
}

// Send delivers one HTML email through the user's SMTP server. From defaults
// to the SMTP username. Transport errors (auth, connection, rejected
// recipient) come back as-is so the caller can apply retry policy.
func (m *Mailer) Send(cfg *models.SmtpConfig, to, subject, html string) error {
	d, err := m.dialer(cfg)
	if err != nil {
		return err
	}
	msg := mail.NewMessage()
	msg.SetHeader("From", cfg.Username)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", html)
	return d.DialAndSend(msg)
}

// Verify checks the SMTP credentials by opening and closing a connection,
// without sending anything. Used by the synchronous test-config path.
func (m *Mailer) Verify(cfg *models.SmtpConfig) error {
	d, err := m.dialer(cfg)
	if err != nil {
		return err
	}
	sc, err := d.Dial()
	if err != nil {
		return err
	}
	return sc.Close()
}
