// Package mail envía al cliente el comprobante autorizado por SMTP.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"io"

	gomail "gopkg.in/gomail.v2"

	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/application/billing"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/pkg/config"
)

// SMTPMailer implementa billing.Mailer sobre gomail.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer construye el mailer desde configuración SMTP.
func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
	}
}

var _ billing.Mailer = (*SMTPMailer)(nil)

// SendDocument envía el correo con el PDF adjunto. gomail no acepta contexto,
// así que la cancelación se verifica antes de marcar y el timeout queda en
// manos del dialer SMTP.
func (m *SMTPMailer) SendDocument(ctx context.Context, to, subject, body string, pdfName string, pdf []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mail: contexto cancelado: %w", err)
	}
	if to == "" {
		return fmt.Errorf("mail: destinatario vacío")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	msg.Attach(pdfName, gomail.SetCopyFunc(func(w io.Writer) error {
		_, err := io.Copy(w, bytes.NewReader(pdf))
		return err
	}))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("mail: enviar a %s: %w", to, err)
	}
	return nil
}
