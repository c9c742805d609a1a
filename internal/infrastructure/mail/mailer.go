// Package mail implementa el envío de correos de notificación vía SMTP.
package mail

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/tu-usuario/facturalo-pe/pkg/config"
)

// Mailer envía correos con gomail. El dialer abre una conexión por mensaje;
// el volumen de avisos por emisor no justifica un pool SMTP.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
}

// New crea el mailer a partir de la configuración SMTP. Devuelve nil si no
// hay host configurado: las notificaciones quedan solo en base de datos.
func New(cfg config.MailConfig) *Mailer {
	if cfg.Host == "" {
		return nil
	}
	return &Mailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

// Send envía un correo de texto plano respetando la cancelación del contexto.
func (m *Mailer) Send(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return fmt.Errorf("mail: destinatario vacío")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	// gomail no acepta contexto; el DialAndSend corre aparte y se respeta la
	// cancelación desde el caller.
	done := make(chan error, 1)
	go func() { done <- m.dialer.DialAndSend(msg) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("mail: enviar a %s: %w", to, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
