package infra

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"inventnet/internal/config"
	"inventnet/internal/dto"

	"github.com/jordan-wright/email"
)

// Mailer wraps SMTP configuration for operator notifications.
type Mailer struct {
	host     string
	user     string
	password string
	addr     string
	send     func(e *email.Email, addr string, auth smtp.Auth) error
}

// NewMailer returns nil when SMTP is not configured; a nil *Mailer is a
// valid no-op receiver.
func NewMailer(cfg *config.Config) *Mailer {
	if cfg.SMTPHost == "" {
		return nil
	}
	return &Mailer{
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		send:     func(e *email.Email, addr string, auth smtp.Auth) error { return e.Send(addr, auth) },
	}
}

// ResumenCambiosEmail builds the cycle summary message.
func ResumenCambiosEmail(from, to string, est dto.Estadisticas, loc *time.Location) *email.Email {
	e := email.NewEmail()
	e.From = from
	e.To = []string{to}
	e.Subject = fmt.Sprintf("Cambios automáticos: %d mermas, %d transformaciones", est.TotalMermas, est.TotalTransformaciones)

	var b strings.Builder
	fmt.Fprintf(&b, "Ciclo ejecutado el %s\n\n", est.Desde.In(loc).Format("02/01/2006 15:04"))
	fmt.Fprintf(&b, "Productos revisados:  %d\n", est.TotalProductosProcesados)
	fmt.Fprintf(&b, "Mermas registradas:   %d\n", est.TotalMermas)
	fmt.Fprintf(&b, "Transformaciones:     %d\n", est.TotalTransformaciones)
	if est.TotalErrores > 0 {
		fmt.Fprintf(&b, "Productos con error:  %d (se reintentan en el próximo ciclo)\n", est.TotalErrores)
	}
	e.Text = []byte(b.String())
	return e
}

// EnviarResumenCambios mails the cycle summary to one recipient.
func (m *Mailer) EnviarResumenCambios(to string, est dto.Estadisticas, loc *time.Location) error {
	if m == nil || to == "" {
		return nil
	}
	e := ResumenCambiosEmail(m.user, to, est, loc)
	auth := smtp.PlainAuth("", m.user, m.password, m.host)
	if err := m.send(e, m.addr, auth); err != nil {
		return fmt.Errorf("mailer: send cycle summary: %w", err)
	}
	return nil
}
