package worker

// email_worker.go
// Processes email jobs from QueueEmail: the summary of a reconciliation
// cycle, sent to the operator address configured in CAMBIOS_NOTIFICAR_EMAIL.

import (
	"context"
	"encoding/json"
	"time"

	"inventnet/internal/dto"

	"github.com/rs/zerolog/log"
)

// EmailJobPayload is the job envelope sent to QueueEmail.
type EmailJobPayload struct {
	ToEmail      string           `json:"to_email"`
	Estadisticas dto.Estadisticas `json:"estadisticas"`
}

// ResumenSender is satisfied by *infra.Mailer.
type ResumenSender interface {
	EnviarResumenCambios(to string, est dto.Estadisticas, loc *time.Location) error
}

type EmailWorker struct {
	sender ResumenSender
	loc    *time.Location
}

func NewEmailWorker(sender ResumenSender, loc *time.Location) *EmailWorker {
	if loc == nil {
		loc = time.UTC
	}
	return &EmailWorker{sender: sender, loc: loc}
}

// Process sends the cycle summary.
func (w *EmailWorker) Process(_ context.Context, raw json.RawMessage) {
	var payload EmailJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("email_worker: invalid payload")
		return
	}
	if payload.ToEmail == "" {
		log.Warn().Msg("email_worker: empty to_email, skipping")
		return
	}
	if w.sender == nil {
		log.Debug().Msg("email_worker: smtp not configured, skipping")
		return
	}

	if err := w.sender.EnviarResumenCambios(payload.ToEmail, payload.Estadisticas, w.loc); err != nil {
		log.Error().Err(err).Str("to", payload.ToEmail).Msg("email_worker: failed to send email")
		return
	}
	log.Info().Str("to", payload.ToEmail).Msg("email_worker: cycle summary sent")
}
