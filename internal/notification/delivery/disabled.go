package delivery

import (
	"context"
	"strings"

	"studentservices-api/internal/common/logger"
)

// Disabled performs no I/O and reports every message as sent.
type Disabled struct {
	logger logger.Logger
}

func NewDisabled(log logger.Logger) *Disabled {
	return &Disabled{logger: log.WithFields(map[string]interface{}{"strategy": "disabled"})}
}

func (d *Disabled) Name() string { return "disabled" }

func (d *Disabled) Send(_ context.Context, msg *Message) Outcome {
	d.logger.Info("Email disabled: would send notification", map[string]interface{}{
		"taskId":     msg.Handle,
		"emailType":  string(msg.Kind),
		"recipients": strings.Join(msg.To, ", "),
		"subject":    msg.Subject,
	})
	return Sent(msg.Handle)
}
