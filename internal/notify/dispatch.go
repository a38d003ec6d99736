package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dsw-integrations/email-submitter/internal/config"
	"github.com/dsw-integrations/email-submitter/internal/mailer"
	"github.com/dsw-integrations/email-submitter/internal/metrics"
	"github.com/dsw-integrations/email-submitter/internal/provider"
)

// Request carries one inbound submission through the pipeline. Recipient is
// validated as non-empty by the ingestion layer before a Request is built.
type Request struct {
	ContentType string
	Encoding    string
	Data        []byte
	Recipient   string
	Intro       string
}

// Dispatcher is the orchestrating entry point of the pipeline. It holds the
// mail settings and the delivery provider for one configuration epoch; a
// reconfiguration builds a new Dispatcher rather than mutating this one.
type Dispatcher struct {
	mail config.MailConfig
	prov provider.Provider
}

// NewDispatcher creates a Dispatcher for the given settings and provider.
func NewDispatcher(mail config.MailConfig, prov provider.Provider) *Dispatcher {
	return &Dispatcher{mail: mail, prov: prov}
}

// ProviderName returns the name of the configured delivery backend.
func (d *Dispatcher) ProviderName() string {
	return d.prov.Name()
}

// Dispatch routes, composes, and delivers one notification. It performs
// exactly one delivery attempt and returns a *provider.DeliveryError on any
// failure along the way.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) error {
	bodyText, attachments, err := Route(req.ContentType, req.Encoding, req.Data, req.Intro)
	if err != nil {
		return d.fail(err)
	}

	msg := mailer.Compose(d.mail, req.Recipient, bodyText, attachments)

	slog.Info("sending notification",
		"recipient", req.Recipient,
		"provider", d.prov.Name(),
		"sender", fmt.Sprintf("%s <%s>", d.mail.Name, d.mail.Email),
		"attachments", len(msg.Attachments),
	)

	if err := d.prov.Send(ctx, msg); err != nil {
		return d.fail(err)
	}

	metrics.NotificationsSent.WithLabelValues(d.prov.Name()).Inc()
	return nil
}

// fail normalizes err into the delivery taxonomy, logs it with full detail,
// and counts the failure.
func (d *Dispatcher) fail(err error) error {
	de := provider.AsDelivery(err)
	slog.Error("notification delivery failed",
		"provider", d.prov.Name(),
		"kind", string(de.Kind),
		"error", de.Err,
	)
	metrics.NotificationFailures.WithLabelValues(d.prov.Name(), string(de.Kind)).Inc()
	return de
}
