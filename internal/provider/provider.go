// Package provider defines the interface for notification delivery backends
// and the delivery failure taxonomy shared by the whole dispatch pipeline.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/dsw-integrations/email-submitter/internal/email"
)

// Provider is the interface that delivery backends must implement. Each
// backend performs exactly one delivery attempt per call; retries are the
// caller's business and the callers here never retry.
type Provider interface {
	// Send delivers a composed notification message through this backend.
	Send(ctx context.Context, msg *email.Email) error

	// Name returns the backend name as used in configuration and logs.
	Name() string
}

// Kind classifies a delivery failure by the pipeline stage it occurred in.
type Kind string

const (
	// KindDecode marks payload decode or JSON parse failures in routing.
	KindDecode Kind = "decode"
	// KindConnect marks failures to reach the mail server at all.
	KindConnect Kind = "connect"
	// KindTLS marks TLS negotiation or upgrade failures.
	KindTLS Kind = "tls"
	// KindAuth marks rejected credentials.
	KindAuth Kind = "auth"
	// KindProtocol marks any other protocol-level rejection.
	KindProtocol Kind = "protocol"
)

// DeliveryError is the single failure type surfaced by a dispatch. It tags
// the underlying error with the stage it failed in.
type DeliveryError struct {
	Kind Kind
	Err  error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery failed (%s): %v", e.Kind, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Errf builds a DeliveryError of the given kind from a formatted message,
// wrapping any %w operand.
func Errf(kind Kind, format string, args ...any) *DeliveryError {
	return &DeliveryError{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// AsDelivery extracts a DeliveryError from err. If err is not one, it is
// wrapped as KindProtocol so callers always observe the taxonomy.
func AsDelivery(err error) *DeliveryError {
	var de *DeliveryError
	if errors.As(err, &de) {
		return de
	}
	return &DeliveryError{Kind: KindProtocol, Err: err}
}
