// Package api implements the HTTP ingestion surface of the submission
// service: build info, the submit endpoint, and Prometheus metrics.
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dsw-integrations/email-submitter/internal/build"
	"github.com/dsw-integrations/email-submitter/internal/config"
	"github.com/dsw-integrations/email-submitter/internal/notify"
	"github.com/dsw-integrations/email-submitter/internal/parser"
	"github.com/dsw-integrations/email-submitter/internal/provider"
)

// Runtime bundles everything derived from one configuration epoch. A reload
// builds a new Runtime and swaps it in whole; requests already in flight
// keep the epoch they started with.
type Runtime struct {
	Config     *config.Config
	Dispatcher *notify.Dispatcher
}

// Server serves the submission API. The current Runtime is held behind an
// atomic pointer so reloads never block or affect in-flight requests.
type Server struct {
	current atomic.Pointer[Runtime]
}

// NewServer creates a Server with the given initial runtime.
func NewServer(rt *Runtime) *Server {
	s := &Server{}
	s.current.Store(rt)
	return s
}

// Swap replaces the current runtime atomically.
func (s *Server) Swap(rt *Runtime) {
	s.current.Store(rt)
}

// Handler builds the HTTP routing for the service.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	r.Get("/", s.handleInfo)
	r.Post("/submit", s.handleSubmit)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, build.Current())
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	rt := s.current.Load()

	if !NewAuthorizer(rt.Config.Security).Authorize(r.Header.Get("Authorization")) {
		writeText(w, http.StatusUnauthorized,
			"Unauthorized submission request.\n\n"+
				"The submission service is not configured properly.\n")
		return
	}

	contentType, encoding := parser.ParseContentType(r.Header.Get("Content-Type"))
	recipient := r.Header.Get("X-Msg-Recipient")
	intro := r.Header.Get("X-Msg-Intro")
	location := r.Header.Get("X-Location")

	if recipient == "" {
		writeText(w, http.StatusBadRequest,
			"Invalid notification recipient\n\n"+
				"The submission service is mis-configured!\n")
		return
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		slog.Error("failed to read submission body", "error", err)
		writeText(w, http.StatusInternalServerError, "Could not read the submitted document.\n")
		return
	}

	err = rt.Dispatcher.Dispatch(r.Context(), notify.Request{
		ContentType: contentType,
		Encoding:    encoding,
		Data:        data,
		Recipient:   recipient,
		Intro:       intro,
	})
	if err != nil {
		writeText(w, http.StatusInternalServerError, renderDeliveryFailure(err))
		return
	}

	if location != "" {
		w.Header().Set("Location", location)
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "Notification sent successfully!",
	})
}

// renderDeliveryFailure renders a dispatch failure for the response body,
// naming the failure kind rather than any internal error type.
func renderDeliveryFailure(err error) string {
	de := provider.AsDelivery(err)
	return fmt.Sprintf("Could not send the notification (%s).\n\n%v.\n", de.Kind, de.Err)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
