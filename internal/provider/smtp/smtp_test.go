package smtp

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dsw-integrations/email-submitter/internal/email"
	"github.com/dsw-integrations/email-submitter/internal/provider"
)

func TestResolveSecurity_Totality(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  SecurityMode
	}{
		{"ssl", ModeSSL},
		{"starttls", ModeSTARTTLS},
		{"plain", ModePlain},
		{"", ModePlain},
		{"tls", ModePlain},
		{"SSL", ModePlain}, // case normalization happens at config resolution
		{"garbage!!", ModePlain},
		{"ssl ", ModePlain},
	}

	for _, tt := range tests {
		if got := ResolveSecurity(tt.input); got != tt.want {
			t.Errorf("ResolveSecurity(%q): got %v, want %v", tt.input, got, tt.want)
		}
	}
}

// fakeServer is a minimal in-process SMTP server for transport tests.
type fakeServer struct {
	ln        net.Listener
	authReply string
	rcptReply string

	mu       sync.Mutex
	commands []string
	data     string

	done chan struct{}
}

func startFakeServer(t *testing.T) *fakeServer {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	s := &fakeServer{
		ln:        ln,
		authReply: "235 2.7.0 accepted",
		rcptReply: "250 ok",
		done:      make(chan struct{}),
	}
	t.Cleanup(func() { ln.Close() })

	go s.serveOne()
	return s
}

func (s *fakeServer) serveOne() {
	defer close(s.done)

	conn, err := s.ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	reader := bufio.NewReader(conn)
	write := func(line string) {
		_, _ = conn.Write([]byte(line + "\r\n"))
	}

	write("220 fake ESMTP ready")

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")

		s.mu.Lock()
		s.commands = append(s.commands, line)
		s.mu.Unlock()

		verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0])
		switch verb {
		case "EHLO", "HELO":
			write("250-fake")
			write("250 AUTH PLAIN LOGIN")
		case "AUTH":
			write(s.authReply)
		case "MAIL":
			write("250 ok")
		case "RCPT":
			write(s.rcptReply)
		case "DATA":
			write("354 end data with <CRLF>.<CRLF>")
			var body strings.Builder
			for {
				dataLine, err := reader.ReadString('\n')
				if err != nil {
					return
				}
				if strings.TrimRight(dataLine, "\r\n") == "." {
					break
				}
				body.WriteString(dataLine)
			}
			s.mu.Lock()
			s.data = body.String()
			s.mu.Unlock()
			write("250 queued")
		case "QUIT":
			write("221 bye")
			return
		default:
			write("500 unknown command")
		}
	}
}

// wait blocks until the server side finished handling its connection.
func (s *fakeServer) wait(t *testing.T) {
	t.Helper()
	select {
	case <-s.done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for fake server")
	}
}

func (s *fakeServer) sawCommand(prefix string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cmd := range s.commands {
		if strings.HasPrefix(strings.ToUpper(cmd), prefix) {
			return true
		}
	}
	return false
}

func (s *fakeServer) config() Config {
	host, portStr, _ := net.SplitHostPort(s.ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	return Config{Host: host, Port: port, Security: "plain"}
}

func testMessage() *email.Email {
	return &email.Email{
		FromName: "DSW Notifier",
		From:     "notify@example.com",
		To:       "alice@example.com",
		Subject:  "[DSW Notifier] Notification",
		TextBody: "Hello,\nthere is a notification from DSW:\n\nhi\n",
	}
}

func TestSend_PlainWithoutAuth(t *testing.T) {
	t.Parallel()

	srv := startFakeServer(t)
	p := New(srv.config())

	if err := p.Send(context.Background(), testMessage()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	srv.wait(t)

	if srv.sawCommand("AUTH") {
		t.Error("AUTH must be skipped when authentication is disabled")
	}
	if !srv.sawCommand("MAIL FROM:<NOTIFY@EXAMPLE.COM>") {
		t.Error("missing MAIL FROM command for the sender")
	}
	if !srv.sawCommand("RCPT TO:<ALICE@EXAMPLE.COM>") {
		t.Error("missing RCPT TO command for the one recipient")
	}

	srv.mu.Lock()
	data := srv.data
	srv.mu.Unlock()
	if !strings.Contains(data, "Subject: [DSW Notifier] Notification") {
		t.Error("transmitted message missing the subject header")
	}
}

func TestSend_PlainWithAuth(t *testing.T) {
	t.Parallel()

	srv := startFakeServer(t)
	cfg := srv.config()
	cfg.AuthEnabled = true
	cfg.Username = "user"
	cfg.Password = "secret"
	p := New(cfg)

	if err := p.Send(context.Background(), testMessage()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	srv.wait(t)

	if !srv.sawCommand("AUTH PLAIN") {
		t.Error("expected AUTH PLAIN command when authentication is enabled")
	}
}

func TestSend_AuthRejected(t *testing.T) {
	t.Parallel()

	srv := startFakeServer(t)
	srv.authReply = "535 5.7.8 authentication credentials invalid"
	cfg := srv.config()
	cfg.AuthEnabled = true
	cfg.Username = "user"
	cfg.Password = "wrong"
	p := New(cfg)

	err := p.Send(context.Background(), testMessage())
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var de *provider.DeliveryError
	if !errors.As(err, &de) {
		t.Fatalf("expected DeliveryError, got %T: %v", err, err)
	}
	if de.Kind != provider.KindAuth {
		t.Errorf("Kind: got %q, want %q", de.Kind, provider.KindAuth)
	}
}

func TestSend_RecipientRejected(t *testing.T) {
	t.Parallel()

	srv := startFakeServer(t)
	srv.rcptReply = "550 5.1.1 no such user"
	p := New(srv.config())

	err := p.Send(context.Background(), testMessage())
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var de *provider.DeliveryError
	if !errors.As(err, &de) {
		t.Fatalf("expected DeliveryError, got %T: %v", err, err)
	}
	if de.Kind != provider.KindProtocol {
		t.Errorf("Kind: got %q, want %q", de.Kind, provider.KindProtocol)
	}
}

func TestSend_ConnectFailure(t *testing.T) {
	t.Parallel()

	// Grab a free port and close the listener so nothing accepts there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	ln.Close()

	port, _ := strconv.Atoi(portStr)
	p := New(Config{Host: host, Port: port, Security: "plain"})

	sendErr := p.Send(context.Background(), testMessage())
	if sendErr == nil {
		t.Fatal("expected error, got nil")
	}

	var de *provider.DeliveryError
	if !errors.As(sendErr, &de) {
		t.Fatalf("expected DeliveryError, got %T: %v", sendErr, sendErr)
	}
	if de.Kind != provider.KindConnect {
		t.Errorf("Kind: got %q, want %q", de.Kind, provider.KindConnect)
	}
}

func TestSend_CanceledContext(t *testing.T) {
	t.Parallel()

	srv := startFakeServer(t)
	p := New(srv.config())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Send(ctx, testMessage())
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var de *provider.DeliveryError
	if !errors.As(err, &de) {
		t.Fatalf("expected DeliveryError, got %T: %v", err, err)
	}
	if de.Kind != provider.KindConnect {
		t.Errorf("Kind: got %q, want %q", de.Kind, provider.KindConnect)
	}
}

func TestSend_TLSHandshakeFailure(t *testing.T) {
	t.Parallel()

	// A plaintext SMTP greeting is not a TLS server hello, so an implicit
	// TLS handshake against the fake server must fail at the secure step.
	srv := startFakeServer(t)
	cfg := srv.config()
	cfg.Security = "ssl"
	p := New(cfg)

	err := p.Send(context.Background(), testMessage())
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var de *provider.DeliveryError
	if !errors.As(err, &de) {
		t.Fatalf("expected DeliveryError, got %T: %v", err, err)
	}
	if de.Kind != provider.KindTLS {
		t.Errorf("Kind: got %q, want %q", de.Kind, provider.KindTLS)
	}
	srv.wait(t)

	// The connection was released: the server observed EOF, and no
	// protocol exchange happened before the failure.
	if srv.sawCommand("MAIL") || srv.sawCommand("DATA") {
		t.Error("no message data may be transmitted after a TLS failure")
	}
}
