package gmail

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CallbackPath is the redirect path registered for the loopback listener.
const CallbackPath = "/oauth2callback"

const loopbackHost = "127.0.0.1"

// shutdownTimeout bounds how long the listener waits for an in-flight
// response before connections are force-closed.
const shutdownTimeout = 5 * time.Second

var errAttemptEnded = errors.New("the connect attempt already ended")

// callback is one request received on CallbackPath.
type callback struct {
	code  string
	state string

	// err is set when the request itself is unusable (provider error
	// param, wrong method).
	err error

	reply chan callbackReply
}

type callbackReply struct {
	status int
	err    error
}

// respond releases the waiting HTTP handler with the page to render.
func (cb callback) respond(status int, err error) {
	cb.reply <- callbackReply{status: status, err: err}
}

// callbackServer is the one-shot loopback HTTP listener that captures the
// authorization redirect.
type callbackServer struct {
	ln        net.Listener
	srv       *http.Server
	callbacks chan callback
	claimed   atomic.Bool
	logger    *slog.Logger

	// done is closed when shutdown starts; nobody reads callbacks after.
	done     chan struct{}
	doneOnce sync.Once
}

func newCallbackServer(ln net.Listener, logger *slog.Logger) *callbackServer {
	s := &callbackServer{
		ln:        ln,
		callbacks: make(chan callback, 1),
		logger:    logger,
		done:      make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(CallbackPath, s.handleCallback)
	// Browsers probe for favicon.ico and similar; only the callback path
	// carries the provider's answer, so other paths leave the attempt running.
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("ignoring stray request on callback listener",
			"method", r.Method, "path", r.URL.Path)
		http.NotFound(w, r)
	})

	s.srv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// redirectURL is the URI the provider must redirect to.
func (s *callbackServer) redirectURL() string {
	port := s.ln.Addr().(*net.TCPAddr).Port
	return fmt.Sprintf("http://%s:%d%s", loopbackHost, port, CallbackPath)
}

// serve blocks until shutdown.
func (s *callbackServer) serve() error {
	err := s.srv.Serve(s.ln)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving oauth callback: %w", err)
	}
	return nil
}

// shutdown answers any callback nobody picked up and stops the listener.
func (s *callbackServer) shutdown() {
	s.doneOnce.Do(func() { close(s.done) })

	select {
	case cb := <-s.callbacks:
		cb.respond(http.StatusServiceUnavailable, errAttemptEnded)
	default:
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Warn("forcing callback listener closed", "error", err)
		_ = s.srv.Close()
	}
}

func (s *callbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	if !s.claimed.CompareAndSwap(false, true) {
		writePage(w, http.StatusGone, errors.New("this sign-in response was already handled"))
		return
	}

	cb := callback{reply: make(chan callbackReply, 1)}
	if r.Method != http.MethodGet {
		cb.err = fmt.Errorf("unexpected %s request", r.Method)
	} else {
		q := r.URL.Query()
		cb.code = q.Get("code")
		cb.state = q.Get("state")
		if e := q.Get("error"); e != "" {
			if desc := q.Get("error_description"); desc != "" {
				e += ": " + desc
			}
			cb.err = fmt.Errorf("provider returned error %q", e)
		}
	}

	select {
	case s.callbacks <- cb:
	case <-s.done:
		writePage(w, http.StatusServiceUnavailable, errAttemptEnded)
		return
	}

	select {
	case reply := <-cb.reply:
		writePage(w, reply.status, reply.err)
	case <-s.done:
		// A reply sent just before shutdown still wins.
		select {
		case reply := <-cb.reply:
			writePage(w, reply.status, reply.err)
		default:
			writePage(w, http.StatusServiceUnavailable, errAttemptEnded)
		}
	case <-r.Context().Done():
	}
}

var pageTemplate = template.Must(template.New("page").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>CompanyTinder</title></head>
<body style="font-family: ui-sans-serif, system-ui, sans-serif; padding: 24px">
{{if .OK}}<h2>Gmail connected</h2>
<p>You can close this window and return to CompanyTinder.</p>
{{else}}<h2>Gmail connect failed</h2>
<p>{{.Message}}</p>
<p>Return to CompanyTinder and try connecting again.</p>
{{end}}</body>
</html>
`))

func writePage(w http.ResponseWriter, status int, err error) {
	data := struct {
		OK      bool
		Message string
	}{OK: err == nil}
	if err != nil {
		data.Message = err.Error()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = pageTemplate.Execute(w, data)
}
