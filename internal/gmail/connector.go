package gmail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/errgroup"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/nhle/companytinder/internal/model"
)

// ConnectState is the phase of the connect state machine.
type ConnectState int

const (
	StateIdle ConnectState = iota
	StateAwaitingCallback
	StateExchanging
	StateDone
	StateFailed
)

func (s ConnectState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingCallback:
		return "awaiting_callback"
	case StateExchanging:
		return "exchanging"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// inFlight reports whether a connect attempt currently owns the state.
func (s ConnectState) inFlight() bool {
	return s == StateAwaitingCallback || s == StateExchanging
}

// Options configures a Connector. Zero values fall back to Google's
// endpoints, the default scopes and a five minute connect timeout.
type Options struct {
	AuthURL  string
	TokenURL string
	Scopes   []string

	// CallbackPorts are tried in order; empty means any free port.
	CallbackPorts []int

	// Timeout bounds the wait for the browser callback.
	Timeout time.Duration

	// Endpoint overrides the Gmail API base URL.
	Endpoint string

	// HTTPClient is used for token and API calls when set.
	HTTPClient *http.Client

	// OpenBrowser launches the consent page. Defaults to OpenBrowser.
	OpenBrowser func(url string) error

	// Listen binds the callback listener. Defaults to net.Listen.
	Listen func(network, address string) (net.Listener, error)

	Logger *slog.Logger
}

// OptionsFromConfig maps the app config onto connector options.
func OptionsFromConfig(cfg model.AppConfig, logger *slog.Logger) Options {
	return Options{
		AuthURL:       cfg.OAuth.AuthURL,
		TokenURL:      cfg.OAuth.TokenURL,
		Scopes:        cfg.OAuth.Scopes,
		CallbackPorts: cfg.OAuth.CallbackPorts,
		Timeout:       cfg.OAuth.Timeout,
		Endpoint:      cfg.Gmail.Endpoint,
		Logger:        logger,
	}
}

// Connector obtains and maintains the Gmail credential and dispatches
// raw messages with it. At most one connect attempt runs at a time.
type Connector struct {
	secrets SecretStore
	tokens  tokenStore
	opts    Options
	logger  *slog.Logger

	mu    sync.Mutex
	state ConnectState
}

// NewConnector creates a connector reading secrets from secrets.
func NewConnector(secrets SecretStore, opts Options) *Connector {
	if len(opts.Scopes) == 0 {
		opts.Scopes = model.DefaultScopes
	}
	if opts.Timeout <= 0 {
		opts.Timeout = model.DefaultConnectTimeout
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = OpenBrowser
	}
	if opts.Listen == nil {
		opts.Listen = net.Listen
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Connector{
		secrets: secrets,
		tokens:  tokenStore{secrets: secrets},
		opts:    opts,
		logger:  logger.With("component", "gmail_connector"),
	}
}

// State returns the current connect state.
func (c *Connector) State() ConnectState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Connector) setState(s ConnectState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// begin claims the connector for a new attempt.
func (c *Connector) begin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.inFlight() {
		return false
	}
	c.state = StateAwaitingCallback
	return true
}

func (c *Connector) finish(err error) {
	if err != nil {
		c.setState(StateFailed)
		return
	}
	c.setState(StateDone)
}

// Status reports the connected account address. It returns a
// KindNotConnected error when no token is stored, and never rewrites the
// stored token.
func (c *Connector) Status(ctx context.Context) (string, error) {
	set, err := c.tokens.load()
	if errors.Is(err, errNoToken) {
		return "", notConnected()
	}
	if err != nil {
		return "", err
	}

	// Without client credentials the stored access token still works
	// until it expires; only refresh needs them.
	cred, err := loadClientCredential(c.secrets)
	if err != nil && !model.IsKind(err, model.KindConfiguration) {
		return "", err
	}

	ctx = c.clientContext(ctx)
	cfg := c.oauthConfig(cred, "")
	email, err := c.profile(ctx, cfg.TokenSource(ctx, set.Token()))
	if err != nil {
		return "", classifyAPIError("Gmail status check failed", err)
	}
	return email, nil
}

// Connect runs the authorization-code flow through the user's browser
// and returns the connected account address.
func (c *Connector) Connect(ctx context.Context) (string, error) {
	if !c.begin() {
		return "", model.NewError(model.KindAuthorization,
			"A Gmail connect attempt is already in progress.", nil)
	}

	email, err := c.connect(ctx)
	c.finish(err)
	if err != nil {
		c.logger.Warn("gmail connect failed", "error", err)
		return "", err
	}

	c.logger.Info("gmail connected", "email", email)
	return email, nil
}

func (c *Connector) connect(ctx context.Context) (string, error) {
	cred, err := loadClientCredential(c.secrets)
	if err != nil {
		return "", err
	}

	ln, err := c.listenLoopback()
	if err != nil {
		return "", err
	}
	cb := newCallbackServer(ln, c.logger)

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	cfg := c.oauthConfig(cred, cb.redirectURL())
	authURL := cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.S256ChallengeOption(verifier),
	)

	waitCtx, cancel := context.WithTimeout(c.clientContext(ctx), c.opts.Timeout)
	defer cancel()

	g, gctx := errgroup.WithContext(waitCtx)
	g.Go(cb.serve)

	var email string
	g.Go(func() error {
		defer cb.shutdown()

		c.logger.Info("waiting for gmail consent in the browser", "redirect_uri", cfg.RedirectURL)
		if err := c.opts.OpenBrowser(authURL); err != nil {
			c.logger.Warn("could not open a browser, open this URL manually",
				"url", authURL, "error", err)
		}

		got, err := c.awaitCallback(gctx, waitCtx, cb, state)
		if err != nil {
			return err
		}

		c.setState(StateExchanging)
		email, err = c.complete(gctx, cfg, got.code, verifier)
		if err != nil {
			got.respond(http.StatusInternalServerError, err)
			return err
		}
		got.respond(http.StatusOK, nil)
		return nil
	})

	if err := g.Wait(); err != nil {
		return "", err
	}
	return email, nil
}

// awaitCallback waits for the redirect and validates it. Invalid
// callbacks are answered with 400 here.
func (c *Connector) awaitCallback(
	ctx, waitCtx context.Context,
	cb *callbackServer,
	state string,
) (callback, error) {
	select {
	case got := <-cb.callbacks:
		var reason error
		switch {
		case got.err != nil:
			reason = got.err
		case got.state != state:
			reason = errors.New("state parameter does not match this connect attempt")
		case got.code == "":
			reason = errors.New("authorization code missing from callback")
		}
		if reason != nil {
			got.respond(http.StatusBadRequest, reason)
			return callback{}, model.NewError(model.KindAuthorization, "Invalid OAuth callback", reason)
		}
		return got, nil

	case <-ctx.Done():
		if errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
			return callback{}, model.NewError(model.KindTimeout,
				"Gmail connect timed out waiting for the browser callback.", nil)
		}
		if err := waitCtx.Err(); err != nil {
			return callback{}, fmt.Errorf("waiting for oauth callback: %w", err)
		}
		return callback{}, errors.New("oauth callback listener stopped")
	}
}

// complete exchanges the code, persists the token set and probes the
// account address.
func (c *Connector) complete(
	ctx context.Context,
	cfg *oauth2.Config,
	code, verifier string,
) (string, error) {
	tok, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return "", model.NewError(model.KindAuthorization, "Gmail rejected the authorization code", err)
	}

	if err := c.tokens.save(tokenSetFrom(tok)); err != nil {
		return "", err
	}

	email, err := c.profile(ctx, cfg.TokenSource(ctx, tok))
	if err != nil {
		return "", model.NewError(model.KindProvider, "Connected, but reading the Gmail profile failed", err)
	}
	return email, nil
}

// Dispatch sends a base64url-encoded RFC 2822 message and returns the
// provider message id (possibly empty). A token refreshed along the way
// is persisted.
func (c *Connector) Dispatch(ctx context.Context, raw string) (string, error) {
	set, err := c.tokens.load()
	if errors.Is(err, errNoToken) {
		return "", notConnected()
	}
	if err != nil {
		return "", err
	}

	cred, err := loadClientCredential(c.secrets)
	if err != nil && !model.IsKind(err, model.KindConfiguration) {
		return "", err
	}

	ctx = c.clientContext(ctx)
	cfg := c.oauthConfig(cred, "")
	ts := cfg.TokenSource(ctx, set.Token())

	svc, err := c.service(ctx, ts)
	if err != nil {
		return "", err
	}

	msg, sendErr := svc.Users.Messages.Send("me", &gmailapi.Message{Raw: raw}).Context(ctx).Do()
	c.persistRefreshed(ts, set)
	if sendErr != nil {
		return "", classifyAPIError("Gmail send failed", sendErr)
	}
	return msg.Id, nil
}

// Disconnect forgets the stored token set.
func (c *Connector) Disconnect() error {
	return c.tokens.clear()
}

// persistRefreshed stores the token source's current token when it
// differs from what was loaded.
func (c *Connector) persistRefreshed(ts oauth2.TokenSource, loaded TokenSet) {
	tok, err := ts.Token()
	if err != nil || tok.AccessToken == loaded.AccessToken {
		return
	}
	if err := c.tokens.save(tokenSetFrom(tok)); err != nil {
		c.logger.Warn("could not persist refreshed gmail token", "error", err)
		return
	}
	c.logger.Debug("persisted refreshed gmail token", "expiry", tok.Expiry)
}

func (c *Connector) listenLoopback() (net.Listener, error) {
	ports := c.opts.CallbackPorts
	if len(ports) == 0 {
		ports = []int{0}
	}

	var lastErr error
	for _, port := range ports {
		ln, err := c.opts.Listen("tcp", net.JoinHostPort(loopbackHost, strconv.Itoa(port)))
		if err == nil {
			return ln, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("binding oauth callback listener: %w", lastErr)
}

func (c *Connector) oauthConfig(cred ClientCredential, redirectURL string) *oauth2.Config {
	endpoint := google.Endpoint
	if c.opts.AuthURL != "" {
		endpoint.AuthURL = c.opts.AuthURL
	}
	if c.opts.TokenURL != "" {
		endpoint.TokenURL = c.opts.TokenURL
	}

	return &oauth2.Config{
		ClientID:     cred.ClientID,
		ClientSecret: cred.ClientSecret,
		Endpoint:     endpoint,
		RedirectURL:  redirectURL,
		Scopes:       c.opts.Scopes,
	}
}

// clientContext makes the oauth2 package use the configured HTTP client.
func (c *Connector) clientContext(ctx context.Context) context.Context {
	if c.opts.HTTPClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, c.opts.HTTPClient)
}

func (c *Connector) service(ctx context.Context, ts oauth2.TokenSource) (*gmailapi.Service, error) {
	opts := []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(ctx, ts))}
	if c.opts.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.opts.Endpoint))
	}

	svc, err := gmailapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gmail service: %w", err)
	}
	return svc, nil
}

func (c *Connector) profile(ctx context.Context, ts oauth2.TokenSource) (string, error) {
	svc, err := c.service(ctx, ts)
	if err != nil {
		return "", err
	}

	p, err := svc.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("fetching gmail profile: %w", err)
	}
	return p.EmailAddress, nil
}

func notConnected() error {
	return model.NewError(model.KindNotConnected, "Not connected to Gmail yet.", nil)
}

// classifyAPIError separates refresh failures, which need a new connect,
// from ordinary provider failures.
func classifyAPIError(message string, err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return model.NewError(model.KindAuthorization,
			"Gmail authorization expired or was revoked, connect again", err)
	}
	return model.NewError(model.KindProvider, message, err)
}
