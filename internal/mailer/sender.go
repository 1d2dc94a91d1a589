package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/nhle/companytinder/internal/model"
	"github.com/nhle/companytinder/internal/store"
)

// Dispatcher delivers an encoded raw message and returns the provider's
// message id, which may be empty.
type Dispatcher interface {
	Dispatch(ctx context.Context, raw string) (string, error)
}

// Request is one outbound email as requested by the UI.
type Request struct {
	To      string `json:"to" validate:"required"`
	Subject string `json:"subject" validate:"required"`
	Text    string `json:"text"`
	HTML    string `json:"html,omitempty"`

	// BCC overrides the settings BCC list when non-empty.
	BCC string `json:"bcc,omitempty"`
}

// Receipt describes a completed send.
type Receipt struct {
	ID    string
	Quota model.Quota
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// localIDPrefix marks send records whose provider response had no id.
const localIDPrefix = "local-"

// Sender checks preconditions, composes and dispatches messages, and
// records successful sends against the quota.
type Sender struct {
	settings   store.SettingsStore
	guard      *Guard
	dispatcher Dispatcher
	logger     *slog.Logger
	now        func() time.Time

	// mu serializes quota check, dispatch and record so concurrent sends
	// cannot overshoot the cap.
	mu sync.Mutex
}

// NewSender wires a Sender. now is the clock used for the Date header;
// nil means time.Now.
func NewSender(
	settings store.SettingsStore,
	guard *Guard,
	dispatcher Dispatcher,
	logger *slog.Logger,
	now func() time.Time,
) *Sender {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{
		settings:   settings,
		guard:      guard,
		dispatcher: dispatcher,
		logger:     logger.With("component", "sender"),
		now:        now,
	}
}

// Send delivers req. Preconditions are checked in order: sender address
// configured, request valid, quota available, Gmail connected. Sends are
// not deduplicated.
func (s *Sender) Send(ctx context.Context, req Request) (Receipt, error) {
	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return Receipt{}, err
	}
	if strings.TrimSpace(settings.SenderEmail) == "" {
		return Receipt{}, model.NewError(model.KindConfiguration,
			"Sender email not set. Open Setup and save it first.", nil)
	}

	msg, err := s.buildMessage(settings, req)
	if err != nil {
		return Receipt{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.guard.Check(ctx, settings.DailyCap); err != nil {
		return Receipt{}, err
	}

	raw, err := Compose(msg)
	if err != nil {
		return Receipt{}, err
	}

	id, err := s.dispatcher.Dispatch(ctx, EncodeRaw(raw))
	if err != nil {
		return Receipt{}, err
	}
	if id == "" {
		id = localIDPrefix + uuid.NewString()
		s.logger.Warn("provider returned no message id, recording a local id", "id", id)
	}

	if err := s.guard.Record(ctx, id); err != nil {
		return Receipt{}, fmt.Errorf("message %s was sent but could not be counted: %w", id, err)
	}

	q, err := s.guard.quotaFor(ctx, settings.DailyCap)
	if err != nil {
		return Receipt{}, err
	}

	s.logger.Info("message sent", "id", id, "remaining", q.Remaining, "cap", q.Cap)
	return Receipt{ID: id, Quota: q}, nil
}

// buildMessage validates req and resolves addresses against settings.
func (s *Sender) buildMessage(settings model.Settings, req Request) (Message, error) {
	req.To = strings.TrimSpace(req.To)
	req.Subject = strings.TrimSpace(req.Subject)
	if err := validate.Struct(req); err != nil {
		return Message{}, model.NewError(model.KindInvalidRequest, "Recipient and subject are required", err)
	}

	to, err := parseAddresses(req.To)
	if err == nil && len(to) == 0 {
		err = fmt.Errorf("no address in %q", req.To)
	}
	if err != nil {
		return Message{}, model.NewError(model.KindInvalidRequest,
			fmt.Sprintf("Invalid recipient address %q", req.To), err)
	}

	bccList := req.BCC
	if strings.TrimSpace(bccList) == "" {
		bccList = settings.BCCList
	}
	bcc, err := parseAddresses(bccList)
	if err != nil {
		return Message{}, model.NewError(model.KindInvalidRequest,
			fmt.Sprintf("Invalid BCC address list %q", bccList), err)
	}

	return Message{
		From:    &mail.Address{Name: settings.SenderName, Address: settings.SenderEmail},
		To:      to,
		Bcc:     bcc,
		Subject: req.Subject,
		Date:    s.now(),
		Text:    req.Text,
		HTML:    req.HTML,
	}, nil
}

func parseAddresses(list string) ([]*mail.Address, error) {
	list = strings.Trim(strings.ReplaceAll(list, ";", ","), " \t,")
	if list == "" {
		return nil, nil
	}
	return mail.ParseAddressList(list)
}
