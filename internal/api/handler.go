// Package api exposes the outreach operations as plain result records.
// Handler methods never return errors; failures are reported in the
// record's Error field.
package api

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nhle/companytinder/internal/mailer"
	"github.com/nhle/companytinder/internal/model"
)

// Connector is the Gmail side of the handler.
type Connector interface {
	Status(ctx context.Context) (string, error)
	Connect(ctx context.Context) (string, error)
	Disconnect() error
}

// Sender delivers one outbound message.
type Sender interface {
	Send(ctx context.Context, req mailer.Request) (mailer.Receipt, error)
}

// QuotaReader reports today's send usage.
type QuotaReader interface {
	Quota(ctx context.Context) (model.Quota, error)
}

type StatusResult struct {
	Connected bool   `json:"connected"`
	Email     string `json:"email,omitempty"`
	Error     string `json:"error,omitempty"`
}

type ConnectResult struct {
	OK    bool   `json:"ok"`
	Email string `json:"email,omitempty"`
	Error string `json:"error,omitempty"`
}

type SendResult struct {
	OK        bool   `json:"ok"`
	ID        string `json:"id,omitempty"`
	Remaining int    `json:"remaining"`
	Cap       int    `json:"cap"`
	Error     string `json:"error,omitempty"`
}

type QuotaResult struct {
	Used      int    `json:"used"`
	Cap       int    `json:"cap"`
	Remaining int    `json:"remaining"`
	Error     string `json:"error,omitempty"`
}

type DisconnectResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Handler serves the UI-facing operations.
type Handler struct {
	connector Connector
	sender    Sender
	quota     QuotaReader
	logger    *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(connector Connector, sender Sender, quota QuotaReader, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		connector: connector,
		sender:    sender,
		quota:     quota,
		logger:    logger.With("component", "api"),
	}
}

// Status reports whether a Gmail account is connected. A missing token is
// reported as not connected without an error.
func (h *Handler) Status(ctx context.Context) StatusResult {
	email, err := h.connector.Status(ctx)
	if model.IsKind(err, model.KindNotConnected) {
		return StatusResult{}
	}
	if err != nil {
		h.logger.Warn("gmail status failed", "error", err)
		return StatusResult{Error: errorMessage(err)}
	}
	return StatusResult{Connected: true, Email: email}
}

// Connect runs the browser authorization flow.
func (h *Handler) Connect(ctx context.Context) ConnectResult {
	email, err := h.connector.Connect(ctx)
	if err != nil {
		return ConnectResult{Error: errorMessage(err)}
	}
	return ConnectResult{OK: true, Email: email}
}

// Disconnect forgets the stored Gmail token.
func (h *Handler) Disconnect() DisconnectResult {
	if err := h.connector.Disconnect(); err != nil {
		h.logger.Error("gmail disconnect failed", "error", err)
		return DisconnectResult{Error: errorMessage(err)}
	}
	return DisconnectResult{OK: true}
}

// Send delivers req within the daily cap.
func (h *Handler) Send(ctx context.Context, req mailer.Request) SendResult {
	receipt, err := h.sender.Send(ctx, req)
	if err != nil {
		if !model.IsKind(err, model.KindQuotaExceeded) {
			h.logger.Warn("send failed", "to", req.To, "error", err)
		}
		return SendResult{Error: errorMessage(err)}
	}
	return SendResult{
		OK:        true,
		ID:        receipt.ID,
		Remaining: receipt.Quota.Remaining,
		Cap:       receipt.Quota.Cap,
	}
}

// Quota reports today's usage. Storage failures come back in Error with
// zeroed counters.
func (h *Handler) Quota(ctx context.Context) QuotaResult {
	q, err := h.quota.Quota(ctx)
	if err != nil {
		h.logger.Error("reading quota failed", "error", err)
		return QuotaResult{Error: errorMessage(err)}
	}
	return QuotaResult{Used: q.Used, Cap: q.Cap, Remaining: q.Remaining}
}

// errorMessage is the user-facing text for err.
func errorMessage(err error) string {
	var e *model.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
