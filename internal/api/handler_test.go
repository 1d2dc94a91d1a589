package api_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/nhle/companytinder/internal/api"
	"github.com/nhle/companytinder/internal/mailer"
	"github.com/nhle/companytinder/internal/model"
)

type mockConnector struct {
	mock.Mock
}

func (m *mockConnector) Status(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockConnector) Connect(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockConnector) Disconnect() error {
	return m.Called().Error(0)
}

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, req mailer.Request) (mailer.Receipt, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(mailer.Receipt), args.Error(1)
}

type mockQuota struct {
	mock.Mock
}

func (m *mockQuota) Quota(ctx context.Context) (model.Quota, error) {
	args := m.Called(ctx)
	return args.Get(0).(model.Quota), args.Error(1)
}

func newHandler() (*api.Handler, *mockConnector, *mockSender, *mockQuota) {
	c, s, q := &mockConnector{}, &mockSender{}, &mockQuota{}
	return api.NewHandler(c, s, q, nil), c, s, q
}

func TestStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("connected", func(t *testing.T) {
		h, c, _, _ := newHandler()
		c.On("Status", ctx).Return("ada@example.com", nil)
		assert.Equal(t, api.StatusResult{Connected: true, Email: "ada@example.com"}, h.Status(ctx))
	})

	t.Run("no token", func(t *testing.T) {
		h, c, _, _ := newHandler()
		c.On("Status", ctx).Return("", model.NewError(model.KindNotConnected, "Not connected to Gmail yet.", nil))
		assert.Equal(t, api.StatusResult{}, h.Status(ctx))
	})

	t.Run("probe failure", func(t *testing.T) {
		h, c, _, _ := newHandler()
		c.On("Status", ctx).Return("", model.NewError(model.KindProvider, "Gmail status check failed", errors.New("boom")))
		assert.Equal(t, api.StatusResult{Error: "Gmail status check failed"}, h.Status(ctx))
	})
}

func TestConnect(t *testing.T) {
	ctx := context.Background()

	h, c, _, _ := newHandler()
	c.On("Connect", ctx).Return("", model.NewError(model.KindConfiguration,
		"Missing Gmail OAuth client id/secret. Run setup and save them first.", nil)).Once()
	c.On("Connect", ctx).Return("ada@example.com", nil).Once()

	assert.Equal(t, api.ConnectResult{
		Error: "Missing Gmail OAuth client id/secret. Run setup and save them first.",
	}, h.Connect(ctx))
	assert.Equal(t, api.ConnectResult{OK: true, Email: "ada@example.com"}, h.Connect(ctx))
	c.AssertExpectations(t)
}

func TestSend(t *testing.T) {
	ctx := context.Background()
	req := mailer.Request{To: "bob@example.com", Subject: "Hi", Text: "Hello"}

	h, _, s, _ := newHandler()
	s.On("Send", ctx, req).Return(mailer.Receipt{
		ID:    "msg-1",
		Quota: model.NewQuota(1, 2),
	}, nil).Once()
	s.On("Send", ctx, req).Return(mailer.Receipt{}, model.NewError(model.KindQuotaExceeded,
		"Daily cap reached (2/2). Try again tomorrow.", nil)).Once()

	assert.Equal(t, api.SendResult{OK: true, ID: "msg-1", Remaining: 1, Cap: 2}, h.Send(ctx, req))
	assert.Equal(t, api.SendResult{Error: "Daily cap reached (2/2). Try again tomorrow."}, h.Send(ctx, req))
	s.AssertExpectations(t)
}

func TestSendPlainError(t *testing.T) {
	ctx := context.Background()
	req := mailer.Request{To: "bob@example.com", Subject: "Hi"}

	h, _, s, _ := newHandler()
	s.On("Send", ctx, req).Return(mailer.Receipt{}, errors.New("database is locked"))

	assert.Equal(t, api.SendResult{Error: "database is locked"}, h.Send(ctx, req))
}

func TestQuota(t *testing.T) {
	ctx := context.Background()

	h, _, _, q := newHandler()
	q.On("Quota", ctx).Return(model.NewQuota(3, 25), nil).Once()
	q.On("Quota", ctx).Return(model.Quota{}, errors.New("disk I/O error")).Once()

	assert.Equal(t, api.QuotaResult{Used: 3, Cap: 25, Remaining: 22}, h.Quota(ctx))
	assert.Equal(t, api.QuotaResult{Error: "disk I/O error"}, h.Quota(ctx))
}

func TestDisconnect(t *testing.T) {
	h, c, _, _ := newHandler()
	c.On("Disconnect").Return(nil).Once()
	c.On("Disconnect").Return(errors.New("keyring locked")).Once()

	assert.Equal(t, api.DisconnectResult{OK: true}, h.Disconnect())
	assert.Equal(t, api.DisconnectResult{Error: "keyring locked"}, h.Disconnect())
}
