package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/nhle/companytinder/internal/model"
	"github.com/nhle/companytinder/internal/store"
)

// Guard enforces the per-local-day send cap. Usage is recomputed from the
// send log on every call.
type Guard struct {
	settings store.SettingsStore
	sends    store.SendLog
	now      func() time.Time
}

// NewGuard creates a Guard. now supplies local wall-clock time; nil means
// time.Now.
func NewGuard(settings store.SettingsStore, sends store.SendLog, now func() time.Time) *Guard {
	if now == nil {
		now = time.Now
	}
	return &Guard{settings: settings, sends: sends, now: now}
}

// Quota returns today's usage against the configured cap.
func (g *Guard) Quota(ctx context.Context) (model.Quota, error) {
	settings, err := g.settings.GetSettings(ctx)
	if err != nil {
		return model.Quota{}, err
	}
	return g.quotaFor(ctx, settings.DailyCap)
}

func (g *Guard) quotaFor(ctx context.Context, cap int) (model.Quota, error) {
	used, err := g.sends.CountSendsSince(ctx, model.StartOfDay(g.now()))
	if err != nil {
		return model.Quota{}, err
	}
	return model.NewQuota(used, cap), nil
}

// Check fails with a KindQuotaExceeded error once today's cap is used up.
func (g *Guard) Check(ctx context.Context, cap int) (model.Quota, error) {
	q, err := g.quotaFor(ctx, cap)
	if err != nil {
		return model.Quota{}, err
	}
	if q.Exhausted() {
		return q, model.NewError(model.KindQuotaExceeded,
			fmt.Sprintf("Daily cap reached (%d/%d). Try again tomorrow.", q.Used, q.Cap), nil)
	}
	return q, nil
}

// Record counts one successful send.
func (g *Guard) Record(ctx context.Context, id string) error {
	return g.sends.RecordSend(ctx, model.NewSendRecord(id, g.now()))
}
