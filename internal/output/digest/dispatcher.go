package digest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/news-radar/internal/core/domain"
	"github.com/lueurxax/news-radar/internal/gateway"
	"github.com/lueurxax/news-radar/internal/platform/observability"
	"github.com/lueurxax/news-radar/internal/platform/schedule"
)

// SubscriberLister supplies the subscribers to scan each tick.
type SubscriberLister interface {
	ListSubscribers(ctx context.Context) ([]*domain.Subscriber, error)
}

// Dispatcher scans subscribers once a minute and sends digests to those
// whose local send time has come around. Delivery is tracked per local
// day in memory; a restart can resend at most one digest per subscriber.
type Dispatcher struct {
	repo     SubscriberLister
	composer *Composer
	notifier gateway.Notifier
	logger   *zerolog.Logger
	now      func() time.Time

	sentOn map[string]string
}

func NewDispatcher(repo SubscriberLister, composer *Composer, notifier gateway.Notifier, logger *zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		repo:     repo,
		composer: composer,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		sentOn:   make(map[string]string),
	}
}

// Tick delivers digests to every subscriber due at the current minute.
// Returns the number of digests sent.
func (d *Dispatcher) Tick(ctx context.Context) (int, error) {
	subs, err := d.repo.ListSubscribers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list subscribers: %w", err)
	}

	now := d.now()
	sent := 0

	for _, sub := range subs {
		delivered, err := d.maybeDeliver(ctx, sub, now)
		if err != nil {
			d.logger.Error().Err(err).Str("subscriber_id", sub.ID).Msg("digest delivery failed")

			continue
		}

		if delivered {
			sent++
		}
	}

	return sent, nil
}

func (d *Dispatcher) maybeDeliver(ctx context.Context, sub *domain.Subscriber, now time.Time) (bool, error) {
	due, err := schedule.Due(now, sub.DigestTime, sub.Timezone)
	if err != nil {
		return false, fmt.Errorf("schedule check: %w", err)
	}

	if !due {
		return false, nil
	}

	loc, err := schedule.Location(sub.Timezone)
	if err != nil {
		return false, err
	}

	day := now.In(loc).Format("2006-01-02")
	if d.sentOn[sub.ID] == day {
		return false, nil
	}

	if err := d.deliver(ctx, sub); err != nil {
		return false, err
	}

	d.sentOn[sub.ID] = day

	return true, nil
}

// deliver sends the main digest plus any opted-in topical digests.
func (d *Dispatcher) deliver(ctx context.Context, sub *domain.Subscriber) error {
	modes := []Mode{ModeMain}

	if sub.IncludeTechUpdates {
		modes = append(modes, ModeTechUpdate)
	}

	if sub.IncludeIndustryReports {
		modes = append(modes, ModeIndustryReport)
	}

	for _, mode := range modes {
		entries, err := d.composer.Compose(ctx, sub.ID, mode)
		if err != nil {
			return fmt.Errorf("compose %s: %w", mode, err)
		}

		// Topical digests are skipped entirely when empty; the main
		// digest always goes out so the subscriber knows it ran.
		if len(entries) == 0 && mode != ModeMain {
			continue
		}

		msg := gateway.Message{Kind: "digest", Text: Render(entries, mode)}

		if err := d.notifier.Send(ctx, sub, msg); err != nil {
			observability.DeliveryFailures.Inc()

			return fmt.Errorf("send %s digest: %w", mode, err)
		}
	}

	return nil
}
