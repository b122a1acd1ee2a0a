package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"questlog/internal/docstore"
)

// PgPublisher sends events with pg_notify so every process listening on the
// channel receives them.
type PgPublisher struct {
	DB      *gorm.DB
	Channel string
}

func (p *PgPublisher) Publish(ctx context.Context, c docstore.Change) error {
	payload, err := json.Marshal(EventFromChange(c))
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := p.DB.WithContext(ctx).Exec("select pg_notify(?, ?)", p.Channel, string(payload)).Error; err != nil {
		return fmt.Errorf("pg_notify: %w", err)
	}
	return nil
}

// Listener relays notifications from one Postgres channel into a Hub.
type Listener struct {
	l   *pq.Listener
	hub *Hub
	log zerolog.Logger
}

func NewListener(dsn, channel string, hub *Hub, log zerolog.Logger) (*Listener, error) {
	log = log.With().Str("component", "notify_listener").Str("channel", channel).Logger()
	l := pq.NewListener(dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Warn().Err(err).Int("event", int(ev)).Msg("listener connection event")
		}
	})
	if err := l.Listen(channel); err != nil {
		_ = l.Close()
		return nil, fmt.Errorf("listen %s: %w", channel, err)
	}
	return &Listener{l: l, hub: hub, log: log}, nil
}

func (l *Listener) Run(ctx context.Context) {
	defer l.l.Close()

	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case n := <-l.l.Notify:
			// nil after a reconnect; notifications sent meanwhile are lost.
			if n == nil {
				l.log.Info().Msg("listener reconnected")
				continue
			}
			var e Event
			if err := json.Unmarshal([]byte(n.Extra), &e); err != nil {
				l.log.Warn().Err(err).Msg("bad notification payload")
				continue
			}
			l.hub.Broadcast(e)
		case <-ping.C:
			if err := l.l.Ping(); err != nil {
				l.log.Warn().Err(err).Msg("listener ping failed")
			}
		}
	}
}
