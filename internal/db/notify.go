package db

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/lib/pq"
)

// Notifier wraps the LISTEN/NOTIFY mechanism in PostgreSQL. It announces the
// conversation key on a channel whenever a pending resolution is stored, so
// open clients and dashboards can refresh their checkout state.
type Notifier struct {
	DB      *sql.DB
	ConnStr string
	Channel string
}

// NewNotifier constructs a Notifier. ConnStr must be the same DSN used to
// open the database; pq listeners need their own connection.
func NewNotifier(db *sql.DB, connStr, channel string) *Notifier {
	return &Notifier{DB: db, ConnStr: connStr, Channel: channel}
}

// Notify publishes the conversation key on the channel.
func (n *Notifier) Notify(ctx context.Context, conversationKey string) error {
	_, err := n.DB.ExecContext(ctx, `SELECT pg_notify($1, $2)`, n.Channel, conversationKey)
	return err
}

// Listen yields conversation keys as they arrive on the channel until the
// context is cancelled. The returned channel is closed on shutdown.
func (n *Notifier) Listen(ctx context.Context) (<-chan string, error) {
	listener := pq.NewListener(n.ConnStr, 5*time.Second, time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Println("resolution listener event error:", err)
			}
		})
	if err := listener.Listen(n.Channel); err != nil {
		_ = listener.Close()
		return nil, err
	}
	ch := make(chan string)
	go func() {
		defer func() {
			_ = listener.Close()
			close(ch)
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case note, ok := <-listener.Notify:
				if !ok {
					return
				}
				if note == nil {
					// reconnect marker; nothing to forward
					continue
				}
				select {
				case ch <- note.Extra:
				case <-ctx.Done():
					return
				}
			case <-time.After(90 * time.Second):
				if err := listener.Ping(); err != nil {
					log.Println("resolution listener ping failed:", err)
					return
				}
			}
		}
	}()
	return ch, nil
}
