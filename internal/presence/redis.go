package presence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/broadcast"
	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/logger"
)

const scannerKeyPrefix = "scanner_online:"

// RedisTracker stores heartbeats as TTL keys so presence survives a
// process restart and can be shared with other tooling. Key expiry
// events drive the offline notification.
type RedisTracker struct {
	client    *redis.Client
	ttl       time.Duration
	publisher broadcast.Publisher
	logger    *logger.Logger
	pubsub    *redis.PubSub
}

func NewRedisTracker(client *redis.Client, ttl time.Duration, publisher broadcast.Publisher, log *logger.Logger) *RedisTracker {
	ctx := context.Background()

	if _, err := client.ConfigSet(ctx, "notify-keyspace-events", "Ex").Result(); err != nil {
		log.Warn("REDIS", fmt.Sprintf("Failed to enable keyspace notifications: %v", err))
	}

	t := &RedisTracker{
		client:    client,
		ttl:       ttl,
		publisher: publisher,
		logger:    log,
		pubsub:    client.PSubscribe(ctx, fmt.Sprintf("__keyevent@%d__:expired", client.Options().DB)),
	}
	go t.watchExpiry()
	return t
}

func (t *RedisTracker) Heartbeat(ctx context.Context, scannerID string) error {
	wasOnline, err := t.Online(ctx)
	if err != nil {
		return err
	}

	key := scannerKeyPrefix + scannerID
	if err := t.client.Set(ctx, key, time.Now().Format(time.RFC3339), t.ttl).Err(); err != nil {
		return err
	}

	if !wasOnline {
		t.publisher.Publish(broadcast.Event{
			Type: broadcast.EventScannerStatus,
			Data: StatusPayload{Status: StatusOnline},
		})
	}
	return nil
}

func (t *RedisTracker) Online(ctx context.Context) (bool, error) {
	keys, err := t.client.Keys(ctx, scannerKeyPrefix+"*").Result()
	if err != nil {
		return false, err
	}
	return len(keys) > 0, nil
}

// watchExpiry reports the offline transition once the last scanner key
// has expired.
func (t *RedisTracker) watchExpiry() {
	for msg := range t.pubsub.Channel() {
		if !strings.HasPrefix(msg.Payload, scannerKeyPrefix) {
			continue
		}
		t.logger.Debug("PRESENCE", fmt.Sprintf("heartbeat expired: %s", msg.Payload))

		online, err := t.Online(context.Background())
		if err != nil {
			t.logger.Error("PRESENCE", fmt.Sprintf("failed to check scanner presence: %v", err))
			continue
		}
		if !online {
			t.publisher.Publish(broadcast.Event{
				Type: broadcast.EventScannerStatus,
				Data: StatusPayload{Status: StatusOffline},
			})
		}
	}
}

func (t *RedisTracker) Close() error {
	return t.pubsub.Close()
}
