// Command campusswap-notify follows the lifecycle event channel and writes a
// notify line per recipient.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"campusswap/internal/config"
	"campusswap/internal/events"
	applog "campusswap/internal/log"
)

var notifier = applog.Component("notify")

func main() {
	cfg := config.Load()
	if cfg.RedisAddr == "" {
		log.Fatal("REDIS_ADDR is required")
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPwd, DB: 0})
	defer rdb.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Fatalf("redis: %v", err)
	}

	ch, closeSub := events.NewRedisPublisher(rdb, events.DefaultChannel).Subscribe(ctx)
	defer func() { _ = closeSub() }()
	notifier.Info("start", map[string]any{"channel": events.DefaultChannel})

	n := relay(ch)
	notifier.Info("stop", map[string]any{"sent": n})
}

// relay writes one notify line per recipient until ch closes and returns
// the number of lines written.
func relay(ch <-chan events.Event) int {
	sent := 0
	for e := range ch {
		for _, uid := range e.Recipients {
			notifier.Audit("notify", map[string]any{
				"user_id":        uid,
				"kind":           e.Kind,
				"transaction_id": e.TransactionID,
				"item_id":        e.ItemID,
			})
			sent++
		}
	}
	return sent
}
