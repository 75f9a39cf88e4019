package listener

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"campaignkit-reference/internal/storage"
)

// Handler receives one NOTIFY payload. It runs on the listener goroutine.
type Handler func(payload string)

// ListenAndDispatch forwards NOTIFY payloads on channel to handle until ctx
// is done, reconnecting with jittered backoff when the connection drops.
func ListenAndDispatch(ctx context.Context, st *storage.Store, channel string, baseBackoff time.Duration, handle Handler) {
	if channel == "" {
		channel = st.ListenChannel()
	}
	for {
		err := listenOnce(ctx, st, channel, handle)
		if ctx.Err() != nil {
			log.Info().Msg("listener stopped")
			return
		}
		backoff := jitter(baseBackoff)
		log.Error().Err(err).Dur("retry_in", backoff).Msg("listener error")
		select {
		case <-ctx.Done():
			log.Info().Msg("listener stopped")
			return
		case <-time.After(backoff):
		}
	}
}

func listenOnce(ctx context.Context, st *storage.Store, channel string, handle Handler) error {
	conn, err := st.PgxPool().Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err = conn.Exec(ctx, "LISTEN "+channel); err != nil {
		return err
	}
	log.Info().Str("channel", channel).Msg("listening for kit events")

	for {
		ntf, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		log.Debug().Str("channel", ntf.Channel).Str("payload", ntf.Payload).Msg("kit event")
		handle(ntf.Payload)
	}
}

func jitter(base time.Duration) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	factor := 0.5 + rand.Float64() // 0.5x-1.5x
	return time.Duration(float64(base) * factor)
}
