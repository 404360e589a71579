package notifications

import (
	"context"
	"log"
	"runtime/debug"
	"strings"

	"github.com/redis/go-redis/v9"
)

const sessionChannelPrefix = "sessions:events:"

// SessionChannel returns the Redis channel carrying one session's events.
func SessionChannel(sessionID string) string {
	return sessionChannelPrefix + sessionID
}

// Notifier publishes session events into Redis channels so every server
// instance holding a websocket for the session can deliver them.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether a Redis client is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// PublishSession sends an event payload to a session's channel.
func (n *Notifier) PublishSession(ctx context.Context, sessionID string, payload []byte) error {
	if !n.Enabled() {
		return nil
	}
	return n.rdb.Publish(ctx, SessionChannel(sessionID), payload).Err()
}

// StartSessionSubscriber subscribes to every session channel and calls
// onMessage with the session id and payload until ctx is cancelled. It
// returns once the subscription is confirmed.
func (n *Notifier) StartSessionSubscriber(ctx context.Context, onMessage func(sessionID string, payload []byte)) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, sessionChannelPrefix+"*")
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in SessionSubscriber: %v\n%s", r, debug.Stack())
						}
					}()
					onMessage(strings.TrimPrefix(msg.Channel, sessionChannelPrefix), []byte(msg.Payload))
				}()
			}
		}
	}()

	return nil
}
