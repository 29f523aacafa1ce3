// internal/pkg/kv/redis.go
package kv

import (
	"context"
	"encoding/json"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
)

// Redis is a shared store for multi-instance deployments. Mutations are
// published on a pub/sub channel so every other connected instance observes
// them; the publishing handle tags messages with its origin id and filters
// its own echoes out of Watch.
type Redis struct {
	client  *redis.Client
	prefix  string
	channel string
	origin  string
}

type redisEvent struct {
	Origin  string `json:"origin"`
	Key     string `json:"key"`
	Value   string `json:"value,omitempty"`
	Deleted bool   `json:"deleted,omitempty"`
}

func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{
		client:  client,
		prefix:  prefix,
		channel: prefix + ":events",
		origin:  ulid.Make().String(),
	}
}

func (r *Redis) key(k string) string {
	return r.prefix + ":" + k
}

func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, r.key(key)).Result()
	if err == redis.Nil {
		return "", ErrKeyNotFound
	}
	return v, err
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return err
	}
	return r.publish(ctx, redisEvent{Origin: r.origin, Key: key, Value: value})
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return err
	}
	return r.publish(ctx, redisEvent{Origin: r.origin, Key: key, Deleted: true})
}

func (r *Redis) publish(ctx context.Context, ev redisEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, data).Err()
}

func (r *Redis) Watch(ctx context.Context) <-chan Event {
	out := make(chan Event, 16)
	sub := r.client.Subscribe(ctx, r.channel)

	go func() {
		defer close(out)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				var ev redisEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					continue
				}
				if ev.Origin == r.origin {
					continue
				}
				select {
				case out <- Event{Key: ev.Key, Value: ev.Value, Deleted: ev.Deleted}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func (r *Redis) Close() error {
	return r.client.Close()
}
