// internal/pkg/kv/bolt.go
package kv

import (
	"context"

	bolt "go.etcd.io/bbolt"
)

var boltBucket = []byte("sessions")

// Bolt is a file-backed store for single-instance deployments. It offers
// durability across restarts; cross-process change notifications need the
// redis backend, so Watch only observes writes from other handles opened on
// the same *Bolt.
type Bolt struct {
	db  *bolt.DB
	fan *Memory // notification fan-out between in-process handles
}

func NewBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Bolt{db: db, fan: NewMemory()}, nil
}

// Open returns a handle onto the bolt file.
func (b *Bolt) Open() Store {
	return &boltHandle{db: b.db, peer: b.fan.Open().(*memoryHandle)}
}

// Close closes the underlying database file.
func (b *Bolt) Close() error {
	return b.db.Close()
}

type boltHandle struct {
	db   *bolt.DB
	peer *memoryHandle
}

func (h *boltHandle) Get(_ context.Context, key string) (string, error) {
	var value string
	found := false
	err := h.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(boltBucket).Get([]byte(key)); v != nil {
			value = string(v)
			found = true
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if !found {
		return "", ErrKeyNotFound
	}
	return value, nil
}

func (h *boltHandle) Set(_ context.Context, key, value string) error {
	err := h.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Put([]byte(key), []byte(value))
	})
	if err != nil {
		return err
	}
	h.peer.mem.publish(h.peer, Event{Key: key, Value: value})
	return nil
}

func (h *boltHandle) Delete(_ context.Context, key string) error {
	err := h.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Delete([]byte(key))
	})
	if err != nil {
		return err
	}
	h.peer.mem.publish(h.peer, Event{Key: key, Deleted: true})
	return nil
}

func (h *boltHandle) Watch(ctx context.Context) <-chan Event {
	return h.peer.Watch(ctx)
}

func (h *boltHandle) Close() error {
	return h.peer.Close()
}
