// Package dedupe remembers which chat updates have been claimed so that
// redelivered updates are not processed twice.
package dedupe

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "github.com/boltdb/bolt"

	"github.com/mmynk/splitbot/internal/service"
)

const bucketName = "updates"

// Ensure Store implements service.Deduper
var _ service.Deduper = (*Store)(nil)

// Store is a bolt-backed set of claimed update ids. Each key maps to the
// time of the claim so old entries can be pruned.
type Store struct {
	db  *bolt.DB
	now func() time.Time
}

// Open opens (or creates) the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create dedupe directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open dedupe database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create dedupe bucket: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database file lock.
func (s *Store) Close() error {
	return s.db.Close()
}

// Claim records the update id. It reports false if the id was already
// claimed.
func (s *Store) Claim(updateID int) (bool, error) {
	claimed := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		key := itob(uint64(updateID))
		if b.Get(key) != nil {
			return nil
		}
		claimed = true
		return b.Put(key, itob(uint64(s.now().Unix())))
	})
	if err != nil {
		return false, fmt.Errorf("failed to claim update %d: %w", updateID, err)
	}
	return claimed, nil
}

// Release forgets the update id so a redelivery is processed again.
// Releasing an unknown id is a no-op.
func (s *Store) Release(updateID int) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete(itob(uint64(updateID)))
	})
	if err != nil {
		return fmt.Errorf("failed to release update %d: %w", updateID, err)
	}
	return nil
}

// Prune removes claims older than maxAge and returns how many were removed.
func (s *Store) Prune(maxAge time.Duration) (int, error) {
	cutoff := uint64(s.now().Add(-maxAge).Unix())
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			if len(v) != 8 || binary.BigEndian.Uint64(v) < cutoff {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to prune updates: %w", err)
	}
	return removed, nil
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
