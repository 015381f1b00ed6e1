// Package storage is the device-local persistence for the read-state map,
// one bucket per authenticated user so a profile switch never leaks marks
// across accounts.
package storage

import (
	"encoding/hex"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
	"golang.org/x/crypto/blake2b"

	"github.com/mzazimhenga22/movieflix-sub004/internal/model"
)

type BboltStore struct {
	db *bbolt.DB
}

func NewBboltStore(path string) (*BboltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt db: %w", err)
	}
	return &BboltStore{db: db}, nil
}

func (s *BboltStore) Close() error {
	return s.db.Close()
}

// ForUser returns the read-mark store namespaced to one user.
func (s *BboltStore) ForUser(userID string) *UserReadStore {
	return &UserReadStore{db: s.db, bucket: userBucket(userID)}
}

// userBucket derives the bucket name from a hash of the user id so raw
// account ids never appear in the on-disk file.
func userBucket(userID string) []byte {
	sum := blake2b.Sum256([]byte(userID))
	return []byte("readstate:" + hex.EncodeToString(sum[:16]))
}

// UserReadStore implements the local read-mark contract for one user.
type UserReadStore struct {
	db     *bbolt.DB
	bucket []byte
}

func (u *UserReadStore) Set(conversationID string, readAtMs int64) error {
	return u.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(u.bucket)
		if err != nil {
			return fmt.Errorf("failed to create read-state bucket: %w", err)
		}
		mark := &DBReadMark{
			ConversationID: conversationID,
			ReadAtMs:       readAtMs,
		}
		data, err := mark.MarshalBinary()
		if err != nil {
			return fmt.Errorf("failed to marshal read mark: %w", err)
		}
		return b.Put(mark.Key(), data)
	})
}

func (u *UserReadStore) Get(conversationID string) (int64, error) {
	var ms int64
	err := u.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(u.bucket)
		if b == nil {
			return model.ErrNotFound
		}
		data := b.Get([]byte(conversationID))
		if data == nil {
			return model.ErrNotFound
		}
		var mark DBReadMark
		if err := mark.UnmarshalBinary(data); err != nil {
			return err
		}
		ms = mark.ReadAtMs
		return nil
	})
	return ms, err
}

// All returns every persisted mark for the user.
func (u *UserReadStore) All() (map[string]int64, error) {
	marks := make(map[string]int64)
	err := u.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(u.bucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var mark DBReadMark
			if err := mark.UnmarshalBinary(v); err != nil {
				return err
			}
			marks[mark.ConversationID] = mark.ReadAtMs
			return nil
		})
	})
	return marks, err
}
