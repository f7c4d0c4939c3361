// Package store keeps an append-only list of records in a bbolt database
// and serves it page by page to a scrolled list.
package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	bolt "go.etcd.io/bbolt"

	"github.com/pthm/hxcore/lib/vscroll"
)

// DefaultBucket is the bucket used when Open is given an empty name.
const DefaultBucket = "items"

// ErrNoMatchingRecord is returned when a sequence number has no record.
var ErrNoMatchingRecord = errors.New("store: no matching record")

// Store is a bbolt-backed record list. Records are keyed by a sequence
// number and stored as msgpack.
type Store struct {
	db     *bolt.DB
	bucket []byte
}

var _ vscroll.DataProvider = (*Store)(nil)

// Open opens (creating if needed) the database at path.
func Open(path, bucket string) (*Store, error) {
	if bucket == "" {
		bucket = DefaultBucket
	}
	db, err := bolt.Open(path, 0644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, bucket: []byte(bucket)}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Add appends a record and returns its sequence number.
func (s *Store) Add(v any) (int, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return 0, err
	}
	var seq uint64
	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		seq, err = b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(marshalSeq(seq), data)
	})
	return int(seq), err
}

// Record returns the record with the given sequence number.
func (s *Store) Record(seq int) (any, error) {
	var v any
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(s.bucket).Get(marshalSeq(uint64(seq)))
		if data == nil {
			return ErrNoMatchingRecord
		}
		return msgpack.Unmarshal(data, &v)
	})
	return v, err
}

// Delete removes the record with the given sequence number.
func (s *Store) Delete(seq int) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Delete(marshalSeq(uint64(seq)))
	})
}

// Len returns the number of records.
func (s *Store) Len() (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(s.bucket).Stats().KeyN
		return nil
	})
	return n, err
}

// Page returns the records of a 1-based page and the total record count.
// Pages past the end are empty.
func (s *Store) Page(page, perPage int) ([]any, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = vscroll.DefaultPerPage
	}
	skip := (page - 1) * perPage

	records := []any{}
	var total int
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		total = b.Stats().KeyN
		c := b.Cursor()
		i := 0
		for k, v := c.First(); k != nil && len(records) < perPage; k, v = c.Next() {
			if i < skip {
				i++
				continue
			}
			var rec any
			if err := msgpack.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("store: record %d: %w", unmarshalSeq(k), err)
			}
			records = append(records, rec)
		}
		return nil
	})
	return records, total, err
}

// Get serves a page to a ScrollRequest. It reads the "page" and "perPage"
// query parameters.
func (s *Store) Get(ctx context.Context, q vscroll.Query) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	records, total, err := s.Page(q.Int("page", 1), q.Int("perPage", vscroll.DefaultPerPage))
	if err != nil {
		return nil, err
	}
	return &vscroll.RemoteData{Data: records, Total: total}, nil
}

func marshalSeq(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

func unmarshalSeq(key []byte) uint64 {
	return binary.BigEndian.Uint64(key)
}
