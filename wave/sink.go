// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package wave

import (
	"encoding/binary"
	"sort"
	"sync"
	"time"

	"github.com/db47h/lsim"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

// MemorySink keeps samples in memory.
//
type MemorySink struct {
	mu sync.Mutex
	m  map[string][]Sample
}

// NewMemorySink returns an empty MemorySink.
//
func NewMemorySink() *MemorySink {
	return &MemorySink{m: make(map[string][]Sample)}
}

// Write implements Sink.
//
func (s *MemorySink) Write(samples []Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, x := range samples {
		s.m[x.Key] = append(s.m[x.Key], x)
	}
	return nil
}

// Keys returns the sorted keys of all recorded items.
//
func (s *MemorySink) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ks := make([]string, 0, len(s.m))
	for k := range s.m {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	return ks
}

// Samples returns the samples recorded for key in tick order.
//
func (s *MemorySink) Samples(key string) []Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Sample(nil), s.m[key]...)
}

// Close implements Sink. It is a no-op.
//
func (s *MemorySink) Close() error { return nil }

const openTimeout = time.Second

// BoltSink stores samples in a bbolt database, with one bucket per item key.
// Within a bucket, samples are keyed by tick in big endian order and values
// are stored in their binary string form.
//
type BoltSink struct {
	db *bolt.DB
}

// OpenBolt opens or creates the database at path.
//
func OpenBolt(path string) (*BoltSink, error) {
	db, err := bolt.Open(path, 0644, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, errors.Wrap(err, "open trace database")
	}
	return &BoltSink{db: db}, nil
}

func marshalTick(t uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, t)
	return b
}

func unmarshalTick(b []byte) uint64 { return binary.BigEndian.Uint64(b) }

// Write implements Sink. All samples are written in a single transaction.
//
func (s *BoltSink) Write(samples []Sample) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, x := range samples {
			b, err := tx.CreateBucketIfNotExists([]byte(x.Key))
			if err != nil {
				return err
			}
			if err = b.Put(marshalTick(x.Tick), []byte(x.Value.String())); err != nil {
				return err
			}
		}
		return nil
	})
}

// Keys returns the sorted keys of all recorded items.
//
func (s *BoltSink) Keys() ([]string, error) {
	var ks []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			ks = append(ks, string(name))
			return nil
		})
	})
	return ks, err
}

// Samples returns the samples recorded for key with from <= tick < to, in tick
// order.
//
func (s *BoltSink) Samples(key string, from, to uint64) ([]Sample, error) {
	var ss []Sample
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(key))
		if b == nil {
			return errors.Wrap(lsim.ErrNotFound, key)
		}
		c := b.Cursor()
		for k, v := c.Seek(marshalTick(from)); k != nil; k, v = c.Next() {
			t := unmarshalTick(k)
			if t >= to {
				break
			}
			val, err := lsim.ParseValue(string(v))
			if err != nil {
				return errors.Wrapf(err, "%s at tick %d", key, t)
			}
			ss = append(ss, Sample{Key: key, Tick: t, Value: val})
		}
		return nil
	})
	return ss, err
}

// Close implements Sink.
//
func (s *BoltSink) Close() error { return s.db.Close() }
