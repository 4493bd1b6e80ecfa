package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/kaleido-biosciences/cabinet-client/internal/constants"
)

// kvBucket is the slice of a JetStream key-value bucket the store needs.
type kvBucket interface {
	get(key string) ([]byte, error)
	put(key string, value []byte) error
	delete(key string) error
}

type natsBucket struct {
	kv nats.KeyValue
}

func (b natsBucket) get(key string) ([]byte, error) {
	entry, err := b.kv.Get(key)
	if err != nil {
		return nil, err
	}

	return entry.Value(), nil
}

func (b natsBucket) put(key string, value []byte) error {
	_, err := b.kv.Put(key, value)

	return err
}

func (b natsBucket) delete(key string) error {
	return b.kv.Delete(key)
}

// NATSTokenStore keeps tokens in a NATS JetStream key-value bucket, one
// entry per cache key under a common prefix.
type NATSTokenStore struct {
	bucket kvBucket
	prefix string
	conn   *nats.Conn
}

// NewNATSTokenStore binds to bucket on js, creating the bucket when it does
// not exist yet.
func NewNATSTokenStore(js nats.JetStreamContext, bucket, prefix string) (*NATSTokenStore, error) {
	if bucket == "" {
		bucket = constants.DefaultTokenBucket
	}

	if prefix == "" {
		prefix = constants.DefaultTokenKeyPrefix
	}

	kv, err := js.KeyValue(bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{
			Bucket:      bucket,
			Description: "Cabinet bearer tokens",
			History:     1,
		})
	}

	if err != nil {
		return nil, fmt.Errorf("opening token bucket %q: %w", bucket, err)
	}

	return &NATSTokenStore{bucket: natsBucket{kv: kv}, prefix: prefix}, nil
}

// ConnectNATSTokenStore dials url and binds to bucket. Close releases the
// connection.
func ConnectNATSTokenStore(url, bucket, prefix string) (*NATSTokenStore, error) {
	conn, err := nats.Connect(url, nats.Name("cabinet-client"))
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()

		return nil, fmt.Errorf("opening JetStream: %w", err)
	}

	store, err := NewNATSTokenStore(js, bucket, prefix)
	if err != nil {
		conn.Close()

		return nil, err
	}

	store.conn = conn

	return store, nil
}

// Load implements SharedCache.
func (s *NATSTokenStore) Load(_ context.Context, key string) (*Token, error) {
	entry := s.entryKey(key)

	data, err := s.bucket.get(entry)
	if errors.Is(err, nats.ErrKeyNotFound) {
		return nil, nil //nolint:nilnil // absent token is not an error
	}

	if err != nil {
		return nil, fmt.Errorf("reading token %q: %w", entry, err)
	}

	var token Token

	err = json.Unmarshal(data, &token)
	if err != nil {
		return nil, fmt.Errorf("decoding token %q: %w", entry, err)
	}

	return &token, nil
}

// Save implements SharedCache.
func (s *NATSTokenStore) Save(_ context.Context, key string, token *Token) error {
	entry := s.entryKey(key)

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}

	err = s.bucket.put(entry, data)
	if err != nil {
		return fmt.Errorf("writing token %q: %w", entry, err)
	}

	return nil
}

// Delete implements SharedCache. Deleting an absent token succeeds.
func (s *NATSTokenStore) Delete(_ context.Context, key string) error {
	entry := s.entryKey(key)

	err := s.bucket.delete(entry)
	if err != nil && !errors.Is(err, nats.ErrKeyNotFound) {
		return fmt.Errorf("deleting token %q: %w", entry, err)
	}

	return nil
}

func (s *NATSTokenStore) entryKey(key string) string {
	return s.prefix + "." + key
}

// Close closes the connection opened by ConnectNATSTokenStore.
func (s *NATSTokenStore) Close() {
	if s.conn != nil {
		s.conn.Close()
	}
}
