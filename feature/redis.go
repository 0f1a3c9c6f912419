package feature

import (
	"context"
	"crypto/tls"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures the Redis connection for RedisStore.
type RedisOptions struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379").
	URL string

	// Namespace prefixes every key the store touches. Defaults to
	// "pulsehr".
	Namespace string

	// TLS configuration for secure connections.
	TLS *tls.Config

	// ConnectTimeout is the maximum time to wait for connection
	// establishment.
	ConnectTimeout time.Duration

	// ReadTimeout is the maximum time to wait for read operations.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait for write operations.
	WriteTimeout time.Duration
}

// RedisStore is a Store backed by Redis. Each subject's vector lives in
// a hash at <namespace>:features:<subject>; the set of known subjects
// lives at <namespace>:subjects. Numeric values are stored in their
// decimal form and recovered by Parse, so a round trip preserves kind.
//
// The write side (SetVector) exists for ingestion collaborators; the
// engine itself only reads.
type RedisStore struct {
	client    *redis.Client
	namespace string
}

// NewRedisStore creates a Redis-backed feature store and verifies
// connectivity with a ping.
func NewRedisStore(opts RedisOptions) (*RedisStore, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.Namespace == "" {
		opts.Namespace = "pulsehr"
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 30 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 5 * time.Second
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	redisOpts.TLSConfig = opts.TLS
	redisOpts.DialTimeout = opts.ConnectTimeout
	redisOpts.ReadTimeout = opts.ReadTimeout
	redisOpts.WriteTimeout = opts.WriteTimeout

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client, namespace: opts.Namespace}, nil
}

func (s *RedisStore) vectorKey(subjectID string) string {
	return fmt.Sprintf("%s:features:%s", s.namespace, subjectID)
}

func (s *RedisStore) subjectsKey() string {
	return fmt.Sprintf("%s:subjects", s.namespace)
}

// SetVector writes a subject's feature vector and registers the subject.
func (s *RedisStore) SetVector(ctx context.Context, subjectID string, vec Vector) error {
	fields := make(map[string]string, len(vec))
	for name, val := range vec {
		fields[name] = val.String()
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.vectorKey(subjectID))
	if len(fields) > 0 {
		pipe.HSet(ctx, s.vectorKey(subjectID), fields)
	}
	pipe.SAdd(ctx, s.subjectsKey(), subjectID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: set vector for %s: %v", ErrStorageFailed, subjectID, err)
	}
	return nil
}

// Vector reads a subject's feature vector.
func (s *RedisStore) Vector(ctx context.Context, subjectID string) (Vector, error) {
	known, err := s.client.SIsMember(ctx, s.subjectsKey(), subjectID).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: lookup subject %s: %v", ErrStorageFailed, subjectID, err)
	}
	if !known {
		return nil, fmt.Errorf("%w: %s", ErrSubjectNotFound, subjectID)
	}
	fields, err := s.client.HGetAll(ctx, s.vectorKey(subjectID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: read vector for %s: %v", ErrStorageFailed, subjectID, err)
	}
	vec := make(Vector, len(fields))
	for name, raw := range fields {
		vec[name] = Parse(raw)
	}
	return vec, nil
}

// Subjects lists registered subject IDs in sorted order.
func (s *RedisStore) Subjects(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, s.subjectsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: list subjects: %v", ErrStorageFailed, err)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
