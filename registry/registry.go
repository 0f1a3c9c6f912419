// Package registry distributes rule packs through etcd.
//
// Engines embedded in different services need to agree on the rules
// they evaluate. The registry stores rule packs as YAML documents under
// a shared key namespace: publishers put packs, engines fetch them
// before a run and can watch a pack to reload between runs. The graph
// and the compiled rule set stay in-memory per process; the registry
// only moves documents.
//
// Key layout: <namespace>/packs/<pack-name>
package registry

import (
	"context"
	"errors"
	"time"

	"github.com/pulsehr/engine/rule"
)

// ErrPackNotFound is returned when the requested pack does not exist
// under the registry namespace.
var ErrPackNotFound = errors.New("registry: rule pack not found")

// PackUpdate is one watch event for a rule pack.
type PackUpdate struct {
	// Name is the pack name the event refers to.
	Name string

	// Pack is the parsed document; nil when Deleted.
	Pack *rule.Pack

	// Deleted reports that the pack was removed from the registry.
	Deleted bool
}

// Store is the pack access interface; Client implements it against
// etcd. Run orchestration depends on this rather than on Client so it
// stays testable without a cluster.
type Store interface {
	// PutPack stores a pack under its name, replacing any previous
	// version. The pack is validated before it is written.
	PutPack(ctx context.Context, pack *rule.Pack) error

	// GetPack fetches and parses a pack by name.
	GetPack(ctx context.Context, name string) (*rule.Pack, error)

	// ListPacks returns the names of all stored packs in key order.
	ListPacks(ctx context.Context) ([]string, error)

	// DeletePack removes a pack. Deleting a missing pack is a no-op.
	DeletePack(ctx context.Context, name string) error

	// WatchPack streams updates for one pack until the context ends.
	// The current state is sent first if the pack exists.
	WatchPack(ctx context.Context, name string) (<-chan PackUpdate, error)

	// Close releases the underlying connection.
	Close() error
}

// Config holds registry connection configuration.
type Config struct {
	// Endpoints is the list of etcd endpoints.
	// Format: ["host1:2379", "host2:2379"]
	Endpoints []string `json:"endpoints"`

	// Namespace is the etcd key prefix for all pack entries.
	// Packs are stored under <namespace>/packs/<pack-name>.
	// Default: "pulsehr"
	Namespace string `json:"namespace"`

	// DialTimeout bounds connection establishment.
	// Default: 5 seconds
	DialTimeout time.Duration `json:"dial_timeout"`

	// TLS holds TLS configuration for secure etcd communication.
	// If nil, TLS is disabled.
	TLS *TLSConfig `json:"tls"`
}

// TLSConfig holds TLS certificate configuration for secure registry
// communication. When enabled, all traffic to etcd uses mutual TLS.
type TLSConfig struct {
	// Enabled determines whether TLS is active.
	// If false, all other fields are ignored.
	Enabled bool `json:"enabled"`

	// CertFile is the path to the client certificate file (PEM format).
	CertFile string `json:"cert_file"`

	// KeyFile is the path to the client private key file (PEM format).
	KeyFile string `json:"key_file"`

	// CAFile is the path to the certificate authority file (PEM format)
	// used to verify the etcd server's certificate.
	CAFile string `json:"ca_file"`
}
