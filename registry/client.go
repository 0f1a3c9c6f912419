package registry

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"gopkg.in/yaml.v3"

	"github.com/pulsehr/engine/rule"
)

// Client implements Store against an etcd cluster.
//
// Packs are stored as YAML documents under /<namespace>/packs/<name>.
// Documents are validated on PutPack by compiling their condition
// trees, so a watcher never receives a pack whose expressions do not
// lower; graph-dependent validation (action references, relation
// labels) still happens at load time on the consumer side, against the
// consumer's graph.
//
// Thread-safety: all methods are safe for concurrent use.
type Client struct {
	client    *clientv3.Client
	namespace string

	mu         sync.RWMutex
	wg         sync.WaitGroup
	closed     bool
	closedChan chan struct{}
}

var _ Store = (*Client)(nil)

// NewClient connects to the etcd cluster and verifies connectivity.
// The client must be closed with Close when no longer needed.
func NewClient(cfg Config) (*Client, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("registry endpoints cannot be empty")
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "pulsehr"
	}

	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}

	clientCfg := clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: dialTimeout,
	}

	if cfg.TLS != nil && cfg.TLS.Enabled {
		tlsInfo, err := newTLSInfo(cfg.TLS)
		if err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
		tlsConfig, err := tlsInfo.ClientConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
		clientCfg.TLS = tlsConfig
	}

	cli, err := clientv3.New(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}

	// Quick connectivity check before handing the client out.
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if _, err := cli.Get(ctx, "health-check"); err != nil && err != context.DeadlineExceeded {
		cli.Close()
		return nil, fmt.Errorf("etcd health check failed: %w", err)
	}

	return &Client{
		client:     cli,
		namespace:  namespace,
		closedChan: make(chan struct{}),
	}, nil
}

// PutPack validates and stores a pack under its name, replacing any
// previous version.
func (c *Client) PutPack(ctx context.Context, pack *rule.Pack) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return fmt.Errorf("registry client is closed")
	}
	if pack == nil || pack.Name == "" {
		return fmt.Errorf("%w: pack name is required", rule.ErrRuleInvalid)
	}
	// Compiling lowers every condition tree, including CEL
	// expressions, so malformed packs are rejected at publish time.
	if _, err := pack.Compile(); err != nil {
		return fmt.Errorf("validate pack %s: %w", pack.Name, err)
	}

	data, err := yaml.Marshal(pack)
	if err != nil {
		return fmt.Errorf("marshal pack %s: %w", pack.Name, err)
	}

	if _, err := c.client.Put(ctx, c.packKey(pack.Name), string(data)); err != nil {
		return fmt.Errorf("store pack %s: %w", pack.Name, err)
	}
	return nil
}

// GetPack fetches and parses a pack by name.
func (c *Client) GetPack(ctx context.Context, name string) (*rule.Pack, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, fmt.Errorf("registry client is closed")
	}

	resp, err := c.client.Get(ctx, c.packKey(name))
	if err != nil {
		return nil, fmt.Errorf("fetch pack %s: %w", name, err)
	}
	if len(resp.Kvs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrPackNotFound, name)
	}
	return rule.ParsePack(bytes.NewReader(resp.Kvs[0].Value))
}

// ListPacks returns the names of all stored packs in key order.
func (c *Client) ListPacks(ctx context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, fmt.Errorf("registry client is closed")
	}

	prefix := c.packPrefix()
	resp, err := c.client.Get(ctx, prefix,
		clientv3.WithPrefix(), clientv3.WithKeysOnly(), clientv3.WithSort(clientv3.SortByKey, clientv3.SortAscend))
	if err != nil {
		return nil, fmt.Errorf("list packs: %w", err)
	}

	names := make([]string, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		names = append(names, strings.TrimPrefix(string(kv.Key), prefix))
	}
	return names, nil
}

// DeletePack removes a pack. Deleting a missing pack is a no-op.
func (c *Client) DeletePack(ctx context.Context, name string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return fmt.Errorf("registry client is closed")
	}

	if _, err := c.client.Delete(ctx, c.packKey(name)); err != nil {
		return fmt.Errorf("delete pack %s: %w", name, err)
	}
	return nil
}

// WatchPack streams updates for one pack until the context ends or the
// client is closed. If the pack exists, its current state is sent
// first. Documents that fail to parse are skipped rather than
// delivered, so a consumer reloading rules never sees a broken pack.
func (c *Client) WatchPack(ctx context.Context, name string) (<-chan PackUpdate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, fmt.Errorf("registry client is closed")
	}

	ch := make(chan PackUpdate, 1)

	// Send the current state before subscribing to changes.
	resp, err := c.client.Get(ctx, c.packKey(name))
	if err != nil {
		return nil, fmt.Errorf("fetch pack %s: %w", name, err)
	}
	if len(resp.Kvs) > 0 {
		if pack, perr := rule.ParsePack(bytes.NewReader(resp.Kvs[0].Value)); perr == nil {
			ch <- PackUpdate{Name: name, Pack: pack}
		}
	}

	watchChan := c.client.Watch(ctx, c.packKey(name))

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(ch)

		for {
			select {
			case <-ctx.Done():
				return
			case <-c.closedChan:
				return
			case watchResp, ok := <-watchChan:
				if !ok || watchResp.Err() != nil {
					return
				}
				for _, ev := range watchResp.Events {
					update, ok := c.packEvent(name, ev)
					if !ok {
						continue
					}
					select {
					case ch <- update:
					case <-ctx.Done():
						return
					case <-c.closedChan:
						return
					}
				}
			}
		}
	}()

	return ch, nil
}

// Close releases all resources and stops watch goroutines. After Close
// all other methods return errors.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.closedChan)
	c.mu.Unlock()

	c.wg.Wait()
	return c.client.Close()
}

// packEvent converts one etcd event into a PackUpdate. Unparseable
// documents report ok=false.
func (c *Client) packEvent(name string, ev *clientv3.Event) (PackUpdate, bool) {
	if ev.Type == clientv3.EventTypeDelete {
		return PackUpdate{Name: name, Deleted: true}, true
	}
	pack, err := rule.ParsePack(bytes.NewReader(ev.Kv.Value))
	if err != nil {
		return PackUpdate{}, false
	}
	return PackUpdate{Name: name, Pack: pack}, true
}

// packKey constructs the etcd key for a pack.
//
// Format: /namespace/packs/name
func (c *Client) packKey(name string) string {
	return c.packPrefix() + name
}

func (c *Client) packPrefix() string {
	return fmt.Sprintf("/%s/packs/", c.namespace)
}
