package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	consulapi "github.com/hashicorp/consul/api"
	"go.uber.org/zap"
)

// Discovery resolves the base URL of the marketplace API.
type Discovery interface {
	Lookup(service string) (string, error)
	Close(ctx context.Context) error
}

type staticDiscovery struct {
	base string
}

// Static always answers base.
func Static(base string) Discovery {
	return &staticDiscovery{base: strings.TrimRight(base, "/")}
}

func (s *staticDiscovery) Lookup(string) (string, error) {
	if s.base == "" {
		return "", fmt.Errorf("no upstream base url configured")
	}
	return s.base, nil
}

func (s *staticDiscovery) Close(context.Context) error { return nil }

type cached struct {
	urls    []string
	expires time.Time
	next    int
}

type consulDiscovery struct {
	client *consulapi.Client
	ttl    time.Duration
	log    *zap.Logger

	mu    sync.Mutex
	cache map[string]*cached
}

// Consul resolves healthy instances from the agent at addr and round-robins
// over them. Answers are cached for ttl.
func Consul(addr string, ttl time.Duration, log *zap.Logger) (Discovery, error) {
	cfg := consulapi.DefaultConfig()
	cfg.Address = addr
	client, err := consulapi.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &consulDiscovery{client: client, ttl: ttl, log: log, cache: map[string]*cached{}}, nil
}

func (c *consulDiscovery) Lookup(service string) (string, error) {
	c.mu.Lock()
	if e, ok := c.cache[service]; ok && time.Now().Before(e.expires) && len(e.urls) > 0 {
		u := e.urls[e.next%len(e.urls)]
		e.next++
		c.mu.Unlock()
		return u, nil
	}
	c.mu.Unlock()

	entries, _, err := c.client.Health().Service(service, "", true, nil)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", fmt.Errorf("no healthy instances for %s", service)
	}
	urls := make([]string, 0, len(entries))
	for _, e := range entries {
		addr := e.Service.Address
		if addr == "" {
			addr = e.Node.Address
		}
		urls = append(urls, fmt.Sprintf("http://%s:%d", addr, e.Service.Port))
	}
	c.mu.Lock()
	c.cache[service] = &cached{urls: urls, expires: time.Now().Add(c.ttl), next: 1}
	c.mu.Unlock()
	c.log.Debug("resolved upstream", zap.String("service", service), zap.Int("instances", len(urls)))
	return urls[0], nil
}

func (c *consulDiscovery) Close(context.Context) error { return nil }

// New picks Consul when consulAddr is set, otherwise the static base URL.
func New(consulAddr, baseURL string, log *zap.Logger) (Discovery, error) {
	if consulAddr != "" {
		return Consul(consulAddr, 30*time.Second, log)
	}
	return Static(baseURL), nil
}
