package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"barterhub/internal/domain/service"
	"barterhub/internal/infrastructure/metrics"
	apperrors "barterhub/pkg/errors"
	"barterhub/pkg/logger"
)

// Rules drive backend selection. They are evaluated in order: region, MIME
// category, size. An empty backend name means the rule does not apply.
type Rules struct {
	// RegionBackends maps an upper-case region code (e.g. "LAGOS") to a
	// backend name.
	RegionBackends map[string]string
	VideoBackend   string
	LargeFileBytes int64
	LargeBackend   string
}

// Selection describes the object a caller is about to store.
type Selection struct {
	MimeType string
	Region   string
	Size     int64
}

type HealthStatus struct {
	Backend   string        `json:"backend"`
	Healthy   bool          `json:"healthy"`
	Latency   time.Duration `json:"-"`
	LatencyMS int64         `json:"latency_ms"`
	Error     string        `json:"error,omitempty"`
	CheckedAt time.Time     `json:"checked_at"`
}

type Factory struct {
	mu          sync.RWMutex
	backends    map[string]service.StorageBackend
	order       []string
	defaultName string
	rules       Rules
	health      map[string]HealthStatus
}

func NewFactory(defaultName string, rules Rules) *Factory {
	return &Factory{
		backends:    make(map[string]service.StorageBackend),
		defaultName: defaultName,
		rules:       rules,
		health:      make(map[string]HealthStatus),
	}
}

// Register adds a backend. Every call through the factory is counted in the
// storage metrics.
func (f *Factory) Register(b service.StorageBackend) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.backends[b.Name()]; !ok {
		f.order = append(f.order, b.Name())
	}
	f.backends[b.Name()] = &instrumented{StorageBackend: b}
}

// Get returns the named backend regardless of health.
func (f *Factory) Get(name string) (service.StorageBackend, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	b, ok := f.backends[name]
	if !ok {
		return nil, apperrors.NotFound("Storage backend", nil)
	}
	return b, nil
}

func (f *Factory) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]string(nil), f.order...)
}

// Preferred applies the rules and returns the backend name they pick, or
// the default.
func (f *Factory) Preferred(sel Selection) string {
	if name := f.rules.RegionBackends[strings.ToUpper(strings.TrimSpace(sel.Region))]; name != "" && sel.Region != "" {
		return name
	}
	if f.rules.VideoBackend != "" && strings.HasPrefix(strings.ToLower(sel.MimeType), "video/") {
		return f.rules.VideoBackend
	}
	if f.rules.LargeBackend != "" && f.rules.LargeFileBytes > 0 && sel.Size >= f.rules.LargeFileBytes {
		return f.rules.LargeBackend
	}
	return f.defaultName
}

// Chain is the fallback order for sel: preferred, default, then every other
// registered backend.
func (f *Factory) Chain(sel Selection) []string {
	preferred := f.Preferred(sel)
	chain := []string{preferred}
	if f.defaultName != preferred {
		chain = append(chain, f.defaultName)
	}
	for _, name := range f.Names() {
		if name != preferred && name != f.defaultName {
			chain = append(chain, name)
		}
	}
	return chain
}

// Select returns the first registered backend in the chain that is not
// known to be unhealthy.
func (f *Factory) Select(sel Selection) (service.StorageBackend, error) {
	chain := f.Chain(sel)

	f.mu.RLock()
	defer f.mu.RUnlock()
	for i, name := range chain {
		b, ok := f.backends[name]
		if !ok {
			continue
		}
		if h, checked := f.health[name]; checked && !h.Healthy {
			continue
		}
		if i > 0 {
			logger.Warn("Storage: %s unavailable, falling back to %s", chain[0], name)
		}
		return b, nil
	}
	return nil, apperrors.New(apperrors.CodeInternal, "No storage backend available", http.StatusServiceUnavailable, nil)
}

// HealthCheck probes every backend with a small object and records the
// result for Select.
func (f *Factory) HealthCheck(ctx context.Context) []HealthStatus {
	names := f.Names()
	results := make([]HealthStatus, len(names))

	var wg sync.WaitGroup
	for i, name := range names {
		b, err := f.Get(name)
		if err != nil {
			continue
		}
		wg.Add(1)
		go func(i int, b service.StorageBackend) {
			defer wg.Done()
			results[i] = probe(ctx, b)
		}(i, b)
	}
	wg.Wait()

	f.mu.Lock()
	for _, r := range results {
		if r.Backend != "" {
			f.health[r.Backend] = r
		}
	}
	f.mu.Unlock()
	return results
}

// StartHealthMonitor reruns HealthCheck every interval until ctx is done,
// so a recovered backend rejoins selection without an admin probe. A
// non-positive interval disables it.
func (f *Factory) StartHealthMonitor(ctx context.Context, interval, timeout time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, timeout)
				for _, status := range f.HealthCheck(probeCtx) {
					if !status.Healthy {
						logger.Warn("Storage backend %s unhealthy: %s", status.Backend, status.Error)
					}
				}
				cancel()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Health returns the last recorded status per backend.
func (f *Factory) Health() map[string]HealthStatus {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[string]HealthStatus, len(f.health))
	for k, v := range f.health {
		out[k] = v
	}
	return out
}

func probe(ctx context.Context, b service.StorageBackend) HealthStatus {
	status := HealthStatus{Backend: b.Name()}
	key := ".healthcheck/" + uuid.NewString()
	start := time.Now()

	err := func() error {
		if _, err := b.Upload(ctx, key, bytes.NewReader([]byte("ok")), service.UploadOptions{ContentType: "text/plain"}); err != nil {
			return fmt.Errorf("upload: %w", err)
		}
		exists, err := b.Exists(ctx, key)
		if err != nil {
			return fmt.Errorf("exists: %w", err)
		}
		if !exists {
			return fmt.Errorf("exists: probe object missing after upload")
		}
		if err := b.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete: %w", err)
		}
		return nil
	}()

	status.Latency = time.Since(start)
	status.LatencyMS = status.Latency.Milliseconds()
	status.CheckedAt = time.Now().UTC()
	status.Healthy = err == nil
	if err != nil {
		status.Error = err.Error()
		logger.Warn("Storage health check failed for %s: %v", b.Name(), err)
	}
	return status
}

type instrumented struct {
	service.StorageBackend
}

func (i *instrumented) Upload(ctx context.Context, key string, r io.Reader, opts service.UploadOptions) (*service.ObjectInfo, error) {
	info, err := i.StorageBackend.Upload(ctx, key, r, opts)
	metrics.ObserveStorage(i.Name(), "upload", err)
	return info, err
}

func (i *instrumented) Download(ctx context.Context, key string) (io.ReadCloser, *service.ObjectInfo, error) {
	rc, info, err := i.StorageBackend.Download(ctx, key)
	metrics.ObserveStorage(i.Name(), "download", err)
	return rc, info, err
}

func (i *instrumented) Delete(ctx context.Context, key string) error {
	err := i.StorageBackend.Delete(ctx, key)
	metrics.ObserveStorage(i.Name(), "delete", err)
	return err
}

func (i *instrumented) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := i.StorageBackend.Exists(ctx, key)
	metrics.ObserveStorage(i.Name(), "exists", err)
	return ok, err
}

func (i *instrumented) Copy(ctx context.Context, srcKey, dstKey string) error {
	err := i.StorageBackend.Copy(ctx, srcKey, dstKey)
	metrics.ObserveStorage(i.Name(), "copy", err)
	return err
}

func (i *instrumented) Move(ctx context.Context, srcKey, dstKey string) error {
	err := i.StorageBackend.Move(ctx, srcKey, dstKey)
	metrics.ObserveStorage(i.Name(), "move", err)
	return err
}

func (i *instrumented) Metadata(ctx context.Context, key string) (*service.ObjectInfo, error) {
	info, err := i.StorageBackend.Metadata(ctx, key)
	metrics.ObserveStorage(i.Name(), "metadata", err)
	return info, err
}
