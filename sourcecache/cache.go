// Package sourcecache fetches, version-checks, and locally persists
// ontology graphs.
//
// Each ontology source gets its own partition in the backing store holding
// the serialized graph artifact and a small YAML metadata record (retrieval
// timestamp, version token, content hash, source URL). A cached copy within
// the configured expiration window is served without any network access; a
// failed refresh falls back to the stale copy when one exists and is fatal
// for the source only when none does.
package sourcecache

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rejuve-bio/biograph/errors"
	"github.com/rejuve-bio/biograph/metric"
	"github.com/rejuve-bio/biograph/ontology"
	"github.com/rejuve-bio/biograph/pkg/retry"
	"github.com/rejuve-bio/biograph/storage"
)

// VersionUnknown is recorded when no version token could be extracted from
// a freshly fetched artifact.
const VersionUnknown = "unknown"

// Store keys within one source partition.
const (
	artifactKey = "graph.nt.gz"
	metadataKey = "meta.yaml"
)

// Source identifies one remote ontology artifact.
type Source struct {
	ID  string
	URL string
}

// Metadata is the persisted per-source cache record.
type Metadata struct {
	SourceURL   string    `yaml:"source_url"`
	Version     string    `yaml:"version"`
	SHA256      string    `yaml:"sha256"`
	RetrievedAt time.Time `yaml:"retrieved_at"`
}

// Config controls cache validity and fetch behavior.
type Config struct {
	// MaxAge is the expiration window beyond which a cached copy is
	// always considered stale.
	MaxAge time.Duration
	// FetchTimeout bounds one remote fetch attempt.
	FetchTimeout time.Duration
	// ProbeBytes is the size of the partial byte-range fetch used to
	// extract a version token from the head of the remote artifact.
	ProbeBytes int64
	// Retry configures fetch retries.
	Retry retry.Config
}

// DefaultConfig returns sensible defaults for ontology sources that publish
// dated releases.
func DefaultConfig() Config {
	return Config{
		MaxAge:       7 * 24 * time.Hour,
		FetchTimeout: 10 * time.Minute,
		ProbeBytes:   16 * 1024,
		Retry:        retry.DefaultConfig(),
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MaxAge <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "sourcecache", "Validate",
			fmt.Sprintf("max_age must be positive, got %v", c.MaxAge))
	}
	if c.FetchTimeout <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "sourcecache", "Validate",
			fmt.Sprintf("fetch_timeout must be positive, got %v", c.FetchTimeout))
	}
	return nil
}

// Cache resolves ontology sources to loaded graphs, persisting artifacts in
// a storage.Store partitioned by source identifier.
type Cache struct {
	store   storage.Store
	client  *http.Client
	cfg     Config
	log     *slog.Logger
	metrics *metric.Metrics
	now     func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithHTTPClient replaces the HTTP client used for fetches.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Cache) { c.client = client }
}

// WithMetrics attaches pipeline metrics to the cache.
func WithMetrics(m *metric.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// withClock replaces the time source, for tests.
func withClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a Cache over the given store. The logger may be nil.
func New(store storage.Store, cfg Config, log *slog.Logger, opts ...Option) (*Cache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	c := &Cache{
		store:  store,
		client: &http.Client{Timeout: cfg.FetchTimeout},
		cfg:    cfg,
		log:    log.With("component", "sourcecache"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Resolve returns the loaded graph and version token for src, serving the
// local artifact when cache metadata shows it is still valid and fetching
// the remote artifact otherwise. A failed fetch falls back to a stale
// cached copy when one exists.
func (c *Cache) Resolve(ctx context.Context, src Source) (*ontology.Graph, string, error) {
	log := c.log.With("source", src.ID)

	meta, ok := c.readMetadata(ctx, src, log)
	if ok && c.valid(meta) {
		g, err := c.loadLocal(ctx, src)
		if err == nil {
			log.Info("serving cached ontology", "version", meta.Version, "age", c.now().Sub(meta.RetrievedAt).Round(time.Second))
			c.observeResolve(src.ID, metric.CacheHit)
			return g, meta.Version, nil
		}
		log.Warn("cached artifact unreadable, refetching", "error", err)
	}

	data, err := c.fetch(ctx, src)
	if err != nil {
		// Serve the stale copy when one exists; fetch failure is fatal
		// for the source only when there is nothing to fall back to.
		if g, staleErr := c.loadLocal(ctx, src); staleErr == nil {
			version := VersionUnknown
			if ok {
				version = meta.Version
			}
			log.Warn("fetch failed, serving stale cached copy", "error", err, "version", version)
			c.observeResolve(src.ID, metric.CacheStale)
			return g, version, nil
		}
		return nil, "", errors.WrapFatal(errors.ErrNoCachedCopy, "sourcecache", "Resolve",
			fmt.Sprintf("source %s: fetch failed with no cached fallback: %v", src.ID, err))
	}

	g, err := decodeArtifact(data)
	if err != nil {
		// An unparsable download is recovered like a failed fetch: the
		// stale local copy is better than aborting the source.
		if stale, staleErr := c.loadLocal(ctx, src); staleErr == nil {
			version := VersionUnknown
			if ok {
				version = meta.Version
			}
			log.Warn("fetched artifact unparsable, serving stale cached copy", "error", err, "version", version)
			c.observeResolve(src.ID, metric.CacheStale)
			return stale, version, nil
		}
		return nil, "", errors.Wrap(err, "sourcecache", "Resolve", "parse fetched artifact")
	}

	version := FromGraph(g)
	if version == "" {
		version = c.probeVersion(ctx, src, log)
	}
	if version == "" {
		version = VersionUnknown
	}

	c.persist(ctx, src, data, version, log)
	log.Info("fetched fresh ontology", "version", version, "statements", g.Len())
	c.observeResolve(src.ID, metric.CacheMiss)
	return g, version, nil
}

// valid applies the cache validity invariant: a copy older than the
// expiration window is never valid; within the window the recorded version
// token is trusted as unchanged, so no network access is needed.
func (c *Cache) valid(meta Metadata) bool {
	age := c.now().Sub(meta.RetrievedAt)
	return age >= 0 && age <= c.cfg.MaxAge
}

func (c *Cache) readMetadata(ctx context.Context, src Source, log *slog.Logger) (Metadata, bool) {
	data, err := c.store.Get(ctx, src.ID+"/"+metadataKey)
	if err != nil {
		return Metadata{}, false
	}
	var meta Metadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		// Corrupt metadata is a cache miss, not a failure.
		log.Warn("cache metadata corrupted, treating as miss",
			"error", errors.WrapInvalid(err, "sourcecache", "readMetadata", "unmarshal metadata"))
		return Metadata{}, false
	}
	if meta.RetrievedAt.IsZero() {
		log.Warn("cache metadata missing retrieval timestamp, treating as miss")
		return Metadata{}, false
	}
	return meta, true
}

func (c *Cache) loadLocal(ctx context.Context, src Source) (*ontology.Graph, error) {
	data, err := c.store.Get(ctx, src.ID+"/"+artifactKey)
	if err != nil {
		return nil, err
	}
	return decodeArtifact(data)
}

// decodeArtifact parses a possibly gzip-compressed N-Triples artifact.
func decodeArtifact(data []byte) (*ontology.Graph, error) {
	var r io.Reader = bytes.NewReader(data)
	if len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	}
	return ontology.Decode(r)
}

func (c *Cache) fetch(ctx context.Context, src Source) ([]byte, error) {
	start := c.now()
	data, err := retry.DoWithResult(ctx, c.cfg.Retry, func() ([]byte, error) {
		reqCtx, cancel := context.WithTimeout(ctx, c.cfg.FetchTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, src.URL, nil)
		if err != nil {
			return nil, retry.NonRetryable(err)
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("unexpected status %s", resp.Status)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return nil, retry.NonRetryable(err)
			}
			return nil, err
		}
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "sourcecache", "fetch", "download "+src.URL)
	}
	if c.metrics != nil {
		c.metrics.FetchDuration.WithLabelValues(src.ID).Observe(c.now().Sub(start).Seconds())
	}
	return data, nil
}

// persist writes the artifact and its metadata record. Persistence failures
// are logged, not fatal: the graph is already in memory for this run.
func (c *Cache) persist(ctx context.Context, src Source, data []byte, version string, log *slog.Logger) {
	artifact := data
	if !(len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b) {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		if _, err := gz.Write(data); err == nil && gz.Close() == nil {
			artifact = buf.Bytes()
		} else {
			log.Warn("artifact compression failed, storing uncompressed")
		}
	}

	if err := c.store.Put(ctx, src.ID+"/"+artifactKey, artifact); err != nil {
		log.Warn("failed to persist artifact", "error", err)
		return
	}

	sum := sha256.Sum256(artifact)
	meta := Metadata{
		SourceURL:   src.URL,
		Version:     version,
		SHA256:      hex.EncodeToString(sum[:]),
		RetrievedAt: c.now().UTC(),
	}
	out, err := yaml.Marshal(meta)
	if err != nil {
		log.Warn("failed to marshal cache metadata", "error", err)
		return
	}
	if err := c.store.Put(ctx, src.ID+"/"+metadataKey, out); err != nil {
		log.Warn("failed to persist cache metadata", "error", err)
	}
}

func (c *Cache) observeResolve(sourceID, outcome string) {
	if c.metrics != nil {
		c.metrics.CacheResolves.WithLabelValues(sourceID, outcome).Inc()
	}
}
