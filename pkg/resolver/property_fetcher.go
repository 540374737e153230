// Package resolver expands asset and collection property references into
// full backend nodes, fetching only what is not already known.
package resolver

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sindit-io/kgsync/pkg/logging"
	"github.com/sindit-io/kgsync/pkg/models"
	"github.com/sindit-io/kgsync/pkg/uri"
)

const (
	DefaultMaxIterations = 10
	DefaultDepth         = 1
	DefaultConcurrency   = 8
)

// NodeGetter fetches a single node by local ID.
type NodeGetter interface {
	GetNode(ctx context.Context, id string, depth int) (models.BackendNode, error)
}

// Config bounds a resolution run. Values below 1 take the defaults.
type Config struct {
	MaxIterations int
	Depth         int
	Concurrency   int
}

func (c Config) withDefaults() Config {
	if c.MaxIterations < 1 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.Depth < 1 {
		c.Depth = DefaultDepth
	}
	if c.Concurrency < 1 {
		c.Concurrency = DefaultConcurrency
	}
	return c
}

// PropertyFetcher resolves property references breadth first. Known URIs are
// never fetched or queued twice, so reference cycles terminate. A fetcher
// keeps its known set across calls and is not safe for concurrent use.
type PropertyFetcher struct {
	getter NodeGetter
	codec  *uri.Codec
	cfg    Config
	logger *zap.Logger

	known   map[string]struct{}
	cache   map[string]models.BackendNode
	fetched []models.BackendNode
}

// NewPropertyFetcher creates a fetcher that loads missing nodes through getter.
func NewPropertyFetcher(getter NodeGetter, codec *uri.Codec, cfg Config, logger *zap.Logger) *PropertyFetcher {
	return &PropertyFetcher{
		getter: getter,
		codec:  codec,
		cfg:    cfg.withDefaults(),
		logger: logger.Named("property-fetcher"),
		known:  make(map[string]struct{}),
		cache:  make(map[string]models.BackendNode),
	}
}

// PopulateCache registers nodes the caller already holds so references to
// them resolve without a network call.
func (f *PropertyFetcher) PopulateCache(nodes []models.BackendNode) {
	for _, node := range nodes {
		if !models.IsBackendNode(node) {
			continue
		}
		f.cache[node.URI()] = node
	}
	f.logger.Info("PropertyFetcher cache populated", zap.Int("cache_size", len(f.cache)))
}

// FetchAllProperties returns every node transitively referenced by initial
// through assetProperties or collectionProperties, excluding initial itself.
// Individual fetch failures are logged and skipped; only cancellation of ctx
// fails the call.
func (f *PropertyFetcher) FetchAllProperties(ctx context.Context, initial []models.BackendNode) ([]models.BackendNode, error) {
	for _, node := range initial {
		if models.IsBackendNode(node) {
			f.known[node.URI()] = struct{}{}
		}
	}

	queue := append([]models.BackendNode(nil), initial...)
	iteration := 0

	for len(queue) > 0 && iteration < f.cfg.MaxIterations {
		iteration++
		f.logger.Debug("Property fetching iteration",
			zap.Int("iteration", iteration),
			zap.Int("queue_size", len(queue)))

		batch := queue
		queue = nil

		cached, missing := f.collectPropertyURIs(batch)
		for _, node := range cached {
			f.fetched = append(f.fetched, node)
			queue = append(queue, node)
		}

		if len(missing) == 0 {
			if len(cached) == 0 {
				break
			}
			continue
		}

		f.logger.Info("Fetching missing property nodes",
			zap.Int("cached_count", len(cached)),
			zap.Int("unfetched_count", len(missing)))

		nodes, err := f.fetchInParallel(ctx, missing)
		if err != nil {
			return nil, err
		}
		for _, node := range nodes {
			f.fetched = append(f.fetched, node)
			queue = append(queue, node)
		}
	}

	if len(queue) > 0 && iteration >= f.cfg.MaxIterations {
		f.logger.Warn("Property fetcher reached maximum iterations",
			zap.Int("max_iterations", f.cfg.MaxIterations),
			zap.Int("pending", len(queue)))
	}

	return append([]models.BackendNode{}, f.fetched...), nil
}

// collectPropertyURIs splits the unknown references of batch into nodes
// already in the cache and URIs that must be fetched. Every returned URI is
// marked known so it is handled exactly once.
func (f *PropertyFetcher) collectPropertyURIs(batch []models.BackendNode) ([]models.BackendNode, []string) {
	var cached []models.BackendNode
	var missing []string

	for _, node := range batch {
		classType, err := uri.ClassTypeFromClassURI(node.ClassURI())
		if err != nil {
			f.logger.Warn("Error collecting property URIs",
				zap.String("node_uri", node.URI()),
				zap.Error(err))
			continue
		}

		var refs []models.NodeRef
		switch models.NodeType(classType) {
		case models.NodeTypeAbstractAsset:
			refs = node.Refs("assetProperties")
		case models.NodeTypePropertyCollection:
			refs = node.Refs("collectionProperties")
		default:
			continue
		}

		for _, ref := range refs {
			if _, seen := f.known[ref.URI]; seen {
				continue
			}
			f.known[ref.URI] = struct{}{}
			if hit, ok := f.cache[ref.URI]; ok {
				cached = append(cached, hit)
				continue
			}
			missing = append(missing, ref.URI)
		}
	}
	return cached, missing
}

// fetchInParallel fetches every URI concurrently, bounded by the configured
// concurrency, and returns the valid nodes in request order.
func (f *PropertyFetcher) fetchInParallel(ctx context.Context, uris []string) ([]models.BackendNode, error) {
	results := make([]models.BackendNode, len(uris))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.cfg.Concurrency)

	for i, nodeURI := range uris {
		i, nodeURI := i, nodeURI
		g.Go(func() error {
			results[i] = f.fetchOne(gctx, nodeURI)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	nodes := make([]models.BackendNode, 0, len(uris))
	for _, node := range results {
		if node == nil {
			continue
		}
		f.known[node.URI()] = struct{}{}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func (f *PropertyFetcher) fetchOne(ctx context.Context, nodeURI string) models.BackendNode {
	id, err := f.codec.FromBackendURI(nodeURI)
	if err != nil {
		f.logger.Error("Failed to fetch property",
			zap.String("uri", nodeURI),
			zap.Error(err))
		return nil
	}

	node, err := f.getter.GetNode(ctx, id, f.cfg.Depth)
	if err != nil {
		f.logger.Error("Failed to fetch property",
			zap.String("uri", nodeURI),
			zap.String("error", logging.SanitizeError(err)))
		return nil
	}
	if !models.IsBackendNode(node) {
		f.logger.Warn("Fetched node is not valid", zap.String("uri", nodeURI))
		return nil
	}
	return node
}
