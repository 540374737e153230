package session

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sindit-io/kgsync/pkg/models"
	"github.com/sindit-io/kgsync/pkg/pagination"
	"github.com/sindit-io/kgsync/pkg/resolver"
)

// LoadResult summarizes one Load.
type LoadResult struct {
	Nodes         int           `json:"nodes" yaml:"nodes"`
	Properties    int           `json:"properties" yaml:"properties"`
	Relationships int           `json:"relationships" yaml:"relationships"`
	Stored        int           `json:"stored" yaml:"stored"`
	Skipped       int           `json:"skipped" yaml:"skipped"`
	Elapsed       time.Duration `json:"elapsed" yaml:"elapsed"`
}

// Load drains every node page and every relationship page concurrently,
// resolves property references the pages left out, and processes the result
// into the store. A failed page fails the whole load and leaves the store
// untouched.
func (s *Session) Load(ctx context.Context) (*LoadResult, error) {
	start := time.Now()
	policy := s.cfg.Retry.Policy()

	var nodes, relationships []models.BackendNode
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fetch := pagination.WithRetry[models.BackendNode](s.client.ListNodes, policy)
		var err error
		nodes, err = pagination.FetchAllPages(gctx, fetch, s.cfg.Graph.Depth, s.cfg.Graph.PageSize)
		if err != nil {
			return fmt.Errorf("load nodes: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		fetch := pagination.WithRetry[models.BackendNode](s.listRelationships, policy)
		var err error
		relationships, err = pagination.FetchAllPages(gctx, fetch, 0, s.cfg.Graph.PageSize)
		if err != nil {
			return fmt.Errorf("load relationships: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("Graph load failed", zap.Error(err))
		return nil, err
	}

	fetcher := resolver.NewPropertyFetcher(s.client, s.codec, resolver.Config{
		MaxIterations: s.cfg.Graph.ResolverMaxIterations,
		Depth:         s.cfg.Graph.Depth,
		Concurrency:   s.cfg.Graph.ResolverConcurrency,
	}, s.logger)
	fetcher.PopulateCache(s.previouslyLoaded())

	resolved, err := fetcher.FetchAllProperties(ctx, nodes)
	if err != nil {
		return nil, fmt.Errorf("resolve properties: %w", err)
	}

	merged := mergeByURI(nodes, resolved)
	s.remember(merged)

	result := &LoadResult{
		Nodes:         len(nodes),
		Properties:    len(merged) - len(nodes),
		Relationships: len(relationships),
	}
	for _, node := range merged {
		if s.store.ProcessNode(node) {
			result.Stored++
		} else {
			result.Skipped++
		}
	}
	for _, node := range relationships {
		if s.store.ProcessNode(node) {
			result.Stored++
		} else {
			result.Skipped++
		}
	}
	result.Elapsed = time.Since(start)

	s.logger.Info("Graph loaded",
		zap.Int("nodes", result.Nodes),
		zap.Int("resolved_properties", result.Properties),
		zap.Int("relationships", result.Relationships),
		zap.Int("stored", result.Stored),
		zap.Int("skipped", result.Skipped),
		zap.Duration("elapsed", result.Elapsed))

	return result, nil
}

func (s *Session) listRelationships(ctx context.Context, _ int, skip, limit int) ([]models.BackendNode, error) {
	return s.client.ListRelationships(ctx, skip, limit)
}

func (s *Session) previouslyLoaded() []models.BackendNode {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.BackendNode, 0, len(s.loaded))
	for _, node := range s.loaded {
		out = append(out, node)
	}
	return out
}

func (s *Session) remember(nodes []models.BackendNode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, node := range nodes {
		s.loaded[node.URI()] = node
	}
}

// mergeByURI appends extra to seed, dropping nodes whose URI is already
// present. Seed entries win.
func mergeByURI(seed, extra []models.BackendNode) []models.BackendNode {
	seen := make(map[string]struct{}, len(seed)+len(extra))
	out := make([]models.BackendNode, 0, len(seed)+len(extra))
	for _, list := range [][]models.BackendNode{seed, extra} {
		for _, node := range list {
			if !models.IsBackendNode(node) {
				out = append(out, node)
				continue
			}
			if _, dup := seen[node.URI()]; dup {
				continue
			}
			seen[node.URI()] = struct{}{}
			out = append(out, node)
		}
	}
	return out
}
