package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sindit-io/kgsync/pkg/models"
	"github.com/sindit-io/kgsync/pkg/uri"
)

const testBase = "http://sindit.sintef.no/2.0#"

// fakeGraph answers GetNode from an in-memory map and counts calls per ID.
type fakeGraph struct {
	mu    sync.Mutex
	nodes map[string]models.BackendNode
	fail  map[string]error
	calls map[string]int
}

func newFakeGraph(nodes ...models.BackendNode) *fakeGraph {
	g := &fakeGraph{
		nodes: make(map[string]models.BackendNode),
		fail:  make(map[string]error),
		calls: make(map[string]int),
	}
	for _, n := range nodes {
		g.nodes[n.URI()[len(testBase):]] = n
	}
	return g
}

func (g *fakeGraph) GetNode(ctx context.Context, id string, depth int) (models.BackendNode, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls[id]++
	if err, ok := g.fail[id]; ok {
		return nil, err
	}
	return g.nodes[id], nil
}

func (g *fakeGraph) totalCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	total := 0
	for _, n := range g.calls {
		total += n
	}
	return total
}

func node(t *testing.T, id, classType string, fields map[string]any) models.BackendNode {
	t.Helper()
	raw := map[string]any{
		"uri":       testBase + id,
		"class_uri": "urn:samm:sindit#" + classType,
		"label":     id,
	}
	for k, v := range fields {
		raw[k] = v
	}
	data, err := json.Marshal(raw)
	require.NoError(t, err)
	var n models.BackendNode
	require.NoError(t, json.Unmarshal(data, &n))
	return n
}

func collection(t *testing.T, id string, refs ...string) models.BackendNode {
	items := make([]map[string]string, 0, len(refs))
	for _, r := range refs {
		items = append(items, map[string]string{"uri": testBase + r})
	}
	return node(t, id, "PropertyCollection", map[string]any{"collectionProperties": items})
}

func newFetcher(g NodeGetter, cfg Config) *PropertyFetcher {
	return NewPropertyFetcher(g, uri.NewCodec(testBase), cfg, zap.NewNop())
}

func uris(nodes []models.BackendNode) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.URI()[len(testBase):])
	}
	return out
}

func TestFetchAllProperties_CycleSafety(t *testing.T) {
	a := collection(t, "A", "B")
	b := collection(t, "B", "A")
	g := newFakeGraph(a, b)

	got, err := newFetcher(g, Config{}).FetchAllProperties(context.Background(), []models.BackendNode{a})
	require.NoError(t, err)

	assert.Equal(t, []string{"B"}, uris(got))
	assert.Equal(t, 1, g.totalCalls())
	assert.Equal(t, 1, g.calls["B"])
}

func TestFetchAllProperties_CacheShortCircuit(t *testing.T) {
	a := collection(t, "A", "B")
	b := node(t, "B", "AbstractAssetProperty", nil)
	g := newFakeGraph()

	f := newFetcher(g, Config{})
	f.PopulateCache([]models.BackendNode{b})

	got, err := f.FetchAllProperties(context.Background(), []models.BackendNode{a})
	require.NoError(t, err)

	assert.Equal(t, []string{"B"}, uris(got))
	assert.Zero(t, g.totalCalls())
}

func TestFetchAllProperties_CachedCollectionIsExpanded(t *testing.T) {
	asset := node(t, "asset", "AbstractAsset", map[string]any{"assetProperties": []string{testBase + "coll"}})
	coll := collection(t, "coll", "leaf")
	leaf := node(t, "leaf", "StreamingProperty", nil)
	g := newFakeGraph(leaf)

	f := newFetcher(g, Config{})
	f.PopulateCache([]models.BackendNode{coll})

	got, err := f.FetchAllProperties(context.Background(), []models.BackendNode{asset})
	require.NoError(t, err)

	assert.Equal(t, []string{"coll", "leaf"}, uris(got))
	assert.Equal(t, 1, g.totalCalls())
}

func TestFetchAllProperties_NestedCollections(t *testing.T) {
	asset := node(t, "asset", "AbstractAsset", map[string]any{
		"assetProperties": []any{testBase + "p1", map[string]string{"uri": testBase + "c1"}},
	})
	p1 := node(t, "p1", "AbstractAssetProperty", nil)
	c1 := collection(t, "c1", "c2", "p1")
	c2 := collection(t, "c2", "p2")
	p2 := node(t, "p2", "TimeseriesProperty", nil)
	g := newFakeGraph(p1, c1, c2, p2)

	got, err := newFetcher(g, Config{}).FetchAllProperties(context.Background(), []models.BackendNode{asset})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"p1", "c1", "c2", "p2"}, uris(got))
	assert.Equal(t, 4, g.totalCalls(), "each node fetched once")
}

func TestFetchAllProperties_DuplicateReferencesFetchedOnce(t *testing.T) {
	a1 := node(t, "a1", "AbstractAsset", map[string]any{"assetProperties": []string{testBase + "shared"}})
	a2 := node(t, "a2", "AbstractAsset", map[string]any{"assetProperties": []string{testBase + "shared"}})
	shared := node(t, "shared", "AbstractAssetProperty", nil)
	g := newFakeGraph(shared)

	got, err := newFetcher(g, Config{}).FetchAllProperties(context.Background(), []models.BackendNode{a1, a2})
	require.NoError(t, err)

	assert.Equal(t, []string{"shared"}, uris(got))
	assert.Equal(t, 1, g.calls["shared"])
}

func TestFetchAllProperties_SeedNotRefetched(t *testing.T) {
	asset := node(t, "asset", "AbstractAsset", map[string]any{"assetProperties": []string{testBase + "p1"}})
	p1 := node(t, "p1", "AbstractAssetProperty", nil)
	g := newFakeGraph(p1)

	got, err := newFetcher(g, Config{}).FetchAllProperties(context.Background(), []models.BackendNode{asset, p1})
	require.NoError(t, err)

	assert.Empty(t, got)
	assert.Zero(t, g.totalCalls())
}

func TestFetchAllProperties_FailuresAreSkipped(t *testing.T) {
	asset := node(t, "asset", "AbstractAsset", map[string]any{
		"assetProperties": []string{testBase + "ok", testBase + "broken", testBase + "missing", testBase + "invalid"},
	})
	ok := node(t, "ok", "AbstractAssetProperty", nil)
	g := newFakeGraph(ok)
	g.fail["broken"] = errors.New("connection reset")
	g.nodes["invalid"] = models.BackendNode{"uri": json.RawMessage(`"x"`)}

	got, err := newFetcher(g, Config{}).FetchAllProperties(context.Background(), []models.BackendNode{asset})
	require.NoError(t, err)

	assert.Equal(t, []string{"ok"}, uris(got))
	assert.Equal(t, 4, g.totalCalls())
}

func TestFetchAllProperties_IterationCap(t *testing.T) {
	// chain0 -> chain1 -> ... -> chain19
	var nodes []models.BackendNode
	for i := 0; i < 20; i++ {
		if i == 19 {
			nodes = append(nodes, collection(t, fmt.Sprintf("chain%d", i)))
			continue
		}
		nodes = append(nodes, collection(t, fmt.Sprintf("chain%d", i), fmt.Sprintf("chain%d", i+1)))
	}
	g := newFakeGraph(nodes[1:]...)

	got, err := newFetcher(g, Config{MaxIterations: 3}).FetchAllProperties(context.Background(), nodes[:1])
	require.NoError(t, err)

	assert.Equal(t, []string{"chain1", "chain2", "chain3"}, uris(got))
	assert.Equal(t, 3, g.totalCalls())
}

func TestFetchAllProperties_IgnoresNonContainerNodes(t *testing.T) {
	prop := node(t, "p1", "StreamingProperty", map[string]any{"assetProperties": []string{testBase + "x"}})
	bad := node(t, "bad", "AbstractAsset", nil)
	bad["class_uri"] = json.RawMessage(`"no-fragment"`)
	g := newFakeGraph()

	got, err := newFetcher(g, Config{}).FetchAllProperties(context.Background(), []models.BackendNode{prop, bad})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, g.totalCalls())
}

func TestFetchAllProperties_Canceled(t *testing.T) {
	a := collection(t, "A", "B")
	g := newFakeGraph(collection(t, "B"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newFetcher(g, Config{}).FetchAllProperties(ctx, []models.BackendNode{a})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConfig_Defaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, Config{MaxIterations: 10, Depth: 1, Concurrency: 8}, cfg)

	cfg = Config{MaxIterations: 2, Depth: 3, Concurrency: 1}.withDefaults()
	assert.Equal(t, Config{MaxIterations: 2, Depth: 3, Concurrency: 1}, cfg)
}
