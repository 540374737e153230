package graphstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sindit-io/kgsync/pkg/apperrors"
	"github.com/sindit-io/kgsync/pkg/models"
	"github.com/sindit-io/kgsync/pkg/notify"
	"github.com/sindit-io/kgsync/pkg/uri"
)

const testBase = "http://sindit.sintef.no/2.0#"

type fakeGateway struct {
	mu sync.Mutex

	createErr error
	linkErr   error
	updateErr error
	deleteErr error

	nodes   map[string]models.BackendNode
	streams map[string]*io.PipeReader

	created  []string
	linked   [][2]string
	updated  []string
	deleted  []string
	opened   map[string]int
	onCreate func(id string)
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		nodes:   make(map[string]models.BackendNode),
		streams: make(map[string]*io.PipeReader),
		opened:  make(map[string]int),
	}
}

func (g *fakeGateway) record(id string) error {
	if g.onCreate != nil {
		g.onCreate(id)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return g.createErr
	}
	g.created = append(g.created, id)
	return nil
}

func (g *fakeGateway) GetNode(ctx context.Context, id string, depth int) (models.BackendNode, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.nodes[id], nil
}

func (g *fakeGateway) CreateAssetNode(ctx context.Context, a *models.Asset) error {
	return g.record(a.ID)
}

func (g *fakeGateway) CreatePropertyNode(ctx context.Context, p models.Property) error {
	return g.record(p.Base().ID)
}

func (g *fakeGateway) CreateConnectionNode(ctx context.Context, c *models.Connection) error {
	return g.record(c.ID)
}

func (g *fakeGateway) CreateRelationship(ctx context.Context, r *models.Relationship) error {
	return g.record(r.ID)
}

func (g *fakeGateway) UpdateAssetNode(ctx context.Context, a *models.Asset, overwrite bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.updateErr != nil {
		return g.updateErr
	}
	g.updated = append(g.updated, a.ID)
	return nil
}

func (g *fakeGateway) UpdatePropertyNode(ctx context.Context, p models.Property, overwrite bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.updateErr != nil {
		return g.updateErr
	}
	g.updated = append(g.updated, p.Base().ID)
	return nil
}

func (g *fakeGateway) AddPropertyToAssetNode(ctx context.Context, assetID, propertyID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.linkErr != nil {
		return g.linkErr
	}
	g.linked = append(g.linked, [2]string{assetID, propertyID})
	return nil
}

func (g *fakeGateway) DeleteNode(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.deleteErr != nil {
		return g.deleteErr
	}
	g.deleted = append(g.deleted, id)
	return nil
}

func (g *fakeGateway) StreamProperty(ctx context.Context, id string) (io.ReadCloser, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.opened[id]++
	r, ok := g.streams[id]
	if !ok {
		return nil, errors.New("no stream")
	}
	return r, nil
}

func (g *fakeGateway) openCount(id string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.opened[id]
}

// recordingSink collects notifications.
type recordingSink struct {
	mu  sync.Mutex
	got []notify.Notification
}

func (r *recordingSink) Add(title, message string, level notify.Level) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, notify.Notification{Title: title, Message: message, Level: level})
}

func (r *recordingSink) byLevel(level notify.Level) []notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Notification
	for _, n := range r.got {
		if n.Level == level {
			out = append(out, n)
		}
	}
	return out
}

func newTestStore(t *testing.T, g *fakeGateway, streaming bool) (*Store, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	n := 0
	s := New(g, uri.NewCodec(testBase), Options{
		Sink:      sink,
		Streaming: streaming,
		NewID: func() string {
			n++
			return fmt.Sprintf("gen-%d", n)
		},
	}, zap.NewNop())
	t.Cleanup(s.Destroy)
	return s, sink
}

func rawNode(t *testing.T, fields map[string]any) models.BackendNode {
	t.Helper()
	data, err := json.Marshal(fields)
	require.NoError(t, err)
	var n models.BackendNode
	require.NoError(t, json.Unmarshal(data, &n))
	return n
}

func TestCreateAsset_RollbackOnFailure(t *testing.T) {
	g := newFakeGateway()
	s, sink := newTestStore(t, g, false)

	s.AddAsset(models.Asset{ID: "existing", Label: "Existing"})
	before := s.GetAllAssets()

	g.createErr = &apperrors.APIError{StatusCode: 500, Endpoint: "kg/asset", Method: "POST"}
	created, err := s.CreateAsset(context.Background(), models.Asset{Label: "Pump"})

	require.Error(t, err)
	assert.Nil(t, created)
	assert.Equal(t, before, s.GetAllAssets())
	assert.Len(t, sink.byLevel(notify.LevelError), 1)
	assert.False(t, s.IsPending("gen-1"))
}

func TestCreateAsset_PendingUntilConfirmed(t *testing.T) {
	g := newFakeGateway()
	s, _ := newTestStore(t, g, false)

	var pendingDuringCall, visibleDuringCall bool
	g.onCreate = func(id string) {
		pendingDuringCall = s.IsPending(id)
		_, visibleDuringCall = s.GetAsset(id)
	}

	created, err := s.CreateAsset(context.Background(), models.Asset{Label: "Pump"})
	require.NoError(t, err)
	require.NotNil(t, created)

	assert.Equal(t, "gen-1", created.ID)
	assert.True(t, pendingDuringCall)
	assert.True(t, visibleDuringCall)
	assert.False(t, s.IsPending(created.ID))
	assert.Equal(t, []string{"gen-1"}, g.created)
}

func TestCreateProperty_RollbackOnFailure(t *testing.T) {
	g := newFakeGateway()
	g.createErr = errors.New("boom")
	s, sink := newTestStore(t, g, false)

	p, err := s.CreateProperty(context.Background(), &models.AbstractAssetProperty{
		PropertyBase: models.PropertyBase{PropertyName: "Temperature"},
	})
	require.Error(t, err)
	assert.Nil(t, p)
	assert.Empty(t, s.GetAllProperties())

	errs := sink.byLevel(notify.LevelError)
	require.Len(t, errs, 1)
	assert.Equal(t, "Error creating AbstractAssetProperty node", errs[0].Title)
}

func TestCreateConnectionAndRelationship_Rollback(t *testing.T) {
	g := newFakeGateway()
	g.createErr = errors.New("down")
	s, sink := newTestStore(t, g, false)

	_, err := s.CreateConnection(context.Background(), models.Connection{ConnectionName: "broker"})
	require.Error(t, err)
	_, err = s.CreateRelationship(context.Background(), models.Relationship{RelationshipType: models.RelationshipMonitors})
	require.Error(t, err)

	assert.Empty(t, s.GetAllConnections())
	assert.Empty(t, s.GetAllRelationships())
	assert.Len(t, sink.byLevel(notify.LevelError), 2)
}

func TestCreate_RollbackRestoresExistingEntity(t *testing.T) {
	g := newFakeGateway()
	s, sink := newTestStore(t, g, false)
	ctx := context.Background()

	s.AddAsset(models.Asset{ID: "pump", Label: "Pump"})
	s.AddAsset(models.Asset{ID: "valve", Label: "Valve"})
	s.AddProperty(&models.AbstractAssetProperty{PropertyBase: models.PropertyBase{ID: "temp", PropertyName: "Temperature"}})
	s.AddConnection(models.Connection{ID: "broker", ConnectionName: "Broker"})
	s.AddRelationship(models.Relationship{ID: "r1", RelationshipType: models.RelationshipMonitors})

	assetsBefore := s.GetAllAssets()
	propertiesBefore := s.GetAllProperties()
	connectionsBefore := s.GetAllConnections()
	relationshipsBefore := s.GetAllRelationships()

	g.createErr = errors.New("down")
	_, err := s.CreateAsset(ctx, models.Asset{ID: "pump", Label: "Replacement"})
	require.Error(t, err)
	_, err = s.CreateProperty(ctx, &models.AbstractAssetProperty{PropertyBase: models.PropertyBase{ID: "temp", PropertyName: "Other"}})
	require.Error(t, err)
	_, err = s.CreateConnection(ctx, models.Connection{ID: "broker", ConnectionName: "Other"})
	require.Error(t, err)
	_, err = s.CreateRelationship(ctx, models.Relationship{ID: "r1", RelationshipType: models.RelationshipUses})
	require.Error(t, err)

	assert.Equal(t, assetsBefore, s.GetAllAssets())
	assert.Equal(t, propertiesBefore, s.GetAllProperties())
	assert.Equal(t, connectionsBefore, s.GetAllConnections())
	assert.Equal(t, relationshipsBefore, s.GetAllRelationships())
	assert.Len(t, sink.byLevel(notify.LevelError), 4)
}

func TestUpdateAsset_PreservesIdentityAndPosition(t *testing.T) {
	s, sink := newTestStore(t, newFakeGateway(), false)
	s.AddAsset(models.Asset{ID: "a1", Label: "First"})
	s.AddAsset(models.Asset{ID: "a2", Label: "Second"})
	s.AddAsset(models.Asset{ID: "a3", Label: "Third"})

	ok := s.UpdateAsset("a2", models.Asset{ID: "different", Label: "Renamed"})
	require.True(t, ok)

	got, found := s.GetAsset("a2")
	require.True(t, found)
	assert.Equal(t, "Renamed", got.Label)
	assert.Equal(t, "a2", got.ID)

	_, found = s.GetAsset("different")
	assert.False(t, found)

	all := s.GetAllAssets()
	require.Len(t, all, 3)
	assert.Equal(t, "a2", all[1].ID)
	assert.Len(t, sink.byLevel(notify.LevelInfo), 1)
}

func TestUpdateProperty_ForcesID(t *testing.T) {
	s, _ := newTestStore(t, newFakeGateway(), false)
	s.AddProperty(&models.AbstractAssetProperty{PropertyBase: models.PropertyBase{ID: "p1", PropertyName: "Old"}})

	ok := s.UpdateProperty("p1", &models.AbstractAssetProperty{PropertyBase: models.PropertyBase{ID: "other", PropertyName: "New"}})
	require.True(t, ok)

	p, found := s.GetProperty("p1")
	require.True(t, found)
	assert.Equal(t, "New", p.Base().PropertyName)
	_, found = s.GetProperty("other")
	assert.False(t, found)
}

func TestConnectionLifecycle(t *testing.T) {
	s, _ := newTestStore(t, newFakeGateway(), false)

	conn := s.AddConnection(models.Connection{
		ID:             "node1",
		ConnectionName: "Test Node",
		Description:    "Test Description",
		Host:           "localhost",
		Port:           8080,
		ConnectionType: models.ConnectionTypeMQTT,
		IsConnected:    false,
	})

	all := s.GetAllConnections()
	require.Len(t, all, 1)
	assert.Equal(t, conn, all[0])

	require.True(t, s.DeleteConnection("node1"))
	assert.Empty(t, s.GetAllConnections())
}

func TestDelete_MissingNotifiesError(t *testing.T) {
	s, sink := newTestStore(t, newFakeGateway(), false)

	assert.False(t, s.DeleteAsset("ghost"))
	errs := sink.byLevel(notify.LevelError)
	require.Len(t, errs, 1)
	assert.Equal(t, "Node not found", errs[0].Title)

	s.AddAsset(models.Asset{ID: "real"})
	assert.True(t, s.DeleteAsset("real"))
	assert.Len(t, sink.byLevel(notify.LevelInfo), 1)
}

func TestAddPropertyNode_StreamingClassification(t *testing.T) {
	s, _ := newTestStore(t, newFakeGateway(), false)
	node := rawNode(t, map[string]any{
		"uri":                 "u",
		"propertyName":        "Test3",
		"propertyDescription": "Test Description",
		"propertyDataType":    map[string]string{"uri": "http://www.w3.org/2001/XMLSchema#string"},
		"propertyUnit":        map[string]string{"uri": "http://www.w3.org/2001/XMLSchema#string"},
		"propertyValue":       "Test3",
		"streamingTopic":      "topic/test",
		"streamingPath":       "tmp",
		"propertyConnection":  map[string]string{"uri": "http://www.w3.org/2001/XMLSchema#string"},
	})

	s.AddPropertyNode(models.NodeTypeStreamingProperty, node)

	props := s.GetAllProperties()
	require.Len(t, props, 1)
	sp, ok := props[0].(*models.StreamingProperty)
	require.True(t, ok)
	assert.Equal(t, "Test Description", sp.Description)
	assert.Equal(t, models.NodeTypeStreamingProperty, sp.NodeType)
	assert.Equal(t, "Test3", sp.PropertyValue)
	assert.Equal(t, "topic/test", sp.StreamingTopic)
	assert.Equal(t, "u", sp.ID)
}

func TestAddPropertyNode_WithoutURIGetsGeneratedID(t *testing.T) {
	s, _ := newTestStore(t, newFakeGateway(), false)

	p := s.AddPropertyNode(models.NodeTypeAbstractAssetProperty, rawNode(t, map[string]any{
		"propertyName": "Test1",
		"description":  "Description1",
	}))

	assert.Equal(t, "gen-1", p.Base().ID)
	assert.Equal(t, "Description1", p.Base().Description)
	assert.NotNil(t, p.Base().Position)
}

func TestGetByIDs_CollectionOrder(t *testing.T) {
	s, _ := newTestStore(t, newFakeGateway(), false)
	s.AddProperty(&models.AbstractAssetProperty{PropertyBase: models.PropertyBase{ID: "p1"}})
	s.AddProperty(&models.AbstractAssetProperty{PropertyBase: models.PropertyBase{ID: "p2"}})
	s.AddProperty(&models.AbstractAssetProperty{PropertyBase: models.PropertyBase{ID: "p3"}})

	got := s.GetPropertiesByIDs([]models.NodeRef{{URI: testBase + "p3"}, {URI: "p1"}, {URI: testBase + "missing"}})
	require.Len(t, got, 2)
	assert.Equal(t, "p1", got[0].Base().ID)
	assert.Equal(t, "p3", got[1].Base().ID)
}

func TestAdd_SameIDReplacesInPlace(t *testing.T) {
	s, _ := newTestStore(t, newFakeGateway(), false)
	s.AddAsset(models.Asset{ID: "a1", Label: "v1"})
	s.AddAsset(models.Asset{ID: "a2"})
	s.AddAsset(models.Asset{ID: "a1", Label: "v2"})

	all := s.GetAllAssets()
	require.Len(t, all, 2)
	assert.Equal(t, "v2", all[0].Label)
}

func TestSnapshotsAreCopies(t *testing.T) {
	s, _ := newTestStore(t, newFakeGateway(), false)
	s.AddAsset(models.Asset{ID: "a1", AssetProperties: []models.NodeRef{{URI: "x"}}})

	got, _ := s.GetAsset("a1")
	got.AssetProperties[0].URI = "mutated"

	again, _ := s.GetAsset("a1")
	assert.Equal(t, "x", again.AssetProperties[0].URI)
}

func TestAddPropertyToAsset(t *testing.T) {
	g := newFakeGateway()
	s, sink := newTestStore(t, g, false)
	s.AddAsset(models.Asset{ID: "asset"})

	p, err := s.AddPropertyToAsset(context.Background(), "asset", &models.AbstractAssetProperty{
		PropertyBase: models.PropertyBase{PropertyName: "Speed"},
	})
	require.NoError(t, err)

	asset, _ := s.GetAsset("asset")
	assert.Equal(t, []models.NodeRef{{URI: testBase + p.Base().ID}}, asset.AssetProperties)
	assert.Equal(t, [][2]string{{"asset", p.Base().ID}}, g.linked)
	assert.Empty(t, sink.byLevel(notify.LevelError))
}

func TestAddPropertyToAsset_LinkFailureKeepsProperty(t *testing.T) {
	g := newFakeGateway()
	g.linkErr = &apperrors.APIError{StatusCode: 500, Endpoint: "kg/node"}
	s, sink := newTestStore(t, g, false)
	s.AddAsset(models.Asset{ID: "asset"})

	p, err := s.AddPropertyToAsset(context.Background(), "asset", &models.AbstractAssetProperty{})
	require.Error(t, err)
	require.NotNil(t, p)

	_, found := s.GetProperty(p.Base().ID)
	assert.True(t, found, "no compensating delete")
	assert.Equal(t, []string{p.Base().ID}, g.created)
	assert.Len(t, sink.byLevel(notify.LevelError), 1)
}

func TestAddPropertyToAsset_UnknownAsset(t *testing.T) {
	g := newFakeGateway()
	s, sink := newTestStore(t, g, false)

	_, err := s.AddPropertyToAsset(context.Background(), "ghost", &models.AbstractAssetProperty{})
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Empty(t, g.created)
	assert.Len(t, sink.byLevel(notify.LevelError), 1)
}

func TestProcessNode_Dispatch(t *testing.T) {
	s, _ := newTestStore(t, newFakeGateway(), false)

	nodes := []map[string]any{
		{"uri": testBase + "asset", "class_uri": "urn:samm:sindit#AbstractAsset", "label": "Pump",
			"assetDescription": "Main pump", "assetProperties": []map[string]string{{"uri": testBase + "temp"}}},
		{"uri": testBase + "temp", "class_uri": "urn:samm:sindit#AbstractAssetProperty", "label": "temp",
			"propertyValue": 21.5},
		{"uri": testBase + "broker", "class_uri": "urn:samm:sindit#Connection", "label": "Broker",
			"connectionDescription": "mqtt", "host": "localhost", "port": "1883", "type": "MQTT", "isConnected": true},
		{"uri": testBase + "ws", "class_uri": "urn:samm:sindit#SINDITKG", "label": "Workspace",
			"assets": []string{testBase + "asset"}},
		{"uri": testBase + "rel", "class_uri": "urn:samm:sindit#Monitors", "label": "Monitors",
			"relationshipSource": map[string]string{"uri": testBase + "asset"},
			"relationshipTarget": map[string]string{"uri": testBase + "temp"}},
		{"uri": testBase + "odd", "class_uri": "urn:samm:sindit#Mystery", "label": "?"},
		{"uri": testBase + "bad", "class_uri": "no-fragment", "label": "bad"},
		{"uri": "urn:other:x", "class_uri": "urn:samm:sindit#AbstractAsset", "label": "foreign"},
	}
	var stored int
	for _, n := range nodes {
		if s.ProcessNode(rawNode(t, n)) {
			stored++
		}
	}
	assert.False(t, s.ProcessNode(rawNode(t, map[string]any{"uri": "x"})))
	assert.Equal(t, 5, stored)

	asset, ok := s.GetAsset("asset")
	require.True(t, ok)
	assert.Equal(t, "Main pump", asset.Description)
	assert.Equal(t, []models.NodeRef{{URI: testBase + "temp"}}, asset.AssetProperties)

	p, ok := s.GetProperty("temp")
	require.True(t, ok)
	assert.Equal(t, "21.5", p.Base().PropertyValue)

	conn, ok := s.GetConnection("broker")
	require.True(t, ok)
	assert.Equal(t, 1883, conn.Port)
	assert.True(t, conn.IsConnected)
	assert.Equal(t, models.ConnectionTypeMQTT, conn.ConnectionType)

	root, ok := s.GetRoot("ws")
	require.True(t, ok)
	assert.Len(t, root.Assets, 1)

	rel, ok := s.GetRelationship("rel")
	require.True(t, ok)
	assert.Equal(t, models.RelationshipMonitors, rel.RelationshipType)
}

func TestPropertyName_Fallbacks(t *testing.T) {
	assert.Equal(t, "Named", propertyName("x", rawNode(t, map[string]any{"propertyName": "Named", "label": "L"})))
	assert.Equal(t, "L", propertyName("x", rawNode(t, map[string]any{"label": "L"})))
	assert.Equal(t, "leaf", propertyName("a/b/leaf", rawNode(t, map[string]any{})))
	assert.Equal(t, unknownPropertyName, propertyName("", rawNode(t, map[string]any{})))
}

func TestObserve(t *testing.T) {
	s, _ := newTestStore(t, newFakeGateway(), false)

	var mu sync.Mutex
	var seen []Collection
	unsubscribe := s.Observe(func(c Collection) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, c)
	})

	s.AddAsset(models.Asset{ID: "a"})
	s.AddConnection(models.Connection{ID: "c"})
	unsubscribe()
	s.AddAsset(models.Asset{ID: "b"})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Collection{CollectionAssets, CollectionConnections}, seen)
}

func TestDeleteAllNodes(t *testing.T) {
	s, _ := newTestStore(t, newFakeGateway(), false)
	s.AddAsset(models.Asset{ID: "a"})
	s.AddProperty(&models.AbstractAssetProperty{PropertyBase: models.PropertyBase{ID: "p"}})
	s.AddConnection(models.Connection{ID: "c"})
	s.AddRelationship(models.Relationship{ID: "r"})
	s.AddRoot(models.KGRoot{ID: "root"})

	s.DeleteAllNodes()

	assert.Empty(t, s.GetAllAssets())
	assert.Empty(t, s.GetAllProperties())
	assert.Empty(t, s.GetAllConnections())
	assert.Empty(t, s.GetAllRelationships())
	assert.Empty(t, s.GetAllRoots())
}
