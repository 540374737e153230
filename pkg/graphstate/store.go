// Package graphstate holds the in-memory knowledge graph of one session:
// assets, properties, connections, relationships and workspace roots.
//
// Mutations through the create operations are optimistic. The entity is
// visible immediately, the backend call runs, and on failure the entity is
// removed again and an error notification is sent. Plain Add, Update and
// Delete operations never talk to the backend; the *Backend operations do.
package graphstate

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sindit-io/kgsync/pkg/logging"
	"github.com/sindit-io/kgsync/pkg/models"
	"github.com/sindit-io/kgsync/pkg/notify"
	"github.com/sindit-io/kgsync/pkg/uri"
)

// Gateway is the subset of the backend client the store calls.
type Gateway interface {
	GetNode(ctx context.Context, id string, depth int) (models.BackendNode, error)
	CreateAssetNode(ctx context.Context, asset *models.Asset) error
	CreatePropertyNode(ctx context.Context, p models.Property) error
	CreateConnectionNode(ctx context.Context, conn *models.Connection) error
	CreateRelationship(ctx context.Context, r *models.Relationship) error
	UpdateAssetNode(ctx context.Context, asset *models.Asset, overwrite bool) error
	UpdatePropertyNode(ctx context.Context, p models.Property, overwrite bool) error
	AddPropertyToAssetNode(ctx context.Context, assetID, propertyID string) error
	DeleteNode(ctx context.Context, id string) error
	StreamProperty(ctx context.Context, id string) (io.ReadCloser, error)
}

// Collection names a store collection in change events.
type Collection string

const (
	CollectionAssets        Collection = "assets"
	CollectionProperties    Collection = "properties"
	CollectionConnections   Collection = "connections"
	CollectionRelationships Collection = "relationships"
	CollectionRoots         Collection = "roots"
)

// Options configures a Store. Zero values are usable.
type Options struct {
	// Sink receives user-facing notifications. Nil discards them.
	Sink notify.Sink
	// Streaming opens a live value reader for every streaming property added.
	Streaming bool
	// NewID generates local IDs for entities added without one.
	NewID func() string
}

// Store is safe for concurrent use. Notifications and observers are always
// called without the store lock held.
type Store struct {
	gateway   Gateway
	codec     *uri.Codec
	sink      notify.Sink
	logger    *zap.Logger
	newID     func() string
	streaming bool

	mu            sync.RWMutex
	assets        *collection[models.Asset]
	properties    *collection[models.Property]
	connections   *collection[models.Connection]
	relationships *collection[models.Relationship]
	roots         *collection[models.KGRoot]
	pending       map[string]struct{}

	obsMu     sync.Mutex
	observers map[int]func(Collection)
	nextObs   int

	streams *streamManager
}

// New creates an empty store.
func New(gateway Gateway, codec *uri.Codec, opts Options, logger *zap.Logger) *Store {
	logger = logger.Named("graph-state")
	s := &Store{
		gateway:   gateway,
		codec:     codec,
		sink:      opts.Sink,
		logger:    logger,
		newID:     opts.NewID,
		streaming: opts.Streaming,
		assets:    newCollection(func(a models.Asset) string { return a.ID }),
		properties: newCollection(func(p models.Property) string {
			return p.Base().ID
		}),
		connections:   newCollection(func(c models.Connection) string { return c.ID }),
		relationships: newCollection(func(r models.Relationship) string { return r.ID }),
		roots:         newCollection(func(r models.KGRoot) string { return r.ID }),
		pending:       make(map[string]struct{}),
		observers:     make(map[int]func(Collection)),
	}
	if s.sink == nil {
		s.sink = notify.Discard
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.New().String() }
	}
	s.streams = newStreamManager(gateway, logger)
	return s
}

// Observe registers fn to be called with the collection name after every
// mutation. The returned function unregisters it.
func (s *Store) Observe(fn func(Collection)) func() {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		delete(s.observers, id)
	}
}

func (s *Store) changed(c Collection) {
	s.obsMu.Lock()
	fns := make([]func(Collection), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.obsMu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

func (s *Store) notify(title, message string, level notify.Level) {
	s.sink.Add(title, message, level)
}

// IsPending reports whether id was added by a create operation whose backend
// call has not returned yet.
func (s *Store) IsPending(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.pending[id]
	return ok
}

// confirm runs the backend half of an optimistic create. On failure undo
// is called under the store lock and exactly one error notification is sent.
func (s *Store) confirm(ctx context.Context, id, kind string, col Collection, undo func(), call func(context.Context) error) error {
	err := call(ctx)

	s.mu.Lock()
	delete(s.pending, id)
	if err != nil {
		undo()
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("Failed to create node",
			zap.String("kind", kind),
			zap.String("id", id),
			zap.String("error", logging.SanitizeError(err)))
		s.notify(fmt.Sprintf("Error creating %s node", kind), logging.SanitizeError(err), notify.LevelError)
		s.changed(col)
		return fmt.Errorf("create %s %s: %w", kind, id, err)
	}

	s.logger.Debug("Node created", zap.String("kind", kind), zap.String("id", id))
	return nil
}

func (s *Store) ensureID(id string) string {
	if id == "" {
		return s.newID()
	}
	return id
}

// refIDs dereferences refs to local IDs.
func (s *Store) refIDs(refs []models.NodeRef) map[string]struct{} {
	ids := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		ids[s.codec.LocalIDOrURI(ref.URI)] = struct{}{}
	}
	return ids
}

// DeleteAllNodes clears every collection and closes every stream.
func (s *Store) DeleteAllNodes() {
	s.DeleteAllAssets()
	s.DeleteAllProperties()
	s.DeleteAllConnections()
	s.DeleteAllRelationships()
	s.DeleteAllRoots()
}

// Destroy closes all live streams. The store must not be used afterwards.
func (s *Store) Destroy() {
	s.streams.stopAll()
}
