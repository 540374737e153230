package graphstate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/sindit-io/kgsync/pkg/jsonutil"
	"github.com/sindit-io/kgsync/pkg/logging"
	"github.com/sindit-io/kgsync/pkg/models"
)

// streamManager runs at most one live reader per streaming property ID.
type streamManager struct {
	gateway Gateway
	logger  *zap.Logger

	mu      sync.Mutex
	readers map[string]*streamReader
	wg      sync.WaitGroup
}

type streamReader struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func newStreamManager(gateway Gateway, logger *zap.Logger) *streamManager {
	return &streamManager{
		gateway: gateway,
		logger:  logger.Named("streams"),
		readers: make(map[string]*streamReader),
	}
}

// start opens a reader for id unless one is already running. onValue is
// called for each payload that carries a propertyValue.
func (m *streamManager) start(id string, onValue func(value, timestamp string)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.readers[id]; ok {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &streamReader{cancel: cancel, done: make(chan struct{})}
	m.readers[id] = r

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer close(r.done)
		defer m.forget(id, r)
		m.read(ctx, id, onValue)
	}()
	return true
}

func (m *streamManager) forget(id string, r *streamReader) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readers[id] == r {
		delete(m.readers, id)
	}
}

func (m *streamManager) read(ctx context.Context, id string, onValue func(value, timestamp string)) {
	body, err := m.gateway.StreamProperty(ctx, id)
	if err != nil {
		if ctx.Err() == nil {
			m.logger.Warn("Failed to open property stream",
				zap.String("property_id", id),
				zap.String("error", logging.SanitizeError(err)))
		}
		return
	}
	defer body.Close()

	// Closing the body unblocks a Decode waiting on a stalled stream.
	stop := context.AfterFunc(ctx, func() { _ = body.Close() })
	defer stop()

	dec := json.NewDecoder(body)
	for {
		var chunk json.RawMessage
		if err := dec.Decode(&chunk); err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				m.logger.Debug("Property stream ended", zap.String("property_id", id))
				return
			}
			m.logger.Warn("Property stream decode failed",
				zap.String("property_id", id),
				zap.Error(err))
			return
		}

		// Keepalives and other non-object chunks are skipped; the decoder
		// has already moved past them.
		var payload map[string]json.RawMessage
		if err := json.Unmarshal(chunk, &payload); err != nil || payload == nil {
			m.logger.Warn("Skipping non-object stream chunk",
				zap.String("property_id", id),
				zap.String("chunk", logging.TruncateString(string(chunk), 64)))
			continue
		}
		raw, ok := payload["propertyValue"]
		if !ok {
			continue
		}
		onValue(jsonutil.FlexibleStringValue(raw), jsonutil.FlexibleStringValue(payload["propertyValueTimestamp"]))
	}
}

// stop cancels the reader for id and waits for it to exit.
func (m *streamManager) stop(id string) {
	m.mu.Lock()
	r, ok := m.readers[id]
	delete(m.readers, id)
	m.mu.Unlock()

	if ok {
		r.cancel()
		<-r.done
	}
}

func (m *streamManager) stopAll() {
	m.mu.Lock()
	readers := m.readers
	m.readers = make(map[string]*streamReader)
	m.mu.Unlock()

	for _, r := range readers {
		r.cancel()
	}
	m.wg.Wait()
}

func (m *streamManager) active(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.readers[id]
	return ok
}

// startStream opens the live reader of a streaming property when streaming
// is enabled.
func (s *Store) startStream(p models.Property) {
	if !s.streaming || p.Kind() != models.NodeTypeStreamingProperty {
		return
	}
	id := p.Base().ID
	if s.streams.start(id, func(value, timestamp string) {
		s.setPropertyValue(id, value, timestamp)
	}) {
		s.logger.Debug("Streaming property subscribed", zap.String("property_id", id))
	}
}

// HasStream reports whether a live reader is open for the property.
func (s *Store) HasStream(id string) bool {
	return s.streams.active(id)
}

// RemoveStream closes the live reader of a property, if any.
func (s *Store) RemoveStream(id string) {
	s.streams.stop(id)
}
