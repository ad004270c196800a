package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/omni3d/studio/internal/storage"
	"github.com/omni3d/studio/pkg/core"
	"github.com/omni3d/studio/pkg/streaming"
)

// Re-exported protocol names, for tests and callers that only import this package.
type (
	Envelope   = streaming.Envelope
	AckMessage = streaming.AckMessage
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	APIKey string
}

// Backend publishes projects to a live viewer server. Snapshots wait for
// an ack; incremental updates are fire-and-forget. It cannot read projects
// back.
type Backend struct {
	link *stream
	cfg  Config
}

// New creates a new WebSocket storage backend.
func New(cfg Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		link: newStream(logger),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.link.open(b.cfg.URL, b.cfg.APIKey)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.link.close()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType, projectID string, payload any) ([]byte, error) {
	env := streaming.Envelope{Type: msgType, Project: projectID}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
		}
		env.Payload = raw
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope marshals the payload into an Envelope and pushes it
// to the write loop (fire-and-forget).
func (b *Backend) sendEnvelope(msgType, projectID string, payload any) error {
	data, err := marshalEnvelope(msgType, projectID, payload)
	if err != nil {
		return err
	}
	b.link.send(data)
	return nil
}

// SaveProject publishes a snapshot and waits for the server ack. The
// snapshot is replayed after a reconnect.
func (b *Backend) SaveProject(p *core.Project) error {
	data, err := marshalEnvelope(streaming.TypeProjectSnapshot, p.ID, streaming.SnapshotPayload{Project: p})
	if err != nil {
		return err
	}

	b.link.remember(data)

	return b.link.sendAndWait(data, streaming.TypeProjectSnapshot, ackTimeout)
}

// LoadProject is not supported by a publish stream.
func (b *Backend) LoadProject(id string) (*core.Project, error) {
	return nil, fmt.Errorf("websocket load %s: %w", id, storage.ErrNotSupported)
}

// ListProjects is not supported by a publish stream.
func (b *Backend) ListProjects() ([]storage.Summary, error) {
	return nil, fmt.Errorf("websocket list: %w", storage.ErrNotSupported)
}

// DeleteProject tells viewers to drop the project.
func (b *Backend) DeleteProject(id string) error {
	data, err := marshalEnvelope(streaming.TypeProjectDeleted, id, nil)
	if err != nil {
		return err
	}

	b.link.remember(nil)

	return b.link.sendAndWait(data, streaming.TypeProjectDeleted, ackTimeout)
}

func (b *Backend) PublishEntity(projectID string, e *core.Entity) error {
	return b.sendEnvelope(streaming.TypeEntityUpdate, projectID, streaming.EntityPayload{Entity: e})
}

func (b *Backend) PublishEntityRemoved(projectID, entityID string) error {
	return b.sendEnvelope(streaming.TypeEntityRemoved, projectID, streaming.EntityRemovedPayload{ID: entityID})
}

func (b *Backend) PublishTour(projectID string, touring bool, index int, progress float32, camera core.Vec3) error {
	return b.sendEnvelope(streaming.TypeTourState, projectID, streaming.TourPayload{
		Touring:  touring,
		Index:    index,
		Progress: progress,
		Camera:   camera,
	})
}
