// Package streaming defines the messages published to live viewers over
// the websocket stream.
package streaming

import (
	"encoding/json"

	"github.com/omni3d/studio/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeProjectSnapshot = "project_snapshot"
	TypeProjectDeleted  = "project_deleted"
	TypeEntityUpdate    = "entity_update"
	TypeEntityRemoved   = "entity_removed"
	TypeTourState       = "tour_state"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Project string          `json:"project"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// SnapshotPayload carries a whole project.
type SnapshotPayload struct {
	Project *core.Project `json:"project"`
}

// EntityPayload carries one changed top-level or nested entity.
type EntityPayload struct {
	Entity *core.Entity `json:"entity"`
}

// EntityRemovedPayload names a deleted entity.
type EntityRemovedPayload struct {
	ID string `json:"id"`
}

// TourPayload is the camera tour position.
type TourPayload struct {
	Touring  bool      `json:"touring"`
	Index    int       `json:"index"`
	Progress float32   `json:"progress"`
	Camera   core.Vec3 `json:"camera"`
}
