// internal/storage/storage.go
package storage

import (
	"errors"
	"time"

	"github.com/omni3d/studio/pkg/core"
)

var (
	// ErrProjectNotFound is returned when no project has the requested id.
	ErrProjectNotFound = errors.New("project not found")
	// ErrNotSupported is returned by backends that cannot serve an operation,
	// such as reading back from a publish stream.
	ErrNotSupported = errors.New("operation not supported by backend")
)

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Projects
	SaveProject(p *core.Project) error
	LoadProject(id string) (*core.Project, error)
	ListProjects() ([]Summary, error)
	DeleteProject(id string) error
}

// Publisher is an optional interface for backends that stream incremental
// changes between snapshots.
type Publisher interface {
	PublishEntity(projectID string, e *core.Entity) error
	PublishEntityRemoved(projectID, entityID string) error
	PublishTour(projectID string, touring bool, index int, progress float32, camera core.Vec3) error
}

// Exporter is an optional interface for backends that write project files.
type Exporter interface {
	LastExportPath() string
}

// Summary describes a stored project without loading it.
type Summary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updatedAt"`
	Entities  int       `json:"entities"`
	Waypoints int       `json:"waypoints"`
}

// Summarize counts the entities of p, nested ones included.
func Summarize(p *core.Project) Summary {
	n := 0
	for _, e := range p.Entities {
		e.Walk(func(*core.Entity) { n++ })
	}
	return Summary{
		ID:        p.ID,
		Name:      p.Name,
		UpdatedAt: p.UpdatedAt,
		Entities:  n,
		Waypoints: len(p.Waypoints),
	}
}
