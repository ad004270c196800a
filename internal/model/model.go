package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Project{},
	&Entity{},
	&Waypoint{},
	&Revision{},
}

// Project is one saved scene. Entities and waypoints hang off it by
// ProjectID and are replaced wholesale on save.
type Project struct {
	ID        string    `json:"id" gorm:"primaryKey;size:64"`
	Name      string    `json:"name" gorm:"size:255"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"index:idx_project_updated_at"`

	// TourPath is the closed camera ring, kept for map and preview tools.
	TourPath   geom.LineString `json:"tourPath"`
	TourLength float64         `json:"tourLength"`

	Entities  []Entity   `json:"entities" gorm:"foreignKey:ProjectID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Waypoints []Waypoint `json:"waypoints" gorm:"foreignKey:ProjectID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (*Project) TableName() string {
	return "projects"
}

// Entity is one scene object. Nested entities are flattened: ParentID names
// the containing entity and Ordinal keeps sibling order.
type Entity struct {
	ProjectID string     `json:"projectId" gorm:"primaryKey;size:64"`
	ID        string     `json:"id" gorm:"primaryKey;size:64"`
	ParentID  string     `json:"parentId" gorm:"size:64;index:idx_entity_parent"`
	Ordinal   int        `json:"ordinal"`
	Name      string     `json:"name" gorm:"size:255"`
	Kind      string     `json:"kind" gorm:"size:32;index:idx_entity_kind"`
	URL       string     `json:"url" gorm:"size:1024"`
	Visible   bool       `json:"visible"`
	Position  geom.Point `json:"position"`
	// Data holds the full entity document without its nested entities.
	Data datatypes.JSON `json:"data"`
}

func (*Entity) TableName() string {
	return "entities"
}

// Waypoint is one camera stop of the tour, in ring order.
type Waypoint struct {
	ProjectID   string         `json:"projectId" gorm:"primaryKey;size:64"`
	ID          string         `json:"id" gorm:"primaryKey;size:64"`
	Ordinal     int            `json:"ordinal"`
	Position    geom.Point     `json:"position"`
	OrbitTarget geom.Point     `json:"orbitTarget"`
	Orientation datatypes.JSON `json:"orientation"`
	Duration    float32        `json:"duration" gorm:"default:1"`
	Speed       float32        `json:"speed" gorm:"default:1"`
	TravelTime  float32        `json:"travelTime"`
}

func (*Waypoint) TableName() string {
	return "waypoints"
}

// Revision records every save of a project.
type Revision struct {
	ID          uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	ProjectID   string    `json:"projectId" gorm:"size:64;index:idx_revision_project"`
	SavedAt     time.Time `json:"savedAt" gorm:"type:timestamptz;index:idx_revision_saved_at"`
	EntityCount int       `json:"entityCount"`
	Waypoints   int       `json:"waypoints"`
	Backend     string    `json:"backend" gorm:"size:32"`
}

func (*Revision) TableName() string {
	return "revisions"
}
