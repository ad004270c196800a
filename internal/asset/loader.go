package asset

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/omni3d/studio/internal/scene"
	"github.com/omni3d/studio/pkg/core"
)

var ErrInvalidDescription = errors.New("invalid asset description")

// Loader turns description files into live graphs. Parsed descriptions are
// cached per path until the file changes; every Load builds a new graph.
type Loader struct {
	logger *slog.Logger

	mu    sync.Mutex
	cache map[string]cached
}

type cached struct {
	modTime time.Time
	desc    *Description
}

// NewLoader creates a Loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger, cache: map[string]cached{}}
}

// Load reads the description at path and returns its live graph and the
// names of the animation clips it carries.
func (l *Loader) Load(path string) (scene.LiveNode, []string, error) {
	d, err := l.description(path)
	if err != nil {
		return nil, nil, err
	}
	root, err := Build(d)
	if err != nil {
		return nil, nil, fmt.Errorf("building %s: %w", filepath.Base(path), err)
	}
	l.logger.Debug("asset loaded", "path", path, "animations", len(d.Animations))
	return root, append([]string(nil), d.Animations...), nil
}

func (l *Loader) description(path string) (*Description, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("loading asset: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if c, ok := l.cache[path]; ok && c.modTime.Equal(info.ModTime()) {
		return c.desc, nil
	}
	d, err := ReadDescription(path)
	if err != nil {
		return nil, fmt.Errorf("loading asset %s: %w", path, err)
	}
	l.cache[path] = cached{modTime: info.ModTime(), desc: d}
	return d, nil
}

// Build creates the live graph described by d. Materials and geometries
// named in the shared tables are shared between the nodes using them.
func Build(d *Description) (scene.LiveNode, error) {
	b := &builder{
		desc:       d,
		materials:  map[string]*scene.Material{},
		geometries: map[string]*scene.Geometry{},
		byName:     map[string]*scene.Object{},
	}
	root, err := b.node(d.Root)
	if err != nil {
		return nil, err
	}
	for _, s := range b.skinned {
		for _, name := range s.bones {
			bone, ok := b.byName[name]
			if !ok {
				return nil, fmt.Errorf("%w: %s has unknown bone %q", ErrInvalidDescription, s.mesh.Name(), name)
			}
			s.mesh.Skin().Bones = append(s.mesh.Skin().Bones, bone)
		}
	}
	return root, nil
}

type skinned struct {
	mesh  *scene.Object
	bones []string
}

type builder struct {
	desc       *Description
	materials  map[string]*scene.Material
	geometries map[string]*scene.Geometry
	byName     map[string]*scene.Object
	skinned    []skinned
}

func (b *builder) node(n Node) (*scene.Object, error) {
	var o *scene.Object
	switch {
	case len(n.Bones) > 0:
		geo, mats, err := b.surface(n)
		if err != nil {
			return nil, err
		}
		o = scene.NewSkinnedMesh(n.Name, geo, nil, mats...)
		b.skinned = append(b.skinned, skinned{mesh: o, bones: n.Bones})
	case n.Geometry != "" || n.Vertices > 0 || n.Kind == core.KindMesh:
		geo, mats, err := b.surface(n)
		if err != nil {
			return nil, err
		}
		o = scene.NewMesh(n.Name, geo, mats...)
	default:
		kind := n.Kind
		if kind == "" {
			kind = core.KindGroup
		}
		o = scene.NewObject(n.Name, kind)
	}

	tr, err := transform(n)
	if err != nil {
		return nil, fmt.Errorf("node %q: %w", n.Name, err)
	}
	o.SetTransform(tr)
	o.SetVisible(!n.Hidden)
	attrs := o.Attributes()
	attrs.Locked = n.Locked
	if n.NoShadow {
		attrs.CastShadow, attrs.ReceiveShadow = false, false
	}
	if n.Intensity != nil && strings.Contains(o.Kind(), "Light") {
		attrs.Intensity = *n.Intensity
	}
	o.SetAttributes(attrs)

	if n.Name != "" {
		if _, taken := b.byName[n.Name]; !taken {
			b.byName[n.Name] = o
		}
	}
	for _, c := range n.Children {
		child, err := b.node(c)
		if err != nil {
			return nil, err
		}
		o.Add(child)
	}
	return o, nil
}

func (b *builder) surface(n Node) (*scene.Geometry, []*scene.Material, error) {
	var geo *scene.Geometry
	switch {
	case n.Geometry != "":
		geo = b.geometries[n.Geometry]
		if geo == nil {
			vertices, ok := b.desc.Geometries[n.Geometry]
			if !ok {
				return nil, nil, fmt.Errorf("%w: node %q uses unknown geometry %q", ErrInvalidDescription, n.Name, n.Geometry)
			}
			geo = scene.NewGeometry(vertices)
			b.geometries[n.Geometry] = geo
		}
	default:
		geo = scene.NewGeometry(n.Vertices)
	}

	mats := make([]*scene.Material, 0, len(n.Materials))
	for _, name := range n.Materials {
		m, err := b.material(name)
		if err != nil {
			return nil, nil, fmt.Errorf("node %q: %w", n.Name, err)
		}
		mats = append(mats, m)
	}
	if len(mats) == 0 {
		mats = append(mats, scene.NewMaterial(n.Name))
	}
	return geo, mats, nil
}

func (b *builder) material(name string) (*scene.Material, error) {
	if m, ok := b.materials[name]; ok {
		return m, nil
	}
	def, ok := b.desc.Materials[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown material %q", ErrInvalidDescription, name)
	}
	m := scene.NewMaterial(name)
	if def.Color != "" {
		m.Color = def.Color
	}
	if def.Emissive != "" {
		m.Emissive = def.Emissive
	}
	if def.EmissiveIntensity != nil {
		m.EmissiveIntensity = *def.EmissiveIntensity
	}
	if def.Metalness != nil {
		m.Metalness = *def.Metalness
	}
	if def.Roughness != nil {
		m.Roughness = *def.Roughness
	}
	if def.Opacity != nil {
		m.Opacity = *def.Opacity
	}
	m.Transparent = def.Transparent
	m.Wireframe = def.Wireframe
	m.MapURL = def.Map
	b.materials[name] = m
	return m, nil
}

func transform(n Node) (core.Transform, error) {
	tr := core.IdentityTransform()
	for _, f := range []struct {
		name string
		in   []float32
		out  *core.Vec3
	}{
		{"position", n.Position, &tr.Position},
		{"rotation", n.Rotation, &tr.Rotation},
		{"scale", n.Scale, &tr.Scale},
	} {
		if f.in == nil {
			continue
		}
		if len(f.in) != 3 {
			return tr, fmt.Errorf("%w: %s needs 3 components, got %d", ErrInvalidDescription, f.name, len(f.in))
		}
		*f.out = core.Vec3{f.in[0], f.in[1], f.in[2]}
	}
	return tr, nil
}
