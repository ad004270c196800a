// Package binding folds live data-source values into the declarative model.
package binding

import (
	"log/slog"
	"math"
	"strings"

	"github.com/omni3d/studio/internal/binding/expr"
	"github.com/omni3d/studio/pkg/core"
)

// Values holds the latest tag values per data source.
type Values map[int]map[string]any

// Paths recognized by the folder. Anything else is ignored.
const (
	PathPosition                  = "position"
	PathRotation                  = "rotation"
	PathScale                     = "scale"
	PathVisible                   = "visible"
	PathIntensity                 = "intensity"
	PathMaterialColor             = "material.color"
	PathMaterialEmissive          = "material.emissive"
	PathMaterialMetalness         = "material.metalness"
	PathMaterialRoughness         = "material.roughness"
	PathMaterialOpacity           = "material.opacity"
	PathMaterialTransparent       = "material.transparent"
	PathMaterialWireframe         = "material.wireframe"
	PathMaterialEmissiveIntensity = "material.emissiveIntensity"
)

// Folder applies bindings, caching compiled expressions by source text.
type Folder struct {
	logger   *slog.Logger
	programs map[string]*expr.Program
	failed   map[string]struct{}
}

// NewFolder creates a Folder.
func NewFolder(logger *slog.Logger) *Folder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Folder{
		logger:   logger,
		programs: map[string]*expr.Program{},
		failed:   map[string]struct{}{},
	}
}

// target is the set of writable fields of an entity root or structure node.
type target struct {
	transform *core.Transform
	visible   *bool
	intensity **float32
	material  **core.MaterialOverride
}

// Apply folds every enabled binding of e (not of nested entities) and
// reports whether any declarative field changed. Missing values, failed
// expressions, unknown node ids and unknown paths are skipped.
func (f *Folder) Apply(e *core.Entity, values Values) bool {
	changed := false
	for key, b := range e.Bindings {
		if !b.Enabled {
			continue
		}
		raw, ok := values[b.DataSourceID][b.TagKey]
		if !ok {
			continue
		}
		v, ok := f.transform(b.Expression, raw)
		if !ok {
			continue
		}

		var tgt target
		nodeID, path, scoped := strings.Cut(key, ":")
		if scoped {
			n := e.Structure.Find(nodeID)
			if n == nil {
				continue
			}
			tgt = target{&n.Transform, &n.Visible, &n.Intensity, &n.Material}
		} else {
			path = key
			tgt = target{&e.Transform, &e.Visible, &e.Intensity, &e.Material}
		}
		if fold(tgt, path, v) {
			changed = true
		}
	}
	return changed
}

func (f *Folder) transform(src string, raw any) (any, bool) {
	if src == "" {
		return expr.Normalize(raw), true
	}
	if _, bad := f.failed[src]; bad {
		return nil, false
	}
	p, ok := f.programs[src]
	if !ok {
		var err error
		p, err = expr.Compile(src)
		if err != nil {
			f.logger.Warn("invalid binding expression", "expression", src, "error", err)
			f.failed[src] = struct{}{}
			return nil, false
		}
		f.programs[src] = p
	}
	v, err := p.Eval(map[string]any{"value": raw})
	if err != nil {
		f.logger.Debug("binding expression failed", "expression", src, "error", err)
		return nil, false
	}
	return v, true
}

func fold(t target, path string, v any) bool {
	switch path {
	case PathPosition:
		return setVec(&t.transform.Position, v)
	case PathRotation:
		return setVec(&t.transform.Rotation, v)
	case PathScale:
		return setVec(&t.transform.Scale, v)
	case PathVisible:
		b, ok := toBool(v)
		if !ok || *t.visible == b {
			return false
		}
		*t.visible = b
		return true
	case PathIntensity:
		n, ok := toFloat(v)
		if !ok || (*t.intensity != nil && **t.intensity == n) {
			return false
		}
		*t.intensity = &n
		return true
	}

	if !strings.HasPrefix(path, "material.") {
		return false
	}
	m := (*t.material).Clone()
	if m == nil {
		m = &core.MaterialOverride{}
	}
	var changed bool
	switch path {
	case PathMaterialColor:
		changed = setString(&m.Color, v)
	case PathMaterialEmissive:
		changed = setString(&m.Emissive, v)
	case PathMaterialMetalness:
		changed = setFloat(&m.Metalness, v)
	case PathMaterialRoughness:
		changed = setFloat(&m.Roughness, v)
	case PathMaterialOpacity:
		changed = setFloat(&m.Opacity, v)
	case PathMaterialEmissiveIntensity:
		changed = setFloat(&m.EmissiveIntensity, v)
	case PathMaterialTransparent:
		changed = setBool(&m.Transparent, v)
	case PathMaterialWireframe:
		changed = setBool(&m.Wireframe, v)
	}
	if changed {
		*t.material = m
	}
	return changed
}

func setVec(dst *core.Vec3, v any) bool {
	arr, ok := v.([]any)
	if !ok {
		return false
	}
	var next core.Vec3
	for i := range next {
		if i < len(arr) {
			if f, ok := toFloat(arr[i]); ok {
				next[i] = f
			}
		}
	}
	if next == *dst {
		return false
	}
	*dst = next
	return true
}

func setString(dst *string, v any) bool {
	s, ok := v.(string)
	if !ok || *dst == s {
		return false
	}
	*dst = s
	return true
}

func setFloat(dst **float32, v any) bool {
	f, ok := toFloat(v)
	if !ok || (*dst != nil && **dst == f) {
		return false
	}
	*dst = &f
	return true
}

func setBool(dst **bool, v any) bool {
	b, ok := toBool(v)
	if !ok || (*dst != nil && **dst == b) {
		return false
	}
	*dst = &b
	return true
}

func toFloat(v any) (float32, bool) {
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) {
		return 0, false
	}
	return float32(f), true
}

func toBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case float64:
		return t != 0, true
	case string:
		switch t {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}
