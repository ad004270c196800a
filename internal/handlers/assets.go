package handlers

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/omni3d/studio/internal/frame"
	"github.com/omni3d/studio/internal/project"
	"github.com/omni3d/studio/pkg/core"
)

// AttachModels loads the asset of every model entity in c that has no live
// asset in l yet and hands it to the loop. Load failures are joined; the
// other models are still attached. It returns the number attached.
func AttachModels(c *project.Context, l *frame.Loop, loader AssetLoader, dir string) (int, error) {
	var models []*core.Entity
	for _, root := range c.Project().Entities {
		root.Walk(func(e *core.Entity) {
			if e.Kind == core.EntityModel && e.URL != "" && !l.HasAsset(e.ID) {
				models = append(models, e)
			}
		})
	}

	var errs []error
	attached := 0
	for _, e := range models {
		live, _, err := loader.Load(assetPath(dir, e.URL))
		if err != nil {
			errs = append(errs, fmt.Errorf("entity %s: %w", e.ID, err))
			continue
		}
		l.AttachAsset(e.ID, live)
		attached++
	}
	return attached, errors.Join(errs...)
}

func assetPath(dir, url string) string {
	if dir == "" || filepath.IsAbs(url) {
		return url
	}
	return filepath.Join(dir, url)
}

// attachModels reloads assets for model entities that came back without
// one: duplicates, history steps and freshly opened projects.
func (s *Service) attachModels(command string) {
	if s.deps.Assets == nil {
		return
	}
	n, err := AttachModels(s.deps.Project, s.deps.Loop, s.deps.Assets, s.deps.AssetDir)
	if err != nil {
		s.deps.Logger.Warn("model assets not loaded", "command", command, "error", err)
	}
	if n > 0 {
		s.deps.Logger.Debug("model assets attached", "command", command, "count", n)
	}
}
