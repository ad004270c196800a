package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/omni3d/studio/internal/asset"
	"github.com/omni3d/studio/internal/config"
	"github.com/omni3d/studio/internal/frame"
	"github.com/omni3d/studio/internal/handlers"
	"github.com/omni3d/studio/internal/project"
	"github.com/omni3d/studio/internal/reconcile"
	"github.com/omni3d/studio/internal/scene"
	"github.com/omni3d/studio/internal/storage/memory"
	"github.com/omni3d/studio/pkg/core"
	"github.com/spf13/cobra"
)

// liveNode is the printable form of a live graph node.
type liveNode struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Kind      string         `json:"kind"`
	Visible   bool           `json:"visible"`
	Transform core.Transform `json:"transform"`
	Children  []liveNode     `json:"children,omitempty"`
}

func describe(n scene.LiveNode) liveNode {
	out := liveNode{
		ID:        n.Identity(),
		Name:      n.Name(),
		Kind:      n.Kind(),
		Visible:   n.Visible(),
		Transform: n.Transform(),
	}
	for _, c := range n.Children() {
		out.Children = append(out.Children, describe(c))
	}
	return out
}

func projectOptions(log *slog.Logger) project.Options {
	fc := config.GetFrameConfig()
	return project.Options{
		ReferenceSpeed: fc.ReferenceSpeed,
		HistoryLimit:   fc.HistoryLimit,
		Logger:         log,
	}
}

// session is a project opened from a file with its frame loop.
type session struct {
	project *project.Context
	loop    *frame.Loop
}

func (a *app) openSession(path, assets string, mode frame.Mode, observer func(frame.Stats)) (*session, error) {
	p, err := memory.ReadProjectFile(path)
	if err != nil {
		return nil, err
	}
	return a.newSession(p, assetDir(assets, path), mode, observer)
}

func (a *app) newSession(p *core.Project, assets string, mode frame.Mode, observer func(frame.Stats)) (*session, error) {
	c := project.FromProject(p, projectOptions(a.logs.Component("project")))
	l, err := frame.New(frame.Dependencies{
		Project:  c,
		Logger:   a.logs.Component("frame"),
		Observer: observer,
	}, mode)
	if err != nil {
		return nil, err
	}
	s := &session{project: c, loop: l}
	if _, err := handlers.AttachModels(c, l, asset.NewLoader(a.logs.Component("asset")), assets); err != nil {
		return nil, err
	}
	return s, nil
}

func (a *app) deriveCmd() *cobra.Command {
	var anims []string
	cmd := &cobra.Command{
		Use:   "derive <asset>",
		Short: "Print the structure tree derived from an asset description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			live, names, err := asset.NewLoader(a.logger()).Load(args[0])
			if err != nil {
				return err
			}
			if len(anims) > 0 {
				names = anims
			}
			return writeJSON(cmd.OutOrStdout(), reconcile.DeriveTree(live, names))
		},
	}
	cmd.Flags().StringSliceVar(&anims, "animations", nil, "override the animation names recorded on the root")
	return cmd
}

func (a *app) reconcileCmd() *cobra.Command {
	var assets string
	cmd := &cobra.Command{
		Use:   "reconcile <project-file>",
		Short: "Reconcile a project file once and print the live graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(args[0], assets, frame.ModeEdit, nil)
			if err != nil {
				return err
			}
			st := s.loop.Tick(time.Now())
			return writeJSON(cmd.OutOrStdout(), struct {
				Reconciled int             `json:"reconciled"`
				Stats      reconcile.Stats `json:"stats"`
				Graph      liveNode        `json:"graph"`
			}{st.Reconciled, st.Reconcile, describe(s.loop.Graph().Root())})
		},
	}
	cmd.Flags().StringVar(&assets, "asset-dir", "", "directory model urls are resolved against (default: the project file's directory)")
	return cmd
}

func (a *app) playCmd() *cobra.Command {
	var (
		assets   string
		entityID string
		animID   string
		at       float32
		mode     string
	)
	cmd := &cobra.Command{
		Use:   "play <project-file>",
		Short: "Pose an animation and print the animated nodes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if entityID == "" || animID == "" {
				return fmt.Errorf("--entity and --animation are required")
			}
			s, err := a.openSession(args[0], assets, frame.Mode(mode), nil)
			if err != nil {
				return err
			}
			now := time.Now()
			var st frame.Stats
			switch s.loop.Mode() {
			case frame.ModePreview:
				if _, err := s.project.ToggleAnimation(entityID, animID); err != nil {
					return err
				}
				s.loop.Tick(now)
				st = s.loop.Tick(now.Add(time.Duration(at * float32(time.Second))))
			default:
				if err := s.project.OpenTimeline(entityID, animID); err != nil {
					return err
				}
				if err := s.project.Scrub(at); err != nil {
					return err
				}
				st = s.loop.Tick(now)
			}
			w, ok := s.loop.Wrapper(entityID)
			if !ok {
				return fmt.Errorf("entity %s has no live root", entityID)
			}
			return writeJSON(cmd.OutOrStdout(), struct {
				Mode   frame.Mode `json:"mode"`
				At     float32    `json:"at"`
				Posed  bool       `json:"posed"`
				Entity liveNode   `json:"entity"`
			}{s.loop.Mode(), at, st.Posed, describe(w)})
		},
	}
	cmd.Flags().StringVar(&assets, "asset-dir", "", "directory model urls are resolved against")
	cmd.Flags().StringVar(&entityID, "entity", "", "entity owning the animation")
	cmd.Flags().StringVar(&animID, "animation", "", "animation id")
	cmd.Flags().Float32Var(&at, "at", 0, "time in seconds")
	cmd.Flags().StringVar(&mode, "mode", string(frame.ModeEdit), "playback policy: edit or preview")
	return cmd
}

// tourSample is one printed step of a camera tour.
type tourSample struct {
	At       float32   `json:"at"`
	Index    int       `json:"index"`
	Progress float32   `json:"progress"`
	Camera   core.Vec3 `json:"camera"`
}

func (a *app) tourCmd() *cobra.Command {
	var (
		duration time.Duration
		step     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "tour <project-file>",
		Short: "Fly the camera tour and print its path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if step <= 0 {
				return fmt.Errorf("--step must be positive")
			}
			s, err := a.openSession(args[0], "", frame.ModeEdit, nil)
			if err != nil {
				return err
			}
			start := time.Now()
			if !s.loop.ToggleTour(start) {
				return fmt.Errorf("a tour needs at least two waypoints")
			}
			var samples []tourSample
			for t := time.Duration(0); t <= duration; t += step {
				st := s.loop.Tick(start.Add(t))
				samples = append(samples, tourSample{
					At:       float32(t.Seconds()),
					Index:    st.TourIndex,
					Progress: st.TourProgress,
					Camera:   st.Camera,
				})
			}
			return writeJSON(cmd.OutOrStdout(), samples)
		},
	}
	cmd.Flags().DurationVar(&duration, "duration", 10*time.Second, "how long to fly")
	cmd.Flags().DurationVar(&step, "step", 500*time.Millisecond, "time between samples")
	return cmd
}
