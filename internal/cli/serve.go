package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/omni3d/studio/internal/asset"
	"github.com/omni3d/studio/internal/config"
	"github.com/omni3d/studio/internal/dispatcher"
	"github.com/omni3d/studio/internal/frame"
	"github.com/omni3d/studio/internal/handlers"
	"github.com/omni3d/studio/internal/influx"
	"github.com/omni3d/studio/internal/logging"
	"github.com/omni3d/studio/internal/monitor"
	"github.com/omni3d/studio/internal/storage"
	"github.com/omni3d/studio/internal/storage/memory"
	"github.com/omni3d/studio/internal/worker"
	"github.com/omni3d/studio/pkg/core"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// reply is written to stdout for every command read from stdin.
type reply struct {
	Command string `json:"command"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (a *app) serveCmd() *cobra.Command {
	var (
		assets    string
		saveEvery int
	)
	cmd := &cobra.Command{
		Use:   "serve <project-file|project-id>",
		Short: "Run the editor core, reading commands from stdin",
		Long: `Opens a project from a file or from the configured store and runs the
frame loop. Editor commands are read from stdin as one JSON event per line,
for example

  {"command":"entity.add","payload":{"kind":"BOX"}}

and every result is written to stdout as one JSON line. The session ends
at end of input or on interrupt; a modified project is saved on the way out.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd, args[0], assets, saveEvery)
		},
	}
	cmd.Flags().StringVar(&assets, "asset-dir", "", "directory model urls are resolved against")
	cmd.Flags().IntVar(&saveEvery, "save-every", 30, "sync flushes between autosaves, 0 disables autosave")
	return cmd
}

// openProject reads ref as a project file when it exists and otherwise
// loads it from the store.
func openProject(b storage.Backend, ref, assets string) (*core.Project, string, error) {
	if _, err := os.Stat(ref); err == nil {
		p, err := memory.ReadProjectFile(ref)
		return p, assetDir(assets, ref), err
	}
	p, err := b.LoadProject(ref)
	if err != nil {
		return nil, "", err
	}
	if assets == "" {
		assets = "."
	}
	return p, assets, nil
}

func (a *app) serve(cmd *cobra.Command, ref, assets string, saveEvery int) error {
	fc := config.GetFrameConfig()
	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}
	log := a.logger()

	b, err := a.openBackend()
	if err != nil {
		return err
	}
	defer closeBackend(b, log)

	p, dir, err := openProject(b, ref, assets)
	if err != nil {
		return err
	}

	journalFile, err := os.Create(logging.JournalFilePath(logsDir, "studio", a.sessionStart))
	if err != nil {
		return fmt.Errorf("creating journal: %w", err)
	}
	defer journalFile.Close()

	var sink monitor.Sink
	inf := influx.NewManager(config.GetInfluxConfig(),
		zerolog.New(journalFile).With().Timestamp().Str("component", "influx").Logger(),
		filepath.Join(logsDir, "frames.lp.gz"))
	switch err := inf.Connect(cmd.Context()); {
	case err == nil:
		sink = inf
		defer inf.Close()
	case errors.Is(err, influx.ErrDisabled):
	default:
		log.Warn("frame telemetry disabled", "error", err)
	}

	mon, err := monitor.NewService(monitor.Dependencies{
		Logger:     a.logs.Component("monitor"),
		Sink:       sink,
		StatusPath: filepath.Join(logsDir, "status.json"),
		ProjectID:  p.ID,
		Interval:   fc.StatsInterval,
	})
	if err != nil {
		return err
	}

	var syncer *worker.Manager
	s, err := a.newSession(p, dir, frame.Mode(fc.Mode), func(st frame.Stats) {
		mon.Observe(st)
		syncer.ObserveFrame(st)
	})
	if err != nil {
		return err
	}
	syncer = worker.NewManager(worker.Dependencies{
		Project:   s.project,
		Backend:   b,
		Logger:    a.logs.Component("sync"),
		SaveEvery: saveEvery,
	})

	// cached between commands: reading the project inside a log call made
	// under Frame would deadlock
	var attrs atomic.Pointer[[]slog.Attr]
	refresh := func() {
		cur := []slog.Attr{
			slog.String("project", s.project.ID()),
			slog.String("mode", string(s.loop.Mode())),
		}
		attrs.Store(&cur)
	}
	refresh()
	a.attrs = func() []slog.Attr {
		if cur := attrs.Load(); cur != nil {
			return *cur
		}
		return nil
	}

	d, err := dispatcher.New(logging.NewJournal(journalFile))
	if err != nil {
		return err
	}
	svc, err := handlers.NewService(handlers.Dependencies{
		Project:  s.project,
		Loop:     s.loop,
		Backend:  b,
		Sync:     syncer,
		Assets:   asset.NewLoader(a.logs.Component("asset")),
		AssetDir: dir,
		Logger:   a.logs.Component("handlers"),
	})
	if err != nil {
		return err
	}
	svc.RegisterHandlers(d)

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := mon.Start(); err != nil {
		return err
	}
	syncer.Start()
	loopDone := make(chan error, 1)
	go func() { loopDone <- s.loop.Run(ctx, fc.Rate) }()
	log.Info("session started", "project", p.ID, "entities", len(p.Entities), "commands", len(d.Commands()))

	err = a.readCommands(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), d, refresh)

	cancel()
	if runErr := <-loopDone; runErr != nil && !errors.Is(runErr, context.Canceled) {
		err = errors.Join(err, runErr)
	}
	d.Close()
	if stopErr := syncer.Stop(); stopErr != nil {
		err = errors.Join(err, stopErr)
	}
	mon.Stop()
	log.Info("session ended", "project", s.project.ID(), "frames", s.loop.LastStats().Frame)
	return err
}

// readCommands dispatches one event per input line until the input ends
// or ctx is done.
func (a *app) readCommands(ctx context.Context, in io.Reader, out io.Writer, d *dispatcher.Dispatcher, after func()) error {
	lines := make(chan []byte)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
		for sc.Scan() {
			line := append([]byte(nil), sc.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	enc := json.NewEncoder(out)
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if len(line) == 0 {
				continue
			}
			if err := enc.Encode(a.handleLine(d, line)); err != nil {
				return fmt.Errorf("writing reply: %w", err)
			}
			after()
		}
	}
}

func (a *app) handleLine(d *dispatcher.Dispatcher, line []byte) reply {
	var e dispatcher.Event
	if err := json.Unmarshal(line, &e); err != nil {
		return reply{Error: fmt.Sprintf("decoding event: %v", err)}
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	res, err := d.Dispatch(e)
	r := reply{Command: e.Command, Result: res}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}
