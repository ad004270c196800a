// Package cli provides the command-line interface for studio.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/omni3d/studio/internal/config"
	"github.com/omni3d/studio/internal/logging"
	"github.com/omni3d/studio/internal/otel"
	"github.com/omni3d/studio/internal/storage"
	"github.com/omni3d/studio/internal/storage/factory"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is set at build time.
var Version = "0.1.0"

// app holds the state shared by all commands of one invocation.
type app struct {
	configDir   string
	logLevel    string
	storageType string

	sessionStart time.Time
	logs         *logging.SlogManager
	provider     *otel.Provider
	logFile      *os.File
	// attrs feeds the context handler; serve replaces it with the live
	// editor state.
	attrs func() []slog.Attr
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{logs: logging.NewSlogManager()}

	root := &cobra.Command{
		Use:   "studio",
		Short: "3D scene authoring core",
		Long: `Studio keeps a declarative scene description and a live render graph in
step: it reconciles imported asset structures, plays keyframe animations,
flies camera tours and persists projects to the configured store.`,
		Version:           Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}
	root.PersistentFlags().StringVarP(&a.configDir, "config", "c", ".", "directory holding "+config.FileName+".json")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override the configured log level")
	root.PersistentFlags().StringVar(&a.storageType, "storage", "", "override the configured storage type")

	root.AddCommand(
		a.deriveCmd(),
		a.reconcileCmd(),
		a.playCmd(),
		a.tourCmd(),
		a.saveCmd(),
		a.loadCmd(),
		a.listCmd(),
		a.deleteCmd(),
		a.publishCmd(),
		a.uploadCmd(),
		a.serveCmd(),
		a.dbCmd(),
	)
	return root
}

// Execute runs the CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

// setup loads configuration and builds the logger. A missing config file
// leaves the defaults in place.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	a.sessionStart = time.Now()
	if err := config.Load(a.configDir); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
	}
	if a.logLevel != "" {
		viper.Set("logLevel", a.logLevel)
	}
	if a.storageType != "" {
		viper.Set("storage.type", a.storageType)
	}

	otelCfg := config.GetOTelConfig()
	var otelOut io.Writer
	if otelCfg.Enabled {
		logsDir := config.GetString("logsDir")
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			return fmt.Errorf("creating logs dir: %w", err)
		}
		f, err := os.Create(logging.LogFilePath(logsDir, "studio", a.sessionStart))
		if err != nil {
			return fmt.Errorf("creating log file: %w", err)
		}
		a.logFile = f
		otelOut = f
	}
	provider, err := otel.New(otelCfg, otelOut)
	if err != nil {
		return fmt.Errorf("setting up telemetry: %w", err)
	}
	a.provider = provider

	a.logs.Setup(logging.Options{
		Level:    config.GetString("logLevel"),
		File:     cmd.ErrOrStderr(),
		Provider: provider.LoggerProvider(),
		Context: func() []slog.Attr {
			if a.attrs == nil {
				return nil
			}
			return a.attrs()
		},
	})
	return nil
}

func (a *app) teardown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var errs []error
	if err := a.logs.Flush(ctx); err != nil {
		errs = append(errs, err)
	}
	if a.provider != nil {
		if err := a.provider.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.logFile != nil {
		errs = append(errs, a.logFile.Close())
	}
	return errors.Join(errs...)
}

func (a *app) logger() *slog.Logger {
	return a.logs.Logger()
}

// openBackend creates and initializes the configured store.
func (a *app) openBackend() (storage.Backend, error) {
	b, err := factory.NewBackend(config.GetStorageConfig(), a.logs.Component("storage"))
	if err != nil {
		return nil, err
	}
	if err := b.Init(); err != nil {
		return nil, fmt.Errorf("initializing %s storage: %w", config.GetStorageConfig().Type, err)
	}
	return b, nil
}

func closeBackend(b storage.Backend, log *slog.Logger) {
	if err := b.Close(); err != nil {
		log.Error("closing storage failed", "error", err)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// assetDir resolves model URLs of a project file relative to the file.
func assetDir(flag, projectFile string) string {
	if flag != "" {
		return flag
	}
	return filepath.Dir(projectFile)
}
