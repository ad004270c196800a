package cli

import (
	"fmt"

	"github.com/omni3d/studio/internal/config"
	"github.com/omni3d/studio/internal/database"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func (a *app) dbCmd() *cobra.Command {
	var dump bool
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Connect to the project database and migrate its schema",
		Long: `Connects to PostgreSQL with the db settings and migrates the schema. When
the server is unreachable an in-memory SQLite database is used instead;
--dump then writes it to the configured sqlite path.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.GetStorageConfig()
			log := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).
				Level(zerolog.InfoLevel).With().Timestamp().Logger()

			m := database.NewManager(cfg.DB, cfg.SQLite.Path, log)
			if err := m.Connect(); err != nil {
				return err
			}
			defer m.Close()
			if err := m.Setup(); err != nil {
				return err
			}

			backend := "postgres"
			if m.ShouldSaveLocal {
				backend = "sqlite"
				if dump {
					if err := m.DumpMemoryToDisk(); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "dumped to %s\n", m.SqliteFilePath)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema ready on %s\n", backend)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dump, "dump", false, "dump the in-memory fallback database to disk")
	return cmd
}
