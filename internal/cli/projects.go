package cli

import (
	"fmt"

	"github.com/omni3d/studio/internal/config"
	"github.com/omni3d/studio/internal/storage"
	"github.com/omni3d/studio/internal/storage/memory"
	"github.com/omni3d/studio/internal/storage/websocket"
	"github.com/spf13/cobra"
)

func (a *app) saveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save <project-file>",
		Short: "Store a project file in the configured backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := memory.ReadProjectFile(args[0])
			if err != nil {
				return err
			}
			b, err := a.openBackend()
			if err != nil {
				return err
			}
			defer closeBackend(b, a.logger())
			if err := b.SaveProject(p); err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), storage.Summarize(p))
		},
	}
}

func (a *app) loadCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "load <project-id>",
		Short: "Load a stored project and write it to a file or stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.openBackend()
			if err != nil {
				return err
			}
			defer closeBackend(b, a.logger())
			p, err := b.LoadProject(args[0])
			if err != nil {
				return err
			}
			if out == "" {
				return writeJSON(cmd.OutOrStdout(), p)
			}
			if err := memory.WriteProjectFile(p, out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s to %s\n", p.ID, out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "file to write the project to")
	return cmd
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.openBackend()
			if err != nil {
				return err
			}
			defer closeBackend(b, a.logger())
			list, err := b.ListProjects()
			if err != nil {
				return err
			}
			if list == nil {
				list = []storage.Summary{}
			}
			return writeJSON(cmd.OutOrStdout(), list)
		},
	}
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete a stored project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.openBackend()
			if err != nil {
				return err
			}
			defer closeBackend(b, a.logger())
			if err := b.DeleteProject(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func (a *app) publishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publish <project-file>",
		Short: "Send a project snapshot to the publish stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := memory.ReadProjectFile(args[0])
			if err != nil {
				return err
			}
			pc := config.GetStorageConfig().Publish
			b := websocket.New(websocket.Config{URL: pc.URL, APIKey: pc.APIKey}, a.logs.Component("publish"))
			if err := b.Init(); err != nil {
				return fmt.Errorf("connecting to %s: %w", pc.URL, err)
			}
			defer closeBackend(b, a.logger())
			if err := b.SaveProject(p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %s\n", p.ID)
			return nil
		},
	}
}
