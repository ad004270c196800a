package cli

import (
	"fmt"
	"os"

	"github.com/omni3d/studio/internal/api"
	"github.com/omni3d/studio/internal/config"
	"github.com/omni3d/studio/internal/geo"
	"github.com/omni3d/studio/internal/storage"
	"github.com/omni3d/studio/internal/storage/memory"
	"github.com/spf13/cobra"
)

func (a *app) uploadCmd() *cobra.Command {
	var tag string
	cmd := &cobra.Command{
		Use:   "upload <project-file>",
		Short: "Export a project and upload it to the scene viewer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := memory.ReadProjectFile(args[0])
			if err != nil {
				return err
			}
			vc := config.GetViewerConfig()
			if tag == "" {
				tag = vc.Tag
			}

			tmp, err := os.MkdirTemp("", "studio-upload-")
			if err != nil {
				return err
			}
			defer os.RemoveAll(tmp)

			var b storage.Backend = memory.New(config.MemoryConfig{OutputDir: tmp, CompressOutput: true}, a.logs.Component("upload"))
			if err := b.SaveProject(p); err != nil {
				return err
			}
			path := b.(storage.Exporter).LastExportPath()

			client := api.New(vc.URL, vc.APIKey)
			if err := client.Healthcheck(cmd.Context()); err != nil {
				return fmt.Errorf("viewer at %s: %w", vc.URL, err)
			}
			sum := storage.Summarize(p)
			err = client.Upload(cmd.Context(), path, api.UploadMetadata{
				ProjectID:  p.ID,
				Name:       p.Name,
				Entities:   sum.Entities,
				Waypoints:  sum.Waypoints,
				TourLength: geo.PathLength(geo.TourPath(p.Waypoints)),
				Tag:        tag,
			})
			if err != nil {
				return err
			}
			a.logger().Info("project uploaded", "project", p.ID, "viewer", vc.URL)
			fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s\n", p.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&tag, "tag", "", "tag shown by the viewer (default: viewer.tag)")
	return cmd
}
