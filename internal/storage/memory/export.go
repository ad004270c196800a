// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/omni3d/studio/internal/geo"
	"github.com/omni3d/studio/pkg/core"
)

// FormatVersion is written into every export.
const FormatVersion = 1

// ProjectExport is the root JSON structure of an export file.
type ProjectExport struct {
	FormatVersion int           `json:"formatVersion"`
	ExportedAt    time.Time     `json:"exportedAt"`
	TourLength    float64       `json:"tourLength"`
	Project       *core.Project `json:"project"`
}

func isExport(name string) bool {
	return strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".json.gz")
}

// exportFileName derives a file name from the project id.
func exportFileName(id string, compress bool) string {
	name := strings.NewReplacer(" ", "_", ":", "_", "/", "_", "\\", "_").Replace(id)
	if compress {
		return name + ".json.gz"
	}
	return name + ".json"
}

// exportJSON writes p to the output directory and returns the file path.
func (b *Backend) exportJSON(p *core.Project) (string, error) {
	export := ProjectExport{
		FormatVersion: FormatVersion,
		ExportedAt:    time.Now().UTC(),
		TourLength:    geo.PathLength(geo.TourPath(p.Waypoints)),
		Project:       p,
	}

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(b.cfg.OutputDir, exportFileName(p.ID, b.cfg.CompressOutput))

	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, export)
	} else {
		err = writeJSON(outputPath, export)
	}
	if err != nil {
		return "", err
	}

	b.lastExportPath = outputPath
	return outputPath, nil
}

func writeJSON(path string, data any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func writeGzipJSON(path string, data any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gw := gzip.NewWriter(f)
	if err := json.NewEncoder(gw).Encode(data); err != nil {
		gw.Close()
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	if err := gw.Close(); err != nil {
		return fmt.Errorf("failed to close gzip writer: %w", err)
	}
	return nil
}

var errNoProject = errors.New("export has no project")

// readFile returns the contents of a plain or gzipped file.
func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gr.Close()
		r = gr
	}
	return io.ReadAll(r)
}

// readExport reads a plain or gzipped export file.
func readExport(path string) (*ProjectExport, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	var export ProjectExport
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("failed to decode export: %w", err)
	}
	if export.Project == nil || export.Project.ID == "" {
		return nil, errNoProject
	}
	if export.FormatVersion > FormatVersion {
		return nil, fmt.Errorf("export format %d is newer than %d", export.FormatVersion, FormatVersion)
	}
	return &export, nil
}

// ReadProjectFile reads a project from an export file or from a bare
// project document.
func ReadProjectFile(path string) (*core.Project, error) {
	export, err := readExport(path)
	if err == nil {
		return export.Project, nil
	}
	if !errors.Is(err, errNoProject) {
		return nil, err
	}
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	var p core.Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode project: %w", err)
	}
	if p.ID == "" {
		return nil, fmt.Errorf("%s: %w", path, errNoProject)
	}
	return &p, nil
}

// WriteProjectFile writes p as an uncompressed export.
func WriteProjectFile(p *core.Project, path string) error {
	return writeJSON(path, ProjectExport{
		FormatVersion: FormatVersion,
		ExportedAt:    time.Now().UTC(),
		TourLength:    geo.PathLength(geo.TourPath(p.Waypoints)),
		Project:       p,
	})
}
