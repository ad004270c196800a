// internal/api/client.go
package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// UploadMetadata describes an uploaded project export.
type UploadMetadata struct {
	ProjectID  string
	Name       string
	Entities   int
	Waypoints  int
	TourLength float64
	Tag        string
}

func (m UploadMetadata) fields(filename string) [][2]string {
	return [][2]string{
		{"projectId", m.ProjectID},
		{"name", m.Name},
		{"filename", filename},
		{"entities", strconv.Itoa(m.Entities)},
		{"waypoints", strconv.Itoa(m.Waypoints)},
		{"tourLength", strconv.FormatFloat(m.TourLength, 'f', 3, 64)},
		{"tag", m.Tag},
	}
}

// Client talks to the scene viewer's HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Healthcheck checks if the viewer is reachable.
func (c *Client) Healthcheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthcheck", nil)
	if err != nil {
		return fmt.Errorf("building healthcheck request: %w", err)
	}
	if err := c.do(req, http.StatusOK); err != nil {
		return fmt.Errorf("healthcheck: %w", err)
	}
	return nil
}

// Upload streams a project export to the viewer as a multipart form.
func (c *Client) Upload(ctx context.Context, filePath string, meta UploadMetadata) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("opening export: %w", err)
	}
	defer file.Close()

	name := filepath.Base(filePath)
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeForm(form, meta.fields(name), name, file))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/projects", pr)
	if err != nil {
		pr.Close()
		return fmt.Errorf("building upload request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if err := c.do(req, http.StatusOK, http.StatusCreated); err != nil {
		return fmt.Errorf("upload %s: %w", name, err)
	}
	return nil
}

func writeForm(form *multipart.Writer, fields [][2]string, filename string, body io.Reader) error {
	for _, f := range fields {
		if err := form.WriteField(f[0], f[1]); err != nil {
			return err
		}
	}
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, body); err != nil {
		return err
	}
	return form.Close()
}

// do sends req and fails unless the status is one of ok. A short excerpt
// of an error body is kept in the error.
func (c *Client) do(req *http.Request, ok ...int) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	for _, code := range ok {
		if resp.StatusCode == code {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
	}
	excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	if msg := strings.TrimSpace(string(excerpt)); msg != "" {
		return fmt.Errorf("status %d: %s", resp.StatusCode, msg)
	}
	return fmt.Errorf("status %d", resp.StatusCode)
}
