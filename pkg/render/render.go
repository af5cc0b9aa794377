// Package render exports finished reports as markdown and HTML artifacts.
package render

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"

	"analyst/pkg/config"
	"analyst/pkg/logx"
)

const htmlShell = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: Georgia, serif; max-width: 900px; margin: 2rem auto; padding: 0 1rem; line-height: 1.6; color: #1f2933; }
h1, h2, h3 { font-family: Helvetica, Arial, sans-serif; color: #102a43; }
table { border-collapse: collapse; width: 100%%; }
th, td { border: 1px solid #cbd2d9; padding: 0.4rem 0.6rem; text-align: left; }
code { background: #f0f4f8; padding: 0.1rem 0.3rem; }
</style>
</head>
<body>
%s</body>
</html>
`

// Renderer writes report artifacts under a fixed output directory.
type Renderer struct {
	outputDir string
	markdown  goldmark.Markdown
	logger    *logx.Logger
	now       func() time.Time
}

// NewRenderer creates a renderer rooted at outputDir. The directory is
// created on first render, not here.
func NewRenderer(outputDir string) *Renderer {
	return &Renderer{
		outputDir: outputDir,
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(goldmarkhtml.WithUnsafe()),
		),
		logger: logx.NewLogger("render"),
		now:    time.Now,
	}
}

// Render writes the markdown artifact and its HTML conversion, returning
// both paths. Either file failing fails the whole export.
func (r *Renderer) Render(ticker, mode, markdown string) (string, string, error) {
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create output directory %s: %w", r.outputDir, err)
	}

	now := r.now()
	base := fmt.Sprintf("%s_%s_report_%s", ticker, mode, now.Format("20060102_150405"))
	mdPath := filepath.Join(r.outputDir, base+".md")
	htmlPath := filepath.Join(r.outputDir, base+".html")

	title := titleFor(ticker, mode)
	document := fmt.Sprintf("# %s\n\nGenerated: %s\n\n---\n\n%s\n", title, now.Format("2006-01-02 15:04:05"), markdown)

	if err := os.WriteFile(mdPath, []byte(document), 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write markdown artifact: %w", err)
	}

	var body bytes.Buffer
	if err := r.markdown.Convert([]byte(document), &body); err != nil {
		return "", "", fmt.Errorf("failed to convert report to HTML: %w", err)
	}
	page := fmt.Sprintf(htmlShell, title, body.String())
	if err := os.WriteFile(htmlPath, []byte(page), 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write HTML artifact: %w", err)
	}

	r.logger.Debug("rendered %s and %s", mdPath, htmlPath)
	return mdPath, htmlPath, nil
}

// ListArtifacts returns the artifact filenames currently in the output
// directory, newest first. A missing directory is an empty listing.
func (r *Renderer) ListArtifacts() ([]string, error) {
	entries, err := os.ReadDir(r.outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	type stamped struct {
		name    string
		modTime time.Time
	}
	var files []stamped
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, stamped{name: entry.Name(), modTime: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].modTime.After(files[j].modTime) })

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.name
	}
	return names, nil
}

// ArtifactPath resolves a bare artifact filename inside the output
// directory, rejecting any path that escapes it.
func (r *Renderer) ArtifactPath(name string) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}
	path := filepath.Join(r.outputDir, name)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("artifact %s not found: %w", name, err)
	}
	return path, nil
}

func titleFor(ticker, mode string) string {
	if mode == config.ModeTeam {
		return fmt.Sprintf("Team Investment Analysis Report: %s", ticker)
	}
	return fmt.Sprintf("Investment Analysis Report: %s", ticker)
}
