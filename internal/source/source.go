// Package source collects note documents from a directory or a git
// repository for bulk import.
package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/conorfennell/knolcards/internal/gitsource"
)

// Extensions lists the file suffixes treated as notes.
var Extensions = []string{".md", ".markdown", ".txt"}

// Document is a note read from disk. Name is the slash separated path
// relative to the collected root.
type Document struct {
	Name    string
	Content string
}

// Collect reads every note file under dir, skipping hidden directories.
// Documents are returned sorted by name.
func Collect(dir string) ([]Document, error) {
	var docs []Document
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !isNote(d.Name()) {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", path, err)
		}
		docs = append(docs, Document{Name: filepath.ToSlash(rel), Content: string(data)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking directory %s: %w", dir, err)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}

func isNote(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range Extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// Options selects where notes come from. Exactly one of Dir and GitURL is
// set; git repositories are cloned under ReposDir.
type Options struct {
	Dir      string
	GitURL   string
	ReposDir string
}

// Load collects documents from a local directory, or syncs a git
// repository and collects from its working tree.
func Load(ctx context.Context, logger *slog.Logger, opts Options) ([]Document, error) {
	switch {
	case opts.Dir != "" && opts.GitURL != "":
		return nil, errors.New("only one of a directory or a git url can be given")
	case opts.Dir != "":
		return Collect(opts.Dir)
	case opts.GitURL != "":
		localPath, err := gitsource.LocalPath(opts.ReposDir, opts.GitURL)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create repos directory: %w", err)
		}
		if err := gitsource.Sync(ctx, logger, opts.GitURL, localPath); err != nil {
			return nil, err
		}
		return Collect(localPath)
	default:
		return nil, errors.New("a directory or a git url is required")
	}
}
