package crawler

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
)

// DefaultIgnored are directory names never descended into.
var DefaultIgnored = []string{".git", "target", "vendor", "node_modules"}

// Crawler scans directories for source files.
type Crawler struct {
	accept  func(path string) bool
	ignored []string
}

// NewCrawler creates a crawler that reports files accept returns true for.
// A nil ignored list selects DefaultIgnored.
func NewCrawler(accept func(path string) bool, ignored []string) *Crawler {
	if ignored == nil {
		ignored = DefaultIgnored
	}
	return &Crawler{accept: accept, ignored: ignored}
}

// ScanProject walks root and calls onFile for every accepted file, in
// lexical order. A root that is itself a file is reported when accepted.
func (c *Crawler) ScanProject(ctx context.Context, root string, onFile func(path string) error) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		if c.accepts(root) {
			return onFile(root)
		}
		return nil
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		// Skip ignored directories
		if d.IsDir() {
			if path != root && c.isIgnored(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if !c.accepts(path) {
			return nil
		}
		return onFile(path)
	})
}

// Files collects the accepted files under every root, deduplicated and sorted.
func (c *Crawler) Files(ctx context.Context, roots ...string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, root := range roots {
		err := c.ScanProject(ctx, root, func(path string) error {
			if !seen[path] {
				seen[path] = true
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(files)
	return files, nil
}

func (c *Crawler) isIgnored(name string) bool {
	return slices.Contains(c.ignored, name)
}

func (c *Crawler) accepts(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	return c.accept == nil || c.accept(path)
}
