package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"
)

type ChangedFile struct {
	Path         string
	ChangedLines []int
}

// GetChangedFiles runs git diff in dir and returns the files changed since
// baseRef with their changed line numbers. Paths are absolute; deleted files
// are left out.
func GetChangedFiles(ctx context.Context, dir, baseRef string) ([]ChangedFile, error) {
	top, err := run(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, err
	}
	output, err := run(ctx, dir, "diff", "-U0", "--no-color", baseRef)
	if err != nil {
		return nil, err
	}

	changes, err := parseDiff(output)
	if err != nil {
		return nil, err
	}
	root := strings.TrimSpace(string(top))
	for i := range changes {
		changes[i].Path = filepath.Join(root, filepath.FromSlash(changes[i].Path))
	}
	return changes, nil
}

func run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git %s failed: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return output, nil
}

func parseDiff(output []byte) ([]ChangedFile, error) {
	if len(bytes.TrimSpace(output)) == 0 {
		return nil, nil
	}
	fileDiffs, err := godiff.ParseMultiFileDiff(output)
	if err != nil {
		return nil, fmt.Errorf("failed to parse diff: %w", err)
	}

	var changes []ChangedFile
	for _, fd := range fileDiffs {
		if fd.NewName == "" || fd.NewName == "/dev/null" {
			continue
		}
		currentFile := ChangedFile{Path: cleanPath(fd.NewName), ChangedLines: []int{}}
		for _, hunk := range fd.Hunks {
			startLine := int(hunk.NewStartLine)
			count := int(hunk.NewLines)
			// A pure deletion has no lines in the new file; mark the line it follows.
			if count == 0 {
				currentFile.ChangedLines = append(currentFile.ChangedLines, startLine)
				continue
			}
			for i := 0; i < count; i++ {
				currentFile.ChangedLines = append(currentFile.ChangedLines, startLine+i)
			}
		}
		changes = append(changes, currentFile)
	}
	return changes, nil
}

// cleanPath removes the a/ or b/ prefix from git diff paths.
func cleanPath(path string) string {
	if strings.HasPrefix(path, "a/") || strings.HasPrefix(path, "b/") {
		return path[2:]
	}
	return path
}
