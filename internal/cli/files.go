package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var documentExtensions = map[string]bool{
	".txt":      true,
	".text":     true,
	".md":       true,
	".markdown": true,
	".pdf":      true,
	".docx":     true,
}

// IsDocumentFile reports whether path has an extension the extractor understands.
func IsDocumentFile(path string) bool {
	return documentExtensions[strings.ToLower(filepath.Ext(path))]
}

// CollectFiles expands paths into a sorted, de-duplicated list of files. Files named
// explicitly are kept whatever their extension; directories contribute only document
// files and are descended into when recursive is set. Hidden entries inside directories
// are skipped.
func CollectFiles(paths []string, recursive bool) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", root, err)
		}
		if !info.IsDir() {
			add(filepath.Clean(root))
			continue
		}

		err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if p != root && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				if p != root && !recursive {
					return filepath.SkipDir
				}
				return nil
			}
			if IsDocumentFile(p) {
				add(filepath.Clean(p))
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", root, err)
		}
	}

	sort.Strings(files)
	return files, nil
}
