// Package dataloader reads a directory of text documents.
package dataloader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Load returns the contents of every *.txt file directly inside dir, keyed
// by file name. Subdirectories are not read.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("dataloader: read dir: %w", err)
	}

	data := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		b, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("dataloader: read %s: %w", e.Name(), err)
		}
		data[e.Name()] = string(b)
	}
	return data, nil
}
