package sources

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jwebster45206/interaction-relay/pkg/interaction"
)

// DefaultRelativePath is where each mod keeps its interaction definitions.
const DefaultRelativePath = "data/MESInteractions_Config.xml"

// LoadDir reads <root>/<mod>/<relPath> for every mod directory under root,
// in lexical mod order. Each source is named after its mod directory. Mods
// without the file are skipped silently; unreadable files are logged and
// skipped. A missing root yields no sources.
func LoadDir(root, relPath string, logger *slog.Logger) ([]interaction.Source, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if relPath == "" {
		relPath = DefaultRelativePath
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("Mods directory does not exist", "path", root)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list mods directory: %w", err)
	}

	var out []interaction.Source
	for _, entry := range entries {
		if !isDir(root, entry) {
			continue
		}

		path := filepath.Join(root, entry.Name(), filepath.FromSlash(relPath))
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logger.Debug("Mod has no interaction config", "mod", entry.Name())
				continue
			}
			logger.Warn("Failed to read interaction config", "mod", entry.Name(), "path", path, "error", err)
			continue
		}

		logger.Debug("Loaded interaction config", "mod", entry.Name(), "path", path, "bytes", len(data))
		out = append(out, interaction.Source{Name: entry.Name(), Data: data})
	}

	return out, nil
}

// isDir follows symlinks so linked mod folders are picked up.
func isDir(root string, entry fs.DirEntry) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(root, entry.Name()))
	return err == nil && info.IsDir()
}
