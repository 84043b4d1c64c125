// Package workspace manages staging directories for builds, supporting both
// ephemeral (timestamped) and persistent (fixed-path) modes.
//
// Ephemeral mode creates timestamped directories (e.g., assetpipe-20260830-122336)
// suitable for one-time builds, cleaning up completely after use.
//
// Persistent mode uses a fixed directory path that persists across builds,
// which keeps staged artifacts inspectable after a failed publish.
package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/assetpipe/internal/logfields"
)

// Manager handles staging directory operations (both temporary and persistent)
type Manager struct {
	baseDir    string
	stagingDir string
	persistent bool // If true, use the fixed directory without timestamps
}

// NewManager creates a workspace manager with ephemeral timestamped directories
func NewManager(baseDir string) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	return &Manager{
		baseDir:    baseDir,
		persistent: false,
	}
}

// NewPersistentManager creates a workspace manager that uses a persistent
// directory. The staging directory is fixed (baseDir/subdirName) and not
// removed on Cleanup().
func NewPersistentManager(baseDir, subdirName string) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	if subdirName == "" {
		subdirName = "staging"
	}
	return &Manager{
		baseDir:    baseDir,
		stagingDir: filepath.Join(baseDir, subdirName),
		persistent: true,
	}
}

// Create creates the staging directory.
// For ephemeral mode: creates a timestamped directory.
// For persistent mode: ensures the fixed directory exists and is empty.
func (m *Manager) Create() error {
	if m.persistent {
		// Stale artifacts from a previous run must not leak into publish.
		if err := os.RemoveAll(m.stagingDir); err != nil {
			return fmt.Errorf("failed to clear persistent staging directory: %w", err)
		}
		if err := os.MkdirAll(m.stagingDir, 0o750); err != nil {
			return fmt.Errorf("failed to create persistent staging directory: %w", err)
		}
		slog.Debug("Using persistent staging directory", logfields.Path(m.stagingDir))
		return nil
	}

	timestamp := time.Now().Format("20060102-150405")
	stagingDir := filepath.Join(m.baseDir, fmt.Sprintf("assetpipe-%s", timestamp))

	if err := os.MkdirAll(stagingDir, 0o750); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}

	m.stagingDir = stagingDir
	slog.Debug("Created staging directory", logfields.Path(stagingDir))
	return nil
}

// GetPath returns the path to the staging directory
func (m *Manager) GetPath() string {
	return m.stagingDir
}

// WriteFile writes an artifact into the staging directory, creating parent
// directories as needed. rel must be a relative path.
func (m *Manager) WriteFile(rel string, data []byte) error {
	if m.stagingDir == "" {
		return fmt.Errorf("staging directory not created")
	}
	dst := filepath.Join(m.stagingDir, rel)
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}
	if err := os.WriteFile(dst, data, 0o640); err != nil {
		return fmt.Errorf("failed to write staged artifact %s: %w", rel, err)
	}
	return nil
}

// Publish moves the staged tree into outputDir. The output directory is
// fully replaced: a rename swap when possible, otherwise remove-then-copy.
// After Publish the staging directory no longer exists.
func (m *Manager) Publish(outputDir string) error {
	if m.stagingDir == "" {
		return fmt.Errorf("staging directory not created")
	}

	if err := os.MkdirAll(filepath.Dir(outputDir), 0o750); err != nil {
		return fmt.Errorf("failed to create output parent: %w", err)
	}
	if err := os.RemoveAll(outputDir); err != nil {
		return fmt.Errorf("failed to clear output directory: %w", err)
	}

	if err := os.Rename(m.stagingDir, outputDir); err != nil {
		// Rename fails across filesystems; fall back to a recursive copy.
		if copyErr := copyTree(m.stagingDir, outputDir); copyErr != nil {
			return fmt.Errorf("failed to publish staged artifacts: %w", copyErr)
		}
		if err := os.RemoveAll(m.stagingDir); err != nil {
			slog.Warn("Failed to remove staging directory after publish", logfields.Error(err))
		}
	}

	slog.Info("Published artifacts", logfields.Path(outputDir))
	m.stagingDir = ""
	return nil
}

// Cleanup removes the staging directory.
// For persistent mode: does nothing, the staged tree stays for inspection.
// For ephemeral mode: removes the timestamped directory.
func (m *Manager) Cleanup() error {
	if m.stagingDir == "" {
		return nil
	}

	if m.persistent {
		slog.Debug("Skipping cleanup for persistent staging directory", logfields.Path(m.stagingDir))
		return nil
	}

	if err := os.RemoveAll(m.stagingDir); err != nil {
		return fmt.Errorf("failed to cleanup staging directory: %w", err)
	}

	slog.Debug("Cleaned up staging directory", logfields.Path(m.stagingDir))
	m.stagingDir = ""
	return nil
}

func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o750)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o640)
	})
}
