// Package content prepares the writable runtime content tree.
package content

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Subtrees are created under the content root before the application boots.
var Subtrees = []string{"themes", "images", "data", "logs", "adapters", "settings", "public"}

// copyTree is replaced in tests.
var copyTree = CopyDir

// Seed names the theme copied into themes/<Name> on first use.
type Seed struct {
	Source string
	Name   string
}

// Report describes what EnsureTree did.
type Report struct {
	Created bool
	Seeded  bool
	// SeedErr is set when copying the seed theme failed. It never fails the call.
	SeedErr error
}

// EnsureTree creates root and every subtree if absent and seeds the default
// theme when it is missing or an earlier copy did not finish. Directory
// creation errors are returned; a failed theme copy is only logged.
func EnsureTree(root string, seed Seed, log *zap.Logger) (Report, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var report Report
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		report.Created = true
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return report, fmt.Errorf("failed to create content root: %w", err)
	}
	for _, dir := range Subtrees {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return report, fmt.Errorf("failed to create content/%s: %w", dir, err)
		}
	}

	if seed.Source == "" || seed.Name == "" {
		return report, nil
	}

	dest := filepath.Join(root, "themes", seed.Name)
	// marker exists while a copy is unfinished
	marker := filepath.Join(root, "themes", "."+seed.Name+".seeding")
	if !report.Created && exists(dest) && !exists(marker) {
		return report, nil
	}
	if !exists(seed.Source) {
		log.Debug("Seed theme source not found", zap.String("source", seed.Source))
		return report, nil
	}

	err := os.WriteFile(marker, nil, 0o644)
	if err == nil {
		err = copyTree(seed.Source, dest)
	}
	if err != nil {
		log.Warn("Could not copy default theme",
			zap.String("theme", seed.Name),
			zap.Error(err))
		report.SeedErr = err
		return report, nil
	}
	if err := os.Remove(marker); err != nil {
		log.Warn("Could not clear seed marker", zap.String("path", marker), zap.Error(err))
	}

	report.Seeded = true
	log.Info("Seeded default theme", zap.String("theme", seed.Name), zap.String("path", dest))
	return report, nil
}

// CopyDir copies src into dst recursively. Existing directories in dst are
// reused and existing files are overwritten, so an interrupted copy can be
// run again.
func CopyDir(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return copyFile(src, dst, info.Mode().Perm())
	}

	return filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		fi, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case d.IsDir():
			return os.MkdirAll(target, fi.Mode().Perm()|0o700)
		case fi.Mode().IsRegular():
			return copyFile(path, target, fi.Mode().Perm())
		default:
			// sockets, devices and symlinks are not part of a theme
			return nil
		}
	})
}

func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm|0o200)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
