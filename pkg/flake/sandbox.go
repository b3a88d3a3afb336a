package flake

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// LocalRefPrefix marks a rewritten local-path flake reference.
const LocalRefPrefix = "path:"

var (
	// ErrManifestMissing indicates the copied template has no flake.nix.
	ErrManifestMissing = errors.New("flake.nix not found in template")
	// ErrRewriteVerification indicates the manifest rewrite did not
	// take effect (canonical reference still present, or no local
	// path marker written).
	ErrRewriteVerification = errors.New("failed to replace GitHub URL with local path")
)

// SandboxBuilder materializes disposable template copies whose
// canonical remote reference is rewritten to a local path.
type SandboxBuilder struct {
	// ProjectRoot is the local flake-fhs checkout substituted for the
	// canonical remote reference.
	ProjectRoot string
}

// Materialize copies every entry of templateDir into destDir, then
// rewrites the manifest so the canonical reference points at the
// project root, and verifies the rewrite. On failure destDir may hold
// a partial copy; the caller owns its removal.
func (b *SandboxBuilder) Materialize(templateDir, destDir string) error {
	entries, err := os.ReadDir(templateDir)
	if err != nil {
		return fmt.Errorf("failed to read template directory: %w", err)
	}

	for _, entry := range entries {
		src := filepath.Join(templateDir, entry.Name())
		dst := filepath.Join(destDir, entry.Name())
		if entry.IsDir() {
			if err := copyTree(src, dst); err != nil {
				return fmt.Errorf("failed to copy %s: %w", entry.Name(), err)
			}
		} else {
			if err := copyFile(src, dst); err != nil {
				return fmt.Errorf("failed to copy %s: %w", entry.Name(), err)
			}
		}
	}

	manifest := filepath.Join(destDir, ManifestName)
	data, err := os.ReadFile(manifest)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrManifestMissing
		}
		return fmt.Errorf("failed to read manifest: %w", err)
	}

	root, err := filepath.Abs(b.ProjectRoot)
	if err != nil {
		return fmt.Errorf("failed to resolve project root: %w", err)
	}
	rewritten := strings.ReplaceAll(string(data), CanonicalRef, LocalRefPrefix+root)
	if err := os.WriteFile(manifest, []byte(rewritten), 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	// Re-read and verify rather than trusting the in-memory rewrite.
	verify, err := os.ReadFile(manifest)
	if err != nil {
		return fmt.Errorf("failed to re-read manifest: %w", err)
	}
	content := string(verify)
	if !strings.Contains(content, LocalRefPrefix) || strings.Contains(content, CanonicalRef) {
		return ErrRewriteVerification
	}

	log.Debug().Str("template", templateDir).Str("sandbox", destDir).Msg("sandbox materialized")
	return nil
}

func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

func copyTree(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dst, info.Mode().Perm()); err != nil {
		return err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		s := filepath.Join(src, entry.Name())
		d := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := copyTree(s, d); err != nil {
				return err
			}
		} else {
			if err := copyFile(s, d); err != nil {
				return err
			}
		}
	}
	return nil
}
