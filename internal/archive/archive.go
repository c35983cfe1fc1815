package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/xi2/xz"

	"celtrix/internal/logger"
)

// Formats lists the archive suffixes Overlay understands.
var Formats = []string{".zip", ".7z", ".tar", ".tar.gz", ".tgz", ".tar.bz2", ".tar.xz"}

// Supported reports whether src is a directory or has a known archive suffix.
func Supported(src string) bool {
	if info, err := os.Stat(src); err == nil && info.IsDir() {
		return true
	}
	return format(src) != ""
}

func format(src string) string {
	name := strings.ToLower(src)
	// Longest suffixes first so .tar.gz is not taken for .gz.
	for _, ext := range []string{".tar.bz2", ".tar.gz", ".tar.xz", ".tgz", ".tar", ".zip", ".7z"} {
		if strings.HasSuffix(name, ext) {
			return ext
		}
	}
	return ""
}

// Overlay copies the contents of src, an archive or a directory, into dest,
// replacing files that already exist. An archive whose entries all sit under
// one top-level directory is unpacked from inside that directory. It returns
// the number of files written.
func Overlay(src, dest string) (int, error) {
	info, err := os.Stat(src)
	if err != nil {
		return 0, fmt.Errorf("template %s: %w", src, err)
	}
	if info.IsDir() {
		logger.Debug("[DEBUG] Copying template directory %s\n", src)
		return copyTree(src, dest)
	}

	staging, err := os.MkdirTemp("", "celtrix-template-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	if err := Extract(src, staging); err != nil {
		return 0, err
	}
	root, err := singleRoot(staging)
	if err != nil {
		return 0, err
	}
	return copyTree(root, dest)
}

// Extract unpacks src into dest according to its suffix.
func Extract(src, dest string) error {
	switch ext := format(src); ext {
	case ".zip":
		logger.Debug("[DEBUG] compression type is zip\n")
		return extractZip(src, dest)
	case ".7z":
		logger.Debug("[DEBUG] compression type is 7z\n")
		return extract7z(src, dest)
	case "":
		return fmt.Errorf("unsupported archive format: %s (expected one of %s)", src, strings.Join(Formats, ", "))
	default:
		logger.Debug("[DEBUG] compression type is %s\n", ext)
		return extractTar(src, dest, ext)
	}
}

// target maps an archive entry name to a path under dest, refusing names
// that would land outside it.
func target(dest, name string) (string, error) {
	rel := filepath.FromSlash(strings.TrimPrefix(name, "./"))
	if rel == "" || rel == "." {
		return dest, nil
	}
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("archive entry %q escapes the destination", name)
	}
	return filepath.Join(dest, rel), nil
}

func writeEntry(path string, r io.Reader, mode fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if mode.Perm() == 0 {
		mode = 0o644
	}
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func extractTar(src, dest, ext string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	var reader io.Reader = f
	switch ext {
	case ".tar.gz", ".tgz":
		gr, err := gzip.NewReader(f)
		if err != nil {
			return err
		}
		defer gr.Close()
		reader = gr
	case ".tar.bz2":
		reader = bzip2.NewReader(f)
	case ".tar.xz":
		xzr, err := xz.NewReader(f, 0)
		if err != nil {
			return err
		}
		reader = xzr
	}

	tr := tar.NewReader(reader)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", src, err)
		}

		path, err := target(dest, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(path, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeEntry(path, tr, hdr.FileInfo().Mode()); err != nil {
				return err
			}
		default:
			logger.Debug("[DEBUG] Skipping %s entry %s\n", string(hdr.Typeflag), hdr.Name)
		}
	}
}

func extractZip(src, dest string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		path, err := target(dest, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(path, 0o755); err != nil {
				return err
			}
			continue
		}
		if !f.Mode().IsRegular() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		err = writeEntry(path, rc, f.Mode())
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func extract7z(src, dest string) error {
	r, err := sevenzip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("failed to open 7z archive: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		path, err := target(dest, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(path, 0o755); err != nil {
				return err
			}
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		err = writeEntry(path, rc, f.Mode())
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// singleRoot returns the only subdirectory of dir when dir holds nothing
// else, and dir itself otherwise.
func singleRoot(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(dir, entries[0].Name()), nil
	}
	return dir, nil
}

// copyTree copies regular files under src into dest, keeping relative paths.
func copyTree(src, dest string) (int, error) {
	count := 0
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		to := filepath.Join(dest, rel)
		if d.IsDir() {
			return os.MkdirAll(to, 0o755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if err := copyFile(path, to); err != nil {
			return err
		}
		count++
		return nil
	})
	return count, err
}

// copyFile copies src to dst, creating missing directories and keeping the
// source permissions.
func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source failed: %w", err)
	}
	defer in.Close()

	stat, err := in.Stat()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("mkdir failed: %w", err)
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, stat.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create target failed: %w", err)
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy failed: %w", err)
	}
	return nil
}
