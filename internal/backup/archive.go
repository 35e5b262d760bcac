package backup

import (
	"archive/tar"
	"fmt"
	"github.com/klauspost/compress/gzip"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// root entry of every artifact, the backed up file or directory itself
const archiveRoot = "data"

// writeArchive writes sourcePath, a file or a directory, to w as a gzipped tar.
func writeArchive(sourcePath string, w io.Writer) error {
	gzWriter := gzip.NewWriter(w)
	tarWriter := tar.NewWriter(gzWriter)

	err := filepath.Walk(sourcePath, func(file string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !fi.IsDir() && !fi.Mode().IsRegular() {
			return nil
		}

		header, err := tar.FileInfoHeader(fi, "")
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(sourcePath, file)
		if err != nil {
			return err
		}
		header.Name = path.Join(archiveRoot, filepath.ToSlash(relPath))
		if fi.IsDir() {
			header.Name += "/"
		}

		if err := tarWriter.WriteHeader(header); err != nil {
			return err
		}
		if fi.IsDir() {
			return nil
		}

		fileHandle, err := os.Open(file)
		if err != nil {
			return err
		}
		defer fileHandle.Close()

		_, err = io.Copy(tarWriter, fileHandle)
		return err
	})
	if err != nil {
		return fmt.Errorf("error walking %s: %w", sourcePath, err)
	}

	if err := tarWriter.Close(); err != nil {
		return err
	}
	return gzWriter.Close()
}

// extractArchive unpacks an artifact so that its root becomes dest.
func extractArchive(r io.Reader, dest string) error {
	gzReader, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("artifact is not gzipped: %w", err)
	}
	defer gzReader.Close()

	tarReader := tar.NewReader(gzReader)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("corrupt artifact: %w", err)
		}

		target, err := extractPath(dest, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			if err := writeFile(target, tarReader, os.FileMode(header.Mode).Perm()); err != nil {
				return err
			}
		}
	}
}

func extractPath(dest, name string) (string, error) {
	clean := path.Clean(name)
	if clean == archiveRoot {
		return dest, nil
	}
	rel, ok := strings.CutPrefix(clean, archiveRoot+"/")
	if !ok || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("unexpected artifact entry %q", name)
	}
	return filepath.Join(dest, filepath.FromSlash(rel)), nil
}

func writeFile(target string, r io.Reader, mode os.FileMode) error {
	if mode == 0 {
		mode = 0o644
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
