package dataset

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
)

// Unpack extracts a dataset bundle (.zip, .7z, .tar.gz or .tgz) into destDir
// and returns the number of files written. Entries escaping destDir are rejected.
func Unpack(archivePath, destDir string) (int, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}
	name := strings.ToLower(archivePath)
	switch {
	case strings.HasSuffix(name, ".zip"):
		return unpackZip(archivePath, destDir)
	case strings.HasSuffix(name, ".7z"):
		return unpack7z(archivePath, destDir)
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return unpackTarGz(archivePath, destDir)
	}
	return 0, fmt.Errorf("unsupported archive: %s", filepath.Base(archivePath))
}

func safeJoin(destDir, name string) (string, error) {
	p := filepath.Join(destDir, name)
	rel, err := filepath.Rel(destDir, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry %q escapes destination", name)
	}
	return p, nil
}

func writeEntry(destPath string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", destPath, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("failed to extract %s: %w", destPath, err)
	}
	return out.Close()
}

func unpackZip(archivePath, destDir string) (int, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return 0, fmt.Errorf("failed to open zip archive: %w", err)
	}
	defer reader.Close()

	n := 0
	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		destPath, err := safeJoin(destDir, file.Name)
		if err != nil {
			return n, err
		}
		rc, err := file.Open()
		if err != nil {
			return n, fmt.Errorf("failed to open %s in archive: %w", file.Name, err)
		}
		err = writeEntry(destPath, rc)
		rc.Close()
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func unpack7z(archivePath, destDir string) (int, error) {
	reader, err := sevenzip.OpenReader(archivePath)
	if err != nil {
		return 0, fmt.Errorf("failed to open 7z archive: %w", err)
	}
	defer reader.Close()

	n := 0
	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		destPath, err := safeJoin(destDir, file.Name)
		if err != nil {
			return n, err
		}
		rc, err := file.Open()
		if err != nil {
			return n, fmt.Errorf("failed to open %s in archive: %w", file.Name, err)
		}
		err = writeEntry(destPath, rc)
		rc.Close()
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func unpackTarGz(archivePath, destDir string) (int, error) {
	file, err := os.Open(archivePath)
	if err != nil {
		return 0, fmt.Errorf("failed to open archive: %w", err)
	}
	defer file.Close()

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return 0, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzReader.Close()

	tarReader := tar.NewReader(gzReader)
	n := 0
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return n, fmt.Errorf("failed to read tar: %w", err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		destPath, err := safeJoin(destDir, header.Name)
		if err != nil {
			return n, err
		}
		if err := writeEntry(destPath, tarReader); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
