// Package archive produces a ZIP of a finalised study directory.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	pverrors "github.com/pixieveil/pixieveil/errors"
)

// Result describes a created archive.
type Result struct {
	Path       string
	ImageCount int
	Bytes      int64
}

// CreateZip zips the tree rooted at studyDir into zipPath, with entries
// relative to studyDir.
func CreateZip(studyDir, zipPath, studyNumber string) (Result, error) {
	out, err := os.Create(zipPath)
	if err != nil {
		return Result{}, pverrors.NewArchiveError(studyNumber, err)
	}
	defer out.Close()

	w := zip.NewWriter(out)

	imageCount := 0
	walkErr := filepath.Walk(studyDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(studyDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		f, err := w.Create(rel)
		if err != nil {
			return err
		}

		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()

		if _, err := io.Copy(f, src); err != nil {
			return err
		}

		if strings.HasSuffix(rel, ".dcm") {
			imageCount++
		}
		return nil
	})
	if walkErr != nil {
		w.Close()
		out.Close()
		os.Remove(zipPath)
		return Result{}, pverrors.NewArchiveError(studyNumber, walkErr)
	}

	if err := w.Close(); err != nil {
		return Result{}, pverrors.NewArchiveError(studyNumber, err)
	}

	info, err := out.Stat()
	if err != nil {
		return Result{}, pverrors.NewArchiveError(studyNumber, err)
	}

	return Result{Path: zipPath, ImageCount: imageCount, Bytes: info.Size()}, nil
}

// CountImages counts *.dcm files under studyDir, used for the archive
// counter update before the ZIP itself is built.
func CountImages(studyDir string) (int, error) {
	count := 0
	err := filepath.Walk(studyDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(info.Name(), ".dcm") {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("archive: count images in %s: %w", studyDir, err)
	}
	return count, nil
}
