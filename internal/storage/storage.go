// Package storage keeps uploaded files on local disk under content-derived
// names.
package storage

import (
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/blake3"
)

// PublicPrefix is the URL path uploads are served under.
const PublicPrefix = "/uploads"

// Uploads stores files in a single directory.
type Uploads struct {
	dir string
}

// NewUploads creates dir if needed.
func NewUploads(dir string) (*Uploads, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Uploads{dir: dir}, nil
}

// Dir returns the directory served at PublicPrefix.
func (u *Uploads) Dir() string {
	return u.dir
}

// SaveFile stores a multipart upload and returns its public path.
func (u *Uploads) SaveFile(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	return u.Save(f, fh.Filename)
}

// Save writes r under <blake3-128 hex><ext of filename>. Identical content
// with the same extension maps to one file.
func (u *Uploads) Save(r io.Reader, filename string) (string, error) {
	tmp, err := os.CreateTemp(u.dir, ".upload-*")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	hasher := blake3.New()
	if _, err := io.Copy(io.MultiWriter(tmp, hasher), r); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	name := hex.EncodeToString(hasher.Sum(nil)[:16]) + cleanExt(filename)
	final := filepath.Join(u.dir, name)
	if _, err := os.Stat(final); err == nil {
		return PublicPrefix + "/" + name, nil
	}
	if err := os.Rename(tmpName, final); err != nil {
		return "", err
	}
	return PublicPrefix + "/" + name, nil
}

func cleanExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\ `) {
		return ""
	}
	return ext
}
