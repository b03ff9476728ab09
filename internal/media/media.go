// Package media stores uploaded post images on the local filesystem.
//
// Files live under <root>/posts/<xid><ext>. The reference saved on a post
// is the path relative to root ("posts/cq1k2...png"), which is also its
// URL below /media/.
package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/xid"

	"github.com/sakif/yatube/internal/apperror"
)

// MaxImageSize is the largest upload accepted, in bytes.
const MaxImageSize = 5 << 20

const postsDir = "posts"

// Store is a directory of uploaded images.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

// Save sniffs the upload and writes it if it is an image. Anything else,
// including an empty or oversized upload, is a validation error on the
// "image" field.
func (s *Store) Save(ctx context.Context, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return "", fmt.Errorf("media: reading upload: %w", err)
	}
	if len(data) == 0 {
		return "", apperror.ValidationFailed("image", "the uploaded file is empty")
	}
	if len(data) > MaxImageSize {
		return "", apperror.ValidationFailed("image", fmt.Sprintf("image must be %d bytes or smaller", MaxImageSize))
	}

	mtype := mimetype.Detect(data)
	if !isImage(mtype) {
		return "", apperror.ValidationFailed("image", "upload a valid image; the file is "+mtype.String())
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := filepath.Join(s.root, postsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("media: creating %s: %w", dir, err)
	}

	name := xid.New().String() + mtype.Extension()
	if err := writeFile(filepath.Join(dir, name), data); err != nil {
		return "", err
	}
	return path.Join(postsDir, name), nil
}

// Remove deletes the file behind ref. A ref outside the posts directory is
// refused.
func (s *Store) Remove(ref string) error {
	clean := path.Clean(ref)
	if !strings.HasPrefix(clean, postsDir+"/") || strings.Contains(clean, "..") {
		return fmt.Errorf("media: refusing to remove %q", ref)
	}
	if err := os.Remove(filepath.Join(s.root, filepath.FromSlash(clean))); err != nil {
		return fmt.Errorf("media: removing %s: %w", ref, err)
	}
	return nil
}

// Handler serves the store read-only. Mount it with the /media/ prefix
// stripped.
func (s *Store) Handler() http.Handler {
	fs := http.FileServer(http.Dir(s.root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// no directory listings
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	})
}

func isImage(mtype *mimetype.MIME) bool {
	for m := mtype; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "image/") {
			return true
		}
	}
	return false
}

func writeFile(name string, data []byte) error {
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("media: creating %s: %w", name, err)
	}
	if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
		f.Close()
		os.Remove(name)
		return fmt.Errorf("media: writing %s: %w", name, err)
	}
	return f.Close()
}
