// Package storage opens input files by location. A location is either a
// local path, confined to a configured root directory, or an
// s3://bucket/key URI.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrNoS3 is returned for s3:// locations when no S3 source is configured.
	ErrNoS3 = errors.New("s3 storage is not configured")
	// ErrNoLocal is returned for local paths when no root is configured.
	ErrNoLocal = errors.New("local file access is not configured")
	// ErrOutsideRoot is returned for local paths that leave the root,
	// directly or through a symbolic link.
	ErrOutsideRoot = errors.New("location is outside the storage root")
)

const s3Scheme = "s3://"

// Object is an opened file. Location is the resolved location: an
// absolute path for local files, the URI for remote ones.
type Object struct {
	Location string
	Body     io.ReadCloser
}

// Opener opens files by location.
type Opener interface {
	Open(ctx context.Context, location string) (*Object, error)
}

// ReadAll opens location and reads it whole.
func ReadAll(ctx context.Context, o Opener, location string) ([]byte, string, error) {
	obj, err := o.Open(ctx, location)
	if err != nil {
		return nil, "", err
	}
	defer obj.Body.Close()

	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", obj.Location, err)
	}
	return data, obj.Location, nil
}

// Local opens files below Root. Relative locations are taken relative to
// Root; absolute ones must lie inside it once symbolic links are resolved.
type Local struct {
	Root string
}

func (l Local) Open(_ context.Context, location string) (*Object, error) {
	if l.Root == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoLocal, location)
	}
	root, err := filepath.Abs(l.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	abs := location
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(root, abs)
	}
	abs = filepath.Clean(abs)
	// Checked before touching the filesystem so that nothing is learned
	// about paths outside the root.
	if !within(root, abs) && !within(realRoot, abs) {
		return nil, fmt.Errorf("%w: %s", ErrOutsideRoot, location)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, err
	}
	if !within(realRoot, resolved) {
		return nil, fmt.Errorf("%w: %s", ErrOutsideRoot, location)
	}

	f, err := os.Open(resolved)
	if err != nil {
		return nil, err
	}
	return &Object{Location: abs, Body: f}, nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Router sends s3:// locations to the S3 opener and everything else to
// the local filesystem. Either opener may be nil to disable it.
type Router struct {
	Local Opener
	S3    Opener
}

// NewRouter returns a Router reading local files below localRoot. An empty
// localRoot disables local files; s3 may be nil.
func NewRouter(localRoot string, s3 Opener) *Router {
	r := &Router{S3: s3}
	if localRoot != "" {
		r.Local = Local{Root: localRoot}
	}
	return r
}

func (r *Router) Open(ctx context.Context, location string) (*Object, error) {
	if strings.HasPrefix(location, s3Scheme) {
		if r.S3 == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoS3, location)
		}
		return r.S3.Open(ctx, location)
	}
	if r.Local == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoLocal, location)
	}
	return r.Local.Open(ctx, location)
}

// ParseS3URI splits s3://bucket/key.
func ParseS3URI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, s3Scheme)
	if !ok {
		return "", "", fmt.Errorf("not an s3 uri: %s", uri)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 uri needs bucket and key: %s", uri)
	}
	return bucket, key, nil
}
