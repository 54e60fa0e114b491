// Package source lists and opens label files for batch reviews, either from
// a local folder or from a Google Cloud Storage prefix.
package source

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"nutrilabel/internal/ocr"
)

// Source enumerates label files.
type Source interface {
	// List returns the names of supported label files in a stable order.
	List(ctx context.Context) ([]string, error)

	// Open returns the content of a listed file.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// String describes the location for log output.
	String() string
}

// Supported reports whether name has a label file extension.
func Supported(name string) bool {
	return ocr.ValidateFilename(name) == nil
}

// LocalSource walks a folder recursively.
type LocalSource struct {
	Root string
}

// List returns supported files under Root in lexical order.
func (l LocalSource) List(_ context.Context) ([]string, error) {
	var files []string
	err := filepath.WalkDir(l.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && Supported(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", l.Root, err)
	}
	sort.Strings(files)
	return files, nil
}

func (l LocalSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	return os.Open(name)
}

func (l LocalSource) String() string {
	return l.Root
}

// GCSSource lists objects under a bucket prefix.
type GCSSource struct {
	client *storage.Client
	Bucket string
	Prefix string
}

// NewGCSSource uses an existing storage client.
func NewGCSSource(client *storage.Client, bucket, prefix string) *GCSSource {
	return &GCSSource{client: client, Bucket: bucket, Prefix: prefix}
}

// List returns the names of supported objects under the prefix.
func (g *GCSSource) List(ctx context.Context) ([]string, error) {
	it := g.client.Bucket(g.Bucket).Objects(ctx, &storage.Query{Prefix: g.Prefix})
	out := []string{}
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list gs://%s/%s: %w", g.Bucket, g.Prefix, err)
		}
		if strings.HasSuffix(attrs.Name, "/") || !Supported(attrs.Name) {
			continue
		}
		out = append(out, attrs.Name)
	}
	sort.Strings(out)
	return out, nil
}

// Open returns a reader for the named object.
func (g *GCSSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	rc, err := g.client.Bucket(g.Bucket).Object(name).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open gs://%s/%s: %w", g.Bucket, name, err)
	}
	return rc, nil
}

func (g *GCSSource) String() string {
	return fmt.Sprintf("gs://%s/%s", g.Bucket, g.Prefix)
}

// IsGCSURL reports whether location is a gs:// URL.
func IsGCSURL(location string) bool {
	return strings.HasPrefix(location, "gs://")
}

// ParseGCSURL splits gs://bucket/prefix into its parts. The prefix may be empty.
func ParseGCSURL(uri string) (bucket, prefix string, err error) {
	if !IsGCSURL(uri) {
		return "", "", fmt.Errorf("invalid gs uri: %q", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if parts[0] == "" {
		return "", "", fmt.Errorf("invalid gs uri: %q", uri)
	}
	if len(parts) == 2 {
		prefix = parts[1]
	}
	return parts[0], prefix, nil
}

// Open resolves location to a Source. A gs:// URL creates a storage client
// that is closed by the returned function.
func Open(ctx context.Context, location string) (Source, func() error, error) {
	if !IsGCSURL(location) {
		info, err := os.Stat(location)
		if err != nil {
			return nil, nil, err
		}
		if !info.IsDir() {
			return nil, nil, fmt.Errorf("%s is not a directory", location)
		}
		return LocalSource{Root: location}, func() error { return nil }, nil
	}

	bucket, prefix, err := ParseGCSURL(location)
	if err != nil {
		return nil, nil, err
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("create storage client: %w", err)
	}
	return NewGCSSource(client, bucket, prefix), client.Close, nil
}
