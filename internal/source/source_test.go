package source

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGCSURL(t *testing.T) {
	tests := []struct {
		uri        string
		bucket     string
		prefix     string
		shouldFail bool
	}{
		{uri: "gs://labels/2026/march/", bucket: "labels", prefix: "2026/march/"},
		{uri: "gs://labels", bucket: "labels"},
		{uri: "gs://labels/", bucket: "labels"},
		{uri: "gs:///prefix", shouldFail: true},
		{uri: "s3://labels/x", shouldFail: true},
		{uri: "./labels", shouldFail: true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, prefix, err := ParseGCSURL(tt.uri)
			if tt.shouldFail {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.prefix, prefix)
		})
	}
}

func TestLocalSource(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		"b.png":          "png",
		"a.PDF":          "pdf",
		"notes.txt":      "skip",
		"sub/c.jpeg":     "jpeg",
		"sub/deep/d.tif": "tiff",
	}
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	src, closeFn, err := Open(context.Background(), root)
	require.NoError(t, err)
	defer closeFn()

	names, err := src.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.PDF"),
		filepath.Join(root, "b.png"),
		filepath.Join(root, "sub/c.jpeg"),
		filepath.Join(root, "sub/deep/d.tif"),
	}, names)

	rc, err := src.Open(context.Background(), names[1])
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
	assert.Equal(t, root, src.String())
}

func TestOpenRejectsFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "label.png")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	_, _, err := Open(context.Background(), path)
	assert.Error(t, err)

	_, _, err = Open(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("x/영양.JPG"))
	assert.False(t, Supported("x/readme.md"))
}
