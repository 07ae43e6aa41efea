package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildTarGz(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name: name, Mode: 0644, Size: int64(len(content)), Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestUnpackTarGzKeepsRegularSourceFiles(t *testing.T) {
	data := buildTarGz(t, map[string]string{
		"main.go":        "package main\n",
		"pkg/util.go":    "package pkg\n",
		".git/HEAD":      "ref: refs/heads/main\n",
		"node_modules/x": "module content",
		"image.png":      "not really a png but has the suffix",
		"empty.go":       "",
	})
	files := Unpack("repo.tar.gz", data)
	paths := make(map[string]bool)
	for _, f := range files {
		paths[f.Path] = true
	}
	require.True(t, paths["main.go"])
	require.True(t, paths["pkg/util.go"])
	require.False(t, paths[".git/HEAD"])
	require.False(t, paths["node_modules/x"])
	require.False(t, paths["image.png"])
	require.False(t, paths["empty.go"])
}

func TestUnpackTgzSuffixAlias(t *testing.T) {
	data := buildTarGz(t, map[string]string{"a.py": "print(1)\n"})
	files := Unpack("archive.tgz", data)
	require.Len(t, files, 1)
	require.Equal(t, "a.py", files[0].Path)
}

func TestUnpackZipKeepsRegularFiles(t *testing.T) {
	data := buildZip(t, map[string]string{
		"src/index.ts": "export {}\n",
		".env":         "SECRET=1",
		"dist/out.js":  "bundled",
	})
	files := Unpack("repo.zip", data)
	paths := make(map[string]bool)
	for _, f := range files {
		paths[f.Path] = true
	}
	require.True(t, paths["src/index.ts"])
	require.False(t, paths[".env"])
	require.False(t, paths["dist/out.js"])
}

func TestUnpackUnsupportedSuffixReturnsEmpty(t *testing.T) {
	require.Empty(t, Unpack("archive.rar", []byte("whatever")))
}

func TestUnpackMalformedArchiveReturnsEmpty(t *testing.T) {
	require.Empty(t, Unpack("repo.tar.gz", []byte("not a gzip stream")))
}

func TestUnpackRespectsOverSizeLimit(t *testing.T) {
	big := make([]byte, maxFileSize+1)
	data := buildTarGz(t, map[string]string{"huge.go": string(big)})
	require.Empty(t, Unpack("repo.tar.gz", data))
}

func TestUnpackCapsAtMaxFiles(t *testing.T) {
	files := make(map[string]string, maxFiles+10)
	for i := 0; i < maxFiles+10; i++ {
		files[fmt.Sprintf("file_%d.go", i)] = "package p\n"
	}
	data := buildTarGz(t, files)
	out := Unpack("repo.tar.gz", data)
	require.Len(t, out, maxFiles)
}

func TestShouldSkipDotSegmentAnywhereInPath(t *testing.T) {
	require.True(t, shouldSkip("a/.hidden/b.go", 10))
	require.True(t, shouldSkip(".hidden.go", 10))
	require.False(t, shouldSkip("a/b/c.go", 10))
}
