// Package archive unpacks a codebase archive blob into the set of files the
// code extractor will walk, applying the same skip rules a human would apply
// when deciding what in a checked-out repo is worth indexing.
package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"io"
	"strings"

	"github.com/ulikunitz/xz"
)

// File is one extracted, kept member of an archive.
type File struct {
	Path    string
	Content []byte
}

const (
	maxFileSize = 1 << 20 // 1 MiB
	maxFiles    = 2000
)

var skipSegments = map[string]bool{
	"__pycache__":   true,
	".git":          true,
	".svn":          true,
	".hg":           true,
	"node_modules":  true,
	".tox":          true,
	".venv":         true,
	"venv":          true,
	".mypy_cache":   true,
	".pytest_cache": true,
	"dist":          true,
	"build":         true,
	".next":         true,
	"target":        true,
}

var skipSuffixes = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true, ".ico": true, ".webp": true,
	".woff": true, ".woff2": true, ".ttf": true, ".otf": true, ".eot": true,
	".zip": true, ".tar": true, ".gz": true, ".tgz": true, ".bz2": true, ".xz": true, ".7z": true, ".rar": true,
	".jar": true, ".war": true, ".class": true,
	".so": true, ".dll": true, ".dylib": true, ".exe": true, ".bin": true, ".pyc": true, ".o": true, ".a": true,
	".lock": true, ".map": true,
	".pdf": true, ".mp3": true, ".mp4": true, ".mov": true, ".avi": true, ".wav": true,
}

// Unpack dispatches by filename suffix and returns the kept files. An
// unsupported suffix, an unreadable gzip/xz header or an unreadable zip
// directory yields nil. An error partway through a tar stream or while
// reading a zip member ends the scan and returns the files kept before it;
// those files are not discarded. Unpack returns no error — the caller treats
// "nothing extracted" as the job-level failure signal.
func Unpack(name string, data []byte) []File {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".tar.gz") || strings.HasSuffix(lower, ".tgz"):
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil
		}
		defer gz.Close()
		return unpackTar(gz)
	case strings.HasSuffix(lower, ".tar.bz2"):
		return unpackTar(bzip2.NewReader(bytes.NewReader(data)))
	case strings.HasSuffix(lower, ".tar.xz"):
		xr, err := xz.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil
		}
		return unpackTar(xr)
	case strings.HasSuffix(lower, ".tar"):
		return unpackTar(bytes.NewReader(data))
	case strings.HasSuffix(lower, ".zip"):
		return unpackZip(data)
	default:
		return nil
	}
}

func unpackTar(r io.Reader) []File {
	tr := tar.NewReader(r)
	out := make([]File, 0, 64)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return out
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		if shouldSkip(hdr.Name, hdr.Size) {
			continue
		}
		content := make([]byte, hdr.Size)
		if _, err := io.ReadFull(tr, content); err != nil {
			return out
		}
		out = append(out, File{Path: hdr.Name, Content: content})
		if len(out) >= maxFiles {
			break
		}
	}
	return out
}

func unpackZip(data []byte) []File {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil
	}
	out := make([]File, 0, 64)
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if shouldSkip(f.Name, int64(f.UncompressedSize64)) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return out
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return out
		}
		out = append(out, File{Path: f.Name, Content: content})
		if len(out) >= maxFiles {
			break
		}
	}
	return out
}

// shouldSkip applies the fixed skip rules: dotfile path segments, a set of
// tooling/vendor directory names, a binary/archive/lock/map suffix set, and
// the zero-size / over-1MiB size bounds.
func shouldSkip(path string, size int64) bool {
	if size == 0 || size > maxFileSize {
		return true
	}
	for _, seg := range strings.Split(strings.ReplaceAll(path, "\\", "/"), "/") {
		if seg == "" {
			continue
		}
		if strings.HasPrefix(seg, ".") || skipSegments[seg] {
			return true
		}
	}
	if idx := strings.LastIndex(path, "."); idx >= 0 {
		if skipSuffixes[strings.ToLower(path[idx:])] {
			return true
		}
	}
	return false
}
