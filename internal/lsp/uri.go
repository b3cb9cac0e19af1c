package lsp

import (
	"net/url"
	"path/filepath"
	"runtime"
)

// FilePathToURI converts a file path to a file:// URI.
func FilePathToURI(path string) string {
	if path == "" {
		return ""
	}

	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}
	path = filepath.ToSlash(path)

	// Windows drive letters need a leading slash.
	if runtime.GOOS == "windows" && len(path) >= 2 && path[1] == ':' {
		path = "/" + path
	}

	u := &url.URL{Scheme: "file", Path: path}
	return u.String()
}

// URIToFilePath converts a file:// URI to a file path.
// Non-file URIs are returned unchanged.
func URIToFilePath(uri string) string {
	if uri == "" {
		return ""
	}

	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return uri
	}

	path := u.Path
	if runtime.GOOS == "windows" && len(path) >= 3 && path[0] == '/' && path[2] == ':' {
		path = path[1:]
	}
	return filepath.FromSlash(path)
}
