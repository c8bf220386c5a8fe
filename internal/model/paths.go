package model

import (
	"strings"

	"github.com/sargunv/dzarchive/internal/dzerr"
)

// NormalizePath joins a directory and filename into a forward-slash
// logical path, collapses redundant slashes, and rejects anything that
// could escape the extraction root. Ports translate the result to
// host-native separators themselves; this function only ever produces
// forward slashes.
func NormalizePath(dir, name string) (string, error) {
	dir = strings.ReplaceAll(dir, "\\", "/")
	name = strings.ReplaceAll(name, "\\", "/")

	if err := checkAnchor(dir); err != nil {
		return "", err
	}
	if err := checkAnchor(name); err != nil {
		return "", err
	}

	joined := name
	if dir != "" {
		joined = dir + "/" + name
	}

	trimmed := strings.Trim(joined, "/")
	for strings.Contains(trimmed, "//") {
		trimmed = strings.ReplaceAll(trimmed, "//", "/")
	}

	if err := checkTraversal(trimmed); err != nil {
		return "", err
	}
	return trimmed, nil
}

// checkAnchor rejects a path component that is itself absolute (leading
// "/"), drive-lettered ("C:"), or NUL-containing — checked per component,
// before joining, so an empty sibling component can't hide the anchor.
func checkAnchor(s string) error {
	if strings.IndexByte(s, 0) >= 0 {
		return &dzerr.PathTraversalError{Path: s}
	}
	if strings.HasPrefix(s, "/") {
		return &dzerr.PathTraversalError{Path: s}
	}
	if len(s) >= 2 && s[1] == ':' {
		return &dzerr.PathTraversalError{Path: s}
	}
	return nil
}

func checkTraversal(p string) error {
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return &dzerr.PathTraversalError{Path: p}
		}
	}
	return nil
}
