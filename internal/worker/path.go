package worker

import (
	"path"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"

	"github.com/firefly-engineering/flatdeb/internal/errors"
)

// ContainedPath places p, a path as seen from inside a container, under
// root. The result equals path.Clean(root + "/" + p). A p whose ".."
// segments would climb above root is rejected with TransformFailed.
//
// When resolve is set, root is on the local filesystem and symlinks inside
// it are resolved as if root were "/", so a link such as
// /lib -> usr/lib or /etc/resolv.conf -> /run/... cannot point the result
// outside root.
func ContainedPath(root, p string, resolve bool) (string, error) {
	if root == "" {
		return "", errors.TransformFailed(p, "empty root", "no containment root")
	}
	root = path.Clean(root)

	rel := path.Clean(strings.TrimLeft(p, "/"))
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", errors.TransformFailed(p, root, "path escapes the root")
	}

	if !resolve {
		return path.Join(root, rel), nil
	}

	resolved, err := securejoin.SecureJoin(root, rel)
	if err != nil {
		return "", errors.Wrap(errors.ExitTransformFailed, "cannot resolve "+p+" inside "+root, err)
	}
	return resolved, nil
}
