package worker

import (
	"context"
	"io/fs"
	"path"

	"github.com/firefly-engineering/flatdeb/internal/errors"
	"github.com/firefly-engineering/flatdeb/internal/system"
)

// stagingName is the file, inside a worker's scratch directory, that
// stagedInstall streams data into before moving it into place.
const stagingName = "install"

// receiverScript reads standard input into "$1"/install. It runs with the
// target identity, which may not be able to read the caller's source file.
const receiverScript = `exec cat > "$1"/` + stagingName

// stagedInstall copies source into w's namespace in two steps: the bytes
// are streamed over stdin into w's scratch directory, then install(1)
// moves them to destination with the requested mode. Only the calling
// process ever opens source.
func stagedInstall(ctx context.Context, w Worker, fsys system.FileSystem, source, destination string, perm fs.FileMode) error {
	scratch := w.Scratch()
	if scratch == "" {
		return errors.ValidationError(w.Kind().String() + " worker is not open")
	}

	f, err := fsys.Open(source)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := w.CheckCall(ctx, []string{"sh", "-euc", receiverScript, "sh", scratch}, WithStdin(f)); err != nil {
		return err
	}
	return w.CheckCall(ctx, []string{
		"install", "-Dm" + modeArg(perm),
		path.Join(scratch, stagingName),
		destination,
	})
}
