package linker

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"

	"vidshelf/internal/fileutil"
)

// Outcome is a link strategy's typed result. Unsupported and Failed both
// fall through to the next strategy; they differ only in how they are
// logged.
type Outcome int

const (
	// Success means the link now exists.
	Success Outcome = iota
	// UnsupportedOnFilesystem means the filesystem cannot perform this
	// strategy at all (symlinks on exFAT, hard links across volumes).
	UnsupportedOnFilesystem
	// Failed means the strategy should have worked but did not.
	Failed
)

// Strategy names used in the ledger.
const (
	StrategySymlink         = "symlink"
	StrategyRelativeSymlink = "relative-symlink"
	StrategyHardlink        = "hardlink"
	StrategyCopy            = "copy"
)

// Strategy realizes one link. Create makes linkPath refer to targetPath.
type Strategy struct {
	Name   string
	Create func(targetPath, linkPath string) (Outcome, error)
}

// strategies returns the fallback chain in attempt order: absolute symlink,
// relative symlink, hard link, then (optionally) a full copy.
func strategies(allowCopy bool) []Strategy {
	chain := []Strategy{
		{Name: StrategySymlink, Create: createSymlink},
		{Name: StrategyRelativeSymlink, Create: createRelativeSymlink},
		{Name: StrategyHardlink, Create: createHardlink},
	}
	if allowCopy {
		chain = append(chain, Strategy{Name: StrategyCopy, Create: createCopy})
	}
	return chain
}

func createSymlink(targetPath, linkPath string) (Outcome, error) {
	if err := os.Symlink(targetPath, linkPath); err != nil {
		return classify(err), err
	}
	return Success, nil
}

// createRelativeSymlink links via a path relative to the link's directory,
// so the organized tree survives being moved to another mount point
// together with the video folder.
func createRelativeSymlink(targetPath, linkPath string) (Outcome, error) {
	rel, err := filepath.Rel(filepath.Dir(linkPath), targetPath)
	if err != nil {
		return Failed, err
	}
	if err := os.Symlink(rel, linkPath); err != nil {
		return classify(err), err
	}
	return Success, nil
}

func createHardlink(targetPath, linkPath string) (Outcome, error) {
	if err := os.Link(targetPath, linkPath); err != nil {
		return classify(err), err
	}
	return Success, nil
}

func createCopy(targetPath, linkPath string) (Outcome, error) {
	if err := fileutil.CopyFileVerified(targetPath, linkPath); err != nil {
		return Failed, err
	}
	return Success, nil
}

func classify(err error) Outcome {
	for _, errno := range []syscall.Errno{syscall.EPERM, syscall.ENOTSUP, syscall.EXDEV, syscall.EMLINK, syscall.EACCES} {
		if errors.Is(err, errno) {
			return UnsupportedOnFilesystem
		}
	}
	return Failed
}
