// Package runner wires the pipeline together: crawl, catalog persistence,
// inventory scan, match resolution, link organization, and metadata
// emission, under one run lock and one run ID.
package runner

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"vidshelf/internal/catalog"
	"vidshelf/internal/config"
	"vidshelf/internal/fetch"
	"vidshelf/internal/ledger"
	"vidshelf/internal/logging"
	"vidshelf/internal/services"
)

// Runner executes pipeline phases. One Runner serves one process; each
// top-level phase call acquires the run lock.
type Runner struct {
	cfg    *config.Config
	store  *ledger.Store
	client *fetch.Client
	logger *slog.Logger
	lock   *flock.Flock
	runID  string
}

// New constructs a Runner with a fresh run ID.
func New(cfg *config.Config, store *ledger.Store, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{
		cfg:    cfg,
		store:  store,
		client: fetch.NewClient(cfg, logger),
		logger: logger,
		lock:   flock.New(filepath.Join(cfg.Paths.StateDir, "vidshelf.lock")),
		runID:  uuid.NewString(),
	}
}

// RunID returns this runner's identifier, stamped onto ledger rows.
func (r *Runner) RunID() string {
	return r.runID
}

// acquire takes the run lock or fails fast when another process holds it.
func (r *Runner) acquire() (func(), error) {
	ok, err := r.lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrFilesystem, "runner", "acquire lock", r.lock.Path(), err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, "runner", "acquire lock",
			fmt.Sprintf("another vidshelf run holds %s", r.lock.Path()), nil)
	}
	return func() {
		if err := r.lock.Unlock(); err != nil {
			r.logger.Warn("failed to release run lock", logging.Error(err))
		}
	}, nil
}

func (r *Runner) videoListPath() string {
	return filepath.Join(r.cfg.Paths.StateDir, catalog.VideoListName)
}

func (r *Runner) categoryListPath() string {
	return filepath.Join(r.cfg.Paths.StateDir, catalog.CategoryListName)
}

func (r *Runner) associationListPath() string {
	return filepath.Join(r.cfg.Paths.StateDir, catalog.AssociationListName)
}
