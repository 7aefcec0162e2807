package linker

import (
	"context"
	"os"

	"vidshelf/internal/logging"
	"vidshelf/internal/services"
)

// RepairReport tallies one repair pass over degraded links.
type RepairReport struct {
	Upgraded int
	// Unchanged links stayed degraded because the filesystem still
	// rejects symlinks.
	Unchanged int
	// Removed records pointed at links or targets that no longer exist.
	Removed int
}

// Repair revisits links recorded as hard links or copies and upgrades them
// to symlinks where the filesystem now allows it. Typical after moving the
// organized tree from an exFAT drive onto ext4. Requires a ledger store.
func (o *Organizer) Repair(ctx context.Context) (*RepairReport, error) {
	if o.store == nil {
		return nil, services.Wrap(services.ErrConfiguration, "linker", "repair", "repair requires the link ledger", nil)
	}

	degraded, err := o.store.LinksByStrategy(ctx, StrategyHardlink, StrategyCopy)
	if err != nil {
		return nil, services.Wrap(services.ErrFilesystem, "linker", "repair", "list degraded links", err)
	}

	report := &RepairReport{}
	for _, record := range degraded {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if !existsAt(record.LinkPath) {
			if err := o.store.DeleteLink(ctx, record.LinkPath); err == nil {
				report.Removed++
			}
			continue
		}
		if _, err := os.Stat(record.FilePath); err != nil {
			o.logger.Warn("repair skipping link with missing target",
				logging.String("link", record.LinkPath),
				logging.String("file", record.FilePath))
			report.Unchanged++
			continue
		}

		// Stage the symlink next to the degraded link, then swap it into
		// place so the entry never disappears mid-repair.
		staged := record.LinkPath + ".repair"
		_ = os.Remove(staged)
		if err := os.Symlink(record.FilePath, staged); err != nil {
			report.Unchanged++
			continue
		}
		if err := os.Rename(staged, record.LinkPath); err != nil {
			_ = os.Remove(staged)
			report.Unchanged++
			continue
		}

		record.Strategy = StrategySymlink
		record.RunID = o.runID
		o.record(ctx, record)
		report.Upgraded++
		o.logger.Info("degraded link upgraded to symlink",
			logging.String("link", record.LinkPath))
	}

	o.logger.Info("repair pass complete",
		logging.Int("upgraded", report.Upgraded),
		logging.Int("unchanged", report.Unchanged),
		logging.Int("removed", report.Removed))
	return report, nil
}
