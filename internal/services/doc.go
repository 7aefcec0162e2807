// Package services defines the error taxonomy and context annotations shared
// by the crawl, match, and organize components.
//
// Errors are classified with sentinel markers wrapped via Wrap so callers can
// decide between aborting the run and recording the failure in the run
// report. Context helpers carry run, category, and page identity so log
// lines stay correlated across the worker pool.
package services
