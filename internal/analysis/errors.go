package analysis

import "errors"

var (
	// ErrNotLoaded is returned when an analysis step runs before Load.
	ErrNotLoaded = errors.New("data not loaded")

	// ErrNotCleaned is returned when export runs before Clean.
	ErrNotCleaned = errors.New("data not cleaned")

	// ErrNoColumnsFound is returned when none of the requested columns
	// exist in the table.
	ErrNoColumnsFound = errors.New("none of the requested columns found")

	// ErrInsufficientColumns is returned when fewer than two of the
	// requested columns exist for a correlation analysis.
	ErrInsufficientColumns = errors.New("need at least 2 columns for correlation analysis")
)
