package export

import (
	"time"

	"smart2onyma/internal/models"
)

// PeriodStart returns the first instant of the month of now in loc
func PeriodStart(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
}

// ReconstructStatusHistory collapses entries before periodStart into one entry at
// periodStart carrying the last pre-period status. Later entries are kept as is.
// Entries must be ordered by start date.
func ReconstructStatusHistory(entries []models.StatusEntry, periodStart time.Time) []models.StatusEntry {
	var (
		out     []models.StatusEntry
		carried *string
	)
	for _, e := range entries {
		if e.StartDate.Before(periodStart) {
			status := e.Status
			carried = &status
			continue
		}
		if carried != nil {
			out = append(out, models.StatusEntry{StartDate: periodStart, Status: *carried})
			carried = nil
		}
		out = append(out, e)
	}
	if carried != nil {
		out = append(out, models.StatusEntry{StartDate: periodStart, Status: *carried})
	}
	return out
}
