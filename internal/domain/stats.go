package domain

import "time"

// StatsWindowMonths is the length of the dashboard report.
const StatsWindowMonths = 12

// MonthWindow returns the first instant of the anchor's month and the first
// instant after the last month of the window.
func MonthWindow(anchor time.Time, months int) (time.Time, time.Time) {
	y, m, _ := anchor.Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, months, 0)
}

// BucketByMonth counts reservations per start month over the window that
// begins at the anchor's month. Anything not approved counts as pending,
// rejected included.
func BucketByMonth(anchor time.Time, reservations []Reservation) []MonthBucket {
	start, _ := MonthWindow(anchor, StatsWindowMonths)

	buckets := make([]MonthBucket, StatsWindowMonths)
	for i := range buckets {
		m := start.AddDate(0, i, 0)
		buckets[i] = MonthBucket{
			Month:       m.Format("Jan"),
			Year:        m.Year(),
			MonthNumber: int(m.Month()),
		}
	}

	for _, r := range reservations {
		s := r.Range.Start
		idx := (s.Year()-start.Year())*12 + int(s.Month()) - int(start.Month())
		if idx < 0 || idx >= StatsWindowMonths {
			continue
		}
		if r.IsApproved() {
			buckets[idx].Approved++
		} else {
			buckets[idx].Pending++
		}
	}

	return buckets
}
