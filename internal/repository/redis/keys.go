package redis

import (
	"fmt"
	"time"
)

const ns = "venuego:v1"

// KeyMonthlyStats scopes the dashboard report by resource (0 for all) and anchor month.
func KeyMonthlyStats(resourceID int64, anchor time.Time) string {
	scope := "all"
	if resourceID > 0 {
		scope = fmt.Sprintf("resource:%d", resourceID)
	}
	return fmt.Sprintf("%s:stats:monthly:%s:%s", ns, scope, anchor.UTC().Format("2006-01"))
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func KeyIdemReservation(userID int64, idemKey string) string {
	return fmt.Sprintf("%s:idem:reservations:%d:%s", ns, userID, idemKey)
}

func ChannelReservationEvents() string {
	return ns + ":reservations:events"
}
