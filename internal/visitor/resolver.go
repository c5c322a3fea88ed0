package visitor

import (
	"time"

	"todaytasks/api/internal/util"
)

// MatchWindow is how far back an anonymous page load is compared against
// earlier visits.
const MatchWindow = 48 * time.Hour

// Resolution is the identity assigned to one page load.
type Resolution struct {
	VisitorID string
	IsNew     bool
}

// Resolve decides which visitor a page load belongs to. A client that sends
// its stored id keeps it. Otherwise the log is scanned newest first, and the
// first visit inside the window with the same network address, user agent
// and screen size lends its visitor id. Anything else mints a fresh id.
//
// The log is expected in append order, oldest first. Resolve never mutates it.
func Resolve(log []Visit, req Request, now time.Time, window time.Duration) Resolution {
	if req.VisitorID != "" {
		return Resolution{VisitorID: req.VisitorID}
	}
	if window <= 0 {
		window = MatchWindow
	}
	cutoff := now.Add(-window)

	for i := len(log) - 1; i >= 0; i-- {
		v := log[i]
		if v.Timestamp.Before(cutoff) {
			break
		}
		if v.VisitorID == "" {
			continue
		}
		if v.IP == req.IP && v.UserAgent == req.UserAgent &&
			sameInt(v.ScreenWidth, req.ScreenWidth) && sameInt(v.ScreenHeight, req.ScreenHeight) {
			return Resolution{VisitorID: v.VisitorID}
		}
	}
	return Resolution{VisitorID: util.NewID("v"), IsNew: true}
}

func sameInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
