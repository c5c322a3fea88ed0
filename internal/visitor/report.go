package visitor

import (
	"sort"
	"strings"
)

// Count is one row of a browser or operating system breakdown.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Summary describes one visitor across all of its logged visits.
type Summary struct {
	VisitorID  string    `json:"visitorId"`
	VisitCount int       `json:"visitCount"`
	FirstVisit Timestamp `json:"firstVisit"`
	LastVisit  Timestamp `json:"lastVisit"`
	Browser    string    `json:"browser"`
	OS         string    `json:"os"`
	Device     string    `json:"device"`
	Screen     string    `json:"screen"`
	IP         string    `json:"ip"`
}

type Report struct {
	TotalVisits    int       `json:"totalVisits"`
	UniqueVisitors int       `json:"uniqueVisitors"`
	UniqueIPs      int       `json:"uniqueIps"`
	MobileVisits   int       `json:"mobileVisits"`
	DesktopVisits  int       `json:"desktopVisits"`
	Browsers       []Count   `json:"browsers"`
	OperatingSys   []Count   `json:"operatingSystems"`
	Visitors       []Summary `json:"visitors"`
}

// Summarize groups the log by visitor id. Details of each visitor are taken
// from its most recent visit.
func Summarize(visits []Visit) Report {
	report := Report{
		TotalVisits:  len(visits),
		Browsers:     []Count{},
		OperatingSys: []Count{},
		Visitors:     []Summary{},
	}

	ips := map[string]struct{}{}
	browsers := map[string]int{}
	systems := map[string]int{}
	groups := map[string][]Visit{}
	var order []string

	for _, v := range visits {
		ips[v.IP] = struct{}{}
		browser, os := ParseUserAgent(v.UserAgent)
		browsers[browser]++
		systems[os]++
		if v.TouchSupport != nil && *v.TouchSupport {
			report.MobileVisits++
		}

		id := v.VisitorID
		if id == "" {
			id = "unknown"
		}
		if _, seen := groups[id]; !seen {
			order = append(order, id)
		}
		groups[id] = append(groups[id], v)
	}
	report.DesktopVisits = report.TotalVisits - report.MobileVisits
	report.UniqueIPs = len(ips)
	report.UniqueVisitors = len(groups)
	report.Browsers = sortedCounts(browsers)
	report.OperatingSys = sortedCounts(systems)

	for _, id := range order {
		group := groups[id]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Timestamp.After(group[j].Timestamp.Time)
		})
		latest, first := group[0], group[len(group)-1]
		browser, os := ParseUserAgent(latest.UserAgent)
		device := "Desktop"
		if latest.TouchSupport != nil && *latest.TouchSupport {
			device = "Mobile"
		}
		report.Visitors = append(report.Visitors, Summary{
			VisitorID:  id,
			VisitCount: len(group),
			FirstVisit: first.Timestamp,
			LastVisit:  latest.Timestamp,
			Browser:    browser,
			OS:         os,
			Device:     device,
			Screen:     screenLabel(latest.ScreenWidth, latest.ScreenHeight),
			IP:         latest.IP,
		})
	}
	sort.SliceStable(report.Visitors, func(i, j int) bool {
		return report.Visitors[i].LastVisit.After(report.Visitors[j].LastVisit.Time)
	})
	return report
}

func sortedCounts(counts map[string]int) []Count {
	out := make([]Count, 0, len(counts))
	for name, n := range counts {
		out = append(out, Count{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// ParseUserAgent maps a user agent string to coarse browser and operating
// system families. Unrecognized values report "Unknown".
func ParseUserAgent(ua string) (browser, os string) {
	s := strings.ToLower(ua)
	has := func(subs ...string) bool {
		for _, sub := range subs {
			if strings.Contains(s, sub) {
				return true
			}
		}
		return false
	}

	switch {
	case has("firefox"):
		browser = "Firefox"
	case has("edg"):
		browser = "Edge"
	case has("opr", "opera"):
		browser = "Opera"
	case has("chrome"):
		browser = "Chrome"
	case has("safari"):
		browser = "Safari"
	case has("msie", "trident"):
		browser = "IE"
	default:
		browser = "Unknown"
	}

	switch {
	case has("windows"):
		os = "Windows"
	case has("iphone", "ipad"):
		os = "iOS"
	case has("android"):
		os = "Android"
	case has("mac"):
		os = "macOS"
	case has("linux"):
		os = "Linux"
	default:
		os = "Unknown"
	}
	return browser, os
}
