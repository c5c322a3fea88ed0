package visitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(v bool) *bool { return &v }

func TestParseUserAgent(t *testing.T) {
	cases := []struct {
		ua, browser, os string
	}{
		{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/125.0 Safari/537.36 Edg/125.0", "Edge", "Windows"},
		{"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_5) AppleWebKit/605.1.15 Version/17.5 Safari/605.1.15", "Safari", "macOS"},
		{"Mozilla/5.0 (iPhone; CPU iPhone OS 17_5 like Mac OS X) AppleWebKit/605.1.15 Mobile/15E148 Safari/604.1", "Safari", "iOS"},
		{"Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 Chrome/125.0 Mobile Safari/537.36", "Chrome", "Android"},
		{"Mozilla/5.0 (X11; Linux x86_64; rv:126.0) Gecko/20100101 Firefox/126.0", "Firefox", "Linux"},
		{"Mozilla/5.0 (Windows NT 10.0) AppleWebKit/537.36 Chrome/125.0 Safari/537.36 OPR/110.0", "Opera", "Windows"},
		{"Mozilla/5.0 (Windows NT 6.1; Trident/7.0; rv:11.0) like Gecko", "IE", "Windows"},
		{"unknown", "Unknown", "Unknown"},
	}
	for _, tc := range cases {
		browser, os := ParseUserAgent(tc.ua)
		assert.Equal(t, tc.browser, browser, tc.ua)
		assert.Equal(t, tc.os, os, tc.ua)
	}
}

func TestSummarizeGroupsByVisitor(t *testing.T) {
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	phone := "Mozilla/5.0 (iPhone; CPU iPhone OS 17_5 like Mac OS X) Safari/604.1"
	desktop := "Mozilla/5.0 (X11; Linux x86_64) Firefox/126.0"
	visits := []Visit{
		{ID: "1", VisitorID: "v_a", Timestamp: Timestamp{base}, IP: "10.0.0.1", UserAgent: desktop,
			ScreenWidth: intPtr(1920), ScreenHeight: intPtr(1080)},
		{ID: "2", VisitorID: "v_b", Timestamp: Timestamp{base.Add(time.Hour)}, IP: "10.0.0.2", UserAgent: phone,
			TouchSupport: boolPtr(true)},
		{ID: "3", VisitorID: "v_a", Timestamp: Timestamp{base.Add(2 * time.Hour)}, IP: "10.0.0.1", UserAgent: desktop,
			ScreenWidth: intPtr(2560), ScreenHeight: intPtr(1440)},
		{ID: "4", Timestamp: Timestamp{base.Add(30 * time.Minute)}, IP: "10.0.0.1", UserAgent: desktop},
	}

	report := Summarize(visits)
	assert.Equal(t, 4, report.TotalVisits)
	assert.Equal(t, 3, report.UniqueVisitors)
	assert.Equal(t, 2, report.UniqueIPs)
	assert.Equal(t, 1, report.MobileVisits)
	assert.Equal(t, 3, report.DesktopVisits)
	assert.Equal(t, []Count{{Name: "Firefox", Count: 3}, {Name: "Safari", Count: 1}}, report.Browsers)
	assert.Equal(t, []Count{{Name: "Linux", Count: 3}, {Name: "iOS", Count: 1}}, report.OperatingSys)

	require.Len(t, report.Visitors, 3)
	a := report.Visitors[0]
	assert.Equal(t, "v_a", a.VisitorID)
	assert.Equal(t, 2, a.VisitCount)
	assert.True(t, a.FirstVisit.Equal(base))
	assert.True(t, a.LastVisit.Equal(base.Add(2*time.Hour)))
	assert.Equal(t, "2560x1440", a.Screen)
	assert.Equal(t, "Desktop", a.Device)

	b := report.Visitors[1]
	assert.Equal(t, "v_b", b.VisitorID)
	assert.Equal(t, "Mobile", b.Device)
	assert.Equal(t, "-", b.Screen)
	assert.Equal(t, "iOS", b.OS)

	assert.Equal(t, "unknown", report.Visitors[2].VisitorID)
}

func TestSummarizeEmptyLog(t *testing.T) {
	report := Summarize(nil)
	assert.Zero(t, report.TotalVisits)
	assert.NotNil(t, report.Visitors)
	assert.NotNil(t, report.Browsers)
}
