// Package visitor records page loads and resolves them to durable visitor
// identities without requiring a login.
package visitor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// legacyLayout is the timestamp format of older visitor logs, written in the
// server's local time.
const legacyLayout = "2006-01-02 15:04:05"

// Timestamp reads RFC 3339 and legacy timestamps and always writes RFC 3339.
// Values that cannot be parsed decode to the zero time.
type Timestamp struct {
	time.Time
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		t.Time = time.Time{}
		return nil
	}
	t.Time = parseTimestamp(s)
	return nil
}

func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return parsed
	}
	if parsed, err := time.ParseInLocation(legacyLayout, s, time.Local); err == nil {
		return parsed
	}
	return time.Time{}
}

// Visit is one logged page load. Records are never modified once appended.
type Visit struct {
	ID           string    `json:"id"`
	VisitorID    string    `json:"visitorId"`
	IsNewVisitor bool      `json:"isNewVisitor"`
	Timestamp    Timestamp `json:"timestamp"`

	IP        string `json:"ip"`
	UserAgent string `json:"userAgent"`
	Referer   string `json:"referer"`

	ScreenWidth    *int     `json:"screenWidth"`
	ScreenHeight   *int     `json:"screenHeight"`
	ViewportWidth  *int     `json:"viewportWidth"`
	ViewportHeight *int     `json:"viewportHeight"`
	PixelRatio     *float64 `json:"pixelRatio"`
	Language       *string  `json:"language"`
	Timezone       *string  `json:"timezone"`
	Platform       *string  `json:"platform"`
	TouchSupport   *bool    `json:"touchSupport"`
	ConnectionType *string  `json:"connectionType"`

	// Extra carries fields written by other clients so they survive the log
	// being rewritten.
	Extra map[string]json.RawMessage `json:"-"`
}

// visitFields is Visit without its custom codec.
type visitFields Visit

var knownVisitFields = map[string]bool{
	"id": true, "visitorId": true, "isNewVisitor": true, "timestamp": true,
	"ip": true, "userAgent": true, "referer": true,
	"screenWidth": true, "screenHeight": true, "viewportWidth": true, "viewportHeight": true,
	"pixelRatio": true, "language": true, "timezone": true, "platform": true,
	"touchSupport": true, "connectionType": true,
}

// UnmarshalJSON decodes one stored record field by field. A field of an
// unexpected type decodes to its zero value instead of failing the whole log,
// and entries that are not objects decode to an empty visit.
func (v *Visit) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		*v = Visit{}
		return nil
	}

	out := Visit{
		ID:             lenientValue[string](fields, "id"),
		VisitorID:      lenientValue[string](fields, "visitorId"),
		IsNewVisitor:   lenientValue[bool](fields, "isNewVisitor"),
		IP:             lenientValue[string](fields, "ip"),
		UserAgent:      lenientValue[string](fields, "userAgent"),
		Referer:        lenientValue[string](fields, "referer"),
		ScreenWidth:    lenientField[int](fields, "screenWidth"),
		ScreenHeight:   lenientField[int](fields, "screenHeight"),
		ViewportWidth:  lenientField[int](fields, "viewportWidth"),
		ViewportHeight: lenientField[int](fields, "viewportHeight"),
		PixelRatio:     lenientField[float64](fields, "pixelRatio"),
		Language:       lenientField[string](fields, "language"),
		Timezone:       lenientField[string](fields, "timezone"),
		Platform:       lenientField[string](fields, "platform"),
		TouchSupport:   lenientField[bool](fields, "touchSupport"),
		ConnectionType: lenientField[string](fields, "connectionType"),
	}
	if raw, ok := fields["timestamp"]; ok {
		_ = out.Timestamp.UnmarshalJSON(raw)
	}
	for key, raw := range fields {
		if knownVisitFields[key] {
			continue
		}
		if out.Extra == nil {
			out.Extra = map[string]json.RawMessage{}
		}
		out.Extra[key] = raw
	}
	*v = out
	return nil
}

// MarshalJSON writes the known fields followed by any extra fields sorted by
// name.
func (v Visit) MarshalJSON() ([]byte, error) {
	encoded, err := json.Marshal(visitFields(v))
	if err != nil {
		return nil, err
	}
	if len(v.Extra) == 0 {
		return encoded, nil
	}

	keys := make([]string, 0, len(v.Extra))
	for key := range v.Extra {
		if !knownVisitFields[key] {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.Write(encoded[:len(encoded)-1])
	for _, key := range keys {
		value := v.Extra[key]
		if !json.Valid(value) {
			continue
		}
		encodedKey, _ := json.Marshal(key)
		buf.WriteByte(',')
		buf.Write(encodedKey)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Request is one page-load report: client-supplied fields from the body plus
// the network address, user agent and referrer taken from the HTTP request.
type Request struct {
	VisitorID      string   `json:"visitorId"`
	ScreenWidth    *int     `json:"screenWidth"`
	ScreenHeight   *int     `json:"screenHeight"`
	ViewportWidth  *int     `json:"viewportWidth"`
	ViewportHeight *int     `json:"viewportHeight"`
	PixelRatio     *float64 `json:"pixelRatio"`
	Language       *string  `json:"language"`
	Timezone       *string  `json:"timezone"`
	Platform       *string  `json:"platform"`
	TouchSupport   *bool    `json:"touchSupport"`
	ConnectionType *string  `json:"connectionType"`

	IP        string `json:"-"`
	UserAgent string `json:"-"`
	Referer   string `json:"-"`
}

// DecodeRequest parses a client payload. An empty or unparseable body is
// treated as an empty object, and client fields of an unexpected type are
// dropped rather than failing the whole report.
func DecodeRequest(body []byte) Request {
	var req Request
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return req
	}
	if err := json.Unmarshal(body, &req); err == nil {
		return req
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return Request{}
	}
	req = Request{}
	if id := lenientField[string](fields, "visitorId"); id != nil {
		req.VisitorID = *id
	}
	req.ScreenWidth = lenientField[int](fields, "screenWidth")
	req.ScreenHeight = lenientField[int](fields, "screenHeight")
	req.ViewportWidth = lenientField[int](fields, "viewportWidth")
	req.ViewportHeight = lenientField[int](fields, "viewportHeight")
	req.PixelRatio = lenientField[float64](fields, "pixelRatio")
	req.Language = lenientField[string](fields, "language")
	req.Timezone = lenientField[string](fields, "timezone")
	req.Platform = lenientField[string](fields, "platform")
	req.TouchSupport = lenientField[bool](fields, "touchSupport")
	req.ConnectionType = lenientField[string](fields, "connectionType")
	return req
}

func lenientField[T any](fields map[string]json.RawMessage, key string) *T {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	var value *T
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil
	}
	return value
}

func lenientValue[T any](fields map[string]json.RawMessage, key string) T {
	var zero T
	if value := lenientField[T](fields, key); value != nil {
		return *value
	}
	return zero
}

func screenLabel(w, h *int) string {
	if w == nil || h == nil || *w == 0 || *h == 0 {
		return "-"
	}
	return fmt.Sprintf("%dx%d", *w, *h)
}
