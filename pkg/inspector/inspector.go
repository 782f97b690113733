// Package inspector captures an inbound HTTP request in full and renders it
// as a banner-delimited log block. It is a best-effort diagnostic: malformed
// bodies never produce an error, only a note in the rendered block.
package inspector

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// Route is the diagnostic endpoint every method is accepted on.
const Route = "/api/messages"

const bannerWidth = 80

var (
	banner  = strings.Repeat("=", bannerWidth)
	divider = strings.Repeat("-", bannerWidth)
)

// Record holds everything captured from one request. It lives for a single
// handler invocation: built, logged, discarded.
type Record struct {
	Timestamp  time.Time
	Method     string
	URL        string
	ClientHost string
	Headers    map[string]string
	Query      map[string]string
	BodyRaw    string
	BodyJSON   any

	hasJSON bool
}

// Ack is the fixed-shape acknowledgment returned for every inspected
// request, regardless of its content.
type Ack struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Capture reads the request in full and builds its Record. It never fails:
// a body read error or invalid UTF-8 is substituted into BodyRaw, and a body
// that does not parse as JSON simply leaves BodyJSON absent.
func Capture(r *http.Request) *Record {
	rec := &Record{
		Timestamp:  time.Now().UTC(),
		Method:     r.Method,
		URL:        r.URL.String(),
		ClientHost: clientHost(r),
		Headers:    make(map[string]string, len(r.Header)),
		Query:      map[string]string{},
	}

	for name, values := range r.Header {
		rec.Headers[name] = strings.Join(values, ", ")
	}
	// Duplicate query keys collapse last-wins.
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			rec.Query[key] = values[len(values)-1]
		}
	}

	b, err := io.ReadAll(r.Body)
	if err != nil {
		rec.BodyRaw = fmt.Sprintf("Error reading body: %v", err)
		return rec
	}
	if !utf8.Valid(b) {
		rec.BodyRaw = "Error decoding body: invalid UTF-8 byte sequence"
		return rec
	}

	rec.BodyRaw = string(b)
	if rec.BodyRaw == "" {
		return rec
	}

	var v any
	if err := json.Unmarshal(b, &v); err == nil {
		rec.BodyJSON = v
		rec.hasJSON = true
	}

	return rec
}

// HasJSON reports whether the body text parsed as JSON.
func (rec *Record) HasJSON() bool {
	return rec.hasJSON
}

// Lines renders the log block in its stable, scraper-friendly order. Header
// names are sorted; the JSON section appears only when the body parsed.
func (rec *Record) Lines() []string {
	lines := []string{
		banner,
		fmt.Sprintf("Incoming %s request to %s", rec.Method, Route),
		banner,
		"Timestamp: " + rec.Timestamp.Format(time.RFC3339),
		"URL: " + rec.URL,
		"Client: " + rec.ClientHost,
		divider,
		"Headers:",
	}

	names := make([]string, 0, len(rec.Headers))
	for name := range rec.Headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("  %s: %s", name, rec.Headers[name]))
	}

	lines = append(lines, divider, "Query Parameters:")
	if len(rec.Query) == 0 {
		lines = append(lines, "  None")
	} else {
		// %v on a map prints keys sorted, so the dump is deterministic.
		lines = append(lines, fmt.Sprintf("  %v", rec.Query))
	}

	lines = append(lines, divider, "Body (raw):")
	if rec.BodyRaw == "" {
		lines = append(lines, "  Empty")
	} else {
		lines = append(lines, "  "+rec.BodyRaw)
	}
	lines = append(lines, divider)

	if rec.hasJSON {
		if pretty, err := json.MarshalIndent(rec.BodyJSON, "  ", "  "); err == nil {
			lines = append(lines, "Body (JSON):", "  "+string(pretty), divider)
		}
	}

	lines = append(lines, banner)
	return lines
}

// Ack builds the acknowledgment response for the inspected request.
func (rec *Record) Ack() Ack {
	return Ack{
		Status:    "received",
		Message:   fmt.Sprintf("%s request logged successfully", rec.Method),
		Timestamp: rec.Timestamp.Format(time.RFC3339),
	}
}

func clientHost(r *http.Request) string {
	if r.RemoteAddr == "" {
		return "Unknown"
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
