package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// FixedFormatWriter rewrites zerolog JSON lines into fixed-width columns
// for log files read by people rather than pipelines:
//
//	2026-02-26 12:00:00.000 [INF] [daemon         ] Helper daemon started pid=4120
//	2026-02-26 12:00:01.200 [INF] [resolver       ] Sensor tier changed from=daemon to=wmi
type FixedFormatWriter struct {
	w io.Writer
}

// NewFixedFormatWriter wraps w.
func NewFixedFormatWriter(w io.Writer) *FixedFormatWriter {
	return &FixedFormatWriter{w: w}
}

const (
	componentWidth  = 15
	timestampLayout = "2006-01-02 15:04:05.000"
)

var levelAbbrev = map[string]string{
	"trace": "TRC",
	"debug": "DBG",
	"info":  "INF",
	"warn":  "WRN",
	"error": "ERR",
	"fatal": "FTL",
	"panic": "PNC",
}

// Write reformats one JSON event. Input that is not a JSON object is passed
// through unchanged. It always reports len(p) written, as zerolog expects.
func (f *FixedFormatWriter) Write(p []byte) (int, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(p, &fields); err != nil {
		return f.w.Write(p)
	}

	ts := formatTimestamp(takeString(fields, "time"))
	lvl, ok := levelAbbrev[takeString(fields, "level")]
	if !ok {
		lvl = "???"
	}
	comp := takeString(fields, "component")
	if len(comp) > componentWidth {
		comp = comp[:componentWidth]
	}
	msg := takeString(fields, "message")
	delete(fields, "caller")

	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] [%-*s] %s", ts, lvl, componentWidth, comp, msg)
	if extra := formatExtra(fields); extra != "" {
		b.WriteByte(' ')
		b.WriteString(extra)
	}
	b.WriteByte('\n')

	_, err := io.WriteString(f.w, b.String())
	return len(p), err
}

// takeString removes key from fields and returns its value as a string.
func takeString(fields map[string]interface{}, key string) string {
	v, ok := fields[key]
	if !ok {
		return ""
	}
	delete(fields, key)
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// formatTimestamp renders an RFC 3339 timestamp in its recorded zone with
// millisecond precision, always 23 characters wide. The zone is dropped.
func formatTimestamp(ts string) string {
	if ts == "" {
		return strings.Repeat(" ", len(timestampLayout))
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		if len(ts) > len(timestampLayout) {
			return ts[:len(timestampLayout)]
		}
		return ts + strings.Repeat(" ", len(timestampLayout)-len(ts))
	}
	return t.Format(timestampLayout)
}

// formatExtra renders the remaining fields as sorted key=value pairs, quoting
// values that contain whitespace or quotes.
func formatExtra(fields map[string]interface{}) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		s := fmt.Sprint(fields[k])
		if strings.ContainsAny(s, " \t\n\"") {
			parts = append(parts, fmt.Sprintf("%s=%q", k, s))
		} else {
			parts = append(parts, k+"="+s)
		}
	}
	return strings.Join(parts, " ")
}
