package alert

import (
	"time"

	"codeberg.org/mutker/vitalsctl/internal/vitals"
)

// Data is free-form context attached to an alert.
type Data map[string]any

// clone is a shallow copy; nil stays nil.
func (d Data) clone() Data {
	if d == nil {
		return nil
	}
	out := make(Data, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// detached returns a copy of a that shares no map with it.
func (a Alert) detached() Alert {
	a.Data = a.Data.clone()
	return a
}

type Alert struct {
	ID        string          `json:"id"`
	Severity  vitals.Severity `json:"severity"`
	Message   string          `json:"message"`
	Metric    vitals.Metric   `json:"metric,omitempty"`
	Value     *float64        `json:"value,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      Data            `json:"data,omitempty"`
}

// Filter selects history entries. Zero fields match everything; set fields
// combine with AND. Time bounds are inclusive.
type Filter struct {
	Severity  vitals.Severity
	Metric    vitals.Metric
	StartTime time.Time
	EndTime   time.Time
}

func (f Filter) match(a Alert) bool {
	if f.Severity != vitals.SeverityNone && a.Severity != f.Severity {
		return false
	}
	if f.Metric != vitals.MetricUnknown && a.Metric != f.Metric {
		return false
	}
	if !f.StartTime.IsZero() && a.Timestamp.Before(f.StartTime) {
		return false
	}
	if !f.EndTime.IsZero() && a.Timestamp.After(f.EndTime) {
		return false
	}
	return true
}

// history is a FIFO ring of the most recent alerts, oldest first.
type history struct {
	entries []Alert
	size    int
}

func newHistory(size int) *history {
	return &history{
		entries: make([]Alert, 0, size),
		size:    size,
	}
}

func (h *history) add(a Alert) {
	if len(h.entries) == h.size {
		copy(h.entries, h.entries[1:])
		h.entries = h.entries[:h.size-1]
	}
	h.entries = append(h.entries, a.detached())
}

func (h *history) replace(entries []Alert) {
	if len(entries) > h.size {
		entries = entries[len(entries)-h.size:]
	}
	h.entries = append(h.entries[:0], entries...)
}

func (h *history) clear() {
	h.entries = h.entries[:0]
}

func (h *history) list() []Alert {
	out := make([]Alert, len(h.entries))
	for i, a := range h.entries {
		out[i] = a.detached()
	}
	return out
}
