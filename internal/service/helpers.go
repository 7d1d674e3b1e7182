package service

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"

	"orderbackup/internal/payload"
)

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func mustJSON(v any) datatypes.JSON {
	raw, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON([]byte("{}"))
	}
	return datatypes.JSON(raw)
}

func strPtr(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func timePtr(t time.Time) *time.Time {
	t = t.UTC()
	return &t
}

// orderDateFor picks the business date of an order: the purchase time from
// the payload, else the event time, else now.
func orderDateFor(p payload.Order, occurred *time.Time, now time.Time) *time.Time {
	if bought := p.BoughtAt(); bought != nil {
		return timePtr(*bought)
	}
	if occurred != nil {
		return timePtr(*occurred)
	}
	return timePtr(now)
}

// eventRevision is the revision stamped on an order written from an event.
// Events without a checkout form revision fall back to the event time in
// unix seconds.
func eventRevision(explicit string, occurred *time.Time) string {
	if explicit != "" {
		return explicit
	}
	if occurred == nil {
		return ""
	}
	return strconv.FormatInt(occurred.Unix(), 10)
}

// bulkRevision is the revision for a bulk-listed checkout form.
func bulkRevision(p payload.Order) string {
	if rev := p.Revision(); rev != "" {
		return rev
	}
	if updated := p.UpdatedAt(); updated != nil {
		return strconv.FormatInt(updated.Unix(), 10)
	}
	return ""
}

// revisionTime is the watermark for out-of-order protection.
func revisionTime(p payload.Order, occurred *time.Time) *time.Time {
	if updated := p.UpdatedAt(); updated != nil {
		return timePtr(*updated)
	}
	if occurred != nil {
		return timePtr(*occurred)
	}
	return nil
}
