package web

import (
	"strconv"
	"strings"

	"github.com/vadiminshakov/hodlbook/internal/services/tracker"
)

// eventID is the SSE id of a report, written as "<epoch>-<generation>".
// Generations restart with every server process; the epoch tells processes
// apart.
type eventID struct {
	epoch int64
	gen   uint64
}

func reportEventID(r *tracker.Report) eventID {
	return eventID{epoch: r.Epoch, gen: r.Generation}
}

func (id eventID) String() string {
	return strconv.FormatInt(id.epoch, 10) + "-" + strconv.FormatUint(id.gen, 10)
}

// IsZero reports whether no report has been seen yet.
func (id eventID) IsZero() bool {
	return id == eventID{}
}

// Precedes reports whether r comes after id. A report of another epoch
// always does.
func (id eventID) Precedes(r *tracker.Report) bool {
	return r.Epoch != id.epoch || r.Generation > id.gen
}

// parseEventID parses "<epoch>-<generation>". Anything else yields the zero
// id, which precedes every report.
func parseEventID(s string) eventID {
	epochStr, genStr, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return eventID{}
	}
	epoch, err := strconv.ParseInt(epochStr, 10, 64)
	if err != nil {
		return eventID{}
	}
	gen, err := strconv.ParseUint(genStr, 10, 64)
	if err != nil {
		return eventID{}
	}
	return eventID{epoch: epoch, gen: gen}
}

// parseLastEventID extracts the SSE event ID from either the Last-Event-ID
// header or a query parameter.
func parseLastEventID(headerVal, queryVal string) eventID {
	if strings.TrimSpace(headerVal) != "" {
		return parseEventID(headerVal)
	}
	return parseEventID(queryVal)
}
