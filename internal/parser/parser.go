package parser

import (
	"time"

	"github.com/MuchTitan/logtail/internal"
)

// Plugin extracts structured fields from a record's payload. Process
// reports whether the payload was understood; the engine stops at the
// first parser that succeeds.
type Plugin interface {
	internal.Plugin
	Process(event *internal.Event) bool
	MatchTag(inputTag string) bool
}

// ExtractTime overrides the record's event time with the parsed field
// timeKey, when present and valid.
func ExtractTime(event *internal.Event, timeKey, layout string) {
	if timeKey == "" {
		return
	}
	if timeValue, ok := event.Fields[timeKey].(string); ok {
		t, err := time.ParseInLocation(layout, timeValue, time.UTC)
		if err != nil {
			return
		}
		event.Record.EventTime = t.UnixMilli()
	}
}
