package tail

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/MuchTitan/logtail/internal/util"
)

// TimestampRule locates a timestamp inside a line: Length bytes starting at
// StartByte, laid out as Format.
type TimestampRule struct {
	StartByte int
	Length    int
	Format    string

	layout string
}

// NewTimestampRule validates the rule and resolves Format into a Go time
// layout. Formats containing '%' are strftime patterns; anything else is
// taken as a Go reference layout.
func NewTimestampRule(startByte, length int, format string) (TimestampRule, error) {
	if startByte < 0 {
		return TimestampRule{}, fmt.Errorf("timestamp StartByte must not be negative, got %d", startByte)
	}
	if length <= 0 {
		return TimestampRule{}, fmt.Errorf("timestamp Length must be positive, got %d", length)
	}
	if format == "" {
		return TimestampRule{}, errors.New("timestamp Format is required")
	}

	layout, err := util.TimeLayout(format)
	if err != nil {
		return TimestampRule{}, fmt.Errorf("unsupported timestamp format: %w", err)
	}

	return TimestampRule{
		StartByte: startByte,
		Length:    length,
		Format:    format,
		layout:    layout,
	}, nil
}

// Parse extracts the timestamp of line in epoch milliseconds. It reports
// false for short lines, invalid UTF-8, or text not matching the layout.
func (r TimestampRule) Parse(line []byte) (int64, bool) {
	end := r.StartByte + r.Length
	if r.layout == "" || len(line) <= end {
		return 0, false
	}
	window := line[r.StartByte:end]
	if !utf8.Valid(window) {
		return 0, false
	}
	t, err := time.ParseInLocation(r.layout, string(window), time.UTC)
	if err != nil {
		return 0, false
	}
	return t.UnixMilli(), true
}

// Draft is a record that is still collecting lines.
type Draft struct {
	EventTime int64
	Offset    int64 // file offset of the first byte
	Payload   []byte
}

func (d *Draft) Size() int64 {
	return int64(len(d.Payload))
}

// Assembler merges framed lines into multi-line records. A line with a
// parseable timestamp starts a new record; any other line continues the
// open one.
type Assembler struct {
	rule TimestampRule
	now  func() time.Time
	pos  int64
	open *Draft
}

// NewAssembler returns an assembler whose first line starts at offset.
func NewAssembler(rule TimestampRule, offset int64, now func() time.Time) *Assembler {
	if now == nil {
		now = time.Now
	}
	return &Assembler{rule: rule, now: now, pos: offset}
}

// Feed consumes one line. When the line starts a new record and another
// record was open, the finished record is returned.
func (a *Assembler) Feed(line []byte) *Draft {
	start := a.pos
	a.pos += int64(len(line))

	ts, ok := a.rule.Parse(line)
	if !ok {
		if a.open == nil {
			a.open = &Draft{EventTime: a.now().UnixMilli(), Offset: start}
		}
		a.open.Payload = append(a.open.Payload, line...)
		return nil
	}

	done := a.open
	a.open = &Draft{
		EventTime: ts,
		Offset:    start,
		Payload:   append([]byte(nil), line...),
	}
	return done
}

// Open hands back the record still collecting lines, if any.
func (a *Assembler) Open() *Draft {
	return a.open
}
