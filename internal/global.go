package internal

import (
	"bytes"
	"time"
)

// Record is one logical log entry assembled from one or more physical lines.
type Record struct {
	EventTime      int64 // epoch milliseconds
	SourceFileName string
	SourcePath     string
	OffsetAfter    int64
	Payload        []byte
}

// Time returns EventTime as a time.Time.
func (r Record) Time() time.Time {
	return time.UnixMilli(r.EventTime)
}

// FirstLine returns the payload up to the first line terminator, without it.
func (r Record) FirstLine() string {
	if i := bytes.IndexByte(r.Payload, '\n'); i >= 0 {
		return string(bytes.TrimRight(r.Payload[:i], "\r"))
	}
	return string(r.Payload)
}

// Sink receives completed records. Implementations must be safe for
// concurrent use; Submit has no return value and is fire-and-forget.
type Sink interface {
	Submit(record Record)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Record)

func (f SinkFunc) Submit(record Record) { f(record) }

type Event struct {
	ID       string
	Record   Record
	Metadata Metadata
	Fields   map[string]any // set by parsers, nil when unparsed
}

type Metadata struct {
	Host        string
	Tag         string
	InputSource string
}

// Plugin interface that all plugins must implement
type Plugin interface {
	Name() string
	Init(config map[string]any) error
	Exit() error
}
