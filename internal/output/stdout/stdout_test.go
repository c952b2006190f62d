package outputstdout

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/MuchTitan/logtail/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var eventTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func testEvent(tag, payload string) internal.Event {
	return internal.Event{
		ID: "f47ac10b-58cc-4372-a567-0e02b2c3d479",
		Record: internal.Record{
			EventTime:      eventTime.UnixMilli(),
			SourceFileName: "app.log",
			SourcePath:     "/var/log/app.log",
			OffsetAfter:    int64(len(payload)),
			Payload:        []byte(payload),
		},
		Metadata: internal.Metadata{Tag: tag, Host: "web-1"},
	}
}

func newStdout(t *testing.T, config map[string]any) (*Stdout, *bytes.Buffer) {
	t.Helper()
	config["Colors"] = false
	s := &Stdout{}
	require.NoError(t, s.Init(config))
	buf := &bytes.Buffer{}
	s.out = buf
	return s, buf
}

func TestStdoutWriteJSON(t *testing.T) {
	s, buf := newStdout(t, map[string]any{"Format": "json"})

	payload := "2024-01-01 00:00:00 boom\n  at frame1\n"
	require.NoError(t, s.Write([]internal.Event{testEvent("test", payload)}))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, payload, got["message"])
	assert.Equal(t, "test", got["tag"])
	assert.Equal(t, "app.log", got["file"])
	assert.Equal(t, "/var/log/app.log", got["path"])
	assert.Equal(t, float64(len(payload)), got["offset"])
	assert.Equal(t, "2024-01-01T00:00:00Z", got["timestamp"])
}

func TestStdoutWritePlain(t *testing.T) {
	s, buf := newStdout(t, map[string]any{"Format": "plain"})

	require.NoError(t, s.Write([]internal.Event{testEvent("test", "hello\n")}))

	assert.Equal(t, "2024-01-01T00:00:00Z [test] app.log: hello\n", buf.String())
}

func TestStdoutWriteTemplate(t *testing.T) {
	s, buf := newStdout(t, map[string]any{
		"Template": "{{.Tag}} - {{.File}}@{{.Offset}} - {{.FirstLine}}",
	})
	assert.Equal(t, "template", s.format)

	require.NoError(t, s.Write([]internal.Event{testEvent("custom", "first\nsecond\n")}))

	assert.Equal(t, "custom - app.log@13 - first\n", buf.String())
}

func TestStdoutWriteSkipsUnmatchedTags(t *testing.T) {
	s, buf := newStdout(t, map[string]any{"Format": "plain", "Match": "app*"})

	require.NoError(t, s.Write([]internal.Event{
		testEvent("db", "skipped\n"),
		testEvent("app.web", "kept\n"),
	}))

	assert.NotContains(t, buf.String(), "skipped")
	assert.Contains(t, buf.String(), "kept")
}

func TestStdoutInit(t *testing.T) {
	tests := []struct {
		name    string
		config  map[string]any
		wantErr bool
	}{
		{"defaults", map[string]any{}, false},
		{"invalid format", map[string]any{"Format": "xml"}, true},
		{"template without template", map[string]any{"Format": "template"}, true},
		{"broken template", map[string]any{"Template": "{{.Tag"}, true},
		{"indent not a bool", map[string]any{"JsonIndent": "yes"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Stdout{}
			err := s.Init(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, "stdout", s.Name())
			assert.Equal(t, "json", s.format)
		})
	}
}

func TestStdoutColorize(t *testing.T) {
	s := &Stdout{}
	assert.Contains(t, s.colorize("error: something went wrong"), "\033[31m")
	assert.Contains(t, s.colorize("warn: be careful"), "\033[33m")
	assert.Contains(t, s.colorize("info: all good"), "\033[32m")
}

func TestStdoutMatchTag(t *testing.T) {
	s := &Stdout{}
	assert.NoError(t, s.Init(map[string]any{"Match": "test*"}))

	assert.True(t, s.MatchTag("test-event"))
	assert.False(t, s.MatchTag("other-event"))
}

func TestStdoutFlushExit(t *testing.T) {
	s := &Stdout{}
	assert.NoError(t, s.Flush())
	assert.NoError(t, s.Exit())
}

func TestStdoutWriteJSONWithFields(t *testing.T) {
	s, buf := newStdout(t, map[string]any{"Format": "json"})

	event := testEvent("test", "ERROR disk full\n")
	event.Fields = map[string]any{"level": "ERROR"}
	require.NoError(t, s.Write([]internal.Event{event}))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, map[string]any{"level": "ERROR"}, got["fields"])
}
