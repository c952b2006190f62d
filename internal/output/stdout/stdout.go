package outputstdout

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/MuchTitan/logtail/internal"
	"github.com/MuchTitan/logtail/internal/util"
	"github.com/mattn/go-isatty"
)

var ValidFormats = []string{"json", "plain", "template"}

type Stdout struct {
	name       string
	format     string             // Output format (json, template, plain)
	template   *template.Template // Custom output template
	jsonIndent bool               // Whether to indent JSON output
	mutex      sync.Mutex         // Ensures atomic writes to stdout
	colors     bool               // Enable/disable colored output
	match      string
	out        io.Writer
}

// templateData is what a custom Template is executed against.
type templateData struct {
	ID        string
	Timestamp time.Time
	Tag       string
	Host      string
	File      string
	Path      string
	Offset    int64
	Message   string
	FirstLine string
	Fields    map[string]any
}

func (s *Stdout) Name() string {
	return s.name
}

func (s *Stdout) Init(config map[string]any) error {
	s.name = util.MustString(config["Name"])
	if s.name == "" {
		s.name = "stdout"
	}

	s.match = util.MustString(config["Match"])
	if s.match == "" {
		s.match = "*"
	}

	s.format = util.MustString(config["Format"])
	if s.format == "" {
		s.format = "json"
	}

	if !slices.Contains(ValidFormats, s.format) {
		return fmt.Errorf("not a valid format for stdout provided: %s", s.format)
	}

	var err error
	if s.jsonIndent, err = util.Bool(config, "JsonIndent", false); err != nil {
		return err
	}

	// Colors default to on when stdout is a terminal
	tty := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	if s.colors, err = util.Bool(config, "Colors", tty); err != nil {
		return err
	}

	if templateTmp, exists := config["Template"]; exists && templateTmp != "" {
		tmpl, err := template.New("output").Parse(util.MustString(templateTmp))
		if err != nil {
			return fmt.Errorf("failed to parse template: %v", err)
		}
		s.template = tmpl
		s.format = "template"
	}
	if s.format == "template" && s.template == nil {
		return errors.New("stdout format template needs a Template")
	}

	return nil
}

func (s *Stdout) Write(events []internal.Event) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, event := range events {
		if !util.TagMatch(event.Metadata.Tag, s.match) {
			continue
		}
		var output string
		var err error

		switch s.format {
		case "json":
			output, err = s.formatJSON(event)
		case "template":
			output, err = s.formatTemplate(event)
		case "plain":
			output, err = s.formatPlain(event)
		default:
			return fmt.Errorf("unknown format: %s", s.format)
		}

		if err != nil {
			return fmt.Errorf("failed to format record: %v", err)
		}

		if s.colors {
			output = s.colorize(output)
		}

		if _, err := fmt.Fprintln(s.writer(), output); err != nil {
			return err
		}
	}

	return nil
}

func (s *Stdout) writer() io.Writer {
	if s.out == nil {
		return os.Stdout
	}
	return s.out
}

func (s *Stdout) formatJSON(event internal.Event) (string, error) {
	formatted := map[string]any{
		"id":        event.ID,
		"timestamp": event.Record.Time().UTC().Format(time.RFC3339Nano),
		"tag":       event.Metadata.Tag,
		"host":      event.Metadata.Host,
		"file":      event.Record.SourceFileName,
		"offset":    event.Record.OffsetAfter,
		"message":   string(event.Record.Payload),
	}

	if event.Record.SourcePath != "" {
		formatted["path"] = event.Record.SourcePath
	}
	if len(event.Fields) > 0 {
		formatted["fields"] = event.Fields
	}

	var bytes []byte
	var err error

	if s.jsonIndent {
		bytes, err = json.MarshalIndent(formatted, "", "  ")
	} else {
		bytes, err = json.Marshal(formatted)
	}

	if err != nil {
		return "", err
	}

	return string(bytes), nil
}

func (s *Stdout) formatTemplate(event internal.Event) (string, error) {
	if s.template == nil {
		return "", fmt.Errorf("template not configured")
	}

	builder := &strings.Builder{}
	err := s.template.Execute(builder, templateData{
		ID:        event.ID,
		Timestamp: event.Record.Time(),
		Tag:       event.Metadata.Tag,
		Host:      event.Metadata.Host,
		File:      event.Record.SourceFileName,
		Path:      event.Record.SourcePath,
		Offset:    event.Record.OffsetAfter,
		Message:   string(event.Record.Payload),
		FirstLine: event.Record.FirstLine(),
		Fields:    event.Fields,
	})
	if err != nil {
		return "", err
	}

	return builder.String(), nil
}

func (s *Stdout) formatPlain(event internal.Event) (string, error) {
	// timestamp [tag] file: payload
	var builder strings.Builder

	fmt.Fprintf(&builder, "%s [%s] %s: ",
		event.Record.Time().UTC().Format(time.RFC3339),
		event.Metadata.Tag,
		event.Record.SourceFileName)
	builder.WriteString(strings.TrimRight(string(event.Record.Payload), "\r\n"))

	return builder.String(), nil
}

func (s *Stdout) colorize(output string) string {
	const (
		colorReset  = "\033[0m"
		colorRed    = "\033[31m"
		colorGreen  = "\033[32m"
		colorYellow = "\033[33m"
		colorBlue   = "\033[34m"
	)

	switch {
	case strings.Contains(strings.ToLower(output), "error"):
		return colorRed + output + colorReset
	case strings.Contains(strings.ToLower(output), "warn"):
		return colorYellow + output + colorReset
	case strings.Contains(strings.ToLower(output), "info"):
		return colorGreen + output + colorReset
	default:
		return colorBlue + output + colorReset
	}
}

func (s *Stdout) MatchTag(inputTag string) bool {
	return util.TagMatch(inputTag, s.match)
}

func (s *Stdout) Flush() error {
	// No buffering, so no flush needed
	return nil
}

func (s *Stdout) Exit() error {
	return nil
}
