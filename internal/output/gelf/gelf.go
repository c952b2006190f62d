package outputgelf

import (
	"errors"
	"fmt"
	"io"

	"github.com/MuchTitan/logtail/internal"
	"github.com/MuchTitan/logtail/internal/util"
	"github.com/sirupsen/logrus"

	"gopkg.in/Graylog2/go-gelf.v2/gelf"
)

const maxBuffered = 1000

type GELF struct {
	name    string
	match   string
	host    string
	hostKey string
	port    int
	mode    string
	buffer  []*gelf.Message
	writer  gelf.Writer
}

func (g *GELF) Name() string {
	return g.name
}

func (g *GELF) Init(config map[string]any) error {
	g.name = util.MustString(config["Name"])
	if g.name == "" {
		g.name = "gelf"
	}

	g.match = util.MustString(config["Match"])
	if g.match == "" {
		g.match = "*"
	}

	g.host = util.MustString(config["Host"])
	if g.host == "" {
		g.host = "127.0.0.1"
	}

	g.hostKey = util.MustString(config["HostKey"])
	if g.hostKey == "" {
		return errors.New("please provide a valid HostKey for the gelf output")
	}

	g.mode = util.MustString(config["Mode"])
	if g.mode == "" {
		g.mode = "udp"
	}
	if g.mode != "udp" && g.mode != "tcp" {
		return fmt.Errorf("mode: '%v' is not supported", g.mode)
	}

	var err error
	if g.port, err = util.Int(config, "Port", 12201); err != nil {
		return err
	}

	g.buffer = make([]*gelf.Message, 0, 100)

	return g.setupWriter()
}

func (g *GELF) setupWriter() error {
	addr := fmt.Sprintf("%s:%d", g.host, g.port)
	var w gelf.Writer
	var err error

	switch g.mode {
	case "udp":
		w, err = gelf.NewUDPWriter(addr)
	case "tcp":
		w, err = gelf.NewTCPWriter(addr)
	default:
		return fmt.Errorf("unsupported mode: %s", g.mode)
	}

	if err != nil {
		return fmt.Errorf("failed to create %s writer: %w", g.mode, err)
	}

	g.writer = w
	return nil
}

func (g *GELF) newMessage(event internal.Event) *gelf.Message {
	msg := &gelf.Message{
		Version:  "1.1",
		Host:     g.hostKey,
		Short:    event.Record.FirstLine(),
		Full:     string(event.Record.Payload),
		TimeUnix: float64(event.Record.EventTime) / 1000,
		Level:    gelf.LOG_INFO,
		Extra: map[string]any{
			"_event_id":    event.ID,
			"_tag":         event.Metadata.Tag,
			"_source_file": event.Record.SourceFileName,
			"_source_path": event.Record.SourcePath,
			"_offset":      event.Record.OffsetAfter,
			"_agent_host":  event.Metadata.Host,
		},
	}
	// parsed fields become additional fields; built-in ones win
	for key, value := range event.Fields {
		if key == "id" {
			continue
		}
		if _, taken := msg.Extra["_"+key]; !taken {
			msg.Extra["_"+key] = value
		}
	}
	return msg
}

func (g *GELF) Write(events []internal.Event) error {
	for _, event := range events {
		if !util.TagMatch(event.Metadata.Tag, g.match) {
			continue
		}
		g.buffer = append(g.buffer, g.newMessage(event))
	}

	if err := g.Flush(); err != nil {
		if len(g.buffer) > maxBuffered {
			logrus.WithField("dropped", len(g.buffer)-maxBuffered).Warn("gelf buffer full, dropping oldest messages")
			g.buffer = append(g.buffer[:0], g.buffer[len(g.buffer)-maxBuffered:]...)
		}
		return err
	}
	return nil
}

// Flush sends buffered messages in order. Messages not sent stay buffered
// for the next attempt.
func (g *GELF) Flush() error {
	for i, msg := range g.buffer {
		if err := g.writer.WriteMessage(msg); err != nil {
			g.buffer = append(g.buffer[:0], g.buffer[i:]...)
			return fmt.Errorf("could not send gelf message: %w", err)
		}
	}
	g.buffer = g.buffer[:0]
	return nil
}

func (g *GELF) Exit() error {
	if g.writer != nil {
		if closer, ok := g.writer.(io.Closer); ok {
			return closer.Close()
		}
	}
	return nil
}
