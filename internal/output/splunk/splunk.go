package outputsplunk

import (
	"bytes"
	"compress/gzip"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/MuchTitan/logtail/internal"
	"github.com/MuchTitan/logtail/internal/util"
	"github.com/sirupsen/logrus"
)

type Splunk struct {
	name       string
	token      string
	match      string
	host       string
	eventHost  string
	sourceType string
	index      string
	port       int
	compress   bool
	verifyTLS  bool
	sendRaw    bool
	httpClient *http.Client
	buffer     bytes.Buffer
}

func (s *Splunk) MatchTag(inputTag string) bool {
	return util.TagMatch(inputTag, s.match)
}

type splunkEvent struct {
	Event      any            `json:"event"`
	Index      string         `json:"index"`
	Source     string         `json:"source"`
	Sourcetype string         `json:"sourcetype"`
	Host       string         `json:"host"`
	Time       float64        `json:"time"`
	Fields     map[string]any `json:"fields,omitempty"`
}

func (s *Splunk) Name() string {
	return s.name
}

func (s *Splunk) Init(config map[string]any) error {
	// Required fields
	s.token = util.MustString(config["Token"])
	if s.token == "" {
		return errors.New("splunk token is required")
	}

	s.index = util.MustString(config["EventIndex"])
	if s.index == "" {
		return errors.New("splunk index is required")
	}

	// Optional fields with defaults
	s.name = util.MustString(config["Name"])
	if s.name == "" {
		s.name = "splunk"
	}

	s.match = util.MustString(config["Match"])
	if s.match == "" {
		s.match = "*"
	}

	s.host = util.MustString(config["Host"])
	if s.host == "" {
		s.host = "localhost"
	}

	s.eventHost = util.MustString(config["EventHost"])
	if s.eventHost == "" {
		hostname, _ := os.Hostname()
		s.eventHost = hostname
	}

	s.sourceType = util.MustString(config["EventSourcetype"])
	if s.sourceType == "" {
		s.sourceType = "logtail"
	}

	var err error
	if s.port, err = util.Int(config, "Port", 8088); err != nil {
		return err
	}
	if s.compress, err = util.Bool(config, "Compress", false); err != nil {
		return err
	}
	if s.verifyTLS, err = util.Bool(config, "VerifyTLS", false); err != nil {
		return err
	}
	if s.sendRaw, err = util.Bool(config, "SendRaw", false); err != nil {
		return err
	}

	tr := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: !s.verifyTLS,
		},
	}

	s.httpClient = &http.Client{
		Transport: tr,
		Timeout:   time.Second * 30,
	}

	s.buffer = bytes.Buffer{}
	return nil
}

func (s *Splunk) newSplunkEvent(event internal.Event) splunkEvent {
	e := splunkEvent{
		Event:      string(event.Record.Payload),
		Index:      s.index,
		Source:     event.Record.SourcePath,
		Sourcetype: s.sourceType,
		Host:       s.eventHost,
		Time:       float64(event.Record.EventTime) / 1000,
		Fields: map[string]any{
			"tag":    event.Metadata.Tag,
			"file":   event.Record.SourceFileName,
			"offset": event.Record.OffsetAfter,
			"id":     event.ID,
		},
	}
	for key, value := range event.Fields {
		if _, taken := e.Fields[key]; !taken {
			e.Fields[key] = value
		}
	}
	return e
}

// Write queues events; the HEC endpoint takes concatenated JSON objects,
// the raw endpoint takes the payloads as they are.
func (s *Splunk) Write(events []internal.Event) error {
	for _, event := range events {
		if !s.MatchTag(event.Metadata.Tag) {
			continue
		}
		if s.sendRaw {
			s.buffer.Write(event.Record.Payload)
			continue
		}
		data, err := json.Marshal(s.newSplunkEvent(event))
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}
		s.buffer.Write(data)
	}

	return s.Flush()
}

func (s *Splunk) url() string {
	url := fmt.Sprintf("https://%s:%d/services/collector", s.host, s.port)
	if s.sendRaw {
		url += fmt.Sprintf("/raw?index=%s&sourcetype=%s", s.index, s.sourceType)
	}
	return url
}

func (s *Splunk) Flush() error {
	if s.buffer.Len() == 0 {
		return nil
	}

	var requestBody bytes.Buffer
	if s.compress {
		gz := gzip.NewWriter(&requestBody)
		if _, err := gz.Write(s.buffer.Bytes()); err != nil {
			return fmt.Errorf("error during gzip compress: %w", err)
		}
		if err := gz.Close(); err != nil {
			return err
		}
	} else {
		requestBody.Write(s.buffer.Bytes())
	}
	sent := s.buffer.Len()
	s.buffer.Reset()

	req, err := http.NewRequest(http.MethodPost, s.url(), &requestBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Splunk "+s.token)
	req.Header.Set("Content-Type", "application/json")
	if s.compress {
		req.Header.Set("Content-Encoding", "gzip")
	}

	res, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		logrus.WithFields(logrus.Fields{
			"url":    req.URL.String(),
			"status": res.Status,
			"bytes":  sent,
		}).Debug("splunk request failed")
		return fmt.Errorf("splunk returned status: %s", res.Status)
	}

	return nil
}

func (s *Splunk) Exit() error {
	return nil
}
