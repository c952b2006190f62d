package parserjson

import (
	"encoding/json"

	"github.com/MuchTitan/logtail/internal"
	"github.com/MuchTitan/logtail/internal/parser"
	"github.com/MuchTitan/logtail/internal/util"
)

// Json decodes payloads that are a single JSON object.
type Json struct {
	name       string
	match      string
	timeKey    string
	timeLayout string
}

func (j *Json) Name() string {
	return j.name
}

func (j *Json) MatchTag(inputTag string) bool {
	return util.TagMatch(inputTag, j.match)
}

func (j *Json) Init(config map[string]any) error {
	j.name = util.MustString(config["Name"])
	if j.name == "" {
		j.name = "json"
	}

	j.match = util.MustString(config["Match"])
	if j.match == "" {
		j.match = "*"
	}

	j.timeKey = util.MustString(config["TimeKey"])

	var err error
	j.timeLayout, err = util.TimeLayout(util.MustString(config["TimeFormat"]))
	return err
}

func (j *Json) Process(event *internal.Event) bool {
	var fields map[string]any
	if err := json.Unmarshal(event.Record.Payload, &fields); err != nil || fields == nil {
		return false
	}
	event.Fields = fields
	parser.ExtractTime(event, j.timeKey, j.timeLayout)
	return true
}

func (j *Json) Exit() error {
	return nil
}
