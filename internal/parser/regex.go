package parser

import (
	"errors"
	"regexp"

	"github.com/MuchTitan/logtail/internal"
	"github.com/MuchTitan/logtail/internal/util"
)

// Regex fills Fields from the named groups of Pattern. Use (?s) in the
// pattern to let '.' span the lines of a multi-line record.
type Regex struct {
	name       string
	match      string
	re         *regexp.Regexp
	timeKey    string
	timeLayout string
	allowEmpty bool
}

func (r *Regex) Name() string {
	return r.name
}

func (r *Regex) MatchTag(inputTag string) bool {
	return util.TagMatch(inputTag, r.match)
}

func (r *Regex) Init(config map[string]any) error {
	r.name = util.MustString(config["Name"])
	if r.name == "" {
		r.name = "regex"
	}

	r.match = util.MustString(config["Match"])
	if r.match == "" {
		r.match = "*"
	}

	pattern := util.MustString(config["Pattern"])
	if pattern == "" {
		return errors.New("regex parser needs a Pattern")
	}
	var err error
	if r.re, err = regexp.Compile(pattern); err != nil {
		return err
	}

	if r.allowEmpty, err = util.Bool(config, "AllowEmpty", false); err != nil {
		return err
	}

	r.timeKey = util.MustString(config["TimeKey"])
	if r.timeLayout, err = util.TimeLayout(util.MustString(config["TimeFormat"])); err != nil {
		return err
	}

	return nil
}

func (r *Regex) Process(event *internal.Event) bool {
	matches := r.re.FindSubmatch(event.Record.Payload)
	if matches == nil {
		return false
	}

	// Extract named groups
	fields := make(map[string]any)
	for i, name := range r.re.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		value := string(matches[i])
		if value != "" || r.allowEmpty {
			fields[name] = value
		}
	}

	event.Fields = fields
	ExtractTime(event, r.timeKey, r.timeLayout)

	return true
}

func (r *Regex) Exit() error {
	return nil
}
