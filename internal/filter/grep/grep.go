package filtergrep

import (
	"fmt"
	"regexp"

	"github.com/MuchTitan/logtail/internal"
	"github.com/MuchTitan/logtail/internal/util"
)

type Grep struct {
	name    string
	match   string
	op      string           // Available Operation are "and" and "or"
	include []*regexp.Regexp // A match keeps the record
	exclude []*regexp.Regexp // A match drops the record
}

func (g *Grep) Name() string {
	return g.name
}

func (g *Grep) MatchTag(inputTag string) bool {
	return util.TagMatch(inputTag, g.match)
}

func (g *Grep) Init(config map[string]any) error {
	g.op = util.MustString(config["Op"])
	if g.op == "" {
		g.op = "and"
	}
	if g.op != "and" && g.op != "or" {
		return fmt.Errorf("unsupported logic operator '%s' in Grep Filter", g.op)
	}

	g.name = util.MustString(config["Name"])
	if g.name == "" {
		g.name = "grep"
	}

	g.match = util.MustString(config["Match"])
	if g.match == "" {
		g.match = "*"
	}

	var err error
	if g.include, err = compileAll(config, "Regex"); err != nil {
		return err
	}
	if g.exclude, err = compileAll(config, "Exclude"); err != nil {
		return err
	}

	return nil
}

func compileAll(config map[string]any, key string) ([]*regexp.Regexp, error) {
	patterns, err := util.StringSlice(config, key)
	if err != nil {
		return nil, err
	}
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s pattern %q in Grep Filter: %w", key, p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// Process keeps the record when its payload satisfies the include
// patterns (all of them for "and", any for "or") and matches no exclude
// pattern. A nil event means the record was dropped.
func (g *Grep) Process(event *internal.Event) (*internal.Event, error) {
	payload := event.Record.Payload

	for _, re := range g.exclude {
		if re.Match(payload) {
			return nil, nil
		}
	}

	if len(g.include) == 0 {
		return event, nil
	}

	matches := 0
	for _, re := range g.include {
		if re.Match(payload) {
			matches++
			if g.op == "or" {
				return event, nil
			}
		}
	}

	if g.op == "and" && matches == len(g.include) {
		return event, nil
	}
	return nil, nil
}

func (g *Grep) Exit() error {
	return nil
}
