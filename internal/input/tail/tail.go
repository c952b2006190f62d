package tail

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MuchTitan/logtail/internal"
	"github.com/MuchTitan/logtail/internal/util"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/sirupsen/logrus"
)

const DefaultInterval = 10 * time.Second

// Tail polls a glob, tracks every matching file by identity, and turns
// appended bytes into multi-line records.
type Tail struct {
	name     string
	tag      string
	glob     string
	interval time.Duration
	read     ReadConfig
	registry *Registry
}

func (t *Tail) Name() string {
	return t.name
}

func (t *Tail) Tag() string {
	return t.tag
}

func (t *Tail) Init(config map[string]any) error {
	t.glob = util.MustString(config["Glob"])
	if t.glob == "" {
		return errors.New("no glob provided for tail input")
	}
	if !doublestar.ValidatePathPattern(t.glob) {
		return fmt.Errorf("invalid glob for tail input: %q", t.glob)
	}

	t.name = util.MustString(config["Name"])
	if t.name == "" {
		t.name = "tail"
	}

	t.tag = util.MustString(config["Tag"])
	if t.tag == "" {
		t.tag = "tail"
	}

	var err error
	if t.interval, err = util.Seconds(config, "Interval", DefaultInterval); err != nil {
		return err
	}
	if t.interval <= 0 {
		return fmt.Errorf("tail Interval must be positive, got %s", t.interval)
	}

	if t.read.MaxLineBytes, err = util.Int(config, "MaxLineBytes", DefaultMaxLineBytes); err != nil {
		return err
	}
	if t.read.MaxLineBytes <= 0 {
		return fmt.Errorf("tail MaxLineBytes must be positive, got %d", t.read.MaxLineBytes)
	}

	if t.read.SkipUnchanged, err = util.Bool(config, "SkipUnchanged", false); err != nil {
		return err
	}

	ruleConfig, err := util.Map(config, "TimestampRule")
	if err != nil {
		return err
	}
	if ruleConfig == nil {
		return errors.New("no TimestampRule provided for tail input")
	}
	startByte, err := util.Int(ruleConfig, "StartByte", 0)
	if err != nil {
		return err
	}
	length, err := util.Int(ruleConfig, "Length", 0)
	if err != nil {
		return err
	}
	if t.read.Rule, err = NewTimestampRule(startByte, length, util.MustString(ruleConfig["Format"])); err != nil {
		return err
	}

	t.registry = NewRegistry()
	return nil
}

// Glob returns the configured file pattern.
func (t *Tail) Glob() string {
	return t.glob
}

// Start runs the poll loop until ctx is cancelled. It only returns an
// error for a malformed glob pattern.
func (t *Tail) Start(ctx context.Context, sink internal.Sink) error {
	logrus.WithFields(logrus.Fields{
		"glob":     t.glob,
		"interval": t.interval,
	}).Info("Starting Tail Input")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		if err := t.Scan(sink); err != nil {
			return err
		}
		timer.Reset(t.interval)
	}
}

// Scan runs one cycle: expand the glob, reconcile the registry, and read
// every tracked file concurrently. It returns once all reads are done.
func (t *Tail) Scan(sink internal.Sink) error {
	paths, err := Expand(t.glob)
	if err != nil {
		return err
	}

	cursors := t.registry.Reconcile(paths)
	logrus.WithFields(logrus.Fields{
		"glob":  t.glob,
		"files": len(cursors),
	}).Debug("scan finished, reading files")

	var wg sync.WaitGroup
	for _, cursor := range cursors {
		wg.Add(1)
		go func(c *FileCursor) {
			defer wg.Done()
			c.ReadIncrement(t.read, sink)
		}(cursor)
	}
	wg.Wait()
	return nil
}

func (t *Tail) Exit() error {
	logrus.WithField("glob", t.glob).Info("Stopping Tail Input")
	return nil
}

// Expand returns the regular files matching pattern. Only a malformed
// pattern is an error; unreadable directories are skipped.
func Expand(pattern string) ([]string, error) {
	paths, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("could not expand glob %q: %w", pattern, err)
	}
	return paths, nil
}
