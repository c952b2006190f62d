package outputcounter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/MuchTitan/logtail/internal"
	"github.com/MuchTitan/logtail/internal/util"
)

// Counter prints a running record count, total and per source file.
type Counter struct {
	match  string
	name   string
	mu     sync.Mutex
	count  uint64
	byFile map[string]uint64
	out    io.Writer
}

func (c *Counter) Name() string {
	return c.name
}

func (c *Counter) Init(config map[string]any) error {
	c.name = util.MustString(config["Name"])
	if c.name == "" {
		c.name = "counter"
	}

	c.match = util.MustString(config["Match"])
	if c.match == "" {
		c.match = "*"
	}

	c.byFile = make(map[string]uint64)
	if c.out == nil {
		c.out = os.Stdout
	}

	return nil
}

func (c *Counter) increment(file string) (uint64, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.byFile == nil {
		c.byFile = make(map[string]uint64)
	}
	c.count++
	c.byFile[file]++
	return c.count, c.byFile[file]
}

// Count returns the total number of records written.
func (c *Counter) Count() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// CountFor returns the number of records written from one source file.
func (c *Counter) CountFor(file string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.byFile[file]
}

func (c *Counter) Write(events []internal.Event) error {
	for _, event := range events {
		if !util.TagMatch(event.Metadata.Tag, c.match) {
			continue
		}
		total, perFile := c.increment(event.Record.SourceFileName)
		data := map[string]any{
			"count":     total,
			"file":      event.Record.SourceFileName,
			"fileCount": perFile,
		}
		jsonData, err := json.Marshal(data)
		if err != nil {
			return err
		}
		if c.out == nil {
			continue
		}
		if _, err := fmt.Fprintln(c.out, string(jsonData)); err != nil {
			return err
		}
	}
	return nil
}

func (c *Counter) Flush() error {
	return nil
}

func (c *Counter) Exit() error {
	return nil
}
