package tail

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/MuchTitan/logtail/internal"
	"github.com/sirupsen/logrus"
)

// ReadConfig holds the settings shared by every cursor of one tail input.
type ReadConfig struct {
	Rule         TimestampRule
	MaxLineBytes int
	// SkipUnchanged arms the stale-read guard: LastRead is advanced after
	// each pass and files not written since are not reopened.
	SkipUnchanged bool
	Now           func() time.Time
}

func (c ReadConfig) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func (c ReadConfig) maxLine() int {
	if c.MaxLineBytes <= 0 {
		return DefaultMaxLineBytes
	}
	return c.MaxLineBytes
}

// FileCursor is the read state of one physical file. It is owned by the
// registry between scans and by exactly one ReadIncrement call during one.
type FileCursor struct {
	Path     string
	ID       FileID
	ModTime  time.Time
	Size     int64
	Offset   int64
	LastRead time.Time
	// Pending is set when the last record of the previous pass was held
	// back because it may still be growing.
	Pending bool

	// size seen when LastRead was taken
	readSize int64
}

func NewFileCursor(path string, id FileID, modTime time.Time, size int64) *FileCursor {
	return &FileCursor{
		Path:    path,
		ID:      id,
		ModTime: modTime,
		Size:    size,
	}
}

func (c *FileCursor) stale() bool {
	if !c.ModTime.Before(c.LastRead) {
		return false
	}
	// a held record needs one more pass to be flushed
	if c.Pending {
		return false
	}
	return c.Size == c.readSize
}

// ReadIncrement reads everything appended since Offset, submits every
// completed record in file order, and applies the hold-back policy to the
// record still open at end of file. Errors are logged; the cursor is left
// as it was and the file is retried on the next scan.
func (c *FileCursor) ReadIncrement(cfg ReadConfig, sink internal.Sink) {
	log := logrus.WithFields(logrus.Fields{
		"path":  c.Path,
		"inode": c.ID.String(),
	})

	passStart := cfg.now()
	if c.stale() {
		log.WithFields(logrus.Fields{
			"modTime":  c.ModTime,
			"lastRead": c.LastRead,
		}).Debug("file unchanged since last read, skipping")
		return
	}

	file, err := os.Open(c.Path)
	if err != nil {
		log.WithError(err).Error("could not open file")
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		log.WithError(err).Error("could not stat opened file")
		return
	}
	if id, err := getFileID(info); err != nil || id != c.ID {
		log.WithField("found", id.String()).Warn("file replaced since scan, retrying next cycle")
		return
	}

	if info.Size() < c.Offset {
		log.WithFields(logrus.Fields{
			"offset": c.Offset,
			"size":   info.Size(),
		}).Warn("file truncated, reading from the beginning")
		c.Offset = 0
		c.Pending = false
	}

	if c.Offset > 0 {
		if _, err := file.Seek(c.Offset, io.SeekStart); err != nil {
			log.WithError(err).Error("could not seek to saved offset")
			return
		}
	}

	start := c.Offset
	framer := NewLineFramer(cfg.maxLine())
	asm := NewAssembler(cfg.Rule, c.Offset, cfg.Now)
	chunk := make([]byte, cfg.maxLine())
	emitted := 0

	for {
		n, err := file.Read(chunk)
		if n > 0 {
			framer.Append(chunk[:n])
			for {
				line, ok := framer.Next()
				if !ok {
					break
				}
				if done := asm.Feed(line); done != nil {
					c.commit(done, sink)
					emitted++
				}
			}
		}
		if errors.Is(err, io.EOF) || (n == 0 && err == nil) {
			break
		}
		if err != nil {
			log.WithError(err).Error("error reading file")
			return
		}
	}

	open := asm.Open()
	switch {
	case open == nil:
		c.Pending = false
	case c.Pending && open.Offset == start:
		// same record that was held last pass
		c.commit(open, sink)
		emitted++
		c.Pending = false
	default:
		c.Pending = true
	}

	if cfg.SkipUnchanged {
		c.LastRead = passStart
		c.readSize = info.Size()
	}

	log.WithFields(logrus.Fields{
		"records":  emitted,
		"offset":   c.Offset,
		"pending":  c.Pending,
		"buffered": framer.Len(),
	}).Debug("read pass finished")
}

func (c *FileCursor) commit(d *Draft, sink internal.Sink) {
	c.Offset += d.Size()
	sink.Submit(internal.Record{
		EventTime:      d.EventTime,
		SourceFileName: filepath.Base(c.Path),
		SourcePath:     c.Path,
		OffsetAfter:    c.Offset,
		Payload:        d.Payload,
	})
}
