package tail

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Registry maps file identity to cursor across scan generations. It is
// owned by the poll loop; cursors are lent out to readers only while a
// cycle's reads are in flight.
type Registry struct {
	cursors map[FileID]*FileCursor
	order   []*FileCursor
}

func NewRegistry() *Registry {
	return &Registry{
		cursors: make(map[FileID]*FileCursor),
	}
}

// Reconcile builds the next cursor set from a fresh path list. A known
// identity keeps its cursor with the path refreshed, so renamed files keep
// their offset; unknown identities start at offset 0. Cursors whose file
// was not seen are dropped.
func (r *Registry) Reconcile(paths []string) []*FileCursor {
	next := make(map[FileID]*FileCursor, len(paths))
	order := make([]*FileCursor, 0, len(paths))

	for _, path := range paths {
		log := logrus.WithField("path", path)

		info, err := os.Stat(path)
		if err != nil {
			log.WithError(err).Warn("could not stat file, skipping this cycle")
			continue
		}
		if info.IsDir() {
			continue
		}

		id, err := getFileID(info)
		if err != nil {
			log.WithError(err).Warn("could not get file identity, skipping this cycle")
			continue
		}

		if seen, ok := next[id]; ok {
			log.WithField("tracked", seen.Path).Debug("file already tracked under another path")
			continue
		}

		cursor, known := r.cursors[id]
		if known {
			if cursor.Path != path {
				log.WithFields(logrus.Fields{
					"from":  cursor.Path,
					"inode": id.String(),
				}).Info("file renamed, keeping offset")
			}
			cursor.Path = path
			cursor.ModTime = info.ModTime()
			cursor.Size = info.Size()
		} else {
			cursor = NewFileCursor(path, id, info.ModTime(), info.Size())
			log.WithField("inode", id.String()).Info("tracking new file")
		}

		next[id] = cursor
		order = append(order, cursor)
	}

	for id, cursor := range r.cursors {
		if _, ok := next[id]; !ok {
			logrus.WithFields(logrus.Fields{
				"path":   cursor.Path,
				"offset": cursor.Offset,
			}).Debug("file no longer matched, dropping cursor")
		}
	}

	r.cursors = next
	r.order = order
	return order
}

// Cursors returns the cursor set of the last reconciliation in path order.
func (r *Registry) Cursors() []*FileCursor {
	return r.order
}

// Lookup returns the cursor tracking id, if any.
func (r *Registry) Lookup(id FileID) (*FileCursor, bool) {
	c, ok := r.cursors[id]
	return c, ok
}
