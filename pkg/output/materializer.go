/*
Package output turns confirmed matches into numbered group directories. Each
call to Materialize allocates the next group id and copies both images of the
pair into <root>/<id>.
*/
package output

import (
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/menta2k/image-dedup/internal/utils"
)

// Source identifies an image to copy into a group
type Source struct {
	Path string
	Name string
}

// Group is a materialized match
type Group struct {
	ID    int64    `json:"id"`
	Dir   string   `json:"dir"`
	Files []string `json:"files"`
}

// Materializer creates group directories under a root. It is safe for
// concurrent use; group ids are unique and start at 1.
//
// Ids restart at 1 for every Materializer. Reusing an output root from an
// earlier run adds files to the existing group directories; a warning is
// logged for every group directory that already exists.
type Materializer struct {
	root    string
	counter atomic.Int64
	mu      sync.Mutex
	log     logrus.FieldLogger
}

// NewMaterializer creates a materializer writing below root. A nil logger uses
// the logrus standard logger.
func NewMaterializer(root string, log logrus.FieldLogger) *Materializer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Materializer{root: root, log: log}
}

// Count returns the number of ids allocated so far
func (m *Materializer) Count() int64 { return m.counter.Load() }

// Materialize allocates a group id and copies a and b into its directory.
// The id is consumed even if copying fails.
func (m *Materializer) Materialize(a, b Source) (Group, error) {
	id := m.counter.Add(1)
	dir := filepath.Join(m.root, strconv.FormatInt(id, 10))

	m.mu.Lock()
	defer m.mu.Unlock()

	if utils.DirExists(dir) {
		m.log.WithFields(logrus.Fields{
			"group": id,
			"dir":   dir,
		}).Warn("group directory already exists")
	}
	if err := utils.EnsureDir(dir); err != nil {
		return Group{}, fmt.Errorf("failed to create group %d: %w", id, err)
	}

	group := Group{ID: id, Dir: dir}
	for _, src := range []Source{a, b} {
		name := src.Name
		if name == "" {
			name = filepath.Base(src.Path)
		}
		dst := utils.UniquePath(dir, name)
		if err := utils.CopyFile(src.Path, dst); err != nil {
			return group, fmt.Errorf("group %d: %w", id, err)
		}
		group.Files = append(group.Files, dst)
	}

	m.log.WithFields(logrus.Fields{
		"group": id,
		"files": group.Files,
	}).Info("created match group")
	return group, nil
}
