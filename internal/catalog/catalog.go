// Package catalog discovers candidate wallpaper files and owns their play order.
package catalog

import (
	"io/fs"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// Catalog lists every file under a set of directories. It does not look at
// file names or extensions; anything that is not an image is weeded out later
// when it fails to decode.
type Catalog struct {
	sync.Mutex
	dirs      []string
	recursive bool
	rng       *rand.Rand
	paths     []string
}

// New creates a catalog over dirs. The random source is used for shuffling
// and must not be shared with other goroutines.
func New(dirs []string, recursive bool, rng *rand.Rand) *Catalog {
	return &Catalog{
		dirs:      append([]string(nil), dirs...),
		recursive: recursive,
		rng:       rng,
	}
}

// Dirs returns the directories this catalog reads.
func (c *Catalog) Dirs() []string {
	return append([]string(nil), c.dirs...)
}

// Refresh re-reads all directories and returns the entries in a new random
// order. Unreadable directories are logged and contribute nothing.
func (c *Catalog) Refresh() []string {
	paths := make([]string, 0, len(c.paths))
	for _, dir := range c.dirs {
		found, err := c.scan(dir)
		if err != nil {
			log.Warnf("catalog: unable to read %v: %v", dir, err)
		}
		paths = append(paths, found...)
	}

	c.Lock()
	defer c.Unlock()

	c.rng.Shuffle(len(paths), func(i, j int) {
		paths[i], paths[j] = paths[j], paths[i]
	})
	c.paths = paths

	return append([]string(nil), c.paths...)
}

// Len returns the number of entries found by the last Refresh.
func (c *Catalog) Len() int {
	c.Lock()
	defer c.Unlock()
	return len(c.paths)
}

// IsEmpty reports whether the last Refresh found nothing.
func (c *Catalog) IsEmpty() bool {
	return c.Len() == 0
}

func (c *Catalog) scan(dir string) ([]string, error) {
	if !c.recursive {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		paths := make([]string, 0, len(entries))
		for _, entry := range entries {
			if entry.IsDir() || hidden(entry.Name()) {
				continue
			}
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
		return paths, nil
	}

	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			log.Debugf("catalog: skipping %v: %v", path, err)
			return nil
		}
		if path != dir && hidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			paths = append(paths, path)
		}
		return nil
	})
	return paths, err
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
