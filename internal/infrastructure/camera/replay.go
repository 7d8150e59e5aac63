package camera

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"puck-scanner/internal/domain/entity"
)

// ReplayCamera отдаёт снимки каталога по порядку имён.
type ReplayCamera struct {
	mu       sync.Mutex
	files    []string
	next     int
	interval time.Duration
	loop     bool
}

// IsImage true для поддерживаемых расширений снимков.
func IsImage(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff":
		return true
	}
	return false
}

// OpenReplay готовит повтор снимков каталога dir.
func OpenReplay(dir string, interval time.Duration, loop bool) (*ReplayCamera, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read replay dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && IsImage(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no images in %s", dir)
	}
	sort.Strings(files)
	return &ReplayCamera{files: files, interval: interval, loop: loop}, nil
}

// Read возвращает следующий снимок. По окончании каталога без повтора возвращает io.EOF.
func (c *ReplayCamera) Read(ctx context.Context) (entity.Frame, error) {
	if c.interval > 0 {
		select {
		case <-ctx.Done():
			return entity.Frame{}, ctx.Err()
		case <-time.After(c.interval):
		}
	}

	c.mu.Lock()
	if c.next >= len(c.files) {
		if !c.loop {
			c.mu.Unlock()
			return entity.Frame{}, io.EOF
		}
		c.next = 0
	}
	path := c.files[c.next]
	c.next++
	c.mu.Unlock()

	img, err := imaging.Open(path)
	if err != nil {
		return entity.Frame{}, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	return entity.NewFrame(img, time.Now()), nil
}

func (c *ReplayCamera) Close() error {
	return nil
}
