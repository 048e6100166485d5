package media

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"sync/atomic"
	"time"
)

const maxNameLength = 200

var (
	unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)
	repeatedDots    = regexp.MustCompile(`\.{2,}`)
)

// FilenameSequencer makes upload filenames unique by prefixing a
// millisecond timestamp that strictly increases across calls, even when
// two uploads arrive within the same millisecond.
type FilenameSequencer struct {
	last atomic.Int64
	now  func() time.Time
}

// NewFilenameSequencer creates a sequencer driven by the wall clock
func NewFilenameSequencer() *FilenameSequencer {
	return &FilenameSequencer{now: time.Now}
}

// Next returns "<millis>_<sanitized name>"
func (s *FilenameSequencer) Next(name string) string {
	return fmt.Sprintf("%d_%s", s.tick(), SanitizeFilename(name))
}

func (s *FilenameSequencer) tick() int64 {
	now := s.now().UnixMilli()
	for {
		last := s.last.Load()
		next := now
		if next <= last {
			next = last + 1
		}
		if s.last.CompareAndSwap(last, next) {
			return next
		}
	}
}

// SanitizeFilename keeps ASCII letters, digits, dots and dashes and replaces
// everything else with "_". Dot runs collapse to one dot and long names are
// shortened, keeping the extension.
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" {
		name = ""
	}
	name = unsafeNameChars.ReplaceAllString(name, "_")
	name = repeatedDots.ReplaceAllString(name, ".")
	if strings.Trim(name, "._") == "" {
		name = "image"
	}
	if len(name) > maxNameLength {
		ext := path.Ext(name)
		if len(ext) > 16 {
			ext = ""
		}
		name = name[:maxNameLength-len(ext)] + ext
	}
	return name
}
