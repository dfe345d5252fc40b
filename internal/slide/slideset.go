// Package slide handles whole-slide image sets: parsing .ndpis index files
// and decoding individual pyramid levels from the channel images they
// reference.
package slide

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// IndexExt is the extension of slide-set index files.
	IndexExt = ".ndpis"
	// ChannelExt is the extension of per-channel slide images.
	ChannelExt = ".ndpi"
)

// ErrTemplateNotFound indicates that no channel in a slide set matches the
// requested template channel name.
var ErrTemplateNotFound = errors.New("template channel not found")

// SlideSet is one logical multi-channel slide: the ordered list of
// per-channel image paths declared by a single .ndpis index file. All
// channels image the same physical area on the same pixel grid, so crop
// geometry computed from one applies to all of them.
type SlideSet struct {
	IndexPath string
	Channels  []string
}

// ResolveChannels parses a .ndpis index file and returns the slide set it
// describes. A line declares a channel iff its content, with the line
// ending stripped, ends in ".ndpi"; the channel path is everything after
// the first "=". Relative channel paths are resolved against the index
// file's directory. A file with no channel lines yields an empty set and
// no error; channel files are not checked for existence at parse time.
func ResolveChannels(indexPath string) (*SlideSet, error) {
	f, err := os.Open(indexPath)
	if err != nil {
		return nil, fmt.Errorf("open index %s: %w", indexPath, err)
	}
	defer f.Close()

	dir := filepath.Dir(indexPath)
	set := &SlideSet{IndexPath: indexPath}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if !strings.HasSuffix(line, ChannelExt) {
			continue
		}
		_, path, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		set.Channels = append(set.Channels, path)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read index %s: %w", indexPath, err)
	}
	return set, nil
}

// TemplateChannel returns the first channel whose filename contains name as
// a substring. It returns an error wrapping ErrTemplateNotFound when no
// channel matches.
func (s *SlideSet) TemplateChannel(name string) (string, error) {
	for _, ch := range s.Channels {
		if strings.Contains(filepath.Base(ch), name) {
			return ch, nil
		}
	}
	return "", fmt.Errorf("%w: no channel in %s matches %q",
		ErrTemplateNotFound, s.IndexPath, name)
}
