package library

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/grrywlsn/localify/matcher"
)

// Scanner enumerates the tracks of a local music library laid out as
//
//	root/Track.ext          -> artist "N/A"
//	root/Artist/Track.ext   -> artist "Artist"
//
// Anything nested deeper (root/Artist/Album/...) is skipped.
type Scanner struct {
	root           string
	labelSeparator string
	debug          bool
}

// NewScanner creates a scanner for the library at root. labelSeparator may
// be empty to keep file names whole.
func NewScanner(root, labelSeparator string) *Scanner {
	return &Scanner{
		root:           filepath.Clean(root),
		labelSeparator: labelSeparator,
	}
}

// SetDebug enables or disables debug logging
func (s *Scanner) SetDebug(debug bool) {
	s.debug = debug
}

// Scan returns the library entries in traversal order: files in the root
// first, then each artist directory in name order. Symlinks to files are read
// as tracks; symlinks to directories are not followed.
func (s *Scanner) Scan() ([]matcher.LocalEntry, error) {
	rootEntries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read music root %s: %w", s.root, err)
	}

	var entries []matcher.LocalEntry
	var artistDirs []string

	for _, dirEntry := range rootEntries {
		switch s.classify(s.root, dirEntry) {
		case kindDir:
			artistDirs = append(artistDirs, dirEntry.Name())
		case kindFile:
			entries = append(entries, s.entryFor(dirEntry, matcher.UnknownArtist))
		}
	}

	for _, artist := range artistDirs {
		dir := filepath.Join(s.root, artist)
		dirEntries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to read artist directory %s: %w", dir, err)
		}

		for _, dirEntry := range dirEntries {
			switch s.classify(dir, dirEntry) {
			case kindDir:
				s.debugLog("Skipping album %q", filepath.Join(dir, dirEntry.Name()))
			case kindFile:
				entries = append(entries, s.entryFor(dirEntry, artist))
			}
		}
	}

	return entries, nil
}

type entryKind int

const (
	kindSkip entryKind = iota
	kindFile
	kindDir
)

// classify decides how a directory entry is read, looking through symlinks
func (s *Scanner) classify(dir string, dirEntry os.DirEntry) entryKind {
	name := dirEntry.Name()
	if strings.HasPrefix(name, ".") {
		s.debugLog("Skipping hidden entry %q", name)
		return kindSkip
	}

	mode := dirEntry.Type()
	if mode&os.ModeSymlink != 0 {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			s.debugLog("Skipping broken link %q: %v", name, err)
			return kindSkip
		}
		if info.IsDir() {
			s.debugLog("Skipping linked directory %q", name)
			return kindSkip
		}
		mode = info.Mode().Type()
	}

	switch {
	case mode.IsDir():
		return kindDir
	case mode.IsRegular():
		return kindFile
	}
	s.debugLog("Skipping non-regular file %q", name)
	return kindSkip
}

func (s *Scanner) entryFor(dirEntry os.DirEntry, artist string) matcher.LocalEntry {
	return matcher.LocalEntry{
		TrackName:  TrackNameFromFile(dirEntry.Name(), s.labelSeparator),
		ArtistName: artist,
	}
}

// TrackNameFromFile derives a track name from a file name by dropping the
// extension and, when labelSeparator is set, everything after its last
// occurrence:
//
//	"Track.ogg"           -> "Track"
//	"Track --- label.ogg" -> "Track"
func TrackNameFromFile(filename, labelSeparator string) string {
	name := filename
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[:i]
	}
	if labelSeparator != "" {
		if i := strings.LastIndex(name, labelSeparator); i >= 0 {
			name = name[:i]
		}
	}
	return name
}

// debugLog logs a message only if debug mode is enabled
func (s *Scanner) debugLog(format string, args ...interface{}) {
	if s.debug {
		log.Printf(format, args...)
	}
}
