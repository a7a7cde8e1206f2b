// Package corpus owns the flat-file collection of book title/summary records.
package corpus

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/felixgeelhaar/librarian/internal/observe"
)

// headerToken separates books in the corpus file. The first line after the
// token is the title, the remaining lines are the summary.
const headerToken = "## Title:"

// themesMarker is the free-text line Append injects when a summary lacks one.
const themesMarker = "Main themes:"

const maxSuggestions = 5

// Entry is one parsed book record.
type Entry struct {
	Title   string
	Summary string
}

// Content returns the combined text used for embedding.
func (e Entry) Content() string {
	return fmt.Sprintf("Title: %s\n%s", e.Title, e.Summary)
}

// FileInfo describes the backing corpus file.
type FileInfo struct {
	Path      string `json:"file_path"`
	Exists    bool   `json:"file_exists"`
	SizeBytes int64  `json:"file_size_bytes"`
	BookCount int    `json:"book_count"`
}

// Store caches the parsed corpus in memory. The cache is lazy: the file is
// parsed on first access and again after Reload or Append. Lookup is exact;
// no case or whitespace normalization.
//
// Reads take the read lock against a loaded snapshot; Reload and Append take
// the write lock and swap the snapshot whole.
type Store struct {
	path string
	obs  *observe.Observer

	mu     sync.RWMutex
	loaded bool
	books  map[string]string
	order  []string
}

func NewStore(path string, obs *observe.Observer) *Store {
	return &Store{path: path, obs: obs}
}

// Path returns the corpus file path.
func (s *Store) Path() string {
	return s.path
}

// Lookup returns the summary for an exact title match.
func (s *Store) Lookup(title string) (string, bool) {
	if err := s.ensure(); err != nil {
		return "", false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	summary, ok := s.books[title]
	return summary, ok
}

// MissMessage renders the user-facing reply for an unknown title, naming up
// to five available titles in insertion order. It flows into generated
// conversation text, so it is a sentence, not an error.
func (s *Store) MissMessage(title string) string {
	titles := s.Titles()
	if len(titles) > maxSuggestions {
		titles = titles[:maxSuggestions]
	}
	suggestion := ""
	if len(titles) > 0 {
		suggestion = fmt.Sprintf(" Available books include: %s...", strings.Join(titles, ", "))
	}
	return fmt.Sprintf("Sorry, I don't have a detailed summary for '%s'. Please check the title spelling or ask for a different book.%s", title, suggestion)
}

// Titles returns all titles in insertion order from the parse.
func (s *Store) Titles() []string {
	if err := s.ensure(); err != nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Count returns the number of loaded books.
func (s *Store) Count() int {
	if err := s.ensure(); err != nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Entries returns all records in insertion order, for index population.
func (s *Store) Entries() []Entry {
	if err := s.ensure(); err != nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.order))
	for _, title := range s.order {
		out = append(out, Entry{Title: title, Summary: s.books[title]})
	}
	return out
}

// FileInfo reports the backing file's path, size and record count.
func (s *Store) FileInfo() FileInfo {
	info := FileInfo{Path: s.path, BookCount: s.Count()}
	if st, err := os.Stat(s.path); err == nil {
		info.Exists = true
		info.SizeBytes = st.Size()
	}
	return info
}

// Append writes a new record to the corpus file and reloads the cache.
// A placeholder themes line is injected when the summary lacks one.
func (s *Store) Append(title, summary string) error {
	if strings.TrimSpace(title) == "" {
		return errors.New("title is required")
	}
	if !strings.Contains(summary, themesMarker) {
		summary += "\n" + themesMarker + " [Add themes here]"
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open corpus file: %w", err)
	}
	if _, err := fmt.Fprintf(f, "\n%s %s\n%s\n", headerToken, title, summary); err != nil {
		f.Close()
		return fmt.Errorf("append to corpus file: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	if err := s.Reload(); err != nil {
		return err
	}
	s.obs.Log().Info().Str("title", title).Msg("book added to corpus")
	return nil
}

// Reload clears the cache and re-parses the file.
func (s *Store) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) ensure() error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}
	return s.load()
}

// load parses the corpus file. Caller must hold the write lock.
// A missing file or one without header tokens yields zero entries.
func (s *Store) load() error {
	s.books = make(map[string]string)
	s.order = nil
	s.loaded = true

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.obs.Log().Warn().Str("path", s.path).Msg("corpus file not found, starting empty")
			return nil
		}
		s.loaded = false
		return fmt.Errorf("read corpus file: %w", err)
	}

	segments := strings.Split(string(data), headerToken)
	if len(segments) > 1 {
		for _, segment := range segments[1:] {
			lines := strings.Split(strings.TrimSpace(segment), "\n")
			if len(lines) == 0 {
				continue
			}
			title := strings.TrimSpace(lines[0])
			if title == "" {
				continue
			}
			summary := strings.TrimSpace(strings.Join(lines[1:], "\n"))
			if _, seen := s.books[title]; !seen {
				s.order = append(s.order, title)
			}
			s.books[title] = summary
		}
	}

	s.obs.Log().Info().Int("books", len(s.order)).Str("path", s.path).Msg("corpus loaded")
	return nil
}
