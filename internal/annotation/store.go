package annotation

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
)

// Store maps image identifiers to their committed tags. An identifier with no
// record has not been reviewed. It is used from the control goroutine only.
type Store struct {
	records map[string]TagSet
	logger  *slog.Logger
}

// Stats summarises the committed records.
type Stats struct {
	Reviewed int
	Flagged  int
	PerTag   map[Tag]int
}

// NewStore creates an empty Store. A nil logger uses slog.Default.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		records: make(map[string]TagSet),
		logger:  logger,
	}
}

// Tags returns the tags recorded for id, empty when unreviewed.
func (s *Store) Tags(id string) TagSet {
	return s.records[id].Clone()
}

// Has reports whether id has a record, even an empty one.
func (s *Store) Has(id string) bool {
	_, ok := s.records[id]
	return ok
}

// SetTags overwrites the record for id.
func (s *Store) SetTags(id string, tags TagSet) {
	s.records[id] = NewTagSet(tags...)
}

// Len returns the number of records.
func (s *Store) Len() int {
	return len(s.records)
}

// IDs returns the recorded identifiers in ascending order.
func (s *Store) IDs() []string {
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Snapshot returns a copy of every record.
func (s *Store) Snapshot() map[string]TagSet {
	out := make(map[string]TagSet, len(s.records))
	for id, tags := range s.records {
		out[id] = tags.Clone()
	}
	return out
}

// Stats counts reviewed and flagged records and occurrences of each tag.
func (s *Store) Stats() Stats {
	st := Stats{PerTag: make(map[Tag]int)}
	for _, tags := range s.records {
		st.Reviewed++
		if len(tags) > 0 {
			st.Flagged++
		}
		for _, t := range tags {
			st.PerTag[t]++
		}
	}
	return st
}

// Import parses a ledger and, only when every line is valid, replaces all
// records with its contents. It returns the index in order at which review
// should resume (see ResumeIndex).
func (s *Store) Import(r io.Reader, order []string) (int, error) {
	records, err := ParseLedger(r)
	if err != nil {
		s.logger.Warn("ledger import rejected", "err", err)
		return 0, err
	}

	s.records = records
	resume := ResumeIndex(order, records)
	s.logger.Info("ledger imported", "records", len(records), "resume_index", resume)
	return resume, nil
}

// ImportFile imports the ledger at path.
func (s *Store) ImportFile(path string, order []string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open ledger: %w", err)
	}
	defer f.Close()
	return s.Import(f, order)
}

// Export writes every record in ledger format.
func (s *Store) Export(w io.Writer) error {
	return WriteLedger(w, s.records)
}

// ExportFile writes the ledger to path atomically. On failure the previous
// file, if any, is untouched and the error is a *WriteError.
func (s *Store) ExportFile(path string) error {
	if err := writeFileAtomic(path, s.Export); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	s.logger.Info("ledger exported", "path", path, "records", len(s.records))
	return nil
}
