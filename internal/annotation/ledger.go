package annotation

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const ledgerHeader = "# Mask review results\n# Format: id,tag1,tag2,...\n"

// ParseError identifies a ledger line that could not be parsed.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// WriteError reports a ledger that could not be written. The target file is
// left as it was.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write ledger %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// ParseLedger reads ledger lines into a mapping. Every malformed line yields a
// *ParseError; they are joined into the returned error and the mapping is nil.
// A later line for the same identifier replaces the earlier one.
func ParseLedger(r io.Reader) (map[string]TagSet, error) {
	records := make(map[string]TagSet)
	var errs []error

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()
		if lineNo == 1 {
			raw = strings.TrimPrefix(raw, "\ufeff")
		}

		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ",")
		id := norm.NFC.String(strings.TrimSpace(parts[0]))
		if id == "" {
			continue
		}

		var tags []Tag
		var lineErr error
		for _, p := range parts[1:] {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			code, err := strconv.Atoi(p)
			if err != nil {
				lineErr = fmt.Errorf("tag %q is not an integer", p)
				break
			}
			tags = append(tags, Tag(code))
		}
		if lineErr != nil {
			errs = append(errs, &ParseError{Line: lineNo, Text: line, Err: lineErr})
			continue
		}

		records[id] = NewTagSet(tags...)
	}

	if err := scanner.Err(); err != nil {
		errs = append(errs, fmt.Errorf("reading ledger: %w", err))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return records, nil
}

// WriteLedger writes a header and one line per record, identifiers ascending.
// A record with no tags is written as the bare identifier.
func WriteLedger(w io.Writer, records map[string]TagSet) error {
	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(ledgerHeader); err != nil {
		return err
	}
	for _, id := range ids {
		line := id
		if tags := NewTagSet(records[id]...); len(tags) > 0 {
			line += "," + tags.String()
		}
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ResumeIndex returns the position in order of the first identifier with no
// record, or the last position when every identifier has one. It is 0 when
// order or records are empty.
func ResumeIndex(order []string, records map[string]TagSet) int {
	if len(order) == 0 || len(records) == 0 {
		return 0
	}
	for i, id := range order {
		if _, ok := records[id]; !ok {
			return i
		}
	}
	return len(order) - 1
}

// writeFileAtomic writes through a temporary file in the target directory and
// renames it into place.
func writeFileAtomic(path string, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = write(tmp); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
