// Package ingest reads the producer's line-oriented "key: value" input
// file. It is an intentionally thin adapter — the file format itself is
// out of scope for this specification, described only by the contract
// the producer client consumes (a file with an "id" line).
package ingest

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/i474232898/weatherfabric/internal/codec"
)

// ErrMissingID is returned when the file has no "id" line.
var ErrMissingID = errors.New("ingest: file must contain an 'id' field")

// ReadFile reads path and parses it into a Record via Parse.
func ReadFile(path string) (*codec.Object, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads "key: value" lines, splitting each on the first ':' only
// (both sides trimmed); empty or malformed lines (no colon) are skipped.
// A value that itself contains ':' is kept whole: only the first ':' on
// the line separates key from value.
func Parse(r io.Reader) (*codec.Object, error) {
	record := codec.NewObject()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		if key == "" {
			continue
		}
		record.Set(key, value)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if _, ok := record.Get("id"); !ok {
		return nil, ErrMissingID
	}
	return record, nil
}
