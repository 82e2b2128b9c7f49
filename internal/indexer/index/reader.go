package index

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/errors"
)

// MaxLineSize bounds a single index line. A longer line makes the file
// unreadable rather than silently truncated.
const MaxLineSize = 16 << 20

// Load reads an index file written by Save, or standard input when source is
// "-".
func Load(source string, capacityHint int) (*Index, error) {
	if source == "" {
		return nil, apperrors.New(apperrors.ErrInvalidArgument, "index source must not be empty")
	}
	if source == Stdio {
		return Read(os.Stdin, capacityHint)
	}
	f, err := os.Open(source)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrIO, "opening %s: %v", source, err)
	}
	defer f.Close()
	return Read(f, capacityHint)
}

// Read decodes the text index format from r.
//
// Each line is a word followed by docID/frequency pairs. Parsing of a line
// stops at its first malformed pair (a dangling docID, a non-number, a
// value below 1, or a frequency above MaxFrequency); the pairs before it are
// kept and the load carries on with the next line. This matches how existing
// index files have always been read. A line with no word at all, or one
// longer than MaxLineSize, makes the input unreadable and fails the load with
// ErrFormat.
func Read(r io.Reader, capacityHint int) (*Index, error) {
	ix, err := New(capacityHint)
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("component", "index-reader")

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			return nil, apperrors.Newf(apperrors.ErrFormat, "line %d: missing word", lineNo)
		}
		word, pairs := fields[0], fields[1:]
		if applied := applyPairs(ix, word, pairs); applied*2 != len(pairs) {
			logger.Debug("malformed pair, rest of line ignored",
				"line", lineNo,
				"word", word,
				"pairs_kept", applied,
			)
		}
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, apperrors.Newf(apperrors.ErrFormat, "line %d: longer than %d bytes", lineNo+1, MaxLineSize)
		}
		return nil, apperrors.Newf(apperrors.ErrIO, "reading index: %v", err)
	}
	return ix, nil
}

// applyPairs stores consecutive docID/frequency pairs for word and returns how
// many it stored before the first malformed one.
func applyPairs(ix *Index, word string, pairs []string) int {
	applied := 0
	for i := 0; i+1 < len(pairs); i += 2 {
		docID, err := strconv.Atoi(pairs[i])
		if err != nil || docID < 1 {
			break
		}
		freq, err := strconv.Atoi(pairs[i+1])
		if err != nil || freq < 1 || freq > MaxFrequency {
			break
		}
		if err := ix.Update(word, docID, freq); err != nil {
			break
		}
		applied++
	}
	return applied
}
