package index

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/dchest/safefile"

	apperrors "github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/errors"
)

// Stdio names standard output for Save and standard input for Load.
const Stdio = "-"

// WriteTo encodes the index as text, one line per word:
//
//	word docID freq [docID freq ...]
//
// Lines are in ascending word order and pairs in ascending document order,
// so saving the same index twice yields identical files.
func (ix *Index) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var written int64
	buf := make([]byte, 0, 256)
	for _, entry := range ix.Snapshot() {
		buf = append(buf[:0], entry.Term...)
		for _, p := range entry.Postings {
			buf = append(buf, ' ')
			buf = strconv.AppendInt(buf, int64(p.DocID), 10)
			buf = append(buf, ' ')
			buf = strconv.AppendInt(buf, int64(p.Frequency), 10)
		}
		buf = append(buf, '\n')
		n, err := bw.Write(buf)
		written += int64(n)
		if err != nil {
			return written, fmt.Errorf("writing postings for %q: %w", entry.Term, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return written, fmt.Errorf("flushing index: %w", err)
	}
	return written, nil
}

// Save writes the index to destination, or to standard output when
// destination is "-". A file is written under a temporary name beside the
// destination and renamed into place once complete, so readers never see a
// partial index.
func (ix *Index) Save(destination string) error {
	if destination == "" {
		return apperrors.New(apperrors.ErrInvalidArgument, "index destination must not be empty")
	}
	if destination == Stdio {
		if _, err := ix.WriteTo(os.Stdout); err != nil {
			return apperrors.Newf(apperrors.ErrIO, "writing index to stdout: %v", err)
		}
		return nil
	}

	f, err := safefile.Create(destination, 0o644)
	if err != nil {
		return apperrors.Newf(apperrors.ErrIO, "opening %s: %v", destination, err)
	}
	defer f.Close()

	if _, err := ix.WriteTo(f); err != nil {
		return apperrors.Newf(apperrors.ErrIO, "writing %s: %v", destination, err)
	}
	if err := f.Commit(); err != nil {
		return apperrors.Newf(apperrors.ErrIO, "committing %s: %v", destination, err)
	}
	return nil
}
