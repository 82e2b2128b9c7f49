// Package pagedir reads and writes a crawler's page directory: a directory
// holding a ".crawler" marker file and one file per document, named by its
// ID, containing the page URL, the crawl depth and the page HTML.
package pagedir

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/errors"
)

// MarkerFile marks a directory as written by the crawler.
const MarkerFile = ".crawler"

type Page struct {
	DocID int
	URL   string
	Depth int
	HTML  string
}

// Dir is an opened page directory.
type Dir struct {
	path string
}

// Validate reports whether path holds a crawler marker file.
func Validate(path string) bool {
	info, err := os.Stat(filepath.Join(trim(path), MarkerFile))
	return err == nil && !info.IsDir()
}

// Init marks path as a crawler directory, creating it if needed.
func Init(path string) error {
	path = trim(path)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return apperrors.Newf(apperrors.ErrIO, "creating %s: %v", path, err)
	}
	f, err := os.Create(filepath.Join(path, MarkerFile))
	if err != nil {
		return apperrors.Newf(apperrors.ErrIO, "creating marker in %s: %v", path, err)
	}
	return f.Close()
}

// Open returns the page directory at path, which must carry the marker.
func Open(path string) (*Dir, error) {
	if path == "" {
		return nil, apperrors.New(apperrors.ErrInvalidArgument, "page directory must not be empty")
	}
	path = trim(path)
	if !Validate(path) {
		return nil, apperrors.Newf(apperrors.ErrNotCrawlerDir, "%s has no %s file", path, MarkerFile)
	}
	return &Dir{path: path}, nil
}

func (d *Dir) Path() string {
	return d.path
}

// Save writes page to the file named by its document ID.
func (d *Dir) Save(page Page) error {
	if page.DocID < 1 {
		return apperrors.Newf(apperrors.ErrInvalidArgument, "document ID must be positive, got %d", page.DocID)
	}
	content := fmt.Sprintf("%s\n%d\n%s", page.URL, page.Depth, page.HTML)
	if err := os.WriteFile(d.file(page.DocID), []byte(content), 0o644); err != nil {
		return apperrors.Newf(apperrors.ErrIO, "saving document %d: %v", page.DocID, err)
	}
	return nil
}

// Load reads the page stored for docID. A missing file is
// ErrDocumentNotFound.
func (d *Dir) Load(docID int) (*Page, error) {
	data, err := os.ReadFile(d.file(docID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.Newf(apperrors.ErrDocumentNotFound, "document %d", docID)
		}
		return nil, apperrors.Newf(apperrors.ErrIO, "reading document %d: %v", docID, err)
	}
	url, rest, ok := strings.Cut(string(data), "\n")
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrFormat, "document %d: missing depth line", docID)
	}
	depthLine, html, _ := strings.Cut(rest, "\n")
	depth, err := strconv.Atoi(strings.TrimSpace(depthLine))
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrFormat, "document %d: bad depth %q", docID, depthLine)
	}
	return &Page{DocID: docID, URL: url, Depth: depth, HTML: html}, nil
}

// URLOf returns the URL on the first line of the document's file without
// reading the rest of it.
func (d *Dir) URLOf(_ context.Context, docID int) (string, error) {
	f, err := os.Open(d.file(docID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", apperrors.Newf(apperrors.ErrDocumentNotFound, "document %d", docID)
		}
		return "", apperrors.Newf(apperrors.ErrIO, "opening document %d: %v", docID, err)
	}
	defer f.Close()
	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", apperrors.Newf(apperrors.ErrIO, "reading document %d: %v", docID, err)
	}
	url := strings.TrimRight(line, "\r\n")
	if url == "" {
		return "", apperrors.Newf(apperrors.ErrFormat, "document %d: empty url", docID)
	}
	return url, nil
}

// CountDocuments counts the consecutive document files starting at 1.
func (d *Dir) CountDocuments() (int, error) {
	n := 0
	for {
		_, err := os.Stat(d.file(n + 1))
		if errors.Is(err, fs.ErrNotExist) {
			return n, nil
		}
		if err != nil {
			return n, apperrors.Newf(apperrors.ErrIO, "checking document %d: %v", n+1, err)
		}
		n++
	}
}

func (d *Dir) file(docID int) string {
	return filepath.Join(d.path, strconv.Itoa(docID))
}

func trim(path string) string {
	if len(path) > 1 {
		return strings.TrimSuffix(path, "/")
	}
	return path
}
