package spill

import (
	"bufio"
	"container/heap"
	"encoding/json"
	"os"

	"github.com/c360/namestream/errors"
	"github.com/c360/namestream/name"
)

// entrySource yields entries in ascending (id, seq) order from one sorted
// run, either resident or on disk.
type entrySource interface {
	// next advances to the following entry; ok is false once exhausted.
	next() (e name.Entry, ok bool, err error)
	close() error
}

// memSource iterates an already-sorted resident slice
type memSource struct {
	entries []name.Entry
	pos     int
}

func (m *memSource) next() (name.Entry, bool, error) {
	if m.pos >= len(m.entries) {
		return name.Entry{}, false, nil
	}
	e := m.entries[m.pos]
	m.pos++
	return e, true, nil
}

func (m *memSource) close() error { return nil }

// fileSource iterates an NDJSON run file written by flushRun
type fileSource struct {
	f       *os.File
	scanner *bufio.Scanner
}

func openFileSource(path string) (*fileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapFatal(err, "Cursor", "openFileSource", "open run file")
	}
	scanner := bufio.NewScanner(f)
	// Run lines hold a single name plus two integers; 1MB covers any
	// name the ingest layer accepts.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &fileSource{f: f, scanner: scanner}, nil
}

func (fs *fileSource) next() (name.Entry, bool, error) {
	if !fs.scanner.Scan() {
		if err := fs.scanner.Err(); err != nil {
			return name.Entry{}, false, errors.WrapFatal(err, "Cursor", "next", "scan run file")
		}
		return name.Entry{}, false, nil
	}

	var rec runRecord
	if err := json.Unmarshal(fs.scanner.Bytes(), &rec); err != nil {
		return name.Entry{}, false, errors.WrapFatal(errors.ErrRunCorrupted,
			"Cursor", "next", "decode run record")
	}
	return name.Entry{Name: rec.Name, ID: rec.ID, Seq: rec.Seq}, true, nil
}

func (fs *fileSource) close() error {
	return fs.f.Close()
}

// sourceHead is one heap element: a source plus its current front entry
type sourceHead struct {
	src entrySource
	cur name.Entry
}

// sourceHeap orders source heads by their front entry
type sourceHeap []*sourceHead

func (h sourceHeap) Len() int           { return len(h) }
func (h sourceHeap) Less(i, j int) bool { return h[i].cur.Less(h[j].cur) }
func (h sourceHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *sourceHeap) Push(x any)        { *h = append(*h, x.(*sourceHead)) }
func (h *sourceHeap) Pop() any {
	old := *h
	n := len(old)
	head := old[n-1]
	*h = old[:n-1]
	return head
}

// Cursor yields one side's entries in ascending (id, seq) order.
// It is the only view the merge engine ever sees of a collection.
type Cursor struct {
	heap    sourceHeap
	sources []entrySource
}

func newCursor(resident []name.Entry, runPaths []string) (*Cursor, error) {
	c := &Cursor{}

	sources := make([]entrySource, 0, len(runPaths)+1)
	if len(resident) > 0 {
		sources = append(sources, &memSource{entries: resident})
	}
	for _, path := range runPaths {
		fs, err := openFileSource(path)
		if err != nil {
			c.sources = sources
			_ = c.Close()
			return nil, err
		}
		sources = append(sources, fs)
	}
	c.sources = sources

	// Prime the heap with each source's front entry
	for _, src := range sources {
		e, ok, err := src.next()
		if err != nil {
			_ = c.Close()
			return nil, err
		}
		if ok {
			c.heap = append(c.heap, &sourceHead{src: src, cur: e})
		}
	}
	heap.Init(&c.heap)

	return c, nil
}

// Next returns the next entry in (id, seq) order; ok is false once the
// cursor is exhausted.
func (c *Cursor) Next() (e name.Entry, ok bool, err error) {
	if len(c.heap) == 0 {
		return name.Entry{}, false, nil
	}

	head := c.heap[0]
	e = head.cur

	following, more, err := head.src.next()
	if err != nil {
		return name.Entry{}, false, err
	}
	if more {
		head.cur = following
		heap.Fix(&c.heap, 0)
	} else {
		heap.Pop(&c.heap)
	}

	return e, true, nil
}

// Close releases any open run file handles
func (c *Cursor) Close() error {
	var firstErr error
	for _, src := range c.sources {
		if err := src.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.sources = nil
	c.heap = nil
	return firstErr
}
