// Package spill provides bounded-memory accumulation of name entries with
// disk-backed external sorting for payloads that exceed the resident limit.
package spill

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/c360/namestream/errors"
	"github.com/c360/namestream/name"
)

// DefaultMemoryThreshold is the number of resident entries per side before
// a sorted run is flushed to disk.
const DefaultMemoryThreshold = 8192

// Config holds spill configuration
type Config struct {
	// Dir is the base directory for request-scoped spill files.
	// Empty means the system temp directory.
	Dir string `json:"dir"`
	// MemoryThreshold is the per-side resident entry limit before spilling.
	// Zero means DefaultMemoryThreshold.
	MemoryThreshold int `json:"memory_threshold"`
}

// runRecord is the NDJSON line format for spilled entries
type runRecord struct {
	Name string `json:"n"`
	ID   int64  `json:"i"`
	Seq  int    `json:"s"`
}

// Runs accumulates one side's entries for a single request. Entries stay
// resident below the configured threshold; past it, full runs are stably
// sorted and written out as NDJSON run files in a request-scoped directory.
// Runs is request-scoped and not safe for concurrent use; nothing in a
// request pipeline is shared.
type Runs struct {
	side      name.Side
	threshold int
	baseDir   string
	logger    *slog.Logger

	buf      []name.Entry
	runPaths []string
	dir      string // created lazily on first spill
	count    int
	sealed   bool
}

// NewRuns creates an accumulator for one side of one request
func NewRuns(side name.Side, cfg Config, logger *slog.Logger) *Runs {
	threshold := cfg.MemoryThreshold
	if threshold <= 0 {
		threshold = DefaultMemoryThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Runs{
		side:      side,
		threshold: threshold,
		baseDir:   cfg.Dir,
		logger:    logger,
	}
}

// Side returns which input collection this accumulator holds
func (r *Runs) Side() name.Side {
	return r.side
}

// Count returns the number of entries appended so far
func (r *Runs) Count() int {
	return r.count
}

// SpilledRuns returns how many sorted runs were flushed to disk
func (r *Runs) SpilledRuns() int {
	return len(r.runPaths)
}

// Append adds one entry in wire order. The arrival sequence is assigned
// here so the stable-sort tiebreaker cannot drift from the true wire order.
func (r *Runs) Append(nameText string, id int64) error {
	if r.sealed {
		return errors.WrapFatal(errors.ErrCursorSealed, "Runs", "Append",
			"append after seal")
	}

	r.buf = append(r.buf, name.Entry{Name: nameText, ID: id, Seq: r.count})
	r.count++

	if len(r.buf) >= r.threshold {
		return r.flushRun()
	}
	return nil
}

// flushRun stably sorts the resident buffer and writes it out as one run
func (r *Runs) flushRun() error {
	if r.dir == "" {
		dir, err := os.MkdirTemp(r.baseDir, "namestream-spill-")
		if err != nil {
			return errors.WrapFatal(err, "Runs", "flushRun", "create spill dir")
		}
		r.dir = dir
	}

	sortEntries(r.buf)

	path := filepath.Join(r.dir, fmt.Sprintf("%s_run_%d.ndjson", r.side, len(r.runPaths)))
	f, err := os.Create(path)
	if err != nil {
		return errors.WrapFatal(err, "Runs", "flushRun", "create run file")
	}

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, e := range r.buf {
		if err := enc.Encode(runRecord{Name: e.Name, ID: e.ID, Seq: e.Seq}); err != nil {
			_ = f.Close()
			return errors.WrapFatal(err, "Runs", "flushRun", "encode run record")
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return errors.WrapFatal(err, "Runs", "flushRun", "flush run file")
	}
	if err := f.Close(); err != nil {
		return errors.WrapFatal(err, "Runs", "flushRun", "close run file")
	}

	r.runPaths = append(r.runPaths, path)
	r.buf = r.buf[:0]

	r.logger.Debug("Spilled sorted run to disk",
		"side", r.side.String(),
		"run", len(r.runPaths)-1,
		"entries_total", r.count)

	return nil
}

// Seal freezes the accumulator and returns a cursor that yields every
// appended entry in ascending (id, seq) order. The common all-resident
// case iterates the sorted buffer directly; the spilled case performs a
// k-way merge over the run files plus the resident tail.
func (r *Runs) Seal() (*Cursor, error) {
	if r.sealed {
		return nil, errors.WrapFatal(errors.ErrCursorSealed, "Runs", "Seal",
			"seal called twice")
	}
	r.sealed = true

	sortEntries(r.buf)

	return newCursor(r.buf, r.runPaths)
}

// Close releases the request's spill directory. Safe to call whether or
// not anything was spilled, and after Seal; cursors obtained from Seal
// must not be read after Close.
func (r *Runs) Close() error {
	r.sealed = true
	r.buf = nil
	if r.dir == "" {
		return nil
	}
	dir := r.dir
	r.dir = ""
	r.runPaths = nil
	if err := os.RemoveAll(dir); err != nil {
		return errors.WrapTransient(err, "Runs", "Close", "remove spill dir")
	}
	return nil
}

// sortEntries stably orders entries by (id, seq). SliceStable preserves
// relative order of equal keys, which keeps duplicate-id pairing
// deterministic downstream.
func sortEntries(entries []name.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Less(entries[j])
	})
}
