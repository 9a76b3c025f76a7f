// Package merge implements the ordered merge-join over the two decoded
// name collections. This is the algorithmic heart of namestream.
package merge

import (
	"fmt"
	"log/slog"

	"github.com/c360/namestream/errors"
	"github.com/c360/namestream/name"
)

// Cursor yields one side's entries in ascending (id, seq) order.
// *spill.Cursor satisfies it.
type Cursor interface {
	Next() (e name.Entry, ok bool, err error)
}

// Result holds one request's complete merge output. Emission order is
// ascending id, wire order within a tied id, and unpaired entries from
// both sides interleave by ascending id as the join encounters them.
type Result struct {
	Pairs    []name.MatchedPair
	Unpaired []name.Unpaired
}

// FullNames renders the matched pairs as combined name strings in
// emission order.
func (r *Result) FullNames() []string {
	full := make([]string, len(r.Pairs))
	for i, p := range r.Pairs {
		full[i] = p.FullName()
	}
	return full
}

// Engine performs the two-pointer merge-join. It is pure in-memory
// computation over its cursors: no I/O of its own, no suspension, and no
// failure modes beyond a violated cursor-ordering precondition.
type Engine struct {
	logger *slog.Logger
}

// NewEngine creates a merge engine
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

// side tracks one cursor plus its current front entry during the join
type side struct {
	cursor Cursor
	tag    name.Side
	cur    name.Entry
	ok     bool
	lastID int64
	seen   bool
}

// advance pulls the next entry and asserts the cursor's ordering
// contract. An out-of-order cursor means the ingest/spill contract was
// breached upstream; that is a programming fault, not a runtime
// condition to recover from.
func (s *side) advance() error {
	e, ok, err := s.cursor.Next()
	if err != nil {
		return err
	}
	if ok && s.seen && e.ID < s.lastID {
		return errors.WrapFatal(errors.ErrOrderViolation, "Engine", "advance",
			fmt.Sprintf("%s cursor yielded id %d after %d", s.tag, e.ID, s.lastID))
	}
	s.cur, s.ok = e, ok
	if ok {
		s.lastID = e.ID
		s.seen = true
	}
	return nil
}

// Join walks both cursors in lockstep and classifies every entry as
// matched or unpaired.
//
// Equal front ids pop one entry from each side into a MatchedPair; the
// stable (id, seq) cursor order makes duplicate ids pair first-with-first
// until the lighter side runs out of that id, leaving the heavier side's
// surplus unpaired. An id present on only one side goes straight to
// Unpaired for that side, and once either cursor is exhausted the other
// side drains entirely into Unpaired.
func (en *Engine) Join(firstCursor, lastCursor Cursor) (*Result, error) {
	first := &side{cursor: firstCursor, tag: name.SideFirst}
	last := &side{cursor: lastCursor, tag: name.SideLast}

	if err := first.advance(); err != nil {
		return nil, err
	}
	if err := last.advance(); err != nil {
		return nil, err
	}

	result := &Result{}

	for first.ok && last.ok {
		switch {
		case first.cur.ID == last.cur.ID:
			result.Pairs = append(result.Pairs, name.MatchedPair{
				First: first.cur.Name,
				Last:  last.cur.Name,
				ID:    first.cur.ID,
			})
			if err := first.advance(); err != nil {
				return nil, err
			}
			if err := last.advance(); err != nil {
				return nil, err
			}
		case first.cur.ID < last.cur.ID:
			result.Unpaired = append(result.Unpaired, name.Unpaired{
				Name: first.cur.Name, ID: first.cur.ID, Side: name.SideFirst,
			})
			if err := first.advance(); err != nil {
				return nil, err
			}
		default:
			result.Unpaired = append(result.Unpaired, name.Unpaired{
				Name: last.cur.Name, ID: last.cur.ID, Side: name.SideLast,
			})
			if err := last.advance(); err != nil {
				return nil, err
			}
		}
	}

	for _, remainder := range []*side{first, last} {
		for remainder.ok {
			result.Unpaired = append(result.Unpaired, name.Unpaired{
				Name: remainder.cur.Name, ID: remainder.cur.ID, Side: remainder.tag,
			})
			if err := remainder.advance(); err != nil {
				return nil, err
			}
		}
	}

	en.logger.Debug("Merge complete",
		"pairs", len(result.Pairs),
		"unpaired", len(result.Unpaired))

	return result, nil
}
