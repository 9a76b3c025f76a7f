// Package name contains the domain types shared across the namestream pipeline
package name

import (
	"encoding/json"
	"fmt"

	"github.com/c360/namestream/errors"
)

// Side tags which input collection an entry came from
type Side int

// Side constants
const (
	SideFirst Side = iota
	SideLast
)

// String returns the string representation of Side
func (s Side) String() string {
	switch s {
	case SideFirst:
		return "first"
	case SideLast:
		return "last"
	default:
		return "unknown"
	}
}

// Opposite returns the other side
func (s Side) Opposite() Side {
	if s == SideFirst {
		return SideLast
	}
	return SideFirst
}

// Field returns the request field this side is decoded from
func (s Side) Field() string {
	if s == SideFirst {
		return "first_names"
	}
	return "last_names"
}

// MarshalJSON renders the side as "first" or "last"
func (s Side) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON parses "first" or "last"
func (s *Side) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return errors.WrapInvalid(err, "Side", "UnmarshalJSON", "decode side tag")
	}
	switch str {
	case "first":
		*s = SideFirst
	case "last":
		*s = SideLast
	default:
		return errors.WrapInvalid(
			fmt.Errorf("unknown side %q", str),
			"Side", "UnmarshalJSON", "parse side tag")
	}
	return nil
}

// Entry is one (name, id) pair from the wire. Name is opaque payload text
// and is never interpreted; ID is the join key. Seq is the arrival index
// within the entry's collection and exists only to break id ties
// deterministically when sorting.
type Entry struct {
	Name string
	ID   int64
	Seq  int
}

// Less orders entries by id ascending, arrival order within an id.
// This is the ordering every cursor in the pipeline yields.
func (e Entry) Less(other Entry) bool {
	if e.ID != other.ID {
		return e.ID < other.ID
	}
	return e.Seq < other.Seq
}

// MatchedPair is the output unit for a successful join
type MatchedPair struct {
	First string `json:"first"`
	Last  string `json:"last"`
	ID    int64  `json:"id"`
}

// FullName combines the two fragments into the client-facing full name
func (p MatchedPair) FullName() string {
	return p.First + " " + p.Last
}

// Unpaired is the output unit for an entry whose id had no counterpart
type Unpaired struct {
	Name string `json:"name"`
	ID   int64  `json:"id"`
	Side Side   `json:"side"`
}
