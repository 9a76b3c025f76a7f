// Package payload generates combine-names request bodies of controlled
// size and overlap for exercising the service.
package payload

import (
	"bufio"
	"fmt"
	"io"
	"math/rand"
	"os"

	"github.com/c360/namestream/errors"
	"github.com/c360/namestream/name"
)

const (
	// firstIDMax bounds the first-name ID range [1, firstIDMax)
	firstIDMax = 1_000_000_000
	// lastIDMin/lastIDMax bound the native last-name ID range; overlap
	// replaces a prefix of this range with sampled first-name IDs
	lastIDMin = 1_000_000_001
	lastIDMax = 2_000_000_000

	// approxRecordOverhead is the JSON framing around one name: brackets,
	// quotes, comma and a typical ID width
	approxRecordOverhead = 20

	// DefaultNameLength is the character length of generated names
	DefaultNameLength = 5
)

// Spec describes one generated payload. BaseFirst and BaseLast set the
// ratio between the two sides; both are scaled up together until the
// output approaches TargetSize.
type Spec struct {
	// TargetSize is the approximate output size in bytes. Zero keeps the
	// base counts unscaled.
	TargetSize int64
	// BaseFirst and BaseLast are the unscaled per-side entry counts
	BaseFirst int
	BaseLast  int
	// OverlapRatio is the fraction of min(first, last) that share IDs
	// across sides, i.e. that will pair up
	OverlapRatio float64
	// NameLength is characters per name; zero means DefaultNameLength
	NameLength int
}

// Stats reports what a generation run produced
type Stats struct {
	FirstNames   int   `json:"first_names"`
	LastNames    int   `json:"last_names"`
	Overlap      int   `json:"overlap"`
	BytesWritten int64 `json:"bytes_written"`
}

// Generator produces payloads from a seeded source so runs are
// reproducible.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a generator with the given seed
func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Write streams one payload to w. Only the ID bookkeeping is held in
// memory; names and JSON framing go straight to the writer.
func (g *Generator) Write(w io.Writer, spec Spec) (Stats, error) {
	if spec.OverlapRatio < 0 || spec.OverlapRatio > 1 {
		return Stats{}, errors.WrapInvalid(errors.ErrInvalidConfig, "Generator", "Write",
			fmt.Sprintf("overlap ratio %g out of [0, 1]", spec.OverlapRatio))
	}
	if spec.BaseFirst < 0 || spec.BaseLast < 0 {
		return Stats{}, errors.WrapInvalid(errors.ErrInvalidConfig, "Generator", "Write",
			"entry counts must be non-negative")
	}

	nameLen := spec.NameLength
	if nameLen <= 0 {
		nameLen = DefaultNameLength
	}

	numFirst, numLast := scaleCounts(spec, nameLen)

	firstIDs := g.sampleIDs(1, firstIDMax, numFirst)
	lastIDs := g.sampleIDs(lastIDMin, lastIDMax, numLast)

	// Overlapping last-name IDs are drawn from the first-name pool so the
	// two sides pair up on exactly that many IDs
	overlap := int(float64(min(numFirst, numLast)) * spec.OverlapRatio)
	if overlap > 0 {
		shared := make([]int64, len(firstIDs))
		copy(shared, firstIDs)
		g.rng.Shuffle(len(shared), func(i, j int) {
			shared[i], shared[j] = shared[j], shared[i]
		})
		copy(lastIDs[:overlap], shared[:overlap])
	}

	g.rng.Shuffle(len(firstIDs), func(i, j int) {
		firstIDs[i], firstIDs[j] = firstIDs[j], firstIDs[i]
	})
	g.rng.Shuffle(len(lastIDs), func(i, j int) {
		lastIDs[i], lastIDs[j] = lastIDs[j], lastIDs[i]
	})

	bw := bufio.NewWriter(w)
	cw := &countingWriter{w: bw}
	if err := g.writeDocument(cw, firstIDs, lastIDs, nameLen); err != nil {
		return Stats{}, errors.WrapTransient(err, "Generator", "Write", "write payload")
	}
	if err := bw.Flush(); err != nil {
		return Stats{}, errors.WrapTransient(err, "Generator", "Write", "flush payload")
	}

	return Stats{
		FirstNames:   numFirst,
		LastNames:    numLast,
		Overlap:      overlap,
		BytesWritten: cw.n,
	}, nil
}

// WriteFile generates one payload into a file
func (g *Generator) WriteFile(path string, spec Spec) (Stats, error) {
	f, err := os.Create(path)
	if err != nil {
		return Stats{}, errors.WrapTransient(err, "Generator", "WriteFile", "create output file")
	}

	stats, werr := g.Write(f, spec)
	if cerr := f.Close(); werr == nil && cerr != nil {
		werr = errors.WrapTransient(cerr, "Generator", "WriteFile", "close output file")
	}
	if werr != nil {
		return Stats{}, werr
	}
	return stats, nil
}

func (g *Generator) writeDocument(w io.Writer, firstIDs, lastIDs []int64, nameLen int) error {
	if _, err := fmt.Fprintf(w, "{%q: [", name.SideFirst.Field()); err != nil {
		return err
	}
	if err := g.writeSide(w, firstIDs, nameLen); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "], %q: [", name.SideLast.Field()); err != nil {
		return err
	}
	if err := g.writeSide(w, lastIDs, nameLen); err != nil {
		return err
	}
	_, err := io.WriteString(w, "]}")
	return err
}

func (g *Generator) writeSide(w io.Writer, ids []int64, nameLen int) error {
	for i, id := range ids {
		sep := ", "
		if i == 0 {
			sep = ""
		}
		if _, err := fmt.Fprintf(w, "%s[%q, %d]", sep, g.randomName(nameLen), id); err != nil {
			return err
		}
	}
	return nil
}

// randomName produces a capitalized lowercase-ascii string, names that
// look like names without being any
func (g *Generator) randomName(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = byte('a' + g.rng.Intn(26))
	}
	if length > 0 {
		b[0] = b[0] - 'a' + 'A'
	}
	return string(b)
}

// sampleIDs draws n distinct IDs from [lo, hi)
func (g *Generator) sampleIDs(lo, hi int64, n int) []int64 {
	ids := make([]int64, 0, n)
	seen := make(map[int64]struct{}, n)
	for len(ids) < n {
		id := lo + g.rng.Int63n(hi-lo)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// scaleCounts multiplies the base counts until the estimated output
// reaches the target size
func scaleCounts(spec Spec, nameLen int) (int, int) {
	numFirst, numLast := spec.BaseFirst, spec.BaseLast
	if spec.TargetSize <= 0 {
		return numFirst, numLast
	}

	baseRecords := numFirst + numLast
	if baseRecords == 0 {
		return 0, 0
	}

	recordSize := int64(nameLen + approxRecordOverhead)
	scale := spec.TargetSize / (int64(baseRecords) * recordSize)
	if scale < 1 {
		scale = 1
	}

	return numFirst * int(scale), numLast * int(scale)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
