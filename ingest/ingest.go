// Package ingest decodes the combine-names request body incrementally,
// constructing one entry at a time instead of materializing the payload.
package ingest

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/c360/namestream/errors"
	"github.com/c360/namestream/name"
)

// ctxCheckInterval is how many decoded elements pass between context
// cancellation checks.
const ctxCheckInterval = 1024

// Sink receives decoded entries in wire order. *spill.Runs satisfies it.
type Sink interface {
	Append(name string, id int64) error
}

// MalformedPayloadError reports which field and element of the request
// body failed to decode. It classifies as invalid input.
type MalformedPayloadError struct {
	Field  string // top-level field, empty for document-level faults
	Index  int    // element index within the field, -1 for field-level faults
	Reason string
}

// Error implements the error interface
func (e *MalformedPayloadError) Error() string {
	switch {
	case e.Field == "":
		return fmt.Sprintf("malformed payload: %s", e.Reason)
	case e.Index < 0:
		return fmt.Sprintf("malformed payload: field %q: %s", e.Field, e.Reason)
	default:
		return fmt.Sprintf("malformed payload: field %q element %d: %s", e.Field, e.Index, e.Reason)
	}
}

// Unwrap ties the error into the ErrMalformedPayload classification chain
func (e *MalformedPayloadError) Unwrap() error {
	return errors.ErrMalformedPayload
}

func malformed(field string, index int, reason string) error {
	return &MalformedPayloadError{Field: field, Index: index, Reason: reason}
}

// Ingestor converts a request body byte stream into the two entry
// sequences. One Ingestor is safe for concurrent use; all per-request
// state lives on the stack of Decode.
type Ingestor struct {
	logger *slog.Logger
}

// New creates an Ingestor
func New(logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{logger: logger}
}

// Decode reads one request body from r, appending first_names elements to
// first and last_names elements to last as each [name, id] pair completes.
// Both fields are optional; unknown top-level fields are skipped without
// buffering. The first malformed element fails the whole request.
func (in *Ingestor) Decode(ctx context.Context, r io.Reader, first, last Sink) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return in.classify(ctx, err, "", -1, "document start")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.WrapInvalid(
			malformed("", -1, fmt.Sprintf("top-level value is %v, want object", tok)),
			"Ingestor", "Decode", "read document")
	}

	seen := 0
	for {
		tok, err = dec.Token()
		if err != nil {
			return in.classify(ctx, err, "", -1, "object key")
		}
		if delim, ok := tok.(json.Delim); ok && delim == '}' {
			break
		}

		key, ok := tok.(string)
		if !ok {
			return errors.WrapInvalid(
				malformed("", -1, fmt.Sprintf("unexpected token %v, want object key", tok)),
				"Ingestor", "Decode", "read document")
		}

		switch key {
		case name.SideFirst.Field():
			n, err := in.decodeSide(ctx, dec, key, first)
			if err != nil {
				return err
			}
			seen += n
		case name.SideLast.Field():
			n, err := in.decodeSide(ctx, dec, key, last)
			if err != nil {
				return err
			}
			seen += n
		default:
			if err := skipValue(dec); err != nil {
				return in.classify(ctx, err, key, -1, "skip unknown field")
			}
		}
	}

	// Anything after the closing brace is garbage, not a JSON document
	if tok, err = dec.Token(); err != io.EOF {
		if err != nil {
			return in.classify(ctx, err, "", -1, "document end")
		}
		return errors.WrapInvalid(
			malformed("", -1, fmt.Sprintf("trailing data after document: %v", tok)),
			"Ingestor", "Decode", "read document")
	}

	in.logger.Debug("Request body decoded", "entries", seen)
	return nil
}

// decodeSide consumes one array of [name, id] pairs, appending each to
// the sink as it completes. Peak memory is one element, not the array.
func (in *Ingestor) decodeSide(ctx context.Context, dec *json.Decoder, field string, sink Sink) (int, error) {
	tok, err := dec.Token()
	if err != nil {
		return 0, in.classify(ctx, err, field, -1, "array start")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return 0, errors.WrapInvalid(
			malformed(field, -1, fmt.Sprintf("field is %v, want array", tok)),
			"Ingestor", "decodeSide", "read field")
	}

	index := 0
	for dec.More() {
		if index%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return index, errors.WrapTransient(err, "Ingestor", "decodeSide", "context check")
			}
		}

		entryName, id, err := in.decodePair(ctx, dec, field, index)
		if err != nil {
			return index, err
		}
		if err := sink.Append(entryName, id); err != nil {
			return index, err
		}
		index++
	}

	// Consume the closing bracket
	if _, err := dec.Token(); err != nil {
		return index, in.classify(ctx, err, field, index, "array end")
	}

	return index, nil
}

// decodePair consumes one [name, id] element
func (in *Ingestor) decodePair(ctx context.Context, dec *json.Decoder, field string, index int) (string, int64, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", 0, in.classify(ctx, err, field, index, "element start")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return "", 0, errors.WrapInvalid(
			malformed(field, index, fmt.Sprintf("element is %v, want [name, id] pair", tok)),
			"Ingestor", "decodePair", "read element")
	}

	tok, err = dec.Token()
	if err != nil {
		return "", 0, in.classify(ctx, err, field, index, "element name")
	}
	entryName, ok := tok.(string)
	if !ok {
		return "", 0, errors.WrapInvalid(
			malformed(field, index, fmt.Sprintf("name is %v, want string", tok)),
			"Ingestor", "decodePair", "read name")
	}

	tok, err = dec.Token()
	if err != nil {
		return "", 0, in.classify(ctx, err, field, index, "element id")
	}
	num, ok := tok.(json.Number)
	if !ok {
		return "", 0, errors.WrapInvalid(
			malformed(field, index, fmt.Sprintf("id is %v, want integer", tok)),
			"Ingestor", "decodePair", "read id")
	}
	id, err := num.Int64()
	if err != nil {
		return "", 0, errors.WrapInvalid(
			malformed(field, index, fmt.Sprintf("id %s is not an integer", num)),
			"Ingestor", "decodePair", "parse id")
	}

	tok, err = dec.Token()
	if err != nil {
		return "", 0, in.classify(ctx, err, field, index, "element end")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != ']' {
		return "", 0, errors.WrapInvalid(
			malformed(field, index, "element has more than two values"),
			"Ingestor", "decodePair", "read element end")
	}

	return entryName, id, nil
}

// skipValue consumes one complete JSON value token-by-token
func skipValue(dec *json.Decoder) error {
	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if delim, ok := tok.(json.Delim); ok {
			switch delim {
			case '[', '{':
				depth++
			case ']', '}':
				depth--
			}
		}
		if depth == 0 {
			return nil
		}
	}
}

// classify turns a decoder error into the right class: cancellation stays
// transient, syntax faults and truncation are the client's malformed
// payload, anything else is a transport read failure.
func (in *Ingestor) classify(ctx context.Context, err error, field string, index int, action string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return errors.WrapTransient(ctxErr, "Ingestor", "Decode", action)
	}

	var syntaxErr *json.SyntaxError
	if stderrors.As(err, &syntaxErr) || err == io.EOF || err == io.ErrUnexpectedEOF {
		return errors.WrapInvalid(
			malformed(field, index, fmt.Sprintf("%s: %v", action, err)),
			"Ingestor", "Decode", action)
	}

	return errors.WrapTransient(err, "Ingestor", "Decode", action)
}
