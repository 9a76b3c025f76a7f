// Package namestream combines two streams of (name, id) pairs into full
// names, matching first and last names on shared IDs.
//
// The pipeline is built around bounded memory: request bodies decode
// incrementally (ingest), entries accumulate in per-side spill
// accumulators that sort and write runs to disk past a threshold
// (spill), and sealed accumulators replay their entries in (id, arrival)
// order through a k-way merge so a two-pointer join can pair the sides
// in a single pass (merge). The service package ties the pipeline
// together per request, and gateway/http exposes it as POST
// /v1/combine-names.
//
// Output order is deterministic for a given input: full names ascend by
// shared ID, duplicate IDs pair in arrival order, and unpaired entries
// from both sides interleave by ID.
package namestream
