// Package biograph ingests biological ontologies into knowledge-graph
// records.
//
// The module has two halves. The ontology half fetches OWL artifacts
// serialized as N-Triples, caches them locally with version metadata, and
// flattens each loaded graph into a stream of term nodes and relation edges:
// named-class declarations become nodes, subclass axioms and allow-listed
// existential restrictions become edges, deprecated terms and malformed
// statements are dropped with accounting. The schema half loads a
// declarative YAML schema and applies one shared rule set on the way out:
// type resolution (including the generic "ontology term" wildcard),
// Cartesian expansion of multi-typed edge endpoints, and identifier
// normalization, so every output backend writes the same physical keys.
//
// # Packages
//
// Ingestion:
//   - sourcecache: versioned fetch-and-cache of remote ontology artifacts
//   - ontology: RDF graph loading, property indexing, restriction
//     resolution, and graph projection
//
// Routing:
//   - schema: schema registry, type resolution, identifier normalization
//   - pipeline: producer/sink glue through the shared routing path
//
// Infrastructure:
//   - storage: pluggable blob store backing the source cache
//   - config: YAML configuration loading and validation
//   - metric: Prometheus metrics
//   - errors: classified error handling
//   - pkg/retry: retry policies for network fetches
//
// # Binary
//
// cmd/biograph resolves every configured source, projects it, and routes
// the records to a JSONL sink:
//
//	biograph --config configs/biograph.yaml --out records.jsonl
//	biograph --config configs/biograph.yaml --dry-run
package biograph
