// Package pipeline connects graph producers to output sinks through one
// shared routing path.
//
// Every record leaving a producer passes through the Router, which applies
// the schema registry's type resolution, wildcard expansion, and identifier
// normalization. Output backends therefore never reimplement those rules;
// they consume fully typed, fully normalized records.
package pipeline

import (
	"iter"
	"log/slog"

	"github.com/rejuve-bio/biograph/metric"
	"github.com/rejuve-bio/biograph/ontology"
	"github.com/rejuve-bio/biograph/schema"
)

// Producer yields the node and edge streams for one source. Both sequences
// are restartable: ranging again performs a fresh pass.
type Producer interface {
	Nodes() iter.Seq[ontology.Node]
	Edges() iter.Seq[ontology.Edge]
}

// NodeRecord is one routed node, carrying its concrete type and normalized
// routing key.
type NodeRecord struct {
	Type  string         `json:"type"`
	Key   string         `json:"key"`
	Props map[string]any `json:"props,omitempty"`
}

// EdgeRecord is one routed physical edge. An incoming edge whose type
// declares several legal endpoint types expands into several EdgeRecords,
// one per concrete (source type, target type) pair.
type EdgeRecord struct {
	Label      string         `json:"label"`
	SourceType string         `json:"source_type"`
	SourceKey  string         `json:"source_key"`
	TargetType string         `json:"target_type"`
	TargetKey  string         `json:"target_key"`
	Props      map[string]any `json:"props,omitempty"`
}

// EdgeInput is one incoming edge before routing. SourceType and TargetType
// are optional: when the caller has already resolved an endpoint to a
// concrete type, setting it collapses the expansion on that end to the
// single validated type.
type EdgeInput struct {
	Label      string
	SourceID   string
	TargetID   string
	SourceType string
	TargetType string
	Props      map[string]any
}

// Router applies schema-driven typing and normalization to records on their
// way to an output sink. It is safe for concurrent use: the registry is
// immutable and the router holds no per-call state.
type Router struct {
	reg     *schema.Registry
	log     *slog.Logger
	metrics *metric.Metrics
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithMetrics attaches pipeline metrics to the router.
func WithMetrics(m *metric.Metrics) RouterOption {
	return func(r *Router) { r.metrics = m }
}

// NewRouter creates a Router over the given registry. The logger may be nil.
func NewRouter(reg *schema.Registry, log *slog.Logger, opts ...RouterOption) *Router {
	if log == nil {
		log = slog.Default()
	}
	r := &Router{
		reg: reg,
		log: log.With("component", "router"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RouteNode routes one node under a declared schema label. The concrete
// type is the declared type name, except for the generic ontology-term
// label, which resolves from the identifier's namespace prefix. Undeclared
// labels are hard errors.
func (r *Router) RouteNode(label, identifier string, props map[string]any) (NodeRecord, error) {
	nt, err := r.reg.NodeType(label)
	if err != nil {
		return NodeRecord{}, err
	}
	typ := nt.Name
	if nt.InputLabel == schema.Wildcard {
		typ = schema.ResolveWildcard(schema.Wildcard, identifier)
	}
	return NodeRecord{
		Type:  typ,
		Key:   schema.Normalize(identifier, nt.IsOntologyTerm),
		Props: filterProps(nt.Properties, props),
	}, nil
}

// RouteOntologyNode routes one projected ontology term without a schema
// lookup: the concrete type is always the term's namespace prefix.
func (r *Router) RouteOntologyNode(identifier string, props map[string]any) NodeRecord {
	return NodeRecord{
		Type:  schema.ResolveWildcard(schema.Wildcard, identifier),
		Key:   schema.Normalize(identifier, true),
		Props: props,
	}
}

// RouteEdge routes one incoming edge into its physical records. Endpoint
// sets come from the schema declaration, narrowed to a caller-supplied
// concrete type when one is given; a supplied type outside the declared
// legal set is a hard error.
func (r *Router) RouteEdge(in EdgeInput) ([]EdgeRecord, error) {
	et, err := r.reg.EdgeType(in.Label)
	if err != nil {
		return nil, err
	}

	sources := et.Sources
	if in.SourceType != "" {
		if err := schema.ValidateSourceType(et, in.SourceType); err != nil {
			r.noteMismatch(in, err)
			return nil, err
		}
		sources = []string{in.SourceType}
	}
	targets := et.Targets
	if in.TargetType != "" {
		if err := schema.ValidateTargetType(et, in.TargetType); err != nil {
			r.noteMismatch(in, err)
			return nil, err
		}
		targets = []string{in.TargetType}
	}

	props := filterProps(et.Properties, in.Props)
	records := make([]EdgeRecord, 0, len(sources)*len(targets))
	for _, s := range sources {
		srcType := schema.ResolveWildcard(s, in.SourceID)
		srcKey := schema.Normalize(in.SourceID, r.ontologyEnd(s))
		for _, t := range targets {
			records = append(records, EdgeRecord{
				Label:      et.OutputLabel,
				SourceType: srcType,
				SourceKey:  srcKey,
				TargetType: schema.ResolveWildcard(t, in.TargetID),
				TargetKey:  schema.Normalize(in.TargetID, r.ontologyEnd(t)),
				Props:      props,
			})
		}
	}
	return records, nil
}

func (r *Router) noteMismatch(in EdgeInput, err error) {
	r.log.Error("edge endpoint type outside declared legal set",
		"label", in.Label, "source_id", in.SourceID, "target_id", in.TargetID, "error", err)
	if r.metrics != nil {
		r.metrics.TypeMismatches.Inc()
	}
}

// ontologyEnd reports whether an endpoint declared (or supplied) as typ
// holds ontology-term identifiers, which normalize differently from plain
// identifiers. Types not declared in the registry are only reachable
// through the wildcard and are therefore ontology terms.
func (r *Router) ontologyEnd(typ string) bool {
	if typ == schema.Wildcard {
		return true
	}
	nt, err := r.reg.NodeType(typ)
	if err != nil {
		return true
	}
	return nt.IsOntologyTerm
}

// filterProps restricts props to the keys the schema declares for the type.
// A type declaring no properties passes everything through.
func filterProps(declared map[string]string, props map[string]any) map[string]any {
	if len(props) == 0 {
		return nil
	}
	out := make(map[string]any, len(props))
	for k, v := range props {
		if len(declared) == 0 {
			out[k] = v
			continue
		}
		if _, ok := declared[k]; ok {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
