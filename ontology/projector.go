package ontology

import (
	"iter"
	"log/slog"
	"strings"
	"sync"

	"gonum.org/v1/gonum/graph/formats/rdf"
)

// Node is one projected ontology term.
type Node struct {
	ID    string
	Type  string
	Props map[string]any
}

// Edge is one projected relation between two term keys.
type Edge struct {
	SourceID string
	TargetID string
	Label    string
	Props    map[string]any
}

// Edge labels emitted by the projector for declared axiom edges.
const (
	LabelSubClassOf     = "subclass_of"
	LabelCrossReference = "cross_reference"
)

// Stats counts the outcomes of the most recent node pass and the most
// recent edge pass combined.
type Stats struct {
	NodesEmitted int
	EdgesEmitted int
	Dropped      map[string]int
}

// Drop reasons recorded in Stats.Dropped.
const (
	DropDeprecated              = "deprecated"
	DropUnresolvableRestriction = "unresolvable_restriction"
	DropSelfReference           = "self_reference"
	DropMalformedXref           = "malformed_xref"
	DropInvalidKey              = "invalid_key"
	DropDeprecatedEndpoint      = "deprecated_endpoint"
	DropAnonymousEndpoint       = "anonymous_endpoint"
)

// Config controls one projector instance.
type Config struct {
	// Source is the ontology source identifier, used in log context.
	Source string
	// SampleLimit bounds each of the node and edge passes to at most this
	// many records when positive. Sampling only truncates output; it never
	// changes its content.
	SampleLimit int
}

// Projector produces the deduplicated node stream and edge stream for one
// ontology source. It owns the loaded graph and its derived PropertyIndex
// for the duration of the projection; Close releases them.
//
// Both Nodes and Edges are restartable: each range performs a fresh pass
// over the indexed graph, and passes over an unchanged graph yield
// identical streams.
type Projector struct {
	mu  sync.Mutex
	g   *Graph
	ix  *PropertyIndex
	res *RestrictionResolver
	cfg Config
	log *slog.Logger

	nodeStats Stats
	edgeStats Stats
}

// NewProjector builds the PropertyIndex for g and returns a projector over
// it. The logger may be nil.
func NewProjector(g *Graph, cfg Config, log *slog.Logger) *Projector {
	if log == nil {
		log = slog.Default()
	}
	ix := BuildIndex(g)
	return &Projector{
		g:   g,
		ix:  ix,
		res: NewRestrictionResolver(ix),
		cfg: cfg,
		log: log.With("component", "projector", "source", cfg.Source),
	}
}

// Close releases the graph handle and index. The projector must not be used
// after Close.
func (p *Projector) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.g = nil
	p.ix = nil
	p.res = nil
}

// Stats returns a snapshot merging the counters of the most recent node
// pass and the most recent edge pass. Restarting one pass resets only that
// pass's counters, so node-pass counts survive a subsequent edge pass.
func (p *Projector) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	merged := Stats{
		NodesEmitted: p.nodeStats.NodesEmitted,
		EdgesEmitted: p.edgeStats.EdgesEmitted,
		Dropped:      make(map[string]int, len(p.nodeStats.Dropped)+len(p.edgeStats.Dropped)),
	}
	for k, v := range p.nodeStats.Dropped {
		merged.Dropped[k] += v
	}
	for k, v := range p.edgeStats.Dropped {
		merged.Dropped[k] += v
	}
	return merged
}

func (p *Projector) resetNodeStats() *Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nodeStats = Stats{Dropped: make(map[string]int)}
	return &p.nodeStats
}

func (p *Projector) resetEdgeStats() *Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.edgeStats = Stats{Dropped: make(map[string]int)}
	return &p.edgeStats
}

func (p *Projector) drop(stats *Stats, reason string, args ...any) {
	p.mu.Lock()
	stats.Dropped[reason]++
	p.mu.Unlock()
	p.log.Debug("dropped triple", append([]any{"reason", reason}, args...)...)
}

// Nodes returns the node stream for the ontology. Deprecated terms are
// logged and skipped; anonymous nodes and restriction blocks never appear;
// duplicate keys are emitted once per pass.
func (p *Projector) Nodes() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		stats := p.resetNodeStats()
		seen := make(map[string]bool)
		count := 0

		for _, s := range p.g.Statements(IRIType) {
			if s.Object.Value != IRIOWLClass {
				continue
			}
			if !isNamed(s.Subject) {
				continue
			}
			key := TermKey(s.Subject)
			if !ValidTermKey(key) {
				p.drop(stats, DropInvalidKey, "subject", s.Subject.Value)
				continue
			}
			if seen[key] {
				continue
			}
			if p.ix.Deprecated(s.Subject.UID) {
				p.drop(stats, DropDeprecated, "term", key)
				continue
			}
			seen[key] = true

			node := Node{ID: key, Type: KeyPrefix(key), Props: p.nodeProps(s.Subject.UID)}
			p.mu.Lock()
			stats.NodesEmitted++
			p.mu.Unlock()
			if !yield(node) {
				return
			}
			count++
			if p.cfg.SampleLimit > 0 && count >= p.cfg.SampleLimit {
				return
			}
		}
	}
}

func (p *Projector) nodeProps(id int64) map[string]any {
	props := make(map[string]any)
	if labels := p.ix.Strings(id, PropLabel); len(labels) > 0 {
		props["label"] = strings.Join(labels, "|")
	}
	var synonyms []string
	synonyms = append(synonyms, p.ix.Strings(id, PropExactSynonym)...)
	synonyms = append(synonyms, p.ix.Strings(id, PropRelatedSynonym)...)
	if len(synonyms) > 0 {
		props["synonyms"] = synonyms
	}
	if altIDs := p.ix.Strings(id, PropAltID); len(altIDs) > 0 {
		props["alt_ids"] = altIDs
	}
	if def, ok := p.ix.First(id, PropDefinition); ok {
		props["description"] = def
	}
	if ns, ok := p.ix.First(id, PropNamespace); ok {
		props["subontology"] = ns
	}
	return props
}

// Edges returns the edge stream for the ontology: subclass axioms,
// restriction-resolved relations, and cross-references. Edges touching a
// deprecated or anonymous endpoint are dropped, as are self-referential or
// malformed cross-references. Any single malformed triple is dropped with a
// log line; the pass never aborts on one bad record.
func (p *Projector) Edges() iter.Seq[Edge] {
	return func(yield func(Edge) bool) {
		stats := p.resetEdgeStats()
		count := 0

		emit := func(e Edge) bool {
			p.mu.Lock()
			stats.EdgesEmitted++
			p.mu.Unlock()
			if !yield(e) {
				return false
			}
			count++
			return p.cfg.SampleLimit <= 0 || count < p.cfg.SampleLimit
		}

		for _, s := range p.g.Statements(IRISubClassOf) {
			e, ok := p.subClassEdge(stats, s)
			if !ok {
				continue
			}
			if !emit(e) {
				return
			}
		}

		for _, s := range p.g.Statements(IRIDbXref) {
			e, ok := p.xrefEdge(stats, s)
			if !ok {
				continue
			}
			if !emit(e) {
				return
			}
		}
	}
}

func (p *Projector) subClassEdge(stats *Stats, s *rdf.Statement) (Edge, bool) {
	if !isNamed(s.Subject) {
		return Edge{}, false
	}
	srcKey := TermKey(s.Subject)
	if !ValidTermKey(srcKey) {
		p.drop(stats, DropInvalidKey, "subject", s.Subject.Value)
		return Edge{}, false
	}
	if p.ix.Deprecated(s.Subject.UID) {
		p.drop(stats, DropDeprecatedEndpoint, "subject", srcKey)
		return Edge{}, false
	}

	label := LabelSubClassOf
	object := s.Object
	if isBlank(object) {
		res := p.res.Resolve(object)
		if res.Kind == Unresolved {
			p.drop(stats, DropUnresolvableRestriction, "subject", srcKey)
			return Edge{}, false
		}
		label = res.Predicate
		object = res.Target
	}
	if !isNamed(object) {
		p.drop(stats, DropAnonymousEndpoint, "subject", srcKey)
		return Edge{}, false
	}
	tgtKey := TermKey(object)
	if !ValidTermKey(tgtKey) {
		p.drop(stats, DropInvalidKey, "object", object.Value)
		return Edge{}, false
	}
	if p.ix.Deprecated(object.UID) {
		p.drop(stats, DropDeprecatedEndpoint, "object", tgtKey)
		return Edge{}, false
	}

	return Edge{SourceID: srcKey, TargetID: tgtKey, Label: label, Props: map[string]any{}}, true
}

func (p *Projector) xrefEdge(stats *Stats, s *rdf.Statement) (Edge, bool) {
	if !isNamed(s.Subject) {
		return Edge{}, false
	}
	srcKey := TermKey(s.Subject)
	if !ValidTermKey(srcKey) {
		p.drop(stats, DropInvalidKey, "subject", s.Subject.Value)
		return Edge{}, false
	}
	if p.ix.Deprecated(s.Subject.UID) {
		p.drop(stats, DropDeprecatedEndpoint, "subject", srcKey)
		return Edge{}, false
	}

	text, _, kind, err := s.Object.Parts()
	if err != nil || kind != rdf.Literal {
		p.drop(stats, DropMalformedXref, "subject", srcKey, "object", s.Object.Value)
		return Edge{}, false
	}
	ref := strings.TrimSpace(text)
	if !strictCURIE(ref) {
		p.drop(stats, DropMalformedXref, "subject", srcKey, "xref", ref)
		return Edge{}, false
	}
	if ref == srcKey {
		p.drop(stats, DropSelfReference, "subject", srcKey)
		return Edge{}, false
	}

	return Edge{SourceID: srcKey, TargetID: ref, Label: LabelCrossReference, Props: map[string]any{}}, true
}

// strictCURIE reports whether ref is exactly one "namespace:localId" pair
// with non-empty segments and no internal whitespace.
func strictCURIE(ref string) bool {
	if strings.ContainsAny(ref, " \t") {
		return false
	}
	parts := strings.Split(ref, ":")
	return len(parts) == 2 && parts[0] != "" && parts[1] != ""
}

func isNamed(t rdf.Term) bool {
	_, _, kind, err := t.Parts()
	return err == nil && kind == rdf.IRI
}

func isBlank(t rdf.Term) bool {
	_, _, kind, err := t.Parts()
	return err == nil && kind == rdf.Blank
}
