package ontology

import (
	"gonum.org/v1/gonum/graph/formats/rdf"
)

// Property identifies one of the fixed annotation predicate kinds memoized
// by the PropertyIndex.
type Property int

const (
	// Literal-valued annotation properties.
	PropLabel Property = iota
	PropNamespace
	PropDefinition
	PropExactSynonym
	PropRelatedSynonym
	PropDeprecated
	PropAltID
	PropXref

	// Term-valued structural properties used for restriction resolution.
	PropType
	PropOnProperty
	PropSomeValuesFrom
	PropAllValuesFrom
	PropIntersectionOf
	propListFirst
	propListRest
)

var literalProps = map[Property]string{
	PropLabel:          IRILabel,
	PropNamespace:      IRIOBONamespace,
	PropDefinition:     IRIDefinition,
	PropExactSynonym:   IRIExactSynonym,
	PropRelatedSynonym: IRIRelatedSynonym,
	PropDeprecated:     IRIOWLDeprecated,
	PropAltID:          IRIAlternativeID,
	PropXref:           IRIDbXref,
}

var termProps = map[Property]string{
	PropType:           IRIType,
	PropOnProperty:     IRIOWLOnProperty,
	PropSomeValuesFrom: IRIOWLSomeValuesFrom,
	PropAllValuesFrom:  IRIOWLAllValuesFrom,
	PropIntersectionOf: IRIOWLIntersectionOf,
	propListFirst:      IRIListFirst,
	propListRest:       IRIListRest,
}

// PropertyIndex memoizes the fixed set of per-node annotation predicates
// over a loaded graph, giving O(1) lookup during projection.
//
// The index is built in one O(edges) pass and is never mutated afterwards,
// so it is safe for concurrent readers. Literal values that fail term
// validation (for example an invalid language tag) are dropped at build
// time; every consumer sees pre-sanitized values.
type PropertyIndex struct {
	strings map[Property]map[int64][]string
	terms   map[Property]map[int64][]rdf.Term
}

// BuildIndex constructs a PropertyIndex for g.
func BuildIndex(g *Graph) *PropertyIndex {
	ix := &PropertyIndex{
		strings: make(map[Property]map[int64][]string, len(literalProps)),
		terms:   make(map[Property]map[int64][]rdf.Term, len(termProps)),
	}

	for prop, iri := range literalProps {
		m := make(map[int64][]string)
		for _, s := range g.Statements(iri) {
			text, _, kind, err := s.Object.Parts()
			if err != nil || kind != rdf.Literal {
				// Sanitize here rather than at every consumer.
				continue
			}
			m[s.Subject.UID] = append(m[s.Subject.UID], text)
		}
		ix.strings[prop] = m
	}

	for prop, iri := range termProps {
		m := make(map[int64][]rdf.Term)
		for _, s := range g.Statements(iri) {
			m[s.Subject.UID] = append(m[s.Subject.UID], s.Object)
		}
		ix.terms[prop] = m
	}

	return ix
}

// Strings returns the ordered literal values of prop for the subject with
// the given UID. The returned slice must not be modified.
func (ix *PropertyIndex) Strings(id int64, prop Property) []string {
	return ix.strings[prop][id]
}

// First returns the first literal value of prop for the subject, if any.
func (ix *PropertyIndex) First(id int64, prop Property) (string, bool) {
	vs := ix.strings[prop][id]
	if len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// Terms returns the ordered object terms of prop for the subject with the
// given UID. The returned slice must not be modified.
func (ix *PropertyIndex) Terms(id int64, prop Property) []rdf.Term {
	return ix.terms[prop][id]
}

// FirstTerm returns the first object term of prop for the subject, if any.
func (ix *PropertyIndex) FirstTerm(id int64, prop Property) (rdf.Term, bool) {
	ts := ix.terms[prop][id]
	if len(ts) == 0 {
		return rdf.Term{}, false
	}
	return ts[0], true
}

// Deprecated reports whether the subject carries an owl:deprecated "true"
// annotation.
func (ix *PropertyIndex) Deprecated(id int64) bool {
	for _, v := range ix.strings[PropDeprecated][id] {
		if v == "true" {
			return true
		}
	}
	return false
}

// HasType reports whether the subject has an rdf:type statement with the
// given class IRI as object.
func (ix *PropertyIndex) HasType(id int64, classIRI string) bool {
	for _, t := range ix.terms[PropType][id] {
		if t.Value == classIRI {
			return true
		}
	}
	return false
}

// ListMembers walks an RDF collection starting at the list head term and
// returns its members in order. Cycles and malformed lists terminate the
// walk rather than looping.
func (ix *PropertyIndex) ListMembers(head rdf.Term) []rdf.Term {
	var members []rdf.Term
	seen := make(map[int64]bool)
	cur := head
	for cur.Value != IRIListNil {
		if seen[cur.UID] {
			break
		}
		seen[cur.UID] = true
		first, ok := ix.FirstTerm(cur.UID, propListFirst)
		if !ok {
			break
		}
		members = append(members, first)
		rest, ok := ix.FirstTerm(cur.UID, propListRest)
		if !ok {
			break
		}
		cur = rest
	}
	return members
}
