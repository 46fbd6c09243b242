package ontology

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/graph/formats/rdf"
	"gonum.org/v1/gonum/graph/set/uid"

	"github.com/rejuve-bio/biograph/errors"
)

// Graph holds one loaded ontology as RDF statements indexed by predicate.
//
// Statements are kept in insertion order per predicate so that repeated
// projection passes over an unchanged graph yield identical streams. The
// graph is append-only: it is populated once during load and read many
// times afterwards.
type Graph struct {
	preds   map[string][]*rdf.Statement
	bySubj  map[int64][]*rdf.Statement
	termIDs map[string]int64
	terms   map[int64]rdf.Term
	ids     *uid.Set
	n       int
}

// NewGraph returns a new empty Graph.
func NewGraph() *Graph {
	return &Graph{
		preds:   make(map[string][]*rdf.Statement),
		bySubj:  make(map[int64][]*rdf.Statement),
		termIDs: make(map[string]int64),
		terms:   make(map[int64]rdf.Term),
		ids:     uid.NewSet(),
	}
}

// AddStatement adds s to the graph. If the UID fields of the terms in s are
// zero they are set to values consistent with the rest of the graph on
// return, mutating the parameter; otherwise the UIDs must match terms that
// already exist in the graph. Statements must not be altered while held by
// the graph.
func (g *Graph) AddStatement(s *rdf.Statement) error {
	_, _, kind, err := s.Predicate.Parts()
	if err != nil {
		return errors.WrapInvalid(err, "graph", "AddStatement", "extract predicate")
	}
	if kind != rdf.IRI {
		return errors.WrapInvalid(errors.ErrMalformedTriple, "graph", "AddStatement",
			fmt.Sprintf("predicate is not an IRI: %s", s.Predicate.Value))
	}

	_, _, kind, err = s.Subject.Parts()
	if err != nil {
		return errors.WrapInvalid(err, "graph", "AddStatement", "extract subject")
	}
	switch kind {
	case rdf.IRI, rdf.Blank:
	default:
		return errors.WrapInvalid(errors.ErrMalformedTriple, "graph", "AddStatement",
			fmt.Sprintf("subject is not an IRI or blank node: %s", s.Subject.Value))
	}

	_, _, kind, err = s.Object.Parts()
	if err != nil {
		return errors.WrapInvalid(err, "graph", "AddStatement", "extract object")
	}
	if kind == rdf.Invalid {
		return errors.WrapInvalid(errors.ErrMalformedTriple, "graph", "AddStatement",
			fmt.Sprintf("object is not a valid term: %s", s.Object.Value))
	}

	if err := g.addTerm(&s.Subject); err != nil {
		return err
	}
	if err := g.addTerm(&s.Predicate); err != nil {
		return err
	}
	if err := g.addTerm(&s.Object); err != nil {
		return err
	}

	g.preds[s.Predicate.Value] = append(g.preds[s.Predicate.Value], s)
	g.bySubj[s.Subject.UID] = append(g.bySubj[s.Subject.UID], s)
	g.n++
	return nil
}

// addTerm interns t in the graph, allocating a UID if it has none.
func (g *Graph) addTerm(t *rdf.Term) error {
	if t.UID == 0 {
		id, ok := g.termIDs[t.Value]
		if !ok {
			id = g.ids.NewID()
			g.ids.Use(id)
			g.termIDs[t.Value] = id
			g.terms[id] = rdf.Term{Value: t.Value, UID: id}
		}
		t.UID = id
		return nil
	}

	id, ok := g.termIDs[t.Value]
	if !ok {
		g.ids.Use(t.UID)
		g.termIDs[t.Value] = t.UID
		g.terms[t.UID] = *t
		return nil
	}
	if id != t.UID {
		return errors.WrapInvalid(errors.ErrInvalidData, "graph", "addTerm",
			fmt.Sprintf("term ID collision: term:%s new ID:%d old ID:%d", t.Value, t.UID, id))
	}
	return nil
}

// Statements returns the statements with the given predicate IRI in
// insertion order. The returned slice must not be modified.
func (g *Graph) Statements(predicate string) []*rdf.Statement {
	return g.preds[predicate]
}

// FromSubject returns the statements whose subject has the given UID in
// insertion order. The returned slice must not be modified.
func (g *Graph) FromSubject(id int64) []*rdf.Statement {
	return g.bySubj[id]
}

// TermFor returns the interned rdf.Term for the given text. The text must be
// an exact match for the rdf.Term's Value field.
func (g *Graph) TermFor(text string) (term rdf.Term, ok bool) {
	id, ok := g.termIDs[text]
	if !ok {
		return rdf.Term{}, false
	}
	return g.terms[id], true
}

// Len returns the number of statements in the graph.
func (g *Graph) Len() int { return g.n }

// Decode reads N-Triples or N-Quads statements from r into a new Graph.
// Statement order is preserved.
func Decode(r io.Reader) (*Graph, error) {
	g := NewGraph()
	dec := rdf.NewDecoder(r)
	for {
		s, err := dec.Unmarshal()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.Wrap(err, "graph", "Decode", "unmarshal statement")
		}
		if err := g.AddStatement(s); err != nil {
			return nil, err
		}
	}
	return g, nil
}
