package ontology

import (
	"gonum.org/v1/gonum/graph/formats/rdf"
)

// ResolutionKind tags the outcome of resolving a restriction block.
type ResolutionKind int

const (
	// Unresolved means the restriction uses a property outside the
	// allow-list or is structurally incomplete. Callers must skip the
	// triple, never emit a partially-resolved edge.
	Unresolved ResolutionKind = iota
	// ResolvedDirect means the restriction itself carried an allow-listed
	// property and a named target.
	ResolvedDirect
	// ResolvedViaIntersection means the resolvable restriction was found
	// by unwrapping an intersection-of compound expression.
	ResolvedViaIntersection
)

// Resolution is the outcome of rewriting an anonymous restriction node into
// a direct (predicate, target) pair.
type Resolution struct {
	Kind      ResolutionKind
	Predicate string
	Target    rdf.Term
}

// maxUnwrapDepth bounds recursive intersection unwrapping. Real ontologies
// nest one or two levels deep.
const maxUnwrapDepth = 8

// RestrictionResolver rewrites anonymous restriction nodes
// (subject →subClassOf→ [onProperty P, someValuesFrom O]) into direct
// (subject, P, O) triples for the fixed allow-list of permitted properties.
type RestrictionResolver struct {
	ix      *PropertyIndex
	allowed map[string]string
}

// NewRestrictionResolver returns a resolver over ix using the default
// property allow-list.
func NewRestrictionResolver(ix *PropertyIndex) *RestrictionResolver {
	return &RestrictionResolver{ix: ix, allowed: restrictionProperties}
}

// IsRestriction reports whether t is typed as an owl:Restriction block.
func (r *RestrictionResolver) IsRestriction(t rdf.Term) bool {
	return r.ix.HasType(t.UID, IRIOWLRestriction)
}

// Resolve rewrites the restriction block t into a (predicate, target) pair.
// The existential target (someValuesFrom) is preferred; the universal
// target (allValuesFrom) is the fallback. Restrictions nested inside
// intersection-of expressions are unwrapped recursively until a resolvable
// restriction is found or none remains.
func (r *RestrictionResolver) Resolve(t rdf.Term) Resolution {
	return r.resolve(t, maxUnwrapDepth, false)
}

func (r *RestrictionResolver) resolve(t rdf.Term, depth int, viaIntersection bool) Resolution {
	if depth == 0 {
		return Resolution{Kind: Unresolved}
	}

	if r.IsRestriction(t) {
		if res := r.resolveDirect(t, depth, viaIntersection); res.Kind != Unresolved {
			return res
		}
	}

	// Not resolvable directly: unwrap intersection members, if any.
	if head, ok := r.ix.FirstTerm(t.UID, PropIntersectionOf); ok {
		for _, member := range r.ix.ListMembers(head) {
			if res := r.resolve(member, depth-1, true); res.Kind != Unresolved {
				res.Kind = ResolvedViaIntersection
				return res
			}
		}
	}

	return Resolution{Kind: Unresolved}
}

func (r *RestrictionResolver) resolveDirect(t rdf.Term, depth int, viaIntersection bool) Resolution {
	prop, ok := r.ix.FirstTerm(t.UID, PropOnProperty)
	if !ok {
		return Resolution{Kind: Unresolved}
	}
	label, ok := r.allowed[IRIText(prop)]
	if !ok {
		return Resolution{Kind: Unresolved}
	}

	target, ok := r.ix.FirstTerm(t.UID, PropSomeValuesFrom)
	if !ok {
		target, ok = r.ix.FirstTerm(t.UID, PropAllValuesFrom)
	}
	if !ok {
		return Resolution{Kind: Unresolved}
	}

	_, _, kind, err := target.Parts()
	if err != nil {
		return Resolution{Kind: Unresolved}
	}
	switch kind {
	case rdf.IRI:
		res := Resolution{Kind: ResolvedDirect, Predicate: label, Target: target}
		if viaIntersection {
			res.Kind = ResolvedViaIntersection
		}
		return res
	case rdf.Blank:
		// The target is itself a compound expression; unwrap it.
		if res := r.resolve(target, depth-1, true); res.Kind != Unresolved {
			// Keep the outer restriction's predicate: the nested
			// walk only locates the named target.
			return Resolution{Kind: ResolvedViaIntersection, Predicate: label, Target: res.Target}
		}
	}
	return Resolution{Kind: Unresolved}
}
