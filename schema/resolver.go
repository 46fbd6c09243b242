package schema

import (
	"fmt"
	"strings"

	"github.com/rejuve-bio/biograph/errors"
)

// TypePair is one physically-typed (source type, target type) combination
// for an emitted edge.
type TypePair struct {
	Source string
	Target string
}

// ResolveWildcard resolves a declared type against a concrete identifier.
// The "ontology term" placeholder resolves to the identifier's namespace
// prefix (the substring before the first separator), lower-cased; any other
// declared type is returned unchanged.
func ResolveWildcard(declared, identifier string) string {
	if declared != Wildcard {
		return declared
	}
	if i := strings.IndexByte(identifier, ':'); i > 0 {
		return strings.ToLower(identifier[:i])
	}
	return strings.ToLower(identifier)
}

// Expand expands one incoming edge into the Cartesian product of its
// resolved source and target type sets. Downstream consumers route strictly
// by a single concrete (source type, target type) pair, so an edge type
// declaring several legal types on either end becomes several physical
// edges carrying the same properties.
func Expand(et EdgeType, sourceID, targetID string) []TypePair {
	pairs := make([]TypePair, 0, len(et.Sources)*len(et.Targets))
	for _, s := range et.Sources {
		src := ResolveWildcard(s, sourceID)
		for _, t := range et.Targets {
			pairs = append(pairs, TypePair{Source: src, Target: ResolveWildcard(t, targetID)})
		}
	}
	return pairs
}

// ValidateSourceType checks a caller-supplied concrete source type against
// the edge's declared legal set. A type outside the set is a hard error: it
// indicates a data-source/schema mismatch that needs fixing upstream, not
// silent dropping.
func ValidateSourceType(et EdgeType, concrete string) error {
	return validateMember(et, concrete, et.Sources, "ValidateSourceType", "source")
}

// ValidateTargetType checks a caller-supplied concrete target type against
// the edge's declared legal set.
func ValidateTargetType(et EdgeType, concrete string) error {
	return validateMember(et, concrete, et.Targets, "ValidateTargetType", "target")
}

func validateMember(et EdgeType, concrete string, declared []string, op, end string) error {
	for _, d := range declared {
		if d == concrete || d == Wildcard {
			return nil
		}
	}
	return errors.WrapFatal(errors.ErrTypeMismatch, "schema", op,
		fmt.Sprintf("edge %q: %s type %q not in declared legal set %s", et.InputLabel, end, concrete, legalSet(declared)))
}
