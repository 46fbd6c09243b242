package schema

import (
	"strings"
)

// filler replaces internal whitespace in normalized local identifiers.
const filler = "_"

// Normalize canonicalizes an identifier into its backend-agnostic form.
// Every output backend must apply this one rule before any physical write so
// that the same logical entity always normalizes to the same physical key
// regardless of which backend emitted it first.
//
// For a "namespace:localId" identifier the namespace is upper-cased. When
// isOntologyTerm is true the namespace is preserved as a prefix on the local
// id, collapsing an already-duplicated namespace token ("GO:GO:0008150"
// becomes "GO:0008150"); when false the namespace is discarded and only the
// lower-cased, filler-normalized local id is kept. Identifiers without a
// namespace separator are filler-normalized as bare local ids.
//
// Normalize is a fixed point: applying it to its own output returns the
// same string.
func Normalize(identifier string, isOntologyTerm bool) string {
	id := strings.TrimSpace(identifier)

	i := strings.IndexByte(id, ':')
	if i <= 0 {
		return normalizeLocal(id)
	}

	namespace := strings.ToUpper(id[:i])
	local := id[i+1:]

	if !isOntologyTerm {
		return normalizeLocal(local)
	}

	// Collapse a duplicated namespace token ("GO:GO:0008150").
	for strings.HasPrefix(strings.ToUpper(local), namespace+":") {
		local = local[len(namespace)+1:]
	}
	return namespace + ":" + strings.Join(strings.Fields(local), filler)
}

// normalizeLocal lower-cases a bare local id and replaces internal
// whitespace runs and stray separators with a single filler character, so
// that re-normalizing the result is a no-op.
func normalizeLocal(local string) string {
	local = strings.Join(strings.Fields(strings.ToLower(local)), filler)
	return strings.ReplaceAll(local, ":", filler)
}
