// Package ontology loads OWL-style ontology graphs and projects them into a
// clean stream of typed nodes and binary edges.
//
// The loaded graph is held as RDF statements (gonum graph/formats/rdf). A
// single-pass PropertyIndex memoizes the fixed set of annotation predicates
// used during projection, a RestrictionResolver rewrites anonymous
// existential/universal restriction blocks into direct triples, and a
// Projector turns the indexed graph into deduplicated node and edge streams.
package ontology

import (
	"strings"

	"gonum.org/v1/gonum/graph/formats/rdf"
)

// Full IRIs for the predicates and classes this package consumes. Values
// include the angle brackets so they compare directly against
// rdf.Term.Value, following the convention of N-Triples decoders.
const (
	IRIType       = "<http://www.w3.org/1999/02/22-rdf-syntax-ns#type>"
	IRIListFirst  = "<http://www.w3.org/1999/02/22-rdf-syntax-ns#first>"
	IRIListRest   = "<http://www.w3.org/1999/02/22-rdf-syntax-ns#rest>"
	IRIListNil    = "<http://www.w3.org/1999/02/22-rdf-syntax-ns#nil>"
	IRILabel      = "<http://www.w3.org/2000/01/rdf-schema#label>"
	IRISubClassOf = "<http://www.w3.org/2000/01/rdf-schema#subClassOf>"

	IRIOWLClass          = "<http://www.w3.org/2002/07/owl#Class>"
	IRIOWLRestriction    = "<http://www.w3.org/2002/07/owl#Restriction>"
	IRIOWLOnProperty     = "<http://www.w3.org/2002/07/owl#onProperty>"
	IRIOWLSomeValuesFrom = "<http://www.w3.org/2002/07/owl#someValuesFrom>"
	IRIOWLAllValuesFrom  = "<http://www.w3.org/2002/07/owl#allValuesFrom>"
	IRIOWLIntersectionOf = "<http://www.w3.org/2002/07/owl#intersectionOf>"
	IRIOWLDeprecated     = "<http://www.w3.org/2002/07/owl#deprecated>"
	IRIOWLVersionInfo    = "<http://www.w3.org/2002/07/owl#versionInfo>"
	IRIOWLVersionIRI     = "<http://www.w3.org/2002/07/owl#versionIRI>"

	IRIOBONamespace   = "<http://www.geneontology.org/formats/oboInOwl#hasOBONamespace>"
	IRIExactSynonym   = "<http://www.geneontology.org/formats/oboInOwl#hasExactSynonym>"
	IRIRelatedSynonym = "<http://www.geneontology.org/formats/oboInOwl#hasRelatedSynonym>"
	IRIDbXref         = "<http://www.geneontology.org/formats/oboInOwl#hasDbXref>"
	IRIAlternativeID  = "<http://www.geneontology.org/formats/oboInOwl#hasAlternativeId>"

	// IAO_0000115 is the OBO "definition" annotation property.
	IRIDefinition = "<http://purl.obolibrary.org/obo/IAO_0000115>"
)

// Restriction properties permitted by the resolver, mapped to the edge label
// they emit. Any other onProperty value yields an unresolved restriction.
var restrictionProperties = map[string]string{
	"http://purl.obolibrary.org/obo/BFO_0000050": "part_of",
	"http://purl.obolibrary.org/obo/BFO_0000066": "occurs_in",
	"http://purl.obolibrary.org/obo/RO_0002215":  "capable_of",
}

// maxNumericLocalID is the longest all-digit local identifier accepted as a
// term key. Rare ontologies use bare numeric term IDs; longer numeric
// strings are almost always not valid term identifiers.
//
// TODO: revisit this threshold when onboarding ontologies with unusual
// identifier shapes; it is tuned to the currently supported sources.
const maxNumericLocalID = 10

// IRIText returns the IRI text of t without angle brackets. It returns the
// raw value for terms that are not valid IRIs.
func IRIText(t rdf.Term) string {
	text, _, kind, err := t.Parts()
	if err != nil || kind != rdf.IRI {
		return strings.Trim(t.Value, "<>")
	}
	return text
}

// TermKey derives the namespace-qualified key for an ontology term from its
// IRI: the last path or fragment segment with the first internal underscore
// normalized to a colon. "http://purl.obolibrary.org/obo/GO_0008150"
// becomes "GO:0008150".
func TermKey(t rdf.Term) string {
	text := IRIText(t)
	if i := strings.LastIndexByte(text, '#'); i >= 0 {
		text = text[i+1:]
	}
	if i := strings.LastIndexByte(text, '/'); i >= 0 {
		text = text[i+1:]
	}
	return strings.Replace(text, "_", ":", 1)
}

// ValidTermKey reports whether key is acceptable as a projected term
// identifier. Keys whose local part is purely numeric are rejected once they
// exceed maxNumericLocalID characters.
func ValidTermKey(key string) bool {
	if key == "" {
		return false
	}
	local := key
	if i := strings.IndexByte(key, ':'); i >= 0 {
		local = key[i+1:]
	}
	if local == "" {
		return false
	}
	numeric := true
	for _, r := range local {
		if r < '0' || r > '9' {
			numeric = false
			break
		}
	}
	if numeric && len(local) > maxNumericLocalID {
		return false
	}
	return true
}

// KeyPrefix returns the namespace prefix of a "namespace:localId" key,
// lower-cased, or the empty string if the key carries no namespace.
func KeyPrefix(key string) string {
	i := strings.IndexByte(key, ':')
	if i <= 0 {
		return ""
	}
	return strings.ToLower(key[:i])
}
