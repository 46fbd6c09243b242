package ontology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const annotatedTerm = `<http://purl.obolibrary.org/obo/GO_0009987> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://www.w3.org/2002/07/owl#Class> .
<http://purl.obolibrary.org/obo/GO_0009987> <http://www.w3.org/2000/01/rdf-schema#label> "cellular process" .
<http://purl.obolibrary.org/obo/GO_0009987> <http://www.geneontology.org/formats/oboInOwl#hasExactSynonym> "cell process" .
<http://purl.obolibrary.org/obo/GO_0009987> <http://www.geneontology.org/formats/oboInOwl#hasExactSynonym> "cellular physiological process" .
<http://purl.obolibrary.org/obo/GO_0009987> <http://www.geneontology.org/formats/oboInOwl#hasRelatedSynonym> "cell growth or maintenance" .
<http://purl.obolibrary.org/obo/GO_0009987> <http://purl.obolibrary.org/obo/IAO_0000115> "Any process that is carried out at the cellular level." .
<http://purl.obolibrary.org/obo/GO_0009987> <http://www.geneontology.org/formats/oboInOwl#hasOBONamespace> "biological_process" .
<http://purl.obolibrary.org/obo/GO_0009987> <http://www.geneontology.org/formats/oboInOwl#hasAlternativeId> "GO:0050875" .
<http://purl.obolibrary.org/obo/GO_0000001> <http://www.w3.org/2002/07/owl#deprecated> "true"^^<http://www.w3.org/2001/XMLSchema#boolean> .
`

func TestIndexMemoizesAnnotations(t *testing.T) {
	g := mustGraph(t, annotatedTerm)
	ix := BuildIndex(g)

	term, ok := g.TermFor("<http://purl.obolibrary.org/obo/GO_0009987>")
	require.True(t, ok)

	label, ok := ix.First(term.UID, PropLabel)
	require.True(t, ok)
	assert.Equal(t, "cellular process", label)

	assert.Equal(t, []string{"cell process", "cellular physiological process"},
		ix.Strings(term.UID, PropExactSynonym))
	assert.Equal(t, []string{"cell growth or maintenance"},
		ix.Strings(term.UID, PropRelatedSynonym))
	assert.Equal(t, []string{"GO:0050875"}, ix.Strings(term.UID, PropAltID))

	ns, ok := ix.First(term.UID, PropNamespace)
	require.True(t, ok)
	assert.Equal(t, "biological_process", ns)

	assert.True(t, ix.HasType(term.UID, IRIOWLClass))
	assert.False(t, ix.HasType(term.UID, IRIOWLRestriction))
	assert.False(t, ix.Deprecated(term.UID))
}

func TestIndexDeprecatedFlag(t *testing.T) {
	g := mustGraph(t, annotatedTerm)
	ix := BuildIndex(g)

	term, ok := g.TermFor("<http://purl.obolibrary.org/obo/GO_0000001>")
	require.True(t, ok)
	assert.True(t, ix.Deprecated(term.UID))
}

func TestIndexDropsNonLiteralAnnotationValues(t *testing.T) {
	// A label whose object is an IRI is not a usable literal and must be
	// sanitized away at build time.
	g := mustGraph(t, `<http://purl.obolibrary.org/obo/GO_0000002> <http://www.w3.org/2000/01/rdf-schema#label> <http://example.org/not-a-literal> .
`)
	ix := BuildIndex(g)

	term, ok := g.TermFor("<http://purl.obolibrary.org/obo/GO_0000002>")
	require.True(t, ok)
	assert.Empty(t, ix.Strings(term.UID, PropLabel))
}

func TestIndexMissingSubject(t *testing.T) {
	g := mustGraph(t, annotatedTerm)
	ix := BuildIndex(g)

	_, ok := ix.First(999999, PropLabel)
	assert.False(t, ok)
	assert.Empty(t, ix.Strings(999999, PropExactSynonym))
}

func TestListMembers(t *testing.T) {
	g := mustGraph(t, `_:l1 <http://www.w3.org/1999/02/22-rdf-syntax-ns#first> <http://purl.obolibrary.org/obo/GO_0000003> .
_:l1 <http://www.w3.org/1999/02/22-rdf-syntax-ns#rest> _:l2 .
_:l2 <http://www.w3.org/1999/02/22-rdf-syntax-ns#first> <http://purl.obolibrary.org/obo/GO_0000004> .
_:l2 <http://www.w3.org/1999/02/22-rdf-syntax-ns#rest> <http://www.w3.org/1999/02/22-rdf-syntax-ns#nil> .
`)
	ix := BuildIndex(g)

	head, ok := g.TermFor("_:l1")
	require.True(t, ok)

	members := ix.ListMembers(head)
	require.Len(t, members, 2)
	assert.Equal(t, "<http://purl.obolibrary.org/obo/GO_0000003>", members[0].Value)
	assert.Equal(t, "<http://purl.obolibrary.org/obo/GO_0000004>", members[1].Value)
}

func TestListMembersCycleSafe(t *testing.T) {
	g := mustGraph(t, `_:c1 <http://www.w3.org/1999/02/22-rdf-syntax-ns#first> <http://purl.obolibrary.org/obo/GO_0000005> .
_:c1 <http://www.w3.org/1999/02/22-rdf-syntax-ns#rest> _:c1 .
`)
	ix := BuildIndex(g)

	head, ok := g.TermFor("_:c1")
	require.True(t, ok)

	members := ix.ListMembers(head)
	assert.Len(t, members, 1)
}
