package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rejuve-bio/biograph/errors"
)

const testSchema = `
named thing:
  represented_as: node
  properties:
    source: str
    version: str

gene:
  represented_as: node
  is_a: named thing
  inherit_properties: true
  input_label: gene
  properties:
    chr: str
    start: int
    end: int

protein:
  represented_as: node
  is_a: gene
  inherit_properties: true
  properties:
    accessions: str[]

transcript:
  represented_as: node

go:
  represented_as: node
  is_ontology_term: true
  properties:
    label: str
    synonyms: str[]

gene to go association:
  represented_as: edge
  input_label: gene_to_go
  output_label: BIOLOGICAL_PROCESS
  source: gene
  target: ontology term
  properties:
    evidence: str

translates to:
  represented_as: edge
  input_label: translates_to
  source:
    - protein
    - transcript
  target: gene
`

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := Parse([]byte(testSchema))
	require.NoError(t, err)
	return r
}

func TestParseNodeTypes(t *testing.T) {
	r := testRegistry(t)

	nt, err := r.NodeType("gene")
	require.NoError(t, err)
	assert.Equal(t, "gene", nt.InputLabel)
	assert.False(t, nt.IsOntologyTerm)

	onto, err := r.NodeType("go")
	require.NoError(t, err)
	assert.True(t, onto.IsOntologyTerm)
}

func TestParseEdgeTypes(t *testing.T) {
	r := testRegistry(t)

	et, err := r.EdgeType("gene_to_go")
	require.NoError(t, err)
	assert.Equal(t, "gene to go association", et.Name)
	assert.Equal(t, "BIOLOGICAL_PROCESS", et.OutputLabel)
	assert.Equal(t, []string{"gene"}, et.Sources)
	assert.Equal(t, []string{Wildcard}, et.Targets)

	multi, err := r.EdgeType("translates_to")
	require.NoError(t, err)
	assert.Equal(t, []string{"protein", "transcript"}, multi.Sources)
	// output_label defaults to the input label.
	assert.Equal(t, "translates_to", multi.OutputLabel)
}

func TestUnknownLabelIsHardError(t *testing.T) {
	r := testRegistry(t)

	_, err := r.NodeType("undeclared")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnknownLabel))
	assert.True(t, errors.IsFatal(err))

	_, err = r.EdgeType("undeclared_edge")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnknownLabel))
}

func TestNodeTypeLookupByInputLabel(t *testing.T) {
	const aliased = `
sequence variant:
  represented_as: node
  input_label: known_variant
`
	r, err := Parse([]byte(aliased))
	require.NoError(t, err)

	byName, err := r.NodeType("sequence variant")
	require.NoError(t, err)
	byLabel, err := r.NodeType("known_variant")
	require.NoError(t, err)
	assert.Equal(t, byName, byLabel)
}

func TestPropertyInheritance(t *testing.T) {
	r := testRegistry(t)

	nt, err := r.NodeType("gene")
	require.NoError(t, err)
	// Own properties plus those inherited from "named thing".
	assert.Equal(t, "str", nt.Properties["chr"])
	assert.Equal(t, "str", nt.Properties["source"])
	assert.Equal(t, "str", nt.Properties["version"])

	// Transitive inheritance through the parent chain.
	pt, err := r.NodeType("protein")
	require.NoError(t, err)
	assert.Equal(t, "str[]", pt.Properties["accessions"])
	assert.Equal(t, "str", pt.Properties["chr"])
	assert.Equal(t, "str", pt.Properties["source"])
}

func TestInheritanceCycleIsSafe(t *testing.T) {
	const cyclic = `
a:
  represented_as: node
  is_a: b
  inherit_properties: true
  properties:
    pa: str
b:
  represented_as: node
  is_a: a
  inherit_properties: true
  properties:
    pb: str
`
	r, err := Parse([]byte(cyclic))
	require.NoError(t, err)

	nt, err := r.NodeType("a")
	require.NoError(t, err)
	assert.Equal(t, "str", nt.Properties["pa"])
	assert.Equal(t, "str", nt.Properties["pb"])
}

func TestEdgeReferencingUndeclaredTypeRejected(t *testing.T) {
	const bad = `
dangling edge:
  represented_as: edge
  source: ghost
  target: ghost
`
	_, err := Parse([]byte(bad))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidSchema))
}

func TestEdgeWithoutEndpointsRejected(t *testing.T) {
	const bad = `
floating edge:
  represented_as: edge
`
	_, err := Parse([]byte(bad))
	assert.Error(t, err)
}

func TestInvalidRepresentedAsRejected(t *testing.T) {
	const bad = `
thing:
  represented_as: hyperedge
`
	_, err := Parse([]byte(bad))
	assert.Error(t, err)
}

func TestPropertiesAsList(t *testing.T) {
	const listProps = `
pathway:
  represented_as: node
  properties:
    - name
    - source
`
	r, err := Parse([]byte(listProps))
	require.NoError(t, err)

	nt, err := r.NodeType("pathway")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"name": "str", "source": "str"}, nt.Properties)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testSchema), 0o644))

	r, err := Load(path)
	require.NoError(t, err)
	assert.Contains(t, r.NodeLabels(), "gene")
	assert.Contains(t, r.EdgeLabels(), "translates_to")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
