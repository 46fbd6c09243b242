package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rejuve-bio/biograph/errors"
	"github.com/rejuve-bio/biograph/metric"
	"github.com/rejuve-bio/biograph/ontology"
	"github.com/rejuve-bio/biograph/schema"
)

const routingSchema = `
gene:
  represented_as: node
  properties:
    chr: str

protein:
  represented_as: node

transcript:
  represented_as: node

ontology term:
  represented_as: node

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

subclass of:
  represented_as: edge
  input_label: subclass_of
  source: ontology term
  target: ontology term

cross reference:
  represented_as: edge
  input_label: cross_reference
  source: ontology term
  target: ontology term
`

func testRouter(t *testing.T, opts ...RouterOption) *Router {
	t.Helper()
	reg, err := schema.Parse([]byte(routingSchema))
	require.NoError(t, err)
	return NewRouter(reg, nil, opts...)
}

func TestRouteNodeDeclaredType(t *testing.T) {
	r := testRouter(t)

	rec, err := r.RouteNode("gene", "ENSG00000139618", map[string]any{
		"chr":  "13",
		"junk": "dropped",
	})
	require.NoError(t, err)
	assert.Equal(t, "gene", rec.Type)
	assert.Equal(t, "ensg00000139618", rec.Key)
	assert.Equal(t, map[string]any{"chr": "13"}, rec.Props)
}

func TestRouteNodeWildcardLabel(t *testing.T) {
	r := testRouter(t)

	rec, err := r.RouteNode("ontology term", "GO:0008150", nil)
	require.NoError(t, err)
	assert.Equal(t, "go", rec.Type)
	assert.Equal(t, "GO:0008150", rec.Key)
}

func TestRouteNodeUnknownLabelIsHardError(t *testing.T) {
	r := testRouter(t)

	_, err := r.RouteNode("metabolite", "CHEBI:15377", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnknownLabel)
	assert.True(t, errors.IsFatal(err))
}

func TestRouteOntologyNode(t *testing.T) {
	r := testRouter(t)

	rec := r.RouteOntologyNode("GO:0008150", map[string]any{"label": "biological_process"})
	assert.Equal(t, "go", rec.Type)
	assert.Equal(t, "GO:0008150", rec.Key)
	assert.Equal(t, "biological_process", rec.Props["label"])
}

func TestRouteEdgeCartesianExpansion(t *testing.T) {
	r := testRouter(t)

	records, err := r.RouteEdge(EdgeInput{
		Label:    "translates_to",
		SourceID: "P38398",
		TargetID: "ENSG00000012048",
	})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "protein", records[0].SourceType)
	assert.Equal(t, "transcript", records[1].SourceType)
	for _, rec := range records {
		assert.Equal(t, "translates_to", rec.Label)
		assert.Equal(t, "gene", rec.TargetType)
		assert.Equal(t, "p38398", rec.SourceKey)
		assert.Equal(t, "ensg00000012048", rec.TargetKey)
	}
}

func TestRouteEdgeResolvedSourceCollapsesExpansion(t *testing.T) {
	r := testRouter(t)

	records, err := r.RouteEdge(EdgeInput{
		Label:      "translates_to",
		SourceID:   "P38398",
		TargetID:   "ENSG00000012048",
		SourceType: "protein",
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "protein", records[0].SourceType)
	assert.Equal(t, "gene", records[0].TargetType)
}

func TestRouteEdgeWildcardTarget(t *testing.T) {
	r := testRouter(t)

	records, err := r.RouteEdge(EdgeInput{
		Label:    "gene_to_go",
		SourceID: "ENSG00000012048",
		TargetID: "GO:0008150",
		Props:    map[string]any{"evidence": "IDA", "junk": 1},
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "BIOLOGICAL_PROCESS", rec.Label)
	assert.Equal(t, "gene", rec.SourceType)
	assert.Equal(t, "go", rec.TargetType)
	assert.Equal(t, "GO:0008150", rec.TargetKey)
	assert.Equal(t, map[string]any{"evidence": "IDA"}, rec.Props)
}

func TestRouteEdgeTypeMismatchIsHardError(t *testing.T) {
	m := metric.NewMetrics()
	r := testRouter(t, WithMetrics(m))

	_, err := r.RouteEdge(EdgeInput{
		Label:      "translates_to",
		SourceID:   "GO:0008150",
		TargetID:   "ENSG00000012048",
		SourceType: "go",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrTypeMismatch)
	assert.True(t, errors.IsFatal(err))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.TypeMismatches))
}

func TestRouteEdgeUnknownLabelIsHardError(t *testing.T) {
	r := testRouter(t)

	_, err := r.RouteEdge(EdgeInput{Label: "interacts_with", SourceID: "a", TargetID: "b"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnknownLabel)
}

type fakeProducer struct {
	nodes []ontology.Node
	edges []ontology.Edge
}

func (f fakeProducer) Nodes() iter.Seq[ontology.Node] {
	return func(yield func(ontology.Node) bool) {
		for _, n := range f.nodes {
			if !yield(n) {
				return
			}
		}
	}
}

func (f fakeProducer) Edges() iter.Seq[ontology.Edge] {
	return func(yield func(ontology.Edge) bool) {
		for _, e := range f.edges {
			if !yield(e) {
				return
			}
		}
	}
}

func termProducer() fakeProducer {
	return fakeProducer{
		nodes: []ontology.Node{
			{ID: "GO:0008150", Type: "GO", Props: map[string]any{"label": "biological_process"}},
			{ID: "GO:0009987", Type: "GO", Props: map[string]any{"label": "cellular process"}},
		},
		edges: []ontology.Edge{
			{SourceID: "GO:0009987", TargetID: "GO:0008150", Label: ontology.LabelSubClassOf},
			{SourceID: "GO:0008150", TargetID: "Wikipedia:Biological_process", Label: ontology.LabelCrossReference},
		},
	}
}

func TestRunDrainsProducerIntoSink(t *testing.T) {
	m := metric.NewMetrics()
	r := testRouter(t, WithMetrics(m))

	var buf bytes.Buffer
	stats, err := r.Run(context.Background(), RunConfig{Source: "go"}, termProducer(), NewJSONLSink(&buf))
	require.NoError(t, err)
	assert.Equal(t, RunStats{Nodes: 2, Edges: 2}, stats)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.NodesProjected.WithLabelValues("go")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.EdgesProjected.WithLabelValues("go")))

	var kinds []string
	dec := json.NewDecoder(&buf)
	for dec.More() {
		var rec jsonRecord
		require.NoError(t, dec.Decode(&rec))
		kinds = append(kinds, rec.Kind)
	}
	assert.Equal(t, []string{"node", "node", "edge", "edge"}, kinds)
}

func TestRunAbortsOnSinkError(t *testing.T) {
	r := testRouter(t)

	_, err := r.Run(context.Background(), RunConfig{Source: "go"}, termProducer(), failingSink{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink full")
}

func TestRunHonorsContextCancellation(t *testing.T) {
	r := testRouter(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx, RunConfig{Source: "go"}, termProducer(), DiscardSink{})
	assert.ErrorIs(t, err, context.Canceled)
}

type failingSink struct{}

func (failingSink) WriteNode(context.Context, NodeRecord) error {
	return fmt.Errorf("sink full")
}

func (failingSink) WriteEdge(context.Context, EdgeRecord) error {
	return fmt.Errorf("sink full")
}
