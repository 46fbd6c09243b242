package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rejuve-bio/biograph/errors"
)

func TestResolveWildcard(t *testing.T) {
	tests := []struct {
		name       string
		declared   string
		identifier string
		expected   string
	}{
		{name: "wildcard resolves from prefix", declared: Wildcard, identifier: "GO:0008150", expected: "go"},
		{name: "wildcard lower-cases prefix", declared: Wildcard, identifier: "NCBITaxon:9606", expected: "ncbitaxon"},
		{name: "wildcard without separator", declared: Wildcard, identifier: "BareID", expected: "bareid"},
		{name: "concrete type passes through", declared: "gene", identifier: "ENSG00000139618", expected: "gene"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ResolveWildcard(tt.declared, tt.identifier))
		})
	}
}

func TestExpandCartesianProduct(t *testing.T) {
	et := EdgeType{
		InputLabel: "translates_to",
		Sources:    []string{"protein", "transcript"},
		Targets:    []string{"gene"},
	}

	pairs := Expand(et, "P12345", "ENSG00000139618")
	require.Len(t, pairs, 2)
	assert.Equal(t, TypePair{Source: "protein", Target: "gene"}, pairs[0])
	assert.Equal(t, TypePair{Source: "transcript", Target: "gene"}, pairs[1])
}

func TestExpandResolvesWildcards(t *testing.T) {
	et := EdgeType{
		InputLabel: "gene_to_go",
		Sources:    []string{"gene"},
		Targets:    []string{Wildcard},
	}

	pairs := Expand(et, "ENSG00000139618", "GO:0008150")
	require.Len(t, pairs, 1)
	assert.Equal(t, TypePair{Source: "gene", Target: "go"}, pairs[0])
}

func TestExpandSizeIsProductOfDeclaredSets(t *testing.T) {
	et := EdgeType{
		InputLabel: "interacts_with",
		Sources:    []string{"protein", "transcript", Wildcard},
		Targets:    []string{"gene", "protein"},
	}

	pairs := Expand(et, "GO:0008150", "x")
	assert.Len(t, pairs, 6)
}

func TestValidateSourceType(t *testing.T) {
	et := EdgeType{
		InputLabel: "translates_to",
		Sources:    []string{"protein", "transcript"},
		Targets:    []string{"gene"},
	}

	assert.NoError(t, ValidateSourceType(et, "protein"))
	assert.NoError(t, ValidateSourceType(et, "transcript"))

	err := ValidateSourceType(et, "pathway")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTypeMismatch))
	assert.True(t, errors.IsFatal(err))
	// The message names the offending label and the declared legal set.
	assert.Contains(t, err.Error(), "translates_to")
	assert.Contains(t, err.Error(), "pathway")
	assert.Contains(t, err.Error(), "protein, transcript")
}

func TestValidateAcceptsAnyTypeForWildcardEnd(t *testing.T) {
	et := EdgeType{
		InputLabel: "gene_to_go",
		Sources:    []string{"gene"},
		Targets:    []string{Wildcard},
	}

	assert.NoError(t, ValidateTargetType(et, "go"))
	assert.NoError(t, ValidateTargetType(et, "cl"))

	err := ValidateSourceType(et, "go")
	assert.Error(t, err)
}
