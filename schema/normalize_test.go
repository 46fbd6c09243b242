package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeOntologyTerms(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		expected string
	}{
		{name: "namespace upper-cased", id: "go:0008150", expected: "GO:0008150"},
		{name: "already canonical", id: "GO:0008150", expected: "GO:0008150"},
		{name: "duplicated namespace collapsed", id: "GO:GO:0008150", expected: "GO:0008150"},
		{name: "surrounding whitespace trimmed", id: "  GO:0008150 ", expected: "GO:0008150"},
		{name: "bare id filler-normalized", id: "some term", expected: "some_term"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.id, true))
		})
	}
}

func TestNormalizeNonOntologyIdentifiers(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		expected string
	}{
		{name: "prefix stripped", id: "ENSEMBL:ENSG00000139618", expected: "ensg00000139618"},
		{name: "local id lower-cased", id: "UniProt:P12345", expected: "p12345"},
		{name: "internal spaces replaced", id: "REACTOME:signal transduction", expected: "signal_transduction"},
		{name: "no separator", id: "Plain Name", expected: "plain_name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.id, false))
		})
	}
}

func TestNormalizeIsFixedPoint(t *testing.T) {
	ids := []string{
		"GO:0008150",
		"go:go:0008150",
		"UniProt:P12345",
		"MONDO:disease of anatomical entity",
		"a:b:c",
		"bare id",
	}

	for _, id := range ids {
		for _, isOntology := range []bool{true, false} {
			once := Normalize(id, isOntology)
			twice := Normalize(once, isOntology)
			assert.Equal(t, once, twice, "id %q isOntology %v", id, isOntology)
		}
	}
}
