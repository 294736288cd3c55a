package db

import (
	"strings"
	"testing"
)

func mustBuild(t *testing.T, b *IndexBuilder) *IndexDefinition {
	t.Helper()
	def, err := b.Build()
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}
	return def
}

func TestIndexBuilder_CorpusSchema(t *testing.T) {
	idx := mustBuild(t, NewIndex("rag_collection:idx").
		Prefix("rag_collection:doc:").
		Numeric("position").
		VectorFlat("vector", 1536, DistanceCosine))

	if idx.Name != "rag_collection:idx" {
		t.Errorf("name = %q, want rag_collection:idx", idx.Name)
	}
	if len(idx.Fields) != 2 {
		t.Fatalf("fields count = %d, want 2", len(idx.Fields))
	}
	if idx.Fields[0].Type != IndexFieldNumeric {
		t.Errorf("field[0] = %+v, want position NUMERIC", idx.Fields[0])
	}
	f := idx.Fields[1]
	if f.VectorAlgo != VectorFlat || f.VectorDim != 1536 || f.VectorDistance != DistanceCosine {
		t.Errorf("field[1] = %+v, want FLAT 1536 COSINE", f)
	}
}

func TestIndexBuilder_VectorHNSW(t *testing.T) {
	idx := mustBuild(t, NewIndex("hnsw-idx").
		Prefix("doc:").
		VectorHNSW("vec", 768, DistanceL2, 32, 400))

	f := idx.Fields[0]
	if f.VectorAlgo != VectorHNSW {
		t.Errorf("algo = %q, want HNSW", f.VectorAlgo)
	}
	if f.VectorDim != 768 {
		t.Errorf("dim = %d, want 768", f.VectorDim)
	}
	if f.VectorM != 32 {
		t.Errorf("M = %d, want 32", f.VectorM)
	}
	if f.VectorEFConstruct != 400 {
		t.Errorf("EF = %d, want 400", f.VectorEFConstruct)
	}
}

func TestIndexBuilder_MultiplePrefixes(t *testing.T) {
	idx := mustBuild(t, NewIndex("multi-idx").Prefix("a:", "b:", "c:").Numeric("x"))

	if len(idx.Prefixes) != 3 {
		t.Errorf("prefix count = %d, want 3", len(idx.Prefixes))
	}
}

func TestIndexBuilder_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		builder *IndexBuilder
		wantErr string
	}{
		{"empty name", NewIndex("").Numeric("x"), "index name is required"},
		{"no fields", NewIndex("idx"), "at least one field"},
		{"vector without dim", NewIndex("idx").VectorFlat("v", 0, DistanceCosine), "positive DIM"},
		{"invalid characters", NewIndex("idx with spaces").Numeric("x"), "invalid characters"},
		{"duplicate fields", NewIndex("idx").Numeric("f").VectorFlat("f", 4, DistanceCosine), "duplicate field"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder.Build()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("got error %q, want containing %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestIndexDefinition_String(t *testing.T) {
	idx := mustBuild(t, NewIndex("my-idx").
		Prefix("doc:").
		Numeric("position").
		VectorFlat("vec", 512, DistanceCosine))

	want := "FT.CREATE my-idx ON HASH PREFIX doc: SCHEMA position NUMERIC vec VECTOR FLAT"
	if got := idx.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestIsValidIdentifier(t *testing.T) {
	for _, s := range []string{"rag_collection", "a:b-c", "X1"} {
		if !IsValidIdentifier(s) {
			t.Errorf("expected %q to be valid", s)
		}
	}
	for _, s := range []string{"", "a b", "a/b", "ünï"} {
		if IsValidIdentifier(s) {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}
