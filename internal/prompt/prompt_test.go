package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"docqa/internal/domain"
)

func TestAssemble_Layout(t *testing.T) {
	chunks := []domain.Chunk{{Text: "It is known for the Eiffel Tower."}, {Text: "Paris is the capital of France."}}
	got := NewAssembler(DefaultInstructions, "").Assemble(chunks, "What is Paris known for?")
	assert.Equal(t,
		"You are a helpful assistant.\n\n"+
			"It is known for the Eiffel Tower.\n\nParis is the capital of France.\n\n"+
			"Question: What is Paris known for?",
		got)
}

func TestAssemble_KeepsOrderAndDuplicates(t *testing.T) {
	chunks := []domain.Chunk{{Text: "b"}, {Text: "a"}, {Text: "b"}}
	assert.Equal(t, "I\n\nb|a|b\n\nQuestion: q", Assemble(chunks, "q", "I", "|"))
}

func TestAssemble_EmptyParts(t *testing.T) {
	tests := []struct {
		name         string
		chunks       []domain.Chunk
		query, instr string
		want         string
	}{
		{"no chunks", nil, "q", "I", "I\n\n\n\nQuestion: q"},
		{"empty query", []domain.Chunk{{Text: "c"}}, "", "I", "I\n\nc\n\nQuestion: "},
		{"empty instructions", []domain.Chunk{{Text: "c"}}, "q", "", "\n\nc\n\nQuestion: q"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Assemble(tt.chunks, tt.query, tt.instr, DefaultDelimiter))
		})
	}
}

func TestAssemble_DoesNotTruncate(t *testing.T) {
	long := make([]byte, 100000)
	for i := range long {
		long[i] = 'x'
	}
	got := Assemble([]domain.Chunk{{Text: string(long)}}, "q", "", DefaultDelimiter)
	assert.Contains(t, got, string(long))
}
