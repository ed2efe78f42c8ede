// Package prompt lays out the text sent to the generation service.
package prompt

import (
	"strings"

	"docqa/internal/domain"
)

const (
	DefaultInstructions = "You are a helpful assistant."
	DefaultDelimiter    = "\n\n"
	questionPrefix      = "Question: "
)

// Assembler joins instructions, retrieved context and the query. It never
// truncates, reorders or deduplicates the chunks it is given.
type Assembler struct {
	Instructions string
	Delimiter    string
}

// NewAssembler returns an Assembler; an empty delimiter falls back to
// DefaultDelimiter. Empty instructions are kept as given.
func NewAssembler(instructions, delimiter string) *Assembler {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	return &Assembler{Instructions: instructions, Delimiter: delimiter}
}

// Assemble uses the assembler's own instructions.
func (a *Assembler) Assemble(chunks []domain.Chunk, query string) string {
	return Assemble(chunks, query, a.Instructions, a.Delimiter)
}

// Assemble builds
//
//	instructions + "\n\n" + chunk texts joined by delimiter + "\n\n" + "Question: " + query
//
// With no chunks the context block is empty but the separators remain.
func Assemble(chunks []domain.Chunk, query, instructions, delimiter string) string {
	var b strings.Builder
	b.WriteString(instructions)
	b.WriteString("\n\n")
	for i, ch := range chunks {
		if i > 0 {
			b.WriteString(delimiter)
		}
		b.WriteString(ch.Text)
	}
	b.WriteString("\n\n")
	b.WriteString(questionPrefix)
	b.WriteString(query)
	return b.String()
}
