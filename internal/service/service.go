// Package service is the document question-answering pipeline: ingest a
// document into a fresh index generation, retrieve context for a query and
// optionally hand the assembled prompt to a generation service.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docqa/internal/domain"
	"docqa/internal/metrics"
	"docqa/internal/prompt"
	"docqa/internal/retriever"
)

// DefaultSummarySentences bounds the summary returned from IngestDocument.
const DefaultSummarySentences = 3

// IngestReport describes a completed ingest.
type IngestReport struct {
	DocumentID string
	Source     string
	Generation uint64
	Sections   int
	Chunks     int
	Oversized  int
	Summary    string
	// Superseded is set when a newer generation became visible while this
	// one was being built; this document was discarded.
	Superseded bool
}

// Answer is the outcome of Ask.
type Answer struct {
	Text   string
	Prompt string
	Result domain.RetrievalResult
}

// Options carries the optional collaborators of a Service.
type Options struct {
	Generator        domain.Generator
	Summarizer       domain.Summarizer
	SummarySentences int
	Logger           *zap.Logger
}

// Service wires chunker, embedder, index, assembler and generator together.
// It is safe for concurrent use; concurrent ingests race and the newest
// generation wins.
type Service struct {
	chunker    domain.Chunker
	embedder   domain.Embedder
	index      domain.VectorIndex
	retriever  *retriever.Retriever
	assembler  *prompt.Assembler
	generator  domain.Generator
	summarizer domain.Summarizer
	sentences  int
	log        *zap.Logger
}

func New(chunker domain.Chunker, embedder domain.Embedder, index domain.VectorIndex, assembler *prompt.Assembler, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.SummarySentences <= 0 {
		opts.SummarySentences = DefaultSummarySentences
	}
	if assembler == nil {
		assembler = prompt.NewAssembler(prompt.DefaultInstructions, prompt.DefaultDelimiter)
	}
	return &Service{
		chunker:    chunker,
		embedder:   embedder,
		index:      index,
		retriever:  retriever.New(embedder, index),
		assembler:  assembler,
		generator:  opts.Generator,
		summarizer: opts.Summarizer,
		sentences:  opts.SummarySentences,
		log:        opts.Logger,
	}
}

// Ingest indexes text as a single-section document and returns the
// generation visible afterwards. When a newer ingest overtook this one, that
// is the newer generation; use IngestDocument to tell the two apart.
func (s *Service) Ingest(ctx context.Context, text string) (uint64, error) {
	rep, err := s.IngestDocument(ctx, domain.Document{Sections: []string{text}})
	if err != nil {
		return 0, err
	}
	if rep.Superseded {
		return s.index.Generation(), nil
	}
	return rep.Generation, nil
}

// IngestDocument chunks, embeds and indexes doc as a new generation. Nothing
// becomes visible unless every step succeeds. A build overtaken by a newer
// one is logged and reported through IngestReport.Superseded, not as an error.
func (s *Service) IngestDocument(ctx context.Context, doc domain.Document) (IngestReport, error) {
	rep, err := s.ingest(ctx, doc)
	metrics.ObserveIngest(domain.Code(err))
	if err != nil {
		s.log.Error("ingest failed",
			zap.String("source", doc.Source),
			zap.String("code", domain.Code(err)),
			zap.Error(err))
		return IngestReport{}, err
	}
	return rep, nil
}

func (s *Service) ingest(ctx context.Context, doc domain.Document) (IngestReport, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	gen := s.index.Reserve()
	rep := IngestReport{DocumentID: doc.ID, Source: doc.Source, Generation: gen, Sections: len(doc.Sections)}
	log := s.log.With(zap.String("document", doc.ID), zap.Uint64("generation", gen))

	chunks, err := s.chunker.Chunk(doc)
	if err != nil {
		return rep, fmt.Errorf("chunk %s: %w", doc.ID, err)
	}
	if len(chunks) == 0 {
		return rep, domain.ErrEmptyIndex
	}
	texts := make([]string, len(chunks))
	for i := range chunks {
		chunks[i].Generation = gen
		texts[i] = chunks[i].Text
		if chunks[i].Oversized {
			rep.Oversized++
		}
	}
	rep.Chunks = len(chunks)

	start := time.Now()
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return rep, fmt.Errorf("embed %s: %w", doc.ID, err)
	}
	log.Debug("embedded chunks", zap.Int("chunks", len(chunks)), zap.Duration("took", time.Since(start)))

	err = s.index.Build(gen, chunks, vectors)
	switch {
	case errors.Is(err, domain.ErrGenerationSuperseded):
		log.Warn("discarding stale build", zap.Uint64("visible", s.index.Generation()), zap.Error(err))
		rep.Superseded = true
		return rep, nil
	case err != nil:
		return rep, fmt.Errorf("build generation %d: %w", gen, err)
	}
	metrics.SetIndex(s.index.Stats())
	log.Info("document indexed",
		zap.String("source", doc.Source),
		zap.Int("sections", rep.Sections),
		zap.Int("chunks", rep.Chunks),
		zap.Int("oversized", rep.Oversized))

	if s.summarizer != nil {
		summary, err := s.summarizer.Summarize(strings.Join(doc.Sections, "\n\n"), s.sentences)
		if err != nil {
			log.Warn("summary failed", zap.Error(err))
		}
		rep.Summary = summary
	}
	return rep, nil
}

// AnswerContext returns the k chunks of the visible generation most relevant
// to query.
func (s *Service) AnswerContext(ctx context.Context, query string, k int) (domain.RetrievalResult, error) {
	start := time.Now()
	res, err := s.retriever.Retrieve(ctx, query, k)
	took := time.Since(start)
	metrics.ObserveQuery(domain.Code(err), took)
	if err != nil {
		s.log.Debug("retrieval failed", zap.String("code", domain.Code(err)), zap.Error(err))
		return domain.RetrievalResult{}, err
	}
	s.log.Debug("retrieved context",
		zap.Uint64("generation", res.Generation),
		zap.Int("results", len(res.Results)),
		zap.Duration("took", took))
	return res, nil
}

// BuildPrompt lays out the retrieved chunks and the query for the generator.
func (s *Service) BuildPrompt(result domain.RetrievalResult, query string) string {
	return s.assembler.Assemble(result.Chunks(), query)
}

// Ask retrieves context, builds the prompt and generates an answer.
func (s *Service) Ask(ctx context.Context, query string, k int) (Answer, error) {
	if s.generator == nil {
		return Answer{}, domain.ErrGenerationUnavailable
	}
	res, err := s.AnswerContext(ctx, query, k)
	if err != nil {
		return Answer{}, err
	}
	p := s.BuildPrompt(res, query)
	out := Answer{Prompt: p, Result: res}

	start := time.Now()
	text, err := s.generator.Generate(ctx, p)
	if err != nil {
		s.log.Warn("generation failed", zap.String("generator", s.generator.Name()), zap.Error(err))
		return out, fmt.Errorf("%w: %s: %w", domain.ErrGenerationFailed, s.generator.Name(), err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return out, domain.ErrEmptyAnswer
	}
	s.log.Debug("generated answer", zap.Int("runes", len([]rune(text))), zap.Duration("took", time.Since(start)))
	out.Text = text
	return out, nil
}

// HasGenerator reports whether Ask can produce answers.
func (s *Service) HasGenerator() bool { return s.generator != nil }

// Generation reports the visible index generation, 0 before the first ingest.
func (s *Service) Generation() uint64 { return s.index.Generation() }
