package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/deckgen/internal/core/domain"
	"github.com/kirillkom/deckgen/internal/core/ports"
)

const markFailedTimeout = 10 * time.Second

type deckWriter interface {
	Generate(ctx context.Context, p DeckPrompt) (*domain.Deck, error)
	Restyle(ctx context.Context, deck *domain.Deck, style, audience string) (*domain.Deck, error)
	GenerateExecutiveSummary(ctx context.Context, deck *domain.Deck) (domain.Slide, error)
}

type documentAnalyzer interface {
	Analyze(ctx context.Context, chunks []domain.Chunk) (domain.DocumentAnalysis, error)
}

type ProcessDeckUseCase struct {
	repo      ports.DeckJobRepository
	extractor ports.TextExtractor
	chunker   ports.Chunker
	indexes   ports.IndexBuilder
	retriever ports.Retriever
	writer    deckWriter
	analyzer  documentAnalyzer
}

func NewProcessDeckUseCase(
	repo ports.DeckJobRepository,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	indexes ports.IndexBuilder,
	retriever ports.Retriever,
	writer deckWriter,
	analyzer documentAnalyzer,
) *ProcessDeckUseCase {
	return &ProcessDeckUseCase{
		repo:      repo,
		extractor: extractor,
		chunker:   chunker,
		indexes:   indexes,
		retriever: retriever,
		writer:    writer,
		analyzer:  analyzer,
	}
}

func (uc *ProcessDeckUseCase) ProcessByID(ctx context.Context, jobID string) error {
	if err := uc.markStatus(ctx, jobID, domain.JobStatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	deck, sourceChunks, err := uc.processPipeline(ctx, jobID)
	if err != nil {
		if failErr := uc.markFailed(ctx, jobID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.SaveDeck(ctx, jobID, deck, sourceChunks); err != nil {
		err = fmt.Errorf("save deck: %w", err)
		if failErr := uc.markFailed(ctx, jobID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	return nil
}

func (uc *ProcessDeckUseCase) processPipeline(ctx context.Context, jobID string) (*domain.Deck, int, error) {
	job, err := uc.loadJob(ctx, jobID)
	if err != nil {
		return nil, 0, err
	}

	chunks, err := uc.extractChunks(ctx, job)
	if err != nil {
		return nil, 0, err
	}

	uc.analyze(ctx, job, chunks)

	result, err := uc.retrieve(ctx, job, chunks)
	if err != nil {
		return nil, 0, err
	}

	deck, err := uc.write(ctx, job, result)
	if err != nil {
		return nil, 0, err
	}

	return deck, len(chunks), nil
}

func (uc *ProcessDeckUseCase) loadJob(ctx context.Context, jobID string) (*domain.DeckJob, error) {
	job, err := uc.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("fetch deck job by id: %w", err)
	}
	return job, nil
}

func (uc *ProcessDeckUseCase) extractChunks(ctx context.Context, job *domain.DeckJob) ([]domain.Chunk, error) {
	pages, err := uc.extractor.Extract(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	chunks := SplitPages(job.Filename, pages, uc.chunker)
	if len(chunks) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "chunk document", errors.New("document has no extractable text"))
	}
	return chunks, nil
}

// analyze is informational; its failures are logged and never fail the job.
func (uc *ProcessDeckUseCase) analyze(ctx context.Context, job *domain.DeckJob, chunks []domain.Chunk) {
	if uc.analyzer == nil {
		return
	}
	analysis, err := uc.analyzer.Analyze(ctx, chunks)
	if err != nil {
		slog.Warn("document_analysis_failed", "job_id", job.ID, "error", err)
		return
	}
	if analysis == nil {
		return
	}
	if err := uc.repo.SaveAnalysis(ctx, job.ID, analysis); err != nil {
		slog.Warn("document_analysis_save_failed", "job_id", job.ID, "error", err)
	}
}

func (uc *ProcessDeckUseCase) retrieve(ctx context.Context, job *domain.DeckJob, chunks []domain.Chunk) (*domain.RetrievalResult, error) {
	index, err := uc.indexes.Build(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	defer func() {
		if closeErr := index.Close(); closeErr != nil {
			slog.Warn("index_close_failed", "job_id", job.ID, "error", closeErr)
		}
	}()

	result, err := uc.retriever.Retrieve(ctx, InstructionQuery(job.Topic, job.Instructions), index)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}
	return result, nil
}

func (uc *ProcessDeckUseCase) write(ctx context.Context, job *domain.DeckJob, result *domain.RetrievalResult) (*domain.Deck, error) {
	deck, err := uc.writer.Generate(ctx, DeckPrompt{
		Topic:        job.Topic,
		Information:  result.Context(),
		Instructions: presenterInstructions(job.DeckRequest),
		NumSlides:    job.NumSlides,
	})
	if err != nil {
		return nil, err
	}

	deck, err = uc.writer.Restyle(ctx, deck, job.Style, job.Audience)
	if err != nil {
		return nil, err
	}

	if job.IncludeExecutiveSummary {
		summary, err := uc.writer.GenerateExecutiveSummary(ctx, deck)
		if err != nil {
			return nil, err
		}
		InsertExecutiveSummary(deck, summary)
	}
	return deck, nil
}

func (uc *ProcessDeckUseCase) markStatus(ctx context.Context, jobID string, status domain.JobStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, jobID, status, errMessage)
}

// markFailed outlives a cancelled or expired job context so the job never stays in processing.
func (uc *ProcessDeckUseCase) markFailed(ctx context.Context, jobID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	failCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), markFailedTimeout)
	defer cancel()
	return uc.markStatus(failCtx, jobID, domain.JobStatusFailed, processErr.Error())
}

// InstructionQuery is the retrieval query built from a deck request.
func InstructionQuery(topic, instructions string) string {
	return fmt.Sprintf("Create a presentation about %s\n\nUser Instructions: %s", topic, instructions)
}

func presenterInstructions(req domain.DeckRequest) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(req.Instructions))
	if req.Presenter != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Presenter: ")
		b.WriteString(req.Presenter)
	}
	return b.String()
}
