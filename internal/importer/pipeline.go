package importer

import (
	"context"
	"errors"

	"github.com/kha159-create/alsani-cockpit/internal/docstore"
	"github.com/kha159-create/alsani-cockpit/internal/pkg/logger"
)

// DefaultChunkSize keeps each batch under the document store's write limit.
const DefaultChunkSize = 400

// Stage is where an upload is in its lifecycle.
type Stage string

const (
	StageIdle              Stage = "idle"
	StageClassifying       Stage = "classifying"
	StageClassifyFailed    Stage = "classify_failed"
	StageProcessing        Stage = "processing"
	StageChunkCommitFailed Stage = "chunk_commit_failed"
	StageDone              Stage = "done"
)

// Terminal reports whether no further work happens in this stage.
func (s Stage) Terminal() bool {
	return s == StageClassifyFailed || s == StageChunkCommitFailed || s == StageDone
}

// Outcome accumulates the result of one upload.
type Outcome struct {
	Successful []Summary `json:"successful"`
	Skipped    int       `json:"skipped"`
	Progress   float64   `json:"progress"`
	Shape      FileShape `json:"fileType"`
	Layout     Layout    `json:"format,omitempty"`
	Stage      Stage     `json:"stage"`
	// Chunks is the number of chunks committed.
	Chunks int `json:"chunks"`
}

// Preview returns at most n accepted summaries.
func (o *Outcome) Preview(n int) []Summary {
	if n < 0 || n >= len(o.Successful) {
		return o.Successful
	}
	return o.Successful[:n]
}

// ShapeClassifier decides an upload's shape. *Classifier implements it.
type ShapeClassifier interface {
	Classify(ctx context.Context, preview Preview) (Classification, error)
}

// Pipeline imports spreadsheet rows into the document store.
type Pipeline struct {
	classifier ShapeClassifier
	store      docstore.Store
	router     ItemRouter
	chunkSize  int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithChunkSize sets the number of rows per committed batch.
func WithChunkSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.chunkSize = n
		}
	}
}

// WithRouter replaces the default item router.
func WithRouter(r ItemRouter) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.router = r
		}
	}
}

// NewPipeline creates a pipeline writing to store.
func NewPipeline(classifier ShapeClassifier, store docstore.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		classifier: classifier,
		store:      store,
		router:     DefaultRouter,
		chunkSize:  DefaultChunkSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ImportSpreadsheet classifies and imports rows whose column order is
// unknown.
func (p *Pipeline) ImportSpreadsheet(ctx context.Context, rows []Row, progress func(float64)) (*Outcome, error) {
	return p.ImportTable(ctx, HeadersOf(rows), rows, progress)
}

// ImportTable classifies the upload with one model call and imports it.
// progress, if non-nil, is called after each committed chunk.
func (p *Pipeline) ImportTable(ctx context.Context, headers []string, rows []Row, progress func(float64)) (*Outcome, error) {
	out := &Outcome{Stage: StageClassifying}
	if len(rows) == 0 {
		out.Stage = StageClassifyFailed
		return out, &ClassificationError{Msg: "file is empty"}
	}

	cls, err := p.classifier.Classify(ctx, NewPreview(headers, rows))
	if err != nil {
		out.Stage = StageClassifyFailed
		var ce *ClassificationError
		if !errors.As(err, &ce) {
			err = &ClassificationError{Msg: "classifier failed", Err: err}
		}
		logger.Warn("upload classification failed", "rows", len(rows), "error", err.Error())
		return out, err
	}
	logger.Info("upload classified", "rows", len(rows), "fileType", cls.Shape.String(), "format", cls.Layout.String())
	return p.run(ctx, cls, rows, progress, out)
}

// ImportClassified imports rows whose shape is already known.
func (p *Pipeline) ImportClassified(ctx context.Context, cls Classification, rows []Row, progress func(float64)) (*Outcome, error) {
	return p.run(ctx, cls, rows, progress, &Outcome{})
}

func (p *Pipeline) run(ctx context.Context, cls Classification, rows []Row, progress func(float64), out *Outcome) (*Outcome, error) {
	out.Shape = cls.Shape
	out.Layout = cls.Layout
	out.Stage = StageProcessing
	out.Successful = []Summary{}

	interp := NewInterpreter(cls.Shape, cls.Layout, cls.HeaderMap, p.router)
	interp.Reset()

	total := len(rows)
	for start, chunk := 0, 1; start < total; start, chunk = start+p.chunkSize, chunk+1 {
		end := min(start+p.chunkSize, total)

		batch := docstore.NewBatch()
		var summaries []Summary
		skipped := 0
		for _, row := range rows[start:end] {
			rec, verdict := interp.Interpret(row)
			switch verdict {
			case Emit:
				addToBatch(batch, rec)
				summaries = append(summaries, rec.Summary())
			case Skip:
				skipped++
			}
		}

		if err := p.store.Commit(ctx, batch); err != nil {
			out.Stage = StageChunkCommitFailed
			logger.Error("upload chunk commit failed", "chunk", chunk, "committed", out.Chunks, "error", err.Error())
			return out, &CommitError{Chunk: chunk, Err: err}
		}

		out.Successful = append(out.Successful, summaries...)
		out.Skipped += skipped
		out.Chunks++
		out.Progress = float64(end) / float64(total) * 100
		if progress != nil {
			progress(out.Progress)
		}
	}

	out.Stage = StageDone
	if total == 0 {
		out.Progress = 100
	}
	logger.Info("upload complete", "accepted", len(out.Successful), "skipped", out.Skipped, "chunks", out.Chunks)
	return out, nil
}
