package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"ragpipe/internal/domain"
	"ragpipe/internal/logging"
	"ragpipe/internal/port"
)

// Sample is one evaluation case: a question and the reference answer
// it is graded against.
type Sample struct {
	Question  string `json:"question"`
	Reference string `json:"reference"`
}

// SampleResult is the outcome of evaluating one sample. Error is set
// when the pipeline failed for this sample; its scores then stay zero
// and are excluded from the means.
type SampleResult struct {
	Question  string        `json:"question"`
	Reference string        `json:"reference"`
	Answer    string        `json:"answer,omitempty"`
	Lexical   LexicalScores `json:"lexical"`
	Judge     *JudgeScores  `json:"judge,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// Aggregate holds metric means over the successful samples.
type Aggregate struct {
	Precision    float64  `json:"precision"`
	Recall       float64  `json:"recall"`
	F1           float64  `json:"f1"`
	BLEU         float64  `json:"bleu"`
	Relevance    *float64 `json:"relevance,omitempty"`
	Groundedness *float64 `json:"groundedness,omitempty"`
}

// Report is the result of an evaluation run.
type Report struct {
	ID             string         `json:"id"`
	Samples        []SampleResult `json:"samples"`
	Mean           Aggregate      `json:"mean"`
	Failures       int            `json:"failures,omitempty"`
	ElapsedSeconds float64        `json:"elapsed_seconds"`
}

// Asker runs a question through the pipeline. *usecase.AskUseCase
// satisfies it.
type Asker interface {
	Ask(ctx context.Context, query string, topK int) (domain.Answer, error)
}

// Runner evaluates a dataset against the pipeline.
type Runner struct {
	asker Asker
	judge *Judge // nil disables LLM grading
	tok   port.Tokenizer
	topK  int
}

// NewRunner creates a runner. judge may be nil to skip LLM grading.
func NewRunner(asker Asker, judge *Judge, tok port.Tokenizer, topK int) *Runner {
	if topK < 1 {
		topK = 5
	}
	return &Runner{
		asker: asker,
		judge: judge,
		tok:   tok,
		topK:  topK,
	}
}

// LoadDataset reads a JSON file of samples. Every sample needs a
// non-blank question and reference.
func LoadDataset(path string) ([]Sample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read dataset %s: %v", domain.ErrInvalidArgument, path, err)
	}

	var samples []Sample
	if err := json.Unmarshal(data, &samples); err != nil {
		return nil, fmt.Errorf("%w: parse dataset %s: %v", domain.ErrInvalidArgument, path, err)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: dataset %s is empty", domain.ErrInvalidArgument, path)
	}
	for i, s := range samples {
		if strings.TrimSpace(s.Question) == "" || strings.TrimSpace(s.Reference) == "" {
			return nil, fmt.Errorf("%w: dataset sample %d missing question or reference", domain.ErrInvalidArgument, i)
		}
	}
	return samples, nil
}

// Run evaluates every sample and aggregates metric means. A failing
// sample is recorded and skipped in the means; a canceled context
// aborts the run.
func (r *Runner) Run(ctx context.Context, samples []Sample) (*Report, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no samples", domain.ErrInvalidArgument)
	}

	log := logging.FromContext(ctx)
	start := time.Now()

	report := &Report{
		ID:      uuid.NewString(),
		Samples: make([]SampleResult, 0, len(samples)),
	}

	for i, sample := range samples {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result := r.evaluate(ctx, sample)
		if result.Error != "" {
			report.Failures++
			log.WarnContext(ctx, "sample failed",
				slog.Int("sample", i+1),
				slog.String("error", result.Error))
		}
		report.Samples = append(report.Samples, result)

		log.DebugContext(ctx, "sample evaluated",
			slog.Int("sample", i+1),
			slog.Int("total", len(samples)))
	}

	report.Mean = aggregate(report.Samples)
	report.ElapsedSeconds = time.Since(start).Seconds()
	return report, nil
}

func (r *Runner) evaluate(ctx context.Context, sample Sample) SampleResult {
	result := SampleResult{
		Question:  sample.Question,
		Reference: sample.Reference,
	}

	answer, err := r.asker.Ask(ctx, sample.Question, r.topK)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Answer = answer.Text
	result.Lexical = Lexical(r.tok, answer.Text, sample.Reference)

	if r.judge != nil {
		scores, err := r.judge.Grade(ctx, sample.Question, groundingText(answer), answer.Text)
		if err != nil {
			result.Error = err.Error()
			return result
		}
		result.Judge = &scores
	}

	return result
}

// groundingText renders the answer's grounding chunks the way the
// generator presented them to the model.
func groundingText(answer domain.Answer) string {
	var sb strings.Builder
	for i, sc := range answer.Grounding {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(sc.Chunk.Text)
	}
	return sb.String()
}

func aggregate(results []SampleResult) Aggregate {
	var agg Aggregate
	var judged int
	var relevance, groundedness float64
	var ok int

	for _, r := range results {
		if r.Error != "" {
			continue
		}
		ok++
		agg.Precision += r.Lexical.Precision
		agg.Recall += r.Lexical.Recall
		agg.F1 += r.Lexical.F1
		agg.BLEU += r.Lexical.BLEU
		if r.Judge != nil {
			judged++
			relevance += r.Judge.Relevance
			groundedness += r.Judge.Groundedness
		}
	}

	if ok > 0 {
		n := float64(ok)
		agg.Precision /= n
		agg.Recall /= n
		agg.F1 /= n
		agg.BLEU /= n
	}
	if judged > 0 {
		rel := relevance / float64(judged)
		gnd := groundedness / float64(judged)
		agg.Relevance = &rel
		agg.Groundedness = &gnd
	}
	return agg
}
