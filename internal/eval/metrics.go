// Package eval grades pipeline answers with lexical metrics and an
// optional LLM judge.
package eval

import (
	"math"

	"ragpipe/internal/port"
)

// LexicalScores holds token-overlap metrics between a candidate answer
// and a reference answer.
type LexicalScores struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	BLEU      float64 `json:"bleu"`
}

// Lexical tokenizes both texts and computes precision, recall, F1 and
// unigram BLEU.
func Lexical(tok port.Tokenizer, candidate, reference string) LexicalScores {
	c := tok.Tokenize(candidate)
	r := tok.Tokenize(reference)

	precision, recall, f1 := PrecisionRecallF1(c, r)
	return LexicalScores{
		Precision: precision,
		Recall:    recall,
		F1:        f1,
		BLEU:      BLEU(c, r),
	}
}

// PrecisionRecallF1 computes token-level overlap metrics. Matches are
// clipped, so a token repeated in the candidate counts at most as often
// as it appears in the reference. Empty inputs score zero.
func PrecisionRecallF1(candidate, reference []string) (precision, recall, f1 float64) {
	if len(candidate) == 0 || len(reference) == 0 {
		return 0, 0, 0
	}

	matches := clippedMatches(candidate, reference)
	precision = float64(matches) / float64(len(candidate))
	recall = float64(matches) / float64(len(reference))
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	return precision, recall, f1
}

// BLEU computes a unigram BLEU score: clipped precision scaled by a
// brevity penalty that punishes candidates shorter than the reference.
func BLEU(candidate, reference []string) float64 {
	if len(candidate) == 0 || len(reference) == 0 {
		return 0
	}

	matches := clippedMatches(candidate, reference)
	if matches == 0 {
		return 0
	}
	precision := float64(matches) / float64(len(candidate))

	penalty := 1.0
	if len(candidate) < len(reference) {
		penalty = math.Exp(1 - float64(len(reference))/float64(len(candidate)))
	}
	return penalty * precision
}

func clippedMatches(candidate, reference []string) int {
	refCounts := make(map[string]int, len(reference))
	for _, tok := range reference {
		refCounts[tok]++
	}

	matches := 0
	for _, tok := range candidate {
		if refCounts[tok] > 0 {
			refCounts[tok]--
			matches++
		}
	}
	return matches
}
