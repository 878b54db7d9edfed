package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ragpipe/internal/domain"
	"ragpipe/internal/port"
)

const judgeSystemPrompt = `You grade answers produced by a retrieval pipeline.

Given a question, the retrieved context and an answer, score two aspects
from 0.0 to 1.0:
- relevance: how well the answer addresses the question.
- groundedness: how well the answer is supported by the context alone.

Reply with only a JSON object, no other text:
{"relevance": 0.0, "groundedness": 0.0}`

const judgeUserTemplate = `Question: %s

Context:
%s

Answer: %s`

// JudgeScores holds the grades returned by the judge model.
type JudgeScores struct {
	Relevance    float64 `json:"relevance"`
	Groundedness float64 `json:"groundedness"`
}

// Judge grades answers with a chat model.
type Judge struct {
	chat port.ChatModel
}

// NewJudge creates a judge backed by chat.
func NewJudge(chat port.ChatModel) *Judge {
	return &Judge{chat: chat}
}

// Grade scores an answer's relevance to the question and groundedness
// in the context. A reply that is not the expected JSON object fails
// with ErrGeneration.
func (j *Judge) Grade(ctx context.Context, question, contextText, answer string) (JudgeScores, error) {
	if contextText == "" {
		contextText = "(empty)"
	}
	userPrompt := fmt.Sprintf(judgeUserTemplate, question, contextText, answer)

	reply, err := j.chat.Complete(ctx, judgeSystemPrompt, userPrompt)
	if err != nil {
		return JudgeScores{}, err
	}

	scores, err := parseJudgeReply(reply)
	if err != nil {
		return JudgeScores{}, fmt.Errorf("%w: %v", domain.ErrGeneration, err)
	}
	return scores, nil
}

func parseJudgeReply(reply string) (JudgeScores, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start == -1 || end <= start {
		return JudgeScores{}, fmt.Errorf("no JSON object in judge reply")
	}

	var raw struct {
		Relevance    *float64 `json:"relevance"`
		Groundedness *float64 `json:"groundedness"`
	}
	if err := json.Unmarshal([]byte(reply[start:end+1]), &raw); err != nil {
		return JudgeScores{}, fmt.Errorf("malformed judge reply: %v", err)
	}
	if raw.Relevance == nil || raw.Groundedness == nil {
		return JudgeScores{}, fmt.Errorf("judge reply missing scores")
	}
	for _, v := range []float64{*raw.Relevance, *raw.Groundedness} {
		if v < 0 || v > 1 {
			return JudgeScores{}, fmt.Errorf("judge score %v out of range [0, 1]", v)
		}
	}

	return JudgeScores{
		Relevance:    *raw.Relevance,
		Groundedness: *raw.Groundedness,
	}, nil
}
