package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

type Evaluation struct {
	Score    int    `json:"score"`
	Feedback string `json:"feedback"`
}

type EvalRequest struct {
	Question   string
	Answer     string
	Category   string
	Difficulty string
	Language   string
	Rubric     string
}

// AnswerEvaluator scores an open-ended answer 0-100. Implementations must be
// deterministic for identical inputs; the engine additionally enforces this
// with a content-addressed cache.
type AnswerEvaluator interface {
	Evaluate(ctx context.Context, req EvalRequest) (Evaluation, error)
}

type scoringEngine struct {
	evaluator AnswerEvaluator
	cache     *evalCache
	timeout   time.Duration
}

func newScoringEngine(evaluator AnswerEvaluator, cacheSize int) *scoringEngine {
	return &scoringEngine{
		evaluator: evaluator,
		cache:     newEvalCache(cacheSize),
		timeout:   10 * time.Second,
	}
}

func evalCacheKey(req EvalRequest) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{
		req.Question,
		req.Answer,
		req.Category,
		req.Difficulty,
		req.Language,
	}, "\x1f")))
	return hex.EncodeToString(sum[:])
}

// ScoreOpen resolves an open-ended answer to a score. Evaluator failures
// never surface to the caller: the deterministic heuristic takes over.
func (e *scoringEngine) ScoreOpen(ctx context.Context, req EvalRequest) Evaluation {
	if isNonAnswer(req.Answer) {
		return Evaluation{Score: 0, Feedback: "No answer provided."}
	}
	key := evalCacheKey(req)
	if cached, ok := e.cache.Get(key); ok {
		return cached
	}
	result, err := e.delegate(ctx, req)
	if err != nil {
		log.Printf("evaluator fallback error=%v", err)
		result = Evaluation{
			Score:    fallbackScore(req.Answer, req.Category, req.Difficulty),
			Feedback: "Scored by offline heuristic.",
		}
	}
	result.Score = clampScore(result.Score)
	e.cache.Put(key, result)
	return result
}

func (e *scoringEngine) delegate(ctx context.Context, req EvalRequest) (Evaluation, error) {
	if e.evaluator == nil {
		return Evaluation{}, errors.New("no evaluator configured")
	}
	evalCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.evaluator.Evaluate(evalCtx, req)
}

type openAIEvaluator struct {
	apiKey string
	model  string
	apiURL string
	client *http.Client
}

func newOpenAIEvaluator(apiKey, model string) *openAIEvaluator {
	return &openAIEvaluator{
		apiKey: apiKey,
		model:  model,
		apiURL: "https://api.openai.com/v1/chat/completions",
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type openAIChatRequest struct {
	Model       string              `json:"model"`
	Messages    []openAIChatMessage `json:"messages"`
	Temperature float64             `json:"temperature"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
}

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

const evaluatorSystemPrompt = `You grade trivia answers. Respond with ONLY valid JSON (no markdown, no code fences) in the form {"score": <integer 0-100>, "feedback": "<one sentence>"}. Grade strictly against the question; an unrelated answer scores 0.`

func (e *openAIEvaluator) Evaluate(ctx context.Context, req EvalRequest) (Evaluation, error) {
	if strings.TrimSpace(e.apiKey) == "" {
		return Evaluation{}, errors.New("evaluator api key is not configured")
	}
	userPrompt := fmt.Sprintf(
		"Question: %s\nCategory: %s\nDifficulty: %s\nLanguage: %s\nAnswer: %s",
		req.Question, req.Category, req.Difficulty, req.Language, req.Answer,
	)
	if req.Rubric != "" {
		userPrompt += "\nRubric: " + req.Rubric
	}
	reqBody := openAIChatRequest{
		Model: e.model,
		Messages: []openAIChatMessage{
			{Role: "system", Content: evaluatorSystemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0,
		MaxTokens:   200,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return Evaluation{}, fmt.Errorf("failed to build evaluator request")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.apiURL, bytes.NewReader(payload))
	if err != nil {
		return Evaluation{}, fmt.Errorf("failed to build evaluator request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+strings.TrimSpace(e.apiKey))
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return Evaluation{}, fmt.Errorf("failed to reach evaluator")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Evaluation{}, fmt.Errorf("failed to read evaluator response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Evaluation{}, fmt.Errorf("evaluator request failed (%d)", resp.StatusCode)
	}
	var parsed openAIChatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Evaluation{}, fmt.Errorf("failed to parse evaluator response")
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return Evaluation{}, fmt.Errorf("evaluator error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return Evaluation{}, errors.New("evaluator returned no choices")
	}
	var result Evaluation
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return Evaluation{}, errors.New("evaluator did not return the expected format")
	}
	result.Score = clampScore(result.Score)
	return result, nil
}
