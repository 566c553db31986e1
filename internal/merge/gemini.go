package merge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pmezard/go-difflib/difflib"
	genai "google.golang.org/genai"

	"github.com/loomctl/loom/internal/conflict"
	"github.com/loomctl/loom/internal/logging"
)

// Compile-time check that GeminiResolver implements Resolver.
var _ Resolver = (*GeminiResolver)(nil)

// GeminiResolver resolves high-severity conflicts by asking a Gemini model to
// produce the fully merged file. The prompt carries the baseline plus each
// task's intent and per-change diffs; the model must answer with file content
// only.
type GeminiResolver struct {
	client  *genai.Client
	model   string
	retries int
	logger  *logging.Logger
}

// NewGeminiResolver creates a resolver on the Gemini API. The API key is
// taken from the environment by the genai client (GEMINI_API_KEY).
func NewGeminiResolver(ctx context.Context, model string, logger *logging.Logger) (*GeminiResolver, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiResolver{
		client:  client,
		model:   model,
		retries: 3,
		logger:  logger,
	}, nil
}

// Resolve asks the model for the merged file, retrying with backoff on
// transient failures. Call and token counts are recorded on the result even
// when resolution ultimately fails.
func (g *GeminiResolver) Resolve(ctx context.Context, mc *Context) (*Result, error) {
	prompt := g.buildPrompt(mc)

	result := &Result{
		Decision: DecisionAIMerged,
		FilePath: mc.FilePath,
	}

	var lastErr error
	for attempt := 0; attempt < g.retries; attempt++ {
		resp, err := g.client.Models.GenerateContent(ctx, g.model,
			[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
			&genai.GenerateContentConfig{},
		)
		result.AICallsMade++

		if err != nil {
			lastErr = err
		} else if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
			lastErr = fmt.Errorf("empty response from model %s", g.model)
		} else {
			text := resp.Candidates[0].Content.Parts[0].Text
			result.TokensUsed += tokensFromResponse(resp, prompt, text)

			merged := stripCodeFence(text)
			result.MergedContent = &merged
			result.ConflictsResolved = []conflict.Region{mc.Conflict}
			result.Explanation = fmt.Sprintf("AI resolved conflict across %d tasks", len(mc.Conflict.TasksInvolved))
			return result, nil
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(time.Duration(300*(1<<attempt)) * time.Millisecond):
		}
	}

	return result, lastErr
}

// buildPrompt renders the merge problem as baseline content plus one unified
// diff per semantic change per task.
func (g *GeminiResolver) buildPrompt(mc *Context) string {
	var b strings.Builder

	b.WriteString("You are a semantic merge engine. Multiple development tasks edited the same file concurrently.\n")
	b.WriteString("Produce the single merged file that preserves the intent of every task.\n")
	b.WriteString("Respond with the complete merged file content only, no commentary, no code fences.\n\n")

	fmt.Fprintf(&b, "File: %s\n", mc.FilePath)
	fmt.Fprintf(&b, "Conflict: %s (severity %s)\n\n", mc.Conflict.Reason, mc.Conflict.Severity)

	b.WriteString("=== BASELINE ===\n")
	b.WriteString(mc.BaselineContent)
	b.WriteString("\n")

	for _, snap := range mc.TaskSnapshots {
		fmt.Fprintf(&b, "\n=== TASK %s ===\n", snap.TaskID)
		if snap.TaskIntent != "" {
			fmt.Fprintf(&b, "Intent: %s\n", snap.TaskIntent)
		}
		for _, c := range snap.Changes {
			fmt.Fprintf(&b, "\n[%s] %s at %s\n", c.ChangeType, c.Target, c.Location)
			b.WriteString(changeDiff(c.ContentBefore, c.ContentAfter))
		}
	}

	return b.String()
}

// changeDiff renders one semantic change as a unified diff. Pure additions
// and removals diff against empty content.
func changeDiff(before, after *string) string {
	var a, bContent string
	if before != nil {
		a = *before
	}
	if after != nil {
		bContent = *after
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(a),
		B:        difflib.SplitLines(bContent),
		FromFile: "before",
		ToFile:   "after",
		Context:  2,
	})
	if err != nil || diff == "" {
		return bContent + "\n"
	}
	return diff
}

// tokensFromResponse prefers the model-reported usage; when the model reports
// none, it falls back to a bytes/4 estimate over prompt and response.
func tokensFromResponse(resp *genai.GenerateContentResponse, prompt, text string) int {
	if resp.UsageMetadata != nil && resp.UsageMetadata.TotalTokenCount > 0 {
		return int(resp.UsageMetadata.TotalTokenCount)
	}
	return (len(prompt) + len(text)) / 4
}

// stripCodeFence removes a wrapping markdown fence if the model added one
// despite instructions.
func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return text
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return text
	}
	lines = lines[1:] // opening fence with optional language tag
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n") + "\n"
}
