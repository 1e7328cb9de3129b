package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strings"
	"time"

	"github.com/wilbur182/chatvault/internal/model"
)

// CLIGenerator is a TextGenerator backed by a locally installed coding-
// assistant CLI invoked as a subprocess with --print --output-format json
// (no other flags beyond an optional --model) — the same shape original_source's ClaudeCodeClient
// used for its own Claude Code CLI adapter, generalized to any CLI that
// accepts a prompt on stdin and emits the same result/error JSON envelope.
type CLIGenerator struct {
	CLIPath string // e.g. "claude", "gemini"; defaults to "claude"
	Model   string
	Timeout time.Duration
}

type cliOutput struct {
	Result  string `json:"result"`
	Content string `json:"content"`
	Error   string `json:"error"`
	IsError bool   `json:"is_error"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Generate runs the CLI with the prompt piped on stdin, requesting JSON
// output, and translates its envelope into a GenerateResponse. A failed
// run is reported as a *model.GeneratorError classified by the governing
// context: a context deadline is GenTimeout, a cancelled context is
// GenCancelled, anything else from the subprocess itself is GenTransport
// (the caller's retry budget governs whether that's worth retrying). A
// JSON "error"/"is_error" field is reported as GenContentFiltered, empty
// output as GenMalformed, and non-JSON output is returned as plain text.
func (g CLIGenerator) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	path := g.CLIPath
	if path == "" {
		path = "claude"
	}
	timeout := g.Timeout
	if timeout == 0 {
		timeout = 5 * time.Minute
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{"--print", "--output-format", "json"}
	if g.Model != "" {
		args = append(args, "--model", g.Model)
	}
	cmd := exec.CommandContext(runCtx, path, args...)
	cmd.Stdin = strings.NewReader(req.Prompt)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		return nil, &model.GeneratorError{Kind: model.GenTimeout, Reason: "cli call exceeded timeout", Wrapped: runErr}
	}
	if runCtx.Err() == context.Canceled {
		return nil, &model.GeneratorError{Kind: model.GenCancelled, Reason: "cli call cancelled", Wrapped: runErr}
	}
	if runErr != nil {
		return nil, &model.GeneratorError{Kind: model.GenTransport, Reason: stderr.String(), Wrapped: runErr}
	}

	var out cliOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		trimmed := strings.TrimSpace(stdout.String())
		if trimmed == "" {
			return nil, &model.GeneratorError{Kind: model.GenMalformed, Reason: "empty output from cli", Wrapped: err}
		}
		return &GenerateResponse{Text: trimmed, ModelUsed: g.Model}, nil
	}
	if out.IsError || out.Error != "" {
		reason := out.Error
		if reason == "" {
			reason = "cli reported is_error"
		}
		return nil, &model.GeneratorError{Kind: model.GenContentFiltered, Reason: reason}
	}

	text := out.Result
	if text == "" {
		text = out.Content
	}
	var usage *TokenUsage
	if out.Usage.InputTokens > 0 || out.Usage.OutputTokens > 0 {
		usage = &TokenUsage{
			InputTokens:  out.Usage.InputTokens,
			OutputTokens: out.Usage.OutputTokens,
			TotalTokens:  out.Usage.InputTokens + out.Usage.OutputTokens,
		}
	}
	return &GenerateResponse{Text: text, TokenUsage: usage, ModelUsed: g.Model, FinishReason: "stop"}, nil
}
