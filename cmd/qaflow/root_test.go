package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/mark3labs/qaflow/flyt"
	"github.com/mark3labs/qaflow/internal/agent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDeepSeek answers on the chat model and replays verdicts on the reasoner.
func fakeDeepSeek(t *testing.T, verdicts ...string) (*httptest.Server, *[]string) {
	t.Helper()
	var (
		mu     sync.Mutex
		models []string
		judged int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string `json:"model"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		mu.Lock()
		models = append(models, req.Model)
		content := "4"
		if req.Model == agent.DefaultValidatorModel {
			i := min(judged, len(verdicts)-1)
			content = verdicts[i]
			judged++
		}
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 0,
			"model":   req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
	t.Cleanup(srv.Close)

	t.Setenv("QAFLOW_LLM_BASE_URL", srv.URL)
	t.Setenv("DEEPSEEK_API_KEY", "test-key")
	t.Setenv("QAFLOW_LOG_LEVEL", "error")
	return srv, &models
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootAnswersQuestion(t *testing.T) {
	_, models := fakeDeepSeek(t, "```yaml\nis_correct: true\nreason: \"basic arithmetic\"\n```")

	out, err := execute(t, "", "--question", "What is 2+2?")
	require.NoError(t, err)

	assert.Equal(t, strings.Join([]string{
		"Main function called",
		"Question: What is 2+2?",
		"Answer: 4",
		"Is correct: true",
		"Reason: basic arithmetic",
		"",
	}, "\n"), out)
	assert.Equal(t, []string{agent.DefaultAnswerModel, agent.DefaultValidatorModel}, *models)
}

func TestRootPromptsForQuestion(t *testing.T) {
	fakeDeepSeek(t, "is_correct: true\nreason: ok")

	out, err := execute(t, "Who wrote Hamlet?\n")
	require.NoError(t, err)
	assert.Contains(t, out, questionPrompt)
	assert.Contains(t, out, "Question: Who wrote Hamlet?")
}

func TestRootEmptyQuestion(t *testing.T) {
	fakeDeepSeek(t, "is_correct: true\nreason: ok")

	_, err := execute(t, "\n")
	assert.ErrorIs(t, err, agent.ErrEmptyQuestion)
}

func TestRootMaxRounds(t *testing.T) {
	_, models := fakeDeepSeek(t, "is_correct: false\nreason: \"still wrong\"")

	out, err := execute(t, "", "--question", "q", "--max-rounds", "2")
	require.Error(t, err)
	assert.ErrorIs(t, err, flyt.ErrMaxVisitsExceeded)

	assert.Len(t, *models, 4)
	assert.Contains(t, out, "Is correct: false")
	assert.Contains(t, out, "Reason: still wrong")
}

func TestRootMalformedVerdict(t *testing.T) {
	fakeDeepSeek(t, "reason: \"no flag\"")

	out, err := execute(t, "", "--question", "q")
	assert.ErrorIs(t, err, agent.ErrMissingIsCorrect)
	assert.Contains(t, out, "Is correct: unknown")
}

func TestRootRejectsBadLogFormat(t *testing.T) {
	fakeDeepSeek(t, "is_correct: true\nreason: ok")

	_, err := execute(t, "", "--question", "q", "--log-format", "xml")
	assert.ErrorContains(t, err, "log.format")
}

func TestChunkCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("abcde", 6)), 0o644))

	out, err := execute(t, "", "chunk", path, "--size", "20", "--overlap", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "Original text length: 30\n")
	assert.Contains(t, out, "Number of chunks: 2\n")
	assert.Contains(t, out, "Chunk 2 (length 15): ")
}

func TestLoadCommand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("second"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("first"), 0o644))

	out, err := execute(t, "", "load", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded 2 files")
	assert.Contains(t, out, "Sample essay (ID: a.txt):\nfirst")
}

func TestIndexDemoCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idx", "demo.gob")

	out, err := execute(t, "", "index-demo", "--dim", "8", "--count", "3", "--top-k", "5", "--path", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Added 3 vectors to index")
	assert.Contains(t, out, "Testing loaded index:")
	assert.Equal(t, 6, strings.Count(out, "  Result "), "padding rows are not printed")
	assert.FileExists(t, path)
}

func TestIndexDemoRejectsBadSizes(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"negative dim", []string{"--dim", "-3"}, "--dim must be positive"},
		{"zero dim", []string{"--dim", "0"}, "--dim must be positive"},
		{"negative count", []string{"--count", "-1"}, "--count must be positive"},
		{"zero count", []string{"--count", "0"}, "--count must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, "", append([]string{"index-demo"}, tt.args...)...)
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.want)
			assert.NotContains(t, out, "Added")
		})
	}
}

func TestPrintState(t *testing.T) {
	yes := true
	var buf bytes.Buffer
	printState(&buf, &agent.State{Question: "q", Answer: "a", IsCorrect: &yes, Reason: "r"})
	assert.Equal(t, "Question: q\nAnswer: a\nIs correct: true\nReason: r\n", buf.String())
}
