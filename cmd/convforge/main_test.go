package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// project lays out a settings file, one scenario and an optional dataset in
// a temp directory and returns the settings path.
func project(t *testing.T, datasetLines ...string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	experiences := filepath.Join(dir, "experiences")
	require.NoError(t, os.MkdirAll(experiences, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(experiences, "garden.yaml"), []byte(`
description: Two neighbors tend a shared garden.
dialogue:
  - speaker: human
    message: The tomatoes came in early.
  - speaker: neighbor
    message: Then we owe the bees a thank-you.
generations: 4
`), 0o644))

	cfgPath := filepath.Join(dir, "convforge.yml")
	cfg := "path:\n  experiences: " + experiences + "\n  output: " + filepath.Join(dir, "output") + "\nlog:\n  level: error\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))

	if len(datasetLines) > 0 {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "output"), 0o755))
		data := strings.Join(datasetLines, "\n") + "\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, "output", "generated_conversations.jsonl"), []byte(data), 0o644))
	}
	return dir, cfgPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

const goodLine = `{"conversations":[{"from":"human","value":"a"},{"from":"gpt","value":"b"}]}`

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, version+"\n", out)
}

func TestValidateCommand(t *testing.T) {
	_, cfgPath := project(t, goodLine, `{"conversations":[{"from":"gpt","value":"a"},{"from":"human","value":"b"}]}`)

	out, err := execute(t, "--config", cfgPath, "validate")
	require.Error(t, err)
	assert.Contains(t, out, "line 2")
	assert.Contains(t, out, "1 valid conversation(s)")

	out, err = execute(t, "--config", cfgPath, "validate", "--first-speaker-mode", "infer")
	require.Error(t, err, "a conversation ending on a human turn is never clean")
	assert.Contains(t, out, "ends with a human turn")
}

func TestValidateCommand_Clean(t *testing.T) {
	_, cfgPath := project(t, goodLine)
	out, err := execute(t, "--config", cfgPath, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "is clean")
}

func TestStatusCommand(t *testing.T) {
	_, cfgPath := project(t, goodLine)

	out, err := execute(t, "--config", cfgPath, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "garden.yaml")
	assert.Contains(t, out, "Total generations scheduled: 4")
	assert.Contains(t, out, "conversations  1")

	out, err = execute(t, "--config", cfgPath, "status", "--json")
	require.NoError(t, err)
	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.EqualValues(t, 4, report["totalGenerations"])
}

func TestExportCommand(t *testing.T) {
	dir, cfgPath := project(t, goodLine, goodLine)
	outPath := filepath.Join(dir, "export.json")

	_, err := execute(t, "--config", cfgPath, "export", "-o", outPath)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var doc struct {
		Count         int `json:"count"`
		Conversations []struct {
			Conversations []map[string]string `json:"conversations"`
		} `json:"conversations"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, 2, doc.Count)
	assert.Len(t, doc.Conversations, 2)
}

func TestExportCommand_Seeds(t *testing.T) {
	_, cfgPath := project(t)
	out, err := execute(t, "--config", cfgPath, "export", "--seeds")
	require.NoError(t, err)
	assert.Equal(t,
		`{"conversations":[{"from":"human","value":"The tomatoes came in early."},{"from":"gpt","value":"Then we owe the bees a thank-you."}]}`+"\n",
		out)
}

func TestWriteOutput(t *testing.T) {
	var stdout bytes.Buffer
	require.NoError(t, writeOutput(&stdout, "", func(w io.Writer) error {
		_, err := io.WriteString(w, "to stdout")
		return err
	}))
	assert.Equal(t, "to stdout", stdout.String())

	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, writeOutput(&stdout, path, func(w io.Writer) error {
		_, err := io.WriteString(w, "to file")
		return err
	}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "to file", string(data))
	assert.Equal(t, "to stdout", stdout.String())
}

func TestWriteOutput_Errors(t *testing.T) {
	err := writeOutput(nil, filepath.Join(t.TempDir(), "missing", "out.json"), func(io.Writer) error {
		t.Fatal("fn must not run when the file cannot be created")
		return nil
	})
	assert.ErrorContains(t, err, "create")

	boom := errors.New("boom")
	err = writeOutput(nil, filepath.Join(t.TempDir(), "out.json"), func(io.Writer) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestGenerateCommand_RequiresModel(t *testing.T) {
	_, cfgPath := project(t)
	_, err := execute(t, "--config", cfgPath, "generate", "-q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api.model")
}

func TestInit(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer

	require.NoError(t, runInit(&out, dir, false))
	assert.FileExists(t, filepath.Join(dir, "convforge.yml"))
	assert.FileExists(t, filepath.Join(dir, "experiences", "harbor_tavern.yaml"))
	assert.Contains(t, out.String(), "created .mcp.json")

	data, err := os.ReadFile(filepath.Join(dir, ".mcp.json"))
	require.NoError(t, err)
	var cfg mcpConfig
	require.NoError(t, json.Unmarshal(data, &cfg))
	assert.Contains(t, cfg.MCPServers, "convforge")

	out.Reset()
	require.NoError(t, runInit(&out, dir, false))
	assert.Contains(t, out.String(), "skipped ./convforge.yml")
	assert.Contains(t, out.String(), "skipped .mcp.json convforge entry")
}

func TestMergeMCPConfig_KeepsOtherServers(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".mcp.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"mcpServers":{"other":{"command":"other"}}}`), 0o644))

	var out bytes.Buffer
	require.NoError(t, mergeMCPConfig(&out, path, false))
	assert.Contains(t, out.String(), "updated .mcp.json")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var cfg mcpConfig
	require.NoError(t, json.Unmarshal(data, &cfg))
	assert.Contains(t, cfg.MCPServers, "other")
	assert.Contains(t, cfg.MCPServers, "convforge")
}

// sseReply streams text as a single chat completion chunk.
func sseReply(text string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		chunk, _ := json.Marshal(map[string]any{
			"choices": []map[string]any{{"index": 0, "delta": map[string]string{"content": text}}},
		})
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, "data: %s\n\n", chunk)
		fmt.Fprint(w, "data: [DONE]\n\n")
	}
}

func TestGenerateCommand_AllDiscardedIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(sseReply(`{"conversations":[{"from":"human","value":"hi"},{"from":"gpt","value":"a tapestry"}]}`))
	defer srv.Close()

	dir, cfgPath := project(t)
	cfg := fmt.Sprintf("api:\n  model: test-model\n  base_url: %s\n  api_key: sk-test\npath:\n  experiences: %s\n  output: %s\nlog:\n  level: error\n",
		srv.URL, filepath.Join(dir, "experiences"), filepath.Join(dir, "output"))
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))

	out, err := execute(t, "--config", cfgPath, "generate", "-q")
	require.NoError(t, err)
	assert.Contains(t, out, "discarded  4")
	assert.Contains(t, out, "persisted  0")
}
