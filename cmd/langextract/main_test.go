package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/langextract/backend/pkg/config"
)

func newInputCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addInputFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestReadInput(t *testing.T) {
	text, err := readInput(newInputCmd(t, "--text", "Ali lives in Tehran."))
	require.NoError(t, err)
	assert.Equal(t, "Ali lives in Tehran.", text)

	path := filepath.Join(t.TempDir(), "in.txt")
	require.NoError(t, os.WriteFile(path, []byte("علی در تهران"), 0o600))
	text, err = readInput(newInputCmd(t, "--file", path))
	require.NoError(t, err)
	assert.Equal(t, "علی در تهران", text)

	cmd := newInputCmd(t, "--file", "-")
	cmd.SetIn(strings.NewReader("from stdin"))
	text, err = readInput(cmd)
	require.NoError(t, err)
	assert.Equal(t, "from stdin", text)

	_, err = readInput(newInputCmd(t))
	assert.Error(t, err)

	_, err = readInput(newInputCmd(t, "--text", "a", "--file", path))
	assert.Error(t, err)
}

func TestAnalyzeRequestModelsList(t *testing.T) {
	cfg = &config.Config{LLM: config.LLMConfig{Temperature: 0.5}}
	defer func() { cfg = nil }()

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().AddFlagSet(analyzeCmd.Flags())
	require.NoError(t, cmd.ParseFlags([]string{"--models", "llama3, qwen2 ,gemma3"}))

	req, err := analyzeRequest(cmd, "text")
	require.NoError(t, err)
	assert.Equal(t, "llama3", req.ModelFirst)
	assert.Equal(t, "qwen2", req.ModelSecond)
	assert.Equal(t, "gemma3", req.ModelReferee)
	assert.InDelta(t, 0.5, req.Temperature, 1e-6)

	bad := &cobra.Command{Use: "test"}
	bad.Flags().AddFlagSet(analyzeCmd.Flags())
	require.NoError(t, bad.ParseFlags([]string{"--models", "a,b"}))
	_, err = analyzeRequest(bad, "text")
	assert.Error(t, err)
}

func TestWriteJSONKeepsNonASCII(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, map[string]string{"name": "علی <x>"}))
	assert.Contains(t, buf.String(), "علی <x>")
}

func TestDomainsCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"domains"})
	defer rootCmd.SetArgs(nil)

	require.NoError(t, rootCmd.Execute())
	for _, d := range []string{"general", "legal", "medical", "police"} {
		assert.Contains(t, out.String(), d)
	}
}
