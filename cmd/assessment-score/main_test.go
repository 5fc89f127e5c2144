package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/iso-assessment/internal/models"
)

func TestRun_Stdin(t *testing.T) {
	var out bytes.Buffer
	in := strings.NewReader(`{"c4_1": "5", "c4_2": "3", "a5_1": "0"}`)

	require.NoError(t, run("", "-", false, in, &out))

	var result models.CalculationResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, 80, result.Percentage)
	assert.Equal(t, 3, result.AnsweredCount)
	assert.Equal(t, 4, result.MaturityLevelNumber)
	assert.True(t, result.Partial)
}

func TestRun_FileWithMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answers.yaml")
	require.NoError(t, os.WriteFile(path, []byte("c4_1: \"2\"\nc4_2: \"seven\"\n"), 0o644))

	var out bytes.Buffer
	require.NoError(t, run("", path, true, nil, &out))

	var result models.CalculationResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, []string{"c4_2"}, result.MalformedAnswers)
	assert.Equal(t, 1, result.AnsweredCount)
	assert.Equal(t, 40, result.Percentage)
}

func TestRun_MissingFiles(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, run("/does/not/exist.yaml", "-", false, strings.NewReader("{}"), &out))
	assert.Error(t, run("", "/does/not/exist.json", false, nil, &out))
}
