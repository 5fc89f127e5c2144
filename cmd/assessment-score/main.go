// Command assessment-score scores an answers file against a catalog
// without running the server.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/terra-clan/iso-assessment/internal/catalog"
	"github.com/terra-clan/iso-assessment/internal/models"
	"github.com/terra-clan/iso-assessment/internal/scoring"
)

func main() {
	var (
		catalogPath = flag.String("catalog", "", "catalog YAML file (default: embedded catalog)")
		answersPath = flag.String("answers", "-", "answers file, YAML or JSON mapping of question id to value; - reads stdin")
		pretty      = flag.Bool("pretty", true, "indent JSON output")
	)
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if err := run(*catalogPath, *answersPath, *pretty, os.Stdin, os.Stdout); err != nil {
		slog.Error("scoring failed", "error", err)
		os.Exit(1)
	}
}

func run(catalogPath, answersPath string, pretty bool, stdin io.Reader, stdout io.Writer) error {
	questionnaire, err := catalog.Load(catalogPath)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	answers, err := readAnswers(answersPath, stdin)
	if err != nil {
		return err
	}

	result := scoring.Calculate(questionnaire, answers)
	for _, qid := range result.MalformedAnswers {
		slog.Warn("malformed answer excluded", "question_id", qid, "value", answers[qid])
	}

	enc := json.NewEncoder(stdout)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}

func readAnswers(path string, stdin io.Reader) (models.Answers, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read answers: %w", err)
	}

	answers, err := catalog.ParseAnswers(data)
	if err != nil {
		return nil, fmt.Errorf("parse answers: %w", err)
	}
	return answers, nil
}
