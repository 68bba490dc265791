package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/logic25/beacon-sub000/internal/app"
	"github.com/logic25/beacon-sub000/internal/config"
	"github.com/logic25/beacon-sub000/internal/retrieval"
)

// runQuery retrieves assembled context and citations for a question.
// Usage: beacon query <question> [--top-k <n>] [--type <doc type>]
func runQuery(args []string) error {
	question, opts, err := parseQueryArgs(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			slog.Warn("app close error", "error", closeErr)
		}
	}()

	result, err := a.Retriever.Retrieve(ctx, question, opts...)
	if err != nil {
		return fmt.Errorf("retrieving context: %w", err)
	}

	printQueryResult(result)
	return nil
}

// parseQueryArgs splits the question text from the optional flags.
// Bare words before the first flag form the question.
func parseQueryArgs(args []string) (string, []retrieval.QueryOption, error) {
	var words []string
	var opts []retrieval.QueryOption

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--top-k":
			if i+1 >= len(args) {
				return "", nil, errors.New("--top-k requires a value")
			}
			k, err := strconv.Atoi(args[i+1])
			if err != nil {
				return "", nil, fmt.Errorf("invalid --top-k value %q: %w", args[i+1], err)
			}
			opts = append(opts, retrieval.WithTopK(k))
			i++
		case "--type":
			if i+1 >= len(args) {
				return "", nil, errors.New("--type requires a value")
			}
			opts = append(opts, retrieval.WithDocType(args[i+1]))
			i++
		default:
			words = append(words, args[i])
		}
	}

	question := strings.TrimSpace(strings.Join(words, " "))
	if question == "" {
		return "", nil, errors.New("usage: beacon query <question> [--top-k <n>] [--type <doc type>]")
	}
	return question, opts, nil
}

func printQueryResult(r retrieval.Result) {
	if r.ResultCount == 0 {
		fmt.Println("No relevant documents found.")
		return
	}

	fmt.Println(r.Context)
	fmt.Println()
	if len(r.Citations) > 0 {
		fmt.Println(retrieval.FormatCitations(r.Citations))
	}
	if r.Jurisdiction != "" {
		fmt.Printf("\nJurisdiction: %s\n", r.Jurisdiction)
	}
	fmt.Printf("Matched %d sources\n", r.ResultCount)
}
