// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	utilidoc "github.com/poiesic/utilidoc"
	"github.com/poiesic/utilidoc/ai"
	"github.com/poiesic/utilidoc/config"
	"github.com/poiesic/utilidoc/ingestion"
	"github.com/poiesic/utilidoc/retrieval"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "utilidoc",
		Usage: "Validated document store and retrieval for scanned utility bills and contracts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "process",
				Usage:     "Run candidate JSON documents through the validation pipeline",
				ArgsUsage: "<file-or-directory>",
				Action:    processCommand,
			},
			{
				Name:      "query",
				Usage:     "Ask a question over the indexed knowledge base",
				ArgsUsage: "<question>",
				Action:    queryCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "Number of chunks to retrieve",
					},
					&cli.BoolFlag{
						Name:  "sources",
						Usage: "Print supporting chunk attribution",
					},
				},
			},
			{
				Name:   "flagged",
				Usage:  "List documents whose latest version is flagged for manual review",
				Action: flaggedCommand,
			},
			{
				Name:   "reindex",
				Usage:  "Index documents left stored but unindexed by earlier failures",
				Action: reindexCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func processCommand(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("a candidate JSON file or directory is required")
	}

	candidates, names, err := readCandidates(c.Args().First())
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return fmt.Errorf("no JSON documents found in %s", c.Args().First())
	}

	cfg, system, err := openSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	pipeline, err := system.NewPipeline(
		ingestion.WithPoolSize(cfg.Pipeline.PoolSize),
		ingestion.WithRetryPolicy(cfg.Pipeline.RetryAttempts,
			time.Duration(cfg.Pipeline.RetryDelayMs)*time.Millisecond),
	)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Release()

	report := pipeline.ProcessBatch(context.Background(), candidates)

	fmt.Printf("Run %s: %d document(s)\n", report.RunID, len(report.Results))
	for i, result := range report.Results {
		name := names[i]
		switch {
		case result.Err != nil:
			fmt.Printf("  %s: %s (%v)\n", name, result.State, result.Err)
		case result.Decision.Flag:
			fmt.Printf("  %s: %s v%d, flagged: %s\n", name, result.State, result.Version, result.Decision.Reason)
		default:
			fmt.Printf("  %s: %s v%d\n", name, result.State, result.Version)
		}
	}
	return nil
}

func queryCommand(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("a question is required")
	}
	question := strings.Join(c.Args().Slice(), " ")

	cfg, system, err := openSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	topK := cfg.Pipeline.RetrievalTopK
	if c.Int("top-k") > 0 {
		topK = c.Int("top-k")
	}

	engine, err := system.NewRetrievalEngine(retrieval.WithTopK(topK))
	if err != nil {
		return fmt.Errorf("failed to create retrieval engine: %w", err)
	}

	answer, err := engine.Answer(context.Background(), question)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	fmt.Println(answer.Text)
	if c.Bool("sources") && answer.Grounded {
		fmt.Println()
		for _, match := range answer.SupportingChunks {
			fmt.Printf("  [%.3f] %s\n", match.Score, match.Chunk.SourceFieldPath)
		}
	}
	return nil
}

func flaggedCommand(c *cli.Context) error {
	_, system, err := openSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	flagged, err := system.RecordStore().ListFlagged(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list flagged documents: %w", err)
	}

	if len(flagged) == 0 {
		fmt.Println("No documents flagged for review.")
		return nil
	}

	for _, version := range flagged {
		record := &version.Record
		summary := record.SourceID
		if record.Issuer != "" {
			summary += ", " + record.Issuer
		}
		if record.CustomerName != "" {
			summary += ", " + record.CustomerName
		}
		fmt.Printf("%s (v%d): %s\n", summary, version.Version, version.Decision.Reason)
	}
	return nil
}

func reindexCommand(c *cli.Context) error {
	cfg, system, err := openSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	pipeline, err := system.NewPipeline(
		ingestion.WithRetryPolicy(cfg.Pipeline.RetryAttempts,
			time.Duration(cfg.Pipeline.RetryDelayMs)*time.Millisecond),
	)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Release()

	indexed, errs := pipeline.Reindex(context.Background())
	fmt.Printf("Indexed %d document(s), %d failure(s)\n", indexed, len(errs))
	for _, e := range errs {
		fmt.Printf("  %v\n", e)
	}
	if len(errs) > 0 {
		return fmt.Errorf("reindex completed with failures")
	}
	return nil
}

// openSystem loads configuration and opens the wired system.
func openSystem(c *cli.Context) (*config.AppConfig, *utilidoc.System, error) {
	var cfg *config.AppConfig
	var err error
	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, _, err = config.LoadDefault()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	aiConfig := ai.NewConfig(
		ai.WithHost(cfg.AI.Host),
		ai.WithToken(cfg.Token()),
		ai.WithEmbeddingModel(cfg.AI.EmbeddingModel),
		ai.WithExtractionModel(cfg.AI.ExtractionModel),
		ai.WithSynthesisModel(cfg.AI.SynthesisModel),
		ai.WithEmbeddingBatchSize(cfg.AI.BatchSize),
		ai.WithRequestTimeout(time.Duration(cfg.AI.TimeoutSecs)*time.Second),
	)

	system, err := utilidoc.NewSystem(cfg.Storage.Path, utilidoc.WithAIConfig(aiConfig))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open system: %w", err)
	}
	return cfg, system, nil
}

// readCandidates loads candidate JSON documents from a file or directory.
// Returns document bytes and matching display names.
func readCandidates(path string) ([][]byte, []string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, err
	}

	if !info.IsDir() {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, err
		}
		return [][]byte{data}, []string{filepath.Base(path)}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, nil, err
	}

	var candidates [][]byte
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(path, entry.Name()))
		if err != nil {
			return nil, nil, err
		}
		candidates = append(candidates, data)
		names = append(names, entry.Name())
	}
	return candidates, names, nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
