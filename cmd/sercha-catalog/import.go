package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-catalog/internal/adapters/driven/algolia"
	"github.com/custodia-labs/sercha-catalog/internal/config"
	"github.com/custodia-labs/sercha-catalog/internal/core/domain"
	"github.com/custodia-labs/sercha-catalog/internal/core/services"
	"github.com/custodia-labs/sercha-catalog/internal/exportfmt"
)

// defaultImportBatchSize matches the largest page an export reads
const defaultImportBatchSize = 1000

var (
	importFormat    string
	importBatchSize int
)

var importCmd = &cobra.Command{
	Use:   "import <index> <file>",
	Short: "Load an export file back into an index",
	Long: "Reads records written by the export command and replaces them in the index,\n" +
		"creating the ones that are missing. The format follows the file extension unless --format is set.",
	Args: cobra.ExactArgs(2),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVarP(&importFormat, "format", "f", "", "input format: json or yaml (default from extension)")
	importCmd.Flags().IntVar(&importBatchSize, "batch-size", defaultImportBatchSize, "records per batch request")
}

func runImport(cmd *cobra.Command, args []string) error {
	indexName, path := args[0], args[1]

	records, err := readImportFile(path, importFormat)
	if err != nil {
		return err
	}

	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := algolia.NewClient(cfg.AlgoliaClientConfig())
	if err != nil {
		return fmt.Errorf("search backend: %w", err)
	}
	indexes := services.NewIndexService(client, nil)

	batches := chunkRecords(records, importBatchSize)
	for i, batch := range batches {
		result, err := indexes.CreateOrUpdate(ctx, indexName, batch)
		if err != nil {
			return fmt.Errorf("import %s: batch %d/%d: %w", indexName, i+1, len(batches), err)
		}
		log.Printf("batch %d/%d: %d records (task %d)", i+1, len(batches), len(result.ObjectIDs), result.TaskID)
	}

	log.Printf("imported %d records into %s", len(records), indexName)
	return nil
}

// readImportFile decodes an export file. An empty format is taken from the extension.
func readImportFile(path, format string) ([]domain.Record, error) {
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(path), ".")
	}
	f, err := exportfmt.ParseFormat(format)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	records, err := exportfmt.Read(bufio.NewReader(file), f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	for i, r := range records {
		if r.ObjectID() == "" {
			return nil, fmt.Errorf("%w: record %d in %s has no objectID", domain.ErrInvalidInput, i, path)
		}
	}
	return records, nil
}

// chunkRecords splits records into batches of at most size records
func chunkRecords(records []domain.Record, size int) [][]domain.Record {
	if size <= 0 {
		size = defaultImportBatchSize
	}
	var batches [][]domain.Record
	for start := 0; start < len(records); start += size {
		end := min(start+size, len(records))
		batches = append(batches, records[start:end])
	}
	return batches
}
