package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-catalog/internal/adapters/driven/algolia"
	"github.com/custodia-labs/sercha-catalog/internal/config"
	"github.com/custodia-labs/sercha-catalog/internal/core/domain"
	"github.com/custodia-labs/sercha-catalog/internal/core/services"
	"github.com/custodia-labs/sercha-catalog/internal/exportfmt"
)

var (
	exportFormat   string
	exportOut      string
	exportPageSize int
)

var exportCmd = &cobra.Command{
	Use:   "export <index>",
	Short: "Write every record of an index to stdout or a file",
	Long: "Pages through the whole index in order and writes the records as JSON or YAML.\n" +
		"Runs in-process against the search backend; no database or worker is needed.",
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "output format: json or yaml")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")
	exportCmd.Flags().IntVar(&exportPageSize, "page-size", 0, "records per page (default EXPORT_PAGE_SIZE)")
}

func runExport(cmd *cobra.Command, args []string) error {
	format, err := exportfmt.ParseFormat(exportFormat)
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

	pageSize := exportPageSize
	if pageSize <= 0 {
		pageSize = cfg.Export.PageSize
	}

	client, err := algolia.NewClient(cfg.AlgoliaClientConfig())
	if err != nil {
		return fmt.Errorf("search backend: %w", err)
	}
	indexes := services.NewIndexService(client, nil)
	records, pages, err := indexes.FetchAllRecords(ctx, args[0], pageSize)
	if err != nil {
		return fmt.Errorf("export %s: %w", args[0], err)
	}

	if exportOut == "" {
		if err := exportfmt.Write(os.Stdout, format, records); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
	} else if err := writeExportFile(exportOut, format, records); err != nil {
		return err
	}

	log.Printf("exported %d records from %s (%d pages)", len(records), args[0], pages)
	return nil
}

func writeExportFile(path string, format exportfmt.Format, records []domain.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if err := exportfmt.Write(bw, format, records); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return f.Close()
}
