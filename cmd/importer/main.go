// Command importer runs one spreadsheet through the import pipeline
// without the HTTP server. The file may be a local path or an
// s3://bucket/key URI.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kha159-create/alsani-cockpit/internal/archive"
	"github.com/kha159-create/alsani-cockpit/internal/config"
	"github.com/kha159-create/alsani-cockpit/internal/docstore"
	"github.com/kha159-create/alsani-cockpit/internal/importer"
	"github.com/kha159-create/alsani-cockpit/internal/importlog"
	"github.com/kha159-create/alsani-cockpit/internal/llm"
	"github.com/kha159-create/alsani-cockpit/internal/sheet"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	dryRun := flag.Bool("dry-run", false, "classify only, write nothing")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: importer [-config path] [-dry-run] <file.xlsx|file.xls|file.csv|s3://bucket/key>\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	src := flag.Arg(0)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, src, *dryRun); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, src string, dryRun bool) error {
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fmt.Println("=========================================================")
	fmt.Println(" Alsani Cockpit Import")
	fmt.Println("=========================================================")
	fmt.Printf("Source:       %s\n", src)
	fmt.Printf("Store:        %s\n", cfg.Store.Type)
	fmt.Printf("Provider:     %s\n", cfg.LLM.Provider)
	fmt.Println("---------------------------------------------------------")

	name, data, err := load(ctx, cfg.AWS, src)
	if err != nil {
		return err
	}
	table, err := sheet.Read(name, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	fmt.Printf("Rows:         %d\n", len(table.Rows))

	gen, err := llm.NewFromConfig(ctx, cfg.LLM, cfg.AWS)
	if err != nil {
		return err
	}
	prompts, err := llm.NewPrompts(cfg.LLM.Language)
	if err != nil {
		return err
	}
	classifier, err := importer.NewClassifier(gen, prompts)
	if err != nil {
		return err
	}

	if dryRun {
		res, err := classifier.Classify(ctx, importer.NewPreview(table.Headers, table.Rows))
		if err != nil {
			return err
		}
		fmt.Printf("File type:    %s\n", res.Shape)
		if res.Layout != importer.LayoutNone {
			fmt.Printf("Format:       %s\n", res.Layout)
		}
		return nil
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
	}
	store, err := docstore.Open(ctx, cfg.Store, rdb)
	if err != nil {
		return err
	}
	defer store.Close()

	pipeline := importer.NewPipeline(classifier, store,
		importer.WithChunkSize(cfg.Importer.ChunkSize),
		importer.WithRouter(importer.PrefixRouter{DuvetPrefixes: cfg.Importer.DuvetAliasPrefixes}),
	)

	start := time.Now()
	out, importErr := pipeline.ImportTable(ctx, table.Headers, table.Rows, func(p float64) {
		fmt.Printf("  progress %6.2f%%\n", p)
	})
	if out != nil {
		fmt.Println("---------------------------------------------------------")
		fmt.Printf("File type:    %s\n", out.Shape)
		if out.Layout != importer.LayoutNone {
			fmt.Printf("Format:       %s\n", out.Layout)
		}
		fmt.Printf("Accepted:     %d\n", len(out.Successful))
		fmt.Printf("Skipped:      %d\n", out.Skipped)
		fmt.Printf("Chunks:       %d\n", out.Chunks)
		fmt.Printf("Stage:        %s\n", out.Stage)
		fmt.Printf("Elapsed:      %s\n", time.Since(start).Round(time.Millisecond))
		recordImport(ctx, cfg.AWS, name, src, out, importErr)
	}

	var commitErr *importer.CommitError
	if errors.As(importErr, &commitErr) {
		return fmt.Errorf("import stopped at chunk %d (%.2f%% written): %w", commitErr.Chunk, out.Progress, importErr)
	}
	return importErr
}

// load reads the source file, from S3 when given an s3:// URI.
func load(ctx context.Context, awsCfg config.AWSConfig, src string) (string, []byte, error) {
	if !strings.HasPrefix(src, "s3://") {
		data, err := os.ReadFile(src)
		if err != nil {
			return "", nil, err
		}
		return src, data, nil
	}
	bucket, key, err := archive.ParseURI(src)
	if err != nil {
		return "", nil, err
	}
	sdkCfg, err := awsCfg.SDKConfig(ctx, "")
	if err != nil {
		return "", nil, err
	}
	data, err := archive.NewFromConfig(sdkCfg, bucket).Fetch(ctx, bucket, key)
	if err != nil {
		return "", nil, err
	}
	return path.Base(key), data, nil
}

// recordImport writes the run to the DynamoDB import log when one is
// configured. Failures are reported but do not fail the run.
func recordImport(ctx context.Context, awsCfg config.AWSConfig, name, src string, out *importer.Outcome, importErr error) {
	if awsCfg.ImportLogTable == "" {
		return
	}
	sdkCfg, err := awsCfg.SDKConfig(ctx, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: import log skipped: %v\n", err)
		return
	}
	entry := importlog.Entry{
		FileName: name,
		Accepted: len(out.Successful),
		Skipped:  out.Skipped,
		Progress: out.Progress,
		Stage:    string(out.Stage),
		User:     "cli",
	}
	if out.Shape != importer.ShapeUnknown {
		entry.Shape = out.Shape.String()
		if out.Layout != importer.LayoutNone {
			entry.Layout = out.Layout.String()
		}
	}
	if strings.HasPrefix(src, "s3://") {
		entry.ArchiveKey = src
	}
	if importErr != nil {
		entry.Error = importErr.Error()
	}
	if err := importlog.NewDynamoLogFromConfig(sdkCfg, awsCfg.ImportLogTable).Record(ctx, entry); err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: import log write failed: %v\n", err)
	}
}
