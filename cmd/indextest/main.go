// Command indextest loads an index file and writes it back out, so the two
// files can be compared to check that loading and saving agree.
//
//	indextest <oldIndexFilename> <newIndexFilename>
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: indextest [-config file] <oldIndexFilename> <newIndexFilename>")
	}
	flag.Parse()

	if err := run(*configPath, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", apperrors.Reason(err))
		os.Exit(apperrors.ExitCode(err))
	}
}

func run(configPath string, args []string) error {
	if len(args) != 2 {
		return apperrors.Newf(apperrors.ErrUsage, "expected 2 arguments but received %d", len(args))
	}
	oldFile, newFile := args[0], args[1]
	if oldFile == "" || newFile == "" {
		return apperrors.New(apperrors.ErrInvalidArgument, "empty argument passed")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return apperrors.Newf(apperrors.ErrInvalidArgument, "loading config: %v", err)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	idx, err := index.Load(oldFile, cfg.Search.CapacityHint)
	if err != nil {
		return err
	}
	if err := idx.Save(newFile); err != nil {
		return err
	}
	slog.Info("index copied", "from", oldFile, "to", newFile, "words", idx.Len())
	return nil
}
