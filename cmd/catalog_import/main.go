// Command catalog_import loads item names into the skins table. The input is
// either a JSON object keyed by market hash name (as price dumps are), a JSON
// array of names, or plain text with one name per line.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"skinquote/internal/catalog"
	"skinquote/internal/logger"
)

func main() {
	file := pflag.StringP("file", "f", "", "names file (json object, json array or text)")
	databaseURL := pflag.StringP("database-url", "d", os.Getenv("DATABASE_URL"), "postgres url; defaults to DATABASE_URL")
	timeout := pflag.Duration("timeout", 5*time.Minute, "overall timeout")
	pflag.Parse()

	log, _, err := logger.New(logger.Config{Level: "info", Format: "console"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "catalog_import: %v\n", err)
		os.Exit(2)
	}

	if err := run(log, *file, *databaseURL, *timeout); err != nil {
		log.Error("import failed", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
	_ = log.Sync()
}

func run(log *zap.Logger, file, databaseURL string, timeout time.Duration) error {
	if file == "" || databaseURL == "" {
		return errors.New("--file and --database-url (or DATABASE_URL) are required")
	}

	names, err := readNames(file)
	if err != nil {
		return fmt.Errorf("read names from %s: %w", file, err)
	}
	log.Info("loaded names", zap.Int("count", len(names)))

	store, err := catalog.OpenPostgres(databaseURL, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("failed to close catalog database", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	inserted, err := store.InsertNames(ctx, names)
	if err != nil {
		return err
	}
	log.Info("import done", zap.Int64("inserted", inserted), zap.Int("skipped", len(names)-int(inserted)))
	return nil
}

func readNames(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseNames(b)
}

// parseNames returns the distinct, non-blank names in b, sorted.
func parseNames(b []byte) ([]string, error) {
	var raw []string
	switch trimmed := bytes.TrimSpace(b); {
	case bytes.HasPrefix(trimmed, []byte("{")):
		var m map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &m); err != nil {
			return nil, fmt.Errorf("parse json object: %w", err)
		}
		for k := range m {
			raw = append(raw, k)
		}
	case bytes.HasPrefix(trimmed, []byte("[")):
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, fmt.Errorf("parse json array: %w", err)
		}
	default:
		sc := bufio.NewScanner(bytes.NewReader(trimmed))
		for sc.Scan() {
			raw = append(raw, sc.Text())
		}
		if err := sc.Err(); err != nil {
			return nil, err
		}
	}

	seen := make(map[string]struct{}, len(raw))
	names := make([]string, 0, len(raw))
	for _, n := range raw {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}
