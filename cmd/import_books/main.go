// Command import_books loads a YAML catalog into the library database.
//
// The catalog is a list of books:
//
//	- code: LIT-001
//	  title: "1984"
//	  author: George Orwell
//	  genre: Dystopian
//	  published: 1949-06-08
//	  is_ebook: true
//	  ebook_path: texts/1984.txt
//
// Relative ebook paths resolve against the catalog file's directory.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"library-insight/internal/config"
	"library-insight/internal/logging"
	"library-insight/library"
)

type catalogEntry struct {
	Code        string `yaml:"code"`
	Title       string `yaml:"title"`
	Author      string `yaml:"author"`
	Publisher   string `yaml:"publisher"`
	Genre       string `yaml:"genre"`
	Description string `yaml:"description"`
	Published   string `yaml:"published"`
	IsEbook     bool   `yaml:"is_ebook"`
	EbookPath   string `yaml:"ebook_path"`
	CoverPath   string `yaml:"cover_path"`
}

func (e catalogEntry) book(baseDir string) (library.Book, error) {
	b := library.Book{
		Code:        e.Code,
		Title:       e.Title,
		Author:      e.Author,
		Publisher:   e.Publisher,
		Genre:       e.Genre,
		Description: e.Description,
		IsEbook:     e.IsEbook,
		EbookPath:   e.EbookPath,
		CoverPath:   e.CoverPath,
	}
	if e.Published != "" {
		t, err := time.Parse("2006-01-02", e.Published)
		if err != nil {
			return b, fmt.Errorf("published date %q: %w", e.Published, err)
		}
		b.PublishedAt = t
	}
	if b.EbookPath != "" && !filepath.IsAbs(b.EbookPath) {
		b.EbookPath = filepath.Join(baseDir, b.EbookPath)
	}
	if b.IsEbook {
		if _, err := os.Stat(b.EbookPath); err != nil {
			return b, fmt.Errorf("ebook file: %w", err)
		}
	}
	return b, nil
}

func loadCatalog(path string) ([]catalogEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var entries []catalogEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return entries, nil
}

func main() {
	var (
		catalogPath string
		dbPath      string
		fresh       bool
	)
	cmd := &cobra.Command{
		Use:          "import_books",
		Short:        "Import a YAML book catalog into the library database",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load("")
			if err != nil {
				return err
			}
			if dbPath == "" {
				dbPath = cfg.Database.Path
			}
			log := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
			return run(catalogPath, dbPath, fresh, log)
		},
	}
	cmd.Flags().StringVar(&catalogPath, "catalog", "catalog.yaml", "YAML catalog file")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (default from config)")
	cmd.Flags().BoolVar(&fresh, "fresh", false, "remove the existing database first")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(catalogPath, dbPath string, fresh bool, log zerolog.Logger) error {
	if fresh {
		fmt.Println("Cleaning up existing database files...")
		for _, file := range []string{dbPath, dbPath + "-shm", dbPath + "-wal"} {
			if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
				fmt.Printf("Warning: Could not remove %s: %v\n", file, err)
			}
		}
		fmt.Println("Database cleanup complete.")
	}

	entries, err := loadCatalog(catalogPath)
	if err != nil {
		return err
	}

	manager, err := library.NewLibraryManager(dbPath, library.Options{Logger: &log})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer manager.Close()

	fmt.Printf("Importing %d book(s) from %s...\n", len(entries), catalogPath)
	baseDir := filepath.Dir(catalogPath)
	successCount, errorCount := 0, 0
	for i, e := range entries {
		fmt.Printf("Importing: %s by %s... ", e.Title, e.Author)
		b, err := e.book(baseDir)
		if err == nil {
			b, err = manager.AddBook(b)
		}
		if err != nil {
			fmt.Printf("FAILED: %v\n", err)
			log.Warn().Err(err).Int("entry", i+1).Str("title", e.Title).Msg("import failed")
			errorCount++
			continue
		}
		fmt.Printf("SUCCESS (ID: %d)\n", b.ID)
		successCount++
	}

	fmt.Printf("\nImport complete: %d succeeded, %d failed\n", successCount, errorCount)
	if errorCount > 0 {
		return fmt.Errorf("%d book(s) failed to import", errorCount)
	}
	return nil
}
