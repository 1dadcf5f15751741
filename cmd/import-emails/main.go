package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"stylomail/internal/config"
	"stylomail/internal/database"
	"stylomail/internal/emails"
	"stylomail/internal/embeddings"
	"stylomail/internal/ingest"
	"stylomail/internal/models"
	"stylomail/internal/openai"
)

func main() {
	// Parse command line flags
	dirPath := flag.String("dir", "", "Path to directory containing email files")
	emlPath := flag.String("eml", "", "Path to a single EML file")
	mboxPath := flag.String("mbox", "", "Path to MBOX file")
	flatPath := flag.String("flat", "", "Path to flat header/body text file")
	generateEmbeddings := flag.Bool("embeddings", true, "Index emails in the vector store after import")
	reconcile := flag.Bool("reconcile", false, "Re-index every stored email instead of importing")
	flag.Parse()

	if *dirPath == "" && *emlPath == "" && *mboxPath == "" && *flatPath == "" && !*reconcile {
		fmt.Println("Usage:")
		fmt.Println("  Import directory:  import-emails -dir /path/to/directory")
		fmt.Println("  Import EML file:   import-emails -eml /path/to/file.eml")
		fmt.Println("  Import MBOX:       import-emails -mbox /path/to/file.mbox")
		fmt.Println("  Import flat file:  import-emails -flat /path/to/file.txt")
		fmt.Println("  Skip index:        import-emails -dir /path -embeddings=false")
		fmt.Println("  Rebuild index:     import-emails -reconcile")
		os.Exit(1)
	}

	// Load configuration
	cfg := config.Load()

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	store := database.NewEmailStore(db)
	ctx := context.Background()

	fmt.Println("Creating email tables...")
	if err := store.CreateTables(ctx); err != nil {
		log.Fatalf("Failed to create email tables: %v", err)
	}

	service := buildService(ctx, cfg, store, *generateEmbeddings || *reconcile)

	if *reconcile {
		fmt.Println("Rebuilding vector index from the store...")
		count, failed, err := service.Reconcile(ctx)
		if err != nil {
			log.Fatalf("Reconcile failed: %v", err)
		}
		fmt.Printf("Re-indexed %d emails (%d failures)\n", count, len(failed))
		return
	}

	var batch []*models.Email
	var parseErrors []error

	switch {
	case *dirPath != "":
		fmt.Printf("Scanning directory: %s\n", *dirPath)
		batch, parseErrors = emails.ParseDirectory(*dirPath)
	case *emlPath != "":
		if !strings.HasSuffix(strings.ToLower(*emlPath), ".eml") {
			log.Fatalf("Invalid file type, expected a .eml file")
		}
		fmt.Printf("Parsing EML file: %s\n", *emlPath)
		email, err := emails.ParseEMLFile(*emlPath)
		if err != nil {
			log.Fatalf("Failed to parse EML file: %v", err)
		}
		batch = []*models.Email{email}
	case *mboxPath != "":
		fmt.Printf("Parsing MBOX file: %s\n", *mboxPath)
		batch, err = emails.ParseMBOXFile(*mboxPath)
		if err != nil {
			log.Fatalf("Failed to parse MBOX file: %v", err)
		}
	case *flatPath != "":
		fmt.Printf("Parsing flat file: %s\n", *flatPath)
		batch, err = emails.ParseAnyFile(*flatPath)
		if err != nil {
			log.Fatalf("Failed to parse flat file: %v", err)
		}
	}

	for _, parseErr := range parseErrors {
		fmt.Printf("Warning: %v\n", parseErr)
	}
	fmt.Printf("Successfully parsed %d emails\n", len(batch))

	report := service.Ingest(ctx, batch)
	fmt.Printf("Inserted %d, skipped %d, failed %d\n", report.Inserted, report.Skipped, report.Failed)
	if len(report.IndexFailed) > 0 {
		fmt.Printf("Warning: %d emails stored but not indexed; run -reconcile to retry\n", len(report.IndexFailed))
	}
}

// buildService wires the ingestion pipeline, with or without the
// vector index.
func buildService(ctx context.Context, cfg *config.Config, store *database.EmailStore, withIndex bool) *ingest.Service {
	if !withIndex {
		return ingest.NewService(store, nil, nil)
	}

	aiClient, err := openai.NewClient(cfg)
	if err != nil {
		log.Fatalf("Failed to create OpenAI client: %v", err)
	}
	embedder := embeddings.NewEmbedder(aiClient, cfg.EmbeddingQueryPrefix, cfg.EmbeddingPassagePrefix)

	index, err := embeddings.NewIndex(cfg.QdrantHost, cfg.QdrantPort, cfg.QdrantAPIKey, cfg.QdrantUseTLS, cfg.QdrantCollection, cfg.EmbeddingDim)
	if err != nil {
		log.Fatalf("Failed to connect to vector index: %v", err)
	}
	if err := index.EnsureCollection(ctx); err != nil {
		log.Fatalf("Failed to ensure collection: %v", err)
	}

	return ingest.NewService(store, embedder, index)
}
