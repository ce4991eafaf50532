package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"sahayak-backend/models"
	"sahayak-backend/repository"
	"sahayak-backend/scraper"

	"github.com/fatih/color"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

var (
	totalResults = flag.Int("total", 2389, "Total number of schemes to fetch from the search API")
	pageSize     = flag.Int("page-size", scraper.DefaultPageSize, "Search API page size")
	limit        = flag.Int("limit", 0, "Stop after this many schemes (0 = no limit)")
)

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		fmt.Println("\nStopping...")
		cancel()
	}()

	connString := os.Getenv("DATABASE_URL")
	if connString == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	documents := repository.NewDocumentRepository(pool)
	client := scraper.NewClient(os.Getenv("MYSCHEME_API_KEY"), scraper.WithPageSize(*pageSize))

	boldGreen := color.New(color.FgGreen, color.Bold).SprintFunc()
	boldRed := color.New(color.FgRed, color.Bold).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	fmt.Println(boldGreen("Sahayak corpus scraper"))
	fmt.Printf("Fetching up to %s scheme slugs...\n", cyan(*totalResults))

	slugs, errs := client.FetchSlugs(ctx, *totalResults)
	for _, err := range errs {
		fmt.Fprintf(os.Stderr, "%s %v\n", boldRed("slug fetch:"), err)
	}
	fmt.Printf("Found %s schemes\n", cyan(len(slugs)))

	var stored, failed int
	for _, slug := range slugs {
		if ctx.Err() != nil {
			break
		}
		if *limit > 0 && stored >= *limit {
			break
		}

		content, err := client.FetchSchemeContent(ctx, slug)
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "%s %s: %v\n", boldRed("scrape:"), slug, err)
			continue
		}

		doc := &models.Document{
			Content:   content,
			SourceURL: client.SchemeURL(slug),
			Metadata:  map[string]string{"slug": slug},
		}
		if err := documents.Upsert(ctx, doc); err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "%s %s: %v\n", boldRed("store:"), slug, err)
			continue
		}

		stored++
		if stored%25 == 0 {
			fmt.Printf("  stored %s / %d\n", cyan(stored), len(slugs))
		}
	}

	fmt.Printf("\n%s stored %d documents, %d failures\n", boldGreen("Done:"), stored, failed)
	if failed > 0 {
		os.Exit(1)
	}
}
