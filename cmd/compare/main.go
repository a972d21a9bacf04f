package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"annualcompare/pkg/core/config"
	"annualcompare/pkg/core/document"
	"annualcompare/pkg/core/insight"
	"annualcompare/pkg/core/llm"
	"annualcompare/pkg/core/ocr"
	"annualcompare/pkg/core/pipeline"
	"annualcompare/pkg/core/retrieval"
	"annualcompare/pkg/models"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, assuming environment variables are set.")
	}

	configPath := flag.String("config", "", "path to YAML config")
	query := flag.String("query", "", "optional cross-company question to answer after the comparison")
	window := flag.Int("window", 0, "override the fiscal period window")
	flag.Parse()

	if flag.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "usage: compare [flags] Company=report.pdf Company2=report.html ...")
		fmt.Fprintln(os.Stderr, "       2 to 5 reports; company name before '=' is optional")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Config error: %v", err)
		}
		cfg = loaded
	}
	if *window > 0 {
		cfg.Window = *window
	}

	sources, err := buildSources(flag.Args())
	if err != nil {
		log.Fatalf("Input error: %v", err)
	}

	embedder, provider := buildCollaborators(cfg)

	textExtractor, err := ocr.FromEnv()
	if err != nil {
		log.Println("Warning: no OCR provider configured, scanned pages will be skipped.")
	}
	extractor := document.NewExtractor(textExtractor)
	if cfg.OCRModel != "" {
		if g, ok := textExtractor.(*ocr.GeminiOCR); ok {
			g.Model = cfg.OCRModel
		}
	}

	ctx := context.Background()
	orch := pipeline.NewOrchestrator(cfg, extractor, embedder)

	fmt.Printf("Comparing %d reports (window: %d periods)...\n", len(sources), cfg.Window)
	result, err := orch.Run(ctx, sources)
	if err != nil {
		log.Fatalf("Comparison failed: %v", err)
	}

	fmt.Println()
	if result.Grid != nil {
		table := models.BuildTable(result.Grid, result.Ratios)
		fmt.Print(table.Render())
	} else {
		fmt.Println("No financial statements parsed; metrics unavailable.")
	}

	if len(result.Diagnostics) > 0 {
		fmt.Printf("\nDiagnostics (%d):\n", len(result.Diagnostics))
		for _, d := range result.Diagnostics {
			fmt.Printf("  %s\n", d.String())
		}
	}

	if *query != "" {
		answerQuery(ctx, cfg, provider, result.Index, *query)
	}
}

// buildSources maps "Name=path" arguments onto document sources by file
// extension.
func buildSources(args []string) ([]document.Source, error) {
	var sources []document.Source
	for _, arg := range args {
		company := ""
		path := arg
		if idx := strings.Index(arg, "="); idx > 0 {
			company = arg[:idx]
			path = arg[idx+1:]
		}
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("report %s: %w", path, err)
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".pdf":
			sources = append(sources, &document.PDFSource{
				Path:        path,
				CompanyName: company,
				TextFn:      document.NativePageText,
				ImageFn:     document.NativePageImage,
			})
		case ".html", ".htm":
			sources = append(sources, &document.HTMLSource{Path: path, CompanyName: company})
		case ".txt":
			sources = append(sources, &document.TextSource{Path: path, CompanyName: company})
		default:
			return nil, fmt.Errorf("unsupported report format: %s", path)
		}
	}
	return sources, nil
}

// buildCollaborators wires the embedding and generation providers from the
// environment, falling back to deterministic mocks so the numeric pipeline
// runs without any API key.
func buildCollaborators(cfg *config.Config) (llm.Embedder, llm.Provider) {
	var embedder llm.Embedder
	var provider llm.Provider

	if os.Getenv("GEMINI_API_KEY") != "" {
		embedder = &llm.GeminiEmbedder{Model: cfg.EmbedderModel}
		provider = &llm.GeminiProvider{Model: cfg.ProviderModel}
	} else if os.Getenv("DEEPSEEK_API_KEY") != "" {
		provider = &llm.DeepSeekProvider{}
		embedder = &llm.MockEmbedder{}
		log.Println("Warning: no embedding provider configured, using deterministic local embeddings.")
	} else {
		embedder = &llm.MockEmbedder{}
		provider = nil
		log.Println("Warning: no API keys set, retrieval uses local embeddings and insight generation is disabled.")
	}

	if !cfg.EmbedCacheDisabled {
		cached, err := retrieval.NewCachedEmbedder(embedder, cfg.EmbedCacheDir)
		if err != nil {
			log.Printf("Warning: embedding cache disabled: %v", err)
		} else {
			embedder = cached
		}
	}
	return embedder, provider
}

func answerQuery(ctx context.Context, cfg *config.Config, provider llm.Provider, index *retrieval.Index, query string) {
	if index == nil || index.Len() == 0 {
		fmt.Println("\nNo retrieval index available, cannot answer the question.")
		return
	}
	if provider == nil {
		fmt.Println("\nNo generation provider configured, showing retrieved passages only.")
	}

	composer := insight.NewComposer(provider, index)
	composer.K = cfg.RetrievalK
	composer.MinCoverage = cfg.MinCompanyCoverage
	composer.CallTimeout = cfg.CollaboratorTimeout()

	if provider == nil {
		hits, err := index.Query(ctx, query, cfg.RetrievalK, cfg.MinCompanyCoverage)
		if err != nil {
			log.Fatalf("Retrieval failed: %v", err)
		}
		fmt.Print(insight.Render(&insight.Insight{Query: query, GenerationUnavailable: true, Retrieved: hits}))
		return
	}

	result, err := composer.Compose(ctx, query)
	if err != nil {
		log.Fatalf("Insight failed: %v", err)
	}
	fmt.Println()
	fmt.Print(insight.Render(result))
}
