package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/avoss/lantern/internal/types"
	cfgPkg "github.com/avoss/lantern/pkg/config"
	"github.com/avoss/lantern/pkg/ingest"
	"github.com/avoss/lantern/pkg/kb"
	"github.com/avoss/lantern/pkg/llm"
	"github.com/avoss/lantern/pkg/search"
	"github.com/avoss/lantern/pkg/session"
	"github.com/avoss/lantern/pkg/updater"
	"github.com/avoss/lantern/server"
)

type Flags struct {
	ConfigPath  string
	BaseURL     string
	Model       string
	KBPath      string
	ManifestURL string
	IngestURL   string
	Serve       bool
	Debug       bool
}

func main() {
	flags := parseFlags()

	if err := run(flags); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() Flags {
	var flags Flags

	flag.StringVar(&flags.ConfigPath, "config", "", "Path to config file")
	flag.StringVar(&flags.BaseURL, "ollama-url", os.Getenv("OLLAMA_BASE_URL"), "Ollama server URL")
	flag.StringVar(&flags.Model, "model", "", "LLM model to use")
	flag.StringVar(&flags.KBPath, "kb", "", "Knowledge base document file")
	flag.StringVar(&flags.ManifestURL, "manifest-url", "", "Update manifest URL")
	flag.StringVar(&flags.IngestURL, "ingest-url", "", "Documentation URL to build the knowledge base from")
	flag.BoolVar(&flags.Serve, "serve", false, "Start the WebSocket server instead of the REPL")
	flag.BoolVar(&flags.Debug, "debug", false, "Enable debug logging")
	flag.Parse()

	return flags
}

func loadConfig(flags Flags) (*cfgPkg.Config, error) {
	cfg, err := cfgPkg.LoadConfig(flags.ConfigPath)
	if err != nil {
		return nil, err
	}

	// Command line flags win over the config file
	if flags.BaseURL != "" {
		cfg.LLM.BaseURL = flags.BaseURL
		cfg.Embedder.BaseURL = flags.BaseURL
	}
	if flags.Model != "" {
		cfg.LLM.Model = flags.Model
	}
	if flags.KBPath != "" {
		cfg.Knowledge.Path = flags.KBPath
	}
	if flags.ManifestURL != "" {
		cfg.Updater.ManifestURL = flags.ManifestURL
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %v", e)
		}
		return nil, fmt.Errorf("invalid configuration")
	}
	return cfg, nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if debug {
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return zcfg.Build()
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func run(flags Flags) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	logger, err := newLogger(flags.Debug)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:   cfg.Embedder.Model,
		BaseURL: cfg.Embedder.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %v", err)
	}

	// Optionally build a fresh knowledge base from a documentation site
	if flags.IngestURL != "" {
		if err := runIngest(ctx, cfg, flags.IngestURL, logger); err != nil {
			return err
		}
	}

	newIndex := func() (types.VectorIndex, error) {
		if cfg.Database.URL != "" {
			return kb.NewPGIndexWithConfig(ctx, kb.PGIndexConfig{
				ConnString: cfg.Database.URL,
				TableName:  cfg.Database.TableName,
				VectorDim:  cfg.Database.VectorDim,
				BatchSize:  cfg.Database.BatchSize,
			})
		}
		return kb.NewFlatIndex(), nil
	}

	chatEngine, err := llm.NewWithConfig(llm.ChatConfig{
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		BaseURL:     cfg.LLM.BaseURL,
	})
	if err != nil {
		color.Red("Error loading chatbot model: %v", err)
		chatEngine = nil
	}

	var retriever types.Retriever
	index, err := newIndex()
	if err != nil {
		color.Red("Error initializing vector index: %v", err)
	} else {
		knowledge, err := kb.New(ctx, kb.Config{
			Path:     cfg.Knowledge.Path,
			Embedder: embedder,
			Index:    index,
			Logger:   logger,
		})
		if err != nil {
			color.Red("Error loading knowledge base: %v", err)
		} else {
			retriever = knowledge
		}
	}

	searcher := search.NewWithConfig(search.Config{
		APIKey:     cfg.Search.APIKey,
		Engine:     cfg.Search.Engine,
		MaxResults: cfg.Search.MaxResults,
	})

	sess := session.New(session.Config{
		Responder: responderOrNil(chatEngine),
		Retriever: retriever,
		Searcher:  searcher,
		TopK:      cfg.Knowledge.TopK,
		Logger:    logger,
	})

	up, err := updater.NewWithConfig(updater.Config{
		ManifestURL:     cfg.Updater.ManifestURL,
		MetadataPath:    cfg.Updater.MetadataPath,
		DocsPath:        cfg.Knowledge.Path,
		CheckURL:        cfg.Updater.CheckURL,
		ProbeTimeout:    cfg.Updater.ProbeTimeoutDuration(),
		FetchTimeout:    cfg.Updater.FetchTimeoutDuration(),
		DownloadTimeout: cfg.Updater.DownloadTimeoutDuration(),
		NewResponder: func(ctx context.Context, modelName string) (types.Responder, error) {
			return llm.NewWithConfig(llm.ChatConfig{
				Model:       modelName,
				MaxTokens:   cfg.LLM.MaxTokens,
				Temperature: cfg.LLM.Temperature,
				BaseURL:     cfg.LLM.BaseURL,
			})
		},
		NewKnowledge: func(ctx context.Context, path string, payload []byte) (types.Retriever, error) {
			index, err := newIndex()
			if err != nil {
				return nil, err
			}
			return kb.NewFromPayload(ctx, kb.Config{
				Path:     path,
				Embedder: embedder,
				Index:    index,
				Logger:   logger,
			}, payload)
		},
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize updater: %v", err)
	}

	// Update check at session start
	result := up.Check(ctx)
	sess.SetResponder(result.Responder)
	sess.SetRetriever(result.Knowledge)
	color.Yellow("%s", result.Message)

	if flags.Serve {
		ws := server.New(server.Config{
			Addr:    cfg.UI.ServeAddr,
			Session: sess,
			Updater: up,
			Logger:  logger,
		})
		return ws.Run()
	}

	return repl(ctx, cfg, sess, up)
}

func repl(ctx context.Context, cfg *cfgPkg.Config, sess *session.Session, up *updater.Updater) error {
	color.Cyan("\nLantern — chat with your local assistant (type 'exit' to quit)")
	color.Cyan("Commands: /search <query>, /update")

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()

	for {
		// Deferred searches run on the first prompt after connectivity returns
		if len(sess.PendingSearches()) > 0 && up.IsOnline(ctx) {
			for _, text := range sess.DrainPending(ctx) {
				assistantPrompt("\nAssistant: %s\n", text)
			}
		}

		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if strings.ToLower(input) == "exit" {
			break
		}

		switch {
		case strings.ToLower(input) == "/update":
			spinner := getSpinner(" Checking for updates...")
			result := up.Check(ctx)
			spinner.Finish()
			fmt.Print("\r")
			sess.SetResponder(result.Responder)
			sess.SetRetriever(result.Knowledge)
			color.Yellow("%s", result.Message)

		case strings.HasPrefix(strings.ToLower(input), "/search"):
			query := strings.TrimSpace(input[len("/search"):])
			if query == "" {
				color.Red("Usage: /search <query>")
				continue
			}
			online := up.IsOnline(ctx)
			text := sess.HandleSearch(ctx, input, query, online)
			assistantPrompt("\nAssistant: %s\n", text)

		default:
			spinner := getSpinner(" Thinking...")
			reply := sess.HandleChat(ctx, input)
			spinner.Finish()
			fmt.Print("\r")
			assistantPrompt("\nAssistant: %s\n", reply)
		}
	}

	return nil
}

func runIngest(ctx context.Context, cfg *cfgPkg.Config, ingestURL string, logger *zap.Logger) error {
	color.Blue("\nBuilding knowledge base from %s\n", ingestURL)

	var crawled int32
	ingester, err := ingest.NewWithConfig(ingest.Config{
		BaseURL: ingestURL,
		OnProgress: func(url string) {
			atomic.AddInt32(&crawled, 1)
		},
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize ingester: %v", err)
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.BlueString("Crawling documentation...")),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-time.After(100 * time.Millisecond):
				bar.Describe(color.BlueString("Crawling documentation... (%d pages)",
					atomic.LoadInt32(&crawled)))
			}
		}
	}()

	docs, err := ingester.Run(ctx, cfg.Knowledge.Path)
	close(done)
	bar.Finish()
	fmt.Print("\r")
	if err != nil {
		return fmt.Errorf("failed to build knowledge base: %v", err)
	}

	color.Green("✓ Wrote %d documents to %s\n", len(docs), cfg.Knowledge.Path)
	return nil
}

func responderOrNil(engine *llm.ChatEngine) types.Responder {
	if engine == nil {
		return nil
	}
	return engine
}
