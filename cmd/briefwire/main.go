package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"

	"github.com/briefwire/briefwire/pkg/cache"
	"github.com/briefwire/briefwire/pkg/config"
	"github.com/briefwire/briefwire/pkg/digest"
	"github.com/briefwire/briefwire/pkg/domain"
	"github.com/briefwire/briefwire/pkg/fetch"
	"github.com/briefwire/briefwire/pkg/llm"
	"github.com/briefwire/briefwire/pkg/provider"
	"github.com/briefwire/briefwire/pkg/scoring"
)

// Opts with all CLI options
type Opts struct {
	Config string   `short:"c" long:"config" env:"CONFIG" default:"briefwire.yml" description:"config file path"`
	Topics []string `short:"t" long:"topic" description:"topic to fetch (overrides config topics, repeatable)"`
	Tier   string   `long:"tier" env:"TIER" default:"free" choice:"free" choice:"paid" description:"service tier"`
	Out    string   `short:"o" long:"out" description:"write digests JSON to file instead of stdout"`

	// Common options
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

var revision = "unknown"

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		log.Fatalf("[ERROR] failed to load config: %v", err)
	}

	setupLog(opts.Debug, cfg.Providers.NewsAPI.APIKey, cfg.Providers.GNews.APIKey, cfg.LLM.APIKey)
	log.Printf("[INFO] starting briefwire version %s", revision)

	ctx, cancel := context.WithCancel(context.Background())

	// handle termination signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Print("[INFO] termination signal received")
		cancel()
	}()

	if err := run(ctx, cfg, opts); err != nil {
		log.Printf("[ERROR] run failed: %v", err)
		cancel()
		os.Exit(1)
	}
	cancel()
	log.Print("[INFO] digest run complete")
}

// run wires the pipeline and executes one batch over the configured topics
func run(ctx context.Context, cfg *config.Config, opts Opts) error {
	topics := opts.Topics
	if len(topics) == 0 {
		topics = cfg.Topics
	}
	if len(topics) == 0 {
		return fmt.Errorf("no topics configured, use --topic or the topics config section")
	}

	store, err := cache.NewStore(ctx, cache.Config{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetime) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("open cache store: %w", err)
	}
	defer store.Close()

	limiter := provider.NewWindowLimiter(map[string]int{
		"newsapi":         cfg.Providers.NewsAPI.DailyQuota,
		"gnews":           cfg.Providers.GNews.DailyQuota,
		"google-news-rss": cfg.Providers.RSS.DailyQuota,
	})

	primary := provider.NewNewsAPI(cfg.Providers.NewsAPI.APIKey, cfg.Providers.NewsAPI.PageSize, limiter, cfg.Providers.Timeout)
	secondary := provider.NewGNews(cfg.Providers.GNews.APIKey, cfg.Providers.GNews.MaxResults, limiter, cfg.Providers.Timeout)
	var tertiary provider.Provider
	if cfg.Providers.RSS.Enabled {
		tertiary = provider.NewGoogleNewsRSS(limiter, cfg.Providers.Timeout)
	}

	llmCfg := llm.Config{
		Endpoint:    cfg.LLM.Endpoint,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: float32(cfg.LLM.Temperature),
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
	}
	ranker := llm.NewRanker(llmCfg)
	summarizer := llm.NewSummarizer(llmCfg, llm.DefaultRetryPolicy())
	scorer := scoring.NewScorer(cfg.Scoring)

	orchestrator := fetch.New(primary, secondary, tertiary, limiter, store, ranker, scorer, fetch.Config{
		RequestsPerTopic: cfg.Fetch.RequestsPerTopic,
		BatchDelay:       cfg.Fetch.BatchDelay,
		StaggerDelay:     cfg.Fetch.StaggerDelay,
		DefaultBatchSize: cfg.Fetch.DefaultBatchSize,
	})

	svc := digest.NewService(orchestrator, summarizer)
	digests := svc.GetDigests(ctx, topics, domain.Tier(opts.Tier))

	out := os.Stdout
	if opts.Out != "" {
		f, err := os.Create(opts.Out) //nolint:gosec // output path comes from CLI flag
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(digests); err != nil {
		return fmt.Errorf("encode digests: %w", err)
	}
	return nil
}

func setupLog(dbg bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Out(io.Discard), lgr.Err(io.Discard)}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	colorizer := lgr.Mapper{
		ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
		WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
		InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
		DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
		CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
		TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
	}
	logOpts = append(logOpts, lgr.Map(colorizer))
	if len(secs) > 0 {
		logOpts = append(logOpts, lgr.Secret(secs...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
