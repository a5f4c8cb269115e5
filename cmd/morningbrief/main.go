package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"morningbrief/internal/capture"
	"morningbrief/internal/config"
	"morningbrief/internal/emailer"
	"morningbrief/internal/llm"
	appLog "morningbrief/internal/log"
	"morningbrief/internal/markets"
	"morningbrief/internal/news"
	"morningbrief/internal/publish"
	"morningbrief/internal/render"
	"morningbrief/internal/schedule"
	"morningbrief/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
	renderOnly bool
	noEmail    bool
}

func main() {
	appLog.Info("morningbrief starting", "version", "0.1.0")

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"schedule", conf.Schedule,
		"calendar_source_set", conf.Calendar.Source != "",
		"watchlist", len(conf.Watchlist),
		"once", flags.once,
		"render_only", flags.renderOnly,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	engine := schedule.New(nil, nil)

	if flags.once {
		runBrief(ctx, conf, engine, flags)
		return
	}

	// Scheduled mode: cron-driven briefing runs plus the web API.
	c := cron.New()
	if _, err := c.AddFunc(conf.Schedule, func() {
		runBrief(ctx, conf, engine, flags)
	}); err != nil {
		appLog.Error("invalid cron schedule", err, "schedule", conf.Schedule)
		os.Exit(1)
	}
	c.Start()
	defer c.Stop()

	go func() {
		if err := web.StartServer(ctx, conf, engine); err != nil {
			appLog.Error("web server exited", err)
			cancel()
		}
	}()

	<-ctx.Done()

	// Give in-flight log writes a moment before exiting.
	time.Sleep(100 * time.Millisecond)
	appLog.Info("morningbrief exiting")
}

// runBrief executes one full briefing pipeline pass. Each stage degrades
// independently; the brief is rendered from whatever succeeded.
func runBrief(ctx context.Context, conf *config.Config, engine *schedule.Engine, flags flagConfig) {
	started := time.Now()

	// Markets: quotes plus per-ticker chart pages.
	quotes := markets.NewFetcher().FetchWatchlist(ctx, conf.Watchlist, conf.Paths.ChartsDir)
	for i, q := range quotes {
		if q.ChartPage == "" {
			continue
		}
		err := capture.ChartPNG(ctx, capture.Options{
			PagePath:   q.ChartPage,
			OutputPath: q.ChartPNG,
		})
		if err != nil {
			appLog.Warn("chart capture failed, brief will omit chart", "ticker", q.Ticker, "err", err.Error())
			quotes[i].ChartPNG = ""
		}
	}

	// Today's schedule.
	result := engine.FreeBlocks(ctx, schedule.Request{
		Source:           conf.Calendar.Source,
		Timezone:         conf.Timezone,
		DayStartHour:     conf.StudyBlocks.DayStartHour,
		DayEndHour:       conf.StudyBlocks.DayEndHour,
		MinBlockMinutes:  conf.StudyBlocks.MinBlockMinutes,
		DeepBlockMinutes: conf.StudyBlocks.DeepBlockMinutes,
		Naive:            naivePolicy(conf.Calendar.NaivePolicy),
		Now:              time.Now(),
	})

	// News.
	articles := news.NewFetcher().Fetch(ctx, conf.News.Keywords, news.Options{
		Limit:       conf.News.Limit,
		MaxAgeHours: conf.News.MaxAgeHours,
		Lang:        conf.News.Lang,
		Region:      conf.News.Region,
	})

	// AI editorial.
	var editorial llm.Editorial
	if conf.AI.Enabled && len(articles) > 0 {
		editorial = llm.NewSummarizer(llm.Config{
			Endpoint:    conf.AI.Endpoint,
			Model:       conf.AI.Model,
			MaxTokens:   conf.AI.MaxTokens,
			Temperature: conf.AI.Temperature,
			Timeout:     time.Duration(conf.AI.TimeoutSec) * time.Second,
		}).Summarize(ctx, articles)
	}

	// Render.
	data := render.Data{
		GeneratedAt: time.Now().Format("2006-01-02 15:04"),
		MinBlock:    conf.StudyBlocks.MinBlockMinutes,
		MaxAgeHours: conf.News.MaxAgeHours,
		Markets:     render.MarketViews(quotes, conf.Paths.OutputHTML),
		Blocks:      render.BlockViews(result.Gaps),
		Suggestions: render.SuggestionViews(result.Suggestions),
		News:        render.NewsViews(articles),
	}
	render.EditorialInto(&data, editorial)

	outFile, err := render.Brief(data, conf.Paths.OutputHTML)
	if err != nil {
		appLog.Error("brief render failed", err, "out", conf.Paths.OutputHTML)
		return
	}
	appLog.Info("brief rendered", "out", outFile, "elapsed", time.Since(started).Round(time.Millisecond))

	if flags.renderOnly {
		return
	}

	// Email.
	if !flags.noEmail {
		if err := emailer.SendBrief(conf, outFile); err != nil {
			appLog.Error("brief email failed", err)
		}
	}

	// Publish.
	publish.Run(ctx, conf)
}

func naivePolicy(name string) schedule.NaivePolicy {
	if name == "utc" {
		return schedule.NaiveAssumeUTC
	}
	return schedule.NaiveAssumeLocal
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one briefing pass and exit")
	flag.BoolVar(&cfg.renderOnly, "render-only", false, "Render only; skip email and publish")
	flag.BoolVar(&cfg.noEmail, "no-email", false, "Skip email delivery")

	flag.Parse()

	return cfg
}
