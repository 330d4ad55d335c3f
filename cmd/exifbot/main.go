package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/NikitaAzmov/exif-meta-telegrambot/internal/bot"
	"github.com/NikitaAzmov/exif-meta-telegrambot/internal/config"
	"github.com/NikitaAzmov/exif-meta-telegrambot/internal/exiftool"
	"github.com/NikitaAzmov/exif-meta-telegrambot/internal/pipeline"
	"github.com/NikitaAzmov/exif-meta-telegrambot/internal/web"
	"github.com/NikitaAzmov/exif-meta-telegrambot/pkg/types"
)

var (
	appVersion   = "0.1.0"
	cfgFile      string
	exiftoolPath string
	exiftoolMode string
	noExifTool   bool
	tempDir      string
	logFile      string
	logJSON      bool
	debug        bool

	botToken   string
	botWorkers int

	httpAddr string

	asVideo    bool
	outputHTML bool
	outputJSON bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "exifbot",
	Short: "Extract photo and video metadata",
	Long: `exifbot reads EXIF, GPS and container metadata from photos and videos.
It answers Telegram messages, serves an HTTP API, or inspects local files.`,
	SilenceUsage: true,
}

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Telegram bot (long polling)",
	RunE:  runBot,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Print the metadata report of a local file",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), appVersion)
	},
}

func init() {
	rootCmd.AddCommand(botCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file path")
	flags.StringVar(&exiftoolPath, "exiftool", "", "exiftool binary path")
	flags.StringVar(&exiftoolMode, "exiftool-mode", "", "exiftool mode: exec, stay_open")
	flags.BoolVar(&noExifTool, "no-exiftool", false, "skip exiftool and use embedded tags only")
	flags.StringVar(&tempDir, "temp-dir", "", "directory for downloaded files")
	flags.StringVar(&logFile, "log-file", "", "log file path")
	flags.BoolVar(&logJSON, "log-json", false, "output JSON logs")
	flags.BoolVar(&debug, "debug", false, "log fallback decisions")

	botCmd.Flags().StringVarP(&botToken, "token", "t", "", "Telegram bot token (default $"+config.TokenEnv+")")
	botCmd.Flags().IntVarP(&botWorkers, "workers", "w", 0, "concurrent message handlers")

	serveCmd.Flags().StringVarP(&httpAddr, "addr", "a", "", "HTTP listen address")

	inspectCmd.Flags().BoolVar(&asVideo, "video", false, "treat the file as a video")
	inspectCmd.Flags().BoolVar(&outputHTML, "html", false, "render Telegram HTML")
	inspectCmd.Flags().BoolVar(&outputJSON, "json", false, "print the outcome as JSON")
}

func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error

	if cfgFile != "" {
		cfg, err = config.LoadFromFile(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	} else {
		cfg = config.DefaultConfig()
	}

	if exiftoolPath != "" {
		cfg.ExifToolPath = exiftoolPath
	}
	if exiftoolMode != "" {
		cfg.ExifToolMode = exiftool.Mode(exiftoolMode)
	}
	if noExifTool {
		cfg.DisableExifTool = true
	}
	if tempDir != "" {
		cfg.TempDir = tempDir
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}
	if logJSON {
		cfg.LogJSON = true
	}
	if debug {
		cfg.Debug = true
	}
	if botToken != "" {
		cfg.BotToken = botToken
	}
	if botWorkers > 0 {
		cfg.BotWorkers = botWorkers
	}
	if httpAddr != "" {
		cfg.HTTPAddr = httpAddr
	}
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.RequireBotToken(); err != nil {
		return err
	}

	tg, err := bot.NewTelegram(cfg.BotToken)
	if err != nil {
		return err
	}

	p, err := pipeline.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer p.Close()

	ctx, cancel := signalContext()
	defer cancel()

	logger := p.Logger()
	logger.Info("Authorized as @" + tg.Username())

	go func() {
		<-ctx.Done()
		tg.Stop()
	}()

	bot.New(p, tg, tg, logger, cfg.BotWorkers).Run(ctx, tg.Updates())
	logger.Info("Bot stopped")
	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	p, err := pipeline.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer p.Close()
	p.Logger().SetConsole(cmd.ErrOrStderr())

	var class types.MediaClass
	if asVideo {
		class = types.MediaClassVideo
	}

	outcome, err := p.InspectPath(cmd.Context(), args[0], class)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case outputJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(outcome)
	case outputHTML:
		_, err = fmt.Fprintln(out, outcome.Report.HTML())
	default:
		_, err = fmt.Fprintln(out, outcome.Report.Text())
	}
	return err
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	p, err := pipeline.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer p.Close()

	server := web.NewServer(cfg, p)
	server.SetVersion(appVersion)
	defer server.Close()

	ctx, cancel := signalContext()
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.HTTPAddr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return nil
	}
}
