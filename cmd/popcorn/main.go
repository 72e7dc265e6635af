package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/mmcdole/popcorn/internal/adapter"
	"github.com/mmcdole/popcorn/internal/catalog"
	"github.com/mmcdole/popcorn/internal/clock"
	"github.com/mmcdole/popcorn/internal/domain"
	"github.com/mmcdole/popcorn/internal/search"
	"github.com/mmcdole/popcorn/internal/store"
	"github.com/mmcdole/popcorn/internal/tmdb"
	"github.com/mmcdole/popcorn/internal/tui"
	"github.com/mmcdole/popcorn/internal/tui/styles"
)

// Version is set at build time via -ldflags
var Version = "dev"

// clearSpinnerLine clears the spinner line from the terminal
const clearSpinnerLine = "\r                                    \r"

const usage = `Usage: popcorn [flags] [command]

Commands:
  (none)          browse popular movies (plain list when not a terminal)
  list            refresh if stale and print the cached catalog
  search <query>  search cached titles
  favorites       print favorite movies
  cache clear     delete cached movies, keeping favorites
  setup           enter API credentials
  version         print version

Flags:
`

func main() {
	var showVersion bool
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if showVersion || flag.Arg(0) == "version" {
		fmt.Printf("popcorn %s\n", Version)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds the wired dependencies shared by every command
type app struct {
	cfg     *adapter.Config
	logger  *slog.Logger
	store   *store.CatalogStore
	client  *tmdb.Client
	repo    *catalog.Repository
	browser *adapter.Browser
}

func run(ctx context.Context, args []string) error {
	cfg, err := adapter.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, closer, err := adapter.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = adapter.NullLogger()
		closer = io.NopCloser(nil)
	}
	defer closer.Close()
	slog.SetDefault(logger)

	logger.Info("starting popcorn", "version", Version, "args", args)

	command := ""
	if len(args) > 0 {
		command = args[0]
	}

	if command == "setup" || (!cfg.IsConfigured() && command != "cache" && isTerminal()) {
		if err := runSetupFlow(ctx, cfg, logger); err != nil {
			return err
		}
		if command == "setup" {
			return nil
		}
	}

	a, err := wire(cfg, logger)
	if err != nil {
		return err
	}
	defer a.store.Close()

	switch command {
	case "":
		if !isTerminal() {
			return a.printCatalog(ctx, os.Stdout)
		}
		return a.runTUI(ctx)
	case "list":
		return a.printCatalog(ctx, os.Stdout)
	case "search":
		if len(args) < 2 {
			return errors.New("search needs a query")
		}
		return a.printSearch(ctx, os.Stdout, strings.Join(args[1:], " "))
	case "favorites":
		return a.printFavorites(ctx, os.Stdout)
	case "cache":
		if len(args) < 2 || args[1] != "clear" {
			return errors.New("usage: popcorn cache clear")
		}
		if err := a.store.Clear(ctx); err != nil {
			return err
		}
		fmt.Println("✓ Cache cleared")
		return nil
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func wire(cfg *adapter.Config, logger *slog.Logger) (*app, error) {
	st, err := store.NewCatalogStore(cfg.Cache.Dir, cfg.Server.BaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	client := tmdb.NewClient(tmdb.Options{
		BaseURL:      cfg.Server.BaseURL,
		ImageBaseURL: cfg.Server.ImageBaseURL,
		Token:        cfg.Server.Token,
		APIKey:       cfg.Server.APIKey,
		Language:     cfg.Server.Language,
		Timeout:      cfg.Server.Timeout,
	}, logger)

	repo := catalog.NewRepository(client, st, clock.System{}, catalog.Options{
		PageSize:   cfg.Cache.PageSize,
		StaleAfter: cfg.Cache.StaleAfter,
	}, logger)

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   st,
		client:  client,
		repo:    repo,
		browser: adapter.NewBrowser(cfg.Browser, cfg.Server.WebURL, logger),
	}, nil
}

func (a *app) runTUI(ctx context.Context) error {
	model := tui.NewModel(ctx, a.repo, a.repo.Mediator(), a.browser, clock.System{}, a.logger)
	defer model.Close()

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	a.logger.Info("starting TUI")

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		a.logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	a.logger.Info("shutting down")
	return nil
}

// refreshForPrint refreshes a stale cache. A failed refresh is reported but
// the cached catalog is still printed.
func (a *app) refreshForPrint(ctx context.Context) {
	if err := a.repo.RefreshCatalog(ctx, false); err != nil {
		a.logger.Warn("refresh failed", "error", err)
		fmt.Fprintf(os.Stderr, "Warning: %s, showing cached movies\n", domain.Describe(err))
	}
}

func (a *app) printCatalog(ctx context.Context, w io.Writer) error {
	a.refreshForPrint(ctx)

	movies, err := a.repo.Snapshot(ctx)
	if err != nil {
		return err
	}
	if len(movies) == 0 {
		return errors.New("no movies cached")
	}
	for _, m := range movies {
		fmt.Fprintln(w, formatLine(m))
	}
	return nil
}

func (a *app) printSearch(ctx context.Context, w io.Writer, query string) error {
	a.refreshForPrint(ctx)

	movies, err := a.repo.Snapshot(ctx)
	if err != nil {
		return err
	}
	results := search.NewIndex(movies).Rank(query)
	if len(results) == 0 {
		return fmt.Errorf("no cached movies match %q", query)
	}
	for _, r := range results {
		fmt.Fprintln(w, formatLine(r.Movie))
	}
	return nil
}

func (a *app) printFavorites(ctx context.Context, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	select {
	case movies, ok := <-a.repo.Favorites(ctx):
		if !ok {
			return ctx.Err()
		}
		if len(movies) == 0 {
			fmt.Fprintln(w, "No favorites yet")
			return nil
		}
		for _, m := range movies {
			fmt.Fprintln(w, formatLine(m))
		}
		return nil
	case <-time.After(5 * time.Second):
		return errors.New("timed out reading favorites")
	}
}

func formatLine(m domain.Movie) string {
	var b strings.Builder
	if m.IsRanked() {
		fmt.Fprintf(&b, "%4d. ", m.PopularRank+1)
	} else {
		b.WriteString("      ")
	}
	if m.IsFavorite {
		b.WriteString(styles.FavoriteChar + " ")
	}
	b.WriteString(m.Title)
	if y := m.Year(); y != "" {
		fmt.Fprintf(&b, " (%s)", y)
	}
	if r := m.FormattedRating(); r != "" {
		fmt.Fprintf(&b, "  %s %s", styles.RatingChar, r)
	}
	return b.String()
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// runSetupFlow prompts for API credentials, checks them and saves the config
func runSetupFlow(ctx context.Context, cfg *adapter.Config, logger *slog.Logger) error {
	fmt.Println()
	fmt.Println("Welcome to Popcorn!")
	fmt.Println()
	fmt.Println("Popcorn needs a TMDB API read access token.")
	fmt.Println("Create one at https://www.themoviedb.org/settings/api")
	fmt.Println()

	for {
		// Token is read without echo
		fmt.Print("API read access token: ")
		tokenBytes, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read token: %w", err)
		}
		token := strings.TrimSpace(string(tokenBytes))
		if token == "" {
			fmt.Println("Token cannot be empty. Please try again.")
			continue
		}

		client := tmdb.NewClient(tmdb.Options{
			BaseURL:  cfg.Server.BaseURL,
			Token:    token,
			Language: cfg.Server.Language,
			Timeout:  cfg.Server.Timeout,
		}, logger)

		fmt.Println()
		if err := verifyWithSpinner(ctx, client); err != nil {
			if domain.IsCancellation(err) {
				return err
			}
			fmt.Printf("✗ %s\n", domain.Describe(err))
			fmt.Println("Please check the token and try again.")
			fmt.Println()
			continue
		}

		cfg.Server.Token = token
		break
	}

	if err := adapter.SaveConfig(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println("✓ Configuration saved to", adapter.ConfigPath())
	fmt.Println()
	return nil
}

// verifyWithSpinner fetches the first feed page with a visual spinner
func verifyWithSpinner(ctx context.Context, client *tmdb.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	resultCh := make(chan error, 1)
	go func() {
		_, err := client.PopularMovies(ctx, 1)
		resultCh <- err
	}()

	frame := 0
	fmt.Printf("\r%s Checking token...", styles.SpinnerFrames[frame])

	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case err := <-resultCh:
			fmt.Print(clearSpinnerLine)
			if err != nil {
				return err
			}
			fmt.Println("✓ Token accepted")
			return nil

		case <-ticker.C:
			frame++
			fmt.Printf("\r%s Checking token...", styles.SpinnerFrames[frame%len(styles.SpinnerFrames)])

		case <-ctx.Done():
			fmt.Print(clearSpinnerLine)
			return ctx.Err()
		}
	}
}
