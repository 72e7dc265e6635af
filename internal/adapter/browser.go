package adapter

import (
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
)

// Browser opens movie pages in the configured browser or the system default
type Browser struct {
	command string   // configured browser command, empty for system default
	args    []string // additional arguments placed before the URL
	webURL  string   // base of movie page URLs
	logger  *slog.Logger
}

// NewBrowser creates a Browser from configuration
func NewBrowser(cfg BrowserConfig, webURL string, logger *slog.Logger) *Browser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Browser{
		command: cfg.Command,
		args:    cfg.Args,
		webURL:  strings.TrimRight(webURL, "/"),
		logger:  logger,
	}
}

// MovieURL returns the web page of a movie
func (b *Browser) MovieURL(movieID int64) string {
	return fmt.Sprintf("%s/movie/%d", b.webURL, movieID)
}

// OpenMovie opens the web page of a movie
func (b *Browser) OpenMovie(movieID int64) error {
	return b.Open(b.MovieURL(movieID))
}

// Open starts the browser on url without waiting for it to exit
func (b *Browser) Open(url string) error {
	cmd := b.openCommand(url)
	b.logger.Info("opening url", "command", cmd.Path, "args", cmd.Args[1:])
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open %s: %w", url, err)
	}
	// Reap the child once it exits
	go func() { _ = cmd.Wait() }()
	return nil
}

// openCommand builds the process that opens url
func (b *Browser) openCommand(url string) *exec.Cmd {
	if b.command != "" {
		args := append(append([]string{}, b.args...), url)
		return exec.Command(b.command, args...)
	}
	return systemOpenCommand(runtime.GOOS, url)
}

// systemOpenCommand opens url with the platform's default handler
func systemOpenCommand(goos, url string) *exec.Cmd {
	switch goos {
	case "darwin":
		return exec.Command("open", url)
	case "windows":
		return exec.Command("cmd", "/c", "start", "", url)
	default:
		// Linux and other Unix-like systems
		return exec.Command("xdg-open", url)
	}
}
