package commands

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/sitesmith/internal/config"
	"github.com/MikeSquared-Agency/sitesmith/internal/layout"
	"github.com/MikeSquared-Agency/sitesmith/internal/render"
	"github.com/MikeSquared-Agency/sitesmith/internal/transport"
)

const defaultColumns = 100

var (
	// Global flags
	serverURL string
	verbose   bool

	cfg = config.Load()
)

var rootCmd = &cobra.Command{
	Use:   "sitesmith-cli",
	Short: "Generate single-file websites from a prompt, an image or a PDF",
	Long: `sitesmith-cli talks to a sitesmith service and renders the generation
as it streams: the analysis, the code and the closing summary.

Examples:
  # One-shot generation written to a file
  sitesmith-cli generate -p "a landing page for a bakery" -o site.html

  # From a mockup
  sitesmith-cli generate --image mock.png -o site.html

  # Interactive session with refinement
  sitesmith-cli repl

  # Watch generation events on NATS
  sitesmith-cli events`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", cfg.ServerURL, "sitesmith service URL (env SITESMITH_SERVER_URL)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func setupLogging() {
	lvl := slog.LevelWarn
	if verbose {
		lvl = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

func newClient() *transport.Client {
	return transport.NewClient(serverURL)
}

// interactive reports whether stdout is a terminal.
func interactive() bool {
	return term.IsTerminal(os.Stdout.Fd())
}

// columns is the terminal width, from the terminal itself, then $COLUMNS.
func columns() int {
	if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 {
		return w
	}
	if n, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && n > 0 {
		return n
	}
	return defaultColumns
}

func newRenderer(cols int) (*render.Renderer, *layout.Splitter) {
	split := layout.NewSplitter(layout.DefaultMinWidth, layout.DefaultInitialWidth, cols*render.CellWidth)
	return render.New(render.NewStyles(render.DefaultTheme), split, 0), split
}
