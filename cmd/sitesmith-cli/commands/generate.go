package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/sitesmith/internal/render"
	"github.com/MikeSquared-Agency/sitesmith/internal/session"
)

var (
	genPrompt   string
	genImage    string
	genDocument string
	genOut      string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one website",
	Long: `Generate one website from a prompt, an image or a PDF.

An image takes precedence over a PDF, and either over the prompt. The
generated HTML is written to --out, or printed when --out is not set.`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&genPrompt, "prompt", "p", "", "description of the website")
	generateCmd.Flags().StringVar(&genImage, "image", "", "screenshot or mockup to build from")
	generateCmd.Flags().StringVar(&genDocument, "document", "", "PDF or text brief to build from")
	generateCmd.Flags().StringVarP(&genOut, "out", "o", "", "file to write the generated HTML to")
	generateCmd.MarkFlagsMutuallyExclusive("image", "document")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	cols := columns()
	r, _ := newRenderer(cols)
	var listener session.Listener
	if interactive() {
		listener = render.NewLive(os.Stdout, r, cols, true).Update
	}

	client := newClient()
	ctrl := session.New(client, client, listener, slog.Default())
	ctrl.SetPrompt(genPrompt)

	if err := attach(ctx, ctrl, genImage, genDocument); err != nil {
		return err
	}

	if err := ctrl.Start(ctx); err != nil {
		return err
	}

	v := ctrl.View()
	if !interactive() && genOut != "" {
		fmt.Fprintln(os.Stderr, r.Render(v, cols))
	}
	if genOut == "" {
		if !interactive() {
			fmt.Println(v.Code)
		}
		return nil
	}
	if err := os.WriteFile(genOut, []byte(v.Code), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(os.Stderr, "wrote %s (%d bytes)\n", genOut, len(v.Code))
	return nil
}

// attach analyses the image or document, if one was given.
func attach(ctx context.Context, ctrl *session.Controller, image, document string) error {
	path, kind := image, session.UploadImage
	if path == "" {
		path, kind = document, session.UploadDocument
	}
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", kind, err)
	}
	if err := ctrl.Analyze(ctx, kind, filepath.Base(path), data); err != nil {
		return fmt.Errorf("%s analysis failed: %w", kind, err)
	}
	return nil
}
