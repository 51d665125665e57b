package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/sitesmith/internal/layout"
	"github.com/MikeSquared-Agency/sitesmith/internal/render"
	"github.com/MikeSquared-Agency/sitesmith/internal/session"
)

const replHelp = `Type a description and press enter to generate. Follow-up prompts refine
the previous result.

  /image <path>   attach an image
  /pdf <path>     attach a PDF or text brief
  /reset          abandon the generation and clear everything
  /width <cols>   resize the sidebar
  /save <path>    write the last generated HTML
  /quit           leave

Ctrl-C during a generation resets the session; at the prompt it exits.`

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive generation session",
	Long:  "Interactive generation session.\n\n" + replHelp,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cols := columns()
		r, split := newRenderer(cols)
		live := render.NewLive(os.Stdout, r, cols, interactive())
		client := newClient()
		ctrl := session.New(client, client, live.Update, slog.Default())

		rp := &repl{ctrl: ctrl, split: split, live: live, out: os.Stdout}
		return rp.run(cmd.Context(), os.Stdin)
	},
}

func init() {
	rootCmd.AddCommand(replCmd)
}

type repl struct {
	ctrl  *session.Controller
	split *layout.Splitter
	live  *render.Live
	out   io.Writer

	// interrupts watches for Ctrl-C while a generation runs. Nil means
	// os.Interrupt.
	interrupts func() (<-chan os.Signal, func())
}

func notifyInterrupt() (<-chan os.Signal, func()) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	return sig, func() { signal.Stop(sig) }
}

func (rp *repl) run(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(rp.out, replHelp)
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(rp.out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			return nil
		}
		if strings.HasPrefix(line, "/") {
			if err := rp.command(ctx, line); err != nil {
				fmt.Fprintln(rp.out, "error:", err)
			}
			continue
		}
		rp.ctrl.SetPrompt(line)
		rp.generate(ctx)
	}
}

func (rp *repl) command(ctx context.Context, line string) error {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/image", "/pdf":
		if arg == "" {
			return fmt.Errorf("usage: %s <path>", name)
		}
		kind := session.UploadImage
		if name == "/pdf" {
			kind = session.UploadDocument
		}
		data, err := os.ReadFile(arg)
		if err != nil {
			return fmt.Errorf("read %s: %w", kind, err)
		}
		// Analysis failures are already shown as the view's error.
		if err := rp.ctrl.Analyze(ctx, kind, filepath.Base(arg), data); err == nil {
			fmt.Fprintf(rp.out, "%s analysed; press enter on any text to generate from it\n", kind)
		}
		return nil
	case "/reset":
		rp.ctrl.Reset()
		return nil
	case "/width":
		n, err := strconv.Atoi(arg)
		if err != nil || n <= 0 {
			return fmt.Errorf("usage: /width <columns>")
		}
		return rp.resize(ctx, n)
	case "/save":
		if arg == "" {
			return fmt.Errorf("usage: /save <path>")
		}
		code := rp.ctrl.View().Code
		if code == "" || code == session.ErrorPlaceholder {
			return errors.New("nothing generated yet")
		}
		return os.WriteFile(arg, []byte(code), 0o644)
	default:
		return fmt.Errorf("unknown command %s", name)
	}
}

// resize runs the width change as a one-move drag gesture so it goes
// through the same clamping as a pointer drag.
func (rp *repl) resize(ctx context.Context, cols int) error {
	events := make(chan layout.Pointer, 2)
	events <- layout.Pointer{Kind: layout.PointerMove, X: cols * render.CellWidth}
	events <- layout.Pointer{Kind: layout.PointerRelease}
	close(events)
	if err := rp.split.Drag(ctx, events); err != nil {
		return err
	}
	fmt.Fprintf(rp.out, "sidebar is %d columns\n", rp.split.Width()/render.CellWidth)
	rp.live.Update(rp.ctrl.View())
	return nil
}

// generate runs one generation. An interrupt while it streams resets the
// session instead of exiting; at the prompt an interrupt exits as usual.
func (rp *repl) generate(ctx context.Context) {
	watch := rp.interrupts
	if watch == nil {
		watch = notifyInterrupt
	}
	sig, stop := watch()
	defer stop()

	done := make(chan error, 1)
	go func() { done <- rp.ctrl.Start(ctx) }()

	var err error
	select {
	case err = <-done:
	case <-sig:
		rp.ctrl.Reset()
		err = <-done
	}

	var ve *session.ValidationError
	switch {
	case err == nil:
		v := rp.ctrl.View()
		fmt.Fprintf(rp.out, "done: %d bytes of HTML; /save <path> to keep it\n", len(v.Code))
	case errors.Is(err, session.ErrReset):
		fmt.Fprintln(rp.out, "generation reset")
	case errors.As(err, &ve):
		// Shown in the view.
	default:
		fmt.Fprintln(rp.out, "error:", err)
	}
}
