package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/quotefeed/internal/database"
	"github.com/TobiSchelling/quotefeed/internal/feed"
	"github.com/TobiSchelling/quotefeed/internal/quotes"
)

var (
	swipeMode string
	swipeID   string
)

var swipeCmd = &cobra.Command{
	Use:   "swipe",
	Short: "Step through quotes interactively",
	Long:  "Step through a feed of quotes: n (or enter) next, p previous, f toggle favorite, q quit.",
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := feed.ParseMode(swipeMode, swipeID)
		if err != nil {
			return err
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if mode.Kind == feed.Mix && len(mode.Selection) == 0 {
			sel, err := a.db.GetMixSelection()
			if err != nil {
				return err
			}
			mode.Selection = sel.Categories
		}

		ctx, cancel := commandContext()
		defer cancel()

		ctl := feed.New(a.svc, a.composer, a.db, cfg.FeedOptions())
		defer ctl.Wait()
		return runSwipe(ctx, os.Stdin, os.Stdout, ctl, a.db, mode)
	},
}

func init() {
	swipeCmd.Flags().StringVarP(&swipeMode, "mode", "m", "random", "Feed mode: random, category, mood, topic or mix")
	swipeCmd.Flags().StringVar(&swipeID, "id", "", "Category, mood or topic id; comma-separated ids for mix")
	rootCmd.AddCommand(swipeCmd)
}

// favoriteToggler is the part of the store the swipe loop writes to.
type favoriteToggler interface {
	ToggleFavorite(q database.FavoriteQuote) (bool, error)
}

// swiper is the feed navigation used by the swipe loop.
type swiper interface {
	Load(ctx context.Context, mode feed.Mode) (quotes.DisplayQuote, bool)
	Advance(ctx context.Context) (quotes.DisplayQuote, bool)
	Retreat() (quotes.DisplayQuote, bool)
	Current() (quotes.DisplayQuote, bool)
}

var promptColor = color.New(color.FgYellow).SprintFunc()

func runSwipe(ctx context.Context, in io.Reader, out io.Writer, ctl swiper, favs favoriteToggler, mode feed.Mode) error {
	fmt.Fprintf(out, "Loading %s...\n\n", mode)
	q, ok := ctl.Load(ctx, mode)
	if !ok {
		fmt.Fprintln(out, "No quotes available. Check the upstream configuration with: quotefeed status")
		return nil
	}
	writeQuote(out, q)

	reader := bufio.NewReader(in)
	for {
		fmt.Fprint(out, promptColor("[n]ext [p]rev [f]avorite [q]uit > "))
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			if err == io.EOF {
				fmt.Fprintln(out)
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}
		if ctx.Err() != nil {
			return nil
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "", "n", "next":
			if q, ok := ctl.Advance(ctx); ok {
				writeQuote(out, q)
			} else {
				fmt.Fprintln(out, "No more quotes right now.")
			}
		case "p", "prev":
			if q, ok := ctl.Retreat(); ok {
				writeQuote(out, q)
			} else {
				fmt.Fprintln(out, "Already at the first quote.")
			}
		case "f", "fav", "favorite":
			cur, ok := ctl.Current()
			if !ok {
				continue
			}
			saved, err := favs.ToggleFavorite(database.FavoriteQuote{
				ID: cur.ID, Text: cur.Text, Author: cur.Author, Category: cur.Category,
			})
			if err != nil {
				return fmt.Errorf("toggling favorite: %w", err)
			}
			if saved {
				fmt.Fprintln(out, "Saved to favorites.")
			} else {
				fmt.Fprintln(out, "Removed from favorites.")
			}
		case "q", "quit", "exit":
			return nil
		default:
			fmt.Fprintln(out, "Unknown command.")
		}
	}
}

func writeQuote(out io.Writer, q quotes.DisplayQuote) {
	author := q.Author
	if author == "" {
		author = "Unknown"
	}
	fmt.Fprintf(out, "\n%s\n  - %s\n\n", textColor("\""+q.Text+"\""), authorColor(author))
}
