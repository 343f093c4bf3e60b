package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/quotefeed/internal/quotes"
)

var (
	textColor   = color.New(color.FgCyan).SprintFunc()
	authorColor = color.New(color.FgGreen, color.Bold).SprintFunc()
	dimColor    = color.New(color.Faint).SprintFunc()
)

var randomCount int

var randomCmd = &cobra.Command{
	Use:   "random",
	Short: "Print random quotes",
	RunE: func(cmd *cobra.Command, args []string) error {
		if randomCount < 1 {
			return fmt.Errorf("count must be positive, got %d", randomCount)
		}
		return browse(func(a *app) []quotes.RawQuote {
			ctx, cancel := commandContext()
			defer cancel()
			return a.svc.FetchRandom(ctx, randomCount)
		})
	},
}

var categoryCmd = &cobra.Command{
	Use:   "category [id]",
	Short: "Print quotes ranked for a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return browse(func(a *app) []quotes.RawQuote {
			ctx, cancel := commandContext()
			defer cancel()
			return a.svc.FetchByCategory(ctx, args[0])
		})
	},
}

var moodCmd = &cobra.Command{
	Use:   "mood [id]",
	Short: "Print quotes ranked for a mood",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return browse(func(a *app) []quotes.RawQuote {
			ctx, cancel := commandContext()
			defer cancel()
			return a.svc.FetchByMood(ctx, args[0])
		})
	},
}

var topicCmd = &cobra.Command{
	Use:   "topic [id]",
	Short: "Print quotes ranked for a topic",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return browse(func(a *app) []quotes.RawQuote {
			ctx, cancel := commandContext()
			defer cancel()
			return a.svc.FetchByTopic(ctx, args[0])
		})
	},
}

var authorCmd = &cobra.Command{
	Use:   "author [slug]",
	Short: "Print cached quotes by an author (e.g. marcus-aurelius)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return browse(func(a *app) []quotes.RawQuote {
			ctx, cancel := commandContext()
			defer cancel()
			return a.svc.FetchByAuthor(ctx, args[0])
		})
	},
}

var tagsCmd = &cobra.Command{
	Use:   "tags [tag...]",
	Short: "Print quotes matching any of the given tags",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return browse(func(a *app) []quotes.RawQuote {
			ctx, cancel := commandContext()
			defer cancel()
			return a.svc.FetchByTags(ctx, args)
		})
	},
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List category ids",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		for _, id := range a.tables.CategoryIDs() {
			e := a.tables.Categories[id]
			fmt.Printf("  %-16s %s %s\n", id, e.Name, dimColor(e.Section))
		}
		return nil
	},
}

var moodsCmd = &cobra.Command{
	Use:   "moods",
	Short: "List mood ids",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		for _, id := range a.tables.MoodIDs() {
			e := a.tables.Moods[id]
			related := ""
			if len(e.Categories) > 0 {
				related = dimColor("-> " + strings.Join(e.Categories, ", "))
			}
			fmt.Printf("  %-16s %s %s\n", id, e.Name, related)
		}
		return nil
	},
}

func init() {
	randomCmd.Flags().IntVarP(&randomCount, "count", "n", 20, "Number of quotes")

	rootCmd.AddCommand(randomCmd)
	rootCmd.AddCommand(categoryCmd)
	rootCmd.AddCommand(moodCmd)
	rootCmd.AddCommand(topicCmd)
	rootCmd.AddCommand(authorCmd)
	rootCmd.AddCommand(tagsCmd)
	rootCmd.AddCommand(categoriesCmd)
	rootCmd.AddCommand(moodsCmd)
}

// browse opens the app, runs fetch and prints the converted result.
func browse(fetch func(a *app) []quotes.RawQuote) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	got := quotes.ConvertAll(fetch(a))
	if len(got) == 0 {
		fmt.Println("No quotes found.")
		return nil
	}
	for _, q := range got {
		printQuote(q)
	}
	return nil
}

func printQuote(q quotes.DisplayQuote) {
	author := q.Author
	if author == "" {
		author = "Unknown"
	}
	fmt.Printf("%s\n  - %s %s\n\n", textColor("\""+q.Text+"\""), authorColor(author), dimColor("["+q.ID+"]"))
}
