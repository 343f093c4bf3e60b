package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/quotefeed/internal/database"
	"github.com/TobiSchelling/quotefeed/internal/quotes"
	"github.com/TobiSchelling/quotefeed/internal/taxonomy"
)

// --- mix command ---

var mixCmd = &cobra.Command{
	Use:   "mix",
	Short: "Manage and play the category mix",
}

var mixSetCmd = &cobra.Command{
	Use:   "set [id...]",
	Short: "Replace the mix selection (use _favorites and _myquotes for local collections)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.SetMixCategories(args); err != nil {
			return err
		}
		return printMix(db)
	},
}

var mixToggleCmd = &cobra.Command{
	Use:   "toggle [id]",
	Short: "Add or remove one category from the mix",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if _, err := db.ToggleMixCategory(args[0]); err != nil {
			return err
		}
		return printMix(db)
	},
}

var mixShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the mix selection",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()
		return printMix(db)
	},
}

var mixClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the mix selection",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.ClearMix(); err != nil {
			return err
		}
		fmt.Println("Mix cleared.")
		return nil
	},
}

var mixRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Print a mixed feed for the stored selection",
	RunE: func(cmd *cobra.Command, args []string) error {
		return browse(func(a *app) []quotes.RawQuote {
			sel, err := a.db.GetMixSelection()
			if err != nil {
				fmt.Printf("Reading mix selection failed: %v\n", err)
				return nil
			}
			ctx, cancel := commandContext()
			defer cancel()
			return a.composer.Compose(ctx, sel.Categories)
		})
	},
}

func printMix(db *database.DB) error {
	sel, err := db.GetMixSelection()
	if err != nil {
		return err
	}
	if len(sel.Categories) == 0 {
		fmt.Println("Mix is empty. Add categories with: quotefeed mix toggle <id>")
		return nil
	}
	tables, err := taxonomy.Load(cfg.TaxonomyFile)
	if err != nil {
		return err
	}
	fmt.Printf("Mix (active: %t):\n", sel.Active)
	for _, id := range sel.Categories {
		fmt.Printf("  %-16s %s\n", id, tables.DisplayName(id))
	}
	return nil
}

// --- favorites command ---

var favoritesCmd = &cobra.Command{
	Use:   "favorites",
	Short: "Manage saved quotes",
}

var favoritesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List favorites, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		favs, err := db.GetFavorites()
		if err != nil {
			return err
		}
		if len(favs) == 0 {
			fmt.Println("No favorites yet. Save one with 'f' in quotefeed swipe.")
			return nil
		}
		for _, f := range favs {
			printQuote(quotes.DisplayQuote{ID: f.ID, Text: f.Text, Author: f.Author, Category: f.Category})
		}
		return nil
	},
}

var favoritesAddCmd = &cobra.Command{
	Use:   "add [text] [author]",
	Short: "Save a quote by hand",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		text := strings.TrimSpace(args[0])
		if text == "" {
			return fmt.Errorf("quote text is empty")
		}
		fav := database.FavoriteQuote{
			ID:       "fav-" + uuid.NewString(),
			Text:     text,
			Author:   strings.TrimSpace(args[1]),
			Category: quotes.DefaultCategory,
		}
		if err := db.AddFavorite(fav); err != nil {
			return err
		}
		fmt.Printf("Saved favorite [%s]\n", fav.ID)
		return nil
	},
}

var favoritesRemoveCmd = &cobra.Command{
	Use:   "remove [id]",
	Short: "Remove a favorite",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.RemoveFavorite(args[0]); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return fmt.Errorf("favorite %s not found", args[0])
			}
			return err
		}
		fmt.Printf("Removed favorite [%s]\n", args[0])
		return nil
	},
}

var favoritesClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all favorites",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.ClearFavorites(); err != nil {
			return err
		}
		fmt.Println("Favorites cleared.")
		return nil
	},
}

// --- mine command ---

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Manage your own quotes",
}

var mineListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your quotes, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		mine, err := db.GetUserQuotes()
		if err != nil {
			return err
		}
		if len(mine) == 0 {
			fmt.Println("No quotes yet. Write one with: quotefeed mine add \"text\"")
			return nil
		}
		for _, u := range mine {
			printQuote(quotes.Convert(quotes.FromLocal(u.ID, u.Text, u.Author)))
		}
		return nil
	},
}

var mineAddCmd = &cobra.Command{
	Use:   "add [text] [author]",
	Short: "Write a quote (author defaults to \"Me\")",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		author := ""
		if len(args) > 1 {
			author = args[1]
		}
		q, err := db.AddUserQuote(args[0], author)
		if err != nil {
			return err
		}
		fmt.Printf("Added quote [%s]\n", q.ID)
		return nil
	},
}

var mineEditCmd = &cobra.Command{
	Use:   "edit [id] [text] [author]",
	Short: "Edit one of your quotes",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.EditUserQuote(args[0], args[1], args[2]); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return fmt.Errorf("quote %s not found", args[0])
			}
			return err
		}
		fmt.Printf("Updated quote [%s]\n", args[0])
		return nil
	},
}

var mineRemoveCmd = &cobra.Command{
	Use:   "remove [id]",
	Short: "Delete one of your quotes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.RemoveUserQuote(args[0]); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return fmt.Errorf("quote %s not found", args[0])
			}
			return err
		}
		fmt.Printf("Removed quote [%s]\n", args[0])
		return nil
	},
}

// --- history command ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show or clear recently viewed quotes",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List viewed quotes, most recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		hist, err := db.GetHistory()
		if err != nil {
			return err
		}
		if len(hist) == 0 {
			fmt.Println("History is empty.")
			return nil
		}
		for _, h := range hist {
			printQuote(quotes.DisplayQuote{ID: h.ID, Text: h.Text, Author: h.Author, Category: h.Category})
		}
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget all viewed quotes",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.ClearHistory(); err != nil {
			return err
		}
		fmt.Println("History cleared.")
		return nil
	},
}

func init() {
	mixCmd.AddCommand(mixSetCmd)
	mixCmd.AddCommand(mixToggleCmd)
	mixCmd.AddCommand(mixShowCmd)
	mixCmd.AddCommand(mixClearCmd)
	mixCmd.AddCommand(mixRunCmd)

	favoritesCmd.AddCommand(favoritesListCmd)
	favoritesCmd.AddCommand(favoritesAddCmd)
	favoritesCmd.AddCommand(favoritesRemoveCmd)
	favoritesCmd.AddCommand(favoritesClearCmd)

	mineCmd.AddCommand(mineListCmd)
	mineCmd.AddCommand(mineAddCmd)
	mineCmd.AddCommand(mineEditCmd)
	mineCmd.AddCommand(mineRemoveCmd)

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyClearCmd)

	rootCmd.AddCommand(mixCmd)
	rootCmd.AddCommand(favoritesCmd)
	rootCmd.AddCommand(mineCmd)
	rootCmd.AddCommand(historyCmd)
}
