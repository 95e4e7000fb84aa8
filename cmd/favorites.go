package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kass/go-store-map/pkg/app"
)

var favoritesCmd = &cobra.Command{
	Use:   "favorites",
	Short: "Manage the favorite stores list",
}

var favoritesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the favorite stores",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		list := env.Favorites.List()
		if len(list) == 0 {
			fmt.Println("No favorite stores.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "#\tSTORE\tADDRESS")
		for i, rec := range list {
			fmt.Fprintf(w, "%d\t%s\t%s\n", i, rec.Title, rec.Address)
		}
		return w.Flush()
	},
}

var favoritesAddCmd = &cobra.Command{
	Use:   "add <key>",
	Short: "Add a store from the directory by key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := app.New(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		for _, rec := range env.LoadDirectory(ctx) {
			if rec.Key != args[0] {
				continue
			}
			added, err := env.Favorites.Add(ctx, rec)
			if err != nil {
				return err
			}
			if added {
				fmt.Printf("Added %s\n", rec.Key)
			} else {
				fmt.Printf("%s is already a favorite\n", rec.Key)
			}
			return nil
		}
		return fmt.Errorf("store %q not in directory", args[0])
	},
}

var favoritesRemoveCmd = &cobra.Command{
	Use:   "remove <index>",
	Short: "Remove the favorite at a list position",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		i, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("index must be an integer: %w", err)
		}

		env, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Favorites.Remove(cmd.Context(), i); err != nil {
			return err
		}
		fmt.Printf("Removed favorite %d, %d left\n", i, env.Favorites.Len())
		return nil
	},
}

var favoritesClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every favorite",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Favorites.Clear(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Favorites cleared")
		return nil
	},
}

func init() {
	favoritesCmd.AddCommand(favoritesListCmd, favoritesAddCmd, favoritesRemoveCmd, favoritesClearCmd)
	rootCmd.AddCommand(favoritesCmd)
}
