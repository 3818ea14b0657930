package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/fjod/artisan_market/internal/cart"
	"github.com/fjod/artisan_market/internal/domain"
	"github.com/fjod/artisan_market/internal/favorites"
	"github.com/fjod/artisan_market/internal/kvstore"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// cartCmd works on the persisted cart
var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Inspect or change the persisted cart",
	Long: `Operates on the cart stored in the configured backend.

Available subcommands:
  list   - Show the cart lines and total
  add    - Add one unit of a product
  set    - Set the quantity of a product (0 removes it)
  remove - Remove a product
  clear  - Empty the cart`,
}

var cartListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the cart",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCart(cmd, func(ctx context.Context, s *cart.Store) error {
			return printCart(cmd.OutOrStdout(), s)
		})
	},
}

var (
	addTitle string
	addPrice float64
	addImage string
)

var cartAddCmd = &cobra.Command{
	Use:   "add [product-id]",
	Short: "Add one unit of a product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withCart(cmd, func(ctx context.Context, s *cart.Store) error {
			p := domain.Product{ID: id, Title: addTitle, Price: addPrice, Image: addImage}
			if err := s.Add(ctx, p); err != nil {
				return err
			}
			return printCart(cmd.OutOrStdout(), s)
		})
	},
}

var cartSetCmd = &cobra.Command{
	Use:   "set [product-id] [quantity]",
	Short: "Set the quantity of a product",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		qty, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid quantity %q", args[1])
		}
		return withCart(cmd, func(ctx context.Context, s *cart.Store) error {
			if err := s.SetQuantity(ctx, id, qty); err != nil {
				return err
			}
			return printCart(cmd.OutOrStdout(), s)
		})
	},
}

var cartRemoveCmd = &cobra.Command{
	Use:   "remove [product-id]",
	Short: "Remove a product from the cart",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withCart(cmd, func(ctx context.Context, s *cart.Store) error {
			if err := s.Remove(ctx, id); err != nil {
				return err
			}
			return printCart(cmd.OutOrStdout(), s)
		})
	},
}

var cartClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the cart",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCart(cmd, func(ctx context.Context, s *cart.Store) error {
			if err := s.Clear(ctx); err != nil {
				return err
			}
			return printCart(cmd.OutOrStdout(), s)
		})
	},
}

// favoritesCmd works on the persisted favorites
var favoritesCmd = &cobra.Command{
	Use:   "favorites",
	Short: "Inspect or change the persisted favorites",
}

var favoritesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the favorite product ids",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withFavorites(cmd, func(ctx context.Context, s *favorites.Store) error {
			return writeJSON(cmd.OutOrStdout(), s.IDs())
		})
	},
}

var favoritesToggleCmd = &cobra.Command{
	Use:   "toggle [product-id]",
	Short: "Add or remove a product from the favorites",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withFavorites(cmd, func(ctx context.Context, s *favorites.Store) error {
			if err := s.Toggle(ctx, id); err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), s.IDs())
		})
	},
}

var favoritesClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every favorite",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withFavorites(cmd, func(ctx context.Context, s *favorites.Store) error {
			if err := s.Clear(ctx); err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), s.IDs())
		})
	},
}

func init() {
	cartAddCmd.Flags().StringVar(&addTitle, "title", "", "product title")
	cartAddCmd.Flags().Float64Var(&addPrice, "price", 0, "unit price")
	cartAddCmd.Flags().StringVar(&addImage, "image", "", "product image URL")

	cartCmd.AddCommand(cartListCmd, cartAddCmd, cartSetCmd, cartRemoveCmd, cartClearCmd)
	favoritesCmd.AddCommand(favoritesListCmd, favoritesToggleCmd, favoritesClearCmd)
}

// withBridge opens the configured backend for the duration of fn.
func withBridge(cmd *cobra.Command, fn func(ctx context.Context, b *kvstore.Bridge) error) error {
	ctx := cmd.Context()
	backend, err := openBackend(ctx, cfg.Storage, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Warn("error closing storage", zap.Error(err))
		}
	}()
	return fn(ctx, newBridge(backend, cfg.Storage, log))
}

func withCart(cmd *cobra.Command, fn func(ctx context.Context, s *cart.Store) error) error {
	return withBridge(cmd, func(ctx context.Context, b *kvstore.Bridge) error {
		return fn(ctx, cart.New(ctx, b, cart.WithLogger(log)))
	})
}

func withFavorites(cmd *cobra.Command, fn func(ctx context.Context, s *favorites.Store) error) error {
	return withBridge(cmd, func(ctx context.Context, b *kvstore.Bridge) error {
		return fn(ctx, favorites.New(ctx, b, favorites.WithLogger(log)))
	})
}

func printCart(w io.Writer, s *cart.Store) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tQTY\tPRICE\tSUBTOTAL")
	for _, it := range s.Items() {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%.2f\t%.2f\n", it.ID, it.Title, it.Quantity, it.Price, it.Subtotal())
	}
	fmt.Fprintf(tw, "\t\t%d\t\t%.2f\n", s.ItemCount(), s.Total())
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid product id %q", s)
	}
	return id, nil
}
