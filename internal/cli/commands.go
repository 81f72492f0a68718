package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/sambamart/storefront/internal/checkout"
	"github.com/sambamart/storefront/internal/domain/catalog"
	"github.com/sambamart/storefront/internal/domain/order"
)

func formatPrice(p int64) string {
	return "₹" + strconv.FormatInt(p, 10)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Errorf("invalid id %q", s)
	}
	return id, nil
}

func (e *env) table() *tabwriter.Writer {
	return tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
}

func (e *env) productsCommand() *cobra.Command {
	var (
		category int64
		search   string
	)
	cmd := &cobra.Command{
		Use:   "products",
		Short: "List products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var f catalog.Filter
			if category > 0 {
				f.CategoryID = &category
			}
			f.Search = search

			products, err := e.api.ListProducts(cmd.Context(), f)
			if err != nil {
				return errors.Wrap(err, "list products")
			}
			if len(products) == 0 {
				_, _ = fmt.Fprintln(e.out, "No products found.")
				return nil
			}
			w := e.table()
			_, _ = fmt.Fprintln(w, "ID\tNAME\tPRICE\tSTOCK")
			for _, p := range products {
				_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", p.ID, p.Name, formatPrice(p.Price), p.Stock)
			}
			return w.Flush()
		},
	}
	cmd.Flags().Int64Var(&category, "category", 0, "only products of this category id")
	cmd.Flags().StringVar(&search, "search", "", "case-insensitive name filter")
	return cmd
}

func (e *env) categoriesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			categories, err := e.api.ListCategories(cmd.Context())
			if err != nil {
				return errors.Wrap(err, "list categories")
			}
			w := e.table()
			_, _ = fmt.Fprintln(w, "ID\tNAME\tSLUG")
			for _, c := range categories {
				_, _ = fmt.Fprintf(w, "%d\t%s\t%s\n", c.ID, c.Name, c.Slug)
			}
			return w.Flush()
		},
	}
}

func (e *env) cartCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show and edit the local cart",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return e.printCart()
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show the cart",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				return e.printCart()
			},
		},
		&cobra.Command{
			Use:   "add <product-id>",
			Short: "Add one unit of a product",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				p, err := e.api.GetProduct(cmd.Context(), id)
				if err != nil {
					return errors.Wrapf(err, "get product %d", id)
				}
				if err := e.cart.AddItem(*p); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(e.out, "Added %s. Cart: %d items, %s\n", p.Name, e.cart.ItemCount(), formatPrice(e.cart.Total()))
				return nil
			},
		},
		&cobra.Command{
			Use:   "remove <product-id>",
			Short: "Remove a product from the cart",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				if err := e.cart.RemoveItem(id); err != nil {
					return err
				}
				return e.printCart()
			},
		},
		&cobra.Command{
			Use:   "set <product-id> <quantity>",
			Short: "Set the quantity of a product; 0 removes it",
			Args:  cobra.ExactArgs(2),
			RunE: func(_ *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				qty, err := strconv.Atoi(args[1])
				if err != nil {
					return errors.Errorf("invalid quantity %q", args[1])
				}
				if err := e.cart.UpdateQuantity(id, qty); err != nil {
					return err
				}
				return e.printCart()
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Empty the cart",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				if err := e.cart.ClearCart(); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(e.out, "Cart cleared.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "toggle",
			Short: "Toggle the cart summary printed after other commands",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				if err := e.cart.ToggleCart(); err != nil {
					return err
				}
				state := "hidden"
				if e.cart.IsOpen() {
					state = "shown"
				}
				_, _ = fmt.Fprintf(e.out, "Cart is now %s.\n", state)
				return nil
			},
		},
	)
	return cmd
}

func (e *env) printCart() error {
	items := e.cart.Items()
	if len(items) == 0 {
		_, _ = fmt.Fprintln(e.out, "Your cart is empty.")
		return nil
	}
	w := e.table()
	_, _ = fmt.Fprintln(w, "ID\tNAME\tQTY\tPRICE\tSUBTOTAL")
	for _, it := range items {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n",
			it.ProductID, it.Name, it.Quantity, formatPrice(it.Price), formatPrice(it.Price*int64(it.Quantity)))
	}
	_, _ = fmt.Fprintf(w, "\t\t%d\t\t%s\n", e.cart.ItemCount(), formatPrice(e.cart.Total()))
	return w.Flush()
}

func (e *env) checkoutCommand() *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Place an order for the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			o, err := checkout.NewSubmitter(e.cart, e.api).Submit(cmd.Context(), address)
			var se *checkout.SubmitError
			if errors.As(err, &se) && se.Kind == checkout.Unauthenticated {
				return errors.New("please sign in first: sambamart login <token>")
			}
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(e.out, "Order #%d placed: %s, status %s.\n", o.ID, formatPrice(o.TotalAmount), o.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "address", "", fmt.Sprintf("delivery address (at least %d characters)", checkout.MinAddressLength))
	return cmd
}

func (e *env) ordersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "orders [order-id]",
		Short: "List your orders or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				o, err := e.api.GetOrder(cmd.Context(), id)
				if err != nil {
					return errors.Wrapf(err, "get order %d", id)
				}
				return e.printOrder(o)
			}

			orders, err := e.api.ListOrders(cmd.Context())
			if err != nil {
				return errors.Wrap(err, "list orders")
			}
			if len(orders) == 0 {
				_, _ = fmt.Fprintln(e.out, "No orders yet.")
				return nil
			}
			w := e.table()
			_, _ = fmt.Fprintln(w, "ID\tPLACED\tSTATUS\tTOTAL\tADDRESS")
			for _, o := range orders {
				_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
					o.ID, o.CreatedAt.Local().Format("2006-01-02 15:04"), o.Status, formatPrice(o.TotalAmount), o.Address)
			}
			return w.Flush()
		},
	}
}

func (e *env) printOrder(o *order.Order) error {
	_, _ = fmt.Fprintf(e.out, "Order #%d (%s) placed %s\nDeliver to: %s\n\n",
		o.ID, o.Status, o.CreatedAt.Local().Format("2006-01-02 15:04"), o.Address)
	w := e.table()
	_, _ = fmt.Fprintln(w, "PRODUCT\tQTY\tPRICE")
	for _, it := range o.Items {
		_, _ = fmt.Fprintf(w, "%d\t%d\t%s\n", it.ProductID, it.Quantity, formatPrice(it.Price))
	}
	_, _ = fmt.Fprintf(w, "TOTAL\t\t%s\n", formatPrice(o.TotalAmount))
	return w.Flush()
}

func (e *env) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, ok, err := e.api.Me(cmd.Context())
			if err != nil {
				return errors.Wrap(err, "get user")
			}
			if !ok {
				_, _ = fmt.Fprintln(e.out, "Not signed in.")
				return nil
			}
			line := s.ID
			if s.Name != "" {
				line += " (" + s.Name + ")"
			}
			if s.Email != "" {
				line += " <" + s.Email + ">"
			}
			_, _ = fmt.Fprintln(e.out, line)
			return nil
		},
	}
}

func (e *env) loginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login <token>",
		Short: "Store a bearer token for later commands",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			token := strings.TrimSpace(args[0])
			if token == "" {
				return errors.New("empty token")
			}
			if err := saveToken(e.stateDir(), token); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(e.out, "Signed in.")
			return nil
		},
	}
}

func (e *env) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token and reset the cart",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if err := removeToken(e.stateDir()); err != nil {
				return err
			}
			if err := e.cart.Reset(); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(e.out, "Signed out.")
			return nil
		},
	}
}

func tokenPath(dir string) string {
	return filepath.Join(dir, "token")
}

func loadToken(dir string) (string, error) {
	data, err := os.ReadFile(tokenPath(dir))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "read token")
	}
	return strings.TrimSpace(string(data)), nil
}

func saveToken(dir, token string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrap(err, "create state dir")
	}
	if err := os.WriteFile(tokenPath(dir), []byte(token+"\n"), 0o600); err != nil {
		return errors.Wrap(err, "write token")
	}
	return nil
}

func removeToken(dir string) error {
	if err := os.Remove(tokenPath(dir)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrap(err, "remove token")
	}
	return nil
}
