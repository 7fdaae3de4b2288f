package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/angelmondragon/storefront/internal/app"
	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/catalog"
)

type options struct {
	cmd      string
	id       string
	qty      int
	limit    int
	username string
	password string
}

type runner struct {
	app *app.App
	out io.Writer
	now func() time.Time
}

func (r runner) run(ctx context.Context, opts options) error {
	switch opts.cmd {
	case "cart":
		return r.printCart()
	case "cart-add":
		if opts.qty > cart.MaxQuantity {
			return fmt.Errorf("-qty must be at most %d", cart.MaxQuantity)
		}
		product, err := r.product(ctx, opts.id)
		if err != nil {
			return err
		}
		qty := opts.qty
		if qty <= 0 {
			qty = 1
		}
		r.app.Cart.AddQuantity(ctx, product, qty)
		return r.printCart()
	case "cart-remove":
		if err := requireID(opts.id); err != nil {
			return err
		}
		r.app.Cart.Remove(ctx, catalog.ID(opts.id))
		return r.printCart()
	case "cart-set":
		if err := requireID(opts.id); err != nil {
			return err
		}
		r.app.Cart.SetQuantity(ctx, catalog.ID(opts.id), opts.qty)
		return r.printCart()
	case "cart-clear":
		r.app.Cart.Clear(ctx)
		return r.printCart()
	case "history":
		return r.printHistory(opts.limit)
	case "history-remove":
		if err := requireID(opts.id); err != nil {
			return err
		}
		r.app.History.Remove(ctx, catalog.ID(opts.id))
		return r.printHistory(opts.limit)
	case "history-clear":
		r.app.History.Clear(ctx)
		fmt.Fprintln(r.out, "view history cleared")
		return nil
	case "view":
		product, err := r.product(ctx, opts.id)
		if err != nil {
			return err
		}
		r.app.History.RecordView(ctx, product)
		fmt.Fprintf(r.out, "%s\t%s\t%s\n", product.ID, product.Name, product.Price)
		return nil
	case "login":
		if err := r.app.Session.Login(ctx, opts.username, opts.password); err != nil {
			return err
		}
		return r.printSession()
	case "logout":
		r.app.Session.Logout(ctx)
		return r.printSession()
	case "whoami":
		return r.printSession()
	case "unread":
		if err := r.app.Notifications.Refresh(ctx); err != nil {
			return err
		}
		fmt.Fprintf(r.out, "unread notifications: %d\n", r.app.Notifications.UnreadCount())
		return nil
	}
	return fmt.Errorf("unknown -cmd value: %s", opts.cmd)
}

func requireID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("missing -id")
	}
	return nil
}

func (r runner) product(ctx context.Context, id string) (catalog.Product, error) {
	if err := requireID(id); err != nil {
		return catalog.Product{}, err
	}
	return r.app.API.Product(ctx, catalog.ID(strings.TrimSpace(id)))
}

func (r runner) printCart() error {
	w := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPRICE\tQTY\tSUBTOTAL")
	for _, entry := range r.app.Cart.Items() {
		subtotal := "-"
		if value, ok := entry.Subtotal(); ok {
			subtotal = value.StringFixed(2)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", entry.ID, entry.Name, entry.Price, entry.Quantity, subtotal)
	}
	fmt.Fprintf(w, "\t\t\t%d\t%s\n", r.app.Cart.Count(), r.app.Cart.Total().StringFixed(2))
	return w.Flush()
}

func (r runner) printHistory(limit int) error {
	entries := r.app.History.Entries()
	if limit > 0 {
		entries = r.app.History.Recent(limit)
	}
	if len(entries) == 0 {
		fmt.Fprintln(r.out, "no recently viewed products")
		return nil
	}
	now := r.now()
	w := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPRICE\tVIEWED")
	for _, entry := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", entry.ID, entry.Name, entry.Price, entry.Age(now))
	}
	return w.Flush()
}

func (r runner) printSession() error {
	user, ok := r.app.Session.User()
	if !ok {
		fmt.Fprintf(r.out, "state: %s\n", r.app.Session.State())
		return nil
	}
	fmt.Fprintf(r.out, "state: %s\nuser: %s (%s)\n", r.app.Session.State(), user.DisplayName(), user.Username)
	return nil
}
