// Command shopper drives the marketplace API from a terminal the way the storefront does:
// it logs in, resyncs favorites from the server and toggles them optimistically.
//
// Usage:
//
//	shopper [flags] login
//	shopper [flags] me
//	shopper [flags] products [search]
//	shopper [flags] toggle <product-id>...
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/abgdnv/marketplace/internal/client"
	"github.com/abgdnv/marketplace/pkg/bootstrap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts, args, err := loadOptions(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Printf("shopper: %v", err)
		os.Exit(2)
	}
	if err := run(ctx, opts, args); err != nil {
		log.Printf("shopper: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, o *options, args []string) error {
	if len(args) == 0 {
		return errors.New("missing command, expected login|me|products|toggle")
	}
	logger := bootstrap.NewLogger(o.Log)
	session := client.NewSession(client.NewAPIClient(o.API, client.WithTimeout(o.Timeout)))
	session.Favorites().OnChange(func(favorites []string) {
		logger.Debug("favorites changed", "favorites", favorites)
	})

	switch cmd, rest := args[0], args[1:]; cmd {
	case "login":
		if err := login(ctx, session, o); err != nil {
			return err
		}
		fmt.Printf("Logged in as %s\n", session.UserName())
		fmt.Println(session.Token())
		return nil
	case "me":
		if err := login(ctx, session, o); err != nil {
			return err
		}
		fmt.Printf("%s\n", session.UserName())
		printFavorites(session.Favorites().Favorites())
		return nil
	case "products":
		page, err := session.Products(ctx, o.Page, o.Limit, strings.Join(rest, " "))
		if err != nil {
			return err
		}
		if o.Token != "" || o.Email != "" {
			if err := login(ctx, session, o); err != nil {
				return err
			}
		}
		fmt.Printf("%d products\n", page.Total)
		for _, p := range page.Products {
			mark := " "
			if session.Favorites().IsFavorite(p.ID) {
				mark = "*"
			}
			fmt.Printf("%s %s  %-40s %10.2f\n", mark, p.ID, p.Title, p.Price)
		}
		return nil
	case "toggle":
		if len(rest) == 0 {
			return errors.New("toggle needs at least one product id")
		}
		if err := login(ctx, session, o); err != nil {
			return err
		}
		var failed []error
		for _, id := range rest {
			if err := session.ToggleFavorite(ctx, id); err != nil {
				failed = append(failed, fmt.Errorf("%s: %w", id, err))
				continue
			}
			state := "removed from"
			if session.Favorites().IsFavorite(id) {
				state = "added to"
			}
			fmt.Printf("%s %s favorites\n", id, state)
		}
		printFavorites(session.Favorites().Favorites())
		return errors.Join(failed...)
	default:
		return fmt.Errorf("unknown command %q, expected login|me|products|toggle", cmd)
	}
}

// login resumes a saved token when one is given, otherwise it signs in with email and password.
func login(ctx context.Context, session *client.Session, o *options) error {
	if o.Token != "" {
		return session.UseToken(ctx, o.Token)
	}
	if o.Email == "" || o.Password == "" {
		return client.ErrNotLoggedIn
	}
	return session.Login(ctx, o.Email, o.Password)
}

func printFavorites(favorites []string) {
	if len(favorites) == 0 {
		fmt.Println("No favorites yet")
		return
	}
	fmt.Println("Favorites:")
	for _, id := range favorites {
		fmt.Printf("  %s\n", id)
	}
}
