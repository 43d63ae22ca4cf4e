package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/AYShukla05/smartkart-client/api"
	"github.com/AYShukla05/smartkart-client/cart"
	"github.com/AYShukla05/smartkart-client/catalog"
	"github.com/AYShukla05/smartkart-client/credentials"
	"github.com/AYShukla05/smartkart-client/guard"
	"github.com/AYShukla05/smartkart-client/internal/config"
	"github.com/AYShukla05/smartkart-client/orders"
	"github.com/AYShukla05/smartkart-client/session"
	"github.com/AYShukla05/smartkart-client/transport"
)

// guardTimeout bounds how long a command waits for the startup identity load.
const guardTimeout = 10 * time.Second

type app struct {
	log     zerolog.Logger
	session *session.Manager
	cart    *cart.Service
	catalog *catalog.Client
	orders  *orders.Client
}

func newApp(c config.Config) (*app, error) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	store := credentials.NewFileStore(c.GetCredentialsFile())
	authorizer := transport.NewAuthorizer(store, c.GetAPIBaseURL(),
		transport.WithLogger(logger),
		transport.WithRefreshTimeout(c.GetRefreshTimeout()),
		transport.WithRateLimit(c.GetRequestsPerSecond(), 1),
	)
	httpClient := &http.Client{Transport: authorizer, Timeout: c.GetHTTPTimeout()}
	apiClient := api.NewClient(c.GetAPIBaseURL(), httpClient, api.WithLogger(logger))

	manager := session.NewManager(apiClient, store,
		session.WithLogger(logger),
		session.WithLogoutHook(func() {
			fmt.Println("Signed out. Run `smartkart login` to sign in again.")
		}),
	)
	authorizer.SetRefresher(manager)

	return &app{
		log:     logger,
		session: manager,
		cart:    cart.NewService(apiClient, cart.WithLogger(logger)),
		catalog: catalog.NewClient(apiClient, httpClient),
		orders:  orders.NewClient(apiClient),
	}, nil
}

func (a *app) dispatch(ctx context.Context, command string, args []string) error {
	// Every command starts from the persisted session; commands gate on the
	// load settling through the guards, never on the raw state.
	go a.session.Start(ctx)

	switch command {
	case "login":
		return a.cmdLogin(ctx, args)
	case "register":
		return a.cmdRegister(ctx, args)
	case "logout":
		a.session.Logout()
		return nil
	case "whoami":
		return a.cmdWhoami(ctx)
	case "products":
		return a.cmdProducts(ctx)
	case "product":
		return a.cmdProduct(ctx, args)
	case "categories":
		return a.cmdCategories(ctx)
	case "cart":
		return a.cmdCart(ctx)
	case "cart-add":
		return a.cmdCartAdd(ctx, args)
	case "cart-set":
		return a.cmdCartSet(ctx, args)
	case "cart-rm":
		return a.cmdCartRemove(ctx, args)
	case "checkout":
		return a.cmdCheckout(ctx)
	case "orders":
		return a.cmdOrders(ctx)
	case "my-products":
		return a.cmdMyProducts(ctx)
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

// checkGuard evaluates g within the guard timeout and reports whether the
// command may proceed, printing the redirect hint when it may not.
func (a *app) checkGuard(ctx context.Context, g guard.Guard) bool {
	guardCtx, cancel := context.WithTimeout(ctx, guardTimeout)
	defer cancel()
	decision := g(guardCtx, a.session)
	if !decision.Allow {
		fmt.Printf("Not available here, go to %s\n", decision.RedirectTo)
		return false
	}
	return true
}

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	fs.Parse(args)

	if !a.checkGuard(ctx, guard.Guest) {
		return nil
	}
	user, err := a.session.Login(ctx, session.Credentials{Email: *email, Password: *password})
	if err != nil {
		return err
	}
	fmt.Printf("Welcome back, %s (%s)\n", user.Email, user.Role)
	return nil
}

func (a *app) cmdRegister(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	role := fs.String("role", string(session.RoleBuyer), "BUYER or SELLER")
	fs.Parse(args)

	if !a.checkGuard(ctx, guard.Guest) {
		return nil
	}
	user, err := a.session.Register(ctx, session.Registration{
		Email:    *email,
		Password: *password,
		Role:     session.Role(*role),
	})
	if err != nil {
		if api.IsValidation(err) {
			printValidation(err)
			return nil
		}
		return err
	}
	fmt.Printf("Account created: %s (%s)\n", user.Email, user.Role)
	return nil
}

func (a *app) cmdWhoami(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, guardTimeout)
	defer cancel()
	select {
	case <-a.session.Initialized():
	case <-waitCtx.Done():
	}

	user := a.session.CurrentUser()
	if user == nil {
		fmt.Println("Not signed in.")
		return nil
	}
	fmt.Printf("%s  role=%s staff=%t\n", user.Email, user.Role, user.IsStaff)
	if exp, ok := a.session.TokenExpiry(); ok {
		state := "valid"
		if a.session.TokenIsStale() {
			state = "stale (will refresh on next request)"
		}
		fmt.Printf("access credential: %s, expires %s\n", state, exp.Format(time.RFC3339))
	}
	return nil
}

func (a *app) cmdProducts(ctx context.Context) error {
	products, err := a.catalog.PublicList(ctx)
	if err != nil {
		return err
	}
	for _, p := range products {
		fmt.Printf("%4d  %-30s  %8.2f  stock=%d  %s\n", p.ID, p.Name, float64(p.Price), p.Stock, p.CategoryName)
	}
	return nil
}

func (a *app) cmdProduct(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("product", flag.ExitOnError)
	id := fs.Int64("id", 0, "product id")
	fs.Parse(args)

	detail, err := a.catalog.PublicDetail(ctx, *id)
	if err != nil {
		return err
	}
	fmt.Printf("%s  %.2f (stock %d)\n%s\n", detail.Name, float64(detail.Price), detail.Stock, detail.Description)
	return nil
}

func (a *app) cmdCategories(ctx context.Context) error {
	categories, err := a.catalog.Categories(ctx)
	if err != nil {
		return err
	}
	for _, c := range categories {
		fmt.Printf("%4d  %s (%s)\n", c.ID, c.Name, c.Slug)
	}
	return nil
}

func (a *app) cmdCart(ctx context.Context) error {
	if !a.checkGuard(ctx, guard.Buyer) {
		return nil
	}
	if err := a.cart.Load(ctx); err != nil {
		return err
	}
	for _, item := range a.cart.Items() {
		fmt.Printf("%4d  %-30s  x%d  %8.2f\n", item.ID, item.ProductName, item.Quantity, float64(item.Price))
	}
	fmt.Printf("%d items, subtotal %.2f\n", a.cart.ItemCount(), a.cart.Subtotal())
	return nil
}

func (a *app) cmdCartAdd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("cart-add", flag.ExitOnError)
	product := fs.Int64("product", 0, "product id")
	qty := fs.Int("qty", 1, "quantity")
	fs.Parse(args)

	if !a.checkGuard(ctx, guard.Buyer) {
		return nil
	}
	if _, err := a.cart.AddItem(ctx, *product, *qty); err != nil {
		return err
	}
	fmt.Printf("Added product %d x%d\n", *product, *qty)
	return nil
}

func (a *app) cmdCartSet(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("cart-set", flag.ExitOnError)
	item := fs.Int64("item", 0, "cart item id")
	product := fs.Int64("product", 0, "product id")
	qty := fs.Int("qty", 1, "quantity")
	fs.Parse(args)

	if !a.checkGuard(ctx, guard.Buyer) {
		return nil
	}
	if err := a.cart.Load(ctx); err != nil {
		return err
	}
	return a.cart.UpdateQuantity(ctx, *item, *product, *qty)
}

func (a *app) cmdCartRemove(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("cart-rm", flag.ExitOnError)
	item := fs.Int64("item", 0, "cart item id")
	fs.Parse(args)

	if !a.checkGuard(ctx, guard.Buyer) {
		return nil
	}
	if err := a.cart.Load(ctx); err != nil {
		return err
	}
	return a.cart.RemoveItem(ctx, *item)
}

func (a *app) cmdCheckout(ctx context.Context) error {
	if !a.checkGuard(ctx, guard.Buyer) {
		return nil
	}
	result, err := a.orders.Checkout(ctx)
	if err != nil {
		return err
	}
	a.cart.ClearLocal()
	fmt.Printf("Order %d placed, total %.2f\n", result.OrderID, float64(result.TotalAmount))
	return nil
}

func (a *app) cmdOrders(ctx context.Context) error {
	if !a.checkGuard(ctx, guard.Buyer) {
		return nil
	}
	list, err := a.orders.Orders(ctx)
	if err != nil {
		return err
	}
	for _, o := range list {
		fmt.Printf("%4d  %-10s  %8.2f  %s\n", o.ID, o.Status, float64(o.TotalAmount), o.CreatedAt)
	}
	return nil
}

func (a *app) cmdMyProducts(ctx context.Context) error {
	if !a.checkGuard(ctx, guard.Seller) {
		return nil
	}
	products, err := a.catalog.MyProducts(ctx)
	if err != nil {
		return err
	}
	for _, p := range products {
		active := " "
		if p.IsActive {
			active = "*"
		}
		fmt.Printf("%4d %s %-30s  %8.2f  stock=%d\n", p.ID, active, p.Name, float64(p.Price), p.Stock)
	}
	return nil
}

func printValidation(err error) {
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		fmt.Println(err)
		return
	}
	for field, messages := range apiErr.Fields {
		for _, msg := range messages {
			fmt.Printf("%s: %s\n", field, msg)
		}
	}
}
