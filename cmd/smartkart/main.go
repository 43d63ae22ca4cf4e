package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"runtime/debug"

	"github.com/common-nighthawk/go-figure"

	"github.com/AYShukla05/smartkart-client/internal/config"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatalf("Error: %s\n", err)
	}
}

func run(args []string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	config.Load()
	c := config.New()

	if len(args) == 0 || args[0] == "help" {
		displayAppname(c.GetAppName())
		usage()
		return nil
	}

	app, err := newApp(c)
	if err != nil {
		return err
	}
	return app.dispatch(context.Background(), args[0], args[1:])
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}

func usage() {
	fmt.Print(`Usage: smartkart <command> [flags]

Account
  login       -email -password        sign in
  register    -email -password -role  create an account (BUYER or SELLER)
  logout                              sign out
  whoami                              show the active session

Catalog
  products                            list active products
  product     -id                     show one product
  categories                          list categories

Shopping (buyers)
  cart                                show the cart
  cart-add    -product -qty           add a product
  cart-set    -item -product -qty     change a line's quantity
  cart-rm     -item                   remove a line
  checkout                            place the order
  orders                              list past orders

Selling (sellers)
  my-products                         list your products
`)
}
