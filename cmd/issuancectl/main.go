// Command issuancectl is a thin operator CLI over the issuanced HTTP API.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "issuancectl",
		Usage: "operate the structured-product issuance engine",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api",
				Usage:   "base URL of the issuanced API",
				Value:   "http://localhost:8080",
				EnvVars: []string{"ISSUANCE_API_URL"},
			},
			&cli.StringFlag{
				Name:    "key",
				Usage:   "operator API key",
				EnvVars: []string{"OPERATOR_API_KEY"},
			},
		},
		Commands: []*cli.Command{
			productsCommand(),
			transitionCommand(),
			couponCommand(),
			pauseCommand(),
			depositCommand(),
			withdrawCommand(),
			listingsCommand(),
			priceCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func productsCommand() *cli.Command {
	return &cli.Command{
		Name:  "products",
		Usage: "inspect and create products",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list all products",
				Action: func(c *cli.Context) error {
					return getJSON(c, "/api/v1/products")
				},
			},
			{
				Name:      "get",
				Usage:     "show one product",
				ArgsUsage: "NAME",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return cli.Exit("usage: products get NAME", 2)
					}
					return getJSON(c, "/api/v1/products/"+url.PathEscape(c.Args().First()))
				},
			},
			{
				Name:  "create",
				Usage: "create a product",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "underlying", Required: true},
					&cli.StringFlag{Name: "manager"},
					&cli.StringFlag{Name: "counterparty"},
					&cli.StringFlag{Name: "lot-size", Required: true, Usage: "lot size in smallest units"},
					&cli.StringFlag{Name: "max-capacity", Required: true, Usage: "max capacity in smallest units"},
				},
				Action: func(c *cli.Context) error {
					body := map[string]any{
						"name":         c.String("name"),
						"underlying":   c.String("underlying"),
						"manager":      c.String("manager"),
						"counterparty": c.String("counterparty"),
						"lotSize":      c.String("lot-size"),
						"maxCapacity":  c.String("max-capacity"),
					}
					return postJSON(c, "/api/v1/products", body)
				},
			},
			{
				Name:      "holder",
				Usage:     "show a holder's position",
				ArgsUsage: "NAME ADDRESS",
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return cli.Exit("usage: products holder NAME ADDRESS", 2)
					}
					return getJSON(c, fmt.Sprintf("/api/v1/products/%s/holders/%s",
						url.PathEscape(c.Args().Get(0)), url.PathEscape(c.Args().Get(1))))
				},
			},
			{
				Name:      "events",
				Usage:     "show recent product events",
				ArgsUsage: "NAME",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return cli.Exit("usage: products events NAME", 2)
					}
					return getJSON(c, "/api/v1/products/"+url.PathEscape(c.Args().First())+"/events")
				},
			},
		},
	}
}

func transitionCommand() *cli.Command {
	return &cli.Command{
		Name:      "transition",
		Usage:     "advance a product's lifecycle",
		ArgsUsage: "NAME fundAccept|fundLock|issuance|mature",
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return cli.Exit("usage: transition NAME ACTION", 2)
			}
			return postJSON(c,
				"/api/v1/products/"+url.PathEscape(c.Args().Get(0))+"/transition",
				map[string]string{"action": c.Args().Get(1)})
		},
	}
}

func couponCommand() *cli.Command {
	return &cli.Command{
		Name:      "coupon",
		Usage:     "run one weekly coupon accrual",
		ArgsUsage: "NAME",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("usage: coupon NAME", 2)
			}
			return postJSON(c, "/api/v1/products/"+url.PathEscape(c.Args().First())+"/coupon", nil)
		},
	}
}

func pauseCommand() *cli.Command {
	return &cli.Command{
		Name:      "pause",
		Usage:     "pause or unpause a product",
		ArgsUsage: "NAME on|off",
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return cli.Exit("usage: pause NAME on|off", 2)
			}
			action := "pause"
			if c.Args().Get(1) == "off" {
				action = "unpause"
			}
			return postJSON(c, "/api/v1/products/"+url.PathEscape(c.Args().First())+"/"+action, nil)
		},
	}
}

func depositCommand() *cli.Command {
	return &cli.Command{
		Name:  "deposit",
		Usage: "deposit into a fund-accepting product",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "product", Required: true},
			&cli.StringFlag{Name: "caller", Required: true},
			&cli.StringFlag{Name: "amount", Required: true, Usage: "amount in smallest units"},
			&cli.BoolFlag{Name: "top-up", Usage: "pay from owed coupon/option balances"},
		},
		Action: func(c *cli.Context) error {
			return postJSON(c,
				"/api/v1/products/"+url.PathEscape(c.String("product"))+"/deposit",
				map[string]any{
					"caller": c.String("caller"),
					"amount": c.String("amount"),
					"topUp":  c.Bool("top-up"),
				})
		},
	}
}

func withdrawCommand() *cli.Command {
	return &cli.Command{
		Name:  "withdraw",
		Usage: "withdraw principal, coupon, or option payout",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "product", Required: true},
			&cli.StringFlag{Name: "caller", Required: true},
			&cli.StringFlag{Name: "kind", Required: true, Usage: "principal | coupon | option"},
		},
		Action: func(c *cli.Context) error {
			return postJSON(c,
				"/api/v1/products/"+url.PathEscape(c.String("product"))+"/withdrawals",
				map[string]string{
					"caller": c.String("caller"),
					"kind":   c.String("kind"),
				})
		},
	}
}

func listingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "listings",
		Usage: "inspect marketplace listings",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list open listings",
				Action: func(c *cli.Context) error {
					return getJSON(c, "/api/v1/listings")
				},
			},
			{
				Name:      "get",
				Usage:     "show one listing",
				ArgsUsage: "ID",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return cli.Exit("usage: listings get ID", 2)
					}
					return getJSON(c, "/api/v1/listings/"+url.PathEscape(c.Args().First()))
				},
			},
		},
	}
}

func priceCommand() *cli.Command {
	return &cli.Command{
		Name:  "price",
		Usage: "show the informational reference price for a symbol",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "symbol", Required: true, Usage: "e.g. BTC/USD"},
		},
		Action: func(c *cli.Context) error {
			return getJSON(c, "/api/v1/prices?symbol="+url.QueryEscape(c.String("symbol")))
		},
	}
}

func getJSON(c *cli.Context, path string) error {
	return request(c, http.MethodGet, path, nil)
}

func postJSON(c *cli.Context, path string, body any) error {
	return request(c, http.MethodPost, path, body)
}

func request(c *cli.Context, method, path string, body any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(c.Context, method, c.String("api")+path, rd)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if key := c.String("key"); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("calling API: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if len(data) > 0 {
		var pretty bytes.Buffer
		if json.Indent(&pretty, data, "", "  ") == nil {
			fmt.Println(pretty.String())
		} else {
			fmt.Print(string(data))
		}
	}

	if resp.StatusCode >= 400 {
		return cli.Exit(fmt.Sprintf("API returned %s", resp.Status), 1)
	}
	return nil
}
