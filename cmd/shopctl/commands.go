package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xenking/resaller-shop/internal/domain/cart"
	"github.com/xenking/resaller-shop/internal/domain/catalog"
	"github.com/xenking/resaller-shop/internal/domain/checkout"
	"github.com/xenking/resaller-shop/internal/domain/insight"
	"github.com/xenking/resaller-shop/internal/domain/product"
	"github.com/xenking/resaller-shop/internal/integration/gemini"
	"github.com/xenking/resaller-shop/internal/storage/memory"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	catalogFile string
	verbose     bool

	apiKey  string
	model   string
	baseURL string
	timeout time.Duration
}

func newRootCmd() *cobra.Command {
	var g globalFlags

	root := &cobra.Command{
		Use:   "shopctl",
		Short: "Operator tool for the resaller storefront",
		Long: `shopctl runs storefront queries against a catalog file (or the built-in
seed) and calls the text generation backend directly.

The Gemini API key is read from --api-key, SHOP_GEMINI_API_KEY,
GEMINI_API_KEY or API_KEY. Without a key, insight commands print the
fallback text.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			lg := zap.NewNop()
			if g.verbose {
				var err error
				if lg, err = zap.NewDevelopment(); err != nil {
					return errors.Wrap(err, "create logger")
				}
			}
			cmd.SetContext(zctx.Base(cmd.Context(), lg))
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.catalogFile, "catalog-file", "", "catalog JSON (or .json.gz); empty uses the built-in seed")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "log to stderr")
	pf.StringVar(&g.apiKey, "api-key", "", "Gemini API key")
	pf.StringVar(&g.model, "model", gemini.DefaultModel, "Gemini model name")
	pf.StringVar(&g.baseURL, "base-url", "", "override the Gemini API endpoint")
	pf.DurationVar(&g.timeout, "timeout", 15*time.Second, "per-call generation timeout")

	root.AddCommand(
		newCatalogCmd(&g),
		newCategoriesCmd(&g),
		newProductCmd(&g),
		newQuoteCmd(&g),
		newDescribeCmd(&g),
		newAskCmd(&g),
		newPackCmd(),
	)
	return root
}

func (g *globalFlags) catalog() (*catalog.Service, error) {
	repo, err := memory.LoadFile(g.catalogFile)
	if err != nil {
		return nil, errors.Wrap(err, "load catalog")
	}
	return catalog.NewService(repo), nil
}

func (g *globalFlags) insight(cmd *cobra.Command) (*insight.Service, error) {
	key := g.apiKey
	for _, name := range []string{"SHOP_GEMINI_API_KEY", "GEMINI_API_KEY", "API_KEY"} {
		if key != "" {
			break
		}
		key = os.Getenv(name)
	}

	gen := insight.Unavailable()
	if key != "" {
		client, err := gemini.New(cmd.Context(), gemini.Config{
			APIKey:  key,
			Model:   g.model,
			BaseURL: g.baseURL,
			Timeout: g.timeout,
		})
		if err != nil {
			return nil, errors.Wrap(err, "create gemini client")
		}
		gen = client
	}
	return insight.NewService(gen)
}

func newCatalogCmd(g *globalFlags) *cobra.Command {
	var category, maxPrice, sort string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List products with the storefront filters",
		Example: `  shopctl catalog --category Electronics --sort price_asc
  shopctl catalog --max-price 100 --sort "Price: High to Low"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := g.catalog()
			if err != nil {
				return err
			}

			q := catalog.DefaultQuery()
			if category != "" {
				q.Category = category
			}
			if maxPrice != "" {
				if q.PriceCeiling, err = decimal.NewFromString(maxPrice); err != nil {
					return errors.Wrapf(err, "parse --max-price %q", maxPrice)
				}
			}
			if q.Sort, err = catalog.ParseSortOption(sort); err != nil {
				return err
			}

			products, err := svc.Search(cmd.Context(), q)
			if err != nil {
				return err
			}
			return printProducts(cmd.OutOrStdout(), products)
		},
	}
	cmd.Flags().StringVar(&category, "category", catalog.AllCategories, "category filter")
	cmd.Flags().StringVar(&maxPrice, "max-price", "", "price ceiling (default 1000)")
	cmd.Flags().StringVar(&sort, "sort", "", "price_asc, price_desc, newest or popularity (default)")
	return cmd
}

func printProducts(out io.Writer, products []product.Product) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tPRICE\tRATING\tSTOCK")
	for _, p := range products {
		price := p.Price.StringFixed(2)
		if p.OnSale() {
			price += " (was " + p.OriginalPrice.Decimal.StringFixed(2) + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.1f\t%d\n", p.ID, p.Name, p.Category, price, p.Rating, p.Stock)
	}
	return tw.Flush()
}

func newCategoriesCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List category labels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := g.catalog()
			if err != nil {
				return err
			}
			cats, err := svc.Categories(cmd.Context())
			if err != nil {
				return err
			}
			for _, c := range cats {
				fmt.Fprintln(cmd.OutOrStdout(), c)
			}
			return nil
		},
	}
}

func newProductCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "product <id>",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := g.catalog()
			if err != nil {
				return err
			}
			p, err := svc.Get(cmd.Context(), args[0])
			if err != nil {
				return errors.Wrapf(err, "product %q", args[0])
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "ID:\t%s\n", p.ID)
			fmt.Fprintf(tw, "Name:\t%s\n", p.Name)
			fmt.Fprintf(tw, "Brand:\t%s\n", p.Brand)
			fmt.Fprintf(tw, "Category:\t%s\n", p.Category)
			fmt.Fprintf(tw, "Price:\t%s\n", p.Price.StringFixed(2))
			if p.OnSale() {
				fmt.Fprintf(tw, "Original price:\t%s\n", p.OriginalPrice.Decimal.StringFixed(2))
			}
			fmt.Fprintf(tw, "Rating:\t%.1f (%d reviews)\n", p.Rating, p.Reviews)
			fmt.Fprintf(tw, "Stock:\t%d\n", p.Stock)
			fmt.Fprintf(tw, "Description:\t%s\n", p.Description)
			return tw.Flush()
		},
	}
}

// parseQuoteLine parses "id" or "id:qty".
func parseQuoteLine(arg string) (string, int, error) {
	id, qty, found := strings.Cut(arg, ":")
	if !found {
		return id, 1, nil
	}
	n, err := strconv.Atoi(qty)
	if err != nil || n < 1 {
		return "", 0, errors.Errorf("invalid quantity in %q", arg)
	}
	return id, n, nil
}

func newQuoteCmd(g *globalFlags) *cobra.Command {
	var taxRate string

	cmd := &cobra.Command{
		Use:     "quote <id[:qty]>...",
		Short:   "Price a cart the way checkout does",
		Example: "  shopctl quote 1:2 5",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rate, err := decimal.NewFromString(taxRate)
			if err != nil {
				return errors.Wrapf(err, "parse --tax-rate %q", taxRate)
			}
			svc, err := g.catalog()
			if err != nil {
				return err
			}

			c := cart.New()
			for _, arg := range args {
				id, qty, err := parseQuoteLine(arg)
				if err != nil {
					return err
				}
				p, err := svc.Get(cmd.Context(), id)
				if err != nil {
					return errors.Wrapf(err, "product %q", id)
				}
				c.Add(*p)
				c.SetQuantityDelta(p.ID, qty-1)
			}

			s := checkout.Summarize(c, rate)
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
			for _, li := range c.Items() {
				fmt.Fprintf(tw, "%s\tx%d\t%s\t\n", li.Product.Name, li.Quantity, li.Subtotal().StringFixed(2))
			}
			fmt.Fprintf(tw, "Subtotal\t\t%s\t\n", s.Subtotal.StringFixed(2))
			fmt.Fprintf(tw, "Shipping\t\t%s\t\n", shippingLabel(s))
			fmt.Fprintf(tw, "Tax\t\t%s\t\n", s.Tax.StringFixed(2))
			fmt.Fprintf(tw, "Total\t\t%s\t\n", s.Total.StringFixed(2))
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&taxRate, "tax-rate", checkout.DefaultTaxRate.String(), "sales tax rate")
	return cmd
}

func shippingLabel(s checkout.Summary) string {
	if s.FreeShipping() {
		return "FREE"
	}
	return s.Shipping.StringFixed(2)
}

func newDescribeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <id>",
		Short: "Generate the marketing blurb for a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := g.catalog()
			if err != nil {
				return err
			}
			p, err := svc.Get(cmd.Context(), args[0])
			if err != nil {
				return errors.Wrapf(err, "product %q", args[0])
			}
			ins, err := g.insight(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ins.DescribeProduct(cmd.Context(), p.Name, p.Description))
			return nil
		},
	}
}

func newAskCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "ask <question>...",
		Short:   "Ask the shopping assistant",
		Example: `  shopctl ask "what makes a good gift under 50?"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ins, err := g.insight(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ins.AnswerShoppingQuery(cmd.Context(), strings.Join(args, " ")))
			return nil
		},
	}
}

func newPackCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "pack <catalog.json>",
		Short: "Validate a catalog file and gzip it for --catalog-file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := args[0]
			if output == "" {
				output = src + ".gz"
			}

			c, err := memory.LoadFile(src)
			if err != nil {
				return errors.Wrap(err, "validate catalog")
			}
			raw, err := os.ReadFile(src)
			if err != nil {
				return errors.Wrap(err, "read catalog")
			}

			if err := writeGzip(output, raw); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Packed %d products into %s\n", c.Len(), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path (default <input>.gz)")
	return cmd
}

func writeGzip(path string, data []byte) (rerr error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create output")
	}
	defer func() {
		if err := f.Close(); err != nil && rerr == nil {
			rerr = errors.Wrap(err, "close output")
		}
	}()

	zw := pgzip.NewWriter(f)
	if _, err := zw.Write(data); err != nil {
		return errors.Wrap(err, "compress")
	}
	if err := zw.Close(); err != nil {
		return errors.Wrap(err, "flush gzip stream")
	}
	return nil
}
