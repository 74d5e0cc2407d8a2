package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ariefcatur/go-storefront/internal/backend"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/taxonomy"
)

func (a *app) productsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "products", Short: "List, show, create, update and delete products"}

	var search string
	list := &cobra.Command{
		Use:   "list",
		Short: "List products",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, err := a.ctx(cmd)
			if err != nil {
				return err
			}
			products, err := a.client.Products(ctx, search)
			if err != nil {
				return fmt.Errorf("load products: %w", err)
			}
			return a.table("ID\tNAME\tBRAND\tCATEGORY\tPRICE\tSTOCK", func(w io.Writer) {
				for _, p := range products {
					p = catalog.Normalize(p)
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%d\n", p.ID, p.Name, p.Brand, p.Category, p.Price, p.Stock)
				}
			})
		},
	}
	list.Flags().StringVar(&search, "search", "", "name search")

	del := &cobra.Command{
		Use:   "delete PRODUCT_ID",
		Short: "Delete a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := a.ctx(cmd)
			if err != nil {
				return err
			}
			if err := a.client.DeleteProduct(ctx, args[0]); err != nil {
				return fmt.Errorf("delete product: %w", err)
			}
			fmt.Fprintf(a.out, "deleted %s\n", args[0])
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show PRODUCT_ID",
		Short: "Print one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := a.ctx(cmd)
			if err != nil {
				return err
			}
			p, err := a.client.Product(ctx, args[0])
			if err != nil {
				return fmt.Errorf("load product: %w", err)
			}
			return a.printJSON(catalog.Normalize(p))
		},
	}

	var file string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a product from a JSON file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, err := a.ctx(cmd)
			if err != nil {
				return err
			}
			p, err := readProduct(file)
			if err != nil {
				return err
			}
			out, err := a.client.CreateProduct(ctx, p)
			if err != nil {
				return fmt.Errorf("create product: %w", err)
			}
			fmt.Fprintf(a.out, "created %s\n", out.Key())
			return nil
		},
	}
	create.Flags().StringVar(&file, "file", "", "product JSON")
	_ = create.MarkFlagRequired("file")

	update := &cobra.Command{
		Use:   "update PRODUCT_ID",
		Short: "Replace a product with a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := a.ctx(cmd)
			if err != nil {
				return err
			}
			p, err := readProduct(file)
			if err != nil {
				return err
			}
			if _, err := a.client.UpdateProduct(ctx, args[0], p); err != nil {
				return fmt.Errorf("update product: %w", err)
			}
			fmt.Fprintf(a.out, "updated %s\n", args[0])
			return nil
		},
	}
	update.Flags().StringVar(&file, "file", "", "product JSON")
	_ = update.MarkFlagRequired("file")

	cmd.AddCommand(list, show, create, update, del)
	return cmd
}

// readProduct loads a product document. Name and a non-negative price are
// the only fields checked here; the backend owns the rest.
func readProduct(path string) (backend.Product, error) {
	var p backend.Product
	raw, err := os.ReadFile(path)
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("parse %s: %w", path, err)
	}
	if strings.TrimSpace(p.Name) == "" {
		return p, fmt.Errorf("%s: product name is required", path)
	}
	if p.Price < 0 {
		return p, fmt.Errorf("%s: price must be >= 0", path)
	}
	return p, nil
}

func (a *app) filtersCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "filters", Short: "Edit the shop's categories, brands and price bands"}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the filter document",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, err := a.ctx(cmd)
			if err != nil {
				return err
			}
			ed, err := taxonomy.Load(ctx, a.client)
			if err != nil {
				return fmt.Errorf("load filters: %w", err)
			}
			return a.printJSON(ed.Filters())
		},
	}

	var file string
	save := &cobra.Command{
		Use:   "save",
		Short: "Replace the filter document with a JSON file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			var f backend.Filters
			if err := json.Unmarshal(raw, &f); err != nil {
				return fmt.Errorf("parse %s: %w", file, err)
			}
			ed := taxonomy.FromFilters(f)
			for _, b := range ed.Bands {
				if _, err := taxonomy.ParseBand(b.Label, ftoa(b.Min), ftoa(b.Max)); err != nil {
					return fmt.Errorf("band %q: %w", b.Label, err)
				}
			}
			return a.saveFilters(cmd, ed)
		},
	}
	save.Flags().StringVar(&file, "file", "filters.json", "filter document")
	_ = save.MarkFlagRequired("file")

	cmd.AddCommand(
		show,
		save,
		a.editFilters("add-category NAME", "Add a category", 1, func(ed *taxonomy.Editor, args []string) error {
			return ed.AddCategory(args[0])
		}),
		a.editFilters("add-brand NAME", "Add a brand", 1, func(ed *taxonomy.Editor, args []string) error {
			return ed.AddBrand(args[0])
		}),
		a.editFilters("add-band LABEL MIN MAX", "Add a price band", 3, func(ed *taxonomy.Editor, args []string) error {
			return ed.AddBand(args[0], args[1], args[2])
		}),
		a.editFilters("remove-category INDEX", "Remove a category by position", 1, func(ed *taxonomy.Editor, args []string) error {
			return withIndex(args[0], ed.RemoveCategory)
		}),
		a.editFilters("remove-brand INDEX", "Remove a brand by position", 1, func(ed *taxonomy.Editor, args []string) error {
			return withIndex(args[0], ed.RemoveBrand)
		}),
		a.editFilters("remove-band INDEX", "Remove a price band by position", 1, func(ed *taxonomy.Editor, args []string) error {
			return withIndex(args[0], ed.RemoveBand)
		}),
	)
	return cmd
}

// editFilters builds a load, change, save command.
func (a *app) editFilters(use, short string, nargs int, change func(*taxonomy.Editor, []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := a.ctx(cmd)
			if err != nil {
				return err
			}
			ed, err := taxonomy.Load(ctx, a.client)
			if err != nil {
				return fmt.Errorf("load filters: %w", err)
			}
			if err := change(ed, args); err != nil {
				return err
			}
			return a.saveFilters(cmd, ed)
		},
	}
}

func (a *app) saveFilters(cmd *cobra.Command, ed *taxonomy.Editor) error {
	ctx, err := a.ctx(cmd)
	if err != nil {
		return err
	}
	if err := ed.Save(ctx, a.client); err != nil {
		return fmt.Errorf("save filters: %w", err)
	}
	fmt.Fprintln(a.out, "Filters saved")
	return nil
}

func withIndex(s string, fn func(int) error) error {
	i, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("index must be a number: %w", err)
	}
	return fn(i)
}

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
