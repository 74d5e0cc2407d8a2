package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ariefcatur/go-storefront/internal/orders"
)

func (a *app) ordersCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "orders", Short: "List, inspect, update and export orders"}

	var q orders.Query
	var sort string
	list := &cobra.Command{
		Use:   "list",
		Short: "List orders with search, filters, sorting and paging",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, err := a.ctx(cmd)
			if err != nil {
				return err
			}
			all, err := a.client.Orders(ctx)
			if err != nil {
				return fmt.Errorf("load orders: %w", err)
			}
			q.Sort = orders.Sort(sort)
			page := q.Apply(all)
			err = a.table("ID\tCUSTOMER\tTOTAL\tSTATUS\tCOURIER\tCREATED", func(w io.Writer) {
				for _, o := range page.Orders {
					fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\t%s\t%s\n", o.ID, o.ShippingAddress.FullName, o.TotalAmount,
						o.Status, o.Courier(), o.CreatedAt.Format("2006-01-02"))
				}
			})
			fmt.Fprintf(a.out, "page %d/%d, %d orders\n", page.Page, page.TotalPages, page.Total)
			return err
		},
	}
	list.Flags().StringVar(&q.Search, "search", "", "match id, customer, email, phone or tracking number")
	list.Flags().StringVar(&q.Status, "status", orders.All, "order status")
	list.Flags().StringVar(&q.Courier, "courier", orders.All, "courier name")
	list.Flags().StringVar(&sort, "sort", string(orders.SortNewest), "newest, oldest, high or low")
	list.Flags().IntVar(&q.Page, "page", 1, "page number")

	show := &cobra.Command{
		Use:   "show ORDER_ID",
		Short: "Show an order with its tracking timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := a.ctx(cmd)
			if err != nil {
				return err
			}
			d, err := a.workflow().Load(ctx, args[0])
			if err != nil {
				return err
			}
			return a.printJSON(d)
		},
	}

	status := &cobra.Command{
		Use:   "status ORDER_ID STATUS",
		Short: "Set the order status (Pending, Processing, Shipped, Delivered, Cancelled)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := a.ctx(cmd)
			if err != nil {
				return err
			}
			wf := a.workflow()
			d, err := wf.Load(ctx, args[0])
			if err != nil {
				return err
			}
			d, err = wf.ForceStatus(ctx, d, args[1])
			if err != nil {
				return fmt.Errorf("update order status: %w", err)
			}
			fmt.Fprintf(a.out, "order %s is now %s\n", d.Order.ID, d.Order.Status)
			return nil
		},
	}

	cmd.AddCommand(list, show, status, a.exportCmd())
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	var format, status, courier, dir string
	var local bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download orders as csv or excel",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, err := a.ctx(cmd)
			if err != nil {
				return err
			}
			f, err := orders.ParseFormat(format)
			if err != nil {
				return err
			}
			var file orders.File
			if local {
				all, err := a.client.Orders(ctx)
				if err != nil {
					return fmt.Errorf("load orders: %w", err)
				}
				var buf bytes.Buffer
				q := orders.Query{Status: status, Courier: courier}
				if err := orders.WriteLocal(&buf, f, q.Filter(all)); err != nil {
					return err
				}
				file = orders.File{Name: f.Filename(time.Now()), ContentType: f.ContentType(), Data: buf.Bytes()}
			} else {
				file, err = orders.ExportRemote(ctx, a.client, f, status, courier, time.Now())
				if err != nil {
					return fmt.Errorf("export orders: %w", err)
				}
			}
			path := filepath.Join(dir, file.Name)
			if err := os.WriteFile(path, file.Data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "wrote %s (%d bytes)\n", path, len(file.Data))
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", string(orders.FormatCSV), "csv or excel")
	cmd.Flags().StringVar(&status, "status", orders.All, "order status filter")
	cmd.Flags().StringVar(&courier, "courier", orders.All, "courier filter")
	cmd.Flags().StringVar(&dir, "dir", ".", "output directory")
	cmd.Flags().BoolVar(&local, "local", false, "render the file here instead of on the backend")
	return cmd
}

func (a *app) trackingCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "tracking", Short: "Create, poll and update order tracking"}

	var courier, number string
	var auto bool
	create := &cobra.Command{
		Use:   "create ORDER_ID",
		Short: "Create tracking; an empty courier uses " + orders.DefaultCourier,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.trackingAction(cmd, args[0], func(wf *orders.Workflow, d orders.Detail) (orders.Detail, error) {
				return wf.CreateTracking(cmd.Context(), d, courier, number, auto)
			})
		},
	}
	create.Flags().StringVar(&courier, "courier", "", "courier name")
	create.Flags().StringVar(&number, "number", "", "tracking number")
	create.Flags().BoolVar(&auto, "auto", false, "let the backend poll the courier")

	poll := &cobra.Command{
		Use:   "poll ORDER_ID",
		Short: "Ask the backend to query the courier now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.trackingAction(cmd, args[0], func(wf *orders.Workflow, d orders.Detail) (orders.Detail, error) {
				return wf.Poll(cmd.Context(), d)
			})
		},
	}

	var message string
	appendCmd := &cobra.Command{
		Use:   "append ORDER_ID STATUS",
		Short: "Append a tracking event (Created, Processing, In Transit, Out for Delivery, Delivered, Exception)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.trackingAction(cmd, args[0], func(wf *orders.Workflow, d orders.Detail) (orders.Detail, error) {
				return wf.AppendStatus(cmd.Context(), d, args[1], message)
			})
		},
	}
	appendCmd.Flags().StringVar(&message, "message", "", "event message")

	cmd.AddCommand(create, poll, appendCmd)
	return cmd
}

// trackingAction loads the order, runs fn and prints the resulting timeline.
func (a *app) trackingAction(cmd *cobra.Command, orderID string, fn func(*orders.Workflow, orders.Detail) (orders.Detail, error)) error {
	ctx, err := a.ctx(cmd)
	if err != nil {
		return err
	}
	cmd.SetContext(ctx)
	wf := a.workflow()
	d, err := wf.Load(ctx, orderID)
	if err != nil {
		return err
	}
	d, err = fn(wf, d)
	if err != nil {
		return err
	}
	if d.Tracking != nil {
		fmt.Fprintf(a.out, "%s %s: %s\n", d.Tracking.Courier, d.Tracking.TrackingNumber, d.Tracking.Status)
	}
	return a.table("WHEN\tSTATUS\tMESSAGE", func(w io.Writer) {
		for _, ev := range d.Timeline {
			fmt.Fprintf(w, "%s\t%s\t%s\n", ev.Timestamp.Local().Format("2006-01-02 15:04"), ev.Status, ev.Message)
		}
	})
}
