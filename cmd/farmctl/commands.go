package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/farm-platform/farm-dashboard/internal/api"
	"github.com/farm-platform/farm-dashboard/internal/domain"
)

type rootOptions struct {
	server  string
	timeout time.Duration
	json    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "farmctl",
		Short:         "Inspect and drive a farm dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.server, "server", envOr("FARM_DASHBOARD_URL", "http://localhost:8080"), "dashboard base URL")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "request timeout")
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "print raw JSON")

	root.AddCommand(
		newStatusCmd(opts),
		newAlertsCmd(opts),
		newDistributionCmd(opts),
		newRefreshCmd(opts),
		newTenantCmd(opts),
		newItemCmd(opts),
		newWatchCmd(opts),
	)
	return root
}

func (o *rootOptions) client() *dashboardClient {
	return newDashboardClient(o.server, o.timeout)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the active tenant, cache and stock status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var status api.StatusResponse
			if _, err := opts.client().do(cmd.Context(), http.MethodGet, "/status", nil, &status); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.json {
				return printJSON(out, status)
			}

			tenant := status.TenantID
			if tenant == "" {
				tenant = "(none)"
			}
			fmt.Fprintf(out, "Tenant:   %s\n", tenant)
			fmt.Fprintf(out, "Polling:  %s\n", status.Polling)
			fmt.Fprintf(out, "Cache:    %s (version %d)\n", status.CacheStatus, status.Version)
			fmt.Fprintf(out, "Stock:    %s\n", status.StockStatus)
			if status.LastError != nil {
				fmt.Fprintf(out, "Error:    %s: %s\n", status.LastError.Kind, status.LastError.Message)
			}
			for name, breaker := range status.Breakers {
				fmt.Fprintf(out, "Breaker:  %s %s\n", name, breaker.State)
			}
			return nil
		},
	}
}

func newAlertsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "alerts",
		Short: "List low-stock items with reorder suggestions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := opts.client()
			var low api.LowStockResponse
			if _, err := client.do(cmd.Context(), http.MethodGet, "/alerts/low-stock", nil, &low); err != nil {
				return err
			}
			var reorder api.ReorderResponse
			if _, err := client.do(cmd.Context(), http.MethodGet, "/alerts/reorder", nil, &reorder); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.json {
				return printJSON(out, map[string]interface{}{"lowStock": low, "reorder": reorder})
			}
			if low.Count == 0 {
				fmt.Fprintln(out, "All items in stock")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tQUANTITY\tTHRESHOLD")
			for _, item := range low.Items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n", item.ID, item.Name, item.Category, item.Quantity, item.Threshold)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintln(out)
			for _, s := range reorder.Suggestions {
				fmt.Fprintln(out, s.Message)
			}
			return nil
		},
	}
}

func newDistributionCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "distribution",
		Short: "Show items per category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var dist api.DistributionResponse
			if _, err := opts.client().do(cmd.Context(), http.MethodGet, "/distribution", nil, &dist); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.json {
				return printJSON(out, dist)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CATEGORY\tITEMS\tQUANTITY\tSHARE")
			for _, e := range dist.Distribution {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%s%%\n", e.Category, e.Value, e.Quantity, e.Share.Shift(2).StringFixed(1))
			}
			fmt.Fprintf(tw, "TOTAL\t%d\t\t\n", dist.TotalItems)
			return tw.Flush()
		},
	}
}

func newRefreshCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Refresh the cache now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp api.InventoryResponse
			if _, err := opts.client().do(cmd.Context(), http.MethodPost, "/refresh", nil, &resp); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.json {
				return printJSON(out, resp)
			}
			fmt.Fprintln(out, summarize(resp.Snapshot.TenantID, string(resp.Snapshot.Status), len(resp.Snapshot.Items), len(resp.Derived.LowStock)))
			if resp.Snapshot.LastError != nil {
				return fmt.Errorf("refresh failed: %s", resp.Snapshot.LastError.Message)
			}
			return nil
		},
	}
}

func newTenantCmd(opts *rootOptions) *cobra.Command {
	tenant := &cobra.Command{
		Use:   "tenant",
		Short: "Select or release the polled tenant",
	}
	tenant.AddCommand(
		&cobra.Command{
			Use:   "use <tenant-id>",
			Short: "Start polling a tenant",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				var resp api.InventoryResponse
				req := api.SwitchTenantRequest{TenantID: args[0]}
				if _, err := opts.client().do(cmd.Context(), http.MethodPut, "/session/tenant", req, &resp); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Polling %s\n", resp.Snapshot.TenantID)
				return nil
			},
		},
		&cobra.Command{
			Use:   "stop",
			Short: "Stop polling the active tenant",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if _, err := opts.client().do(cmd.Context(), http.MethodDelete, "/session/tenant", nil, nil); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Polling stopped")
				return nil
			},
		},
	)
	return tenant
}

func newItemCmd(opts *rootOptions) *cobra.Command {
	item := &cobra.Command{
		Use:   "item",
		Short: "Add, update or delete items of the active tenant",
	}

	var draft domain.Draft
	var category string
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			draft.Name = args[0]
			draft.Category = domain.Category(category)
			var created domain.InventoryItem
			status, err := opts.client().do(cmd.Context(), http.MethodPost, "/items", draft, &created)
			if err != nil {
				return err
			}
			return reportMutation(cmd.OutOrStdout(), status, "Added "+created.ID)
		},
	}
	add.Flags().StringVar(&category, "category", "", "item category")
	add.Flags().IntVar(&draft.Quantity, "quantity", 0, "quantity in stock")
	add.Flags().IntVar(&draft.Threshold, "threshold", 0, "reorder threshold")
	_ = add.MarkFlagRequired("category")

	var quantity, threshold int
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Update quantity or threshold of an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch domain.Patch
			if cmd.Flags().Changed("quantity") {
				patch.Quantity = &quantity
			}
			if cmd.Flags().Changed("threshold") {
				patch.Threshold = &threshold
			}
			if patch.IsEmpty() {
				return fmt.Errorf("nothing to update: set --quantity or --threshold")
			}
			var updated domain.InventoryItem
			status, err := opts.client().do(cmd.Context(), http.MethodPut, "/items/"+args[0], patch, &updated)
			if err != nil {
				return err
			}
			return reportMutation(cmd.OutOrStdout(), status, fmt.Sprintf("Updated %s: %d in stock, threshold %d", updated.ID, updated.Quantity, updated.Threshold))
		},
	}
	update.Flags().IntVar(&quantity, "quantity", 0, "new quantity")
	update.Flags().IntVar(&threshold, "threshold", 0, "new threshold")

	remove := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete an item",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := opts.client().do(cmd.Context(), http.MethodDelete, "/items/"+args[0], nil, nil)
			if err != nil {
				return err
			}
			return reportMutation(cmd.OutOrStdout(), status, "Deleted "+args[0])
		},
	}

	item.AddCommand(add, update, remove)
	return item
}

// reportMutation prints msg, or a notice when the tenant changed while the mutation was in flight
func reportMutation(out io.Writer, status int, msg string) error {
	if status == http.StatusAccepted {
		fmt.Fprintln(out, "Tenant changed before the inventory service answered; result discarded")
		return nil
	}
	fmt.Fprintln(out, msg)
	return nil
}

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print every snapshot the dashboard publishes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := opts.client().dialStream(ctx)
			if err != nil {
				return err
			}
			defer ws.Close()

			go func() {
				<-ctx.Done()
				ws.Close()
			}()

			out := cmd.OutOrStdout()
			for seen := 0; count <= 0 || seen < count; seen++ {
				var msg api.StreamMessage
				if err := ws.ReadJSON(&msg); err != nil {
					if ctx.Err() != nil {
						return nil
					}
					return fmt.Errorf("snapshot stream closed: %w", err)
				}
				if opts.json {
					if err := printJSON(out, msg); err != nil {
						return err
					}
					continue
				}
				s := msg.Snapshot
				fmt.Fprintf(out, "v%d %s\n", s.Version, summarize(s.TenantID, string(s.Status), len(s.Items), len(msg.Derived.LowStock)))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 0, "exit after this many snapshots (0 watches forever)")
	return cmd
}

func summarize(tenantID, status string, items, lowStock int) string {
	if tenantID == "" {
		tenantID = "(none)"
	}
	return fmt.Sprintf("%s %s: %d items, %d low stock", tenantID, status, items, lowStock)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
