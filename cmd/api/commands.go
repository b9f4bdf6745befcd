package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/backoffice/internal/config"
	"github.com/mcclellann/backoffice/internal/logger"
	"github.com/mcclellann/backoffice/pkg/aggregate"
	"github.com/mcclellann/backoffice/pkg/auth"
	"github.com/mcclellann/backoffice/pkg/calendar"
	"github.com/mcclellann/backoffice/pkg/client"
	"github.com/mcclellann/backoffice/pkg/editor"
	"github.com/mcclellann/backoffice/pkg/idempotency"
	"github.com/mcclellann/backoffice/pkg/ledger"
	"github.com/mcclellann/backoffice/pkg/models"
	"github.com/mcclellann/backoffice/pkg/session"
	"github.com/mcclellann/backoffice/pkg/store"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "backoffice",
		Short:         "Freight and trading back office",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newServeCmd(cfg),
		newRegisterCmd(cfg),
		newLoginCmd(cfg),
		newLogoutCmd(cfg),
		newListCmd(cfg),
		newAddCmd(cfg),
		newEditCmd(cfg),
		newDeleteCmd(cfg),
		newSaleCmd(cfg),
		newRecoveryCmd(cfg),
		newKhataCmd(cfg),
		newReportCmd(cfg),
	)
	return root
}

func newServeCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.ValidateServer(); err != nil {
				return err
			}
			log := logger.WithComponent("serve")

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sqliteStore, err := store.NewSQLiteStore(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("failed to initialize SQLite store: %w", err)
			}

			idem, err := newIdempotencyStore(ctx, cfg)
			if err != nil {
				sqliteStore.Close()
				return err
			}

			server := NewServer(sqliteStore, ServerOptions{
				Tokens:         auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL),
				Idempotency:    idem,
				IdempotencyTTL: cfg.IdempotencyTTL,
				Location:       cfg.Location,
			})
			defer server.Close()

			httpServer := newHTTPServer(cfg.HTTPAddr, server.Routes())
			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("addr", cfg.HTTPAddr).Msg("server starting")
				errCh <- httpServer.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			log.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		},
	}
}

func newIdempotencyStore(ctx context.Context, cfg *config.Config) (idempotency.Store, error) {
	if cfg.RedisAddr == "" {
		return idempotency.NewMemoryStore(time.Minute), nil
	}
	s, err := idempotency.NewRedisStore(ctx, &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	if err != nil {
		return nil, err
	}
	log := logger.WithComponent("serve")
	log.Info().Str("addr", cfg.RedisAddr).Msg("using Redis for idempotency keys")
	return s, nil
}

func newRegisterCmd(cfg *config.Config) *cobra.Command {
	var username, email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account (the first account is the admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.New(cfg.APIBaseURL, cfg.HTTPTimeout, nil)
			if err != nil {
				return err
			}
			u, err := c.Register(cmd.Context(), username, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (%s)\n", u.Username, u.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "username")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("password")
	return cmd
}

func newLoginCmd(cfg *config.Config) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.New(cfg.APIBaseURL, cfg.HTTPTimeout, nil)
			if err != nil {
				return err
			}
			s, err := c.Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			if err := session.Save(cfg.SessionFile, s); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", s.User.Username, s.User.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "username")
	cmd.Flags().StringVar(&password, "password", "", "password")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("password")
	return cmd
}

func newLogoutCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return session.Clear(cfg.SessionFile)
		},
	}
}

// signedInClient loads the stored session and builds a client around it.
func signedInClient(cfg *config.Config) (*client.Client, error) {
	s, err := session.Load(cfg.SessionFile)
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return nil, fmt.Errorf("%w: run `backoffice login` first", err)
		}
		return nil, err
	}
	return client.New(cfg.APIBaseURL, cfg.HTTPTimeout, s)
}

// explain turns a client error into something a person at the terminal can act on.
func explain(err error) error {
	if errors.Is(err, client.ErrUnauthorized) {
		return fmt.Errorf("%w: session expired, run `backoffice login` again", err)
	}
	return err
}

var listKinds = "customers, stocks, expenses, dailyexpenses, commissions, freight, agentPayments"

func newListCmd(cfg *config.Config) *cobra.Command {
	var term string
	cmd := &cobra.Command{
		Use:   "list <kind>",
		Short: "Print a record list as JSON (" + listKinds + ")",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := signedInClient(cfg)
			if err != nil {
				return err
			}
			return explain(withEditor(c, args[0], func(ed recordEditor) error {
				if err := ed.load(cmd.Context()); err != nil {
					return err
				}
				return ed.print(cmd.OutOrStdout(), term)
			}))
		},
	}
	cmd.Flags().StringVarP(&term, "query", "q", "", "search term")
	return cmd
}

func newAddCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "add <kind>",
		Short: "Create a record from a JSON object read on stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := signedInClient(cfg)
			if err != nil {
				return err
			}
			return explain(withEditor(c, args[0], func(ed recordEditor) error {
				saved, err := ed.add(cmd.Context(), cmd.InOrStdin())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), saved)
			}))
		},
	}
}

func newEditCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <kind> <id>",
		Short: "Update a record with the JSON fields read on stdin (admin only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[1])
			if err != nil {
				return fmt.Errorf("invalid id %q", args[1])
			}
			c, err := signedInClient(cfg)
			if err != nil {
				return err
			}
			return explain(withEditor(c, args[0], func(ed recordEditor) error {
				if err := ed.load(cmd.Context()); err != nil {
					return err
				}
				saved, err := ed.edit(cmd.Context(), id, cmd.InOrStdin())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), saved)
			}))
		},
	}
}

func newDeleteCmd(cfg *config.Config) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <kind> <id>",
		Short: "Delete a record after confirmation (admin only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[1])
			if err != nil {
				return fmt.Errorf("invalid id %q", args[1])
			}
			c, err := signedInClient(cfg)
			if err != nil {
				return err
			}
			confirm := func(rec any) bool {
				if yes {
					return true
				}
				data, _ := json.Marshal(rec)
				fmt.Fprintf(cmd.OutOrStdout(), "%s\nDelete this record? [y/N] ", data)
				line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				answer := strings.ToLower(strings.TrimSpace(line))
				return answer == "y" || answer == "yes"
			}
			return explain(withEditor(c, args[0], func(ed recordEditor) error {
				if err := ed.load(cmd.Context()); err != nil {
					return err
				}
				if err := ed.remove(cmd.Context(), id, confirm); err != nil {
					if errors.Is(err, editor.ErrCancelled) {
						fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
						return nil
					}
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Deleted")
				return nil
			}))
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}

// recordEditor erases the record type of an editor so commands can pick a
// list by name.
type recordEditor struct {
	load   func(ctx context.Context) error
	print  func(w io.Writer, term string) error
	add    func(ctx context.Context, in io.Reader) (any, error)
	edit   func(ctx context.Context, id uuid.UUID, in io.Reader) (any, error)
	remove func(ctx context.Context, id uuid.UUID, confirm func(any) bool) error
}

func wrapEditor[T models.Record](ed *editor.Editor[T]) recordEditor {
	// fill decodes in over the open form and submits it.
	fill := func(ctx context.Context, form T, in io.Reader) (any, error) {
		if err := json.NewDecoder(in).Decode(&form); err != nil {
			ed.Cancel()
			return nil, fmt.Errorf("invalid record JSON: %w", err)
		}
		saved, err := ed.Submit(ctx, form)
		if err != nil {
			ed.Cancel()
			return nil, err
		}
		return saved, nil
	}
	return recordEditor{
		load: ed.Load,
		print: func(w io.Writer, term string) error {
			return printJSON(w, ed.Search(term))
		},
		add: func(ctx context.Context, in io.Reader) (any, error) {
			if err := ed.NewForm(); err != nil {
				return nil, err
			}
			return fill(ctx, ed.Form(), in)
		},
		edit: func(ctx context.Context, id uuid.UUID, in io.Reader) (any, error) {
			form, err := ed.Edit(id)
			if err != nil {
				return nil, err
			}
			return fill(ctx, form, in)
		},
		remove: func(ctx context.Context, id uuid.UUID, confirm func(any) bool) error {
			return ed.Delete(ctx, id, func(rec T) bool { return confirm(rec) })
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func withEditor(c *client.Client, kind string, fn func(recordEditor) error) error {
	s := c.Session()
	var ed recordEditor
	switch kind {
	case "customers":
		ed = wrapEditor(editor.New[models.Customer](c.Customers(), s))
	case "stocks":
		ed = wrapEditor(editor.New[models.Product](c.Stocks(), s))
	case "expenses":
		ed = wrapEditor(editor.New[models.Expense](c.PortExpenses(), s))
	case "dailyexpenses":
		ed = wrapEditor(editor.New[models.Expense](c.DailyExpenses(), s))
	case "commissions":
		ed = wrapEditor(editor.New[models.Commission](c.Commissions(), s))
	case "freight":
		ed = wrapEditor(editor.New[models.Freight](c.Freight(), s))
	case "agentPayments":
		ed = wrapEditor(editor.New[models.AgentPayment](c.AgentPayments(), s))
	default:
		return fmt.Errorf("unknown list %q, want one of: %s", kind, listKinds)
	}
	return fn(ed)
}

func newSaleCmd(cfg *config.Config) *cobra.Command {
	var customer, product, quantity, price, payment, date string
	cmd := &cobra.Command{
		Use:   "sale",
		Short: "Record a sale against a customer",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := ledger.SaleInput{}
			var err error
			if in.CustomerID, err = uuid.Parse(customer); err != nil {
				return fmt.Errorf("invalid --customer: %w", err)
			}
			if in.ProductID, err = uuid.Parse(product); err != nil {
				return fmt.Errorf("invalid --product: %w", err)
			}
			if in.Quantity, err = decimal.NewFromString(quantity); err != nil {
				return fmt.Errorf("invalid --quantity: %w", err)
			}
			if in.Payment, err = decimal.NewFromString(payment); err != nil {
				return fmt.Errorf("invalid --payment: %w", err)
			}
			if price != "" {
				p, err := decimal.NewFromString(price)
				if err != nil {
					return fmt.Errorf("invalid --price: %w", err)
				}
				in.UnitPrice = &p
			}
			if date != "" {
				if in.Date, err = calendar.ParseDate(date); err != nil {
					return err
				}
			}

			c, err := signedInClient(cfg)
			if err != nil {
				return err
			}
			tx, err := c.RecordSale(cmd.Context(), in)
			if err != nil {
				return explain(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Total %s, paid %s, loan %s\n",
				tx.TotalPrice.StringFixed(2), tx.Payment.StringFixed(2), tx.Loan.StringFixed(2))
			return nil
		},
	}
	cmd.Flags().StringVar(&customer, "customer", "", "customer id")
	cmd.Flags().StringVar(&product, "product", "", "product id")
	cmd.Flags().StringVar(&quantity, "quantity", "", "quantity sold")
	cmd.Flags().StringVar(&price, "price", "", "unit price (default: catalog price)")
	cmd.Flags().StringVar(&payment, "payment", "0", "amount paid now")
	cmd.Flags().StringVar(&date, "date", "", "sale date YYYY-MM-DD (default: today)")
	cmd.MarkFlagRequired("customer")
	cmd.MarkFlagRequired("product")
	cmd.MarkFlagRequired("quantity")
	return cmd
}

func newRecoveryCmd(cfg *config.Config) *cobra.Command {
	var customer, amount, date string
	cmd := &cobra.Command{
		Use:   "recovery",
		Short: "Record money recovered from a customer",
		RunE: func(cmd *cobra.Command, args []string) error {
			customerID, err := uuid.Parse(customer)
			if err != nil {
				return fmt.Errorf("invalid --customer: %w", err)
			}
			var day calendar.Date
			if date != "" {
				if day, err = calendar.ParseDate(date); err != nil {
					return err
				}
			}

			c, err := signedInClient(cfg)
			if err != nil {
				return err
			}
			out, err := c.RecordRecovery(cmd.Context(), customerID, amount, day)
			if err != nil && !errors.Is(err, client.ErrRefreshFailed) {
				return explain(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recovered %s from %s, remaining loan %s\n",
				out.Result.Recovery.AmountRecovered.StringFixed(2),
				out.Result.Customer.Name,
				out.Result.Customer.Loan.StringFixed(2))
			return err
		},
	}
	cmd.Flags().StringVar(&customer, "customer", "", "customer id")
	cmd.Flags().StringVar(&amount, "amount", "", "amount recovered")
	cmd.Flags().StringVar(&date, "date", "", "recovery date YYYY-MM-DD (default: today)")
	cmd.MarkFlagRequired("customer")
	return cmd
}

func newKhataCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "khata <customer-id>",
		Short: "Print a customer's account book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid customer id %q", args[0])
			}
			c, err := signedInClient(cfg)
			if err != nil {
				return err
			}
			k, err := c.Khata(cmd.Context(), id)
			if err != nil {
				return explain(err)
			}
			printKhata(cmd.OutOrStdout(), k)
			return nil
		},
	}
}

func printKhata(w io.Writer, k *ledger.Khata) {
	fmt.Fprintf(w, "%s\n", k.Customer.Name)
	fmt.Fprintf(w, "%-10s  %-16s  %-12s  %-6s  %10s  %10s  %10s  %10s\n",
		"Date", "Product", "Company", "Size", "Qty", "Total", "Paid", "Loan")
	for _, e := range k.Entries {
		fmt.Fprintf(w, "%-10s  %-16s  %-12s  %-6s  %10s  %10s  %10s  %10s\n",
			e.Date, e.ProductName, e.CompanyName, e.Size, e.Quantity.String(),
			e.TotalPrice.StringFixed(2), e.Payment.StringFixed(2), e.Loan.StringFixed(2))
	}
	fmt.Fprintf(w, "Total remaining loan: %s\n", k.TransactionLoanTotal.StringFixed(2))
	fmt.Fprintf(w, "Recovered:            %s\n", k.RecoveredTotal.StringFixed(2))
	fmt.Fprintf(w, "Outstanding:          %s\n", k.Outstanding.StringFixed(2))
	if !k.Discrepancy.IsZero() {
		fmt.Fprintf(w, "WARNING: balance differs from history by %s\n", k.Discrepancy.StringFixed(2))
	}
}

func newReportCmd(cfg *config.Config) *cobra.Command {
	report := &cobra.Command{
		Use:   "report",
		Short: "Print expense, commission and profit totals",
	}

	var day string
	for _, list := range []string{"expenses", "dailyexpenses"} {
		report.AddCommand(&cobra.Command{
			Use:   list,
			Short: "Day, daily and monthly totals of " + list,
			RunE: func(cmd *cobra.Command, args []string) error {
				var d calendar.Date
				if day != "" {
					var err error
					if d, err = calendar.ParseDate(day); err != nil {
						return err
					}
				}
				c, err := signedInClient(cfg)
				if err != nil {
					return err
				}
				t, err := c.ExpenseTotals(cmd.Context(), list, d)
				if err != nil {
					return explain(err)
				}
				printTotals(cmd.OutOrStdout(), t)
				return nil
			},
		})
	}
	report.PersistentFlags().StringVar(&day, "day", "", "day for the day total YYYY-MM-DD (default: today)")

	var view, month string
	commissions := &cobra.Command{
		Use:   "commissions",
		Short: "Commission records for a view (daily, monthly, month)",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := aggregate.ParseView(view)
			if err != nil {
				return err
			}
			var m calendar.Month
			if month != "" {
				if m, err = calendar.ParseMonth(month); err != nil {
					return err
				}
			}
			c, err := signedInClient(cfg)
			if err != nil {
				return err
			}
			sum, err := c.CommissionSummary(cmd.Context(), v, m)
			if err != nil {
				return explain(err)
			}
			w := cmd.OutOrStdout()
			for _, rec := range sum.Records {
				fmt.Fprintf(w, "%-10s  %-20s  %12s\n", rec.Date, rec.Name, rec.Amount.StringFixed(2))
			}
			fmt.Fprintf(w, "Total (%s): %s\n", sum.View, sum.Total.StringFixed(2))
			return nil
		},
	}
	commissions.Flags().StringVar(&view, "view", "daily", "daily, monthly or month")
	commissions.Flags().StringVar(&month, "month", "", "month for --view month, YYYY-MM")
	report.AddCommand(commissions)

	report.AddCommand(&cobra.Command{
		Use:   "profit",
		Short: "Profit over all stock sold",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := signedInClient(cfg)
			if err != nil {
				return err
			}
			p, err := c.Profit(cmd.Context())
			if err != nil {
				return explain(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Profit: %s\n", p.StringFixed(2))
			return nil
		},
	})
	return report
}

func printTotals(w io.Writer, t *aggregate.Totals) {
	fmt.Fprintf(w, "Total for %s: %s\n\n", t.Day, t.DayTotal.StringFixed(2))
	fmt.Fprintln(w, "Daily")
	for _, d := range t.Daily {
		fmt.Fprintf(w, "  %-10s  %12s\n", d.Day, d.Total.StringFixed(2))
	}
	fmt.Fprintln(w, "Monthly")
	for _, m := range t.Monthly {
		fmt.Fprintf(w, "  %-10s  %12s\n", m.Month, m.Total.StringFixed(2))
	}
}
