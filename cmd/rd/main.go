package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"roofdesk/internal/agent"
	"roofdesk/internal/app"
	"roofdesk/internal/config"
	"roofdesk/internal/db"
	"roofdesk/internal/domain"
	"roofdesk/internal/server"
	"roofdesk/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "rd",
	Short: "Roofdesk CLI",
	Long: `Roofdesk runs the back office for a roofing contractor: leads, projects,
invoices and payments, crew schedule, work orders, tickets, todos, incidents,
team and timesheets. The agent commands drive the same tool layer the chat
assistant uses.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initViper)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initViper() {
	viper.SetEnvPrefix("ROOFDESK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(leadCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(invoiceCmd())
	rootCmd.AddCommand(agentCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(keyCmd())
}

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a workspace with a default roofdesk.yml and database",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			a, err := app.Open(app.Options{Workspace: workspace})
			if err != nil {
				return err
			}
			defer a.Close()
			fmt.Printf("Initialized workspace: %s and %s\n", path, db.Path(workspace))
			return nil
		},
	}
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			secret := a.Config.JWTSecret()
			if secret == "" {
				return fmt.Errorf("%s is required for bearer auth", a.Config.Auth.JWTSecretEnv)
			}
			var loop *agent.Loop
			if client, err := agent.NewOpenAIClient(); err == nil {
				loop = agent.NewLoop(client, a.Dispatcher, a.Config.Agent.Model)
			} else {
				fmt.Println("warning: chat disabled:", err)
			}
			handler, err := server.New(server.Config{
				Store:      a.Store,
				Dispatcher: a.Dispatcher,
				Loop:       loop,
				App:        a.Config,
				BasePath:   basePath,
				Auth: server.AuthConfig{
					JWTSecret:     secret,
					AllowDevLogin: a.Config.Auth.AllowDevLogin,
				},
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Roofdesk API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

func leadCmd() *cobra.Command {
	lead := &cobra.Command{Use: "lead", Short: "Manage leads"}
	lead.AddCommand(leadListCmd())
	lead.AddCommand(leadShowCmd())
	lead.AddCommand(leadCreateCmd())
	lead.AddCommand(leadStatusCmd())
	return lead
}

func leadCreateCmd() *cobra.Command {
	var email, phone, address, source string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a lead",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				res := a.Dispatcher.Execute(ctx, "create_lead", map[string]any{
					"name":    args[0],
					"email":   email,
					"phone":   phone,
					"address": address,
					"source":  source,
				})
				return printJSON(res)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&address, "address", "", "street address")
	cmd.Flags().StringVar(&source, "source", "", "where the lead came from")
	return cmd
}

func leadStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <name-or-id> <new-status>",
		Short: "Move a lead to a new pipeline status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				res := a.Dispatcher.Execute(ctx, "update_lead_status", map[string]any{
					"lead_name":  args[0],
					"new_status": args[1],
				})
				return printJSON(res)
			})
		},
	}
	return cmd
}

func leadListCmd() *cobra.Command {
	var status, search string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List leads",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				items, err := a.Store.ListLeads(ctx, store.LeadFilters{Status: status, Search: search, Limit: limit})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				t := newTable("ID", "NAME", "STATUS", "PHONE", "ADDRESS", "CREATED")
				for _, l := range items {
					t.AppendRow(table.Row{short(l.ID), l.Name, l.Status, l.Phone, l.Address, l.CreatedAt})
				}
				fmt.Println(t.Render())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	cmd.Flags().StringVar(&search, "search", "", "free-text search")
	cmd.Flags().IntVar(&limit, "limit", 50, "max results")
	return cmd
}

func leadShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a lead",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				l, err := a.Store.GetLead(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(l)
			})
		},
	}
	return cmd
}

func projectCmd() *cobra.Command {
	prj := &cobra.Command{Use: "project", Short: "Manage projects"}
	prj.AddCommand(projectListCmd())
	prj.AddCommand(projectShowCmd())
	return prj
}

func projectListCmd() *cobra.Command {
	var status, search string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				items, err := a.Store.ListProjects(ctx, store.ProjectFilters{Status: status, Search: search, Limit: limit})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				t := newTable("ID", "NAME", "STATUS", "CUSTOMER", "ADDRESS")
				for _, p := range items {
					t.AppendRow(table.Row{short(p.ID), p.Name, p.Status, p.CustomerName, p.Address})
				}
				fmt.Println(t.Render())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	cmd.Flags().StringVar(&search, "search", "", "free-text search")
	cmd.Flags().IntVar(&limit, "limit", 50, "max results")
	return cmd
}

func projectShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				p, err := a.Store.GetProject(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(p)
			})
		},
	}
	return cmd
}

func invoiceCmd() *cobra.Command {
	inv := &cobra.Command{Use: "invoice", Short: "Manage invoices"}
	inv.AddCommand(invoiceListCmd())
	return inv
}

func invoiceListCmd() *cobra.Command {
	var status string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List invoices",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				items, err := a.Store.ListInvoices(ctx, store.InvoiceFilters{Status: status, Limit: limit})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				t := newTable("ID", "NUMBER", "STATUS", "AMOUNT", "BALANCE DUE", "DUE DATE")
				for _, inv := range items {
					t.AppendRow(table.Row{short(inv.ID), inv.Number, inv.Status,
						fmt.Sprintf("%.2f", inv.Amount), fmt.Sprintf("%.2f", inv.BalanceDue), inv.DueDate})
				}
				fmt.Println(t.Render())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	cmd.Flags().IntVar(&limit, "limit", 50, "max results")
	return cmd
}

func agentCmd() *cobra.Command {
	ag := &cobra.Command{
		Use:   "agent",
		Short: "Drive the agent tool layer",
		Long:  "Run one tool directly (exec), chat through the model (ask), or list the registry (tools).",
	}
	ag.AddCommand(agentExecCmd())
	ag.AddCommand(agentAskCmd())
	ag.AddCommand(agentToolsCmd())
	return ag
}

func agentExecCmd() *cobra.Command {
	var paramsJSON string
	cmd := &cobra.Command{
		Use:   "exec <tool>",
		Short: "Execute one agent tool with JSON params",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var params map[string]any
			if paramsJSON != "" {
				if err := json.Unmarshal([]byte(paramsJSON), &params); err != nil {
					return fmt.Errorf("invalid --params: %w", err)
				}
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				res := a.Dispatcher.Execute(ctx, args[0], params)
				return printJSON(res)
			})
		},
	}
	cmd.Flags().StringVar(&paramsJSON, "params", "", "tool parameters as a JSON object")
	return cmd
}

func agentAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Send one message through the conversation loop",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := agent.NewOpenAIClient()
			if err != nil {
				return err
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				loop := agent.NewLoop(client, a.Dispatcher, a.Config.Agent.Model)
				outcome, err := loop.Turn(ctx, strings.Join(args, " "))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(outcome)
				}
				fmt.Println(outcome.Answer)
				if outcome.Structured != nil {
					return printJSON(outcome.Structured)
				}
				return nil
			})
		},
	}
	return cmd
}

func agentToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List registered agent tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				reg := a.Dispatcher.Registry
				if viper.GetBool("json") {
					return printJSON(reg.Names())
				}
				t := newTable("TOOL", "VISUAL", "DESCRIPTION")
				for _, name := range reg.Names() {
					spec, _ := reg.Get(name)
					t.AppendRow(table.Row{spec.Name, spec.Visual, spec.Description})
				}
				fmt.Println(t.Render())
				return nil
			})
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	lg := &cobra.Command{
		Use:   "log",
		Short: "Event log",
		Long:  "The diary of everything the agent and API did, newest first.",
	}
	lg.AddCommand(logTailCmd())
	return lg
}

func logTailCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				events, err := a.Store.ListEvents(ctx, n)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(events)
				}
				t := newTable("ID", "TS", "TYPE", "ENTITY", "ACTOR")
				for _, e := range events {
					t.AppendRow(table.Row{e.ID, e.TS, e.Type, e.EntityKind + "/" + short(e.EntityID), e.ActorID})
				}
				fmt.Println(t.Render())
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	return cmd
}

func keyCmd() *cobra.Command {
	key := &cobra.Command{Use: "key", Short: "Manage API keys"}
	key.AddCommand(keyCreateCmd())
	return key
}

func keyCreateCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key for the current actor; the key is printed once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				raw := make([]byte, 24)
				if _, err := rand.Read(raw); err != nil {
					return err
				}
				secret := "rdk_" + hex.EncodeToString(raw)
				apiKey := domain.APIKey{
					ID:      uuid.NewString(),
					ActorID: viper.GetString("actor-id"),
					Name:    name,
					KeyHash: store.HashAPIKey(secret),
				}
				if err := a.Store.InsertAPIKey(ctx, apiKey); err != nil {
					return err
				}
				fmt.Printf("API key created for %s (id %s):\n%s\n", apiKey.ActorID, apiKey.ID, secret)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "key label")
	return cmd
}

// --- helpers ---

func openApp() (*app.App, error) {
	return app.Open(app.Options{
		Workspace: viper.GetString("workspace"),
		ActorID:   viper.GetString("actor-id"),
	})
}

func withApp(fn func(context.Context, *app.App) error) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(context.Background(), a)
}

func newTable(headers ...any) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row(headers))
	return t
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
