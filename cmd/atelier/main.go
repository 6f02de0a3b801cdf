package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Atlasdesignstudio/templo-atelier/internal/config"
	"github.com/Atlasdesignstudio/templo-atelier/internal/db"
	"github.com/Atlasdesignstudio/templo-atelier/internal/domain"
	"github.com/Atlasdesignstudio/templo-atelier/internal/engine"
	"github.com/Atlasdesignstudio/templo-atelier/internal/generate"
	"github.com/Atlasdesignstudio/templo-atelier/internal/migrate"
	"github.com/Atlasdesignstudio/templo-atelier/internal/repo"
	"github.com/Atlasdesignstudio/templo-atelier/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "atelier",
	Short: "Templo Atelier studio OS",
	Long: `Templo Atelier runs a design studio as a workflow of founder decisions.
Projects move brief -> strategy -> deliverables -> budget. At each gate an
agent proposes, the founder decides, and the engine synthesizes the next
steps, documents, tasks and deliverables.`,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("ATELIER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(workflowCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(catalogCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default atelier.yml into the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
}

func projectCmd() *cobra.Command {
	prj := &cobra.Command{Use: "project", Short: "Manage projects"}
	prj.AddCommand(projectListCmd())
	prj.AddCommand(projectCreateCmd())
	prj.AddCommand(projectShowCmd())
	prj.AddCommand(projectDeleteCmd())
	prj.AddCommand(projectRunStrategyCmd())
	return prj
}

func projectListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListProjects(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Client", "Stage", "Review", "Budget", "Health"})
				for _, p := range items {
					tw.AppendRow(table.Row{p.ID, p.Name, p.Client, p.Stage, p.ReviewStatus, p.BudgetCap, p.HealthScore})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func projectCreateCmd() *cobra.Command {
	var opts engine.OnboardOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Onboard a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.Onboard(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrIndent(p)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Name, "name", "", "project name")
	cmd.Flags().StringVar(&opts.Category, "category", "", "project category")
	cmd.Flags().StringVar(&opts.Client, "client", "", "client name")
	cmd.Flags().StringVar(&opts.ClientBrief, "brief", "", "client brief")
	cmd.Flags().Float64Var(&opts.BudgetCap, "budget", 0, "budget cap")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func projectShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.Repo.GetProject(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrIndent(p)
			})
		},
	}
}

func projectDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a project and all its data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.Repo.DeleteProject(ctx, id)
			})
		},
	}
}

func projectRunStrategyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run-strategy <id>",
		Short: "Kick off strategic analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				directions, err := e.RunStrategy(ctx, id)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(directions)
				}
				for _, d := range directions {
					fmt.Printf("%s) %s\n   %s\n", d.Key, d.Title, d.Description)
				}
				return nil
			})
		},
	}
}

func workflowCmd() *cobra.Command {
	wf := &cobra.Command{Use: "workflow", Short: "Drive the decision workflow"}
	wf.AddCommand(workflowShowCmd())
	wf.AddCommand(workflowSeedCmd())
	wf.AddCommand(workflowResolveCmd())
	return wf
}

func workflowShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show the workflow timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				views, err := e.Workflow(ctx, id)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(views)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Type", "Agent", "Status", "Options"})
				for _, v := range views {
					tw.AppendRow(table.Row{v.ID, v.Title, v.StepType, v.Agent, v.Status, len(v.Options)})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func workflowSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <project-id>",
		Short: "Create the initial brief step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				step, created, err := e.Seed(ctx, id)
				if err != nil {
					return err
				}
				if !created {
					fmt.Println("workflow already seeded")
					return nil
				}
				return printJSONOrIndent(step)
			})
		},
	}
}

func workflowResolveCmd() *cobra.Command {
	var stepID int64
	var action, choose, input string
	cmd := &cobra.Command{
		Use:   "resolve <project-id>",
		Short: "Resolve the active step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.Resolve(ctx, id, stepID, action, choose, input)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				if res.NoTransition {
					fmt.Println("step resolved; no follow-up defined")
					return nil
				}
				fmt.Printf("step %d resolved, %d next step(s) created\n", res.StepID, len(res.Created))
				for _, s := range res.Created {
					fmt.Printf("  [%d] %s (%s)\n", s.ID, s.Title, s.StepType)
				}
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&stepID, "step", 0, "step id")
	cmd.Flags().StringVar(&action, "action", "", "action (input, choose, approve, reject)")
	cmd.Flags().StringVar(&choose, "choose", "", "chosen option")
	cmd.Flags().StringVar(&input, "input", "", "input text")
	_ = cmd.MarkFlagRequired("step")
	_ = cmd.MarkFlagRequired("action")
	return cmd
}

func taskCmd() *cobra.Command {
	task := &cobra.Command{Use: "task", Short: "Manage tasks"}
	task.AddCommand(taskListCmd())
	task.AddCommand(taskAddCmd())
	task.AddCommand(taskDoneCmd())
	task.AddCommand(taskDeleteCmd())
	return task
}

func taskListCmd() *cobra.Command {
	var projectID int64
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				f := taskFilter(cmd.Flags().Changed("project"), projectID, status)
				tasks, err := e.Repo.ListTasks(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Priority", "Status", "Due"})
				for _, t := range tasks {
					tw.AppendRow(table.Row{t.ID, t.Title, t.Priority, t.Status, t.DueDate})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&projectID, "project", 0, "project id filter")
	cmd.Flags().StringVar(&status, "status", "", "status filter (Todo, Done)")
	return cmd
}

func taskAddCmd() *cobra.Command {
	var projectID int64
	var title, priority, due string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				now := time.Now().UTC().Format(time.RFC3339)
				t := domainTask(cmd.Flags().Changed("project"), projectID, title, priority, due, now)
				id, err := e.Repo.InsertTask(ctx, t)
				if err != nil {
					return err
				}
				t.ID = id
				return printJSONOrIndent(t)
			})
		},
	}
	cmd.Flags().Int64Var(&projectID, "project", 0, "project id")
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&priority, "priority", "Normal", "priority (High, Normal, Low)")
	cmd.Flags().StringVar(&due, "due", "", "due date (RFC3339)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func taskDoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Mark a task done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.Repo.UpdateTaskStatus(ctx, id, "Done"); err != nil {
					return err
				}
				t, err := e.Repo.GetTask(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrIndent(t)
			})
		},
	}
}

func taskDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.Repo.DeleteTask(ctx, id)
			})
		},
	}
}

func catalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Show the deliverable catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cfg.Catalog)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Key", "Title", "Cost", "Phase", "Time"})
			for _, item := range cfg.Catalog {
				tw.AppendRow(table.Row{item.Key, item.Title, item.Cost, item.Phase, item.TimeEst})
			}
			tw.Render()
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Inspect workspace config"}
	cfg.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show loaded config",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSON(c)
		},
	})
	cfg.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate workspace config",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			if err := c.Validate(); err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	})
	return cfg
}

func logCmd() *cobra.Command {
	log := &cobra.Command{Use: "log", Short: "Agent activity log"}
	var n int
	var projectID int64
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Show recent agent activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if cmd.Flags().Changed("project") {
					logs, err := e.Repo.ListAgentLogs(ctx, projectID, n)
					if err != nil {
						return err
					}
					return printJSONOrIndent(logs)
				}
				logs, err := e.Repo.ListRecentAgentLogs(ctx, n)
				if err != nil {
					return err
				}
				return printJSONOrIndent(logs)
			})
		},
	}
	tail.Flags().IntVar(&n, "n", 20, "number of entries")
	tail.Flags().Int64Var(&projectID, "project", 0, "project id filter")
	log.AddCommand(tail)
	return log
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			cfg, err := config.Load(workspace)
			if err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
			e := engine.New(conn, cfg, generate.New(cfg), logger)

			if addr == "" {
				addr = cfg.Server.Addr
			}
			if basePath == "" {
				basePath = cfg.Server.BasePath
			}
			secret := os.Getenv("ATELIER_JWT_SECRET")
			if secret == "" {
				secret = cfg.Server.JWTSecret
			}
			handler, err := server.New(server.Config{
				Engine:   e,
				BasePath: basePath,
				Auth:     server.AuthConfig{JWTSecret: secret},
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
			logger.Info().Str("addr", addr).Str("base_path", basePath).
				Bool("auth", secret != "").Msg("serving Templo Atelier API")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to config)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (defaults to config)")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	cfg, err := config.Load(workspace)
	if err != nil {
		return err
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	e := engine.New(conn, cfg, generate.New(cfg), zerolog.New(os.Stderr).Level(zerolog.WarnLevel))
	return fn(ctx, e)
}

func taskFilter(projectSet bool, projectID int64, status string) repo.TaskFilter {
	f := repo.TaskFilter{Status: status}
	if projectSet {
		f.ProjectID = &projectID
	}
	return f
}

func domainTask(projectSet bool, projectID int64, title, priority, due, now string) domain.Task {
	t := domain.Task{
		Title:     title,
		Priority:  priority,
		Status:    "Todo",
		DueDate:   due,
		CreatedAt: now,
	}
	if projectSet {
		t.ProjectID = &projectID
	}
	if t.DueDate == "" {
		t.DueDate = now
	}
	return t
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func printJSONOrIndent(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
