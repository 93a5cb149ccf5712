package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot(newCommand())
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRoot(cmd command) *cobra.Command {
	root := &cobra.Command{
		Use:   "deployr",
		Short: "Project deployment and supervision tool",
		Long: `Deployr supervises user-supplied projects: it provisions their
isolated runtime, launches them detached with per-project logs, and
tracks their lifecycle.

Examples:
  deployr serve --config=deployr.toml
  deployr register --id=web --path=/srv/web --run-command="python main.py"
  deployr provision --id=web
  deployr start --id=web
  deployr status --id=web --detailed`,
	}
	root.AddCommand(
		createRegisterCommand(cmd),
		createUnregisterCommand(cmd),
		createListCommand(cmd),
		createProvisionCommand(cmd),
		createStartCommand(cmd),
		createStopCommand(cmd),
		createRestartCommand(cmd),
		createStatusCommand(cmd),
		createUsageCommand(cmd),
		createLogsCommand(cmd),
		createServeCommand(),
	)
	return root
}

func addAPIFlags(cmd *cobra.Command, url *string, timeout *time.Duration, def time.Duration) {
	cmd.Flags().StringVar(url, "api-url", "", "daemon URL (default http://127.0.0.1:8190/api)")
	cmd.Flags().DurationVar(timeout, "api-timeout", def, "request timeout")
}

func addIDFlag(cmd *cobra.Command, id *string) {
	cmd.Flags().StringVar(id, "id", "", "project id (required)")
	if err := cmd.MarkFlagRequired("id"); err != nil {
		panic(err)
	}
}

func createRegisterCommand(c command) *cobra.Command {
	flags := &RegisterFlags{}
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a project with the daemon",
		Long: `Register a project so the daemon can provision and supervise it.

Examples:
  deployr register --id=web --path=/srv/web --run-command="python main.py"
  deployr register --id=api --name="API" --path=/srv/api --run-command="python -m api"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Register(*flags)
		},
	}
	cmd.Flags().StringVar(&flags.ID, "id", "", "project id (required)")
	cmd.Flags().StringVar(&flags.Name, "name", "", "display name")
	cmd.Flags().StringVar(&flags.Path, "path", "", "absolute project directory (required)")
	cmd.Flags().StringVar(&flags.RunCommand, "run-command", "", "launch command, e.g. \"python main.py\" (required)")
	addAPIFlags(cmd, &flags.APIUrl, &flags.APITimeout, 10*time.Second)
	for _, name := range []string{"id", "path", "run-command"} {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}
	return cmd
}

func createUnregisterCommand(c command) *cobra.Command {
	flags := &ProjectFlags{}
	cmd := &cobra.Command{
		Use:   "unregister",
		Short: "Remove a stopped project from the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Unregister(*flags)
		},
	}
	addIDFlag(cmd, &flags.ID)
	addAPIFlags(cmd, &flags.APIUrl, &flags.APITimeout, 10*time.Second)
	return cmd
}

func createListCommand(c command) *cobra.Command {
	flags := &ListFlags{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.List(*flags)
		},
	}
	addAPIFlags(cmd, &flags.APIUrl, &flags.APITimeout, 10*time.Second)
	return cmd
}

func createProvisionCommand(c command) *cobra.Command {
	flags := &ProjectFlags{}
	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Create the project's virtual environment and install dependencies",
		Long: `Create the project's isolated runtime: a .venv virtual environment
plus everything listed in requirements.txt. Safe to re-run; an existing
environment is reused.

Examples:
  deployr provision --id=web`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Provision(*flags)
		},
	}
	addIDFlag(cmd, &flags.ID)
	// Provisioning can run pip against a slow index.
	addAPIFlags(cmd, &flags.APIUrl, &flags.APITimeout, 15*time.Minute)
	return cmd
}

func createStartCommand(c command) *cobra.Command {
	flags := &ProjectFlags{}
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Start(*flags)
		},
	}
	addIDFlag(cmd, &flags.ID)
	addAPIFlags(cmd, &flags.APIUrl, &flags.APITimeout, 30*time.Second)
	return cmd
}

func createStopCommand(c command) *cobra.Command {
	flags := &ProjectFlags{}
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Stop(*flags)
		},
	}
	addIDFlag(cmd, &flags.ID)
	addAPIFlags(cmd, &flags.APIUrl, &flags.APITimeout, 30*time.Second)
	return cmd
}

func createRestartCommand(c command) *cobra.Command {
	flags := &ProjectFlags{}
	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Restart(*flags)
		},
	}
	addIDFlag(cmd, &flags.ID)
	addAPIFlags(cmd, &flags.APIUrl, &flags.APITimeout, 30*time.Second)
	return cmd
}

func createStatusCommand(c command) *cobra.Command {
	flags := &StatusFlags{}
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show project status",
		Long: `Show whether a project is running.

Examples:
  deployr status --id=web
  deployr status --id=web --detailed   # adds pid, uptime, last run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Status(*flags)
		},
	}
	addIDFlag(cmd, &flags.ID)
	cmd.Flags().BoolVar(&flags.Detailed, "detailed", false, "show detailed info")
	addAPIFlags(cmd, &flags.APIUrl, &flags.APITimeout, 30*time.Second)
	return cmd
}

func createUsageCommand(c command) *cobra.Command {
	flags := &ProjectFlags{}
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Sample CPU and memory usage of a running project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Usage(*flags)
		},
	}
	addIDFlag(cmd, &flags.ID)
	addAPIFlags(cmd, &flags.APIUrl, &flags.APITimeout, 30*time.Second)
	return cmd
}

func createLogsCommand(c command) *cobra.Command {
	flags := &ProjectFlags{}
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the path of a project's log file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Logs(*flags)
		},
	}
	addIDFlag(cmd, &flags.ID)
	addAPIFlags(cmd, &flags.APIUrl, &flags.APITimeout, 10*time.Second)
	return cmd
}

func createServeCommand() *cobra.Command {
	flags := &ServeFlags{}
	cmd := &cobra.Command{
		Use:   "serve [config.toml]",
		Short: "Start the deployr daemon",
		Long: `Start the deployr daemon: load the TOML config, open the project
store, and serve the HTTP API.

Examples:
  deployr serve                     # built-in defaults, in-memory store
  deployr serve deployr.toml
  deployr serve --config=deployr.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServeCommand(flags, args)
		},
	}
	cmd.Flags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file")
	return cmd
}
