package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/FileVault/internal/auth"
	"github.com/dharsanguruparan/FileVault/internal/config"
	"github.com/dharsanguruparan/FileVault/internal/database"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "filevault: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filevault",
		Short: "FileVault development CLI",
		Long: `FileVault CLI drives local development: the docker compose stack, tests,
database migrations, session tokens and the api/worker binaries.`,
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newStackCmd(),
		newCheckCmd(),
		newRunCmd(),
		newMigrateCmd(),
		newTokenCmd(),
	)
	return cmd
}

// newStackCmd groups the docker compose wrappers. Every subcommand shares the
// --compose-file flag and passes extra args through as service names.
func newStackCmd() *cobra.Command {
	var file string
	compose := func(cmd *cobra.Command, verb []string, extra ...string) error {
		args := append([]string{"compose", "-f", file}, verb...)
		return runCommand(cmd.Context(), "docker", append(args, extra...)...)
	}

	var rebuild, foreground bool
	up := &cobra.Command{
		Use:   "up [service...]",
		Short: "Start mongo, redis, api and worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			verb := []string{"up"}
			if rebuild {
				verb = append(verb, "--build")
			}
			if !foreground {
				verb = append(verb, "-d")
			}
			return compose(cmd, verb, args...)
		},
	}
	up.Flags().BoolVar(&rebuild, "build", false, "Rebuild images before starting")
	up.Flags().BoolVar(&foreground, "attach", false, "Stay attached instead of detaching")

	var purge bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Stop the stack",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if purge {
				return compose(cmd, []string{"down", "--volumes"})
			}
			return compose(cmd, []string{"down"})
		},
	}
	down.Flags().BoolVar(&purge, "purge", false, "Also delete stored files and the mongo volume")

	var follow bool
	logs := &cobra.Command{
		Use:   "logs [service...]",
		Short: "Print service logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if follow {
				return compose(cmd, []string{"logs", "--follow"}, args...)
			}
			return compose(cmd, []string{"logs"}, args...)
		},
	}
	logs.Flags().BoolVar(&follow, "follow", false, "Keep streaming new log lines")

	stack := &cobra.Command{Use: "stack", Short: "Manage the docker compose stack"}
	stack.PersistentFlags().StringVarP(&file, "compose-file", "f", "docker-compose.yml", "Compose file")
	stack.AddCommand(up, down, logs)
	return stack
}

// newCheckCmd runs the test suite, race detector on by default.
func newCheckCmd() *cobra.Command {
	var noRace, cover bool
	cmd := &cobra.Command{
		Use:   "check [packages]",
		Short: "Run go test (./... by default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			goArgs := []string{"test"}
			if !noRace {
				goArgs = append(goArgs, "-race")
			}
			if cover {
				goArgs = append(goArgs, "-coverprofile=coverage.out")
			}
			if len(args) == 0 {
				args = []string{"./..."}
			}
			return runCommand(cmd.Context(), "go", append(goArgs, args...)...)
		},
	}
	cmd.Flags().BoolVar(&noRace, "no-race", false, "Skip the race detector")
	cmd.Flags().BoolVar(&cover, "cover", false, "Write coverage.out")
	return cmd
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "run", Short: "Start a binary from source against the current env"}
	for _, bin := range []string{"api", "worker"} {
		pkg := "./cmd/" + bin
		cmd.AddCommand(&cobra.Command{
			Use:   bin,
			Short: "go run " + pkg,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runCommand(cmd.Context(), "go", append([]string{"run", pkg}, args...)...)
			},
		})
	}
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply PostgreSQL migrations (FILEVAULT_DATABASE_URL)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			pool, err := database.ConnectPostgres(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := database.Migrate(cmd.Context(), pool); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func newTokenCmd() *cobra.Command {
	var userID string
	var ttl = auth.SessionTTL
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a session token for a user id (FILEVAULT_REDIS_URL)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			client, err := database.ConnectRedis(cmd.Context(), cfg.RedisURL)
			if err != nil {
				return err
			}
			defer client.Close()
			token, err := auth.NewRedisStore(client).Issue(cmd.Context(), userID, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User id the token resolves to")
	cmd.Flags().DurationVar(&ttl, "ttl", auth.SessionTTL, "Token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func runCommand(ctx context.Context, name string, args ...string) error {
	c := exec.CommandContext(ctx, name, args...)
	c.Stdin, c.Stdout, c.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := c.Run(); err != nil {
		return fmt.Errorf("%s %s: %w", name, args[0], err)
	}
	return nil
}
