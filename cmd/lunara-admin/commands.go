package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"lunara/internal/config"
	"lunara/internal/database"
	"lunara/internal/models"
	"lunara/internal/progress"
	"lunara/internal/service"
)

// app holds what every command shares. The database is opened and
// migrated once, before the first command that needs it runs.
type app struct {
	cfg      *config.Config
	open     func() (*database.DB, error)
	db       *database.DB
	services *service.Services
}

func (a *app) connect(cmd *cobra.Command) error {
	if a.db != nil {
		return nil
	}
	db, err := a.open()
	if err != nil {
		return err
	}
	if err := db.RunMigrations(cmd.Context()); err != nil {
		db.Close()
		return err
	}
	services, err := service.NewServices(db, service.Options{
		SessionDuration: a.cfg.SessionDuration,
		Moons:           a.cfg.Moons,
	})
	if err != nil {
		db.Close()
		return err
	}
	a.db = db
	a.services = services
	return nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
		a.db = nil
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "lunara-admin",
		Short:         "Maintenance commands for a Lunara database",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.connect(cmd)
		},
	}

	root.AddCommand(
		newMigrateCmd(a),
		newBackupCmd(a),
		newMoonsCmd(a),
	)
	return root
}

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			// connect has already migrated
			fmt.Fprintf(cmd.OutOrStdout(), "migrations applied (%s)\n", a.db.Dialect.Name())
			return nil
		},
	}
}

func newBackupCmd(a *app) *cobra.Command {
	backup := &cobra.Command{
		Use:   "backup",
		Short: "Export or import a JSON backup",
	}

	var output string
	export := &cobra.Command{
		Use:   "export",
		Short: "Export the database to a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = fmt.Sprintf("backup_%s.json", time.Now().Format("20060102_150405"))
			}
			if dir := filepath.Dir(output); dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("failed to create output directory: %w", err)
				}
			}

			data, err := a.services.Backup.Export(cmd.Context(), output)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported to %s\n", output)
			printCounts(cmd, data.Counts())
			return nil
		},
	}
	export.Flags().StringVarP(&output, "output", "o", "", "output file (default backup_YYYYMMDD_HHMMSS.json)")

	var input string
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Restore a JSON backup into an empty database",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := a.services.Backup.Import(cmd.Context(), input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %s\n", input)
			printCounts(cmd, data.Counts())
			return nil
		},
	}
	importCmd.Flags().StringVarP(&input, "input", "i", "", "backup file to restore")
	_ = importCmd.MarkFlagRequired("input")

	backup.AddCommand(export, importCmd)
	return backup
}

func printCounts(cmd *cobra.Command, counts map[string]int) {
	tables := make([]string, 0, len(counts))
	for name := range counts {
		tables = append(tables, name)
	}
	sort.Strings(tables)
	for _, name := range tables {
		fmt.Fprintf(cmd.OutOrStdout(), "  %-22s %d\n", name, counts[name])
	}
}

func newMoonsCmd(a *app) *cobra.Command {
	moons := &cobra.Command{
		Use:   "moons",
		Short: "Inspect and correct kid balances",
	}

	balance := &cobra.Command{
		Use:   "balance <kid-id>",
		Short: "Print a kid's balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kidID, err := parseID(args[0])
			if err != nil {
				return err
			}
			n, err := a.services.Moons.CurrentBalance(cmd.Context(), kidID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "kid %d has %d moons\n", kidID, n)
			return nil
		},
	}

	var grantNote string
	grant := &cobra.Command{
		Use:   "grant <kid-id> <amount>",
		Short: "Award bonus moons",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kidID, err := parseID(args[0])
			if err != nil {
				return err
			}
			amount, err := strconv.Atoi(args[1])
			if err != nil || amount <= 0 {
				return fmt.Errorf("amount must be a positive number, got %q", args[1])
			}
			if _, err := a.services.Family.GetKid(cmd.Context(), kidID); err != nil {
				return err
			}

			now := time.Now()
			result, err := a.services.Moons.Award(cmd.Context(), models.Award{
				KidID:  kidID,
				Date:   progress.Today(now, time.Local),
				ItemID: fmt.Sprintf("admin-%d", now.UnixNano()),
				Moons:  amount,
				Source: models.AwardSourceBonus,
				Note:   grantNote,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "granted %d moons, kid %d now has %d\n", result.Moons, kidID, result.NewBalance)
			return nil
		},
	}
	grant.Flags().StringVar(&grantNote, "note", "granted by admin", "ledger note")

	var setNote string
	set := &cobra.Command{
		Use:   "set <kid-id> <moons>",
		Short: "Overwrite a kid's balance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kidID, err := parseID(args[0])
			if err != nil {
				return err
			}
			value, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("moons must be a number, got %q", args[1])
			}
			previous, err := a.services.Moons.Override(cmd.Context(), kidID, value, setNote)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "kid %d: %d -> %d moons\n", kidID, previous, value)
			return nil
		},
	}
	set.Flags().StringVar(&setNote, "note", "set by admin", "ledger note")

	var limit int
	ledger := &cobra.Command{
		Use:   "ledger <kid-id>",
		Short: "Print a kid's recent balance changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kidID, err := parseID(args[0])
			if err != nil {
				return err
			}
			txs, err := a.services.Moons.Transactions(cmd.Context(), kidID, limit)
			if err != nil {
				return err
			}
			for _, tx := range txs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-7s %+5d  %s\n",
					tx.CreatedAt.Format(time.RFC3339), tx.Kind, tx.Delta, tx.Note)
			}
			return nil
		},
	}
	ledger.Flags().IntVar(&limit, "limit", 20, "number of entries")

	moons.AddCommand(balance, grant, set, ledger)
	return moons
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid kid id %q", raw)
	}
	return id, nil
}
