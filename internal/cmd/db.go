package cmd

import (
	"io"

	"github.com/Iron-Ham/postflow/internal/store/sqlstore"
	"github.com/spf13/cobra"
)

func newDBCmd() *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the postflow database",
	}
	dbCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		Args:  cobra.NoArgs,
		RunE:  runDBMigrate,
	})
	return dbCmd
}

func runDBMigrate(cmd *cobra.Command, args []string) error {
	// openApp migrates on open
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	result := struct {
		Driver  string `json:"driver"`
		Version int    `json:"schema_version"`
	}{a.store.Driver(), sqlstore.SchemaVersion()}

	return newPrinter(cmd).emit(result, func(w io.Writer) {
		success(w, "Database schema at version %d (%s)", result.Version, result.Driver)
	})
}
