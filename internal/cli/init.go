package cli

import (
	"github.com/spf13/cobra"
)

func newInitCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "init",
		Short:         "Create the database file and apply schema migrations",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, f, err := openApp(opts, cmd)
			if err != nil {
				return err
			}
			defer app.Close()
			return f.Success(map[string]string{"db_path": app.Config.DBPath})
		},
	}
	return cmd
}
