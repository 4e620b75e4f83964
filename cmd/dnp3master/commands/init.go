package commands

import (
	"github.com/spf13/cobra"

	"github.com/go-dnp3/dnp3master/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Write a sample dnp3master configuration file with one TCP channel
and one association, as a starting point to edit.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	path, err := config.InitConfig(GetConfigFile(), initForce)
	if err != nil {
		return err
	}
	cmd.Printf("Configuration file created at: %s\n", path)
	cmd.Println("Edit it, then run: dnp3master start")
	return nil
}
