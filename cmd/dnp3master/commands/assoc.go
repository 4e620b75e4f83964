package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/go-dnp3/dnp3master/internal/cli/output"
	"github.com/go-dnp3/dnp3master/internal/cli/prompt"
	"github.com/go-dnp3/dnp3master/internal/store"
)

var assocCmd = &cobra.Command{
	Use:   "assoc",
	Short: "Inspect and manage persisted association definitions",
	Long: `assoc reads and writes the persisted channel/association definitions in
the association store (see "store" in the config file). It has no effect
on a running daemon: it only edits what the daemon will load on its next
start.`,
}

var assocListOutput string

var assocListCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted channels and associations",
	RunE:  runAssocList,
}

var assocRemoveForce bool

var assocRemoveCmd = &cobra.Command{
	Use:   "remove <channel> <address>",
	Short: "Remove a persisted association",
	Args:  cobra.ExactArgs(2),
	RunE:  runAssocRemove,
}

func init() {
	assocListCmd.Flags().StringVarP(&assocListOutput, "output", "o", "table", "output format (table|json|yaml)")
	assocRemoveCmd.Flags().BoolVarP(&assocRemoveForce, "force", "f", false, "skip the confirmation prompt")
	assocCmd.AddCommand(assocListCmd)
	assocCmd.AddCommand(assocRemoveCmd)
}

func openStore() (*store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Store.Enabled {
		return nil, fmt.Errorf("association store is disabled in configuration")
	}
	return store.Open(store.Config{
		Backend:     store.Backend(cfg.Store.Backend),
		SQLitePath:  cfg.Store.Path,
		PostgresDSN: cfg.Store.Postgres,
	})
}

func runAssocList(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(assocListOutput)
	if err != nil {
		return err
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	channels, err := s.ListChannels()
	if err != nil {
		return err
	}

	table := output.NewTableData("CHANNEL", "ADDRESS", "AUTO_TIME_SYNC", "UNSOLICITED")
	for _, ch := range channels {
		assocs, err := s.ListAssociations(ch.Name)
		if err != nil {
			return fmt.Errorf("failed to list associations for %q: %w", ch.Name, err)
		}
		for _, a := range assocs {
			table.AddRow(a.ChannelName, strconv.Itoa(int(a.Address)), a.AutoTimeSync, strconv.FormatBool(a.EnableUnsolicited))
		}
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, channels)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, channels)
	default:
		return output.PrintTable(os.Stdout, table)
	}
}

func runAssocRemove(cmd *cobra.Command, args []string) error {
	channel := args[0]
	address, err := strconv.ParseUint(args[1], 10, 16)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", args[1], err)
	}

	ok, err := prompt.ConfirmWithForce(fmt.Sprintf("remove association %d on channel %q", address, channel), assocRemoveForce)
	if err != nil {
		return err
	}
	if !ok {
		cmd.Println("aborted")
		return nil
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.DeleteAssociation(channel, uint16(address)); err != nil {
		return fmt.Errorf("failed to remove association: %w", err)
	}
	cmd.Printf("removed association %d on channel %q\n", address, channel)
	return nil
}
