package table

import (
	"github.com/ValentinKolb/tKV/cmd/util"
	"github.com/ValentinKolb/tKV/lib/table"
	"github.com/ValentinKolb/tKV/rpc/client"
	"github.com/ValentinKolb/tKV/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	rpcProvider table.ITableProvider

	// TableCommands represents the table command group
	TableCommands = &cobra.Command{
		Use:               "table",
		Short:             "Perform table operations on a tKV server",
		PersistentPreRunE: setupTableClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add common RPC flags to the table command
	util.SetupRPCClientFlags(TableCommands)
	TableCommands.PersistentFlags().String("log-level", "warn", util.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	// Add subcommands
	TableCommands.AddCommand(hasCmd)
	TableCommands.AddCommand(createCmd)
	TableCommands.AddCommand(getCmd)
	TableCommands.AddCommand(setCmd)
	TableCommands.AddCommand(addCmd)
	TableCommands.AddCommand(delCmd)
	TableCommands.AddCommand(clearCmd)
	TableCommands.AddCommand(listCmd)
	TableCommands.AddCommand(countCmd)
	TableCommands.AddCommand(sizeCmd)
	TableCommands.AddCommand(perfTestCmd)
}

// setupTableClient initializes the RPC table provider
func setupTableClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	if err := common.InitLoggers(viper.GetString("log-level")); err != nil {
		return err
	}

	config := util.GetClientConfig()
	shardId := util.GetShardID()

	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	t, err := util.GetTransport()
	if err != nil {
		return err
	}

	rpcProvider, err = client.NewRPCConnector(shardId, *config, t, s)
	return err
}

// getTable returns the connector of an existing table
func getTable(name string) (table.ITableConnector, error) {
	return rpcProvider.GetTableConnector(name)
}
