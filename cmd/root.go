package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/ValentinKolb/tKV/cmd/serve"
	"github.com/ValentinKolb/tKV/cmd/table"
	"github.com/ValentinKolb/tKV/cmd/util"
	"github.com/ValentinKolb/tKV/rpc/serializer"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "tkv",
		Short: "table store with indexed queries",
		Long: fmt.Sprintf(`tKV (v%s)

A table store written in Go. Records are JSON objects stored in an ordered
object-store engine (in-memory or bbolt), queried by primary key or secondary
indexes with filters, ordering and pagination.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of tKV",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tKV v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(table.TableCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "binary", util.WrapString(fmt.Sprintf("serializer to use (%s)", strings.Join(serializer.Names, ", "))))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "tcp", util.WrapString(fmt.Sprintf("transport to use (%s)", strings.Join(util.Transports, ", "))))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
