package table

import (
	"fmt"

	"github.com/ValentinKolb/tKV/cmd/util"
	"github.com/ValentinKolb/tKV/lib/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	hasCmd = &cobra.Command{
		Use:   "has [table]",
		Short: "Checks if a table exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := rpcProvider.HasTable(args[0])
			if err != nil {
				return err
			}
			fmt.Println(ok)
			return nil
		},
	}
	createCmd = &cobra.Command{
		Use:   "create [table]",
		Short: "Creates a table (without indexes, use a layout file for indexes)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcProvider.CreateTable(args[0]); err != nil {
				return err
			}
			fmt.Println("created successfully")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [table] [id]",
		Short: "Gets the record with the given id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tbl, err := getTable(args[0])
			if err != nil {
				return err
			}
			rec, ok, err := tbl.Get(args[1])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("record %s not found", args[1])
			}
			return util.PrintJSON(rec)
		},
	}
	setCmd = &cobra.Command{
		Use:   "set [table] [id] [json]",
		Short: "Stores a record under the given id (insert or replace)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			tbl, err := getTable(args[0])
			if err != nil {
				return err
			}
			value, err := util.ParseRecord(args[2])
			if err != nil {
				return err
			}
			rec, err := tbl.Set(args[1], value)
			if err != nil {
				return err
			}
			return util.PrintJSON(rec)
		},
	}
	addCmd = &cobra.Command{
		Use:   "add [table] [json]",
		Short: "Stores a record under a generated id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tbl, err := getTable(args[0])
			if err != nil {
				return err
			}
			value, err := util.ParseRecord(args[1])
			if err != nil {
				return err
			}
			rec, err := tbl.Add(value)
			if err != nil {
				return err
			}
			return util.PrintJSON(rec)
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [table] [id]",
		Short: "Deletes the record with the given id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tbl, err := getTable(args[0])
			if err != nil {
				return err
			}
			if err := tbl.Delete(args[1]); err != nil {
				return err
			}
			fmt.Println("deleted successfully")
			return nil
		},
	}
	clearCmd = &cobra.Command{
		Use:   "clear [table]",
		Short: "Deletes all records of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tbl, err := getTable(args[0])
			if err != nil {
				return err
			}
			if err := tbl.Clear(); err != nil {
				return err
			}
			fmt.Println("cleared successfully")
			return nil
		},
	}
	listCmd = &cobra.Command{
		Use:   "list [table]",
		Short: "Lists the records matching a query",
		Long: `Lists the records matching a query. Example:

  tkv table list users --where-key age --op ">=" --value 30 --order-by name --desc --limit 10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tbl, err := getTable(args[0])
			if err != nil {
				return err
			}
			recs, err := tbl.List(queryFromFlags())
			if err != nil {
				return err
			}
			return util.PrintJSON(recs)
		},
	}
	countCmd = &cobra.Command{
		Use:   "count [table]",
		Short: "Counts the records matching a query (limit and offset are ignored)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tbl, err := getTable(args[0])
			if err != nil {
				return err
			}
			n, err := tbl.Count(queryFromFlags())
			if err != nil {
				return err
			}
			fmt.Println(n)
			return nil
		},
	}
	sizeCmd = &cobra.Command{
		Use:   "size [table]",
		Short: "Prints the sum of the JSON encoded sizes of all records in bytes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tbl, err := getTable(args[0])
			if err != nil {
				return err
			}
			size, err := tbl.CalculateSize()
			if err != nil {
				return err
			}
			fmt.Println(size)
			return nil
		},
	}
)

func init() {
	for _, cmd := range []*cobra.Command{listCmd, countCmd} {
		cmd.Flags().String("where-key", "", util.WrapString("Key path of the filter (must be id or an indexed key path)"))
		cmd.Flags().String("op", "==", util.WrapString("Operator of the filter (==, !=, >, >=, <, <=, between, in, not-in)"))
		cmd.Flags().String("value", "", util.WrapString("Value of the filter as JSON (e.g. 30, \"Ulm\", [20,30]), other text is used as string"))
		cmd.Flags().String("order-by", "", util.WrapString("Key path to order the result by"))
		cmd.Flags().Bool("desc", false, util.WrapString("Order descending"))
	}
	listCmd.Flags().Int("limit", 0, util.WrapString("Max number of records (0 = all)"))
	listCmd.Flags().Int("offset", 0, util.WrapString("Number of records to skip before filtering"))
}

// queryFromFlags builds the query from the bound flags of list and count
func queryFromFlags() table.Query {
	q := table.Query{
		Limit:  viper.GetInt("limit"),
		Offset: viper.GetInt("offset"),
	}
	if key := viper.GetString("where-key"); key != "" {
		q.Where = &table.Where{
			Key:      key,
			Operator: table.Operator(viper.GetString("op")),
			Value:    util.ParseValue(viper.GetString("value")),
		}
	}
	if key := viper.GetString("order-by"); key != "" {
		q.OrderBy = &table.OrderBy{Key: key, Direction: table.Asc}
		if viper.GetBool("desc") {
			q.OrderBy.Direction = table.Desc
		}
	}
	return q
}
