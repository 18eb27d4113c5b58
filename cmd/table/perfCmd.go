package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/tKV/cmd/util"
	"github.com/ValentinKolb/tKV/lib/db"
	"github.com/ValentinKolb/tKV/lib/table"
	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for tKV servers",
		Long:    "Runs set, get, list and count requests against a temporary table and reports throughput and latency percentiles.",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfTable      = "__perf"
	perfDuration   = 5 * time.Second
	perfNumThreads = 10
	perfKeySpread  = 100
	perfValueSize  = 100
	perfSkip       = make([]string, 0)
)

// perfResult is the outcome of a single benchmark
type perfResult struct {
	name    string
	timer   metrics.Timer
	errors  int64
	workers util.Stats // distribution of the operations per worker
	elapsed time.Duration
}

func init() {
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,list)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "duration"
	perfTestCmd.Flags().Duration(key, 5*time.Second, util.WrapString("Duration of each benchmark"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different records to use for the tests"))
	key = "value-size"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("Size of the payload field of each record in bytes"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	perfDuration = viper.GetDuration("duration")
	perfKeySpread = max(viper.GetInt("keys"), 1)
	perfNumThreads = max(viper.GetInt("threads"), 1)
	perfValueSize = max(viper.GetInt("value-size"), 0)
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func runPerf(_ *cobra.Command, _ []string) error {
	fmt.Println("Performance testing tool for tKV servers")

	config := util.GetClientConfig()
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(config.String())
	fmt.Printf("Threads: %d, Duration: %s, Keys: %d\n", perfNumThreads, perfDuration, perfKeySpread)
	fmt.Println()

	tbl, err := prepareTable()
	if err != nil {
		return err
	}
	defer func() {
		if err := tbl.Clear(); err != nil {
			fmt.Printf("failed to clear %s: %v\n", perfTable, err)
		}
	}()

	payload := strings.Repeat("x", perfValueSize)
	registry := metrics.NewRegistry()

	benchmarks := []struct {
		name string
		op   func(i int) error
	}{
		{"set", func(i int) error {
			_, err := tbl.Set(perfKey(i), db.Record{"n": i, "payload": payload})
			return err
		}},
		{"get", func(i int) error {
			_, _, err := tbl.Get(perfKey(i))
			return err
		}},
		{"list", func(i int) error {
			_, err := tbl.List(table.Query{
				Where: &table.Where{Key: table.PrimaryKeyPath, Operator: table.OpGreaterOrEqual, Value: perfKey(i)},
				Limit: 10,
			})
			return err
		}},
		{"count", func(i int) error {
			_, err := tbl.Count(table.Query{
				Where: &table.Where{Key: table.PrimaryKeyPath, Operator: table.OpNotEqual, Value: perfKey(i)},
			})
			return err
		}},
	}

	fmt.Println("starting tests...")
	fmt.Printf("%-8s%12s%14s%12s%12s%12s%10s\n", "test", "ops", "ops/sec", "mean", "p95", "p99", "errors")

	results := make([]perfResult, 0, len(benchmarks))
	for _, b := range benchmarks {
		if shouldSkip(b.name) {
			fmt.Printf("%-8sskipped\n", b.name)
			continue
		}
		result := runBenchmark(b.name, metrics.GetOrRegisterTimer(b.name, registry), b.op)
		printResult(result)
		results = append(results, result)
	}

	if csvPath := viper.GetString("csv"); csvPath != "" {
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return err
		}
		fmt.Printf("results written to %s\n", csvPath)
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// prepareTable creates (or clears) the benchmark table and fills it with perfKeySpread records
func prepareTable() (table.ITableConnector, error) {
	err := rpcProvider.CreateTable(perfTable)
	if err != nil && !errors.Is(err, table.ErrTableExists) {
		return nil, err
	}
	tbl, err := getTable(perfTable)
	if err != nil {
		return nil, err
	}
	if err := tbl.Clear(); err != nil {
		return nil, err
	}
	for i := 0; i < perfKeySpread; i++ {
		if _, err := tbl.Set(perfKey(i), db.Record{"n": i}); err != nil {
			return nil, err
		}
	}
	return tbl, nil
}

// runBenchmark runs op on perfNumThreads workers for perfDuration
func runBenchmark(name string, timer metrics.Timer, op func(i int) error) perfResult {
	var errCount atomic.Int64
	perWorker := make([]float64, perfNumThreads)
	deadline := time.Now().Add(perfDuration)
	start := time.Now()

	var wg sync.WaitGroup
	for w := 0; w < perfNumThreads; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := w; time.Now().Before(deadline); i += perfNumThreads {
				opStart := time.Now()
				if err := op(i); err != nil {
					errCount.Add(1)
					continue
				}
				timer.UpdateSince(opStart)
				perWorker[w]++
			}
		}(w)
	}
	wg.Wait()

	return perfResult{
		name:    name,
		timer:   timer,
		errors:  errCount.Load(),
		workers: util.NewStats(perWorker),
		elapsed: time.Since(start),
	}
}

func perfKey(i int) string {
	return fmt.Sprintf("k%06d", i%perfKeySpread)
}

func shouldSkip(test string) bool {
	for _, skip := range perfSkip {
		if strings.TrimSpace(skip) == test {
			return true
		}
	}
	return false
}

func (r perfResult) opsPerSec() float64 {
	return float64(r.timer.Count()) / r.elapsed.Seconds()
}

// printResult prints the result of a benchmark in a formatted way
func printResult(r perfResult) {
	ps := r.timer.Percentiles([]float64{0.95, 0.99})
	fmt.Printf("%-8s%12d%14.0f%12s%12s%12s%10d\n",
		r.name, r.timer.Count(), r.opsPerSec(),
		time.Duration(r.timer.Mean()).Round(time.Microsecond),
		time.Duration(ps[0]).Round(time.Microsecond),
		time.Duration(ps[1]).Round(time.Microsecond),
		r.errors,
	)
	if r.workers.MinMaxRatio < 0.5 {
		fmt.Printf("        uneven load: %.0f to %.0f ops per worker\n", r.workers.Min, r.workers.Max)
	}
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results []perfResult) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{
		"Test", "Ops", "OpsPerSec", "MeanNs", "P50Ns", "P95Ns", "P99Ns", "MaxNs", "Errors",
		"WorkerOpsStdDev", "Serializer", "Transport", "Threads", "Keys", "ValueSize",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for _, r := range results {
		ps := r.timer.Percentiles([]float64{0.5, 0.95, 0.99})
		row := []string{
			r.name,
			strconv.FormatInt(r.timer.Count(), 10),
			fmt.Sprintf("%.0f", r.opsPerSec()),
			fmt.Sprintf("%.0f", r.timer.Mean()),
			fmt.Sprintf("%.0f", ps[0]),
			fmt.Sprintf("%.0f", ps[1]),
			fmt.Sprintf("%.0f", ps[2]),
			strconv.FormatInt(r.timer.Max(), 10),
			strconv.FormatInt(r.errors, 10),
			fmt.Sprintf("%.1f", r.workers.StdDeviation),
			viper.GetString("serializer"),
			viper.GetString("transport"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfKeySpread),
			strconv.Itoa(perfValueSize),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", r.name, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
