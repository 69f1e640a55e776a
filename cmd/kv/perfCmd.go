package kv

import (
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/cKV/cmd/util"
	"github.com/ValentinKolb/cKV/rpc/common"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for cKV servers",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix        = "__perf"
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfKeySpread        = 100
	perfSkip             = make([]string, 0)

	// latency of every single request, per benchmark
	perfRegistry = gometrics.NewRegistry()
)

// perfQuantiles are the latency percentiles that are reported
var perfQuantiles = []float64{0.5, 0.99, 0.999}

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How large the value for the set-large test should be (in KB)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfKeySpread = max(viper.GetInt("keys"), 1)
	perfNumThreads = max(viper.GetInt("threads"), 1)
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

// perfBenchmark is one load pattern. prepare fills the keys before the timer
// starts, op is executed once per iteration.
type perfBenchmark struct {
	name    string
	prepare bool
	op      func(key string, i int) error
}

func perfBenchmarks() []perfBenchmark {
	largeValue := strings.Repeat("x", perfLargeValueSizeKB*1024)
	ttl := int64(60)

	return []perfBenchmark{
		{name: "set", op: func(key string, _ int) error {
			return rpcClient.Set(key, "test", nil)
		}},
		{name: "set-ttl", op: func(key string, _ int) error {
			return rpcClient.Set(key, "test", &ttl)
		}},
		{name: "set-large", op: func(key string, _ int) error {
			return rpcClient.Set(key, largeValue, nil)
		}},
		{name: "get", prepare: true, op: func(key string, _ int) error {
			_, _, err := rpcClient.Get(key)
			return err
		}},
		{name: "exists", prepare: true, op: func(key string, _ int) error {
			_, err := rpcClient.Exists(key)
			return err
		}},
		{name: "exists-not", op: func(key string, _ int) error {
			_, err := rpcClient.Exists(key + "-missing")
			return err
		}},
		{name: "del", prepare: true, op: func(key string, _ int) error {
			_, err := rpcClient.Del(key)
			return err
		}},
		{name: "mixed", prepare: true, op: func(key string, i int) error {
			var err error
			switch i % 4 {
			case 0: // set
				err = rpcClient.Set(key, "test", nil)
			case 1: // get
				_, _, err = rpcClient.Get(key)
			case 2: // ttl
				_, err = rpcClient.TTL(key)
			case 3: // exists
				_, err = rpcClient.Exists(key)
			}
			return err
		}},
	}
}

func runPerf(_ *cobra.Command, _ []string) error {
	config, err := util.GetClientConfig()
	if err != nil {
		return err
	}

	fmt.Println("Performance testing tool for cKV servers")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(config.String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	fmt.Println("starting tests...")

	// Create results map
	results := make(map[string]testing.BenchmarkResult)

	for _, bench := range perfBenchmarks() {
		if shouldSkip(bench.name) {
			printResult(bench.name, testing.BenchmarkResult{}, nil)
			continue
		}
		result, timer := runBenchmark(bench)
		results[bench.name] = result
		printResult(bench.name, result, timer)
	}

	// Write results to csv if specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, config); err != nil {
			return fmt.Errorf("failed to export results to CSV: %w", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// runBenchmark runs one load pattern and records the latency of every request
func runBenchmark(bench perfBenchmark) (testing.BenchmarkResult, gometrics.Timer) {
	timer := gometrics.GetOrRegisterTimer(bench.name, perfRegistry)

	result := testing.Benchmark(func(b *testing.B) {
		// prepare keys
		getKey, iter := getKeys(bench.name)

		if bench.prepare {
			iter(func(k string) {
				if err := rpcClient.Set(k, "test", nil); err != nil {
					log.Printf("(%s) - error setting key: %v\n", bench.name, err)
				}
			})
		}

		// cleanup
		b.Cleanup(func() {
			iter(func(k string) {
				if _, err := rpcClient.Del(k); err != nil {
					log.Printf("(%s) - error deleting key: %v\n", bench.name, err)
				}
			})
		})

		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				start := time.Now()
				if err := bench.op(getKey(counter), counter); err != nil {
					log.Printf("(%s) - error: %v\n", bench.name, err)
				}
				timer.UpdateSince(start)
				counter++
			}
		})
	})
	return result, timer
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == strings.TrimSpace(skip) {
			return true
		}
	}
	return false
}

// creates an array of test keys and functions to work with them
func getKeys(prefix string) (func(int) string, func(func(string))) {
	keys := make([]string, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i)
	}

	// Function to get a key by index (with wraparound)
	getKey := func(i int) string {
		return keys[i%perfKeySpread]
	}

	// Function to iterate over all keys and apply a function to each
	iterateKeys := func(fn func(string)) {
		for _, key := range keys {
			fn(key)
		}
	}

	return getKey, iterateKeys
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult, timer gometrics.Timer) {
	if result.NsPerOp() == 0 || timer == nil {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	snap := timer.Snapshot()
	ps := snap.Percentiles(perfQuantiles)

	// Print the formatted result
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\tp50=%s p99=%s p99.9=%s\n",
		test, nsPerOp, time.Duration(nsPerOp), opsPerSec,
		time.Duration(ps[0]), time.Duration(ps[1]), time.Duration(ps[2]))
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "P50Ns", "P99Ns", "P999Ns",
		"Endpoints", "TimeoutSec", "RetryCount", "ConnectionsPerEndpoint", "Transport",
		"Threads", "LargeValueSizeKB", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	// Write test results
	for test, result := range results {
		nsPerOp := math.Max(float64(result.NsPerOp()), 1)
		opsPerSec := 1.0 / (nsPerOp / 1e9)
		ps := gometrics.GetOrRegisterTimer(test, perfRegistry).Snapshot().Percentiles(perfQuantiles)

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			fmt.Sprintf("%.0f", ps[0]),
			fmt.Sprintf("%.0f", ps[1]),
			fmt.Sprintf("%.0f", ps[2]),
			strings.Join(config.Endpoints, ";"),
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.RetryCount),
			strconv.Itoa(config.ConnectionsPerEndpoint),
			string(config.Transport),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %w", test, err)
		}
	}

	return nil
}
