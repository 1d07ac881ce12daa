package main

import (
	"fmt"
	"os"
	"sort"

	flags "github.com/jessevdk/go-flags"
	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"
	"github.com/sirupsen/logrus"

	dlttoolkit "github.com/dltoolkit/dlt"
	"github.com/dltoolkit/dlt/analytics"
	"github.com/dltoolkit/dlt/mmapfile"
)

type Options struct {
	Access  string `short:"m" long:"access" description:"file access method" choice:"mmap" choice:"read" default:"mmap"`
	Test    string `short:"t" long:"test" description:"analysis to run" required:"true"`
	Verbose []bool `short:"v" long:"verbose" description:"enable debug logging"`

	Positional struct {
		Path string `positional-arg-name:"path" required:"true"`
	} `positional-args:"yes"`
}

var options Options
var parser = flags.NewParser(&options, flags.Default)

func main() {
	logger := logrus.New()
	dlttoolkit.SetLogger(logger)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		logger.Errorln(err)
		os.Exit(1)
	}

	if len(options.Verbose) > 0 {
		logger.SetLevel(logrus.DebugLevel)
	}

	config := dlttoolkit.Config{}
	config.ReadConfig()
	dlttoolkit.StartMetrics(config.MetricsPort)
	if config.ProfilePort != 0 {
		dlttoolkit.StartProfile(config.ProfilePort)
	}

	backing := mmapfile.Mmap
	if options.Access == "read" {
		backing = mmapfile.ReadAll
	}
	file, err := mmapfile.Open(options.Positional.Path, backing)
	if err != nil {
		logger.Fatalln("failed to open", options.Positional.Path, ":", err)
	}
	defer file.Close()

	bytes := file.Bytes()
	workers := config.ResolvedWorkers()

	if err := runTest(options.Test, bytes, workers); err != nil {
		logger.Errorln(err)
		os.Exit(1)
	}
}

func runTest(test string, bytes []byte, workers int) error {
	switch test {
	case "count":
		printScalar("messages", analytics.Count(bytes))
	case "count_hello_world":
		printScalar("hello world messages", analytics.CountHelloWorld(bytes))
	case "count_hello_world_raw":
		printScalar("raw hello world matches", analytics.CountHelloWorldRaw(bytes))
	case "count_hello_world_grepit":
		printScalar("hello world messages", analytics.CountHelloWorldGrep(bytes))
	case "iter":
		printScalar("lifecycles", analytics.Lifecycles(bytes))
	case "itertools":
		printScalar("lifecycles", analytics.LifecyclesWindowed(bytes))
	case "histogram_timestamp":
		printIntHistogram("Durations of periods where DLT storage header timestamps are continuous", analytics.HistogramTimestamp(bytes))
	case "histogram_lifecycles":
		printIntHistogram("Distribution of lifecycle durations", analytics.HistogramLifecycles(bytes))
	case "histogram_message_type":
		printMessageTypeHistogram(analytics.HistogramMessageType(bytes))
	case "histogram_payload_size":
		printSizeHistogram("Distribution of payload length", analytics.HistogramPayloadSize(bytes))
	case "histogram_message_size":
		printSizeHistogram("Distribution of DLT message length", analytics.HistogramMessageSize(bytes))
	case "histogram_hello_world":
		printHelloWorldHistogram(analytics.HistogramHelloWorld(bytes))
	case "split_lifecycles":
		printEcuHistogram("Distribution of lifecycle durations", analytics.SplitLifecycles(bytes))
	case "split_timestamp":
		printEcuHistogram("Durations of periods where DLT storage header timestamps are continuous", analytics.SplitTimestamp(bytes))
	case "par_count":
		total, err := analytics.ParCount(bytes, workers)
		if err != nil {
			return err
		}
		printScalar("messages", total)
	case "par_count_hello_world":
		total, err := analytics.ParCountHelloWorld(bytes, workers)
		if err != nil {
			return err
		}
		printScalar("hello world messages", total)
	case "par_iter":
		total, err := analytics.ParIter(bytes, workers)
		if err != nil {
			return err
		}
		printScalar("lifecycles", total)
	case "par_histogram_timestamp":
		hist, err := analytics.ParHistogramTimestamp(bytes, workers)
		if err != nil {
			return err
		}
		printIntHistogram("Durations of periods where DLT storage header timestamps are continuous", hist)
	default:
		return fmt.Errorf("unknown test %q", test)
	}
	return nil
}

func isTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd())
}

func sortedKeys(m map[int]int) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func printScalar(label string, value int) {
	fmt.Printf("%s: %d\n", label, value)
}

func printIntHistogram(title string, hist map[int]int) {
	keys := sortedKeys(hist)
	if !isTerminal() {
		for _, k := range keys {
			fmt.Printf("%d-%d secs: %d\n", k, k+1, hist[k])
		}
		return
	}

	pterm.DefaultSection.Println(title)
	rows := pterm.TableData{{"bucket", "count"}}
	for _, k := range keys {
		rows = append(rows, []string{fmt.Sprintf("%d-%d secs", k, k+1), fmt.Sprintf("%d", hist[k])})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

func printSizeHistogram(title string, hist map[int]int) {
	keys := sortedKeys(hist)
	total := 0
	if !isTerminal() {
		for _, k := range keys {
			size := k * hist[k]
			total += size
			fmt.Printf("%db: %d, overall: %d kB\n", k, hist[k], size/1024)
		}
		fmt.Printf("total: %d kB\n", total/1024)
		return
	}

	pterm.DefaultSection.Println(title)
	rows := pterm.TableData{{"size (b)", "count", "overall (kB)"}}
	for _, k := range keys {
		size := k * hist[k]
		total += size
		rows = append(rows, []string{fmt.Sprintf("%d", k), fmt.Sprintf("%d", hist[k]), fmt.Sprintf("%d", size/1024)})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	pterm.Info.Println("total:", total/1024, "kB")
}

func printHelloWorldHistogram(hist map[int]int) {
	keys := sortedKeys(hist)
	const bucket = 100000000
	if !isTerminal() {
		for _, k := range keys {
			fmt.Printf("offset %dM-%dM: %d\n", k*bucket/1000000, (k+1)*bucket/1000000, hist[k])
		}
		return
	}

	pterm.DefaultSection.Println("Distribution of 'Hello World' matches")
	rows := pterm.TableData{{"offset range", "count"}}
	for _, k := range keys {
		rows = append(rows, []string{fmt.Sprintf("%dM-%dM", k*bucket/1000000, (k+1)*bucket/1000000), fmt.Sprintf("%d", hist[k])})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

func printMessageTypeHistogram(hist map[analytics.MessageTypeKey]int) {
	keys := make([]analytics.MessageTypeKey, 0, len(hist))
	for k := range hist {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Verbose != keys[j].Verbose {
			return !keys[i].Verbose
		}
		return keys[i].Type < keys[j].Type
	})

	if !isTerminal() {
		for _, k := range keys {
			fmt.Printf("(verbose=%v, type=%d): %d\n", k.Verbose, k.Type, hist[k])
		}
		return
	}

	pterm.DefaultSection.Println("(verbose, message type): # dlt messages")
	rows := pterm.TableData{{"verbose", "type", "count"}}
	for _, k := range keys {
		rows = append(rows, []string{fmt.Sprintf("%v", k.Verbose), fmt.Sprintf("%d", k.Type), fmt.Sprintf("%d", hist[k])})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

func printEcuHistogram(title string, result map[string]analytics.EcuLifecycleCounts) {
	ecus := make([]string, 0, len(result))
	for k := range result {
		ecus = append(ecus, k)
	}
	sort.Strings(ecus)

	lifecycles := make(map[string]int, len(result))
	for ecu, counts := range result {
		for _, n := range counts.ByDuration {
			lifecycles[ecu] += n
		}
	}

	if !isTerminal() {
		for _, ecu := range ecus {
			fmt.Printf("%s #lifecycles: %d\n", ecu, lifecycles[ecu])
		}
		return
	}

	pterm.DefaultSection.Println(title)
	rows := pterm.TableData{{"ecu", "#lifecycles"}}
	for _, ecu := range ecus {
		rows = append(rows, []string{ecu, fmt.Sprintf("%d", lifecycles[ecu])})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}
