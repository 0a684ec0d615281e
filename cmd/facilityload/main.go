// Command facilityload loads a facility directory the same way the dashboard
// does, prints what was kept and skipped, and can write the cleaned records
// as a JSON fixture or publish them to Kafka.
//
// Usage:
//
//	go run ./cmd/facilityload \
//	  -dir data/facility_location_files \
//	  -out data/mock/facilities.json \
//	  -publish -brokers localhost:9092 -topic facility-locations
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	kafkaadapter "github.com/couchcryptid/bh-network-dashboard/internal/adapter/kafka"
	"github.com/couchcryptid/bh-network-dashboard/internal/config"
	"github.com/couchcryptid/bh-network-dashboard/internal/domain"
	"github.com/couchcryptid/bh-network-dashboard/internal/facility"
	"github.com/couchcryptid/bh-network-dashboard/internal/observability"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	_ = godotenv.Load()

	dir := flag.String("dir", sharedcfg.EnvOrDefault("FACILITY_DIR", filepath.Join("data", "facility_location_files")), "directory containing facility CSV files")
	out := flag.String("out", "", "optional output path for the cleaned JSON fixture")
	publish := flag.Bool("publish", false, "publish the cleaned records to Kafka")
	brokers := flag.String("brokers", sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092"), "comma-separated Kafka brokers")
	topic := flag.String("topic", sharedcfg.EnvOrDefault("KAFKA_FACILITY_TOPIC", "facility-locations"), "Kafka topic for -publish")
	logLevel := flag.String("log-level", "warn", "log level: debug, info, warn, error")
	flag.Parse()

	cfg := &config.Config{
		LogLevel:           *logLevel,
		LogFormat:          "text",
		KafkaBrokers:       sharedcfg.ParseBrokers(*brokers),
		KafkaFacilityTopic: *topic,
	}
	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetricsWithRegistry(prometheus.NewRegistry())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := facility.NewLoader(logger, metrics, nil).Load(ctx, *dir)
	if err != nil {
		return fmt.Errorf("loading %s: %w", *dir, err)
	}

	printStats(res)

	if *out != "" {
		if err := writeJSON(*out, res.Facilities); err != nil {
			return fmt.Errorf("writing fixture: %w", err)
		}
		log.Printf("wrote fixture: %s", *out)
	}

	if *publish {
		if res.Empty() {
			log.Printf("nothing to publish")
			return nil
		}
		writer := kafkaadapter.NewWriter(cfg, logger, metrics)
		defer writer.Close()
		if err := writer.Publish(ctx, res); err != nil {
			return err
		}
		log.Printf("published %d facilities to %s", len(res.Facilities), *topic)
	}
	return nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

type stateCount struct {
	state string
	count int
}

func printStats(res facility.LoadResult) {
	fmt.Printf("=== Facility load: %s ===\n", res.Dir)
	fmt.Printf("Files: %d read, %d skipped\n", len(res.Files), len(res.Skipped))
	fmt.Printf("Facilities: %d\n", len(res.Facilities))

	if res.Empty() {
		fmt.Println("No individual facility data loaded or found.")
	}

	counts := res.Facilities.CountByCategory()
	fmt.Println("By category:")
	for _, c := range domain.Categories {
		fmt.Printf("  %-42s %s  %d\n", c.Label(), c.FillColor(), counts[c])
	}

	byFile := map[string]int{}
	byState := map[string]int{}
	for i := range res.Facilities {
		f := &res.Facilities[i]
		byFile[f.SourceFile]++
		byState[f.State]++
	}

	fmt.Println("By file:")
	for _, name := range res.Files {
		if n, ok := byFile[name]; ok {
			fmt.Printf("  %s=%d\n", name, n)
		}
	}

	sc := make([]stateCount, 0, len(byState))
	for s, c := range byState {
		sc = append(sc, stateCount{s, c})
	}
	sort.Slice(sc, func(i, j int) bool {
		if sc[i].count != sc[j].count {
			return sc[i].count > sc[j].count
		}
		return sc[i].state < sc[j].state
	})
	fmt.Printf("States (%d): ", len(sc))
	for _, s := range sc {
		fmt.Printf("%s=%d ", s.state, s.count)
	}
	fmt.Println()

	if len(res.Skipped) > 0 {
		fmt.Println("\nSkipped files:")
		for i, issue := range res.Skipped {
			fmt.Printf("  [%d] %s\n", i+1, issue.Error())
		}
	}
}
