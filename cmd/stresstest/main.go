// Package main is a load-generating CLI for castore: it drives
// randomized upload/read actions against either an in-process
// filestore.Session or a running server's HTTP adapter, and reports
// throughput and latency percentiles.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/prn-tf/castore/internal/chunk"
	"github.com/prn-tf/castore/internal/filestore"
	"github.com/prn-tf/castore/internal/kv"
	"github.com/prn-tf/castore/internal/kv/memkv"
	"github.com/prn-tf/castore/internal/stresstest"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:     "stresstest",
	Short:   "load-test castore's upload/read path",
	Version: version,
}

func main() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	rootCmd.AddCommand(runCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var (
		concurrency int
		duration    time.Duration
		p50Size     uint64
		p99Size     uint64
		writeWeight int
		readWeight  int
		remoteURL   string
		namespace   uint64
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "run a workload for a fixed duration",
		RunE: func(cmd *cobra.Command, args []string) error {
			workload := stresstest.NewWorkload(stresstest.WorkloadConfig{
				Name:        "default",
				Concurrency: concurrency,
				Seed:        int64(os.Getpid()),
				P50Size:     p50Size,
				P99Size:     p99Size,
				WriteWeight: writeWeight,
				ReadWeight:  readWeight,
			})

			target, err := buildTarget(remoteURL, namespace)
			if err != nil {
				return err
			}

			progress := mpb.New(mpb.WithWidth(60))
			bar := progress.AddBar(duration.Milliseconds(),
				mpb.PrependDecorators(decor.Name("stresstest", decor.WC{C: decor.DindentRight | decor.DextraSpace})),
				mpb.AppendDecorators(decor.Percentage(decor.WC{W: 5})),
			)
			go func() {
				ticker := time.NewTicker(100 * time.Millisecond)
				defer ticker.Stop()
				deadline := time.Now().Add(duration)
				for range ticker.C {
					remaining := time.Until(deadline)
					if remaining <= 0 {
						bar.SetCurrent(duration.Milliseconds())
						return
					}
					bar.SetCurrent(duration.Milliseconds() - remaining.Milliseconds())
				}
			}()

			driver := stresstest.NewDriver(target, workload)
			report := driver.Run(cmd.Context(), duration)
			progress.Wait()

			fmt.Println(report.String())
			return nil
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 16, "max in-flight requests")
	cmd.Flags().DurationVar(&duration, "duration", 10*time.Second, "how long to run")
	cmd.Flags().Uint64Var(&p50Size, "p50-size", 16*1024, "median payload size in bytes")
	cmd.Flags().Uint64Var(&p99Size, "p99-size", 1024*1024, "99th-percentile payload size in bytes")
	cmd.Flags().IntVar(&writeWeight, "write-weight", 1, "relative weight of write actions")
	cmd.Flags().IntVar(&readWeight, "read-weight", 1, "relative weight of read actions")
	cmd.Flags().StringVar(&remoteURL, "remote", "", "base URL of a running server, e.g. http://localhost:8080 (omit to run in-process)")
	cmd.Flags().Uint64Var(&namespace, "namespace", 1, "namespace to write into")

	return cmd
}

func buildTarget(remoteURL string, namespace uint64) (stresstest.Target, error) {
	if remoteURL != "" {
		client := &http.Client{Timeout: 30 * time.Second}
		return stresstest.NewHTTPTarget(client, fmt.Sprintf("%s/%d", remoteURL, namespace), "stresstest"), nil
	}

	store, err := filestore.Open(context.Background(), memkv.New(), 1<<30, log.Logger)
	if err != nil {
		return nil, fmt.Errorf("open in-process filestore: %w", err)
	}
	sess := store.WithNamespace(kv.Namespace(namespace))
	chunker := chunk.New(chunk.DefaultCdc())
	return stresstest.NewSessionTarget(sess, chunker, "stresstest"), nil
}
