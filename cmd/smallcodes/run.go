package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gasparian/smallcodes-go/common"
	"github.com/gasparian/smallcodes-go/model"
	"github.com/gasparian/smallcodes-go/model/h5"
	"github.com/gasparian/smallcodes-go/pipeline"
	"github.com/gasparian/smallcodes-go/smallcode"
	"github.com/gasparian/smallcodes-go/store"
	"github.com/gasparian/smallcodes-go/store/ids"
	"github.com/gasparian/smallcodes-go/store/kv"
	"github.com/gasparian/smallcodes-go/store/purekv"
	"github.com/spf13/cobra"
)

// BucketPrefix names pure-kv buckets holding small-code index entries
const BucketPrefix = "itq"

var validateUUID bool

var errNoPureKv = errors.New("pure-kv address is not set, descriptors can't be fetched")

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Compute small-codes of all listed descriptors",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, logger, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		stats, err := runPipeline(ctx, config, logger)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "identifiers: %d, skipped: %d, coded: %d, elapsed: %v\n",
			stats.Identifiers, stats.Skipped, stats.Coded, stats.Elapsed)
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&validateUUID, "validate-uuid", false, "reject identifiers which are not UUIDs")
}

func runPipeline(ctx context.Context, config *common.Config, logger *common.Logger) (pipeline.Stats, error) {
	if len(config.PureKv.Address) == 0 {
		return pipeline.Stats{}, errNoPureKv
	}
	client, err := purekv.Dial(purekv.Config{
		Address: config.PureKv.Address,
		Timeout: config.PureKv.Timeout,
	})
	if err != nil {
		return pipeline.Stats{}, err
	}
	defer client.Close()

	elements, err := purekv.NewStore(client)
	if err != nil {
		return pipeline.Stats{}, err
	}
	sink, err := newSink(config, client)
	if err != nil {
		return pipeline.Stats{}, err
	}
	p := pipeline.New(
		pipelineConfig(config),
		&ids.FileSource{Path: config.Paths.UUIDList, ValidateUUID: validateUUID},
		elements,
		newLoader(config),
		sink,
		logger,
	)
	return p.Run(ctx)
}

func pipelineConfig(config *common.Config) pipeline.Config {
	dconfig := smallcode.Config{
		Workers:        config.Dispatcher.Workers,
		BatchSize:      config.Dispatcher.BatchSize,
		ReportInterval: config.Dispatcher.ReportInterval,
		CollectTimeout: config.Dispatcher.CollectTimeout,
	}
	if config.Dispatcher.Progress {
		dconfig.Progress = os.Stderr
	}
	return pipeline.Config{
		Dispatcher:  dconfig,
		SkipIndexed: config.SkipIndexed,
	}
}

func newLoader(config *common.Config) store.TransformLoader {
	if config.Paths.ModelFormat == common.ModelFormatHDF5 {
		return &h5.Loader{Path: config.Paths.Model}
	}
	return &model.FileLoader{Path: config.Paths.Model}
}

func newSink(config *common.Config, client purekv.Client) (store.IndexSink, error) {
	if config.Index == common.IndexPureKv {
		return purekv.NewSink(client, BucketPrefix), nil
	}
	return kv.NewCodeIndex(config.Paths.IndexCache)
}
