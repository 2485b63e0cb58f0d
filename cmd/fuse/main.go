// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	cli "gopkg.in/urfave/cli.v1"
	"gopkg.in/yaml.v3"

	"github.com/fuseio/fuse-consensus/api"
	"github.com/fuseio/fuse-consensus/chain"
	"github.com/fuseio/fuse-consensus/eventdb"
	"github.com/fuseio/fuse-consensus/genesis"
	"github.com/fuseio/fuse-consensus/metrics"
	"github.com/fuseio/fuse-consensus/state"
)

var (
	version   string
	gitCommit string
	gitTag    string
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version: fullVersion(),
		Name:    "Fuse",
		Usage:   "Node of the Fuse validator-set consensus system",
		Flags: []cli.Flag{
			genesisFlag,
			dataDirFlag,
			apiAddrFlag,
			apiCorsFlag,
			apiSlowQueriesThresholdFlag,
			apiEventsLimitFlag,
			skipEventsFlag,
			enableAPILogsFlag,
			verbosityFlag,
			dbEngineFlag,
			dbCacheFlag,
			blockIntervalFlag,
			validatorKeyFlag,
			validatorKeyFileFlag,
			skipClockCheckFlag,
			enableMetricsFlag,
			metricsAddrFlag,
		},
		Action: defaultAction,
		Commands: []cli.Command{
			{
				Name:   "devnet-genesis",
				Usage:  "print the devnet genesis config as YAML",
				Action: devnetGenesisAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func devnetGenesisAction(ctx *cli.Context) error {
	out, err := yaml.Marshal(genesis.DevnetConfig())
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}

func defaultAction(ctx *cli.Context) error {
	exitCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	initLogger(ctx)

	gene, err := selectGenesis(ctx)
	if err != nil {
		return err
	}
	instanceDir, err := makeInstanceDir(ctx, gene)
	if err != nil {
		return err
	}

	cacheMB := normalizeCacheSize(ctx.Int(dbCacheFlag.Name))
	db, err := openMainDB(ctx.String(dbEngineFlag.Name), instanceDir, cacheMB)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing main database...")
		if err := db.Close(); err != nil {
			log.Warn("failed to close main database", "err", err)
		}
	}()

	st, err := state.New(db, state.WithCacheSize(cacheMB/2))
	if err != nil {
		return errors.Wrap(err, "open state")
	}
	interval := ctx.Uint64(blockIntervalFlag.Name)
	c, err := chain.New(db, st, interval)
	if err != nil {
		return err
	}
	defer c.Close()

	if !c.Initialized() {
		if _, err := gene.Build(c); err != nil {
			return errors.Wrap(err, "build genesis")
		}
	}

	validator, err := loadValidator(ctx, gene)
	if err != nil {
		return err
	}

	enableMetrics := ctx.Bool(enableMetricsFlag.Name)
	if enableMetrics {
		metrics.InitializePrometheusMetrics()
	}

	var eventDB *eventdb.EventDB
	if !ctx.Bool(skipEventsFlag.Name) {
		if eventDB, err = openEventDB(instanceDir); err != nil {
			return err
		}
		defer func() {
			log.Info("closing event database...")
			if err := eventDB.Close(); err != nil {
				log.Warn("failed to close event database", "err", err)
			}
		}()
	}

	handler, closeSubs := api.New(c, eventDB, gene.Addresses.Registry, api.Options{
		AllowedOrigins:       ctx.String(apiCorsFlag.Name),
		EventsLimit:          ctx.Uint64(apiEventsLimitFlag.Name),
		EnableMetrics:        enableMetrics,
		EnableReqLogger:      ctx.Bool(enableAPILogsFlag.Name),
		SlowQueriesThreshold: time.Duration(ctx.Uint64(apiSlowQueriesThresholdFlag.Name)) * time.Millisecond,
	})

	defer closeSubs()

	group, groupCtx := errgroup.WithContext(exitCtx)
	if eventDB != nil {
		group.Go(func() error {
			return eventDB.Index(groupCtx, c)
		})
	}

	apiURL, serveAPI, err := serveHTTP(groupCtx, ctx.String(apiAddrFlag.Name), handler)
	if err != nil {
		return err
	}
	group.Go(serveAPI)

	if enableMetrics {
		url, serveMetrics, err := serveHTTP(groupCtx, ctx.String(metricsAddrFlag.Name), metrics.HTTPHandler())
		if err != nil {
			return err
		}
		log.Info("metrics server started", "url", strings.TrimSuffix(url, "/")+"/metrics")
		group.Go(serveMetrics)
	}

	engine := chain.NewEngine(c, gene.Addresses.Consensus)
	if validator != nil {
		engine = engine.WithValidator(*validator)
	}
	printStartupMessage(gene, c.Head(), validator, instanceDir, apiURL)

	group.Go(func() error {
		return produceLoop(groupCtx, engine, time.Duration(c.Interval())*time.Second)
	})
	if !ctx.Bool(skipClockCheckFlag.Name) {
		group.Go(func() error {
			clockLoop(groupCtx, c.Interval())
			return nil
		})
	}

	err = group.Wait()
	log.Info("exiting...")
	return err
}

func produceLoop(ctx context.Context, engine *chain.Engine, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			head, err := engine.Produce()
			if err != nil {
				return errors.Wrap(err, "produce block")
			}
			log.Debug("block sealed", "number", head.Number, "txs", head.TxCount)
		}
	}
}

func clockLoop(ctx context.Context, interval uint64) {
	checkClockOffset(interval)

	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			checkClockOffset(interval)
		}
	}
}
