package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/crosslane/bridge-service/bridgectrl"
	"github.com/crosslane/bridge-service/chainregistry"
	"github.com/crosslane/bridge-service/config"
	"github.com/crosslane/bridge-service/consensus"
	"github.com/crosslane/bridge-service/dispatchman"
	"github.com/crosslane/bridge-service/estimatefee"
	"github.com/crosslane/bridge-service/localcache"
	"github.com/crosslane/bridge-service/log"
	"github.com/crosslane/bridge-service/message"
	"github.com/crosslane/bridge-service/metrics"
	"github.com/crosslane/bridge-service/pricing"
	"github.com/crosslane/bridge-service/redisstorage"
	"github.com/crosslane/bridge-service/txstore"
	"github.com/urfave/cli/v2"
)

const priceRefreshInterval = 30 * time.Second

func start(cliCtx *cli.Context) error {
	configFilePath := cliCtx.String(flagCfg)
	network := cliCtx.String(flagNetwork)
	c, err := config.Load(configFilePath, network)
	if err != nil {
		return err
	}
	setupLog(c.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if c.Metrics.Enabled {
		go metrics.StartMetricsHttpServer(c.Metrics)
	}

	registry, err := chainregistry.New(c.ChainRegistry)
	if err != nil {
		log.Error(err)
		return err
	}

	priceCache := localcache.NewPriceCache(newPriceOracle(c.PriceStorage), priceRefreshInterval)
	priceCache.Start(ctx)

	estimator := estimatefee.NewEstimator(registry, priceCache, c.FeeEstimator)
	storage := txstore.NewMemoryStorage(registry)

	engine, err := consensus.NewEngine(c.Consensus, consensus.NoopVerifier{})
	if err != nil {
		log.Error(err)
		return err
	}
	engine.Start(ctx)

	manager := dispatchman.New(c.Dispatcher, storage, loopbackDispatcher())

	controller, err := bridgectrl.NewBridgeController(c.BridgeController, registry, estimator, storage, engine, manager)
	if err != nil {
		log.Error(err)
		return err
	}
	for _, chain := range controller.GetSupportedChains() {
		log.Infof("serving chain %s (selector %d)", chain.Name, chain.Selector)
	}
	log.Infof("%s is running with %d validators (quorum %d)",
		appName, engine.ValidatorCount(), engine.Quorum())

	<-ctx.Done()
	log.Info("shutting down")
	return nil
}

func setupLog(c log.Config) {
	log.Init(c)
}

// newPriceOracle connects the redis price storage, falling back to an empty
// in-process snapshot when redis is not reachable.
func newPriceOracle(c redisstorage.Config) pricing.Oracle {
	store, err := redisstorage.NewPriceStorage(c)
	if err != nil {
		log.Warnf("price storage unavailable, using in-process pricing: %v", err)
		return pricing.NewStatic()
	}
	return store
}

// loopbackDispatcher acknowledges destination execution locally. Wiring a
// destination chain client in its place is a deployment concern.
func loopbackDispatcher() dispatchman.Dispatcher {
	return dispatchman.DispatcherFunc(func(ctx context.Context, msg *message.CCIPMessage) error {
		log.Debugf("dispatched message %s to chain %d", msg.ID, msg.DestinationChainSelector)
		return nil
	})
}
