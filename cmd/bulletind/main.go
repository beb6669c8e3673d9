package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bulletinlabs/bulletind/build"
	"github.com/bulletinlabs/bulletind/chain"
	"github.com/bulletinlabs/bulletind/config"
	"github.com/bulletinlabs/bulletind/hop"
	shttp "github.com/bulletinlabs/bulletind/http"
	"github.com/bulletinlabs/bulletind/persist/badger"
	"go.sia.tech/jape"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

var (
	dir = "."
	cfg = config.Config{
		Chain: config.Chain{
			RetentionPeriod:      100800, // ~2 weeks of 12s blocks
			AuthorizationPeriod:  100800,
			MaxTransactionSize:   chain.DefaultMaxTransactionSize,
			MaxBlockTransactions: 512,
			BlockInterval:        12 * time.Second,
		},
		Hop: config.Hop{
			ListenAddress:   ":8080",
			MaxPoolSize:     1 << 30,
			RetentionBlocks: 100,
			SweepInterval:   time.Minute,
		},
		API: config.API{
			Address: ":8081",
		},
		Log: config.Log{
			Level: "info",
		},
	}
)

// mustLoadConfig loads the config file.
func mustLoadConfig(dir string, log *zap.Logger) {
	configPath := filepath.Join(dir, "bulletind.yml")

	// If the config file doesn't exist, don't try to load it.
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return
	}

	f, err := os.Open(configPath)
	if err != nil {
		log.Fatal("failed to open config file", zap.Error(err))
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		log.Fatal("failed to decode config file", zap.Error(err))
	}
}

func main() {
	// configure console logging note: this is configured before anything else
	// to have consistent logging. File logging will be added after the cli
	// flags and config is parsed
	consoleCfg := zap.NewProductionEncoderConfig()
	consoleCfg.TimeKey = "" // prevent duplicate timestamps
	consoleCfg.EncodeTime = zapcore.RFC3339TimeEncoder
	consoleCfg.EncodeDuration = zapcore.StringDurationEncoder
	consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	consoleCfg.StacktraceKey = ""
	consoleCfg.CallerKey = ""
	consoleEncoder := zapcore.NewConsoleEncoder(consoleCfg)

	// only log info messages to console unless stdout logging is enabled
	consoleCore := zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stdout), zap.NewAtomicLevelAt(zap.InfoLevel))
	log := zap.New(consoleCore, zap.AddCaller())
	defer log.Sync()
	// redirect stdlib log to zap
	zap.RedirectStdLog(log.Named("stdlib"))

	flag.StringVar(&dir, "dir", dir, "directory to use for data")
	flag.Parse()

	mustLoadConfig(dir, log)

	var level zap.AtomicLevel
	switch cfg.Log.Level {
	case "debug":
		level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		log.Fatal("invalid log level", zap.String("level", cfg.Log.Level))
	}

	log = log.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stdout), level)
	}))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	db, err := badger.OpenDatabase(filepath.Join(dir, "bulletind.badgerdb"), log.Named("badger"))
	if err != nil {
		log.Fatal("failed to open badger database", zap.Error(err))
	}
	defer db.Close()

	pallet := chain.NewPallet(chain.Config{
		RetentionPeriod:      cfg.Chain.RetentionPeriod,
		AuthorizationPeriod:  cfg.Chain.AuthorizationPeriod,
		MaxTransactionSize:   cfg.Chain.MaxTransactionSize,
		MaxBlockTransactions: cfg.Chain.MaxBlockTransactions,
	}, db, chain.NewAccountProviders(), log.Named("pallet"))

	node, err := chain.NewNode(pallet, db, cfg.Chain.BlockInterval, log.Named("node"))
	if err != nil {
		log.Fatal("failed to start node", zap.Error(err))
	}
	defer node.Close()

	pool := hop.NewPool(cfg.Hop.MaxPoolSize, cfg.Hop.RetentionBlocks, log.Named("hop"))

	// retention is measured in block numbers; the sweep consults the
	// node's best block
	go func() {
		t := time.NewTicker(cfg.Hop.SweepInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				pool.Sweep(node.Height())
			}
		}
	}()

	apiListener, err := net.Listen("tcp", cfg.API.Address)
	if err != nil {
		log.Fatal("failed to listen", zap.Error(err))
	}
	defer apiListener.Close()

	hopListener, err := net.Listen("tcp", cfg.Hop.ListenAddress)
	if err != nil {
		log.Fatal("failed to listen", zap.Error(err))
	}
	defer hopListener.Close()

	apiServer := &http.Server{
		Handler: jape.BasicAuth(cfg.API.Password)(shttp.NewAPIHandler(node, log.Named("api"))),
	}
	defer apiServer.Close()

	hopServer := &http.Server{
		Handler: shttp.NewHopHandler(pool, node, hop.AllowAll{}, log.Named("hopapi")),
	}
	defer hopServer.Close()

	go func() {
		if err := apiServer.Serve(apiListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("failed to serve api", zap.Error(err))
		}
	}()

	go func() {
		if err := hopServer.Serve(hopListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("failed to serve hop api", zap.Error(err))
		}
	}()

	log.Info("bulletind started",
		zap.Uint64("height", node.Height()),
		zap.String("apiAddress", apiListener.Addr().String()),
		zap.String("hopAddress", hopListener.Addr().String()),
		zap.String("version", build.Version()),
		zap.String("revision", build.Commit()),
		zap.Time("buildTime", build.Time()))

	<-ctx.Done()
}
