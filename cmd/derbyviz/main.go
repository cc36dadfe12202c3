// Command derbyviz serves an animated replay of home run derby trajectories.
//
// It loads a dataset from a JSON export (-data) or the SQLite store (-db),
// drives the animation clock, and exposes frames over HTTP and a gRPC
// stream.
//
// Usage:
//
//	derbyviz -data hits.json [-watch] [-db derby.db] [-config config/derby.defaults.json]
//
// With both -data and -db the JSON export is loaded and written to the store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/banshee-data/derbyviz/internal/animation"
	"github.com/banshee-data/derbyviz/internal/api"
	"github.com/banshee-data/derbyviz/internal/config"
	"github.com/banshee-data/derbyviz/internal/dataset"
	"github.com/banshee-data/derbyviz/internal/db"
	"github.com/banshee-data/derbyviz/internal/scene"
	"github.com/banshee-data/derbyviz/internal/stream"
	"github.com/banshee-data/derbyviz/internal/version"
)

var (
	configPath  = flag.String("config", "", "Path to a derby config JSON file (default: "+config.DefaultConfigPath+" if present)")
	dataPath    = flag.String("data", "", "Dataset JSON export to load")
	dbPath      = flag.String("db", "", "SQLite store to load from, or to import -data into")
	listen      = flag.String("listen", "", "HTTP listen address (overrides listen_addr)")
	grpcListen  = flag.String("grpc", "", "gRPC listen address (overrides grpc_addr); \"off\" disables streaming")
	watch       = flag.Bool("watch", false, "Reload -data when the file changes")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println("derbyviz", version.String())
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := runOptions{
		ConfigPath: *configPath,
		DataPath:   *dataPath,
		DBPath:     *dbPath,
		Listen:     *listen,
		GRPC:       *grpcListen,
		Watch:      *watch,
	}
	if err := run(ctx, opts); err != nil {
		log.Fatalf("derbyviz: %v", err)
	}
}

type runOptions struct {
	ConfigPath string
	DataPath   string
	DBPath     string
	Listen     string
	GRPC       string
	Watch      bool
}

// loadConfig reads path, or the default config file when path is empty and
// the file exists, or falls back to built-in defaults.
func loadConfig(path string) (*config.DerbyConfig, error) {
	if path == "" {
		if _, err := os.Stat(config.DefaultConfigPath); err != nil {
			return config.DefaultDerbyConfig(), nil
		}
		path = config.DefaultConfigPath
	}
	return config.LoadDerbyConfig(path)
}

// loadDataset resolves the startup dataset from the JSON export and/or the
// store.
func loadDataset(ctx context.Context, dataPath string, store *db.DB) (*dataset.Dataset, error) {
	switch {
	case dataPath != "":
		d, report, err := dataset.LoadFile(dataPath)
		if err != nil {
			return nil, err
		}
		log.Printf("[derbyviz] loaded %s: %d hits, %d rejected", dataPath, report.Loaded, report.Rejected)
		if store != nil {
			if err := store.SaveDataset(ctx, d); err != nil {
				return nil, fmt.Errorf("failed to import into store: %w", err)
			}
		}
		return d, nil

	case store != nil:
		d, report, err := store.LoadDataset(ctx)
		if err != nil {
			return nil, err
		}
		log.Printf("[derbyviz] loaded %s: %d hits, %d rejected", store.Path(), report.Loaded, report.Rejected)
		return d, nil
	}
	return nil, errors.New("one of -data or -db is required")
}

func run(ctx context.Context, o runOptions) error {
	if o.Watch && o.DataPath == "" {
		return errors.New("-watch requires -data")
	}
	cfg, err := loadConfig(o.ConfigPath)
	if err != nil {
		return err
	}
	log.Printf("[derbyviz] starting %s", version.String())

	var store *db.DB
	if o.DBPath != "" {
		store, err = db.OpenDB(o.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	d, err := loadDataset(ctx, o.DataPath, store)
	if err != nil {
		return err
	}

	ctrl, err := scene.NewController(d, scene.OptionsFromConfig(cfg))
	if err != nil {
		return err
	}

	grpcAddr := cfg.GetGRPCAddr()
	if o.GRPC != "" {
		grpcAddr = o.GRPC
	}
	if grpcAddr != "off" {
		pub := stream.NewPublisher(stream.Config{ListenAddr: grpcAddr, MaxClients: cfg.GetMaxStreamClients()})
		if err := pub.Start(); err != nil {
			return err
		}
		defer pub.Stop()
		ctrl.OnFrame(pub.Publish)
	}

	var wg sync.WaitGroup
	defer wg.Wait()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	driver := animation.NewDriver(nil, cfg.GetFrameInterval(), ctrl)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = driver.Run(ctx)
	}()

	if o.Watch {
		w, err := dataset.NewWatcher(o.DataPath, cfg.GetWatchDebounce(), func(d *dataset.Dataset, _ dataset.LoadReport) {
			if err := ctrl.SetDataset(d); err != nil {
				log.Printf("[derbyviz] failed to swap dataset: %v", err)
				return
			}
			if store != nil {
				if err := store.SaveDataset(ctx, d); err != nil {
					log.Printf("[derbyviz] failed to save reloaded dataset: %v", err)
				}
			}
		})
		if err != nil {
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.Run(ctx)
		}()
	}

	addr := cfg.GetListenAddr()
	if o.Listen != "" {
		addr = o.Listen
	}
	return api.NewServer(ctrl, cfg, store).ListenAndServe(ctx, addr)
}
