// Game time service

package main

import (
	"bytes"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	evbus "github.com/asaskevich/EventBus"
	"github.com/jonboulle/clockwork"
	"github.com/mmcloughlin/profile"
	"github.com/pelletier/go-toml/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"example.com/game-time/base/gametime"
	"example.com/game-time/benchmark"
	"example.com/game-time/core/engine"
	"example.com/game-time/core/event"
	"example.com/game-time/core/playtime"
	"example.com/game-time/core/timezone"
	"example.com/game-time/driver/store"
)

type worldConfig struct {
	Preset string  `toml:"preset,omitempty"`
	Offset int64   `toml:"offset,omitempty"`
	Speed  float64 `toml:"speed,omitempty"`
}

type svcConfig struct {
	Enabled                 bool                   `toml:"enabled,omitempty"`
	TickIntervalSeconds     int64                  `toml:"tick_interval_seconds,omitempty"`
	DefaultTimeSpeed        float64                `toml:"default_time_speed,omitempty"`
	StartDay                int                    `toml:"start_day,omitempty"`
	StartHour               int                    `toml:"start_hour,omitempty"`
	StartMinute             int                    `toml:"start_minute,omitempty"`
	DataFile                string                 `toml:"data_file,omitempty"`
	AutoSaveIntervalMinutes int64                  `toml:"auto_save_interval_minutes,omitempty"`
	MetricsAddr             string                 `toml:"metrics_address,omitempty"`
	Worlds                  map[string]worldConfig `toml:"worlds,omitempty"`
}

var (
	log *zap.Logger
)

func initLogger(verbose bool) {
	c := zap.NewDevelopmentConfig()
	c.DisableStacktrace = true
	c.EncoderConfig.EncodeCaller = func(
		caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
		p := caller.TrimmedPath()
		if len(p) > 30 {
			p = "..." + p[len(p)-27:]
		}
		enc.AppendString(fmt.Sprintf("%30s", p))
	}
	if !verbose {
		c.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	var err error
	log, err = c.Build()
	if err != nil {
		panic(err)
	}
}

func runMonitor(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	err := http.ListenAndServe(addr, mux)
	log.Fatal("failed to serve metrics", zap.Error(err))
}

func loadConfig(configFile string) svcConfig {
	raw, err := os.ReadFile(configFile)
	if err != nil {
		log.Fatal("failed to load configuration", zap.Error(err))
	}
	cfg := svcConfig{
		Enabled:                 true,
		DefaultTimeSpeed:        1.0,
		StartDay:                -1,
		StartHour:               -1,
		StartMinute:             -1,
		DataFile:                "timedata.dat",
		AutoSaveIntervalMinutes: 30,
		MetricsAddr:             "127.0.0.1:8080",
	}
	err = toml.NewDecoder(bytes.NewReader(raw)).DisallowUnknownFields().Decode(&cfg)
	if err != nil {
		log.Fatal("failed to decode configuration", zap.Error(err))
	}
	return cfg
}

func configureWorlds(cfg svcConfig, tzs *timezone.Registry) {
	for world, wc := range cfg.Worlds {
		if wc.Preset != "" {
			p, ok := timezone.PresetByName(wc.Preset)
			if !ok {
				log.Fatal("unknown timezone preset",
					zap.String("world", world), zap.String("preset", wc.Preset))
			}
			tzs.Apply(world, p)
			log.Info("world timezone preset applied",
				zap.String("world", world), zap.String("preset", wc.Preset))
			continue
		}
		tzs.SetOffset(world, wc.Offset)
		if wc.Speed != 0 {
			err := tzs.SetSpeed(world, wc.Speed)
			if err != nil {
				log.Fatal("invalid world time speed",
					zap.String("world", world), zap.Error(err))
			}
		}
		log.Info("world timezone configured",
			zap.String("world", world),
			zap.Int64("offset", wc.Offset),
			zap.Float64("speed", wc.Speed),
		)
	}
}

// subscribeConsumers attaches the in-process consumers a game server
// typically hangs off the clock: boundary logging hooks standing in
// for daily-reset style logic.
func subscribeConsumers(bus evbus.Bus) {
	err := bus.Subscribe(event.Topic(event.KindDayChanged), func(e event.DayChanged) {
		log.Info("day changed", zap.Int("day", e.Day))
	})
	if err != nil {
		log.Fatal("failed to subscribe to day events", zap.Error(err))
	}
	err = bus.Subscribe(event.Topic(event.KindWeekChanged), func(e event.WeekChanged) {
		log.Info("week changed", zap.Int("week", e.Week), zap.Int("first_day", e.FirstDay))
	})
	if err != nil {
		log.Fatal("failed to subscribe to week events", zap.Error(err))
	}
	err = bus.Subscribe(event.Topic(event.KindMonthChanged), func(e event.MonthChanged) {
		log.Info("month changed", zap.Int("month", e.Month), zap.Int("year", e.Year))
	})
	if err != nil {
		log.Fatal("failed to subscribe to month events", zap.Error(err))
	}
	err = bus.Subscribe(event.Topic(event.KindTimeOfDayChanged), func(e event.TimeOfDayChanged) {
		log.Info("time of day changed",
			zap.Stringer("marker", e.Marker), zap.Int("day", e.Day))
	})
	if err != nil {
		log.Fatal("failed to subscribe to time-of-day events", zap.Error(err))
	}
}

func runServer(configFile string) {
	cfg := loadConfig(configFile)
	if !cfg.Enabled {
		log.Info("time service disabled in configuration")
		return
	}

	tickInterval := engine.DefaultTickInterval
	if cfg.TickIntervalSeconds > 0 {
		tickInterval = time.Duration(cfg.TickIntervalSeconds) * time.Second
	}

	bus := evbus.New()
	subscribeConsumers(bus)

	tzs := timezone.NewRegistry()
	configureWorlds(cfg, tzs)

	var e *engine.Engine
	e = engine.New(engine.Options{
		TickInterval:     tickInterval,
		Speed:            cfg.DefaultTimeSpeed,
		Log:              log,
		Sink:             event.NewBusSink(bus),
		Store:            &store.File{Path: cfg.DataFile},
		AutoSaveInterval: time.Duration(cfg.AutoSaveIntervalMinutes) * time.Minute,
		Refresh: func() {
			total := e.TotalMinutes()
			for _, world := range tzs.Worlds() {
				log.Debug("visual time",
					zap.String("world", world),
					zap.Int64("ticks", tzs.VisualTicks(world, total)),
					zap.String("time", tzs.WorldFormattedTime(world, total)),
				)
			}
		},
	})
	e.Start()

	if cfg.StartDay > 0 && cfg.StartHour >= 0 && cfg.StartMinute >= 0 {
		err := e.SetTime(cfg.StartDay, cfg.StartHour, cfg.StartMinute)
		if err != nil {
			log.Fatal("invalid start time in configuration", zap.Error(err))
		}
	}

	sessions := playtime.NewTracker(clockwork.NewRealClock(), e.TotalMinutes)
	_ = sessions // joined/quit by the connection layer

	go runMonitor(cfg.MetricsAddr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	sessions.FlushAll()
	e.Stop()
}

func runDump(dataFile string) {
	f := &store.File{Path: dataFile}
	total, recs, err := f.Load()
	if err != nil {
		log.Fatal("failed to load clock state", zap.Error(err))
	}
	fmt.Printf("time: %s (total minutes: %d)\n", gametime.Format(total), total)
	snap := gametime.At(total)
	fmt.Printf("day %d, week %d, month %d, year %d, day of week %d\n",
		snap.Day, snap.Week, snap.Month, snap.Year, snap.DayOfWeek)
	fmt.Printf("wall-clock cooldowns: %d\n", len(recs))
	for _, r := range recs {
		start := time.UnixMilli(r.StartUnixMillis).Format(time.RFC3339)
		dur := time.Duration(r.DurationMillis) * time.Millisecond
		fmt.Printf("  %s: started %s, duration %v\n", r.ID, start, dur)
	}
}

func exitWithUsage() {
	fmt.Println("usage:")
	fmt.Println("  gameclock server -config <file> [-verbose] [-profile]")
	fmt.Println("  gameclock dump -file <file>")
	fmt.Println("  gameclock benchmark")
	os.Exit(1)
}

func main() {
	var (
		verbose    bool
		prof       bool
		configFile string
		dataFile   string
	)

	serverFlags := flag.NewFlagSet("server", flag.ExitOnError)
	serverFlags.BoolVar(&verbose, "verbose", false, "verbose logging")
	serverFlags.BoolVar(&prof, "profile", false, "enable CPU profiling")
	serverFlags.StringVar(&configFile, "config", "", "configuration file")

	dumpFlags := flag.NewFlagSet("dump", flag.ExitOnError)
	dumpFlags.BoolVar(&verbose, "verbose", false, "verbose logging")
	dumpFlags.StringVar(&dataFile, "file", "timedata.dat", "state file")

	benchmarkFlags := flag.NewFlagSet("benchmark", flag.ExitOnError)

	if len(os.Args) < 2 {
		exitWithUsage()
	}

	switch os.Args[1] {
	case serverFlags.Name():
		err := serverFlags.Parse(os.Args[2:])
		if err != nil || serverFlags.NArg() != 0 {
			exitWithUsage()
		}
		if configFile == "" {
			exitWithUsage()
		}
		initLogger(verbose)
		if prof {
			defer profile.Start(profile.CPUProfile).Stop()
		}
		runServer(configFile)
	case dumpFlags.Name():
		err := dumpFlags.Parse(os.Args[2:])
		if err != nil || dumpFlags.NArg() != 0 {
			exitWithUsage()
		}
		initLogger(verbose)
		runDump(dataFile)
	case benchmarkFlags.Name():
		err := benchmarkFlags.Parse(os.Args[2:])
		if err != nil || benchmarkFlags.NArg() != 0 {
			exitWithUsage()
		}
		benchmark.RunQueryBenchmark()
	default:
		exitWithUsage()
	}
}
