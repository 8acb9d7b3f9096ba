package utils

import (
	"database/sql"
	"lifetrack/src-server/model"
	"log/slog"
	"os"
	"sync"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

type AppState struct {
	Config *Config
	RawDB  *sql.DB
	BunDB  *bun.DB
	When   *when.Parser

	MetricChans        *Metric
	AppCloseSignalChan chan os.Signal

	gracefulShutdownChansMutex sync.Mutex
	gracefulShutdownChans      []chan struct{}
}

func NewAppState() *AppState {
	as := &AppState{}

	// env
	as.Config = NewConfig()

	// natural date parser for quick-add
	as.When = when.New(nil)
	as.When.Add(en.All...)
	as.When.Add(common.All...)

	// database
	var err error
	as.RawDB, err = sql.Open(sqliteshim.ShimName, as.Config.GetSqlitePath()+"?mode=rwc")
	if err != nil {
		slog.Error("cannot open sqlite database", "error", err)
		os.Exit(1)
	}
	as.RawDB.SetMaxIdleConns(8)

	as.BunDB = bun.NewDB(as.RawDB, sqlitedialect.New())
	as.BunDB.AddQueryHook(bundebug.NewQueryHook(
		bundebug.WithVerbose(true),
		bundebug.FromEnv("BUNDEBUG"),
	))

	if err := model.CreateSchema(as.BunDB); err != nil {
		slog.Error("can't create database schema", "error", err)
		os.Exit(1)
	}

	as.MetricChans = NewMetric()
	as.AppCloseSignalChan = make(chan os.Signal, 1)

	return as
}

// CreateGracefulShutdownChan hands out a channel that gets closed when the
// app is shutting down; long-running goroutines select on it to clean up.
func (as *AppState) CreateGracefulShutdownChan() *chan struct{} {
	as.gracefulShutdownChansMutex.Lock()
	defer as.gracefulShutdownChansMutex.Unlock()

	ch := make(chan struct{})
	as.gracefulShutdownChans = append(as.gracefulShutdownChans, ch)
	return &ch
}

func (as *AppState) GracefulShutdown() {
	as.gracefulShutdownChansMutex.Lock()
	defer as.gracefulShutdownChansMutex.Unlock()

	for _, ch := range as.gracefulShutdownChans {
		close(ch)
	}
	as.gracefulShutdownChans = nil

	if err := as.BunDB.Close(); err != nil {
		slog.Warn("can't close database", "error", err)
	}
}
