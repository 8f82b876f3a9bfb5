package internal

import "time"

// Config is the relay server configuration, shared by the server and the
// read-only viewer.
type Config struct {
	BadgerFilepath  string        `env:"BADGER_FILEPATH,required=true"`
	LogLevel        string        `env:"LOG_LEVEL,required=true"`
	Host            string        `env:"HOST,default=localhost"`
	Port            int           `env:"PORT,default=8080"`
	HistoryLimit    int           `env:"HISTORY_LIMIT,default=100"`
	MailboxSize     int           `env:"MAILBOX_SIZE,default=256"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT,default=5s"`
	ReadLimit       int64         `env:"READ_LIMIT,default=4096"`
	RoomIdleTimeout time.Duration `env:"ROOM_IDLE_TIMEOUT,default=5m"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	MetricInterval  time.Duration `env:"METRIC_INTERVAL,default=5s"`
	DebugPort       int           `env:"DEBUG_PORT,default=0"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}
