package config

import "time"

type AppConfig struct {
	StreamName   string
	FPS          float64
	Width        int
	Height       int
	MonitorPort  int
	PollInterval time.Duration
	LogEvery     int
}
