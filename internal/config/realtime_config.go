package config

import "time"

type RealtimeConfig interface {
	GetWSURL() string
	GetReconnectDelay() time.Duration
}

type Realtime struct{}

var _ RealtimeConfig = Realtime{}

func (Realtime) GetWSURL() string {
	return GetEnv(wsURLVar, "ws://localhost:8000/ws")
}

func (Realtime) GetReconnectDelay() time.Duration {
	return 5 * time.Second
}
