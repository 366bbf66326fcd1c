package recording

import (
	"time"

	"deletutor/internal/ports"
)

// SystemClock backs the elapsed counter with time.Ticker.
type SystemClock struct{}

func (SystemClock) NewTicker(d time.Duration) ports.Ticker {
	return systemTicker{ticker: time.NewTicker(d)}
}

type systemTicker struct {
	ticker *time.Ticker
}

func (t systemTicker) C() <-chan time.Time { return t.ticker.C }
func (t systemTicker) Stop()               { t.ticker.Stop() }
