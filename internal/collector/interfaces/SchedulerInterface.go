package interfaces

import (
	"context"
	"time"
)

type SchedulerInterface interface {
	Init()
	Stop()
	// RunNow executes every collector job once, serialized with the scheduled runs.
	RunNow(ctx context.Context) error
	LastRun() time.Time
	Running() bool
}
