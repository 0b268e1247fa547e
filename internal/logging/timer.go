package logging

import (
	"context"
	"time"
)

// StartTimer measures one operation and records it as a performance record
// when the returned stop function is called:
//
//	stop := pipeline.StartTimer("member-service", "member.lookup", 1000)
//	defer stop(ctx)
func (p *Pipeline) StartTimer(component, metric string, thresholdMS float64) func(ctx context.Context) {
	start := time.Now()
	return func(ctx context.Context) {
		elapsed := float64(time.Since(start).Microseconds()) / 1000.0
		p.Performance(ctx, component, metric, elapsed, thresholdMS, nil)
	}
}
