package logging

import (
	"context"
	"time"

	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/correlation"
	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/models"
)

// Pipeline is the ingestion facade business code logs through. Every record
// is dual-written: synchronously to the rotating local files and
// asynchronously to the remote store, each behind its own level gate.
//
// No method raises and no method blocks beyond the local file append.
type Pipeline struct {
	source string
	local  *LocalWriter
	remote *RemoteWriter
}

func NewPipeline(source string, local *LocalWriter, remote *RemoteWriter) *Pipeline {
	if source == "" {
		source = "portal"
	}
	return &Pipeline{source: source, local: local, remote: remote}
}

// Log ingests one record into family. Missing fields are default-filled
// rather than rejected: CreatedAt is stamped server-side, the level is
// normalized (unknown spellings become INFO), and correlation labels are
// copied from the ambient request context when the caller left them empty.
func (p *Pipeline) Log(ctx context.Context, rec models.Record, family models.Family) {
	if !family.Valid() {
		family = models.FamilyApplication
	}
	rec = p.prepare(ctx, rec, family)
	p.local.Write(rec, family)
	p.remote.Write(rec, family)
}

func (p *Pipeline) prepare(ctx context.Context, rec models.Record, family models.Family) models.Record {
	if rec.Source == "" {
		rec.Source = p.source
	}
	rec.Level = Normalize(rec.Level)
	rec.CreatedAt = time.Now().UTC()

	if rc := correlation.FromContext(ctx); rc != nil {
		if rec.TraceID == "" {
			rec.TraceID = rc.TraceID
		}
		if rec.RequestID == "" {
			rec.RequestID = rc.RequestID
		}
		if rec.UserID == "" {
			rec.UserID = rc.UserID
		}
		if family == models.FamilyAudit {
			if rec.IPAddress == "" {
				rec.IPAddress = rc.IPAddress
			}
			if rec.UserAgent == "" {
				rec.UserAgent = rc.UserAgent
			}
		}
		if family == models.FamilyApplication {
			if rec.RequestMethod == "" {
				rec.RequestMethod = rc.RequestMethod
			}
			if rec.RequestPath == "" {
				rec.RequestPath = rc.RequestPath
			}
		}
	}

	if family == models.FamilyPerformance {
		if rec.DurationMS != nil && rec.ThresholdMS > 0 {
			rec.IsSlow = *rec.DurationMS > rec.ThresholdMS
		}
		if rec.MetricUnit == "" {
			rec.MetricUnit = "ms"
		}
	}
	return rec
}

// Application logs a routine application event.
func (p *Pipeline) Application(ctx context.Context, level, message string, extra map[string]interface{}) {
	p.Log(ctx, models.Record{Level: level, Message: message, ExtraData: extra}, models.FamilyApplication)
}

// Performance logs one measurement; is_slow is derived from the threshold.
func (p *Pipeline) Performance(ctx context.Context, component, metric string, durationMS, thresholdMS float64, extra map[string]interface{}) {
	level := LevelInfo
	if thresholdMS > 0 && durationMS > thresholdMS {
		level = LevelWarning
	}
	p.Log(ctx, models.Record{
		Level:         level,
		Message:       metric,
		ComponentName: component,
		MetricName:    metric,
		MetricValue:   durationMS,
		ThresholdMS:   thresholdMS,
		DurationMS:    &durationMS,
		ExtraData:     extra,
	}, models.FamilyPerformance)
}

// System logs a pipeline-internal or process-level event. System records
// take the immediate remote path and share the application file locally.
func (p *Pipeline) System(ctx context.Context, level, message string, extra map[string]interface{}) {
	p.Log(ctx, models.Record{Level: level, Message: message, ExtraData: extra}, models.FamilySystem)
}

// Close stops the remote writer (draining its queues) and releases the
// local files. Local Close is a flush-free no-op by construction.
func (p *Pipeline) Close() {
	p.remote.Stop()
	p.local.Close()
}

// Remote exposes the remote writer for stats reporting.
func (p *Pipeline) Remote() *RemoteWriter { return p.remote }
