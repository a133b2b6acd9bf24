// Package state defines shared program state.
package state

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/zap"

	"sassgo/config"
)

type envKey struct{}

// LocalEnv keeps everything program needs in a single place.
type LocalEnv struct {
	Cfg *config.Config
	Rpt *config.Report
	Log *zap.Logger
	// Metrics collects dispatcher metrics, dumped into debug report on exit.
	Metrics *prometheus.Registry

	start         time.Time
	restoreStdLog func()
}

func newLocalEnv() *LocalEnv {
	return &LocalEnv{
		start:   time.Now(),
		Metrics: prometheus.NewRegistry(),
	}
}

func EnvFromContext(ctx context.Context) *LocalEnv {
	if env, ok := ctx.Value(envKey{}).(*LocalEnv); ok {
		return env
	}
	// this should never happen
	panic("localenv not found in context")
}

func ContextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, newLocalEnv())
}

func (e *LocalEnv) Uptime() time.Duration {
	return time.Since(e.start)
}

func (e *LocalEnv) RedirectStdLog() {
	if e.Log == nil {
		return
	}
	e.restoreStdLog = zap.RedirectStdLog(e.Log)
}

func (e *LocalEnv) RestoreStdLog() {
	if e.Log != nil {
		_ = e.Log.Sync()
	}
	if e.restoreStdLog != nil {
		e.restoreStdLog()
	}
}

// ReportMetrics stores current metrics in text exposition format into debug
// report, if one was requested.
func (e *LocalEnv) ReportMetrics() error {
	if e.Rpt == nil || e.Metrics == nil {
		return nil
	}
	families, err := e.Metrics.Gather()
	if err != nil {
		return fmt.Errorf("unable to gather metrics: %w", err)
	}
	if len(families) == 0 {
		return nil
	}
	buf := new(bytes.Buffer)
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(buf, mf); err != nil {
			return fmt.Errorf("unable to format metrics: %w", err)
		}
	}
	e.Rpt.StoreData("metrics.txt", buf.Bytes())
	return nil
}
