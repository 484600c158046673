// Package diagnostics watches host resources and raises system alerts
// when usage crosses the configured limits.
package diagnostics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/tphakala/chargewatch-go/internal/alert"
	"github.com/tphakala/chargewatch-go/internal/conf"
	"github.com/tphakala/chargewatch-go/internal/datastore/entities"
	"github.com/tphakala/chargewatch-go/internal/logger"
	"github.com/tphakala/chargewatch-go/internal/throttle"
)

// AlertCreator raises system alerts.
type AlertCreator interface {
	Create(ctx context.Context, req alert.CreateRequest) (*entities.Alert, error)
}

// Usage is one point-in-time resource snapshot.
type Usage struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	DiskPercent   float64 `json:"disk_percent"`
}

// Prober reads resource usage. The default implementation uses gopsutil;
// tests substitute fixed values.
type Prober interface {
	Probe(ctx context.Context) (Usage, error)
}

type systemProber struct{}

func (systemProber) Probe(ctx context.Context) (Usage, error) {
	var usage Usage

	cpuPercents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return usage, fmt.Errorf("failed to read cpu usage: %w", err)
	}
	if len(cpuPercents) > 0 {
		usage.CPUPercent = cpuPercents[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return usage, fmt.Errorf("failed to read memory usage: %w", err)
	}
	usage.MemoryPercent = vm.UsedPercent

	du, err := disk.UsageWithContext(ctx, "/")
	if err != nil {
		return usage, fmt.Errorf("failed to read disk usage: %w", err)
	}
	usage.DiskPercent = du.UsedPercent

	return usage, nil
}

// Monitor samples host resources on an interval and escalates sustained
// limits through the alert service. Repeat alerts for the same metric are
// suppressed by the shared throttle.
type Monitor struct {
	prober   Prober
	alerts   AlertCreator
	throttle *throttle.Throttle
	settings conf.DiagnosticsSettings
	log      logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool

	lastMu sync.Mutex
	last   Usage
}

// NewMonitor creates a diagnostics monitor using the gopsutil prober.
func NewMonitor(alerts AlertCreator, th *throttle.Throttle, settings conf.DiagnosticsSettings, log logger.Logger) *Monitor {
	return newMonitor(systemProber{}, alerts, th, settings, log)
}

func newMonitor(prober Prober, alerts AlertCreator, th *throttle.Throttle, settings conf.DiagnosticsSettings, log logger.Logger) *Monitor {
	return &Monitor{
		prober:   prober,
		alerts:   alerts,
		throttle: th,
		settings: settings,
		log:      log,
	}
}

// Start launches the sampling loop. No-op when disabled or running.
func (m *Monitor) Start(ctx context.Context) {
	if !m.settings.Enabled {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.running = true
	go m.loop(loopCtx, m.done)
	m.log.Info("diagnostics monitor started")
}

// Stop cancels the loop and waits for it to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.cancel()
	m.running = false
	done := m.done
	m.mu.Unlock()
	<-done
}

// Last returns the most recent resource snapshot.
func (m *Monitor) Last() Usage {
	m.lastMu.Lock()
	defer m.lastMu.Unlock()
	return m.last
}

func (m *Monitor) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	interval := m.settings.Interval.Std()
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		m.check(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (m *Monitor) check(ctx context.Context) {
	usage, err := m.prober.Probe(ctx)
	if err != nil {
		if ctx.Err() == nil {
			m.log.Error("resource probe failed", logger.Error(err))
		}
		return
	}

	m.lastMu.Lock()
	m.last = usage
	m.lastMu.Unlock()

	m.escalate(ctx, "cpu", usage.CPUPercent, m.settings.CPUPercent)
	m.escalate(ctx, "memory", usage.MemoryPercent, m.settings.MemoryPercent)
	m.escalate(ctx, "disk", usage.DiskPercent, m.settings.DiskPercent)
}

func (m *Monitor) escalate(ctx context.Context, metric string, value, limit float64) {
	if limit <= 0 || value < limit {
		return
	}
	if !m.throttle.ShouldTrigger("system", metric) {
		return
	}

	_, err := m.alerts.Create(ctx, alert.CreateRequest{
		AlertType:  alert.TypeSystemError,
		Message:    fmt.Sprintf("%s usage %.1f%% exceeds limit %.1f%%", metric, value, limit),
		SourceType: "system",
		SourceID:   metric,
		Severity:   3,
		Details: map[string]any{
			"metric": metric,
			"value":  value,
			"limit":  limit,
		},
	})
	if err != nil {
		m.log.Error("failed to raise system alert",
			logger.String("metric", metric),
			logger.Error(err),
		)
	}
}
