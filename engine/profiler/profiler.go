package profiler

import (
	"log/slog"
	"runtime"
	"time"
)

// Profiler tracks frame rate and memory statistics of the render loop and reports them
// through a structured logger once per interval.
type Profiler struct {
	logger         *slog.Logger
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	last Stats
}

// Stats is a single profiler report.
type Stats struct {
	FPS           float64
	HeapMB        float64
	AllocRateMBps float64
	NumGC         uint32
	LastPause     time.Duration
	MaxPause      time.Duration
	SysMB         float64
}

// NewProfiler creates a Profiler that reports every second to the given logger.
// A nil logger falls back to slog.Default().
//
// Parameters:
//   - logger: the destination for frame statistics
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(logger *slog.Logger) *Profiler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Profiler{
		logger:         logger,
		lastTime:       time.Now(),
		updateInterval: time.Second,
	}
}

// SetInterval changes how often statistics are reported. Non-positive values are ignored.
func (p *Profiler) SetInterval(d time.Duration) {
	if d > 0 {
		p.updateInterval = d
	}
}

// Last returns the most recent report, or the zero value before the first interval elapses.
func (p *Profiler) Last() Stats {
	return p.last
}

// Tick should be called once per frame. When the update interval has elapsed it samples
// runtime memory statistics and logs them at debug level.
//
// Returns:
//   - bool: true if stats were reported this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	now := time.Now()
	elapsed := now.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	runtime.ReadMemStats(&p.memStats)

	// PauseNs is a circular buffer of the last 256 GC pauses.
	gcCount := p.memStats.NumGC
	var lastPause, maxPause uint64
	if gcCount > 0 {
		lastPause = p.memStats.PauseNs[(gcCount-1)%256]
		start := p.lastGCCount
		if gcCount-start > 256 {
			start = gcCount - 256
		}
		for i := start; i < gcCount; i++ {
			maxPause = max(maxPause, p.memStats.PauseNs[i%256])
		}
	}

	const mb = 1024 * 1024
	p.last = Stats{
		FPS:           float64(p.frameCount) / elapsed.Seconds(),
		HeapMB:        float64(p.memStats.Alloc) / mb,
		AllocRateMBps: float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / mb / elapsed.Seconds(),
		NumGC:         gcCount,
		LastPause:     time.Duration(lastPause),
		MaxPause:      time.Duration(maxPause),
		SysMB:         float64(p.memStats.Sys) / mb,
	}

	p.logger.Debug("frame stats",
		"fps", p.last.FPS,
		"heap_mb", p.last.HeapMB,
		"alloc_mb_s", p.last.AllocRateMBps,
		"gc", p.last.NumGC,
		"gc_last", p.last.LastPause,
		"gc_max", p.last.MaxPause,
		"sys_mb", p.last.SysMB,
	)

	p.frameCount = 0
	p.lastTime = now
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}
