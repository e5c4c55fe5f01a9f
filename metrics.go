package diskdrv

import (
	"sync/atomic"
	"time"

	"github.com/ehrlich-b/go-diskdrv/internal/interfaces"
)

// LatencyBuckets defines the service latency histogram buckets in
// nanoseconds. Buckets cover from 1us to 10s with logarithmic spacing.
var LatencyBuckets = []uint64{
	1_000,          // 1us
	10_000,         // 10us
	100_000,        // 100us
	1_000_000,      // 1ms
	10_000_000,     // 10ms
	100_000_000,    // 100ms
	1_000_000_000,  // 1s
	10_000_000_000, // 10s
}

const numLatencyBuckets = 8

// Metrics tracks operational statistics for a drive
type Metrics struct {
	// Transfer counters
	ReadOps    atomic.Uint64
	WriteOps   atomic.Uint64
	ReadBytes  atomic.Uint64
	WriteBytes atomic.Uint64

	// Requests refused by validation
	Rejected atomic.Uint64

	// Head movement
	Seeks          atomic.Uint64
	SeekMisses     atomic.Uint64
	SeekDistance   atomic.Uint64 // cumulative cylinders travelled
	Recalibrations atomic.Uint64

	// Motor
	MotorStarts atomic.Uint64
	MotorStops  atomic.Uint64
	IdleCycles  atomic.Uint64

	// Request ids that did not advance the sequence
	OutOfSequence atomic.Uint64

	// Queue statistics
	QueueDepthTotal atomic.Uint64 // Cumulative queue depth samples
	QueueDepthCount atomic.Uint64 // Number of queue depth measurements
	MaxQueueDepth   atomic.Uint32 // Maximum observed queue depth

	// Performance tracking
	TotalLatencyNs atomic.Uint64
	OpCount        atomic.Uint64

	// Latency histogram buckets (cumulative)
	// Each bucket[i] contains the count of transfers with latency <= LatencyBuckets[i]
	LatencyBuckets [numLatencyBuckets]atomic.Uint64

	// Driver lifecycle
	StartTime atomic.Int64 // UnixNano
	StopTime  atomic.Int64 // UnixNano
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordTransfer records a completed read or write
func (m *Metrics) RecordTransfer(write bool, bytes uint64, latencyNs uint64) {
	if write {
		m.WriteOps.Add(1)
		m.WriteBytes.Add(bytes)
	} else {
		m.ReadOps.Add(1)
		m.ReadBytes.Add(bytes)
	}
	m.recordLatency(latencyNs)
}

// RecordReject records a request refused by validation
func (m *Metrics) RecordReject() {
	m.Rejected.Add(1)
}

// RecordSeek records one seek command
func (m *Metrics) RecordSeek(distance uint32, missed bool) {
	m.Seeks.Add(1)
	m.SeekDistance.Add(uint64(distance))
	if missed {
		m.SeekMisses.Add(1)
	}
}

// RecordQueueDepth records current queue depth for statistics
func (m *Metrics) RecordQueueDepth(depth uint32) {
	m.QueueDepthTotal.Add(uint64(depth))
	m.QueueDepthCount.Add(1)

	for {
		current := m.MaxQueueDepth.Load()
		if depth <= current {
			break
		}
		if m.MaxQueueDepth.CompareAndSwap(current, depth) {
			break
		}
	}
}

func (m *Metrics) recordLatency(latencyNs uint64) {
	m.TotalLatencyNs.Add(latencyNs)
	m.OpCount.Add(1)

	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyBuckets[i].Add(1)
		}
	}
}

// Stop marks the driver as stopped
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time copy of Metrics with derived values
type MetricsSnapshot struct {
	ReadOps    uint64
	WriteOps   uint64
	ReadBytes  uint64
	WriteBytes uint64
	Rejected   uint64

	Seeks          uint64
	SeekMisses     uint64
	AvgSeekLength  float64
	Recalibrations uint64

	MotorStarts   uint64
	MotorStops    uint64
	IdleCycles    uint64
	OutOfSequence uint64

	AvgQueueDepth float64
	MaxQueueDepth uint32

	AvgLatencyNs uint64
	UptimeNs     uint64

	// Latency percentiles (in nanoseconds)
	LatencyP50Ns  uint64
	LatencyP99Ns  uint64
	LatencyP999Ns uint64

	LatencyHistogram [numLatencyBuckets]uint64

	TotalOps   uint64
	TotalBytes uint64
	RejectRate float64 // Percentage of requests refused
}

// Snapshot creates a point-in-time snapshot of metrics
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		ReadOps:        m.ReadOps.Load(),
		WriteOps:       m.WriteOps.Load(),
		ReadBytes:      m.ReadBytes.Load(),
		WriteBytes:     m.WriteBytes.Load(),
		Rejected:       m.Rejected.Load(),
		Seeks:          m.Seeks.Load(),
		SeekMisses:     m.SeekMisses.Load(),
		Recalibrations: m.Recalibrations.Load(),
		MotorStarts:    m.MotorStarts.Load(),
		MotorStops:     m.MotorStops.Load(),
		IdleCycles:     m.IdleCycles.Load(),
		OutOfSequence:  m.OutOfSequence.Load(),
		MaxQueueDepth:  m.MaxQueueDepth.Load(),
	}

	snap.TotalOps = snap.ReadOps + snap.WriteOps
	snap.TotalBytes = snap.ReadBytes + snap.WriteBytes

	if snap.Seeks > 0 {
		snap.AvgSeekLength = float64(m.SeekDistance.Load()) / float64(snap.Seeks)
	}

	queueDepthTotal := m.QueueDepthTotal.Load()
	queueDepthCount := m.QueueDepthCount.Load()
	if queueDepthCount > 0 {
		snap.AvgQueueDepth = float64(queueDepthTotal) / float64(queueDepthCount)
	}

	totalLatencyNs := m.TotalLatencyNs.Load()
	opCount := m.OpCount.Load()
	if opCount > 0 {
		snap.AvgLatencyNs = totalLatencyNs / opCount
	}

	startTime := m.StartTime.Load()
	stopTime := m.StopTime.Load()
	if stopTime > 0 {
		snap.UptimeNs = uint64(stopTime - startTime)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - startTime)
	}

	if handled := snap.TotalOps + snap.Rejected; handled > 0 {
		snap.RejectRate = float64(snap.Rejected) / float64(handled) * 100.0
	}

	for i := 0; i < numLatencyBuckets; i++ {
		snap.LatencyHistogram[i] = m.LatencyBuckets[i].Load()
	}

	if opCount > 0 {
		snap.LatencyP50Ns = m.calculatePercentile(0.50)
		snap.LatencyP99Ns = m.calculatePercentile(0.99)
		snap.LatencyP999Ns = m.calculatePercentile(0.999)
	}

	return snap
}

// calculatePercentile estimates the latency at the given percentile (0.0-1.0)
// using linear interpolation between histogram buckets.
func (m *Metrics) calculatePercentile(percentile float64) uint64 {
	totalOps := m.OpCount.Load()
	if totalOps == 0 {
		return 0
	}

	targetCount := uint64(float64(totalOps) * percentile)

	prevBucket := uint64(0)
	for i, bucket := range LatencyBuckets {
		bucketCount := m.LatencyBuckets[i].Load()
		if bucketCount >= targetCount {
			prevCount := uint64(0)
			if i > 0 {
				prevCount = m.LatencyBuckets[i-1].Load()
			}
			if bucketCount == prevCount {
				return bucket
			}
			fraction := float64(targetCount-prevCount) / float64(bucketCount-prevCount)
			return prevBucket + uint64(fraction*float64(bucket-prevBucket))
		}
		prevBucket = bucket
	}

	return LatencyBuckets[numLatencyBuckets-1]
}

// Reset resets all metrics counters (useful for testing)
func (m *Metrics) Reset() {
	for _, c := range []*atomic.Uint64{
		&m.ReadOps, &m.WriteOps, &m.ReadBytes, &m.WriteBytes, &m.Rejected,
		&m.Seeks, &m.SeekMisses, &m.SeekDistance, &m.Recalibrations,
		&m.MotorStarts, &m.MotorStops, &m.IdleCycles, &m.OutOfSequence,
		&m.QueueDepthTotal, &m.QueueDepthCount, &m.TotalLatencyNs, &m.OpCount,
	} {
		c.Store(0)
	}
	m.MaxQueueDepth.Store(0)
	for i := 0; i < numLatencyBuckets; i++ {
		m.LatencyBuckets[i].Store(0)
	}
	m.StartTime.Store(time.Now().UnixNano())
	m.StopTime.Store(0)
}

// Observer allows pluggable metrics collection. It is called from the
// control loop and must not block.
type Observer = interfaces.Observer

// NoOpObserver is a no-op implementation of Observer
type NoOpObserver = interfaces.NoOpObserver

// MetricsObserver implements Observer using the built-in Metrics
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver creates an observer that records to the given metrics
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveTransfer(write bool, bytes uint64, latencyNs uint64) {
	o.metrics.RecordTransfer(write, bytes, latencyNs)
}

func (o *MetricsObserver) ObserveReject(int) {
	o.metrics.RecordReject()
}

func (o *MetricsObserver) ObserveSeek(distance uint32, missed bool) {
	o.metrics.RecordSeek(distance, missed)
}

func (o *MetricsObserver) ObserveRecalibrate() {
	o.metrics.Recalibrations.Add(1)
}

func (o *MetricsObserver) ObserveMotor(on bool) {
	if on {
		o.metrics.MotorStarts.Add(1)
	} else {
		o.metrics.MotorStops.Add(1)
	}
}

func (o *MetricsObserver) ObserveIdle() {
	o.metrics.IdleCycles.Add(1)
}

func (o *MetricsObserver) ObserveQueueDepth(depth uint32) {
	o.metrics.RecordQueueDepth(depth)
}

func (o *MetricsObserver) ObserveOutOfSequence() {
	o.metrics.OutOfSequence.Add(1)
}

// multiObserver fans every event out to several observers
type multiObserver []Observer

func (m multiObserver) ObserveTransfer(write bool, bytes uint64, latencyNs uint64) {
	for _, o := range m {
		o.ObserveTransfer(write, bytes, latencyNs)
	}
}

func (m multiObserver) ObserveReject(code int) {
	for _, o := range m {
		o.ObserveReject(code)
	}
}

func (m multiObserver) ObserveSeek(distance uint32, missed bool) {
	for _, o := range m {
		o.ObserveSeek(distance, missed)
	}
}

func (m multiObserver) ObserveRecalibrate() {
	for _, o := range m {
		o.ObserveRecalibrate()
	}
}

func (m multiObserver) ObserveMotor(on bool) {
	for _, o := range m {
		o.ObserveMotor(on)
	}
}

func (m multiObserver) ObserveIdle() {
	for _, o := range m {
		o.ObserveIdle()
	}
}

func (m multiObserver) ObserveQueueDepth(depth uint32) {
	for _, o := range m {
		o.ObserveQueueDepth(depth)
	}
}

func (m multiObserver) ObserveOutOfSequence() {
	for _, o := range m {
		o.ObserveOutOfSequence()
	}
}

// Compile-time interface check
var _ Observer = (*MetricsObserver)(nil)
var _ Observer = multiObserver(nil)
