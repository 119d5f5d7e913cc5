package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the capture and playback flows
type Metrics struct {
	// Recording session metrics
	RecordingsStarted   prometheus.Counter
	RecordingsCompleted prometheus.Counter
	RecordingsFailed    *prometheus.CounterVec
	RecordedBytes       prometheus.Counter
	RecordingDuration   prometheus.Histogram
	RecordingActive     prometheus.Gauge

	// Block read metrics
	BlockReads        *prometheus.CounterVec
	BlockReadDuration prometheus.Histogram

	// Storage metrics
	StorageFreeBytes prometheus.Gauge

	// Playback metrics
	TrialAttempts         *prometheus.CounterVec
	PatternWrites         *prometheus.CounterVec
	MelodyTransmissions   prometheus.Counter
	PlaybackBytes         prometheus.Counter
	PlaybackWriteFailures prometheus.Counter

	// Monitor API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
	EventClients        prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Recording session metrics
		RecordingsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sound_recordings_started_total",
			Help: "Total number of recording sessions started",
		}),
		RecordingsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sound_recordings_completed_total",
			Help: "Total number of recording sessions that reached their target length",
		}),
		RecordingsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sound_recordings_failed_total",
			Help: "Total number of recording sessions aborted, by reason",
		}, []string{"reason"}),
		RecordedBytes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sound_recorded_bytes_total",
			Help: "Total number of sample bytes appended to recordings",
		}),
		RecordingDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sound_recording_duration_seconds",
			Help:    "Audio length of completed recordings in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8), // 1s to ~2 minutes
		}),
		RecordingActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "sound_recording_active",
			Help: "Whether a recording session is currently running (0 or 1)",
		}),

		// Block read metrics
		BlockReads: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sound_block_reads_total",
			Help: "Total number of input block reads, by result",
		}, []string{"result"}),
		BlockReadDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sound_block_read_duration_seconds",
			Help:    "Time spent waiting for input blocks",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		}),

		// Storage metrics
		StorageFreeBytes: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "sound_storage_free_bytes",
			Help: "Free space on the recording mount",
		}),

		// Playback metrics
		TrialAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sound_trial_attempts_total",
			Help: "Total number of output channel trial attempts, by outcome",
		}, []string{"outcome"}),
		PatternWrites: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sound_pattern_writes_total",
			Help: "Total number of waveform table writes, by pattern",
		}, []string{"pattern"}),
		MelodyTransmissions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sound_melody_transmissions_total",
			Help: "Total number of complete melody transmissions",
		}),
		PlaybackBytes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sound_playback_bytes_total",
			Help: "Total number of sample bytes written to the output channel",
		}),
		PlaybackWriteFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sound_playback_write_failures_total",
			Help: "Total number of failed output channel writes",
		}),

		// Monitor API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sound_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sound_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sound_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
		EventClients: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "sound_event_clients",
			Help: "Current number of connected event feed clients",
		}),
	}
}

// RecordRecordingStarted marks a session as running
func (m *Metrics) RecordRecordingStarted() {
	m.RecordingsStarted.Inc()
	m.RecordingActive.Set(1)
}

// RecordRecordingCompleted records a session that reached its target length
func (m *Metrics) RecordRecordingCompleted(durationSeconds float64) {
	m.RecordingsCompleted.Inc()
	m.RecordingDuration.Observe(durationSeconds)
	m.RecordingActive.Set(0)
}

// RecordRecordingFailed records an aborted session
func (m *Metrics) RecordRecordingFailed(reason string) {
	m.RecordingsFailed.WithLabelValues(reason).Inc()
	m.RecordingActive.Set(0)
}

// RecordBlockRead records the outcome of one input block read
func (m *Metrics) RecordBlockRead(result string, durationSeconds float64) {
	m.BlockReads.WithLabelValues(result).Inc()
	m.BlockReadDuration.Observe(durationSeconds)
}

// RecordBlockAppended counts sample bytes appended to the recording
func (m *Metrics) RecordBlockAppended(bytes int) {
	m.RecordedBytes.Add(float64(bytes))
}

// SetStorageFreeBytes sets the free space gauge for the recording mount
func (m *Metrics) SetStorageFreeBytes(free uint64) {
	m.StorageFreeBytes.Set(float64(free))
}

// RecordTrialAttempt records one output channel trial attempt
func (m *Metrics) RecordTrialAttempt(outcome string) {
	m.TrialAttempts.WithLabelValues(outcome).Inc()
}

// RecordPatternWrite records one waveform table write
func (m *Metrics) RecordPatternWrite(pattern string, bytes int) {
	m.PatternWrites.WithLabelValues(pattern).Inc()
	m.PlaybackBytes.Add(float64(bytes))
}

// RecordMelodyTransmission records one complete melody transmission
func (m *Metrics) RecordMelodyTransmission(bytes int) {
	m.MelodyTransmissions.Inc()
	m.PlaybackBytes.Add(float64(bytes))
}

// RecordPlaybackWriteFailure increments the failed write counter
func (m *Metrics) RecordPlaybackWriteFailure() {
	m.PlaybackWriteFailures.Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}

// SetEventClients sets the connected event feed client gauge
func (m *Metrics) SetEventClients(count int) {
	m.EventClients.Set(float64(count))
}
