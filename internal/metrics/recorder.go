package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/daryltucker/mqtt-bench/internal/model"
)

const namespace = "mqttbench"

// Recorder exposes benchmark progress as Prometheus metrics.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	Publishes     *prometheus.CounterVec
	Connects      *prometheus.CounterVec
	Disconnects   *prometheus.CounterVec
	PhaseDuration *prometheus.GaugeVec
	Throughput    prometheus.Gauge
	LossRate      prometheus.Gauge
	BytesSent     prometheus.Counter
	RunsCompleted prometheus.Counter
	RunsFailed    prometheus.Counter
	ActiveClients prometheus.Gauge
}

// NewRecorder creates the collectors and registers them on reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		Publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publishes_total",
			Help:      "Publish calls by result (success or failure code)",
		}, []string{"result"}),
		Connects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connects_total",
			Help:      "Connect attempts by result",
		}, []string{"result"}),
		Disconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "disconnects_total",
			Help:      "Disconnect attempts by result",
		}, []string{"result"}),
		PhaseDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Wall-clock duration of the last completed phase",
		}, []string{"phase"}),
		Throughput: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "throughput_messages_per_second",
			Help:      "Publish throughput of the last completed run",
		}),
		LossRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "loss_rate",
			Help:      "Fraction of failed publishes in the last completed run",
		}),
		BytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_sent_total",
			Help:      "Payload bytes published across all runs",
		}),
		RunsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_completed_total",
			Help:      "Benchmark runs that produced a report",
		}),
		RunsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_failed_total",
			Help:      "Benchmark runs aborted by a fatal error",
		}),
		ActiveClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected_clients",
			Help:      "Clients currently connected to the broker",
		}),
	}

	for _, c := range []prometheus.Collector{
		r.Publishes, r.Connects, r.Disconnects, r.PhaseDuration, r.Throughput,
		r.LossRate, r.BytesSent, r.RunsCompleted, r.RunsFailed, r.ActiveClients,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func resultLabel(o model.Outcome) string {
	if o.Succeeded {
		return "success"
	}
	if o.Code == model.FailureNone {
		return "failure"
	}
	return string(o.Code)
}

// ObservePublish counts one publish outcome.
func (r *Recorder) ObservePublish(o model.PublishOutcome) {
	if r == nil {
		return
	}
	r.Publishes.WithLabelValues(resultLabel(o)).Inc()
}

// ObserveConnect counts one connect outcome.
func (r *Recorder) ObserveConnect(o model.Outcome) {
	if r == nil {
		return
	}
	r.Connects.WithLabelValues(resultLabel(o)).Inc()
	if o.Succeeded {
		r.ActiveClients.Inc()
	}
}

// ObserveDisconnect counts one disconnect outcome. wasConnected tells whether
// the client counted towards ActiveClients.
func (r *Recorder) ObserveDisconnect(o model.Outcome, wasConnected bool) {
	if r == nil {
		return
	}
	r.Disconnects.WithLabelValues(resultLabel(o)).Inc()
	if wasConnected {
		r.ActiveClients.Dec()
	}
}

// ObservePhase records a phase duration.
func (r *Recorder) ObservePhase(t model.PhaseTiming) {
	if r == nil {
		return
	}
	r.PhaseDuration.WithLabelValues(string(t.Phase)).Set(t.Duration().Seconds())
}

// ObserveReport records the summary of a completed run.
func (r *Recorder) ObserveReport(rep model.Report) {
	if r == nil {
		return
	}
	r.Throughput.Set(rep.Throughput)
	r.LossRate.Set(rep.LossRate)
	r.BytesSent.Add(float64(rep.BytesSent))
	r.RunsCompleted.Inc()
}

// ObserveFailure counts a run aborted by a fatal error.
func (r *Recorder) ObserveFailure() {
	if r == nil {
		return
	}
	r.RunsFailed.Inc()
}
