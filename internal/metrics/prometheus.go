package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promNamespace = "bn_strike_bot"

type promCounter struct {
	counter prometheus.Counter
}

func (p promCounter) Inc() {
	p.counter.Inc()
}

type promGauge struct {
	gauge prometheus.Gauge
}

func (p promGauge) Set(v float64) {
	p.gauge.Set(v)
}

type Prometheus struct {
	Metrics *Metrics

	registry     *prometheus.Registry
	controlSent  prometheus.Counter
	acks         prometheus.Counter
	ackRetries   prometheus.Counter
	strikes      prometheus.Counter
	apeIns       prometheus.Counter
	syncs        prometheus.Counter
	syncFailures prometheus.Counter
	resets       prometheus.Counter
	connections  prometheus.Gauge
	active       prometheus.Gauge
	pairs        prometheus.Gauge
}

func newCounter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      name,
		Help:      help,
	})
}

func newGauge(name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: promNamespace,
		Name:      name,
		Help:      help,
	})
}

func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry:     prometheus.NewRegistry(),
		controlSent:  newCounter("control_messages_sent_total", "Total number of subscribe and unsubscribe requests queued."),
		acks:         newCounter("acks_received_total", "Total number of control message acknowledgements."),
		ackRetries:   newCounter("ack_retries_total", "Total number of control messages re-sent after an ack timeout."),
		strikes:      newCounter("strikes_notified_total", "Total number of strike notifications."),
		apeIns:       newCounter("ape_ins_notified_total", "Total number of ape-in notifications."),
		syncs:        newCounter("catalog_syncs_total", "Total number of applied catalog syncs."),
		syncFailures: newCounter("catalog_sync_failures_total", "Total number of abandoned catalog fetch cycles."),
		resets:       newCounter("resets_total", "Total number of full state resets."),
		connections:  newGauge("connections_open", "Number of pooled stream connections."),
		active:       newGauge("subscriptions_active", "Number of acknowledged subscriptions across all connections."),
		pairs:        newGauge("pairs_tracked", "Number of trading pairs in the registry."),
	}
	p.registry.MustRegister(
		p.controlSent, p.acks, p.ackRetries, p.strikes, p.apeIns,
		p.syncs, p.syncFailures, p.resets, p.connections, p.active, p.pairs,
	)
	p.Metrics = &Metrics{
		ControlSent:         promCounter{p.controlSent},
		AcksReceived:        promCounter{p.acks},
		AckRetries:          promCounter{p.ackRetries},
		StrikesNotified:     promCounter{p.strikes},
		ApeInsNotified:      promCounter{p.apeIns},
		CatalogSyncs:        promCounter{p.syncs},
		CatalogSyncFailures: promCounter{p.syncFailures},
		Resets:              promCounter{p.resets},
		ConnectionsOpen:     promGauge{p.connections},
		SubscriptionsActive: promGauge{p.active},
		PairsTracked:        promGauge{p.pairs},
	}
	return p
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
