package metrics

type Counter interface {
	Inc()
}

type Gauge interface {
	Set(v float64)
}

type Metrics struct {
	ControlSent         Counter
	AcksReceived        Counter
	AckRetries          Counter
	StrikesNotified     Counter
	ApeInsNotified      Counter
	CatalogSyncs        Counter
	CatalogSyncFailures Counter
	Resets              Counter

	ConnectionsOpen     Gauge
	SubscriptionsActive Gauge
	PairsTracked        Gauge
}

type noopCounter struct{}

func (noopCounter) Inc() {}

type noopGauge struct{}

func (noopGauge) Set(float64) {}

func NewNoop() *Metrics {
	n := noopCounter{}
	g := noopGauge{}
	return &Metrics{
		ControlSent:         n,
		AcksReceived:        n,
		AckRetries:          n,
		StrikesNotified:     n,
		ApeInsNotified:      n,
		CatalogSyncs:        n,
		CatalogSyncFailures: n,
		Resets:              n,
		ConnectionsOpen:     g,
		SubscriptionsActive: g,
		PairsTracked:        g,
	}
}
