package scene

import "github.com/prometheus/client_golang/prometheus"

// Metrics Prometheus-метрики посадки. Методы безопасны для nil.
type Metrics struct {
	sitRequests     *prometheus.CounterVec
	stands          prometheus.Counter
	groundSits      prometheus.Counter
	physicsFailures *prometheus.CounterVec
	seated          prometheus.Gauge
}

// NewMetrics создаёт метрики и регистрирует их в reg (nil: глобальный регистр)
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		sitRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "seating",
			Name:      "sit_requests_total",
			Help:      "Запросы на посадку по результату.",
		}, []string{"status"}),
		stands: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seating",
			Name:      "stand_ups_total",
			Help:      "Число вставаний аватаров.",
		}),
		groundSits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seating",
			Name:      "ground_sits_total",
			Help:      "Число посадок на землю.",
		}),
		physicsFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "seating",
			Name:      "physics_failures_total",
			Help:      "Сбои создания/удаления физического тела аватара.",
		}, []string{"op"}),
		seated: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "seating",
			Name:      "seated_avatars",
			Help:      "Текущее число сидящих аватаров (на объектах и на земле).",
		}),
	}

	reg.MustRegister(m.sitRequests, m.stands, m.groundSits, m.physicsFailures, m.seated)
	return m
}

func (m *Metrics) sitRequest(status SitStatus) {
	if m == nil {
		return
	}
	m.sitRequests.WithLabelValues(status.String()).Inc()
}

func (m *Metrics) stand() {
	if m == nil {
		return
	}
	m.stands.Inc()
}

func (m *Metrics) groundSit() {
	if m == nil {
		return
	}
	m.groundSits.Inc()
}

func (m *Metrics) physicsFailure(op string) {
	if m == nil {
		return
	}
	m.physicsFailures.WithLabelValues(op).Inc()
}

func (m *Metrics) seatedDelta(delta float64) {
	if m == nil {
		return
	}
	m.seated.Add(delta)
}
