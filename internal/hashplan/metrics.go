package hashplan

import (
	"github.com/prometheus/client_golang/prometheus"
)

type plannerMetrics struct {
	plansTotal   prometheus.Counter
	planFailures prometheus.Counter
	instructions prometheus.Histogram
	duration     prometheus.Histogram
}

func newPlannerMetrics() *plannerMetrics {
	return &plannerMetrics{
		plansTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskplan_planner_plans_total",
			Help: "Total number of planning calls",
		}),
		planFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskplan_planner_plan_failures_total",
			Help: "Total number of planning calls that returned an error",
		}),
		instructions: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "taskplan_planner_instructions",
			Help:    "Number of hash instructions planned per task",
			Buckets: prometheus.ExponentialBuckets(4, 2, 8),
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "taskplan_planner_duration_seconds",
			Help:    "Time spent in a planning call",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *plannerMetrics) register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.plansTotal,
		m.planFailures,
		m.instructions,
		m.duration,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
