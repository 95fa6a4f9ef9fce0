// Package metrics exports studio counters to Prometheus. A nil *Recorder is
// valid and records nothing.
package metrics

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "studio"

type Recorder struct {
	generations        *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	creditsSpent       prometheus.Counter
	creditsPurchased   prometheus.Counter
	payments           *prometheus.CounterVec
	publishes          *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

// New registers the studio collectors on reg, or on the default registerer
// when reg is nil. Collectors that are already registered are reused.
func New(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &Recorder{}
	var err error
	if r.generations, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "generations_total",
		Help:      "Generation requests by variant and outcome.",
	}, []string{"variant", "outcome"})); err != nil {
		return nil, err
	}
	if r.generationDuration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "generation_duration_seconds",
		Help:      "Time from launch to completion of an in-flight generation.",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"variant"})); err != nil {
		return nil, err
	}
	if r.creditsSpent, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "credits_spent_total",
		Help:      "Credits debited for successful generations.",
	})); err != nil {
		return nil, err
	}
	if r.creditsPurchased, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "credits_purchased_total",
		Help:      "Credits added by confirmed payments.",
	})); err != nil {
		return nil, err
	}
	if r.payments, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payments_total",
		Help:      "Payment flow outcomes.",
	}, []string{"outcome"})); err != nil {
		return nil, err
	}
	if r.publishes, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "publishes_total",
		Help:      "Social publications by webhook delivery outcome.",
	}, []string{"delivery"})); err != nil {
		return nil, err
	}
	if r.httpRequests, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})); err != nil {
		return nil, err
	}
	if r.httpDuration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})); err != nil {
		return nil, err
	}
	return r, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, fmt.Errorf("register studio metric: %w", err)
	}
	return c, nil
}

func (r *Recorder) ObserveGeneration(variant, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.generations.WithLabelValues(variant, outcome).Inc()
	if d > 0 {
		r.generationDuration.WithLabelValues(variant).Observe(d.Seconds())
	}
}

func (r *Recorder) AddCreditsSpent(n int64) {
	if r == nil || n <= 0 {
		return
	}
	r.creditsSpent.Add(float64(n))
}

func (r *Recorder) AddCreditsPurchased(n int64) {
	if r == nil || n <= 0 {
		return
	}
	r.creditsPurchased.Add(float64(n))
}

func (r *Recorder) ObservePayment(outcome string) {
	if r == nil {
		return
	}
	r.payments.WithLabelValues(outcome).Inc()
}

func (r *Recorder) ObservePublish(delivery string) {
	if r == nil {
		return
	}
	r.publishes.WithLabelValues(delivery).Inc()
}

func (r *Recorder) ObserveHTTP(method, route string, status int, d time.Duration) {
	if r == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
