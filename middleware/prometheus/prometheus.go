package prometheus

import (
	"context"
	"time"

	"github.com/fyerfyer/fyer-repo/repo"
	"github.com/prometheus/client_golang/prometheus"
)

type MiddlewareBuilder struct {
	NameSpace string
	Name      string
	SubSystem string
	Help      string
	// Registerer 为空时注册到 prometheus.DefaultRegisterer
	Registerer prometheus.Registerer
}

// Build 按 type/operation/status 统计语句耗时，单位微秒
func (m *MiddlewareBuilder) Build() repo.Middleware {
	vec := prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Name:      m.Name,
		Help:      m.Help,
		Namespace: m.NameSpace,
		Subsystem: m.SubSystem,
		Objectives: map[float64]float64{
			0.5:   0.05,
			0.9:   0.01,
			0.99:  0.001,
			0.999: 0.0001,
		},
	}, []string{"type", "operation", "status"})

	reg := m.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(vec)

	return func(next repo.Handler) repo.Handler {
		return repo.HandlerFunc(func(ctx context.Context, qc *repo.QueryContext) (res *repo.QueryResult, err error) {
			startTime := time.Now()
			defer func() {
				status := "ok"
				if err != nil {
					status = "error"
				}
				duration := time.Since(startTime).Microseconds()
				vec.WithLabelValues(qc.QueryType, qc.Operation, status).
					Observe(float64(duration))
			}()

			return next.QueryHandler(ctx, qc)
		})
	}
}
