package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StockMetrics tracks ledger append and voucher posting activity.
type StockMetrics struct {
	ledgerAppends  *prometheus.CounterVec
	postDuration   prometheus.Histogram
	postFailures   *prometheus.CounterVec
	vouchersPosted *prometheus.CounterVec
	lowStockAlerts prometheus.Counter
}

// NewStockMetrics registers the stock metrics on the provided registerer.
func NewStockMetrics(reg prometheus.Registerer) *StockMetrics {
	if reg == nil {
		return &StockMetrics{}
	}
	ledgerAppends := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stockroom_ledger_appends_total",
		Help: "Ledger entries appended, by movement type.",
	}, []string{"movement"})
	postDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "stockroom_voucher_post_duration_seconds",
		Help:    "Time spent posting vouchers to the ledger.",
		Buckets: prometheus.DefBuckets,
	})
	postFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stockroom_voucher_post_failures_total",
		Help: "Voucher posting attempts that did not commit, by error code.",
	}, []string{"code"})
	vouchersPosted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stockroom_vouchers_posted_total",
		Help: "Vouchers posted to the ledger, by voucher type.",
	}, []string{"type"})
	lowStockAlerts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stockroom_low_stock_alerts_total",
		Help: "Low stock alerts queued by the availability sweep.",
	})
	reg.MustRegister(ledgerAppends, postDuration, postFailures, vouchersPosted, lowStockAlerts)
	return &StockMetrics{
		ledgerAppends:  ledgerAppends,
		postDuration:   postDuration,
		postFailures:   postFailures,
		vouchersPosted: vouchersPosted,
		lowStockAlerts: lowStockAlerts,
	}
}

// IncLedgerAppend counts one appended ledger entry.
func (s *StockMetrics) IncLedgerAppend(movement string) {
	if s == nil || s.ledgerAppends == nil {
		return
	}
	s.ledgerAppends.WithLabelValues(normalizeLabel(movement)).Inc()
}

// ObservePostDuration records how long a posting transaction took.
func (s *StockMetrics) ObservePostDuration(duration time.Duration) {
	if s == nil || s.postDuration == nil {
		return
	}
	s.postDuration.Observe(duration.Seconds())
}

// IncPostFailure counts a posting attempt that failed with the given code.
func (s *StockMetrics) IncPostFailure(code string) {
	if s == nil || s.postFailures == nil {
		return
	}
	s.postFailures.WithLabelValues(normalizeLabel(code)).Inc()
}

// IncVoucherPosted counts a successfully posted voucher.
func (s *StockMetrics) IncVoucherPosted(voucherType string) {
	if s == nil || s.vouchersPosted == nil {
		return
	}
	s.vouchersPosted.WithLabelValues(normalizeLabel(voucherType)).Inc()
}

// IncLowStockAlert counts a queued low stock alert.
func (s *StockMetrics) IncLowStockAlert() {
	if s == nil || s.lowStockAlerts == nil {
		return
	}
	s.lowStockAlerts.Inc()
}
