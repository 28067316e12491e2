package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// PricingResolveTotal counts product price resolutions by product type and outcome.
	PricingResolveTotal *prometheus.CounterVec
	// CartSummarizeTotal counts cart summaries by mode (display or checkout) and outcome.
	CartSummarizeTotal *prometheus.CounterVec
	// CartStockWarningsTotal counts lines flagged for exceeding available stock.
	CartStockWarningsTotal prometheus.Counter
	// CurrencyFallbackTotal counts display requests that degraded to the base currency.
	CurrencyFallbackTotal *prometheus.CounterVec
	// VatFallbackTotal counts display requests priced with the fallback VAT country.
	VatFallbackTotal *prometheus.CounterVec
	// ReferenceCacheTotal counts reference data cache lookups by result.
	ReferenceCacheTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		PricingResolveTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_resolve_total",
			Help:      "Count of product price resolutions by outcome.",
		}, []string{"type", "result"})
		CartSummarizeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_summarize_total",
			Help:      "Count of cart summaries by mode and outcome.",
		}, []string{"mode", "result"})
		CartStockWarningsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_stock_warnings_total",
			Help:      "Number of cart lines requesting more than the available stock.",
		})
		CurrencyFallbackTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "currency_fallback_total",
			Help:      "Display requests that fell back to the base currency.",
		}, []string{"reason"})
		VatFallbackTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vat_fallback_total",
			Help:      "Display requests whose VAT used the fallback country.",
		}, []string{"reason"})
		ReferenceCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reference_cache_total",
			Help:      "Reference data cache lookups by result.",
		}, []string{"result"})

		mustRegisterCollector(reg, PricingResolveTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PricingResolveTotal = v
			}
		})
		mustRegisterCollector(reg, CartSummarizeTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CartSummarizeTotal = v
			}
		})
		mustRegisterCollector(reg, CartStockWarningsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				CartStockWarningsTotal = v
			}
		})
		mustRegisterCollector(reg, CurrencyFallbackTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CurrencyFallbackTotal = v
			}
		})
		mustRegisterCollector(reg, VatFallbackTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				VatFallbackTotal = v
			}
		})
		mustRegisterCollector(reg, ReferenceCacheTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ReferenceCacheTotal = v
			}
		})
	})
}

// ObservePricingResolve records a price resolution. Safe before registration.
func ObservePricingResolve(productType, result string) {
	if PricingResolveTotal == nil {
		return
	}
	PricingResolveTotal.WithLabelValues(productType, result).Inc()
}

// ObserveCartSummarize records a cart summary. Safe before registration.
func ObserveCartSummarize(mode, result string, stockWarnings int) {
	if CartSummarizeTotal != nil {
		CartSummarizeTotal.WithLabelValues(mode, result).Inc()
	}
	if CartStockWarningsTotal != nil && stockWarnings > 0 {
		CartStockWarningsTotal.Add(float64(stockWarnings))
	}
}

// ObserveCurrencyFallback records a display currency degradation.
func ObserveCurrencyFallback(reason string) {
	if CurrencyFallbackTotal == nil {
		return
	}
	CurrencyFallbackTotal.WithLabelValues(reason).Inc()
}

// ObserveVatFallback records a display price whose VAT used the fallback country.
func ObserveVatFallback(reason string) {
	if VatFallbackTotal == nil {
		return
	}
	VatFallbackTotal.WithLabelValues(reason).Inc()
}

// ObserveReferenceCache records a reference cache hit or miss.
func ObserveReferenceCache(result string) {
	if ReferenceCacheTotal == nil {
		return
	}
	ReferenceCacheTotal.WithLabelValues(result).Inc()
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register metric: %w", err))
	}
}
