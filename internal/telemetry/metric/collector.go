package metric

import "github.com/prometheus/client_golang/prometheus"

// Sizer reports a current element count.
type Sizer interface {
	Len() int
}

// Collector reports gauges sampled at scrape time.
type Collector struct {
	sources []source
}

type source struct {
	desc  *prometheus.Desc
	sizer Sizer
}

// NewCollector creates an empty collector. Add sources before registering.
func NewCollector() *Collector {
	return &Collector{}
}

// Add reports s.Len() as the gauge magma_<subsystem>_<name>. Nil sizers
// are skipped.
func (c *Collector) Add(subsystem, name, help string, s Sizer) *Collector {
	if s == nil {
		return c
	}
	c.sources = append(c.sources, source{
		desc:  prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystem, name), help, nil, nil),
		sizer: s,
	})
	return c
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, s := range c.sources {
		ch <- s.desc
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range c.sources {
		ch <- prometheus.MustNewConstMetric(s.desc, prometheus.GaugeValue, float64(s.sizer.Len()))
	}
}

// SizerFunc adapts a function to Sizer.
type SizerFunc func() int

// Len implements Sizer.
func (f SizerFunc) Len() int { return f() }
