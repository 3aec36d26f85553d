// Package metrics periodically writes gathered prometheus metrics to the
// log.
package metrics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/juju/loggo/v2"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

var logger = loggo.GetLogger("giop.statistics")

// LogRoutine logs a summary of g every freq until closeChan is closed.
// The returned channel is closed when the routine has exited.
func LogRoutine(title string, g prometheus.Gatherer, freq time.Duration, closeChan <-chan struct{}) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(freq)
		defer ticker.Stop()
		for {
			select {
			case <-closeChan:
				return
			case <-ticker.C:
				msg, err := Format(title, g)
				if err != nil {
					logger.Warningf("gathering %s metrics: %v", title, err)
					continue
				}
				logger.Infof("%s", msg)
			}
		}
	}()
	return done
}

// Format renders every non empty metric of g on one line.
func Format(title string, g prometheus.Gatherer) (string, error) {
	families, err := g.Gather()
	if err != nil {
		return "", err
	}
	var counterList, gaugeList, histList []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			name := mf.GetName() + labelsOf(m)
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				if v := m.GetCounter().GetValue(); v != 0 {
					counterList = append(counterList, fmt.Sprintf("%s: %.0f", name, v))
				}
			case dto.MetricType_GAUGE:
				if v := m.GetGauge().GetValue(); v != 0 {
					gaugeList = append(gaugeList, fmt.Sprintf("%s: %g", name, v))
				}
			case dto.MetricType_HISTOGRAM:
				h := m.GetHistogram()
				if n := h.GetSampleCount(); n != 0 {
					histList = append(histList, fmt.Sprintf("%s: count=%d, mean=%.6fs",
						name, n, h.GetSampleSum()/float64(n)))
				}
			}
		}
	}
	sort.Strings(counterList)
	sort.Strings(gaugeList)
	sort.Strings(histList)

	sb := strings.Builder{}
	sb.WriteString(title)
	if len(counterList) > 0 {
		sb.WriteString(fmt.Sprintf(" counter(%v):{%s}", len(counterList), strings.Join(counterList, ", ")))
	}
	if len(gaugeList) > 0 {
		sb.WriteString(fmt.Sprintf(" gauge(%v):{%s}", len(gaugeList), strings.Join(gaugeList, ", ")))
	}
	if len(histList) > 0 {
		sb.WriteString(fmt.Sprintf(" histogram(%v):{%s}", len(histList), strings.Join(histList, ", ")))
	}
	return sb.String(), nil
}

func labelsOf(m *dto.Metric) string {
	if len(m.GetLabel()) == 0 {
		return ""
	}
	pairs := make([]string, 0, len(m.GetLabel()))
	for _, l := range m.GetLabel() {
		pairs = append(pairs, l.GetName()+"="+l.GetValue())
	}
	return "{" + strings.Join(pairs, ",") + "}"
}
