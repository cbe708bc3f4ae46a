// Package qsrplot renders debug views of relation requests: an HTML
// timeline of emitted labels and a PNG of the input trajectories.
package qsrplot

import (
	"fmt"
	"io"
	"sort"

	"github.com/banshee-data/qsrtrace/internal/qsr"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// TimelineData groups the points of one calculator's timeline by label.
// Each point is (timestamp, key index, label).
type TimelineData struct {
	Keys   []qsr.Key
	Series map[string][]opts.ScatterData
}

// Timeline collects the points RenderTimeline draws for calculator id.
func Timeline(out *qsr.WorldTrace, id qsr.ID) TimelineData {
	keys := out.AllKeys()
	index := make(map[qsr.Key]int, len(keys))
	for i, k := range keys {
		index[k] = i
	}

	data := TimelineData{Keys: keys, Series: make(map[string][]opts.ScatterData)}
	for _, k := range keys {
		for _, e := range out.Sequence(k, id) {
			data.Series[e.Label] = append(data.Series[e.Label], opts.ScatterData{
				Value: []interface{}{e.Timestamp, index[k], e.Label},
				Name:  string(k),
			})
		}
	}
	return data
}

// RenderTimeline writes an HTML scatter chart with one row per entity-key
// and one series per label emitted by calculator id.
func RenderTimeline(w io.Writer, out *qsr.WorldTrace, id qsr.ID) error {
	data := Timeline(out, id)
	if len(data.Series) == 0 {
		return fmt.Errorf("no %s relations to plot", id)
	}

	rows := make([]string, len(data.Keys))
	for i, k := range data.Keys {
		rows[i] = string(k)
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "QSR Timeline", Theme: "dark", Width: "1200px", Height: "720px"}),
		charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("%s relations", id), Subtitle: fmt.Sprintf("keys=%d timestamps=%d", len(data.Keys), len(out.Timestamps()))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "Time", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: rows, Name: "Entity key", NameLocation: "middle", NameGap: 60}),
	)

	labels := make([]string, 0, len(data.Series))
	for l := range data.Series {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	for _, l := range labels {
		scatter.AddSeries(l, data.Series[l], charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))
	}

	if err := scatter.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
