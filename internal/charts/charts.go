// Package charts renders packing progress as PNG images for Telegram.
package charts

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"packing-planner/internal/model"
)

// ChartGenerator builds progress charts.
type ChartGenerator struct{}

func NewChartGenerator() *ChartGenerator {
	return &ChartGenerator{}
}

// ListProgress renders a bar per category showing the packed percentage of
// the list's items in that category. Returns nil when the list has no items.
func (g *ChartGenerator) ListProgress(list model.PackingList, categories []model.CategoryDef) ([]byte, error) {
	if len(list.Items) == 0 {
		return nil, nil
	}

	type bucket struct {
		total  int
		packed int
	}
	buckets := make(map[string]*bucket)
	for _, item := range list.Items {
		b, ok := buckets[item.CategoryID]
		if !ok {
			b = &bucket{}
			buckets[item.CategoryID] = b
		}
		b.total++
		if item.IsPacked {
			b.packed++
		}
	}

	var bars []chart.Value
	for _, cat := range categories {
		b, ok := buckets[cat.ID]
		if !ok {
			continue
		}
		percent := float64(b.packed) / float64(b.total) * 100
		bars = append(bars, chart.Value{
			Value: percent,
			Label: fmt.Sprintf("%s %d/%d", cat.Name, b.packed, b.total),
			Style: chart.Style{
				FillColor:   colorFromHex(cat.Color),
				StrokeColor: colorFromHex(cat.Color),
			},
		})
	}
	if len(bars) == 0 {
		return nil, nil
	}

	graph := chart.BarChart{
		Title:  fmt.Sprintf("%s — %d%% packed", list.Name, list.Progress()),
		Width:  160 * len(bars),
		Height: 512,
		Background: chart.Style{
			Padding: chart.Box{
				Top:    60,
				Left:   30,
				Right:  30,
				Bottom: 30,
			},
			FillColor: chart.ColorWhite,
		},
		BarWidth: 80,
		XAxis: chart.Style{
			FontSize:  10,
			FontColor: chart.ColorBlack,
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: 100},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f%%", f)
				}
				return ""
			},
			Style: chart.Style{
				FontSize:  10,
				FontColor: chart.ColorBlack,
			},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return buf.Bytes(), nil
}

func colorFromHex(hex string) drawing.Color {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if hex == "" {
		return chart.ColorBlue
	}
	return drawing.ColorFromHex(hex)
}
