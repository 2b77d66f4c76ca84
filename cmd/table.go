package cmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"face-scenes/domain/detection"
	"face-scenes/domain/video"
)

func newTable(header table.Row, rightAligned ...int) table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(header)

	configs := make([]table.ColumnConfig, 0, len(rightAligned))
	for _, n := range rightAligned {
		configs = append(configs, table.ColumnConfig{
			Number:      n,
			Align:       text.AlignRight,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)
	return tw
}

// renderScenes lists scenes with their time range and length
func renderScenes(scenes []video.Scene) string {
	tw := newTable(table.Row{"#", "Start", "End", "Frames", "Duration"}, 1, 4, 5)
	for i, s := range scenes {
		tw.AppendRow(table.Row{
			i + 1,
			video.FormatTimecode(s.Start()),
			video.FormatTimecode(s.End()),
			s.Length(),
			video.FormatSeconds(s.Duration()),
		})
	}
	return tw.Render()
}

// renderMatches lists the face decision reached for every scene
func renderMatches(results []detection.MatchResult) string {
	tw := newTable(table.Row{"#", "Start", "End", "Face", "Distance", "Samples"}, 1, 5, 6)
	for i, r := range results {
		face := "no"
		if r.Matched {
			face = fmt.Sprintf("yes (frame %d)", r.MatchedFrame)
		}
		distance := "-"
		if r.BestDistance >= 0 {
			distance = fmt.Sprintf("%.3f", r.BestDistance)
		}
		tw.AppendRow(table.Row{
			i + 1,
			video.FormatTimecode(r.Scene.Start()),
			video.FormatTimecode(r.Scene.End()),
			face,
			distance,
			r.SamplesChecked,
		})
	}
	return tw.Render()
}

// renderEvents lists marker spans with their time range
func renderEvents(events []detection.Event, fps float64) string {
	tw := newTable(table.Row{"Marker", "Start", "End", "Frames"}, 4)
	for _, e := range events {
		tw.AppendRow(table.Row{
			e.Label,
			video.FormatTimecode(video.FrameTime(e.StartFrame, fps)),
			video.FormatTimecode(video.FrameTime(e.EndFrame, fps)),
			e.EndFrame - e.StartFrame,
		})
	}
	return tw.Render()
}
