package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/pithecene-io/lighthouse/publish"
)

// RenderEstimate formats a cost estimate as a bordered box.
func RenderEstimate(est *publish.Estimate) string {
	rows := [][2]string{
		{"Pending images", fmt.Sprint(est.PendingImages)},
		{"Pending metadata", fmt.Sprint(est.PendingMetadata)},
		{"Upload size", humanize.IBytes(uint64(max(est.Bytes, 0)))},
		{"Estimated cost", est.AR + " AR"},
	}
	return box("Cost estimate", rows)
}

// RenderResult formats the outcome of an upload run.
func RenderResult(res *publish.Result, outcome string) string {
	rows := [][2]string{
		{"Outcome", OutcomeStyle(outcome).Render(outcome)},
		{"Phase", string(res.Phase)},
		{"Assets", fmt.Sprint(res.Assets)},
		{"Images", phaseLine(res.Images)},
		{"Metadata", phaseLine(res.Metadata)},
	}
	if res.ImagesManifest != "" {
		rows = append(rows, [2]string{"Images manifest", res.ImagesManifest})
	}
	if res.MetadataManifest != "" {
		rows = append(rows, [2]string{"Metadata manifest", res.MetadataManifest})
	}
	if res.RootURI != "" {
		rows = append(rows, [2]string{"Token URI", SuccessStyle.Render(res.RootURI)})
	}
	return box("Upload summary", rows)
}

func phaseLine(s publish.PhaseSummary) string {
	line := fmt.Sprintf("%d uploaded, %d cached", s.Uploaded, s.Skipped)
	if n := len(s.Failed); n > 0 {
		line += ", " + ErrorStyle.Render(fmt.Sprintf("%d failed", n))
	}
	return line
}

func box(title string, rows [][2]string) string {
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top,
			LabelStyle.Render(r[0]),
			ValueStyle.Render(r[1]),
		))
	}
	body := TitleStyle.Render(title) + "\n\n" + strings.Join(lines, "\n")
	return BoxStyle.Render(body)
}
