package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/corey/rigor/internal/adapters/socket"
	"github.com/corey/rigor/internal/app"
	"github.com/corey/rigor/internal/ports"
)

// ANSI color codes for terminal output.
const (
	colorReset   = "\033[0m"
	colorBold    = "\033[1m"
	colorCyan    = "\033[36m"
	colorMagenta = "\033[35m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorRed     = "\033[31m"
	colorGray    = "\033[90m"
)

// useColor is set from --color / --no-color before any command runs.
var useColor = false

func paint(color, s string) string {
	if !useColor {
		return s
	}
	return color + s + colorReset
}

// formatScore renders a score compactly; integral values drop the fraction.
func formatScore(v float64) string {
	return fmt.Sprintf("%.6g", v)
}

// deltaColor picks green for a score that rose and red for one that fell.
func deltaColor(before, after float64) string {
	switch {
	case after > before:
		return colorGreen
	case after < before:
		return colorRed
	default:
		return colorGray
	}
}

// formatRecord formats one scored document.
//
//	⚡ 150 │ proof.txt (text) │ 4 markers │ 37 words
//	  therefore ×2  qed ×1  clearly ×1
func formatRecord(rec *ports.ScoreRecord) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s │ %s (%s) │ %d markers │ %d words\n",
		paint(colorBold, "⚡ "+formatScore(rec.Score)),
		paint(colorCyan, rec.Source), rec.Kind, rec.Matches, rec.Words))
	if line := formatMarkers(rec.Markers); line != "" {
		sb.WriteString("  " + line + "\n")
	}
	return sb.String()
}

// formatMarkers lists phrase counts, most frequent first.
func formatMarkers(markers map[string]int) string {
	if len(markers) == 0 {
		return ""
	}
	phrases := make([]string, 0, len(markers))
	for p := range markers {
		phrases = append(phrases, p)
	}
	sort.Slice(phrases, func(i, j int) bool {
		if markers[phrases[i]] != markers[phrases[j]] {
			return markers[phrases[i]] > markers[phrases[j]]
		}
		return phrases[i] < phrases[j]
	})
	parts := make([]string, len(phrases))
	for i, p := range phrases {
		parts[i] = fmt.Sprintf("%s ×%d", p, markers[p])
	}
	return strings.Join(parts, "  ")
}

// formatTrace formats an explain result step by step.
//
//	⚡ 99 → 150 │ 2 steps │ 3 words
//	  [    0:9    ] therefore  +1       99 → 100
//	  [   10:13   ] qed        +50      100 → 150
func formatTrace(res *socket.ExplainResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s │ %d steps │ %d words\n",
		paint(colorBold, fmt.Sprintf("⚡ %s → %s", formatScore(res.Initial), formatScore(res.Final))),
		len(res.Steps), res.Words))

	width := 0
	for _, s := range res.Steps {
		width = max(width, len(s.Phrase))
	}
	for _, s := range res.Steps {
		sb.WriteString(fmt.Sprintf("  %s %-*s  %-8s %s\n",
			paint(colorGray, fmt.Sprintf("[%5d:%-5d]", s.Start, s.End)),
			width, s.Phrase, s.Op,
			paint(deltaColor(s.Before, s.After),
				fmt.Sprintf("%s → %s", formatScore(s.Before), formatScore(s.After)))))
	}
	return sb.String()
}

// formatHistory formats recent records, newest first.
func formatHistory(res *socket.HistoryResult) string {
	if len(res.Records) == 0 {
		return "no history yet\n"
	}
	var sb strings.Builder
	sb.WriteString(paint(colorBold, fmt.Sprintf("⚡ %d records", res.Count)) + "\n")
	for _, r := range res.Records {
		sb.WriteString(fmt.Sprintf("  %s  %s  %10s  %s %s\n",
			paint(colorGray, r.ID),
			r.At.Local().Format("2006-01-02 15:04"),
			formatScore(r.Score),
			paint(colorCyan, r.Source),
			paint(colorGray, "("+r.Kind+")")))
	}
	return sb.String()
}

// formatDictionary formats the loaded dictionary. With stats only the
// summary lines are printed.
func formatDictionary(res *socket.DictionaryResult, stats bool) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s │ v%d │ initial %s │ policy %s │ whole words %v\n",
		paint(colorBold, fmt.Sprintf("⚡ %d phrases", len(res.Entries))),
		res.Version, formatScore(res.InitialScore), res.Policy, res.WholeWords))

	if stats {
		kinds := map[byte]int{}
		for _, e := range res.Entries {
			if e.Op != "" {
				kinds[e.Op[0]]++
			}
		}
		sb.WriteString(fmt.Sprintf("  automaton nodes: %d\n", res.Nodes))
		sb.WriteString(fmt.Sprintf("  operators: +%d -%d *%d ^%d\n", kinds['+'], kinds['-'], kinds['*'], kinds['^']))
		sb.WriteString(fmt.Sprintf("  shadowed: %d\n", len(res.Shadowed)))
		return sb.String()
	}

	width := 0
	for _, e := range res.Entries {
		width = max(width, len(e.Phrase))
	}
	for _, e := range res.Entries {
		sb.WriteString(fmt.Sprintf("  %-*s  %s\n", width, e.Phrase, paint(colorMagenta, e.Op)))
	}
	for _, s := range res.Shadowed {
		sb.WriteString(paint(colorYellow, "  ! duplicate phrase "+s) + "\n")
	}
	return sb.String()
}

// formatHealth formats a health response.
func formatHealth(h *socket.HealthResult) string {
	var sb strings.Builder
	status := paint(colorGreen, h.Status)
	if h.Status != "ok" {
		status = paint(colorYellow, h.Status)
	}
	sb.WriteString(fmt.Sprintf("%s │ %s\n", paint(colorBold, "⚡ rigor daemon"), status))
	sb.WriteString(fmt.Sprintf("  patterns: %d\n", h.Patterns))
	sb.WriteString(fmt.Sprintf("  store:    %s (%d records)\n", h.Store, h.Records))
	if h.HTTP != "" {
		sb.WriteString(fmt.Sprintf("  http:     %s\n", h.HTTP))
	}
	sb.WriteString(fmt.Sprintf("  uptime:   %s\n", h.Uptime))
	return sb.String()
}

// formatVerify formats a matcher cross-check report.
func formatVerify(rep *app.VerifyReport) string {
	var sb strings.Builder
	if rep.OK() {
		sb.WriteString(fmt.Sprintf("%s │ %d matches │ %d bytes\n",
			paint(colorGreen, "⚡ matchers agree"), rep.Matches, rep.Bytes))
		return sb.String()
	}
	sb.WriteString(fmt.Sprintf("%s │ %d divergences │ %d matches │ %d bytes\n",
		paint(colorRed, "⚡ matchers disagree"), len(rep.Divergences), rep.Matches, rep.Bytes))
	for _, d := range rep.Divergences {
		sb.WriteString(fmt.Sprintf("  [%d:%d] %q missing from %s\n", d.Start, d.End, d.Phrase, d.Missing))
	}
	return sb.String()
}
