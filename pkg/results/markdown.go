package results

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ethpandaops/benchreport/pkg/humanize"
)

// GenerateMarkdown generates a markdown summary of the run stored in dir.
// The output is capped at maxChars characters; zero disables the cap.
func GenerateMarkdown(dir string, maxChars int) (string, error) {
	rr, err := ReadRunResult(dir)
	if err != nil {
		return "", err
	}

	return RenderMarkdown(rr, maxChars), nil
}

// RenderMarkdown renders a run result as markdown. The results table is
// last and gets truncated when the output would exceed maxChars.
func RenderMarkdown(rr *RunResult, maxChars int) string {
	var sb strings.Builder

	sb.Grow(4096)

	writeTitle(&sb, rr.RunID)
	writeOverview(&sb, rr)
	writeExecutables(&sb, rr.Executables)
	writeSystem(&sb, rr.System)
	writeEntries(&sb, rr.Entries, maxChars)

	return sb.String()
}

func writeTitle(sb *strings.Builder, runID string) {
	fmt.Fprintf(sb, "# Benchmark Run: %s\n\n", runID)
}

func writeOverview(sb *strings.Builder, rr *RunResult) {
	sb.WriteString("## Overview\n\n")
	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|---|---|\n")

	if rr.Timestamp > 0 {
		t := time.Unix(rr.Timestamp, 0).UTC()
		fmt.Fprintf(sb, "| Started | %s |\n", t.Format("2006-01-02 15:04:05 UTC"))
	}

	if rr.TimestampEnd > 0 && rr.Timestamp > 0 {
		dur := time.Duration(rr.TimestampEnd-rr.Timestamp) * time.Second
		fmt.Fprintf(sb, "| Duration | %s |\n", formatDuration(dur))
	}

	fmt.Fprintf(sb, "| Results | %d |\n", len(rr.Entries))

	if len(rr.Skipped) > 0 {
		fmt.Fprintf(sb, "| Skipped Jobs | %s |\n", strings.Join(rr.Skipped, ", "))
	}

	if rr.ClockMHz > 0 {
		fmt.Fprintf(sb, "| Clock | %.1f MHz |\n", rr.ClockMHz)
	}

	sb.WriteByte('\n')
}

func writeExecutables(sb *strings.Builder, execs []ExecutableEntry) {
	if len(execs) == 0 {
		return
	}

	sb.WriteString("## Executables\n\n")
	sb.WriteString("| Name | Version |\n")
	sb.WriteString("|---|---|\n")

	for _, e := range execs {
		version := e.Version
		if version == "" {
			version = "-"
		}

		fmt.Fprintf(sb, "| %s | %s |\n", e.Name, version)
	}

	sb.WriteByte('\n')
}

func writeSystem(sb *strings.Builder, sys *SystemInfo) {
	if sys == nil {
		return
	}

	sb.WriteString("## System\n\n")
	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|---|---|\n")

	if sys.Hostname != "" {
		fmt.Fprintf(sb, "| Hostname | %s |\n", sys.Hostname)
	}

	if sys.CPUModel != "" {
		fmt.Fprintf(sb, "| CPU | %s |\n", sys.CPUModel)
	}

	if sys.CPUCores > 0 {
		fmt.Fprintf(sb, "| Cores | %d |\n", sys.CPUCores)
	}

	if sys.CPUMhz > 0 {
		fmt.Fprintf(sb, "| CPU MHz | %.1f |\n", sys.CPUMhz)
	}

	if sys.MemoryTotalGB > 0 {
		fmt.Fprintf(sb, "| Memory | %.1f GB |\n", sys.MemoryTotalGB)
	}

	if sys.Platform != "" {
		platform := sys.Platform
		if sys.PlatformVersion != "" {
			platform += " " + sys.PlatformVersion
		}

		fmt.Fprintf(sb, "| Platform | %s |\n", platform)
	}

	if sys.Arch != "" {
		fmt.Fprintf(sb, "| Arch | %s |\n", sys.Arch)
	}

	if sys.KernelVersion != "" {
		fmt.Fprintf(sb, "| Kernel | %s |\n", sys.KernelVersion)
	}

	sb.WriteByte('\n')
}

func writeEntries(sb *strings.Builder, entries []Entry, maxChars int) {
	if len(entries) == 0 {
		return
	}

	ranked := make([]Entry, len(entries))
	copy(ranked, entries)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Rank < ranked[j].Rank
	})

	sb.WriteString("## Results\n\n")
	sb.WriteString("| Rank | Job | Executable | i/s | Iterations | Time | Slower |\n")
	sb.WriteString("|---|---|---|---|---|---|---|\n")

	// Reserve space for the truncation message.
	const reserveChars = 100

	for i, e := range ranked {
		row := fmt.Sprintf("| %d | %s | %s | %s | %s | %.6fs | %s |\n",
			e.Rank,
			e.Job,
			e.Executable,
			formatNumber(e.IPS),
			formatNumber(float64(e.Iterations)),
			e.Real,
			formatSlowdown(e.Slowdown),
		)

		if maxChars > 0 && sb.Len()+len(row)+reserveChars > maxChars {
			fmt.Fprintf(sb,
				"\n*%d more result(s) not shown (output truncated at %d chars)*\n",
				len(ranked)-i, maxChars)

			return
		}

		sb.WriteString(row)
	}
}

// formatNumber renders a value with the report's metric suffixes.
func formatNumber(v float64) string {
	s, err := humanize.Number(v, 1)
	if err != nil {
		return "-"
	}

	return strings.TrimSpace(s)
}

func formatSlowdown(slowdown float64) string {
	if slowdown == 0 {
		return "-"
	}

	return fmt.Sprintf("%.2fx", slowdown)
}

// formatDuration formats a time.Duration as a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.String()
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}

	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}

	return fmt.Sprintf("%ds", seconds)
}
