package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"cropadvisor/adapters/excel"
	"cropadvisor/internal/recommend"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

func readTable(path string, maxRows int) (*excel.Table, error) {
	table, err := excel.ReadFile(path, maxRows)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return table, nil
}

func renderReport(report *recommend.BatchReport, format, source string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "markdown", "md":
		return []byte(reportMarkdown(report, source)), nil
	case "html":
		return reportHTML(report, source), nil
	case "json":
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unknown format %q (want markdown, html or json)", format)
}

// reportMarkdown renders the summary followed by one table row per input line
func reportMarkdown(report *recommend.BatchReport, source string) string {
	var b strings.Builder
	s := report.Summary

	fmt.Fprintf(&b, "# Crop recommendations for %s\n\n", filepath.Base(source))
	fmt.Fprintf(&b, "Model version %s. %d rows, %d recommended, %d failed in %s.\n\n",
		s.ModelVersion, s.Total, s.Succeeded, s.Failed, s.Duration)

	if s.Succeeded > 0 {
		b.WriteString("## Confidence\n\n")
		b.WriteString("| Mean | Median | Min | Max |\n|---:|---:|---:|---:|\n")
		fmt.Fprintf(&b, "| %.2f%% | %.2f%% | %.2f%% | %.2f%% |\n\n",
			s.MeanConfidence, s.MedianConfidence, s.MinConfidence, s.MaxConfidence)

		b.WriteString("## Top crops\n\n| Crop | Rows |\n|---|---:|\n")
		for _, c := range s.TopCrops {
			fmt.Fprintf(&b, "| %s | %d |\n", c.Crop, c.Count)
		}
		b.WriteString("\n")
	}

	if len(report.InputProfile) > 0 {
		b.WriteString("## Input profile\n\n| Field | Mean | Std dev | Min | Median | Max | Outliers | Out of range |\n|---|---:|---:|---:|---:|---:|---:|---:|\n")
		for _, p := range report.InputProfile {
			fmt.Fprintf(&b, "| %s | %.2f | %.2f | %.2f | %.2f | %.2f | %d | %d |\n",
				p.Field, p.Mean, p.StdDev, p.Min, p.Median, p.Max, p.Outliers, p.OutOfRange)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Rows\n\n| Line | Crop | Confidence | Rainfall | Soil pH | Alternatives |\n|---:|---|---:|---|---|---|\n")
	for _, item := range report.Items {
		if item.Recommendation == nil {
			fmt.Fprintf(&b, "| %d | error: %s | | | | |\n", item.Line, escapeCell(item.Error))
			continue
		}
		rec := item.Recommendation
		var alternatives []string
		for _, ranked := range rec.Result.RankedTopN[1:] {
			alternatives = append(alternatives, fmt.Sprintf("%s %.1f%%", ranked.Crop, ranked.ProbabilityPercent))
		}
		fmt.Fprintf(&b, "| %d | %s | %.2f%% | %s | %s | %s |\n",
			item.Line, rec.Result.TopCrop, rec.Result.ConfidencePercent,
			rec.Features.RainfallLevel, rec.Features.PHCategory, strings.Join(alternatives, ", "))
	}
	return b.String()
}

func reportHTML(report *recommend.BatchReport, source string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse([]byte(reportMarkdown(report, source)))

	renderer := html.NewRenderer(html.RendererOptions{
		Title: "Crop recommendations",
		Flags: html.CommonFlags | html.CompletePage | html.HrefTargetBlank,
	})
	return markdown.Render(doc, renderer)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
