package services

import (
	"bytes"
	"fmt"
	"strings"
	"time"
)

// renderPDF builds a single-page PDF summary by emitting the document
// structure directly: catalog, page tree, one page, a Helvetica text stream
// and a cross-reference table. The report fits comfortably on one letter
// page, so a full layout engine would be overkill here.
func renderPDF(report *AnalyticsResponse) ([]byte, error) {
	lines := []string{
		"Workflow Analytics Report",
		"",
		fmt.Sprintf("Workflow: %s", report.WorkflowID),
		fmt.Sprintf("Range: %s to %s",
			report.Range.Start.Format(time.RFC3339),
			report.Range.End.Format(time.RFC3339)),
		fmt.Sprintf("Computed: %s", report.ComputedAt.Format(time.RFC3339)),
		"",
		fmt.Sprintf("Enrollments: %d", report.Enrollments.Total),
		fmt.Sprintf("Completions: %d", report.Completions),
		fmt.Sprintf("Conversion rate: %.2f%%", report.Conversion.Percent),
		fmt.Sprintf("Completion rate: %.2f%%", report.Completion.Percent),
		"",
		"Steps:",
	}

	for _, step := range report.Steps {
		lines = append(lines, fmt.Sprintf(
			"  %d. %s  entered=%d exited=%d completed=%d rate=%.2f%%",
			step.Position, step.StepID,
			step.Entered, step.Exited, step.Completed,
			step.CompletionRate.Percent))
	}

	var content strings.Builder

	content.WriteString("BT\n/F1 11 Tf\n13 TL\n72 740 Td\n")

	for _, line := range lines {
		fmt.Fprintf(&content, "(%s) Tj\nT*\n", escapePDFText(line))
	}

	content.WriteString("ET\n")

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] " +
			"/Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream",
			content.Len(), content.String()),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var buf bytes.Buffer

	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, 0, len(objects))

	for i, object := range objects {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, object)
	}

	xrefOffset := buf.Len()

	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")

	for _, offset := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offset)
	}

	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(objects)+1, xrefOffset)

	return buf.Bytes(), nil
}

// escapePDFText escapes the delimiters of a PDF literal string.
func escapePDFText(text string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)

	return replacer.Replace(text)
}
