// Package renderer turns summaries and statements into markdown reports.
package renderer

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"

	"github.com/etnz/tracker"
	"github.com/etnz/tracker/date"
)

//go:embed templates/*.md
var templates embed.FS

// InvestorReport is the data of the report sent to an investor.
type InvestorReport struct {
	Investor    tracker.Investor
	Summary     tracker.Summary
	Rows        []tracker.Row
	Comment     string // optional commentary
	GeneratedOn date.Date
}

// SummarySection renders the summary part of the report.
func (r *InvestorReport) SummarySection() string { return SummaryMarkdown("Summary", r.Summary) }

// StatementSection renders the statement part of the report.
func (r *InvestorReport) StatementSection() string {
	if len(r.Rows) == 0 {
		return ""
	}
	return StatementMarkdown("Statement", r.Rows)
}

// RenderInvestorReport renders the report of an investor to a markdown string.
func RenderInvestorReport(r *InvestorReport) string {
	partials := map[string]string{
		"investor_report_title":   "investor_report_title.md",
		"investor_report_comment": "investor_report_comment.md",
	}
	if r.Comment == "" {
		partials["investor_report_comment"] = ""
	}
	return renderTemplate("investorReport", "investor_report.md", partials, r)
}

// renderTemplate is a generic utility to render a main template that depends on several partials.
func renderTemplate(templateName, mainFile string, partials map[string]string, data any) string {
	mainContent, err := fs.ReadFile(templates, "templates/"+mainFile)
	if err != nil {
		return fmt.Sprintf("error reading main template %q: %v", mainFile, err)
	}

	tmpl, err := template.New(templateName).Parse(string(mainContent))
	if err != nil {
		return fmt.Sprintf("error parsing main template %q: %v", mainFile, err)
	}

	for name, file := range partials {
		var content []byte
		// An empty file name is a valid case, resulting in an empty template.
		if file != "" {
			var readErr error
			content, readErr = fs.ReadFile(templates, "templates/"+file)
			if readErr != nil {
				return fmt.Sprintf("error reading partial template %q: %v", file, readErr)
			}
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return fmt.Sprintf("error parsing partial template %q for %q: %v", file, name, err)
		}
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, templateName, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", templateName, err)
	}
	return b.String()
}
