// Package insight writes a short commentary on an investor's performance
// with a Gemini model.
package insight

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/etnz/tracker"
	"google.golang.org/genai"
)

// DefaultModel is the model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// ErrDisabled is returned when no API key is configured.
var ErrDisabled = errors.New("insight is disabled: GEMINI_API_KEY is not set")

// Writer writes commentaries.
type Writer struct {
	client *genai.Client
	model  string
}

// NewWriter creates a Writer using the Gemini API.
func NewWriter(ctx context.Context, apiKey, model string) (*Writer, error) {
	if apiKey == "" {
		return nil, ErrDisabled
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("could not initialize Gemini's client: %w", err)
	}
	return &Writer{client: client, model: model}, nil
}

const instruction = `
You write the commentary section of a monthly investment performance report.
Write two short paragraphs in plain language for the investor: how the
balance evolved and which months stand out. Use only the figures you are
given or that the monthly_statement tool returns. Never give investment advice.
`

// Comment returns the commentary for the performance of name.
func (w *Writer) Comment(ctx context.Context, name string, s tracker.Summary, rows []tracker.Row) (string, error) {
	tools := NewToolbox(Statement{Rows: rows})
	e := &Expert{
		Name:      "Commentator",
		ModelName: w.model,
		Config: &genai.GenerateContentConfig{
			Tools:             tools.Tools(),
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: instruction}}},
		},
		Library: tools.Answer,
	}
	if err := e.Start(ctx, w.client); err != nil {
		return "", fmt.Errorf("could not start the commentary: %w", err)
	}
	content, err := e.Ask(ctx, &genai.Part{Text: Prompt(name, s)})
	if err != nil {
		return "", fmt.Errorf("could not write the commentary: %w", err)
	}
	var b strings.Builder
	for _, p := range content.Parts {
		b.WriteString(p.Text)
	}
	log.Printf("insight-comment name=%q model=%s chars=%d", name, w.model, b.Len())
	return strings.TrimSpace(b.String()), nil
}

// Prompt describes the summary to the model.
func Prompt(name string, s tracker.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Investor: %s\n", name)
	if s.Months == 0 {
		fmt.Fprintf(&b, "No performance recorded yet, the balance is %s.\n", s.Starting)
		return b.String()
	}
	fmt.Fprintf(&b, "Period: %s to %s (%d months)\n", s.First, s.Last, s.Months)
	fmt.Fprintf(&b, "Starting balance: %s\n", s.Starting)
	fmt.Fprintf(&b, "Total growth: %s\n", s.TotalGrowth.SignedString())
	fmt.Fprintf(&b, "Deposits: %s, withdrawals: %s\n", s.TotalDeposits, s.TotalWithdrawals)
	fmt.Fprintf(&b, "Current balance: %s\n", s.CurrentBalance)
	fmt.Fprintf(&b, "Average monthly return: %s, net return: %s\n", s.AveragePercent.SignedString(), s.NetPercent.SignedString())
	return b.String()
}
