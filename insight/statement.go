package insight

import (
	"context"
	"fmt"

	"github.com/etnz/tracker"
	"github.com/etnz/tracker/date"
	"google.golang.org/genai"
)

// Statement lets the model look up the monthly figures.
type Statement struct {
	Rows []tracker.Row
}

func (s Statement) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        "monthly_statement",
		Description: "Returns the month by month statement: opening and closing balance, growth, deposits, withdrawals and return in percent.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"from": {Type: genai.TypeString, Description: "First month, as YYYY-MM. Optional."},
				"to":   {Type: genai.TypeString, Description: "Last month, as YYYY-MM. Optional."},
			},
		},
	}
}

func (s Statement) Call(ctx context.Context, args map[string]any) (map[string]any, error) {
	from, err := monthArg(args, "from")
	if err != nil {
		return nil, err
	}
	to, err := monthArg(args, "to")
	if err != nil {
		return nil, err
	}
	months := []any{}
	for _, r := range s.Rows {
		m := r.Entry.Month
		if (!from.IsZero() && m.Before(from)) || (!to.IsZero() && m.After(to)) {
			continue
		}
		months = append(months, map[string]any{
			"month":       m.String(),
			"opening":     r.Performance.Start.String(),
			"growth":      r.Entry.Growth.String(),
			"deposits":    r.Entry.Deposits.String(),
			"withdrawals": r.Entry.Withdrawals.String(),
			"closing":     r.Performance.End.String(),
			"return":      float64(r.Performance.Return),
		})
	}
	return map[string]any{"output": months}, nil
}

// monthArg returns the optional month argument name.
func monthArg(args map[string]any, name string) (date.Month, error) {
	v, _ := args[name].(string)
	if v == "" {
		return date.Month{}, nil
	}
	m, err := date.ParseMonth(v)
	if err != nil {
		return date.Month{}, fmt.Errorf("argument %s: %w", name, err)
	}
	return m, nil
}
