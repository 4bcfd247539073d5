package cmd

import (
	"flag"
	"io"
	"strings"

	"github.com/etnz/tracker/docs"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// Complete runs the shell completion when the shell asks for it (COMP_LINE is
// set) and exits, and returns otherwise.
//
// Install it with: COMP_INSTALL=1 trk
func Complete(name string, global *flag.FlagSet) {
	completion(global).Complete(name)
}

// completion builds the completion tree from the commands and their flags.
func completion(global *flag.FlagSet) *complete.Command {
	root := &complete.Command{
		Sub:   map[string]*complete.Command{},
		Flags: predictors(global),
	}
	for _, cmds := range Commands() {
		for _, c := range cmds {
			f := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
			f.SetOutput(io.Discard)
			c.SetFlags(f)
			root.Sub[c.Name()] = &complete.Command{Flags: predictors(f), Args: arguments(c)}
		}
	}
	return root
}

func predictors(f *flag.FlagSet) map[string]complete.Predictor {
	res := make(map[string]complete.Predictor)
	f.VisitAll(func(fl *flag.Flag) {
		switch {
		case isBool(fl):
			res[fl.Name] = predict.Nothing
		case fl.Name == "o" || fl.Name == "local":
			res[fl.Name] = predict.Files("*")
		case fl.Name == "period":
			res[fl.Name] = predict.Set{"monthly", "quarterly", "yearly"}
		case fl.Name == "as":
			res[fl.Name] = predict.Set{"admin", "investor"}
		case fl.Name == "backend":
			res[fl.Name] = predict.Set{"none", "postgres", "mongo"}
		default:
			res[fl.Name] = predict.Something
		}
	})
	return res
}

func isBool(fl *flag.Flag) bool {
	b, ok := fl.Value.(interface{ IsBoolFlag() bool })
	return ok && b.IsBoolFlag()
}

// arguments predicts the positional arguments of c.
func arguments(c subcommands.Command) complete.Predictor {
	switch c.Name() {
	case "topic":
		topics, _ := docs.All()
		return predict.Set(topics)
	case "import":
		return predict.Files("*.jsonl")
	case "migrate-legacy":
		return predict.Files("*.json")
	}
	if strings.HasSuffix(c.Name(), "rm") {
		return predict.Something
	}
	return nil
}
