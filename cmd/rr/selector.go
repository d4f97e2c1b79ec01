package main

import (
	"errors"

	"github.com/spf13/pflag"

	"github.com/usestring/raceresult-go/pkg/client"
	"github.com/usestring/raceresult-go/pkg/query"
)

// selectorFlags select the rows of a table.
type selectorFlags struct {
	filter string
	bib    int
	pid    int
}

func (s *selectorFlags) register(f *pflag.FlagSet) {
	f.StringVarP(&s.filter, "filter", "f", "", "Filter expression, e.g. '[Contest]=1'")
	f.IntVar(&s.bib, "bib", 0, "Only the participant with this bib")
	f.IntVar(&s.pid, "pid", 0, "Only the participant with this ID")
}

func (s *selectorFlags) selector() (query.Selector, error) {
	sel := query.Selector{Filter: s.filter}
	switch {
	case s.bib != 0 && s.pid != 0:
		return sel, errors.New("--bib and --pid are mutually exclusive")
	case s.bib != 0:
		sel.Participant = client.ByBib(s.bib)
	case s.pid != 0:
		sel.Participant = client.ByPID(s.pid)
	}
	return sel, nil
}
