package commands

import (
	"fmt"
	"slices"
	"strings"

	"github.com/kaleido-biosciences/cabinet-client/internal/constants"
	"github.com/kaleido-biosciences/cabinet-client/pkg/cabinet"
)

var knownOperators = []cabinet.Operator{
	cabinet.OpEquals,
	cabinet.OpNotEquals,
	cabinet.OpSpecified,
	cabinet.OpIn,
	cabinet.OpNotIn,
	cabinet.OpGreaterThan,
	cabinet.OpLessThan,
	cabinet.OpGreaterThanOrEqual,
	cabinet.OpLessThanOrEqual,
	cabinet.OpContains,
	cabinet.OpDoesNotContain,
}

// parseFilter reads field=value or field.operator=value. A dotted field
// whose last segment is not an operator, such as study.name=x, is an
// equality filter on the whole field.
func parseFilter(raw string) (cabinet.Filter, error) {
	parts := strings.SplitN(raw, "=", constants.KeyValueSplitParts)
	if len(parts) != constants.KeyValueSplitParts || parts[0] == "" {
		return cabinet.Filter{}, fmt.Errorf("%w: %q", constants.ErrInvalidFilter, raw)
	}

	field, value := parts[0], parts[1]

	dot := strings.LastIndex(field, ".")
	if dot < 0 {
		return cabinet.Equals(field, value), nil
	}

	op := cabinet.Operator(field[dot+1:])
	if !slices.Contains(knownOperators, op) {
		return cabinet.Equals(field, value), nil
	}

	if field[:dot] == "" {
		return cabinet.Filter{}, fmt.Errorf("%w: %q", constants.ErrInvalidFilter, raw)
	}

	return cabinet.Where(field[:dot], op, value), nil
}

// parseFilters keeps the order the filters were given in.
func parseFilters(raw []string) (cabinet.FilterSpec, error) {
	spec := cabinet.NewFilterSpec()

	for _, r := range raw {
		filter, err := parseFilter(r)
		if err != nil {
			return nil, err
		}

		spec = append(spec, filter)
	}

	return spec, nil
}
