package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/kaleido-biosciences/cabinet-client/internal/constants"
	"github.com/kaleido-biosciences/cabinet-client/pkg/cabinet"
)

// render writes v in format. JSON and YAML encode v directly; the table
// format is left to table.
func render(w io.Writer, format string, v any, table func(io.Writer) error) error {
	switch format {
	case constants.FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")

		return encoder.Encode(v)
	case constants.FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(constants.JSONIndentSize)

		err := encoder.Encode(v)
		if err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}

		return encoder.Close()
	case constants.FormatTable, "":
		return table(w)
	default:
		return fmt.Errorf("%w: %q", constants.ErrInvalidOutputFormat, format)
	}
}

func renderDocuments(w io.Writer, format string, docs []cabinet.Document) error {
	return render(w, format, docs, func(w io.Writer) error {
		return renderTable(w, docs)
	})
}

// renderProperties prints name/value pairs as a two-column table.
func renderProperties(w io.Writer, rows [][]string) error {
	table := tablewriter.NewWriter(w)
	table.Header("Property", "Value")

	for _, row := range rows {
		_ = table.Append(row)
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func renderTable(w io.Writer, docs []cabinet.Document) error {
	if len(docs) == 0 {
		_, err := fmt.Fprintln(w, "No results")

		return err
	}

	columns := documentColumns(docs)

	header := make([]any, len(columns))
	for i, column := range columns {
		header[i] = column
	}

	table := tablewriter.NewWriter(w)
	table.Header(header...)

	for _, doc := range docs {
		row := make([]string, len(columns))

		for i, column := range columns {
			if _, ok := doc[column]; !ok {
				row[i] = constants.NotAvailable

				continue
			}

			row[i] = doc.String(column)
		}

		_ = table.Append(row)
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

// documentColumns returns every key seen, id first and the rest sorted.
func documentColumns(docs []cabinet.Document) []string {
	seen := map[string]struct{}{}

	for _, doc := range docs {
		for key := range doc {
			seen[key] = struct{}{}
		}
	}

	columns := make([]string, 0, len(seen))

	for key := range seen {
		if key != constants.FieldID {
			columns = append(columns, key)
		}
	}

	sort.Strings(columns)

	if _, ok := seen[constants.FieldID]; ok {
		columns = append([]string{constants.FieldID}, columns...)
	}

	return columns
}
