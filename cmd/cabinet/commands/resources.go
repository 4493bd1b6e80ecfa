package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kaleido-biosciences/cabinet-client/pkg/cabinet"
)

// NewGetCommand creates the get command
func NewGetCommand() *cobra.Command {
	var method string

	cmd := &cobra.Command{
		Use:   "get RESOURCE ID",
		Short: "Get one entity",
		Long: `Get one entity by identifier, e.g. "cabinet get plate-maps 12".

With --by the second argument is looked up through a named lookup endpoint
instead, e.g. "cabinet get plate-maps --by label PM-0001" requests
plate-maps/label/PM-0001.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			return withDocuments(ctx, args[0], func(docs cabinet.ResourceClient[cabinet.Document]) error {
				var (
					doc cabinet.Document
					err error
				)

				if method != "" {
					doc, err = docs.FindOneByMethod(ctx, method, args[1])
				} else {
					id, parseErr := parseID(args[1])
					if parseErr != nil {
						return parseErr
					}

					doc, err = docs.Find(ctx, id)
				}

				if err != nil {
					return err
				}

				return renderDocuments(cmd.OutOrStdout(), viper.GetString("output"), []cabinet.Document{doc})
			})
		},
	}

	cmd.Flags().StringVar(&method, "by", "", "look up through {resource}/{by}/{value} instead of by identifier")

	return cmd
}

// NewListCommand creates the list command
func NewListCommand() *cobra.Command {
	var (
		filters []string
		page    int
		size    int
		first   bool
	)

	cmd := &cobra.Command{
		Use:   "list RESOURCE",
		Short: "List entities",
		Long: `List entities, optionally filtered by criteria.

Each --filter is field=value or field.operator=value and filters are sent in
the order given, e.g.

  cabinet list plate-maps --filter name.contains=PM --filter status=ACTIVE`,
		Aliases: []string{"ls"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := parseFilters(filters)
			if err != nil {
				return err
			}

			ctx := cmd.Context()

			return withDocuments(ctx, args[0], func(docs cabinet.ResourceClient[cabinet.Document]) error {
				var results []cabinet.Document

				if first {
					doc, err := docs.FindFirstByFieldsWithOperators(ctx, spec)
					if err != nil {
						return err
					}

					results = []cabinet.Document{doc}
				} else {
					results, err = docs.FindByFieldsWithOperators(ctx, spec, cabinet.Page(page, size))
					if err != nil {
						return err
					}
				}

				return renderDocuments(cmd.OutOrStdout(), viper.GetString("output"), results)
			})
		},
	}

	cmd.Flags().StringArrayVarP(&filters, "filter", "f", nil, "criteria filter, field=value or field.operator=value (repeatable)")
	cmd.Flags().IntVar(&page, "page", 0, "page index")
	cmd.Flags().IntVar(&size, "size", 0, "page size (0 returns every result)")
	cmd.Flags().BoolVar(&first, "first", false, "return only the first match")

	return cmd
}

// NewSearchCommand creates the search command
func NewSearchCommand() *cobra.Command {
	var (
		page int
		size int
	)

	cmd := &cobra.Command{
		Use:   "search RESOURCE TERM",
		Short: "Free-text search",
		Long:  "Search a resource through the free-text search endpoint",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			return withDocuments(ctx, args[0], func(docs cabinet.ResourceClient[cabinet.Document]) error {
				results, err := docs.Search(ctx, args[1], cabinet.Page(page, size))
				if err != nil {
					return err
				}

				return renderDocuments(cmd.OutOrStdout(), viper.GetString("output"), results)
			})
		},
	}

	cmd.Flags().IntVar(&page, "page", 0, "page index")
	cmd.Flags().IntVar(&size, "size", 0, "page size (0 returns every result)")

	return cmd
}

// NewDeleteCommand creates the delete command
func NewDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete RESOURCE ID",
		Short: "Delete an entity",
		Long:  "Delete one entity by identifier",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}

			ctx := cmd.Context()

			return withDocuments(ctx, args[0], func(docs cabinet.ResourceClient[cabinet.Document]) error {
				err := docs.Delete(ctx, id)
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s %d\n", args[0], id)

				return nil
			})
		},
	}
}
