package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/garyellow/chatshhs-go/internal/chat"
	"github.com/garyellow/chatshhs-go/internal/neis"
)

func newQueryCmd(opts *rootOptions, open querierFactory) *cobra.Command {
	var (
		dates   []string
		grade   int
		class   int
		field   string
		asJSON  bool
		noCache bool
	)

	kinds := make([]string, 0, len(neis.Kinds()))
	for _, k := range neis.Kinds() {
		kinds = append(kinds, k.String())
	}

	cmd := &cobra.Command{
		Use:       "query <kind>",
		Short:     "Fetch display lines for one kind of data",
		Long:      "Fetch display lines for one kind of data. Kinds: " + strings.Join(kinds, ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: kinds,
		RunE: func(cmd *cobra.Command, args []string) error {
			anchor, err := opts.anchor()
			if err != nil {
				return err
			}

			toolArgs := chat.ToolArgs{Kind: args[0], Dates: dates, Field: field}
			if cmd.Flags().Changed("grade") {
				toolArgs.Grade = strconv.Itoa(grade)
			}
			if cmd.Flags().Changed("class") {
				toolArgs.ClassNumber = strconv.Itoa(class)
			}
			req, err := chat.PrepareQuery(toolArgs, anchor)
			if err != nil {
				return err
			}

			q, release, err := open(cmd.Context(), !noCache)
			if err != nil {
				return err
			}
			defer release()

			lines, queryErr := q.Query(cmd.Context(), req)
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetEscapeHTML(false)
				enc.SetIndent("", "  ")
				if err := enc.Encode(map[string]any{"request": req, "lines": lines}); err != nil {
					return err
				}
			} else {
				for _, l := range lines {
					_, _ = fmt.Fprintln(out, l)
				}
			}
			return queryErr
		},
	}

	cmd.Flags().StringSliceVarP(&dates, "date", "d", nil, "date tokens (YYYYMMDD, 12-25, 내일, ...); repeat or comma-separate")
	cmd.Flags().IntVar(&grade, "grade", 0, "grade (timetable)")
	cmd.Flags().IntVar(&class, "class", 0, "class number (timetable)")
	cmd.Flags().StringVar(&field, "field", "", "school_info field: label, synonym or code")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the request and lines as JSON")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the SQLite response cache")
	return cmd
}
