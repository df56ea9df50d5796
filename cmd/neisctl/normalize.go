package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/garyellow/chatshhs-go/internal/schooldate"
)

func newNormalizeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <text>...",
		Short: "Show relative-date rewriting and per-token YYYYMMDD forms",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			anchor, err := opts.anchor()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			text := strings.Join(args, " ")

			_, _ = fmt.Fprintf(out, "today\t%s (%s)\n", schooldate.Compact(anchor), schooldate.WeekdayName(anchor))
			_, _ = fmt.Fprintf(out, "rewritten\t%s\n", schooldate.RewriteRelative(text, anchor))
			for _, tok := range args {
				d, ok := schooldate.NormalizeToken(tok, anchor)
				if !ok {
					d = "-"
				}
				_, _ = fmt.Fprintf(out, "token\t%s\t%s\n", tok, d)
			}
			return nil
		},
	}
}
