package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	api     string
	prefix  string
	timeout time.Duration
	json    bool
}

func newRootCmd(out io.Writer) *cobra.Command {
	var flags rootFlags
	rootCmd := &cobra.Command{
		Use:           "changelogctl",
		Short:         "CLI client for the changelog REST API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)
	rootCmd.PersistentFlags().StringVarP(&flags.api, "api", "a", "http://localhost:8080", "Changelog service base URL")
	rootCmd.PersistentFlags().StringVar(&flags.prefix, "prefix", "/v1", "API prefix of the changelog routes")
	rootCmd.PersistentFlags().DurationVar(&flags.timeout, "timeout", 10*time.Second, "Request timeout")
	rootCmd.PersistentFlags().BoolVar(&flags.json, "json", false, "Print raw JSON")

	client := func() *Client { return NewClient(flags.api, flags.prefix, flags.timeout) }

	rootCmd.AddCommand(newAddCmd(&flags, client), newListCmd(&flags, client), newHealthCmd(client))
	return rootCmd
}

func newAddCmd(flags *rootFlags, client func() *Client) *cobra.Command {
	var (
		text        string
		tags        []string
		description string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append a changelog entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("--text required")
			}
			var desc *string
			if cmd.Flags().Changed("description") {
				desc = &description
			}
			e, err := client().AddEntry(cmd.Context(), text, tags, desc)
			if err != nil {
				return err
			}
			if flags.json {
				return writeJSON(cmd.OutOrStdout(), e)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", e.ID, e.CreatedAt.Format(time.RFC3339))
			return err
		},
	}
	cmd.Flags().StringVarP(&text, "text", "t", "", "Entry text, markdown allowed (required)")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag; repeat or comma separate for several")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Longer description")
	_ = cmd.MarkFlagRequired("text")
	return cmd
}

func newListCmd(flags *rootFlags, client func() *Client) *cobra.Command {
	var (
		limit  int
		before string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the changelog, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			var beforeTime *time.Time
			if before != "" {
				dt, err := strfmt.ParseDateTime(before)
				if err != nil {
					return fmt.Errorf("--before must be an RFC3339 timestamp: %w", err)
				}
				t := time.Time(dt)
				beforeTime = &t
			}
			entries, err := client().ListEntries(cmd.Context(), limit, beforeTime)
			if err != nil {
				return err
			}
			if flags.json {
				return writeJSON(cmd.OutOrStdout(), entries)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.CreatedAt.Format(time.RFC3339), e.ID, strings.Join(e.Tags, ","), e.Text)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of entries")
	cmd.Flags().StringVar(&before, "before", "", "Only entries created before this RFC3339 timestamp")
	return cmd
}

func newHealthCmd(client func() *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check service liveness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := client().Health(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), body)
			return err
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
