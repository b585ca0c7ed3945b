package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var (
	baseURL     string
	httpTimeout time.Duration
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "routeplayctl",
		Short: "Command line client for the Route Playground gateway",
		Long: `routeplayctl lists routing backends, submits routing problems (sync or async),
	polls jobs and runs map matching against a running gateway.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&baseURL, "base-url", envOr("ROUTEPLAY_URL", "http://localhost:8080"), "gateway base URL")
	root.PersistentFlags().DurationVar(&httpTimeout, "http-timeout", 35*time.Minute, "HTTP client timeout")

	root.AddCommand(serversCmd())
	root.AddCommand(solveCmd())
	root.AddCommand(jobCmd())
	root.AddCommand(matchCmd())
	return root
}

func serversCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "servers",
		Short: "List configured routing backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := newClient(baseURL, httpTimeout).servers(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tDESCRIPTION\tURL")
			for _, s := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\n", s.Name, s.Description, s.URL)
			}
			return w.Flush()
		},
	}
}

func solveCmd() *cobra.Command {
	var (
		p    solveParams
		wait bool
	)
	cmd := &cobra.Command{
		Use:   "solve <server> <request.json|->",
		Short: "Submit a routing request to one backend",
		Long: `Sends the request file (or stdin with "-") to /solve/<server>.

	With --async the job handle is printed; add --wait to poll until the job finishes.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readInput(cmd.InOrStdin(), args[1])
			if err != nil {
				return err
			}
			c := newClient(baseURL, httpTimeout)
			out, err := c.solve(cmd.Context(), args[0], body, p)
			if err != nil {
				return err
			}
			if p.Async && wait {
				id, _ := out["id"].(string)
				if id == "" {
					return fmt.Errorf("gateway returned no job id")
				}
				out, err = c.waitJob(cmd.Context(), id, time.Second)
				if err != nil {
					return err
				}
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().IntVar(&p.Timeout, "timeout", 0, "solve timeout in seconds (10..1800, server default 300)")
	cmd.Flags().BoolVar(&p.Async, "async", false, "run as an async job")
	cmd.Flags().StringVar(&p.CallbackURL, "callback-url", "", "URL to notify when the async job finishes")
	cmd.Flags().BoolVar(&wait, "wait", false, "with --async, poll until the job finishes")
	return cmd
}

func jobCmd() *cobra.Command {
	var wait bool
	cmd := &cobra.Command{
		Use:   "job <id>",
		Short: "Show an async job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(baseURL, httpTimeout)
			var (
				out map[string]any
				err error
			)
			if wait {
				out, err = c.waitJob(cmd.Context(), args[0], time.Second)
			} else {
				out, err = c.job(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "poll until the job finishes")
	return cmd
}

func matchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "match <trajectory.json|->",
		Short: "Map-match a GPS trajectory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			out, err := newClient(baseURL, httpTimeout).match(cmd.Context(), body)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return b, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
