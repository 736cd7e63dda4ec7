// Package main is the entry point for hostagentctl, a connective-tissue
// CLI client exercising host.Remote. The original source shipped no such
// binary — its only consumers were other Rust programs linking the core
// crate directly — so this is a SPEC_FULL supplement, grounded in the
// teacher's cmd/llmrouter layout (one main.go wiring config/flags into a
// constructed object and a run path).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/petehayes102/hostagent/host"
	"github.com/petehayes102/hostagent/request"
)

func main() {
	var addr string

	root := &cobra.Command{
		Use:   "hostagentctl",
		Short: "hostagentctl talks to a hostagentd over the wire protocol",
	}
	root.PersistentFlags().StringVar(&addr, "host", "localhost:7670", "host:port of the hostagentd to connect to")

	root.AddCommand(
		execCmd(&addr),
		packageCmd(&addr),
		serviceCmd(&addr),
		telemetryCmd(&addr),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func connect(ctx context.Context, addr string) (*host.Remote, error) {
	return host.Connect(ctx, addr)
}

func execCmd(addr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "exec -- <command> [args...]",
		Short: "run a command on the remote host and stream its output",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			r, err := connect(ctx, *addr)
			if err != nil {
				return err
			}
			defer r.Close()

			resp, err := r.Request(ctx, request.CommandExec{Cmd: args})
			if err != nil {
				return err
			}
			return streamChild(resp)
		},
	}
}

func packageCmd(addr *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "package",
		Short: "query or mutate packages on the remote host",
	}
	cmd.AddCommand(
		packageSubcommand(addr, "installed", func(name string) request.Request {
			return request.PackageInstalled{Name: name}
		}, true),
		packageSubcommand(addr, "install", func(name string) request.Request {
			return request.PackageInstall{Name: name}
		}, false),
		packageSubcommand(addr, "uninstall", func(name string) request.Request {
			return request.PackageUninstall{Name: name}
		}, false),
	)
	return cmd
}

func packageSubcommand(addr *string, use string, build func(string) request.Request, isQuery bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <name>",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd.Context(), *addr, build(args[0]), isQuery)
		},
	}
}

func serviceCmd(addr *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "query or mutate services on the remote host",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:  "running <name>",
			Args: cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runRequest(cmd.Context(), *addr, request.ServiceRunning{Name: args[0]}, true)
			},
		},
		&cobra.Command{
			Use:  "action <name> <start|stop|restart>",
			Args: cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runRequest(cmd.Context(), *addr, request.ServiceAction{Name: args[0], Action: args[1]}, false)
			},
		},
		&cobra.Command{
			Use:  "enabled <name>",
			Args: cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runRequest(cmd.Context(), *addr, request.ServiceEnabled{Name: args[0]}, true)
			},
		},
		&cobra.Command{
			Use:  "enable <name>",
			Args: cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runRequest(cmd.Context(), *addr, request.ServiceEnable{Name: args[0]}, false)
			},
		},
		&cobra.Command{
			Use:  "disable <name>",
			Args: cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runRequest(cmd.Context(), *addr, request.ServiceDisable{Name: args[0]}, false)
			},
		},
	)
	return cmd
}

func telemetryCmd(addr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "telemetry",
		Short: "print the remote host's telemetry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd.Context(), *addr, request.TelemetryLoad{}, true)
		},
	}
}

// runRequest connects, issues req, and prints its result. isQuery
// requests always carry a Value; the package/service action requests
// carry a streaming Child instead.
func runRequest(ctx context.Context, addr string, req request.Request, isQuery bool) error {
	r, err := connect(ctx, addr)
	if err != nil {
		return err
	}
	defer r.Close()

	resp, err := r.Request(ctx, req)
	if err != nil {
		return err
	}

	if isQuery {
		fmt.Println(string(resp.Value))
		return nil
	}
	return streamChild(resp)
}

func streamChild(resp request.Response) error {
	if resp.Child == nil {
		fmt.Println(string(resp.Value))
		return nil
	}
	for line := range resp.Child.Lines() {
		w := os.Stdout
		if line.Stderr {
			w = os.Stderr
		}
		fmt.Fprintln(w, line.Text)
	}
	status, err := resp.Child.Wait(context.Background())
	if err != nil {
		return err
	}
	if !status.Success {
		code := -1
		if status.Code != nil {
			code = *status.Code
		}
		os.Exit(code)
	}
	return nil
}
