package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var (
	networkProxies   map[string]string
	networkClear     bool
	networkTimeout   float64
	networkNoTimeout bool
	networkDeadline  float64
)

func init() {
	networkSetCmd.Flags().StringToStringVar(&networkProxies, "proxy", nil, "Proxy per scheme, e.g. https=http://10.10.1.10:1080 (repeatable)")
	networkSetCmd.Flags().BoolVar(&networkClear, "clear-proxies", false, "Remove all configured proxies")
	networkSetCmd.Flags().Float64Var(&networkTimeout, "timeout", 0, "Connect timeout in seconds")
	networkSetCmd.Flags().BoolVar(&networkNoTimeout, "no-timeout", false, "Wait for connections indefinitely")
	networkSetCmd.Flags().Float64Var(&networkDeadline, "deadline", 0, "Total seconds allowed per sync or install (0 disables)")
	networkSetCmd.MarkFlagsMutuallyExclusive("timeout", "no-timeout")
	networkCmd.AddCommand(networkSetCmd)
	rootCmd.AddCommand(networkCmd)
}

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Show transport settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		n := newService().Configuration().Network
		out := cmd.OutOrStdout()

		if n.ConnectTimeout() == 0 {
			fmt.Fprintln(out, "Connect timeout: none")
		} else {
			fmt.Fprintf(out, "Connect timeout: %s\n", n.ConnectTimeout())
		}
		if d := n.OperationDeadline(); d == 0 {
			fmt.Fprintln(out, "Operation deadline: none")
		} else {
			fmt.Fprintf(out, "Operation deadline: %s\n", d)
		}
		if len(n.Proxies) == 0 {
			fmt.Fprintln(out, "Proxies: from environment")
			return nil
		}
		schemes := make([]string, 0, len(n.Proxies))
		for scheme := range n.Proxies {
			schemes = append(schemes, scheme)
		}
		sort.Strings(schemes)
		fmt.Fprintln(out, "Proxies:")
		for _, scheme := range schemes {
			fmt.Fprintf(out, "  %s = %s\n", scheme, n.Proxies[scheme])
		}
		return nil
	},
}

var networkSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change proxies, connect timeout or operation deadline",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := newService()
		n := svc.Configuration().Network

		if networkClear {
			n.Proxies = nil
		}
		if len(networkProxies) > 0 {
			if n.Proxies == nil {
				n.Proxies = map[string]string{}
			}
			for scheme, proxy := range networkProxies {
				n.Proxies[scheme] = proxy
			}
		}
		switch {
		case networkNoTimeout:
			n.Timeout = nil
		case cmd.Flags().Changed("timeout"):
			if networkTimeout <= 0 {
				return fmt.Errorf("timeout must be positive, use --no-timeout to disable it")
			}
			t := networkTimeout
			n.Timeout = &t
		}
		if cmd.Flags().Changed("deadline") {
			d := networkDeadline
			n.Deadline = &d
		}

		if err := svc.SetNetwork(n); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Network settings saved.")
		return nil
	},
}
