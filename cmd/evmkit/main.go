package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	VERSION       = "dev"
	GITBRANCH     = "branch"
	GITCOMMIT     = "last commit"
	GITCOMMITDATE = "last change"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "evmkit",
		Short:         "evmkit - Setheum EVM typed-data and token toolkit",
		Long:          banner(),
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Path to a config file (default ./evmkit.{yaml,toml,json})")
	flags.StringP("network", "n", "", "Network name or chain id from the config file")
	flags.StringP("rpc-url", "r", "", "The RPC endpoint of the node to interact with")
	flags.String("log-level", "", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(
		newTypedDataCmd(),
		newTokenCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "print the version number",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), "evmkit", version())
			},
		},
	)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func version() string {
	if GITBRANCH == "master" {
		return fmt.Sprintf("%s (commit:%s %s)", VERSION, GITCOMMIT, GITCOMMITDATE)
	}
	return fmt.Sprintf("%s (commit:%s %s %s)", VERSION, GITCOMMIT, GITCOMMITDATE, GITBRANCH)
}

func banner() string {
	s := ""
	s += "==========================================\n"
	s += "  evmkit - Setheum EVM developer toolkit\n"
	s += "==========================================\n"
	return s
}
