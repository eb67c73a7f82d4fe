package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/setheum-labs/evmkit/ethtoken"
)

func newTokenCmd() *cobra.Command {
	c := &token{}
	cmd := &cobra.Command{
		Use:   "token [address]",
		Short: "Show the metadata of an ERC-20 token, and optionally an account balance",
		Long:  "Show the metadata of an ERC-20 token. The address defaults to the SETM token.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  c.Run,
	}
	cmd.Flags().StringP("account", "a", "", "Also show the token balance of this account")
	cmd.Flags().BoolP("json", "j", false, "Print the result as JSON")
	return cmd
}

type token struct {
}

func (c *token) Run(cmd *cobra.Command, args []string) error {
	address := ethtoken.SETMAddress
	if len(args) > 0 {
		if !common.IsHexAddress(args[0]) {
			return fmt.Errorf("invalid token address %q", args[0])
		}
		address = common.HexToAddress(args[0])
	}

	fAccount, _ := cmd.Flags().GetString("account")
	if fAccount != "" && !common.IsHexAddress(fAccount) {
		return fmt.Errorf("invalid account address %q", fAccount)
	}
	fJSON, _ := cmd.Flags().GetBool("json")

	_, log, provider, err := setup(cmd)
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)
	tok := ethtoken.NewToken(address, provider, ethtoken.WithLogger(log))

	info, err := tok.Info(ctx)
	if err != nil {
		return err
	}

	rows := [][2]string{
		{"address", info.Address.Hex()},
		{"name", info.Name},
		{"symbol", info.Symbol},
		{"decimals", fmt.Sprintf("%d", info.Decimals)},
		{"totalSupply", ethtoken.FormatUnits(info.TotalSupply, info.Decimals)},
	}

	out := map[string]any{
		"address":     info.Address.Hex(),
		"name":        info.Name,
		"symbol":      info.Symbol,
		"decimals":    info.Decimals,
		"totalSupply": ethtoken.FormatUnits(info.TotalSupply, info.Decimals),
	}

	if fAccount != "" {
		account := common.HexToAddress(fAccount)
		balance, err := tok.BalanceOf(ctx, account)
		if err != nil {
			return err
		}
		formatted := ethtoken.FormatUnits(balance, info.Decimals)
		rows = append(rows, [2]string{"balance", formatted + " " + info.Symbol})
		out["account"] = account.Hex()
		out["balance"] = formatted
	}

	if fJSON {
		return printJSON(cmd.OutOrStdout(), out)
	}
	return printRows(cmd.OutOrStdout(), rows)
}
