package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/setheum-labs/evmkit/ethcoder"
	"github.com/setheum-labs/evmkit/ethtxn"
)

// quantity flags and the intent field each one sets
var intentQuantityFlags = []struct {
	flag string
	set  func(*ethtxn.TransactionIntent, string)
}{
	{"nonce", func(t *ethtxn.TransactionIntent, v string) { t.Nonce = v }},
	{"tip", func(t *ethtxn.TransactionIntent, v string) { t.Tip = v }},
	{"value", func(t *ethtxn.TransactionIntent, v string) { t.Value = v }},
	{"gas-limit", func(t *ethtxn.TransactionIntent, v string) { t.GasLimit = v }},
	{"storage-limit", func(t *ethtxn.TransactionIntent, v string) { t.StorageLimit = v }},
	{"valid-until", func(t *ethtxn.TransactionIntent, v string) { t.ValidUntil = v }},
	{"chain-id", func(t *ethtxn.TransactionIntent, v string) { t.ChainID = v }},
}

func newTypedDataCmd() *cobra.Command {
	c := &typedData{}
	cmd := &cobra.Command{
		Use:   "typed-data",
		Short: "Build the EIP-712 Transaction document of a transaction intent",
		Long: "Build the EIP-712 Transaction document of a transaction intent read from\n" +
			"--intent (a JSON file, or - for stdin) and/or the per-field flags. Flags\n" +
			"override fields of the intent file.",
		Args: cobra.NoArgs,
		RunE: c.Run,
	}

	flags := cmd.Flags()
	flags.StringP("intent", "i", "", "Transaction intent JSON file, - reads stdin")
	flags.String("action", "", "Call or Create")
	flags.String("to", "", "Callee address")
	for _, q := range intentQuantityFlags {
		flags.String(q.flag, "", fmt.Sprintf("The %s, decimal or 0x-prefixed hex", q.flag))
	}
	flags.String("data", "", "Calldata, 0x-prefixed hex")
	flags.String("salt", "", "Domain salt, 0x-prefixed hex")
	flags.Bool("fill", false, "Fill a missing chain id and nonce from the node")
	flags.String("from", "", "Sender address used by --fill for the pending nonce")
	flags.Bool("digest", false, "Also print the EIP-712 digest")

	return cmd
}

type typedData struct {
}

func (c *typedData) Run(cmd *cobra.Command, args []string) error {
	intent, err := c.readIntent(cmd)
	if err != nil {
		return err
	}

	fFill, err := cmd.Flags().GetBool("fill")
	if err != nil {
		return err
	}
	if fFill {
		fFrom, _ := cmd.Flags().GetString("from")
		if !common.IsHexAddress(fFrom) {
			return errors.New("--fill needs a valid --from address")
		}
		_, log, provider, err := setup(cmd)
		if err != nil {
			return err
		}
		intent, err = ethtxn.FillIntent(commandContext(cmd), provider, common.HexToAddress(fFrom), intent)
		if err != nil {
			return err
		}
		log.Debug("filled intent from node")
	}

	td, err := ethtxn.NewTypedData(intent)
	if err != nil {
		return err
	}

	fDigest, err := cmd.Flags().GetBool("digest")
	if err != nil {
		return err
	}
	if !fDigest {
		return printJSON(cmd.OutOrStdout(), td)
	}

	digest, err := td.EncodeDigest()
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), struct {
		TypedData *ethcoder.TypedData `json:"typedData"`
		Digest    string              `json:"digest"`
	}{td, ethcoder.HexEncode(digest)})
}

func (c *typedData) readIntent(cmd *cobra.Command) (*ethtxn.TransactionIntent, error) {
	flags := cmd.Flags()
	intent := &ethtxn.TransactionIntent{}

	fIntent, _ := flags.GetString("intent")
	if fIntent != "" {
		var (
			data []byte
			err  error
		)
		if fIntent == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(fIntent)
		}
		if err != nil {
			return nil, fmt.Errorf("read intent: %w", err)
		}
		if intent, err = ethtxn.ParseIntentJSON(data); err != nil {
			return nil, err
		}
	}

	if flags.Changed("action") {
		intent.Action, _ = flags.GetString("action")
	}
	if flags.Changed("to") {
		fTo, _ := flags.GetString("to")
		if !common.IsHexAddress(fTo) {
			return nil, fmt.Errorf("invalid --to address %q", fTo)
		}
		to := common.HexToAddress(fTo)
		intent.To = &to
	}
	for _, q := range intentQuantityFlags {
		if flags.Changed(q.flag) {
			v, _ := flags.GetString(q.flag)
			q.set(intent, v)
		}
	}
	for _, name := range []string{"data", "salt"} {
		if !flags.Changed(name) {
			continue
		}
		v, _ := flags.GetString(name)
		b, err := ethcoder.HexDecode(v)
		if err != nil {
			return nil, fmt.Errorf("invalid --%s: %w", name, err)
		}
		if name == "data" {
			intent.Data = b
		} else {
			intent.Salt = b
		}
	}
	return intent, nil
}
