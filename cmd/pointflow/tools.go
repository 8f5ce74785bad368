package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/warp/pointflow/executor"
	"github.com/warp/pointflow/intent"
	"github.com/warp/pointflow/ledger"
	"github.com/warp/pointflow/rewards"
	"github.com/warp/pointflow/session"
	"github.com/warp/pointflow/store/sqlite"
)

func init() {
	rootCmd.AddCommand(scanCmd, encodeCmd, catalogCmd, ledgersCmd)

	scanCmd.Flags().String("mode", string(intent.ModePay), "Scan mode: pay or redeem")
	scanCmd.Flags().Int64("balance", session.DefaultInitialBalance, "Balance to decide against")

	encodeCmd.Flags().String("mode", string(intent.ModePay), "Mode: pay or redeem")
	encodeCmd.Flags().String("label", "", "Merchant (pay) or option (redeem)")
	encodeCmd.Flags().String("amount", "", "Points")
	_ = encodeCmd.MarkFlagRequired("label")
	_ = encodeCmd.MarkFlagRequired("amount")

	catalogCmd.Flags().String("file", "", "TOML catalog (default: built-in)")

	ledgersCmd.Flags().String("db", "", "SQLite database path")
	ledgersCmd.Flags().Bool("reset", false, "Remove every stored ledger")
	_ = ledgersCmd.MarkFlagRequired("db")
}

// ─── scan ───────────────────────────────────────────────────────────────────

var scanCmd = &cobra.Command{
	Use:   "scan PAYLOAD",
	Short: "Decide a QR payload against a balance",
	Long: `Parse a scanned payload (JSON or pointflow:// URI) and print the decision
the wallet would make against --balance. Nothing is stored.`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	rawMode, _ := cmd.Flags().GetString("mode")
	balance, _ := cmd.Flags().GetInt64("balance")

	mode, err := intent.ParseMode(rawMode)
	if err != nil {
		return err
	}
	in, err := intent.Parse(args[0], mode)
	if err != nil {
		return errors.New(executor.UserMessage(err))
	}

	res, err := executor.New().Execute(in, ledger.NewState(balance, nil))
	if err != nil {
		return errors.New(executor.UserMessage(err))
	}
	return printJSON(cmd.OutOrStdout(), res)
}

// ─── encode ─────────────────────────────────────────────────────────────────

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Print the pointflow:// URI for a payment or redemption",
	Args:  cobra.NoArgs,
	RunE:  runEncode,
}

func runEncode(cmd *cobra.Command, _ []string) error {
	rawMode, _ := cmd.Flags().GetString("mode")
	label, _ := cmd.Flags().GetString("label")
	rawAmount, _ := cmd.Flags().GetString("amount")

	mode, err := intent.ParseMode(rawMode)
	if err != nil {
		return err
	}
	amount, err := decimal.NewFromString(rawAmount)
	if err != nil || !amount.IsPositive() {
		return fmt.Errorf("%w: %q", ledger.ErrInvalidAmount, rawAmount)
	}

	var in intent.Intent = intent.Pay{Merchant: label, Amount: amount}
	if mode == intent.ModeRedeem {
		in = intent.Redeem{Option: label, Amount: amount}
	}
	fmt.Fprintln(cmd.OutOrStdout(), intent.Encode(in))
	return nil
}

// ─── catalog ────────────────────────────────────────────────────────────────

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Print the rewards catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, _ := cmd.Flags().GetString("file")
		c, err := rewards.LoadCatalog(path)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), c)
	},
}

// ─── ledgers ────────────────────────────────────────────────────────────────

var ledgersCmd = &cobra.Command{
	Use:   "ledgers",
	Short: "List or reset the wallet ledgers in a database",
	Long: `List the wallets that have a ledger in the SQLite database. With --reset
every ledger is removed; run it while the server is stopped.`,
	Args: cobra.NoArgs,
	RunE: runLedgers,
}

func runLedgers(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("db")
	reset, _ := cmd.Flags().GetBool("reset")

	s, err := sqlite.New(path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer s.Close()

	ctx := cmd.Context()
	wallets, err := s.Wallets(ctx)
	if err != nil {
		return err
	}
	if !reset {
		return printJSON(cmd.OutOrStdout(), wallets)
	}
	if err := s.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset ledgers: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %d ledgers\n", len(wallets))
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
