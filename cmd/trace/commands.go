package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmerrifield20/ProvenanceLedger/internal/ledger"
	"github.com/jmerrifield20/ProvenanceLedger/pkg/client"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newClient(autoToken bool) (*client.Client, error) {
	var opts []client.Option
	switch {
	case bearer != "":
		opts = append(opts, client.WithBearerToken(bearer))
	case autoToken:
		opts = append(opts, client.WithAutoToken())
	}
	return client.New(ledgerURL, opts...)
}

// ── submit ───────────────────────────────────────────────────────────────────

var (
	submitRole      string
	submitArgs      []string
	submitAutoToken bool
)

var submitCmd = &cobra.Command{
	Use:   "submit <function>",
	Short: "Submit a lifecycle transaction",
	Long: `Submit invokes one lifecycle function on behalf of an organization role:

  trace submit createAsset --role SUPPLIER --arg id=A1 --arg name=Apples \
      --arg category=Fruit --arg origin=Valley --arg harvestDate=2024-01-01
  trace submit processAsset --role PROCESSOR --arg id=A1 --arg packageId=P1 --arg processTemp=4C

With --auto-token the CLI enrols for the role before submitting, for daemons
that run with identity enabled.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, ok := ledger.ParseRole(submitRole)
		if !ok {
			return fmt.Errorf("unknown role %q (want one of %s)", submitRole, joinRoles())
		}
		fnArgs, err := parseArgs(submitArgs)
		if err != nil {
			return err
		}

		c, err := newClient(submitAutoToken)
		if err != nil {
			return err
		}
		txID, err := c.SubmitTransaction(context.Background(), role, args[0], fnArgs)
		if err != nil {
			return err
		}
		pterm.Success.Printfln("%s committed", args[0])
		fmt.Fprintf(cmd.OutOrStdout(), "tx_id: %s\n", txID)
		return nil
	},
}

func init() {
	submitCmd.Flags().StringVar(&submitRole, "role", "", "acting organization role (required)")
	submitCmd.Flags().StringArrayVar(&submitArgs, "arg", nil, "function argument as key=value (repeatable)")
	submitCmd.Flags().BoolVar(&submitAutoToken, "auto-token", false, "obtain a role token before submitting")
	_ = submitCmd.MarkFlagRequired("role")
}

// parseArgs turns ["k=v", ...] into a map. Later keys win.
func parseArgs(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid --arg %q: want key=value", p)
		}
		out[strings.TrimSpace(k)] = v
	}
	return out, nil
}

func joinRoles() string {
	names := make([]string, len(ledger.Roles))
	for i, r := range ledger.Roles {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}

// ── query ────────────────────────────────────────────────────────────────────

var queryFormat string

var queryCmd = &cobra.Command{
	Use:   "query <asset-id>",
	Short: "Show an asset's current state and full history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(false)
		if err != nil {
			return err
		}
		entry, err := c.QueryAsset(context.Background(), args[0])
		if err != nil {
			return err
		}
		return printEntry(cmd.OutOrStdout(), *entry, queryFormat)
	},
}

func init() {
	queryCmd.Flags().StringVar(&queryFormat, "format", "text", "output format: text, json or yaml")
}

// ── list ─────────────────────────────────────────────────────────────────────

var listFormat string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every tracked asset",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(false)
		if err != nil {
			return err
		}
		assets, err := c.ListAssets(context.Background())
		if err != nil {
			return err
		}
		return printAssets(cmd.OutOrStdout(), assets, listFormat)
	},
}

func init() {
	listCmd.Flags().StringVar(&listFormat, "format", "text", "output format: text, json or yaml")
}

// ── verify ───────────────────────────────────────────────────────────────────

var verifyCmd = &cobra.Command{
	Use:   "verify <asset-id>",
	Short: "Check an asset's hash chain and projection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(false)
		if err != nil {
			return err
		}
		result, err := c.VerifyAsset(context.Background(), args[0])
		if err != nil {
			return err
		}
		if !result.Valid {
			pterm.Error.Printfln("%s failed verification: %s", args[0], result.Error)
			return fmt.Errorf("asset %s is not intact", args[0])
		}
		pterm.Success.Printfln("%s verified", args[0])
		return nil
	},
}

// ── token ────────────────────────────────────────────────────────────────────

var tokenCmd = &cobra.Command{
	Use:   "token <role>",
	Short: "Obtain a role token from the daemon",
	Long: `Token enrols for an organization role and prints the bearer token. Store it
in ~/.trace/config.yaml as "token" or pass it with --token.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(false)
		if err != nil {
			return err
		}
		token, ttl, err := c.IssueToken(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		pterm.Info.Printfln("expires in %s", ttl)
		return nil
	},
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the trace CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "trace %s\n", version)
	},
}
