// Command rpowcli is the RPOW client: it mints Hashcash stamps, exchanges
// them for signed RPOW tokens, and manages the resulting wallet.
package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"rpow.dev/client/config"
	"rpow.dev/client/exchange"
	"rpow.dev/client/hashcash"
	"rpow.dev/client/keymgr"
	"rpow.dev/client/ledger"
	"rpow.dev/client/planner"
	"rpow.dev/client/rpow"
	"rpow.dev/client/wallet"
)

var nowFn = func() time.Time { return time.Now().UTC() }

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// Exit codes: 0 success, 1 usage/IO/key error, 2 domain error (wallet blob
// missing, invalid input format). A signer transport failure exits with 1
// or 2 like any other error of its command; no other exit value is used.
const (
	exitOK     = 0
	exitUsage  = 1
	exitDomain = 2
)

func run(args []string, stdout, stderr io.Writer) int {
	defaults := config.ApplyEnv(config.DefaultConfig())

	fs := flag.NewFlagSet("rpowcli", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfg := defaults
	fs.StringVar(&cfg.SignerAddr, "signer", defaults.SignerAddr, "signer service base URL")
	fs.StringVar(&cfg.DataDir, "datadir", defaults.DataDir, "client data directory")
	fs.StringVar(&cfg.LogLevel, "log-level", defaults.LogLevel, "log level: debug|info|warn|error")
	fs.Int64Var(&cfg.AnonPeriod, "anon-period", defaults.AnonPeriod, "anonymizing time offset window, in seconds")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	cfg = cfg.WithDerivedPaths()
	if err := config.ValidateConfig(cfg); err != nil {
		fmt.Fprintf(stderr, "invalid config: %v\n", err)
		return exitUsage
	}
	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		fmt.Fprintf(stderr, "datadir create failed: %v\n", err)
		return exitUsage
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fmt.Fprintln(stderr, "usage: rpowcli [flags] <command> [args]")
		return exitUsage
	}
	cmd, cmdArgs := rest[0], rest[1:]

	led, err := ledger.Open(cfg.LedgerPath)
	if err != nil {
		fmt.Fprintf(stderr, "ledger open failed: %v\n", err)
		return exitUsage
	}
	defer led.Close()

	signer := exchange.NewClient(cfg.SignerAddr, 30*time.Second)
	keys := keymgr.New(cfg.KeyPath)

	switch cmd {
	case "getkeys":
		return cmdGetKeys(cfg, keys, signer, stdout, stderr)
	case "rekey":
		return cmdRekey(keys, signer, stdout, stderr)
	case "status":
		return cmdStatus(signer, led, stdout, stderr)
	case "gen":
		return cmdGen(cfg, signer, led, cmdArgs, stdout, stderr)
	case "gencontin":
		return cmdGenContin(cfg, signer, led, stdout, stderr)
	case "exchange":
		return cmdExchange(cfg, signer, led, cmdArgs, stdout, stderr)
	case "consolidate":
		return cmdConsolidate(cfg, signer, led, stdout, stderr)
	case "in":
		return cmdIn(cfg, signer, led, stdin(), stdout, stderr)
	case "out":
		return cmdOut(cfg, signer, led, cmdArgs, stdout, stderr)
	case "count":
		return cmdCount(cfg, stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		return exitUsage
	}
}

func stdin() io.Reader { return os.Stdin }

func openWallet(cfg config.Config, stderr io.Writer) (*wallet.Store, int, bool) {
	w, err := wallet.Open(cfg.WalletPath)
	if err != nil {
		fmt.Fprintf(stderr, "wallet open failed: %v\n", err)
		return nil, exitUsage, false
	}
	return w, 0, true
}

func newOrchestrator(cfg config.Config, signer exchange.Signer, led *ledger.Ledger, stderr io.Writer) (*exchange.Orchestrator, int, bool) {
	w, code, ok := openWallet(cfg, stderr)
	if !ok {
		return nil, code, false
	}
	return &exchange.Orchestrator{Wallet: w, Signer: signer, Ledger: led}, 0, true
}

func cmdGetKeys(cfg config.Config, keys *keymgr.Manager, signer exchange.Signer, stdout, stderr io.Writer) int {
	if err := os.Remove(cfg.WalletPath); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(stderr, "wallet removal failed: %v\n", err)
		return exitUsage
	}
	if err := keys.FetchAndStore(context.Background(), signer); err != nil {
		fmt.Fprintf(stderr, "getkeys failed: %v\n", err)
		return exitUsage
	}
	fmt.Fprintln(stdout, "signer keys fetched; wallet reset")
	return exitOK
}

func cmdRekey(keys *keymgr.Manager, signer exchange.Signer, stdout, stderr io.Writer) int {
	if err := keys.FetchAndStore(context.Background(), signer); err != nil {
		fmt.Fprintf(stderr, "rekey failed: %v\n", err)
		return exitUsage
	}
	fmt.Fprintln(stdout, "signer keys refreshed; wallet preserved")
	return exitOK
}

func cmdStatus(signer exchange.Signer, led *ledger.Ledger, stdout, stderr io.Writer) int {
	stat, err := signer.GetStat(context.Background())
	if err != nil {
		fmt.Fprintf(stderr, "status failed: %v\n", err)
		return exitUsage
	}
	fmt.Fprintf(stdout, "signer: keys_generated=%d exchanges_done=%d uptime_seconds=%d\n",
		stat.KeysGenerated, stat.ExchangesDone, stat.Uptime)

	entries, err := led.Recent(10)
	if err != nil {
		fmt.Fprintf(stderr, "ledger read failed: %v\n", err)
		return exitUsage
	}
	for _, e := range entries {
		fmt.Fprintf(stdout, "ledger: time=%d kind=%s ins=%v outs=%v ok=%v err=%q\n",
			e.Time, e.Kind, e.Ins, e.Outs, e.OK, e.Err)
	}
	return exitOK
}

func cmdGen(cfg config.Config, signer exchange.Signer, led *ledger.Ledger, args []string, stdout, stderr io.Writer) int {
	value, ok := parseValue(args, stderr)
	if !ok {
		return exitUsage
	}
	orch, code, ok := newOrchestrator(cfg, signer, led, stderr)
	if !ok {
		return code
	}
	if err := planner.Generate(context.Background(), orch, value, nowFn()); err != nil {
		fmt.Fprintf(stderr, "gen failed: %v\n", err)
		return exitDomain
	}
	fmt.Fprintf(stdout, "generated one RPOW of value %d\n", value)
	return exitOK
}

func cmdGenContin(cfg config.Config, signer exchange.Signer, led *ledger.Ledger, stdout, stderr io.Writer) int {
	orch, code, ok := newOrchestrator(cfg, signer, led, stderr)
	if !ok {
		return code
	}
	for {
		if err := planner.RunContinuousBatch(context.Background(), orch, led, nowFn); err != nil {
			fmt.Fprintf(stderr, "gencontin batch failed: %v\n", err)
			return exitDomain
		}
		fmt.Fprintln(stdout, "gencontin: batch complete")
	}
}

func cmdExchange(cfg config.Config, signer exchange.Signer, led *ledger.Ledger, args []string, stdout, stderr io.Writer) int {
	ins, outs, ok := parseExchangeArgs(args, stderr)
	if !ok {
		return exitUsage
	}
	orch, code, ok := newOrchestrator(cfg, signer, led, stderr)
	if !ok {
		return code
	}
	blobs, err := orch.Exchange(context.Background(), ins, outs)
	if err != nil {
		fmt.Fprintf(stderr, "exchange failed: %v\n", err)
		return exitDomain
	}
	fmt.Fprintf(stdout, "exchange succeeded: received %d new RPOW(s)\n", len(blobs))
	return exitOK
}

func cmdConsolidate(cfg config.Config, signer exchange.Signer, led *ledger.Ledger, stdout, stderr io.Writer) int {
	orch, code, ok := newOrchestrator(cfg, signer, led, stderr)
	if !ok {
		return code
	}
	if err := planner.Consolidate(context.Background(), orch, orch.Wallet); err != nil {
		fmt.Fprintf(stderr, "consolidate failed: %v\n", err)
		return exitDomain
	}
	fmt.Fprintln(stdout, "consolidation plan applied")
	return exitOK
}

func cmdIn(cfg config.Config, signer exchange.Signer, led *ledger.Ledger, in io.Reader, stdout, stderr io.Writer) int {
	raw, err := io.ReadAll(in)
	if err != nil {
		fmt.Fprintf(stderr, "read stdin failed: %v\n", err)
		return exitUsage
	}
	var incoming rpow.Blob
	if strings.HasPrefix(string(raw), "1:") {
		// A raw Hashcash stamp rather than an already-signed RPOW: its
		// claimed bits stand in for a nominal value until the exchange
		// below trades it for a properly signed token of that value.
		token := strings.TrimSpace(string(raw))
		fields, perr := hashcash.Parse(token)
		if perr != nil {
			fmt.Fprintf(stderr, "invalid incoming hashcash stamp: %v\n", perr)
			return exitDomain
		}
		incoming = rpow.Blob{Value: int8(fields.Bits), Payload: []byte(token)}
	} else {
		decoded, derr := base64.StdEncoding.DecodeString(strings.TrimSpace(string(raw)))
		if derr != nil {
			fmt.Fprintf(stderr, "invalid incoming rpow format\n")
			return exitDomain
		}
		blob, _, derr := rpow.Decode(decoded)
		if derr != nil {
			fmt.Fprintf(stderr, "invalid incoming rpow format: %v\n", derr)
			return exitDomain
		}
		incoming = blob
	}

	orch, code, ok := newOrchestrator(cfg, signer, led, stderr)
	if !ok {
		return code
	}
	if err := orch.Wallet.Append(incoming); err != nil {
		fmt.Fprintf(stderr, "wallet append failed: %v\n", err)
		return exitUsage
	}
	blobs, err := orch.Exchange(context.Background(), []int8{incoming.Value}, []int8{incoming.Value})
	if err != nil {
		fmt.Fprintf(stderr, "re-sign exchange failed: %v\n", err)
		return exitDomain
	}
	if len(blobs) == 1 {
		fmt.Fprintf(stdout, "received rpow item of value %d\n", blobs[0].Value)
	}
	return exitOK
}

func cmdOut(cfg config.Config, signer exchange.Signer, led *ledger.Ledger, args []string, stdout, stderr io.Writer) int {
	value, ok := parseValue(args, stderr)
	if !ok {
		return exitUsage
	}
	orch, code, ok := newOrchestrator(cfg, signer, led, stderr)
	if !ok {
		return code
	}

	blob, found, err := orch.Wallet.TakeByValue(value)
	if err != nil {
		fmt.Fprintf(stderr, "wallet read failed: %v\n", err)
		return exitUsage
	}
	if !found {
		if err := planner.Break(context.Background(), orch, orch.Wallet, value); err != nil {
			fmt.Fprintf(stderr, "unable to find RPOW of value %d: %v\n", value, err)
			return exitDomain
		}
		blob, found, err = orch.Wallet.TakeByValue(value)
		if err != nil || !found {
			fmt.Fprintf(stderr, "unable to find RPOW of value %d after break\n", value)
			return exitDomain
		}
	}

	enc, err := rpow.Encode(blob)
	if err != nil {
		fmt.Fprintf(stderr, "encode failed: %v\n", err)
		return exitUsage
	}
	fmt.Fprintln(stdout, base64.StdEncoding.EncodeToString(enc))
	return exitOK
}

func cmdCount(cfg config.Config, stdout, stderr io.Writer) int {
	w, code, ok := openWallet(cfg, stderr)
	if !ok {
		return code
	}
	counts, err := w.CountByValue()
	if err != nil {
		fmt.Fprintf(stderr, "count failed: %v\n", err)
		return exitUsage
	}
	values, err := w.Values()
	if err != nil {
		fmt.Fprintf(stderr, "count failed: %v\n", err)
		return exitUsage
	}
	for _, v := range values {
		fmt.Fprintf(stdout, "value=%d count=%d\n", v, counts[v])
	}
	return exitOK
}

func parseValue(args []string, stderr io.Writer) (int8, bool) {
	if len(args) != 1 {
		fmt.Fprintln(stderr, "expected exactly one value argument")
		return 0, false
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < rpow.ValueMin || n > rpow.ValueMax {
		fmt.Fprintf(stderr, "invalid value %q\n", args[0])
		return 0, false
	}
	return int8(n), true
}

// parseExchangeArgs splits "v1 v2 ... 0 w1 w2 ..." into input and output
// value vectors at the first literal "0" separator.
func parseExchangeArgs(args []string, stderr io.Writer) (ins, outs []int8, ok bool) {
	sep := -1
	for i, a := range args {
		if a == "0" {
			sep = i
			break
		}
	}
	if sep < 0 {
		fmt.Fprintln(stderr, "expected a '0' separator between inputs and outputs")
		return nil, nil, false
	}
	ins, ok = parseValues(args[:sep], stderr)
	if !ok {
		return nil, nil, false
	}
	outs, ok = parseValues(args[sep+1:], stderr)
	if !ok {
		return nil, nil, false
	}
	return ins, outs, true
}

func parseValues(args []string, stderr io.Writer) ([]int8, bool) {
	out := make([]int8, 0, len(args))
	for _, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil || n < rpow.ValueMin || n > rpow.ValueMax {
			fmt.Fprintf(stderr, "invalid value %q\n", a)
			return nil, false
		}
		out = append(out, int8(n))
	}
	return out, true
}
