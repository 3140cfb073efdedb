// Command sharecored is a thin demonstration harness for the sharecore
// library. It has no RPC client and no Stratum transport of its own: it
// loads an operator config, builds one Job from a synthetic block template,
// prints the mining.notify tuple a real Stratum server would send, then
// simulates a single share submission end to end (hash, difficulty, and,
// if the synthetic target allows it, a serialized block).
package main

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"sharecore"
)

func main() {
	configPath := flag.String("config", "sharecore.toml", "path to the pool's sharecore.toml")
	symbol := flag.String("symbol", "", "coin symbol to build a job for (defaults to the first configured coin)")
	bitsFlag := flag.String("bits", "1effffff", "compact difficulty bits for the synthetic template")
	logDir := flag.String("log-dir", "", "directory for daily-rolling pool/error/debug logs (empty disables file logging)")
	logLevel := flag.String("log-level", "info", "minimum log level: debug, info, warn, or error")
	flag.Parse()

	sharecore.SetLogLevel(*logLevel)
	sharecore.ConfigureLogging(*logDir, true)

	pool, payoutAddress, network, coins, err := sharecore.LoadPoolConfig(*configPath)
	if err != nil {
		sharecore.Fatal("load config", err, "path", *configPath)
	}

	coinSymbol := *symbol
	if coinSymbol == "" {
		coinSymbol = coins[0].Symbol
	}
	coin, err := sharecore.CoinBySymbol(coins, coinSymbol)
	if err != nil {
		sharecore.Fatal("resolve coin", err, "symbol", coinSymbol)
	}

	tpl := syntheticTemplate(*bitsFlag)

	job, err := sharecore.NewJob("demo-1", tpl, coin, pool, payoutAddress, network, 1, true)
	if err != nil {
		sharecore.Fatal("build job", err)
	}

	params := job.StratumParamsTuple()
	fmt.Println("mining.notify params:")
	fmt.Printf("  job_id:              %s\n", params.JobID)
	fmt.Printf("  prevhash (reversed): %s\n", params.PreviousBlockHashReversed)
	fmt.Printf("  coinb1:              %s\n", params.CoinbaseInitial)
	fmt.Printf("  coinb2:              %s\n", params.CoinbaseFinal)
	fmt.Printf("  merkle_branch:       %v\n", params.MerkleBranches)
	fmt.Printf("  version:             %s\n", params.Version)
	fmt.Printf("  bits:                %s\n", params.Bits)
	fmt.Printf("  curtime:             %s\n", params.CurTime)
	fmt.Printf("  clean_jobs:          %v\n", params.IsNew)

	worker := &sharecore.WorkerContext{
		Extranonce1: strings.Repeat("00", pool.Extranonce1Size),
		Difficulty:  1e-6,
	}
	extranonce2 := strings.Repeat("00", pool.Extranonce2Size)
	ntimeHex := params.CurTime
	nonceHex := "00000000"

	share, blockHex, err := job.ProcessShare(worker, extranonce2, ntimeHex, nonceHex, "")
	if err != nil {
		sharecore.Fatal("process share", err)
	}

	fmt.Println("\nsimulated share:")
	fmt.Printf("  height:            %d\n", share.BlockHeight)
	fmt.Printf("  network difficulty: %g\n", share.NetworkDifficulty)
	fmt.Printf("  share difficulty:  %g\n", share.Difficulty)
	fmt.Printf("  block candidate:   %v\n", share.IsBlockCandidate)
	if blockHex != nil {
		fmt.Printf("  block hash:        %s\n", share.BlockHash)
		fmt.Printf("  block hex (%d bytes): %s...\n", len(*blockHex)/2, truncate(*blockHex, 120))
	}
}

// syntheticTemplate fabricates a BlockTemplate that exercises NewJob without
// an RPC connection: an all-zero previous hash, no transactions beyond the
// coinbase, and caller-supplied bits (loose bits make block-candidacy
// observable without real proof-of-work).
func syntheticTemplate(bits string) *sharecore.BlockTemplate {
	return &sharecore.BlockTemplate{
		Height:            1,
		PreviousBlockHash: strings.Repeat("00", 32),
		Version:           0x20000000,
		Bits:              bits,
		CurTime:           time.Now().Unix(),
		CoinbaseValue:     5000000000,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
