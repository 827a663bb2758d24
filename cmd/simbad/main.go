// Copyright 2018 The klaytn Authors
// This file is part of the klaytn library.
//
// The klaytn library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The klaytn library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the klaytn library. If not, see <http://www.gnu.org/licenses/>.

// simbad is the command-line entry point for the simulator (§6 "CLI
// surface"). It ships a small set of built-in protocol/network
// configurations in lieu of a disk-backed config loader, runs one
// simulation to completion, and prints the resulting ChainMetrics.
//
// Grounded on cmd/kcn/main.go's app-with-flags shape (github.com/urfave/cli).
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"

	"github.com/ground-x/simba/log"
	"github.com/ground-x/simba/simulation"
)

var logger = log.NewModuleLogger(log.Simulation)

var (
	protocolFlag = cli.StringFlag{
		Name:  "protocol",
		Value: "nakamoto-pow",
		Usage: "name of the protocol configuration to run",
	}
	networkFlag = cli.StringFlag{
		Name:  "network",
		Value: "small-full",
		Usage: "name of the network configuration to run",
	}
	runtimeFlag = cli.Uint64Flag{
		Name:  "runtime",
		Value: 60,
		Usage: "run length in seconds after warmup",
	}
	warmupFlag = cli.Uint64Flag{
		Name:  "warmup",
		Value: 10,
		Usage: "warmup length in seconds before statistics collection begins",
	}
	rateFlag = cli.Uint64Flag{
		Name:  "rate",
		Value: 1000,
		Usage: "wall-clock rate limit in per-mille (1000 == real time, 0 == paused)",
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "simbad"
	app.Usage = "discrete-event blockchain consensus simulator"
	app.Flags = []cli.Flag{protocolFlag, networkFlag, runtimeFlag, warmupFlag, rateFlag}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	lib := defaultLibrary()

	sim, err := simulation.New(lib, ctx.String("protocol"), ctx.String("network"), 0)
	if err != nil {
		return err
	}

	sim.SetTimeout(simulation.Timeout{
		Kind:    simulation.TimeoutSeconds,
		Warmup:  ctx.Uint64("warmup"),
		Runtime: ctx.Uint64("runtime"),
	})
	sim.SetRateLimit(uint32(ctx.Uint64("rate")))

	logger.Info("starting simulation", "protocol", ctx.String("protocol"), "network", ctx.String("network"))
	if err := sim.Start(); err != nil {
		return err
	}
	sim.WaitForStop()

	m, err := sim.GlobalStatistics()
	if err != nil {
		return err
	}
	printMetrics(m)
	sim.Destroy()
	return nil
}

func printMetrics(m simulation.ChainMetrics) {
	fmt.Printf("elapsed_seconds:             %.2f\n", m.ElapsedSeconds)
	fmt.Printf("total_blocks_mined:          %d\n", m.TotalBlocksMined)
	fmt.Printf("total_blocks_accepted:       %d\n", m.TotalBlocksAccepted)
	fmt.Printf("longest_chain_length:        %d\n", m.LongestChainLength)
	fmt.Printf("avg_block_interval_seconds:  %.3f\n", m.AvgBlockIntervalSeconds)
	fmt.Printf("num_transactions:            %d\n", m.NumTransactions)
	fmt.Printf("avg_latency_millis:          %.2f\n", m.AvgLatencyMillis)
	fmt.Printf("avg_block_propagation_ms:    %.2f\n", m.AvgBlockPropagationMillis)
	fmt.Printf("avg_block_size_bytes:        %.1f\n", m.AvgBlockSizeBytes)
	fmt.Printf("num_network_messages:        %d\n", m.NumNetworkMessages)
	fmt.Printf("throughput_tx_per_sec:       %.2f\n", m.Throughput())
	fmt.Printf("win_rate:                    %.3f\n", m.WinRate())
	fmt.Printf("orphan_rate:                 %.4f\n", m.OrphanRate())
}

// defaultLibrary seeds a handful of representative protocol/network
// configurations, enough to exercise every protocol kind from the
// command line without a config-file loader.
func defaultLibrary() *simulation.MapLibrary {
	lib := simulation.NewMapLibrary()

	lib.AddNetwork(simulation.Network{
		Name:              "small-full",
		Kind:              simulation.RandomNetwork,
		NumMining:         10,
		NumNonMining:      0,
		LinkLatencyMillis: 100,
		LinkBandwidthBps:  0,
		NodeBandwidthBps:  10_000_000,
		Connectivity:      simulation.Full,
	})
	lib.AddNetwork(simulation.Network{
		Name:              "large-sparse",
		Kind:              simulation.RandomNetwork,
		NumMining:         100,
		NumNonMining:      0,
		LinkLatencyMillis: 150,
		LinkBandwidthBps:  0,
		NodeBandwidthBps:  10_000_000,
		Connectivity:      simulation.Sparse,
		MinConnsPerNode:   8,
	})

	lib.AddProtocol(simulation.Protocol{
		Name: "nakamoto-pow",
		Kind: simulation.NakamotoConsensus,
		BlockGeneration: simulation.NakamotoBlockGeneration{
			Kind:                       simulation.ProofOfWork,
			TargetBlockIntervalSeconds: 12,
			InitialDifficulty:          1 << 20,
			Adjustment:                 simulation.EthereumHomestead,
			WindowSize:                 10,
		},
		MaxBlockSize: 1 << 20,
		CommitDelay:  6,
	})
	lib.AddProtocol(simulation.Protocol{
		Name: "nakamoto-ouroboros",
		Kind: simulation.NakamotoConsensus,
		BlockGeneration: simulation.NakamotoBlockGeneration{
			Kind:             simulation.Ouroboros,
			SlotLengthMillis: 1000,
			EpochLengthSlots: 100,
		},
		MaxBlockSize: 1 << 20,
		CommitDelay:  2,
	})
	lib.AddProtocol(simulation.Protocol{
		Name:                   "pbft",
		Kind:                   simulation.PracticalBFT,
		MaxBlockIntervalMillis: 2000,
		MaxBlockSize:           1 << 20,
	})
	lib.AddProtocol(simulation.Protocol{
		Name:             "gossip",
		Kind:             simulation.GossipProtocol,
		RetryDelayMillis: 500,
		BlockSizeBytes:   1 << 20,
	})
	lib.AddProtocol(simulation.Protocol{
		Name:                   "snowball",
		Kind:                   simulation.SnowballProtocol,
		AcceptanceThreshold:    120,
		SampleSizeWeighted:     0.1,
		QueryThresholdWeighted: 0.8,
	})

	return lib
}
