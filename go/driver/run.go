// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"encoding/binary"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/Fantom-foundation/Tempo/go/examples"
	"github.com/Fantom-foundation/Tempo/go/state/memory"
	"github.com/Fantom-foundation/Tempo/go/tempo"
	"github.com/dsnet/golib/unitconv"
	"github.com/urfave/cli/v2"
	"golang.org/x/exp/maps"
	"pgregory.net/rand"

	_ "github.com/Fantom-foundation/Tempo/go/executor/sequential"
	_ "github.com/Fantom-foundation/Tempo/go/executor/stm"
)

var RunCmd = cli.Command{
	Action:    doRun,
	Name:      "run",
	Usage:     "Run a synthetic workload on a block runner",
	ArgsUsage: "<RUNNER>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "workload",
			Usage: "workload to generate, one of counter, transfer, mixer",
			Value: "counter",
		},
		&cli.IntFlag{
			Name:  "jobs",
			Usage: "number of worker goroutines, 0 uses all CPUs",
		},
		&cli.IntFlag{
			Name:  "blocks",
			Usage: "number of blocks to execute",
			Value: 100,
		},
		&cli.IntFlag{
			Name:  "transactions",
			Usage: "number of transactions per block",
			Value: 1000,
		},
		&cli.Float64Flag{
			Name:  "conflict-rate",
			Usage: "fraction of transactions touching a shared hot spot",
			Value: 0.1,
		},
		&cli.Uint64Flag{
			Name:  "seed",
			Usage: "seed for the random number generator",
		},
		&cli.StringFlag{
			Name:  "cpuprofile",
			Usage: "store CPU profile in the provided filename",
		},
	},
}

// workload bundles a transaction runner with a generator producing blocks
// for it and the state the generated transactions operate on.
type workload struct {
	runner   tempo.TransactionRunner
	state    *memory.State
	generate func(r *rand.Rand, size int, conflictRate float64) []tempo.Transaction
}

var workloads = map[string]func() workload{
	"counter":  counterWorkload,
	"transfer": transferWorkload,
	"mixer":    mixerWorkload,
}

func doRun(context *cli.Context) error {
	if cpuprofileFilename := context.String("cpuprofile"); cpuprofileFilename != "" {
		f, err := os.Create(cpuprofileFilename)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	var runnerIdentifier string
	if context.Args().Len() >= 1 {
		runnerIdentifier = context.Args().Get(0)
	}
	if tempo.GetBlockRunnerFactory(runnerIdentifier) == nil {
		return fmt.Errorf("invalid runner identifier, use one of: %v",
			maps.Keys(tempo.GetAllRegisteredBlockRunners()))
	}

	newWorkload, ok := workloads[context.String("workload")]
	if !ok {
		return fmt.Errorf("invalid workload, use one of: %v", maps.Keys(workloads))
	}
	load := newWorkload()

	jobCount := context.Int("jobs")
	if jobCount <= 0 {
		jobCount = runtime.NumCPU()
	}

	blockRunner, err := tempo.NewBlockRunner(runnerIdentifier, load.runner, tempo.Config{
		NumWorkers: jobCount,
	})
	if err != nil {
		return err
	}

	numBlocks := context.Int("blocks")
	blockSize := context.Int("transactions")
	conflictRate := context.Float64("conflict-rate")
	r := rand.New(context.Uint64("seed"))

	fmt.Printf("Running %d blocks of %d transactions on %s with %d jobs ...\n",
		numBlocks, blockSize, runnerIdentifier, jobCount)

	var executed int64
	start := time.Now()
	lastReport := start
	for i := 0; i < numBlocks; i++ {
		transactions := load.generate(r, blockSize, conflictRate)
		result, err := blockRunner.Run(tempo.BlockParameters{
			BlockNumber: int64(i),
			Timestamp:   time.Now().Unix(),
		}, transactions, load.state)
		if err != nil {
			return fmt.Errorf("block %d failed: %w", i, err)
		}
		for _, outcome := range result.Outcomes {
			load.state.Apply(outcome.Writes)
		}
		executed += int64(len(transactions))

		if now := time.Now(); now.Sub(lastReport) >= time.Second {
			relativeTime := now.Sub(start)
			rate := float64(executed) / relativeTime.Seconds()
			fmt.Printf("[t=%4d:%02d] - Processing ~%s transactions per second, total %d\n",
				int(relativeTime.Seconds())/60, int(relativeTime.Seconds())%60,
				unitconv.FormatPrefix(rate, unitconv.SI, 0), executed)
			lastReport = now
		}
	}

	duration := time.Since(start)
	rate := float64(executed) / duration.Seconds()
	usage := load.state.Usage()
	fmt.Printf("Executed %d transactions in %v (~%s transactions per second)\n",
		executed, duration.Round(time.Millisecond),
		unitconv.FormatPrefix(rate, unitconv.SI, 0))
	fmt.Printf("Final state holds %d items in %sB\n",
		usage.Items, unitconv.FormatPrefix(float64(usage.Bytes), unitconv.SI, 1))
	return nil
}

func counterWorkload() workload {
	return workload{
		runner: examples.Counter{},
		state:  memory.NewState(),
		generate: func(r *rand.Rand, size int, conflictRate float64) []tempo.Transaction {
			transactions := make([]tempo.Transaction, size)
			for i := range transactions {
				var slot tempo.Hash
				if r.Float64() >= conflictRate {
					binary.BigEndian.PutUint64(slot[:], r.Uint64())
				}
				transactions[i] = examples.NewCounterTransaction(slot, r.Uint64n(100))
			}
			return transactions
		},
	}
}

func transferWorkload() workload {
	const numAccounts = 1000
	state := memory.NewState()
	hot := driverAccount(0)
	for i := 0; i < numAccounts; i++ {
		balance := make([]byte, 32)
		binary.BigEndian.PutUint64(balance[24:], 1_000_000)
		state.Set(examples.BalanceKey(driverAccount(i)), balance)
	}
	return workload{
		runner: examples.Transfer{},
		state:  state,
		generate: func(r *rand.Rand, size int, conflictRate float64) []tempo.Transaction {
			transactions := make([]tempo.Transaction, size)
			for i := range transactions {
				sender := driverAccount(1 + r.Intn(numAccounts-1))
				recipient := hot
				if r.Float64() >= conflictRate {
					recipient = driverAccount(1 + r.Intn(numAccounts-1))
				}
				transactions[i] = examples.NewTransferTransaction(sender, recipient, r.Uint64n(10))
			}
			return transactions
		},
	}
}

func mixerWorkload() workload {
	state := memory.NewState()
	state.SetCode(examples.MixerContract, examples.MixerCode)
	return workload{
		runner: examples.Mixer{},
		state:  state,
		generate: func(r *rand.Rand, size int, conflictRate float64) []tempo.Transaction {
			transactions := make([]tempo.Transaction, size)
			for i := range transactions {
				seed := uint64(0)
				if r.Float64() >= conflictRate {
					seed = r.Uint64()
				}
				transactions[i] = examples.NewMixerTransaction(seed)
			}
			return transactions
		},
	}
}

func driverAccount(i int) tempo.Address {
	var address tempo.Address
	binary.BigEndian.PutUint64(address[12:], uint64(i))
	return address
}
