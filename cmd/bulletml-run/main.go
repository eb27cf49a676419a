// Command bulletml-run loads a BulletML document, compiles it, and
// drives it headlessly for a fixed number of ticks, logging every
// bullet the pattern fires.
package main

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	bulletml "github.com/tsujio/bulletml-core"
	"github.com/tsujio/bulletml-core/compile"
	"github.com/tsujio/bulletml-core/expr"
	"github.com/tsujio/bulletml-core/internal/headless"
	"github.com/tsujio/bulletml-core/runner"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "bulletml-run",
		Short: "Run a BulletML pattern headlessly and log what it fires",
	}
	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var (
		ticks   int
		rank    float64
		seed    int64
		speed   float64
		targetX float64
		targetY float64
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "run <file.bulletml>",
		Short: "Compile and run a BulletML file for a number of ticks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level := zerolog.InfoLevel
			if verbose {
				level = zerolog.DebugLevel
			}
			log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
				Level(level).
				With().Timestamp().Logger()

			f, err := os.Open(args[0])
			if err != nil {
				log.Error().Err(err).Msg("open")
				return err
			}
			defer f.Close()

			doc, err := bulletml.Load(f)
			if err != nil {
				log.Error().Err(err).Msg("load")
				return err
			}

			compiled, err := compile.Compile(doc)
			if err != nil {
				log.Error().Err(err).Msg("compile")
				return err
			}

			mgr := headless.New(headless.Options{
				Log:          log,
				Rng:          rand.New(rand.NewSource(seed)),
				Target:       headless.FixedTarget{X: targetX, Y: targetY},
				DefaultSpeed: expr.Value(speed),
				Rank:         expr.Value(rank),
			})

			run := runner.New(compiled, mgr)
			active := []*runner.Runner{run}

			ran := 0
			for t := 0; t < ticks; t++ {
				ran++
				for _, r := range active {
					if hm, ok := r.Manager().(*headless.Manager); ok {
						hm.Tick()
					}
				}

				next := make([]*runner.Runner, 0, len(active))
				for _, r := range active {
					if err := r.Update(); err != nil {
						log.Error().Err(err).Int("tick", t).Msg("update")
						return err
					}
					if len(r.Spawned) > 0 {
						log.Debug().Int("count", len(r.Spawned)).Msg("spawned")
						next = append(next, r.Spawned...)
						r.Spawned = nil
					}
					if !r.Done() {
						next = append(next, r)
					}
				}
				active = next

				if len(active) == 0 {
					log.Info().Int("tick", t).Msg("all processes finished")
					break
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "ran %d tick(s), %d process(es) still active\n", ran, len(active))
			return nil
		},
	}

	cmd.Flags().IntVar(&ticks, "ticks", 600, "number of ticks to simulate")
	cmd.Flags().Float64Var(&rank, "rank", 0, "difficulty rank, 0..1")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed")
	cmd.Flags().Float64Var(&speed, "speed", 1, "default bullet speed")
	cmd.Flags().Float64Var(&targetX, "target-x", 0, "aim target x coordinate")
	cmd.Flags().Float64Var(&targetY, "target-y", 0, "aim target y coordinate")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log every fire/vanish event")

	return cmd
}
