// Command kernel boots the rtkernel core and drives its tick loop. It
// is the ambient "board config" surface the spec never defines a
// syscall for: pool size, tick period, and log verbosity are flags, not
// kernel state.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tenok-go/rtkernel/internal/condrv"
	"github.com/tenok-go/rtkernel/internal/kernel"
	"github.com/tenok-go/rtkernel/internal/klog"
)

// normalizeFlag accepts underscore-separated flags as their
// dash-separated equivalent (e.g. --pool_bytes == --pool-bytes), the
// way kubectl's and grafana-cli's root commands do.
func normalizeFlag(f *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

func init() {
	kernel.RegisterDriver(condrv.Init)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		poolBytes  int
		tickPeriod time.Duration
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "kernel",
		Short: "Boot the rtkernel core and run its tick loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := klog.New(verbose)
			if err != nil {
				return errors.Wrap(err, "kernel: building logger")
			}
			defer log.Sync() //nolint:errcheck

			k, err := kernel.Boot(kernel.Config{
				PoolBytes: poolBytes,
				Logger:    log,
			})
			if err != nil {
				return errors.Wrap(err, "kernel: boot")
			}

			log.Info("boot complete, entering tick loop")
			ticker := time.NewTicker(tickPeriod)
			defer ticker.Stop()
			for range ticker.C {
				k.Tick()
				k.Schedule()
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.SetNormalizeFunc(normalizeFlag)
	flags.IntVar(&poolBytes, "pool-bytes", 1<<20, "kernel object pool size in bytes")
	flags.DurationVar(&tickPeriod, "tick-period", 10*time.Millisecond, "periodic timer interrupt period")
	flags.BoolVar(&verbose, "verbose", false, "enable debug-level logging")

	return cmd
}
