// Command kernelctl is a thin diagnostic front-end over the kernel
// library: it boots an in-process instance, drives its tick loop for a
// bounded number of ticks, then dumps scheduler and queue stats. The
// spec has no network stack (§ Non-goals), so "a running kernel
// instance" here means this process's own, not one attached to over a
// wire.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/tenok-go/rtkernel/internal/kernel"
	"github.com/tenok-go/rtkernel/internal/klog"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kernelctl",
		Short: "Inspect rtkernel scheduler and queue state",
	}
	cmd.AddCommand(newStatsCmd())
	return cmd
}

func newStatsCmd() *cobra.Command {
	var ticks int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Boot a kernel, run it for a bounded number of ticks, and print a snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := kernel.Boot(kernel.Config{Logger: klog.Nop()})
			if err != nil {
				return errors.Wrap(err, "kernelctl: boot")
			}

			for i := 0; i < ticks; i++ {
				k.Tick()
				k.Schedule()
				time.Sleep(time.Millisecond)
			}

			s := k.Stats()
			fmt.Printf("ticks:            %d\n", s.Ticks)
			fmt.Printf("tasks in use:     %d\n", s.TasksInUse)
			fmt.Printf("running pid:      %d\n", s.RunningTaskPID)
			fmt.Printf("sleep list len:   %d\n", s.SleepListLen)
			fmt.Printf("message queues:   %d\n", s.MessageQueues)
			fmt.Printf("mutexes:          %d\n", s.Mutexes)
			for pri, n := range s.ReadyPerPrio {
				if n > 0 {
					fmt.Printf("ready[%d]:         %d\n", pri, n)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&ticks, "ticks", 50, "number of timer ticks to run before reporting")
	return cmd
}
