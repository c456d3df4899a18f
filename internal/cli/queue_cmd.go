package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boostv/optimizer-core/internal/applier"
	"github.com/boostv/optimizer-core/internal/logger"
	"github.com/boostv/optimizer-core/internal/queue"
	"github.com/boostv/optimizer-core/internal/store"
	"github.com/spf13/cobra"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Queue management",
}

var queueStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show queued optimizer requests and results in Redis",
	RunE: func(cmd *cobra.Command, args []string) error {
		rdb, err := connectRedis()
		if err != nil {
			return err
		}
		defer rdb.Close()

		ctx := context.Background()
		q := queue.New(rdb)

		requests, results, err := q.Status(ctx)
		if err != nil {
			return fmt.Errorf("queue status: %w", err)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Queue Status:\n")
		fmt.Fprintf(w, "  %s: %d\n", queue.StreamRequests, requests)
		fmt.Fprintf(w, "  %s:  %d\n", queue.StreamResults, results)
		return nil
	},
}

var queuePushCmd = &cobra.Command{
	Use:   "push <experiment-id>",
	Short: "Send a stored experiment to the optimizer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		pool, err := connectDB(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()
		rdb, err := connectRedis()
		if err != nil {
			return err
		}
		defer rdb.Close()

		e, err := store.New(pool).Load(ctx, args[0])
		if err != nil {
			return err
		}
		q := queue.New(rdb)
		if err := q.EnsureStreams(ctx); err != nil {
			return err
		}
		msg := queue.NewRequestMessage(e)
		if _, err := q.PushRequest(ctx, msg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Queued request %s for %s (hash %s)\n", msg.RequestID, e.ID, msg.Hash)
		return nil
	},
}

var queuePopCmd = &cobra.Command{
	Use:   "pop",
	Short: "Take one optimizer request off the queue and print it",
	Long:  "Take one optimizer request off the queue and print it. Used by optimizer workers that are not Redis consumers themselves.",
	RunE: func(cmd *cobra.Command, args []string) error {
		consumer, _ := cmd.Flags().GetString("consumer")
		wait, _ := cmd.Flags().GetDuration("wait")

		rdb, err := connectRedis()
		if err != nil {
			return err
		}
		defer rdb.Close()

		ctx := context.Background()
		q := queue.New(rdb)
		if err := q.EnsureStreams(ctx); err != nil {
			return err
		}
		msg, id, err := q.ReadRequest(ctx, consumer, blockFor(wait))
		if errors.Is(err, queue.ErrNoMessages) {
			fmt.Fprintln(cmd.ErrOrStderr(), "(no requests)")
			return nil
		}
		if err != nil {
			return err
		}
		if err := writeJSON(cmd, "-", msg); err != nil {
			return err
		}
		return q.AckRequest(ctx, id)
	},
}

var queueApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Register the next optimizer result on its stored experiment",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, cleanup, err := newApplier(ctx, cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		wait, _ := cmd.Flags().GetDuration("wait")
		out, err := a.ApplyNext(ctx, blockFor(wait))
		if errors.Is(err, queue.ErrNoMessages) {
			fmt.Fprintln(cmd.ErrOrStderr(), "(no results)")
			return nil
		}
		if errors.Is(err, applier.ErrOutdated) {
			return fmt.Errorf("%w; push a new request or use --force", err)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Applied result %s to %s: %d suggestion(s)\n", out.ResultID, out.ExperimentID, out.Suggestions)
		return nil
	},
}

var queueWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Apply optimizer results continuously until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, cleanup, err := newApplier(ctx, cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		log := logger.Get("cli")
		log.Info().Msg("watching optimizer results")
		if err := a.Consume(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

// newApplier connects to Postgres and Redis and builds an applier from the
// command's --consumer and --force flags.
func newApplier(ctx context.Context, cmd *cobra.Command) (*applier.Applier, func(), error) {
	consumer, _ := cmd.Flags().GetString("consumer")
	force, _ := cmd.Flags().GetBool("force")

	pool, err := connectDB(ctx)
	if err != nil {
		return nil, nil, err
	}
	rdb, err := connectRedis()
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	cleanup := func() {
		rdb.Close()
		pool.Close()
	}

	q := queue.New(rdb)
	if err := q.EnsureStreams(ctx); err != nil {
		cleanup()
		return nil, nil, err
	}
	a := applier.New(q, store.New(pool), newReducer(),
		applier.WithConsumer(consumer),
		applier.WithForce(force),
	)
	return a, cleanup, nil
}

// blockFor maps a --wait of zero to a non-blocking read.
func blockFor(wait time.Duration) time.Duration {
	if wait <= 0 {
		return -1
	}
	return wait
}

func init() {
	for _, c := range []*cobra.Command{queuePopCmd, queueApplyCmd, queueWatchCmd} {
		c.Flags().String("consumer", "boost-cli", "Consumer name within the group")
	}
	for _, c := range []*cobra.Command{queuePopCmd, queueApplyCmd} {
		c.Flags().Duration("wait", 0, "How long to wait for a message (0 returns immediately)")
	}
	for _, c := range []*cobra.Command{queueApplyCmd, queueWatchCmd} {
		c.Flags().Bool("force", false, "Apply results even when the experiment changed after the request")
	}

	queueCmd.AddCommand(queueStatusCmd)
	queueCmd.AddCommand(queuePushCmd)
	queueCmd.AddCommand(queuePopCmd)
	queueCmd.AddCommand(queueApplyCmd)
	queueCmd.AddCommand(queueWatchCmd)
}
