package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrCodeEU/livegate/pkg/liveness"
	"github.com/MrCodeEU/livegate/pkg/storage"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect the verdict log",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		ids, err := store.ListSessions()
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			fmt.Println("No sessions recorded.")
			return nil
		}

		fmt.Println("Recorded sessions:")
		for _, id := range ids {
			log, err := store.LoadSession(id)
			if err != nil {
				fmt.Printf("  - %s (%v)\n", id, err)
				continue
			}
			verdict := blockColor.Sprint("not live")
			if log.Passed() {
				verdict = passColor.Sprint("live")
			}
			fmt.Printf("  - %s  %s  %3d verdicts  %s\n",
				id, log.StartedAt.Format(time.DateTime), len(log.Verdicts), verdict)
		}
		fmt.Printf("\nTotal: %d session(s)\n", len(ids))
		return nil
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print every verdict of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		log, err := store.LoadSession(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Session %s, started %s\n\n", log.SessionID, log.StartedAt.Format(time.DateTime))
		for _, v := range log.Verdicts {
			res := liveness.Result{
				Outcome:               liveness.Outcome(v.Outcome),
				State:                 liveness.State(v.State),
				Passed:                v.Outcome == string(liveness.OutcomePassed),
				Confidence:            v.Confidence,
				Reasons:               v.Reasons,
				Transient:             v.Transient,
				BlinkDetected:         v.Blink,
				HeadMovementDetected:  v.Head,
				TextureAnalysisPassed: v.Texture,
				FrameVariationPassed:  v.Variation,
			}
			printVerdict(cmd.OutOrStdout(), v.Seq, res)
		}

		var parts []string
		for outcome, n := range log.Summary() {
			parts = append(parts, fmt.Sprintf("%s=%d", outcome, n))
		}
		fmt.Printf("\n%s\n", strings.Join(parts, " "))
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		if err := store.DeleteSession(args[0]); err != nil {
			return err
		}
		fmt.Printf("Session %s has been removed.\n", args[0])
		return nil
	},
}

func openStore() (*storage.FileStorage, error) {
	return storage.NewFileStorage(cfg.Storage.DataDir, cfg.Storage.EncryptionEnabled)
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd, sessionsDeleteCmd)
	rootCmd.AddCommand(sessionsCmd)
}
