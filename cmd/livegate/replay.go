package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/MrCodeEU/livegate/pkg/camera"
	"github.com/MrCodeEU/livegate/pkg/face"
	"github.com/MrCodeEU/livegate/pkg/facebox"
	"github.com/MrCodeEU/livegate/pkg/landmark"
	"github.com/MrCodeEU/livegate/pkg/liveness"
	"github.com/MrCodeEU/livegate/pkg/logging"
)

var replayOpts struct {
	Landmarks   string
	FPS         float64
	AssumeLive  bool
	ByTimestamp bool
	Box         string
	Profile     string
	Verbose     bool
}

var replayCmd = &cobra.Command{
	Use:   "replay <frames-dir>",
	Short: "Run the liveness engine over recorded frames and landmarks",
	Long: `Replay feeds every image in a directory (in name order) through a fresh
liveness session, using landmarks recorded as JSON Lines. Frames are spaced
at --fps. Recorded frames are reported as a non-live stream unless
--assume-live is set.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVarP(&replayOpts.Landmarks, "landmarks", "l", "", "Landmark recording (default <frames-dir>/landmarks.jsonl)")
	replayCmd.Flags().Float64Var(&replayOpts.FPS, "fps", 30, "Frame rate used to timestamp frames")
	replayCmd.Flags().BoolVar(&replayOpts.AssumeLive, "assume-live", false, "Report the recording as a live camera")
	replayCmd.Flags().BoolVar(&replayOpts.ByTimestamp, "by-timestamp", false, "Match landmark records on ts instead of order")
	replayCmd.Flags().StringVarP(&replayOpts.Box, "box", "b", "", "Fixed face box x,y,w,h instead of running the detector")
	replayCmd.Flags().StringVarP(&replayOpts.Profile, "profile", "p", "", "Threshold profile: desktop or mobile")
	replayCmd.Flags().BoolVarP(&replayOpts.Verbose, "verbose", "v", false, "Print every verdict")
	rootCmd.AddCommand(replayCmd)
}

// replaySummary aggregates a replay run.
type replaySummary struct {
	Frames    int
	Counts    map[liveness.Outcome]int
	FirstPass int
	Last      liveness.Result
	Duration  time.Duration
	Engine    time.Duration
	LogWrite  time.Duration
}

func runReplay(cmd *cobra.Command, args []string) error {
	dir := args[0]
	if replayOpts.Profile != "" {
		cfg.Liveness.Profile = replayOpts.Profile
	}

	landmarksPath := replayOpts.Landmarks
	if landmarksPath == "" {
		landmarksPath = filepath.Join(dir, "landmarks.jsonl")
	}
	replay, err := landmark.LoadReplay(landmarksPath)
	if err != nil {
		return err
	}
	replay.ByTimestamp = replayOpts.ByTimestamp

	src := camera.NewDirectory(dir, replayOpts.FPS)
	src.AssumeLive = replayOpts.AssumeLive
	if err := src.Open(cmd.Context()); err != nil {
		return err
	}
	defer func() { _ = src.Close() }()
	replay.Start, replay.FPS = src.Start, src.FPS

	var (
		fixed    face.Box
		detector facebox.Detector
	)
	if replayOpts.Box != "" {
		if fixed, err = parseBox(replayOpts.Box); err != nil {
			return err
		}
	} else {
		if detector, err = newDetector(cfg); err != nil {
			return fmt.Errorf("failed to load face detector (or pass --box): %w", err)
		}
		defer func() { _ = detector.Close() }()
	}

	id := uuid.NewString()
	session, err := newSession(cfg, replay, src, id)
	if err != nil {
		return fmt.Errorf("failed to create liveness session: %w", err)
	}
	defer func() { _ = session.Close() }()

	rec := newRecorder(session, nil)
	if store, err := newStore(cfg); err != nil {
		logging.Warnf("Verdict log disabled: %v", err)
	} else if store != nil {
		rec.store = store
	}

	bar := progressbar.NewOptions(src.Len(),
		progressbar.OptionSetDescription("Replaying"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)

	start := time.Now()
	summary := replaySummary{Counts: rec.counts}
	ctx := cmd.Context()
	for {
		frame, err := src.Read(ctx)
		if errors.Is(err, camera.ErrEndOfStream) {
			break
		}
		if err != nil {
			return err
		}

		box := fixed
		if detector != nil {
			if b, ok, err := detector.Detect(ctx, frame.Image); err != nil {
				logging.Warnf("Face detection failed on frame %d: %v", frame.Seq, err)
			} else if ok {
				box = b
			} else {
				box = face.Box{}
			}
		}

		res := rec.DetectLiveness(ctx, frame.Image, frame.Timestamp, box)
		summary.Frames++
		summary.Last = res
		if replayOpts.Verbose {
			_ = bar.Clear()
			printVerdict(os.Stdout, summary.Frames, res)
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)

	summary.FirstPass = rec.firstHit
	summary.Engine, summary.LogWrite = rec.tickCost()
	summary.Duration = time.Since(start)
	printSummary(id, summary)

	if summary.FirstPass == 0 {
		return &exitError{code: 1, msg: "no live verdict in recording"}
	}
	return nil
}

func printSummary(id string, s replaySummary) {
	fmt.Printf("Session:   %s\n", id)
	fmt.Printf("Frames:    %d in %v\n", s.Frames, s.Duration.Round(time.Millisecond))
	fmt.Printf("Waiting:   %d\n", s.Counts[liveness.OutcomeWaiting])
	fmt.Printf("Blocked:   %d\n", s.Counts[liveness.OutcomeBlocked])
	fmt.Printf("Passed:    %d\n", s.Counts[liveness.OutcomePassed])
	fmt.Printf("Per frame: engine %v, log %v\n", s.Engine.Round(time.Microsecond), s.LogWrite.Round(time.Microsecond))
	if s.FirstPass > 0 {
		fmt.Printf("Verdict:   %s (first at frame %d)\n", passColor.Sprint("LIVE"), s.FirstPass)
		return
	}
	fmt.Printf("Verdict:   %s\n", blockColor.Sprint("NOT LIVE"))
	if reason := s.Last.Reason(); reason != "" {
		fmt.Printf("Last:      %s\n", reason)
	}
}
