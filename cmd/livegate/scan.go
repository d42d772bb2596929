package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/MrCodeEU/livegate/pkg/camera"
	"github.com/MrCodeEU/livegate/pkg/face"
	"github.com/MrCodeEU/livegate/pkg/gate"
	"github.com/MrCodeEU/livegate/pkg/liveness"
	"github.com/MrCodeEU/livegate/pkg/logging"
)

var scanOpts struct {
	Timeout time.Duration
	Profile string
	Quiet   bool
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a live liveness scan against the configured camera",
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().DurationVarP(&scanOpts.Timeout, "timeout", "t", 0, "Scan timeout (default from config)")
	scanCmd.Flags().StringVarP(&scanOpts.Profile, "profile", "p", "", "Threshold profile: desktop or mobile")
	scanCmd.Flags().BoolVarP(&scanOpts.Quiet, "quiet", "q", false, "Only print the final verdict")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	if scanOpts.Profile != "" {
		cfg.Liveness.Profile = scanOpts.Profile
	}
	if scanOpts.Timeout > 0 {
		cfg.Gate.Timeout = scanOpts.Timeout
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	ctx := cmd.Context()

	src := newSource(cfg)
	if err := src.Open(ctx); err != nil {
		return &exitError{code: 3, msg: fmt.Sprintf("failed to open camera: %v", err)}
	}
	defer func() { _ = src.Close() }()

	detector, err := newDetector(cfg)
	if err != nil {
		return &exitError{code: 3, msg: fmt.Sprintf("failed to load face detector: %v", err)}
	}
	defer func() { _ = detector.Close() }()

	provider, err := newLandmarks(cfg)
	if err != nil {
		return &exitError{code: 3, msg: fmt.Sprintf("failed to set up landmarks: %v", err)}
	}

	id := uuid.NewString()
	session, err := newSession(cfg, provider, src, id)
	if err != nil {
		_ = provider.Close()
		return fmt.Errorf("failed to create liveness session: %w", err)
	}
	defer func() { _ = session.Close() }()

	store, err := newStore(cfg)
	if err != nil {
		logging.Warnf("Verdict log disabled: %v", err)
	}
	rec := newRecorder(session, nil)
	if store != nil {
		rec.store = store
	}

	scanner := gate.NewScanner(src, detector, rec, nil, gateOptions(cfg))
	if !scanOpts.Quiet {
		seq := 0
		scanner.OnResult = func(frame camera.Frame, box face.Box, res liveness.Result) {
			seq++
			printVerdict(os.Stdout, seq, res)
		}
	}

	fmt.Fprintf(os.Stderr, "livegate: session %s (look at the camera and blink once)...\n", id)
	result := scanner.Scan(ctx)
	engineCost, logCost := rec.tickCost()
	logging.Debugf("Per frame: engine %v, verdict log %v", engineCost, logCost)
	return finishScan(result)
}

// finishScan reports the result and maps it to an exit code:
// 0 live, 1 blocked or not matched, 2 no decision, 3 system error.
func finishScan(result gate.ScanResult) error {
	if code := exitCode(result); code != 0 {
		msg := "scan failed"
		if result.Error != nil {
			msg = result.Error.Error()
		}
		fmt.Fprintf(os.Stderr, "livegate: %s %s (%d frames, %v)\n",
			blockColor.Sprint("FAILED"), msg, result.Frames, result.Duration.Round(time.Millisecond))
		if se, ok := result.Error.(*gate.ScanError); ok && se.Reason != "" {
			fmt.Fprintf(os.Stderr, "livegate: last reason: %s\n", se.Reason)
		}
		return &exitError{code: code, msg: msg}
	}

	fmt.Fprintf(os.Stderr, "livegate: %s (%.0f%% confidence, %d frames, %v)\n",
		passColor.Sprint("LIVE"), result.Liveness.Confidence*100, result.Frames,
		result.Duration.Round(time.Millisecond))
	return nil
}

func exitCode(result gate.ScanResult) int {
	if result.Success {
		return 0
	}
	switch gate.CodeOf(result.Error) {
	case gate.ErrCodeLivenessBlocked, gate.ErrCodeNotMatched:
		return 1
	case gate.ErrCodeNoFace, gate.ErrCodeTimeout, gate.ErrCodeCooldown, gate.ErrCodeEndOfStream:
		return 2
	case gate.ErrCodeCamera:
		return 3
	case gate.ErrCodeCancelled:
		return 130
	}
	return 1
}
