package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-facetrack/internal/log"
	"github.com/teslashibe/go-facetrack/pkg/bestframe"
)

var (
	snapOut     string
	snapTimeout time.Duration
	facesDir    string
)

var snapCmd = &cobra.Command{
	Use:   "snap",
	Short: "Wait for a big face and save its sharpest crop",
	RunE:  runSnap,
}

var facesCmd = &cobra.Command{
	Use:   "faces",
	Short: "Wait for faces and save a crop of each",
	RunE:  runFaces,
}

func init() {
	addCaptureFlags(snapCmd)
	snapCmd.Flags().StringVarP(&snapOut, "out", "o", "face.jpg", "Output JPEG")
	snapCmd.Flags().DurationVarP(&snapTimeout, "timeout", "t", 30*time.Second, "Give up after this long")
	rootCmd.AddCommand(snapCmd)

	addCaptureFlags(facesCmd)
	facesCmd.Flags().StringVarP(&facesDir, "out-dir", "o", "faces", "Output directory")
	facesCmd.Flags().DurationVarP(&snapTimeout, "timeout", "t", 30*time.Second, "Give up after this long")
	rootCmd.AddCommand(facesCmd)
}

func runSnap(cmd *cobra.Command, args []string) error {
	stack, err := openStack(opts, bestframe.ModeSingle, nil)
	if err != nil {
		return err
	}
	defer stack.Close()

	var best bestframe.FaceData
	err = poll(cmd.Context(), "waiting for a face", func(ctx context.Context) (bool, error) {
		fd, ok, err := stack.Driver.FacePhoto(ctx)
		if err != nil || !ok {
			return false, err
		}
		best = fd
		return true, nil
	})
	stack.Driver.Wait()
	if err != nil {
		return err
	}

	if err := os.WriteFile(snapOut, best.Image, 0o644); err != nil {
		return err
	}
	log.Info("face saved", "file", snapOut, "id", best.ID, "score", best.Score, "size", best.WidthHeight)
	return nil
}

func runFaces(cmd *cobra.Command, args []string) error {
	stack, err := openStack(opts, bestframe.ModeAll, nil)
	if err != nil {
		return err
	}
	defer stack.Close()

	var faces []bestframe.FaceData
	err = poll(cmd.Context(), "waiting for faces", func(ctx context.Context) (bool, error) {
		list, err := stack.Driver.AllFaces(ctx)
		if err != nil {
			return false, err
		}
		faces = list
		return len(list) > 0, nil
	})
	stack.Driver.Wait()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(facesDir, 0o755); err != nil {
		return err
	}
	for _, fd := range faces {
		path := filepath.Join(facesDir, fd.ID+".jpg")
		if err := os.WriteFile(path, fd.Image, 0o644); err != nil {
			return err
		}
		log.Info("face saved", "file", path, "score", fd.Score, "x", fd.X, "y", fd.Y, "size", fd.WidthHeight)
	}
	return nil
}

// poll ticks step at the capture interval with a spinner until it reports
// done, fails with a capture error, or the timeout expires.
func poll(ctx context.Context, desc string, step func(ctx context.Context) (bool, error)) error {
	ctx, cancel := context.WithTimeout(ctx, snapTimeout)
	defer cancel()

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionShowCount(),
	)
	defer bar.Finish()

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	for {
		done, err := step(ctx)
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		bar.Add(1)
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("no face within %v", snapTimeout)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
