package cmd

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"deskrelay/internal/canvas"
	"deskrelay/internal/capture"

	"github.com/spf13/cobra"
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture one canvas frame",
	Long: `Capture one 1280x720 canvas frame as JPEG. Without --output the image is
written to stdout as base64.

Examples:
  deskrelay capture -o screen.jpg
  deskrelay capture --mark 640,360 --label target -o marked.jpg`,
	RunE: runCapture,
}

// grabber is replaced in tests.
var grabber capture.Grabber = capture.ScreenGrabber{}

func init() {
	rootCmd.AddCommand(captureCmd)
	captureCmd.Flags().StringP("output", "o", "", "Output file (default: stdout as base64)")
	captureCmd.Flags().String("mark", "", "Annotate the canvas point x,y")
	captureCmd.Flags().String("label", "", "Label drawn next to the mark")
}

func runCapture(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	output, _ := cmd.Flags().GetString("output")
	mark, _ := cmd.Flags().GetString("mark")
	label, _ := cmd.Flags().GetString("label")

	src := capture.NewSource(grabber, canvas.NewScaleState(), cfg.CaptureTimeout)
	frame, err := src.Capture(context.Background(), cfg.Monitor)
	if err != nil {
		return err
	}
	img := frame.Image
	if mark != "" {
		x, y, err := parsePoint(mark)
		if err != nil {
			return err
		}
		img = capture.Annotate(img, x, y, label)
	}
	data, err := capture.JPEGEncoder{}.Encode(img, cfg.Quality)
	if err != nil {
		return err
	}

	if output != "" {
		return os.WriteFile(output, data, 0o644)
	}
	return writeBase64(cmd.OutOrStdout(), data)
}

func writeBase64(w io.Writer, data []byte) error {
	enc := base64.NewEncoder(base64.StdEncoding, w)
	if _, err := enc.Write(data); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w)
	return err
}

func parsePoint(s string) (int, int, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, fmt.Errorf("point %q: want x,y", s)
	}
	x, err := strconv.Atoi(strings.TrimSpace(xs))
	if err != nil {
		return 0, 0, fmt.Errorf("point %q: %w", s, err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(ys))
	if err != nil {
		return 0, 0, fmt.Errorf("point %q: %w", s, err)
	}
	return x, y, nil
}
