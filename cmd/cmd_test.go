package cmd

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"deskrelay/internal/config"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGrabber struct{}

func (stubGrabber) Grab(int) (*image.RGBA, error) {
	return image.NewRGBA(image.Rect(0, 0, 800, 600)), nil
}

func (stubGrabber) ScaleFactor(int) float64 { return 1 }

func TestRootHasSubcommands(t *testing.T) {
	found := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		found[c.Name()] = true
	}
	assert.True(t, found["serve"])
	assert.True(t, found["capture"])
	assert.NotEmpty(t, rootCmd.Version)
}

func TestParsePoint(t *testing.T) {
	x, y, err := parsePoint("640, 360")
	require.NoError(t, err)
	assert.Equal(t, 640, x)
	assert.Equal(t, 360, y)

	_, _, err = parsePoint("640")
	assert.Error(t, err)
	_, _, err = parsePoint("a,1")
	assert.Error(t, err)
}

func TestApplyFlags(t *testing.T) {
	require.NoError(t, serveCmd.ParseFlags([]string{"--addr", "127.0.0.1:9999", "--fps", "0", "--no-rtc", "--mcp", "stdio"}))
	t.Cleanup(func() {
		serveCmd.Flags().VisitAll(func(f *pflag.Flag) { f.Changed = false })
	})
	cfg := config.Default()
	applyFlags(serveCmd, &cfg)
	assert.Equal(t, "127.0.0.1:9999", cfg.Addr)
	assert.Equal(t, 0, cfg.FPS)
	assert.False(t, cfg.RTC.Enabled)
	assert.Equal(t, config.MCPStdio, cfg.MCP.Transport)
	assert.Equal(t, 80, cfg.Quality)
}

func TestCaptureCommand(t *testing.T) {
	old := grabber
	grabber = stubGrabber{}
	t.Cleanup(func() { grabber = old })

	out := filepath.Join(t.TempDir(), "shot.jpg")
	rootCmd.SetArgs([]string{"capture", "-o", out, "--mark", "10,10"})
	require.NoError(t, rootCmd.Execute())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 1280, 720), img.Bounds())
}

func TestWriteBase64(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeBase64(&buf, []byte("frame")))
	decoded, err := base64.StdEncoding.DecodeString(string(bytes.TrimSpace(buf.Bytes())))
	require.NoError(t, err)
	assert.Equal(t, "frame", string(decoded))
}
