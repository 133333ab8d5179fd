package main

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// writeGrayPNG writes rows of luminance values as a grayscale PNG.
func writeGrayPNG(t *testing.T, path string, rows [][]uint8) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, len(rows[0]), len(rows)))
	for y, row := range rows {
		for x, v := range row {
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestLoadImage(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	t.Run("png", func(t *testing.T) {
		path := filepath.Join(dir, "map.png")
		writeGrayPNG(t, path, [][]uint8{{0, 255}, {255, 0}})

		img, err := LoadImage(path, 0)
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 2, 2), img.Bounds())
		assert.Equal(t, uint8(0), img.GrayAt(0, 0).Y)
		assert.Equal(t, uint8(255), img.GrayAt(1, 0).Y)
		assert.Equal(t, uint8(0), img.GrayAt(1, 1).Y)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadImage(filepath.Join(dir, "nope.png"), 0)
		assert.ErrorIs(t, err, ErrLoad)
	})

	t.Run("undecodable file", func(t *testing.T) {
		path := filepath.Join(dir, "garbage.jpg")
		require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))
		_, err := LoadImage(path, 0)
		assert.ErrorIs(t, err, ErrLoad)
	})

	t.Run("svg", func(t *testing.T) {
		path := filepath.Join(dir, "plan.svg")
		svg := `<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10" viewBox="0 0 10 10">` +
			`<rect x="0" y="0" width="10" height="5" fill="#000000"/></svg>`
		require.NoError(t, os.WriteFile(path, []byte(svg), 0o644))

		img, err := LoadImage(path, 0)
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 10, 10), img.Bounds())
		assert.Less(t, img.GrayAt(5, 2).Y, uint8(128))
		assert.Equal(t, uint8(255), img.GrayAt(5, 8).Y)
	})
}

func TestResizeNearest(t *testing.T) {
	t.Parallel()

	src := image.NewGray(image.Rect(0, 0, 2, 2))
	src.SetGray(0, 0, color.Gray{Y: 0})
	src.SetGray(1, 0, color.Gray{Y: 255})
	src.SetGray(0, 1, color.Gray{Y: 255})
	src.SetGray(1, 1, color.Gray{Y: 0})

	out, err := ResizeNearest(src, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, out.Bounds().Dx())
	assert.Equal(t, 7, out.Bounds().Dy())

	gray := toGray(out)
	for y := 0; y < 7; y++ {
		for x := 0; x < 7; x++ {
			v := gray.GrayAt(x, y).Y
			assert.True(t, v == 0 || v == 255, "pixel (%d,%d) = %d is not binary", x, y, v)
		}
	}
	assert.Equal(t, uint8(0), gray.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(255), gray.GrayAt(6, 0).Y)
	assert.Equal(t, uint8(0), gray.GrayAt(6, 6).Y)

	for _, size := range []int{0, -3} {
		_, err := ResizeNearest(src, size)
		assert.ErrorIs(t, err, ErrInvalidDimension)
	}
}

func TestLoadGrid(t *testing.T) {
	t.Parallel()

	logger := zap.NewNop().Sugar()
	dir := t.TempDir()
	path := filepath.Join(dir, "map.png")
	writeGrayPNG(t, path, [][]uint8{
		{255, 0, 0, 255},
		{255, 255, 255, 255},
		{0, 0, 0, 0},
		{0, 255, 255, 40},
	})

	t.Run("native", func(t *testing.T) {
		g, err := LoadGrid(path, LoadOptions{Native: true, Threshold: BinaryThreshold(128)}, logger)
		require.NoError(t, err)
		assert.Equal(t, 4, g.Width())
		assert.Equal(t, 4, g.Height())
		assert.Equal(t, []Cell{F, O, O, F}, g.Row(0))
		assert.Equal(t, []Cell{O, F, F, O}, g.Row(3))
	})

	t.Run("strict", func(t *testing.T) {
		g, err := LoadGrid(path, LoadOptions{Native: true, Threshold: StrictThreshold}, logger)
		require.NoError(t, err)
		assert.Equal(t, []Cell{O, F, F, U}, g.Row(3))
	})

	t.Run("resized with intermediate image", func(t *testing.T) {
		proc := filepath.Join(dir, "map_proc.png")
		g, err := LoadGrid(path, LoadOptions{Size: 8, Threshold: BinaryThreshold(128), ProcPath: proc}, logger)
		require.NoError(t, err)
		assert.Equal(t, 8, g.Width())
		assert.Equal(t, 8, g.Height())

		f, err := os.Open(proc)
		require.NoError(t, err)
		defer f.Close()
		cfg, err := png.DecodeConfig(f)
		require.NoError(t, err)
		assert.Equal(t, 8, cfg.Width)
		assert.Equal(t, 8, cfg.Height)
	})

	t.Run("zero size", func(t *testing.T) {
		_, err := LoadGrid(path, LoadOptions{Size: 0, Threshold: BinaryThreshold(128)}, logger)
		assert.ErrorIs(t, err, ErrInvalidDimension)
	})

	t.Run("zero size is checked before loading", func(t *testing.T) {
		_, err := LoadGrid(filepath.Join(dir, "missing.png"), LoadOptions{Size: 0}, logger)
		assert.ErrorIs(t, err, ErrInvalidDimension)
		assert.NotErrorIs(t, err, ErrLoad)
	})

	t.Run("overlapping threshold", func(t *testing.T) {
		_, err := LoadGrid(path, LoadOptions{Native: true, Threshold: Threshold{OccupiedMax: 9, FreeMin: 3}}, logger)
		assert.ErrorContains(t, err, "threshold bands overlap")
	})

	t.Run("unwritable intermediate image", func(t *testing.T) {
		proc := filepath.Join(dir, "missing", "map_proc.png")
		_, err := LoadGrid(path, LoadOptions{Size: 4, Threshold: BinaryThreshold(128), ProcPath: proc}, logger)
		assert.ErrorIs(t, err, ErrSerialization)
	})
}

func TestLoadGridSVG(t *testing.T) {
	t.Parallel()

	logger := zap.NewNop().Sugar()
	dir := t.TempDir()
	writeSVG := func(t *testing.T, name, viewBox, rect string) string {
		t.Helper()
		path := filepath.Join(dir, name)
		svg := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="` + viewBox + `">` + rect + `</svg>`
		require.NoError(t, os.WriteFile(path, []byte(svg), 0o644))
		return path
	}
	leftHalf := []Cell{O, O, O, O, F, F, F, F}

	t.Run("sub-unit view box is stretched to the grid", func(t *testing.T) {
		path := writeSVG(t, "tiny.svg", "0 0 1 1", `<rect x="0" y="0" width="0.5" height="1" fill="#000000"/>`)
		g, err := LoadGrid(path, LoadOptions{Size: 8, Threshold: BinaryThreshold(128)}, logger)
		require.NoError(t, err)
		require.Equal(t, 8, g.Width())
		require.Equal(t, 8, g.Height())
		for y := 0; y < g.Height(); y++ {
			assert.Equal(t, leftHalf, g.Row(y), "row %d", y)
		}
	})

	t.Run("huge view box is rasterized at grid size", func(t *testing.T) {
		path := writeSVG(t, "huge.svg", "0 0 100000 100000", `<rect x="0" y="0" width="50000" height="100000" fill="#000000"/>`)
		g, err := LoadGrid(path, LoadOptions{Size: 8, Threshold: BinaryThreshold(128)}, logger)
		require.NoError(t, err)
		assert.Equal(t, leftHalf, g.Row(0))
		assert.Equal(t, leftHalf, g.Row(7))
	})

	t.Run("huge view box is refused natively", func(t *testing.T) {
		path := writeSVG(t, "native.svg", "0 0 100000 100000", `<rect x="0" y="0" width="50000" height="100000" fill="#000000"/>`)
		_, err := LoadGrid(path, LoadOptions{Native: true, Threshold: BinaryThreshold(128)}, logger)
		assert.ErrorIs(t, err, ErrLoad)
		assert.ErrorContains(t, err, "too large to rasterize natively")
	})

	t.Run("empty view box", func(t *testing.T) {
		path := writeSVG(t, "empty.svg", "0 0 0 0", "")
		_, err := LoadGrid(path, LoadOptions{Size: 8, Threshold: BinaryThreshold(128)}, logger)
		assert.ErrorIs(t, err, ErrLoad)
	})
}

func TestProcPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "maps/office_proc.jpg", ProcPath("maps/office", ".jpg"))
	assert.Equal(t, "office_proc.png", ProcPath("office", ".png"))
	assert.Equal(t, "office_proc.png", ProcPath("office", ".svg"))
	assert.Equal(t, "office_proc.png", ProcPath("office", ".webp"))
}

func TestLuminance(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint8(255), luminance(color.NRGBA{A: 0}))
	assert.Equal(t, uint8(0), luminance(color.NRGBA{A: 255}))
	assert.Equal(t, uint8(255), luminance(color.NRGBA{R: 255, G: 255, B: 255, A: 255}))
	assert.Equal(t, uint8(77), luminance(color.Gray{Y: 77}))
	assert.Equal(t, uint8(76), luminance(color.NRGBA{R: 255, A: 255}))
}
