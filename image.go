package main

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"
)

// LoadOptions controls how a source image becomes a grid.
type LoadOptions struct {
	// Size is the side of the square grid the image is resized to.
	Size int
	// Native keeps the image at its decoded resolution and ignores Size.
	Native    bool
	Threshold Threshold
	// ProcPath, when set, receives the resized image for inspection.
	ProcPath string
}

// LoadGrid reads the image at filePath and turns it into an occupancy grid.
func LoadGrid(filePath string, opts LoadOptions, logger *zap.SugaredLogger) (*Grid, error) {
	if !opts.Native && opts.Size <= 0 {
		return nil, stageErrorf(ErrInvalidDimension, nil, "resize target must be positive, got %d", opts.Size)
	}
	if err := opts.Threshold.Validate(); err != nil {
		return nil, err
	}

	rasterSize := opts.Size
	if opts.Native {
		rasterSize = 0
	}
	src, err := LoadImage(filePath, rasterSize)
	if err != nil {
		return nil, err
	}
	logger.Debugw("decoded image", "path", filePath, "width", src.Bounds().Dx(), "height", src.Bounds().Dy())

	var proc *image.NRGBA
	if opts.Native {
		proc = imaging.Clone(src)
	} else {
		proc, err = ResizeNearest(src, opts.Size)
		if err != nil {
			return nil, err
		}
	}

	if opts.ProcPath != "" {
		if err := imaging.Save(proc, opts.ProcPath, imaging.JPEGQuality(95)); err != nil {
			return nil, stageErrorf(ErrSerialization, err, "write intermediate image %s", opts.ProcPath)
		}
		logger.Infow("wrote intermediate image", "path", opts.ProcPath)
	}

	grid, err := GridFromGray(toGray(proc), opts.Threshold)
	if err != nil {
		return nil, err
	}

	occupied, free, unknown := grid.Census()
	logger.Debugw("classified grid",
		Occupied.String(), occupied, Free.String(), free, Unknown.String(), unknown)
	if occupied > free {
		logger.Warnw("most of the grid is occupied, the map may be inverted",
			"occupied", occupied, "free", free)
	}
	return grid, nil
}

// LoadImage decodes a raster or SVG file into single-channel luminance.
// svgSize is the side of the canvas SVG files are rasterized onto; zero keeps
// their view box resolution. Raster files are always decoded at native size.
func LoadImage(filePath string, svgSize int) (*image.Gray, error) {
	ext := strings.ToLower(filepath.Ext(filePath))

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, stageErrorf(ErrLoad, err, "read %s", filePath)
	}

	var img image.Image
	switch ext {
	case ".svg":
		img, err = loadSVG(data, svgSize)
	default:
		img, err = imaging.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, stageErrorf(ErrLoad, err, "decode %s", filePath)
	}

	return toGray(img), nil
}

// ResizeNearest scales img to size×size. Nearest-neighbour keeps wall edges
// hard; any smoothing filter would invent intermediate gray levels.
func ResizeNearest(img image.Image, size int) (*image.NRGBA, error) {
	if size <= 0 {
		return nil, stageErrorf(ErrInvalidDimension, nil, "resize target must be positive, got %d", size)
	}
	return imaging.Resize(img, size, size, imaging.NearestNeighbor), nil
}

// ProcPath names the intermediate image for base name and extension ext.
// Formats that cannot be encoded fall back to PNG.
func ProcPath(name, ext string) string {
	if _, err := imaging.FormatFromExtension(ext); err != nil {
		ext = ".png"
	}
	return name + "_proc" + ext
}

func toGray(src image.Image) *image.Gray {
	if g, ok := src.(*image.Gray); ok {
		return g
	}

	bounds := src.Bounds()
	dst := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			dst.SetGray(x, y, color.Gray{Y: luminance(src.At(x, y))})
		}
	}
	return dst
}

// luminance composites c onto a white background and returns its 8-bit luma.
func luminance(c color.Color) uint8 {
	r, g, b, a := c.RGBA()
	r += 0xffff - a
	g += 0xffff - a
	b += 0xffff - a
	return uint8(((299*r + 587*g + 114*b) / 1000) >> 8)
}
