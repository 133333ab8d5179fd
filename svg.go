package main

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/pkg/errors"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// maxNativeSVGSide bounds the canvas of a floor plan rasterized at view box
// resolution.
const maxNativeSVGSide = 8192

// loadSVG rasterizes a vector floor plan on a white background. With size > 0
// the view box is stretched onto a size×size canvas, matching the square grid
// raster inputs are resized to; otherwise one pixel covers one view box unit.
func loadSVG(data []byte, size int) (image.Image, error) {
	svgIcon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "parse svg")
	}

	viewBoxW := svgIcon.ViewBox.W
	viewBoxH := svgIcon.ViewBox.H
	if !(viewBoxW > 0) || !(viewBoxH > 0) {
		return nil, errors.Errorf("svg view box is empty (%gx%g)", viewBoxW, viewBoxH)
	}

	width, height := size, size
	if size <= 0 {
		width = int(math.Ceil(viewBoxW))
		height = int(math.Ceil(viewBoxH))
		if width > maxNativeSVGSide || height > maxNativeSVGSide {
			return nil, errors.Errorf("svg view box %gx%g is too large to rasterize natively (max %d per side), set a grid size",
				viewBoxW, viewBoxH, maxNativeSVGSide)
		}
	}
	svgIcon.SetTarget(0, 0, float64(width), float64(height))

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(width, height, img, img.Bounds())
	scanner.SetClip(img.Bounds())
	raster := rasterx.NewDasher(width, height, scanner)

	svgIcon.Draw(raster, 1.0)
	return img, nil
}
