package hashing

import (
	"image"

	"github.com/disintegration/imaging"
)

// AverageHash computes the average-hash perceptual signature of an image:
// the frame is reduced to a size x size grayscale grid and each bit is set
// where the pixel luminance exceeds the grid mean. Visually similar frames
// produce hashes with low Hamming distance.
func AverageHash(img image.Image, size int) (FrameHash, error) {
	grid := imaging.Grayscale(imaging.Resize(img, size, size, imaging.Lanczos))

	total := size * size
	luma := make([]uint8, 0, total)
	sum := 0
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			// Grayscale output stores identical R/G/B; R is the luminance.
			v := grid.NRGBAAt(x, y).R
			luma = append(luma, v)
			sum += int(v)
		}
	}

	mean := float64(sum) / float64(total)
	set := make([]bool, total)
	for i, v := range luma {
		set[i] = float64(v) > mean
	}
	return NewFrameHash(size, set)
}
