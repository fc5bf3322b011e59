package backend

import "image"

// FitScale is the largest factor that fits content inside box without cropping.
func FitScale(content, box image.Point) float64 {
	if content.X <= 0 || content.Y <= 0 {
		return 0
	}
	return min(float64(box.X)/float64(content.X), float64(box.Y)/float64(content.Y))
}

// FitRect scales content by FitScale and centers it in box.
func FitRect(content, box image.Point) Rect {
	scale := FitScale(content, box)
	w := float64(content.X) * scale
	h := float64(content.Y) * scale
	return Rect{
		X: (float64(box.X) - w) / 2,
		Y: (float64(box.Y) - h) / 2,
		W: w,
		H: h,
	}
}
