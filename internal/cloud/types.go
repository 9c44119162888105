// Package cloud provides point cloud and label buffer types plus readers
// and writers for the raw velodyne binary formats used by segmentation
// datasets: `.bin` files holding flat float32 (x, y, z, intensity) records
// and `.label` files holding one uint32 record per point.
package cloud

import "math"

// Point is a single LiDAR return in sensor Cartesian coordinates.
type Point struct {
	X, Y, Z   float32 // Sensor frame position (meters)
	Intensity float32 // Laser return intensity, typically in [0, 1]
}

// Cloud is an ordered sequence of points. Order is significant: label
// buffers and inverse maps are index-parallel to it.
type Cloud []Point

// Bounds returns the per-axis minimum and maximum over the cloud.
// Returns zero points for an empty cloud.
func (c Cloud) Bounds() (min, max Point) {
	if len(c) == 0 {
		return Point{}, Point{}
	}
	min = Point{X: float32(math.Inf(1)), Y: float32(math.Inf(1)), Z: float32(math.Inf(1))}
	max = Point{X: float32(math.Inf(-1)), Y: float32(math.Inf(-1)), Z: float32(math.Inf(-1))}
	for _, p := range c {
		if p.X < min.X {
			min.X = p.X
		}
		if p.Y < min.Y {
			min.Y = p.Y
		}
		if p.Z < min.Z {
			min.Z = p.Z
		}
		if p.X > max.X {
			max.X = p.X
		}
		if p.Y > max.Y {
			max.Y = p.Y
		}
		if p.Z > max.Z {
			max.Z = p.Z
		}
	}
	return min, max
}
