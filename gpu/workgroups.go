package gpu

// GroupCount returns the number of work groups of the given thread count
// needed to cover n elements: ceil(n / threads). Returns 0 when n <= 0.
func GroupCount(n, threads int) int {
	if n <= 0 {
		return 0
	}
	if threads <= 0 {
		threads = 1
	}
	return (n + threads - 1) / threads
}

// Grid returns the 3D group count covering an nx x ny x nz domain with
// the given local size.
func Grid(nx, ny, nz int, threads [3]int) [3]int {
	return [3]int{
		GroupCount(nx, threads[0]),
		GroupCount(ny, threads[1]),
		GroupCount(nz, threads[2]),
	}
}
