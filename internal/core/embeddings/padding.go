package embeddings

// PadToTargetDimensions pads or truncates a vector to the target dimensions.
// Zero-padding does not change the angle between vectors.
func PadToTargetDimensions(vec []float32, target int) []float32 {
	if len(vec) == target || target <= 0 {
		return vec
	}

	if len(vec) > target {
		return vec[:target]
	}

	padded := make([]float32, target)
	copy(padded, vec)

	return padded
}
