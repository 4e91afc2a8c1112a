package nnet

import "fmt"

// SelectVoiced returns the frames of feats whose voicing flag is nonzero,
// in their original order.
//
// Only frames 0..len(feats)-2 are considered: the final frame is always
// dropped, whatever its flag, because the feature front-end produces an
// unreliable last frame. Frames past the end of mask count as unvoiced.
//
// The returned rows alias the rows of feats.
func SelectVoiced(feats [][]float32, mask []float32) ([][]float32, error) {
	considered := min(len(feats)-1, len(mask))
	if considered <= 0 {
		return [][]float32{}, nil
	}

	numVoiced := 0
	for _, v := range mask[:considered] {
		if v != 0 {
			numVoiced++
		}
	}

	voiced := make([][]float32, 0, numVoiced)
	for i := 0; i < len(feats)-1; i++ {
		if i < len(mask) && mask[i] != 0 {
			voiced = append(voiced, feats[i])
		}
	}
	// Both counts cover frames 0..considered-1, so this holds by
	// construction; it guards the copy loop against future edits.
	if len(voiced) != numVoiced {
		return nil, fmt.Errorf("%w: selected %d voiced frames, mask has %d",
			ErrDimensionMismatch, len(voiced), numVoiced)
	}
	return voiced, nil
}

// CountVoiced returns the number of nonzero entries in mask.
func CountVoiced(mask []float32) int {
	n := 0
	for _, v := range mask {
		if v != 0 {
			n++
		}
	}
	return n
}
