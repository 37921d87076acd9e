package model

// BinaryMask row-major H×W mask, 0 is background and any other value foreground
type BinaryMask struct {
	Rows int
	Cols int
	Pix  []uint8
}

func NewBinaryMask(rows, cols int) BinaryMask {
	return BinaryMask{Rows: rows, Cols: cols, Pix: make([]uint8, rows*cols)}
}

// Shape returns (height, width).
func (m BinaryMask) Shape() (int, int) {
	return m.Rows, m.Cols
}

func (m BinaryMask) At(row, col int) bool {
	return m.Pix[row*m.Cols+col] != 0
}

func (m BinaryMask) Set(row, col int, fg bool) {
	if fg {
		m.Pix[row*m.Cols+col] = 1
	} else {
		m.Pix[row*m.Cols+col] = 0
	}
}

// Equal compares shape and foreground membership, ignoring the stored foreground value.
func (m BinaryMask) Equal(o BinaryMask) bool {
	if m.Rows != o.Rows || m.Cols != o.Cols || len(m.Pix) != len(o.Pix) {
		return false
	}
	for i := range m.Pix {
		if (m.Pix[i] != 0) != (o.Pix[i] != 0) {
			return false
		}
	}
	return true
}

// MaskCandidate one segmenter proposal for a box
type MaskCandidate struct {
	Mask  BinaryMask
	Score float64
}

// EncodedMask flat (run_start, run_length) pairs of foreground runs
type EncodedMask []int
