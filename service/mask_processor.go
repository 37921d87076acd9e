package service

import (
	"fmt"
	"image"
	"runtime"

	"github.com/TIANLI0/TissueKit/model"
	"gocv.io/x/gocv"
)

// MaskProcessor converts between binary masks and OpenCV matrices and traces contours
type MaskProcessor struct {
	epsilon float64
}

// NewMaskProcessor epsilon is the ApproxPolyDP tolerance in pixels, 0 keeps
// the ChainApproxSimple output as is.
func NewMaskProcessor(epsilon float64) *MaskProcessor {
	return &MaskProcessor{epsilon: epsilon}
}

// ToMat renders mask as an 8-bit single channel Mat with foreground 255.
func (mp *MaskProcessor) ToMat(mask model.BinaryMask) (gocv.Mat, error) {
	if mask.Rows*mask.Cols != len(mask.Pix) {
		return gocv.NewMat(), fmt.Errorf("%w: %dx%d mask with %d pixels",
			ErrMaskShapeMismatch, mask.Rows, mask.Cols, len(mask.Pix))
	}
	if len(mask.Pix) == 0 {
		return gocv.NewMat(), fmt.Errorf("%w: empty mask", ErrMaskShapeMismatch)
	}
	buf := make([]byte, len(mask.Pix))
	for i, v := range mask.Pix {
		if v != 0 {
			buf[i] = 255
		}
	}

	wrapped, err := gocv.NewMatFromBytes(mask.Rows, mask.Cols, gocv.MatTypeCV8U, buf)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to wrap mask: %w", err)
	}
	defer wrapped.Close()

	// wrapped borrows buf, the clone owns its pixels
	owned := wrapped.Clone()
	runtime.KeepAlive(buf)
	return owned, nil
}

// FromMat reads a single channel 8-bit Mat, any non-zero pixel is foreground.
func (mp *MaskProcessor) FromMat(mat gocv.Mat) (model.BinaryMask, error) {
	if mat.Empty() {
		return model.BinaryMask{}, fmt.Errorf("%w: empty mask", ErrMaskShapeMismatch)
	}
	if mat.Type() != gocv.MatTypeCV8U {
		return model.BinaryMask{}, fmt.Errorf("%w: mask type %v is not 8UC1", ErrMaskShapeMismatch, mat.Type())
	}

	mask := model.NewBinaryMask(mat.Rows(), mat.Cols())
	for y := 0; y < mat.Rows(); y++ {
		for x := 0; x < mat.Cols(); x++ {
			if mat.GetUCharAt(y, x) != 0 {
				mask.Pix[y*mask.Cols+x] = 1
			}
		}
	}
	return mask, nil
}

// GrabCut mask labels
const (
	grabCutFG   = 1
	grabCutPRFG = 3
)

// ExtractForeground keeps GrabCut's definite and probable foreground labels as 255.
func (mp *MaskProcessor) ExtractForeground(mask *gocv.Mat) gocv.Mat {
	fgMask := gocv.NewMat()
	fgValue := gocv.NewMatFromScalar(gocv.Scalar{Val1: grabCutFG}, gocv.MatTypeCV8U)
	defer fgValue.Close()
	gocv.Compare(*mask, fgValue, &fgMask, gocv.CompareEQ)

	fgMaskPr := gocv.NewMat()
	defer fgMaskPr.Close()
	prValue := gocv.NewMatFromScalar(gocv.Scalar{Val1: grabCutPRFG}, gocv.MatTypeCV8U)
	defer prValue.Close()
	gocv.Compare(*mask, prValue, &fgMaskPr, gocv.CompareEQ)

	combined := gocv.NewMat()
	gocv.BitwiseOr(fgMask, fgMaskPr, &combined)
	fgMask.Close()

	return combined
}

// MorphologyOptimize removes specks and closes pinholes with an elliptical kernel.
func (mp *MaskProcessor) MorphologyOptimize(mask *gocv.Mat, kernelSize int) gocv.Mat {
	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{X: kernelSize, Y: kernelSize})
	defer kernel.Close()

	opened := gocv.NewMat()
	gocv.MorphologyEx(*mask, &opened, gocv.MorphOpen, kernel)

	closed := gocv.NewMat()
	gocv.MorphologyEx(opened, &closed, gocv.MorphClose, kernel)
	opened.Close()

	return closed
}

// DecodePNG decodes a grayscale mask image as sent by the segmenter sidecar.
func (mp *MaskProcessor) DecodePNG(data []byte) (model.BinaryMask, error) {
	mat, err := gocv.IMDecode(data, gocv.IMReadGrayScale)
	if err != nil {
		return model.BinaryMask{}, fmt.Errorf("failed to decode mask image: %w", err)
	}
	defer mat.Close()
	return mp.FromMat(mat)
}

// ExtractPolygons traces the external boundary of every connected foreground
// region. Holes are not represented.
func (mp *MaskProcessor) ExtractPolygons(mask model.BinaryMask) ([]model.Polygon, error) {
	polygons := make([]model.Polygon, 0)
	if mask.Rows == 0 || mask.Cols == 0 {
		return polygons, nil
	}

	mat, err := mp.ToMat(mask)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	contours := gocv.FindContours(mat, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		points := contour.ToPoints()
		if mp.epsilon > 0 {
			approx := gocv.ApproxPolyDP(contour, mp.epsilon, true)
			points = approx.ToPoints()
			approx.Close()
		}
		polygons = append(polygons, toPolygon(points))
	}
	return polygons, nil
}

func toPolygon(points []image.Point) model.Polygon {
	poly := make(model.Polygon, len(points))
	for i, p := range points {
		poly[i] = model.Point{X: p.X, Y: p.Y}
	}
	return poly
}
