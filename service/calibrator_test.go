package service

import (
	"testing"

	"github.com/TIANLI0/TissueKit/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rectMask(rows, cols, r0, r1, c0, c1 int) model.BinaryMask {
	m := model.NewBinaryMask(rows, cols)
	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			m.Set(r, c, true)
		}
	}
	return m
}

func TestPixelsPerCM(t *testing.T) {
	tests := []struct {
		name    string
		mask    model.BinaryMask
		classID int
		want    float64
	}{
		{"long capsule wide", rectMask(100, 150, 10, 59, 0, 99), 0, 12.5},
		{"short capsule wide", rectMask(100, 150, 10, 59, 0, 99), 1, 25},
		{"tall region", rectMask(200, 50, 0, 159, 10, 19), 0, 20},
		{"single pixel", rectMask(10, 10, 4, 4, 7, 7), 3, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PixelsPerCM(tt.mask, tt.classID)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestPixelsPerCM_ScattersUseExtent(t *testing.T) {
	m := model.NewBinaryMask(20, 20)
	m.Set(2, 3, true)
	m.Set(17, 5, true)

	got, err := PixelsPerCM(m, 2)
	require.NoError(t, err)
	assert.InDelta(t, 16.0/4.0, got, 1e-9)
}

func TestPixelsPerCM_Empty(t *testing.T) {
	_, err := PixelsPerCM(model.NewBinaryMask(30, 40), 0)
	assert.ErrorIs(t, err, ErrCalibration)

	_, err = PixelsPerCM(model.NewBinaryMask(0, 0), 1)
	assert.ErrorIs(t, err, ErrCalibration)
}

func TestReferenceLengthCM(t *testing.T) {
	assert.Equal(t, 8.0, ReferenceLengthCM(0))
	assert.Equal(t, 4.0, ReferenceLengthCM(1))
	assert.Equal(t, 4.0, ReferenceLengthCM(7))
}
