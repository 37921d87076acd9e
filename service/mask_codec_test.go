package service

import (
	"testing"

	"github.com/TIANLI0/TissueKit/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func maskFromRows(rows ...string) model.BinaryMask {
	m := model.NewBinaryMask(len(rows), len(rows[0]))
	for r, line := range rows {
		for c, ch := range line {
			m.Set(r, c, ch == '#')
		}
	}
	return m
}

func TestEncodeRLE(t *testing.T) {
	tests := []struct {
		name string
		mask model.BinaryMask
		want model.EncodedMask
	}{
		{
			name: "background first",
			mask: maskFromRows("..##", "#..."),
			want: model.EncodedMask{2, 3},
		},
		{
			name: "foreground first",
			mask: maskFromRows("##..", "...."),
			want: model.EncodedMask{0, 2},
		},
		{
			name: "foreground last",
			mask: maskFromRows("....", "..##"),
			want: model.EncodedMask{6, 2},
		},
		{
			name: "all foreground",
			mask: maskFromRows("###", "###"),
			want: model.EncodedMask{0, 6},
		},
		{
			name: "all background",
			mask: maskFromRows("...", "..."),
			want: model.EncodedMask{},
		},
		{
			name: "several runs",
			mask: maskFromRows("#.#.", ".##."),
			want: model.EncodedMask{0, 1, 2, 1, 5, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeRLE(tt.mask)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got)
			assert.Zero(t, len(got)%2)
		})
	}
}

func TestRLERoundTrip(t *testing.T) {
	masks := []model.BinaryMask{
		maskFromRows("..##", "#..."),
		maskFromRows("##..", "...#"),
		maskFromRows("#", "#", "."),
		maskFromRows("....."),
		maskFromRows("#####"),
	}

	for _, m := range masks {
		got, err := DecodeRLE(EncodeRLE(m), m.Rows, m.Cols)
		require.NoError(t, err)
		assert.True(t, m.Equal(got), "mask %v decoded as %v", m.Pix, got.Pix)
	}
}

func TestDecodeRLE_ForegroundValueIgnored(t *testing.T) {
	m := model.BinaryMask{Rows: 1, Cols: 4, Pix: []uint8{0, 255, 255, 0}}

	got, err := DecodeRLE(EncodeRLE(m), 1, 4)
	require.NoError(t, err)
	assert.Equal(t, []uint8{0, 1, 1, 0}, got.Pix)
}

func TestDecodeRLE_Errors(t *testing.T) {
	tests := []struct {
		name    string
		rle     model.EncodedMask
		rows    int
		cols    int
		wantErr error
	}{
		{"odd length", model.EncodedMask{1, 2, 3}, 2, 2, ErrCodec},
		{"negative start", model.EncodedMask{-1, 2}, 2, 2, ErrCodec},
		{"negative length", model.EncodedMask{0, -2}, 2, 2, ErrCodec},
		{"run past end", model.EncodedMask{2, 3}, 2, 2, ErrMaskShapeMismatch},
		{"start past end", model.EncodedMask{5, 0}, 2, 2, ErrMaskShapeMismatch},
		{"negative shape", model.EncodedMask{}, -1, 2, ErrMaskShapeMismatch},
		{"shape overflows int", nil, 1 << 32, 1 << 32, ErrMaskShapeMismatch},
		{"shape too large to allocate", nil, 1 << 31, 1 << 31, ErrMaskShapeMismatch},
		{"shape above pixel cap", nil, MaxMaskPixels, 2, ErrMaskShapeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRLE(tt.rle, tt.rows, tt.cols)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDecodeRLE_Empty(t *testing.T) {
	got, err := DecodeRLE(model.EncodedMask{}, 3, 2)
	require.NoError(t, err)

	rows, cols := got.Shape()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 2, cols)
	assert.Equal(t, make([]uint8, 6), got.Pix)
}
