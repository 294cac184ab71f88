package extract

import (
	"testing"

	"github.com/stretchr/testify/require"

	"eduai/internal/util"
)

func TestIsPDF(t *testing.T) {
	require.True(t, IsPDF([]byte("%PDF-1.7\n...")))
	require.True(t, IsPDF([]byte("\n%PDF-1.4")))
	require.False(t, IsPDF([]byte("PK\x03\x04 zip")))
	require.False(t, IsPDF(nil))
}

func TestTextRejectsNonPDF(t *testing.T) {
	_, err := Text([]byte("hello"))
	require.ErrorIs(t, err, util.ErrNotPDF)
}

func TestTextMalformedPDF(t *testing.T) {
	_, err := Text([]byte("%PDF-1.4\nnot really a pdf"))
	require.Error(t, err)
	require.NotErrorIs(t, err, util.ErrNotPDF)
}

func TestPageCountMalformed(t *testing.T) {
	require.Equal(t, 0, PageCount([]byte("%PDF-garbage")))
}
