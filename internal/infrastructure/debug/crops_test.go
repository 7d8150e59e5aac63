package debug

import (
	"image"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

func TestCropDir_SaveCrop(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "crops")
	d, err := NewCropDir(dir)
	require.NoError(t, err)

	full := image.NewGray(image.Rect(0, 0, 100, 100))
	crop := full.SubImage(image.Rect(20, 30, 60, 50))
	require.NoError(t, d.SaveCrop("../frame000001_slot03_square.png", crop))

	saved, err := imaging.Open(filepath.Join(dir, "frame000001_slot03_square.png"))
	require.NoError(t, err)
	require.Equal(t, 40, saved.Bounds().Dx())
	require.Equal(t, 20, saved.Bounds().Dy())
}
