package undistorter

import (
	"context"
	"os"

	"github.com/pkg/errors"

	"go.viam.com/mvsprep/rimage"
	"go.viam.com/mvsprep/utils"
)

// ImageSource provides the distorted input images by name.
type ImageSource interface {
	ReadImage(ctx context.Context, name string) (*rimage.Bitmap, error)
}

// ImageSink receives output images and auxiliary files by relative name.
type ImageSink interface {
	WriteImage(ctx context.Context, name string, bitmap *rimage.Bitmap) error
	WriteFile(ctx context.Context, name string, data []byte) error
}

// DirStore reads and writes files below a root directory. The image format follows the file
// extension.
type DirStore struct {
	Dir string
}

// NewDirStore returns a store rooted at dir.
func NewDirStore(dir string) *DirStore {
	return &DirStore{Dir: dir}
}

func (s *DirStore) path(name string) (string, error) {
	return utils.SafeJoinDir(s.Dir, name)
}

// ReadImage reads an image below the root.
func (s *DirStore) ReadImage(ctx context.Context, name string) (*rimage.Bitmap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	return rimage.ReadBitmap(path)
}

// WriteImage writes an image below the root, creating directories as needed.
func (s *DirStore) WriteImage(ctx context.Context, name string, bitmap *rimage.Bitmap) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := utils.CreateParentDir(path); err != nil {
		return err
	}
	guard := utils.NewGuard(func() { utils.RemoveFileNoError(path) })
	defer guard.OnFail()
	if err := rimage.WriteBitmap(path, bitmap); err != nil {
		return err
	}
	guard.Success()
	return nil
}

// WriteFile writes a file below the root, creating directories as needed.
func (s *DirStore) WriteFile(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := utils.CreateParentDir(path); err != nil {
		return err
	}
	return errors.Wrapf(os.WriteFile(path, data, 0o640), "cannot write %q", path)
}
