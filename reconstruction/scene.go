// Package reconstruction holds the camera and image records of a sparse reconstruction and
// undistorts them as a whole.
package reconstruction

import (
	"sort"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/mvsprep/rimage/transform"
	"go.viam.com/mvsprep/spatialmath"
)

// CameraID identifies a camera within a scene.
type CameraID uint32

// ImageID identifies an image within a scene.
type ImageID uint32

// Image is one photo of the scene: the camera that took it, its world to camera pose and its 2D
// feature observations in pixels.
type Image struct {
	ID         ImageID
	Name       string
	CameraID   CameraID
	Pose       spatialmath.Pose
	Points2D   []r2.Point
	Registered bool
}

func (img *Image) clone() *Image {
	cp := *img
	cp.Points2D = append([]r2.Point(nil), img.Points2D...)
	return &cp
}

// Scene is a collection of cameras and the images taken with them.
type Scene struct {
	cameras map[CameraID]*transform.Camera
	images  map[ImageID]*Image
}

// NewScene returns an empty scene.
func NewScene() *Scene {
	return &Scene{
		cameras: map[CameraID]*transform.Camera{},
		images:  map[ImageID]*Image{},
	}
}

// AddCamera adds a camera. IDs must be unique.
func (s *Scene) AddCamera(id CameraID, camera *transform.Camera) error {
	if camera == nil {
		return errors.Errorf("camera %d is nil", id)
	}
	if _, ok := s.cameras[id]; ok {
		return errors.Errorf("duplicate camera id %d", id)
	}
	s.cameras[id] = camera
	return nil
}

// AddImage adds an image. Its ID and name must be unique and its camera must exist.
func (s *Scene) AddImage(img *Image) error {
	if img == nil {
		return errors.New("image is nil")
	}
	if _, ok := s.images[img.ID]; ok {
		return errors.Errorf("duplicate image id %d", img.ID)
	}
	if _, ok := s.ImageByName(img.Name); ok {
		return errors.Errorf("duplicate image name %q", img.Name)
	}
	if _, ok := s.cameras[img.CameraID]; !ok {
		return errors.Errorf("image %q references unknown camera %d", img.Name, img.CameraID)
	}
	s.images[img.ID] = img
	return nil
}

// Camera returns the camera with the given ID.
func (s *Scene) Camera(id CameraID) (*transform.Camera, bool) {
	cam, ok := s.cameras[id]
	return cam, ok
}

// Image returns the image with the given ID.
func (s *Scene) Image(id ImageID) (*Image, bool) {
	img, ok := s.images[id]
	return img, ok
}

// ImageByName returns the image with the given file name.
func (s *Scene) ImageByName(name string) (*Image, bool) {
	return lo.Find(lo.Values(s.images), func(img *Image) bool { return img.Name == name })
}

// ImageCamera returns the camera that took an image.
func (s *Scene) ImageCamera(img *Image) (*transform.Camera, error) {
	cam, ok := s.cameras[img.CameraID]
	if !ok {
		return nil, errors.Errorf("image %q references unknown camera %d", img.Name, img.CameraID)
	}
	return cam, nil
}

// CameraIDs returns all camera IDs in ascending order.
func (s *Scene) CameraIDs() []CameraID {
	ids := lo.Keys(s.cameras)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// RegImageIDs returns the IDs of registered images in ascending order.
func (s *Scene) RegImageIDs() []ImageID {
	registered := lo.Filter(lo.Values(s.images), func(img *Image, _ int) bool { return img.Registered })
	ids := lo.Map(registered, func(img *Image, _ int) ImageID { return img.ID })
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// NumCameras returns the number of cameras.
func (s *Scene) NumCameras() int { return len(s.cameras) }

// NumImages returns the number of images, registered or not.
func (s *Scene) NumImages() int { return len(s.images) }

// Clone returns a deep copy. Cameras are immutable and shared.
func (s *Scene) Clone() *Scene {
	cp := NewScene()
	for id, cam := range s.cameras {
		cp.cameras[id] = cam
	}
	for id, img := range s.images {
		cp.images[id] = img.clone()
	}
	return cp
}

// SetCamera replaces an existing camera.
func (s *Scene) SetCamera(id CameraID, camera *transform.Camera) error {
	if _, ok := s.cameras[id]; !ok {
		return errors.Errorf("unknown camera %d", id)
	}
	s.cameras[id] = camera
	return nil
}
