// Package images loads the artwork files named after their coordinate.
package images

import (
	"errors"
	"fmt"
	"github.com/jypelle/artbox/apimodel"
	"github.com/sirupsen/logrus"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
)

var ErrImageMissing = errors.New("image file is missing")

var ErrInvalidCoordinate = errors.New("coordinate out of range")

// LoadError reports an image that could not be displayed.
type LoadError struct {
	Coordinate apimodel.Coordinate
	Path       string
	Err        error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("unable to load image %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Missing reports whether the file is absent rather than broken.
func (e *LoadError) Missing() bool {
	return errors.Is(e.Err, ErrImageMissing)
}

// Sample images checked at startup
var sampleCoordinates = []apimodel.Coordinate{
	{A: 0, B: 0, C: 0},
	{A: 1, B: 1, C: 1},
	{A: 5, B: 5, C: 5},
}

type FileStore struct {
	Folder string
}

func NewFileStore(folder string) *FileStore {
	return &FileStore{Folder: folder}
}

// CheckFolder fails when the images folder is unusable.
func (s *FileStore) CheckFolder() error {
	info, err := os.Stat(s.Folder)
	if err != nil {
		return fmt.Errorf("images folder %s: %w", s.Folder, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("images folder %s is not a folder", s.Folder)
	}
	return nil
}

// MissingSamples lists the sample image files not found in the folder.
func (s *FileStore) MissingSamples() []string {
	var missing []string
	for _, c := range sampleCoordinates {
		if _, err := os.Stat(s.Path(c)); err != nil {
			missing = append(missing, c.Filename())
		}
	}
	return missing
}

func (s *FileStore) Path(c apimodel.Coordinate) string {
	return filepath.Join(s.Folder, c.Filename())
}

func (s *FileStore) Load(c apimodel.Coordinate) (image.Image, error) {
	path := s.Path(c)
	if !c.Valid() {
		return nil, &LoadError{Coordinate: c, Path: path, Err: ErrInvalidCoordinate}
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			err = ErrImageMissing
		}
		return nil, &LoadError{Coordinate: c, Path: path, Err: err}
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, &LoadError{Coordinate: c, Path: path, Err: err}
	}
	logrus.Debugf("Loaded image %s", path)
	return img, nil
}
