package filesvc

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/shulehq/shule/core"
)

var errBadFileType = core.StateError("Only image files are allowed!")

var allowedExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// diskStorage persists uploads under <WorkDir>/<UploadDir>/<folder> and
// serves them from <PublicBaseURL>/upload/<folder>.
type diskStorage struct {
	root    string
	baseURL string
}

var _ core.FileStorage = (*diskStorage)(nil)

func NewDiskStorage() *diskStorage {
	return &diskStorage{
		root:    filepath.Join(core.Conf.WorkDir, core.Conf.UploadDir),
		baseURL: core.Conf.PublicBaseURL,
	}
}

// Root is the directory uploads are written to, used to mount the static
// file route.
func (svc *diskStorage) Root() string { return svc.root }

func (svc *diskStorage) Save(fh *multipart.FileHeader, folder string) (string, error) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedExts[ext] {
		return "", errBadFileType
	}

	// spaces stripped from the original name, suffixed with epoch millis
	base := strings.ReplaceAll(strings.TrimSuffix(fh.Filename, filepath.Ext(fh.Filename)), " ", "")
	name := fmt.Sprintf("%s%d%s", base, time.Now().UnixMilli(), ext)

	dir := filepath.Join(svc.root, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "creating upload dir")
	}

	src, err := fh.Open()
	if err != nil {
		return "", errors.Wrap(err, "opening upload")
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", errors.Wrap(err, "creating file")
	}
	defer dst.Close()

	if _, err = io.Copy(dst, src); err != nil {
		return "", errors.Wrap(err, "writing file")
	}
	return name, nil
}

func (svc *diskStorage) Remove(folder, filename string) error {
	if filename == "" {
		return nil
	}
	return os.Remove(filepath.Join(svc.root, folder, filename))
}

func (svc *diskStorage) URL(folder, filename string) string {
	if filename == "" {
		return ""
	}
	return svc.baseURL + "/upload/" + folder + "/" + filename
}
