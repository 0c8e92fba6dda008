package server

import (
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"settlement-reconciliation-service/pkg/errors"
	"settlement-reconciliation-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Form fields carrying the two uploaded files.
const (
	fieldStatement  = "statement"
	fieldSettlement = "settlement"
)

// uploadSet tracks the files saved for one request.
type uploadSet struct {
	server *Server
	paths  map[string]string
	names  map[string]string
}

func (s *Server) newUploadSet() *uploadSet {
	return &uploadSet{
		server: s,
		paths:  make(map[string]string),
		names:  make(map[string]string),
	}
}

// save stores the multipart file of field under the upload directory with a
// unique prefix. The original extension is kept so the loader can detect the
// format.
func (u *uploadSet) save(c *gin.Context, field string) error {
	header, err := c.FormFile(field)
	if err != nil {
		return errors.ValidationError(errors.CodeMissingField, field, nil, err).
			WithSuggestion("attach both the statement and the settlement file")
	}
	return u.store(c, field, header)
}

func (u *uploadSet) store(c *gin.Context, field string, header *multipart.FileHeader) error {
	name := filepath.Base(header.Filename)
	if name == "." || name == string(filepath.Separator) || strings.TrimSpace(name) == "" {
		return errors.ValidationError(errors.CodeMissingField, field, header.Filename, nil).
			WithSuggestion("upload a file with a name and extension")
	}

	dst := filepath.Join(u.server.config.UploadDir, uuid.NewString()+"_"+name)
	if err := c.SaveUploadedFile(header, dst); err != nil {
		return errors.FileError(errors.CodeFilePermission, dst, err)
	}

	u.paths[field] = dst
	u.names[field] = name
	u.server.logger.WithFields(logger.Fields{
		"field": field,
		"file":  name,
		"size":  header.Size,
	}).Debug("Upload saved")
	return nil
}

// cleanup removes the saved files unless uploads are kept.
func (u *uploadSet) cleanup() {
	if u.server.config.KeepUploads {
		return
	}
	for _, path := range u.paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			u.server.logger.WithError(err).WithField("path", path).Warn("Failed to remove upload")
		}
	}
}
