package main

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mmdatafocus/gem_ledger/config"
	"github.com/mmdatafocus/gem_ledger/utils"
	"github.com/sirupsen/logrus"
)

type uploadResponse struct {
	URL                string `json:"url"`
	ThumbnailURL       string `json:"thumbnail_url,omitempty"`
	ObjectKey          string `json:"object_key"`
	ThumbnailObjectKey string `json:"thumbnail_object_key,omitempty"`
}

const (
	maxUploadSizeBytes int64 = 5 * 1024 * 1024
	imageObjectDir           = "gems"
)

var imageMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

var errTooLarge = errors.New("file size exceeds 5MB limit")

func uploadImageHandler(store utils.ObjectStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()
		ctx := c.Request.Context()
		cid, _ := utils.GetCorrelationIdFromContext(ctx)

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSizeBytes+1024*1024)
		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}
		if fileHeader.Size > maxUploadSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": errTooLarge.Error()})
			return
		}

		data, err := readUpload(fileHeader.Open)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		mimeType := http.DetectContentType(data)
		if !imageMimeTypes[mimeType] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported image type"})
			return
		}

		ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
		if ext == "" {
			ext = extensionFromMimeType(mimeType)
		}
		objectKey := path.Join(imageObjectDir, uuid.NewString()+ext)

		thumbnail, err := createThumbnail(data)
		if err != nil {
			logUploadError(logger, err, cid)
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to decode image"})
			return
		}

		url, err := store.Put(ctx, objectKey, data, mimeType)
		if err != nil {
			logUploadError(logger, err, cid)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store image"})
			return
		}
		response := uploadResponse{URL: url, ObjectKey: objectKey}

		thumbnailKey := thumbnailObjectKey(objectKey)
		if thumbnailURL, err := store.Put(ctx, thumbnailKey, thumbnail, "image/jpeg"); err != nil {
			// the original is already stored; the thumbnail is optional
			logUploadError(logger, err, cid)
		} else {
			response.ThumbnailURL = thumbnailURL
			response.ThumbnailObjectKey = thumbnailKey
		}

		logger.WithFields(logrus.Fields{
			"mime_type":  mimeType,
			"size":       len(data),
			"object_key": objectKey,
		}).Info("[upload.complete]")

		c.JSON(http.StatusCreated, gin.H{"data": response})
	}
}

func readUpload(open func() (multipart.File, error)) ([]byte, error) {
	file, err := open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSizeBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxUploadSizeBytes {
		return nil, errTooLarge
	}
	return data, nil
}

func createThumbnail(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	thumbnail := imaging.Resize(img, 200, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumbnail, imaging.JPEG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func thumbnailObjectKey(objectKey string) string {
	dir := path.Dir(objectKey)
	filename := path.Base(objectKey)
	return path.Join(dir, "thumbnails", filename)
}

func extensionFromMimeType(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	default:
		return ""
	}
}

func logUploadError(logger *logrus.Logger, err error, requestID string) {
	logger.WithFields(logrus.Fields{
		"error":      err.Error(),
		"request_id": requestID,
	}).Error("[upload.error]")
}
