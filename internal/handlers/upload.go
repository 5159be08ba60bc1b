package handlers

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UploadImage stores an admin-uploaded product image under a generated
// filename and returns the public URL it will be served from.
func UploadImage(uploadsDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /upload/image"
		defer handlePanic(c, route)

		fileHeader, err := c.FormFile("file")
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "file is required")
			return
		}

		contentType := fileHeader.Header.Get("Content-Type")
		if !strings.HasPrefix(contentType, "image/") {
			respondWithError(c, http.StatusBadRequest, route, "file must be an image")
			return
		}

		ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
		if ext == "" {
			ext = ".jpg"
		}
		filename := uuid.NewString() + ext

		if err := c.SaveUploadedFile(fileHeader, filepath.Join(uploadsDir, filename)); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "could not save file")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"filename": filename,
			"url":      "/uploads/" + filename,
		})
	}
}
