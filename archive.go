package main

import (
	"context"
	"io"
	"mime/multipart"
	"path"
	"time"

	"bitbucket.org/mmdatafocus/retail_backend/config"
	"bitbucket.org/mmdatafocus/retail_backend/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// archiveImportFile keeps a copy of the uploaded spreadsheet in GCS so a bad
// import can be diagnosed later. Best-effort: failures are logged only.
func archiveImportFile(businessId, jobId string, fileHeader *multipart.FileHeader) {
	if !utils.ArchiveEnabled() {
		return
	}
	logger := config.GetLogger()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	file, err := fileHeader.Open()
	if err != nil {
		config.LogError(logger, "archive.go", "archiveImportFile", "open upload", jobId, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImportSizeBytes+1))
	if err != nil {
		config.LogError(logger, "archive.go", "archiveImportFile", "read upload", jobId, err)
		return
	}

	objectName := path.Join(businessId, "imports", jobId+".xlsx")
	if err := utils.UploadBytesToGCS(ctx, objectName, data, xlsxContentType); err != nil {
		config.LogError(logger, "archive.go", "archiveImportFile", "upload", objectName, err)
	}
}
