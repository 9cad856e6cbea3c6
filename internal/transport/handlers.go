package transport

import (
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/service"
)

type ImageHandler struct {
	images   service.ImageService
	preloads service.PreloadService
	warm     service.WarmService
}

func NewImageHandler(svc *service.Service) *ImageHandler {
	return &ImageHandler{
		images:   svc.ImageService,
		preloads: svc.PreloadService,
		warm:     svc.WarmService,
	}
}
