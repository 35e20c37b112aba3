package controller

import "uploadhub/engine"

type sessionRequest struct {
	Id string `json:"id"`
}

type uploadOptions struct {
	URL         string            `json:"url" binding:"required"`
	Method      string            `json:"method"`
	Headers     map[string]string `json:"headers"`
	Description string            `json:"description"`
	AutoDelete  bool              `json:"autoDelete"`
	MaxRetries  int               `json:"maxRetries"`
}

type uploadFileRequest struct {
	Path string `json:"path" binding:"required"`
	uploadOptions
}

type multipartUploadRequest struct {
	Parts []engine.Part `json:"parts" binding:"required"`
	uploadOptions
}
