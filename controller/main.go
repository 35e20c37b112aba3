package controller

import (
	"github.com/gin-gonic/gin"

	"uploadhub/upload"
)

func SetupRoutes(r *gin.Engine, manager *upload.Manager) {
	uc := NewUploadController(manager)

	sessions := r.Group("/sessions")
	{
		sessions.POST("", uc.CreateSession)
		sessions.POST("/:sid/uploads", uc.UploadFile)
		sessions.POST("/:sid/uploads/multipart", uc.MultipartUpload)
	}

	uploads := r.Group("/uploads")
	{
		uploads.GET("", uc.ListTasks)
		uploads.GET("/:id", uc.GetTask)
		uploads.POST("/:id/cancel", uc.CancelTask)
		uploads.DELETE("/:id", uc.EvictTask)
	}

	r.GET("/events", uc.StreamEvents)
}
