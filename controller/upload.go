package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"uploadhub/upload"
	"uploadhub/websocket"
	"uploadhub/websocket/service/heartbeat"
	"uploadhub/websocket/service/uploads"
)

type UploadController struct {
	manager *upload.Manager
}

func NewUploadController(manager *upload.Manager) *UploadController {
	return &UploadController{manager: manager}
}

// CreateSession hands out a session id. Sessions hold no server-side state;
// the id only namespaces the task ids minted through it.
func (uc *UploadController) CreateSession(c *gin.Context) {
	var req sessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	session := uc.manager.Session(req.Id)
	c.JSON(http.StatusCreated, gin.H{"id": session.ID()})
}

func (uc *UploadController) UploadFile(c *gin.Context) {
	var req uploadFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session := uc.manager.Session(c.Param("sid"))
	task, err := session.UploadFile(req.Path, req.options())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, task.Snapshot())
}

func (uc *UploadController) MultipartUpload(c *gin.Context) {
	var req multipartUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session := uc.manager.Session(c.Param("sid"))
	task, err := session.MultipartUpload(req.Parts, req.options())
	if err != nil {
		var verr *upload.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, task.Snapshot())
}

func (uc *UploadController) ListTasks(c *gin.Context) {
	tasks := uc.manager.Tasks()
	snapshots := make([]upload.Snapshot, 0, len(tasks))
	for _, t := range tasks {
		snapshots = append(snapshots, t.Snapshot())
	}
	c.JSON(http.StatusOK, snapshots)
}

func (uc *UploadController) GetTask(c *gin.Context) {
	task, ok := uc.manager.Task(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": upload.ErrUnknownTask.Error()})
		return
	}
	c.JSON(http.StatusOK, task.Snapshot())
}

// CancelTask requests an abort. The task stays in its current status until
// the engine delivers the cancellation, so this returns 202, not 200.
func (uc *UploadController) CancelTask(c *gin.Context) {
	task, ok := uc.manager.Task(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": upload.ErrUnknownTask.Error()})
		return
	}
	task.Cancel()
	c.JSON(http.StatusAccepted, task.Snapshot())
}

func (uc *UploadController) EvictTask(c *gin.Context) {
	err := uc.manager.Evict(c.Param("id"))
	switch {
	case errors.Is(err, upload.ErrUnknownTask):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, upload.ErrTaskActive):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.Status(http.StatusNoContent)
	}
}

func (uc *UploadController) StreamEvents(c *gin.Context) {
	wsServer, err := websocket.NewServer(c.Writer, c.Request)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	wsServer.Register(uploads.NewService(uc.manager))
	wsServer.RegisterPassive(heartbeat.NewService())

	wsServer.Start()
}

func (o *uploadOptions) options() upload.Options {
	return upload.Options{
		URL:         o.URL,
		Method:      o.Method,
		Headers:     o.Headers,
		Description: o.Description,
		AutoDelete:  o.AutoDelete,
		MaxRetries:  o.MaxRetries,
	}
}
