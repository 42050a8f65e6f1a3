package routes

import (
	"github.com/gin-gonic/gin"

	"docchat-server/internal/infrastructure/auth"
	"docchat-server/internal/interfaces/httpserver/handlers/chathandler"
	"docchat-server/internal/interfaces/httpserver/handlers/uploadhandler"
)

// Routes encapsulates API route registration.
type Routes struct {
	chat   *chathandler.ChatHandler
	upload *uploadhandler.UploadHandler
	auth   *auth.Validator
}

func NewRoutes(chat *chathandler.ChatHandler, upload *uploadhandler.UploadHandler, authValidator *auth.Validator) *Routes {
	return &Routes{chat: chat, upload: upload, auth: authValidator}
}

// Register attaches all API routes under the /api prefix. Everything under
// /api requires an authenticated principal.
func (r *Routes) Register(router gin.IRouter) {
	api := router.Group("/api")
	if r.auth != nil {
		api.Use(r.auth.Middleware())
	}

	api.POST("/chat", r.chat.CreateChat)
	api.GET("/chat", r.chat.GetChat)
	api.DELETE("/chat", r.chat.DeleteChat)
	api.GET("/history", r.chat.GetHistory)
	api.POST("/files/upload", r.upload.Upload)
	api.GET("/files/:id", r.upload.Serve)
}
