package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Router wires the controllers onto the gin engine.
type Router struct {
	subtitles *SubtitleController
	videos    *VideoController
	auth      gin.HandlerFunc

	// 静态挂载/storage目录的本地根路径
	storageRoot string
}

func NewRouter(subtitles *SubtitleController, videos *VideoController, auth gin.HandlerFunc, storageRoot string) *Router {
	return &Router{
		subtitles:   subtitles,
		videos:      videos,
		auth:        auth,
		storageRoot: storageRoot,
	}
}

// SetupRoutes registers the API surface, the health probe and the static
// artifact mount. Auth guards /api only; health probes and artifact links
// stay token-free.
func (r *Router) SetupRoutes(engine *gin.Engine) {
	engine.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	engine.Static("/storage", r.storageRoot)

	api := engine.Group("/api")
	if r.auth != nil {
		api.Use(r.auth)
	}
	{
		subtitles := api.Group("/subtitles")
		{
			subtitles.POST("/download", r.subtitles.Download)
			subtitles.GET("/playlist/progress/:job_id", r.subtitles.PlaylistProgress)
			subtitles.POST("/list", r.subtitles.ListTracks)
			subtitles.POST("/analyze", r.subtitles.Analyze)
		}

		videos := api.Group("/videos")
		{
			videos.POST("/download", r.videos.Download)
			videos.GET("/status/:job_id", r.videos.Status)
			videos.GET("/fetch/:job_id", r.videos.Fetch)
		}
	}
}
