package router

import (
	"github.com/wb-go/wbf/ginext"

	"github.com/aliskhannn/thumbor/internal/api/handlers/render"
	"github.com/aliskhannn/thumbor/internal/middleware"
)

// Setup registers the render routes.
func Setup(h *render.Handler) *ginext.Engine {
	r := ginext.New()

	r.Use(middleware.CORSMiddleware())
	r.Use(ginext.Logger())
	r.Use(ginext.Recovery())

	r.GET("/image/:token/*source", h.Image)    // render a pipeline over a stored image
	r.DELETE("/image/:token/*source", h.Evict) // drop the cached result

	api := r.Group("/api")

	api.POST("/upload", h.Upload)                   // upload a source image
	api.POST("/pipeline", h.BuildPipeline)          // operations -> token
	api.GET("/pipeline/:token", h.DescribePipeline) // token -> operations
	api.POST("/render", h.Enqueue)                  // queue an async render
	api.GET("/render/:id", h.GetRender)             // async render status

	return r
}
