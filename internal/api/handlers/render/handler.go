package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/thumbor/internal/api/respond"
	"github.com/aliskhannn/thumbor/internal/model"
	"github.com/aliskhannn/thumbor/internal/processor"
	renderrepo "github.com/aliskhannn/thumbor/internal/repository/render"
	rendersvc "github.com/aliskhannn/thumbor/internal/service/render"
	"github.com/aliskhannn/thumbor/internal/spec"
	"github.com/aliskhannn/thumbor/internal/storage/file"
)

// maxUploadMemory is the part of a multipart upload kept in memory.
const maxUploadMemory = 10 << 20

// service defines the interface for render-related operations.
type service interface {
	Upload(ctx context.Context, filename string, file io.Reader) (string, error)
	Render(ctx context.Context, token, source string) (io.ReadCloser, bool, error)
	Evict(ctx context.Context, token, source string) error
	Enqueue(ctx context.Context, token, source string) (uuid.UUID, error)
	GetRender(ctx context.Context, id uuid.UUID) (model.Render, error)
}

// Handler provides HTTP handlers for pipeline and render endpoints.
type Handler struct {
	service service
}

// NewHandler creates a new Handler with the given service.
func NewHandler(s service) *Handler {
	return &Handler{service: s}
}

// PipelineRequest lists operations in their text form, e.g. "resize:600x600:catmullrom".
type PipelineRequest struct {
	Operations []string `json:"operations" binding:"required"`
	Source     string   `json:"source"`
}

// PipelineResponse is the token built from a PipelineRequest.
type PipelineResponse struct {
	Token    string `json:"token"`
	Pipeline string `json:"pipeline"`
	URL      string `json:"url,omitempty"`
}

// RenderRequest asks for an asynchronous render.
type RenderRequest struct {
	Token  string `json:"token" binding:"required"`
	Source string `json:"source" binding:"required"`
}

// Upload stores a source image sent as the "image" multipart field.
func (h *Handler) Upload(c *ginext.Context) {
	if err := c.Request.ParseMultipartForm(maxUploadMemory); err != nil {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("parse multipart form failed: %v", err))
		return
	}

	f, header, err := c.Request.FormFile("image")
	if err != nil {
		zlog.Logger.Err(err).Msg("failed to upload the file")
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("failed to retrieve the file"))
		return
	}
	defer f.Close()

	filename := path.Base(header.Filename)
	if filename == "." || filename == "/" {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid file name %q", header.Filename))
		return
	}

	dst, err := h.service.Upload(c.Request.Context(), filename, f)
	if err != nil {
		zlog.Logger.Err(err).Msg("failed to save the image")
		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("failed to save the image"))
		return
	}

	zlog.Logger.Info().
		Str("path", dst).
		Int64("size", header.Size).
		Msg("source image uploaded")

	respond.Created(c, map[string]interface{}{
		"filename": filename,
		"path":     dst,
	})
}

// Image renders the pipeline in the URL over the source image and serves
// the JPEG. Route: /image/:token/*source.
func (h *Handler) Image(c *ginext.Context) {
	token := c.Param("token")
	source := strings.TrimPrefix(c.Param("source"), "/")
	if source == "" {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("missing source image"))
		return
	}

	reader, cached, err := h.service.Render(c.Request.Context(), token, source)
	if err != nil {
		h.fail(c, err, "failed to render image")
		return
	}
	defer reader.Close()

	// Tokens are deterministic, so a URL always yields the same image.
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	if cached {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}

	respond.JPEG(c, http.StatusOK, reader)
}

// Evict drops the cached result of an image URL.
func (h *Handler) Evict(c *ginext.Context) {
	source := strings.TrimPrefix(c.Param("source"), "/")
	if source == "" {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("missing source image"))
		return
	}

	if err := h.service.Evict(c.Request.Context(), c.Param("token"), source); err != nil {
		h.fail(c, err, "failed to evict cached image")
		return
	}

	c.Status(http.StatusNoContent)
}

// BuildPipeline encodes a list of operations into a token.
func (h *Handler) BuildPipeline(c *ginext.Context) {
	var req PipelineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid request: %v", err))
		return
	}
	if len(req.Operations) == 0 {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("at least one operation is required"))
		return
	}

	ops := make([]spec.Operation, 0, len(req.Operations))
	for _, s := range req.Operations {
		op, err := spec.ParseOperation(s)
		if err != nil {
			respond.Fail(c, http.StatusBadRequest, err)
			return
		}
		ops = append(ops, op)
	}

	p := spec.NewPipeline(ops...)
	resp := PipelineResponse{
		Token:    p.Token(),
		Pipeline: p.String(),
	}
	if req.Source != "" {
		resp.URL = "/image/" + resp.Token + "/" + strings.TrimPrefix(req.Source, "/")
	}

	respond.OK(c, resp)
}

// DescribePipeline decodes a token and returns its operations as JSON.
func (h *Handler) DescribePipeline(c *ginext.Context) {
	p, err := spec.ParseToken(c.Param("token"))
	if err != nil {
		respond.Fail(c, http.StatusBadRequest, err)
		return
	}

	views := make([]map[string]interface{}, 0, p.Len())
	for _, op := range p.Operations() {
		views = append(views, describe(op))
	}

	respond.OK(c, map[string]interface{}{
		"pipeline":   p.String(),
		"operations": views,
	})
}

func describe(op spec.Operation) map[string]interface{} {
	view := map[string]interface{}{"text": op.String()}

	switch op := op.(type) {
	case spec.Resize:
		view["op"] = "resize"
		view["type"] = op.Type.String()
		view["width"] = op.Width
		view["height"] = op.Height
		view["sample_filter"] = op.Filter.String()
	case spec.Filter:
		view["op"] = "filter"
		if name, ok := op.Kind.Name(); ok {
			view["kind"] = name
		} else {
			view["kind"] = nil
		}
	case spec.Watermark:
		view["op"] = "watermark"
		view["x"] = op.X
		view["y"] = op.Y
	}

	return view
}

// Enqueue schedules an asynchronous render and returns its job ID.
func (h *Handler) Enqueue(c *ginext.Context) {
	var req RenderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid request: %v", err))
		return
	}

	id, err := h.service.Enqueue(c.Request.Context(), req.Token, strings.TrimPrefix(req.Source, "/"))
	if err != nil {
		h.fail(c, err, "failed to enqueue render")
		return
	}

	respond.Accepted(c, map[string]interface{}{
		"id":     id,
		"status": model.StatusPending,
	})
}

// GetRender returns the status of a render job.
func (h *Handler) GetRender(c *ginext.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid id: %v", err))
		return
	}

	job, err := h.service.GetRender(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "failed to get render")
		return
	}

	respond.OK(c, job)
}

// fail maps service errors to HTTP statuses.
func (h *Handler) fail(c *ginext.Context, err error, msg string) {
	switch {
	case spec.IsDecodeError(err):
		zlog.Logger.Warn().Err(err).Msg("invalid pipeline token")
		respond.Fail(c, http.StatusBadRequest, err)
	case errors.Is(err, processor.ErrInvalidSize):
		respond.Fail(c, http.StatusUnprocessableEntity, err)
	case errors.Is(err, rendersvc.ErrSourceNotFound),
		errors.Is(err, file.ErrObjectNotFound):
		respond.Fail(c, http.StatusNotFound, fmt.Errorf("source image not found"))
	case errors.Is(err, renderrepo.ErrRenderNotFound):
		respond.Fail(c, http.StatusNotFound, fmt.Errorf("render not found"))
	default:
		zlog.Logger.Err(err).Msg(msg)
		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("%s", msg))
	}
}
