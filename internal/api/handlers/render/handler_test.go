package render_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/thumbor/internal/api/handlers/render"
	"github.com/aliskhannn/thumbor/internal/api/router"
	"github.com/aliskhannn/thumbor/internal/model"
	"github.com/aliskhannn/thumbor/internal/processor"
	renderrepo "github.com/aliskhannn/thumbor/internal/repository/render"
	rendersvc "github.com/aliskhannn/thumbor/internal/service/render"
	"github.com/aliskhannn/thumbor/internal/spec"
)

type fakeService struct {
	uploads map[string][]byte
	jobs    map[uuid.UUID]model.Render
	evicted []string
	cached  bool
	err     error
}

func newFakeService() *fakeService {
	return &fakeService{
		uploads: make(map[string][]byte),
		jobs:    make(map[uuid.UUID]model.Render),
	}
}

func (s *fakeService) Upload(_ context.Context, filename string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.uploads["original/"+filename] = data
	return "original/" + filename, nil
}

func (s *fakeService) Render(_ context.Context, token, source string) (io.ReadCloser, bool, error) {
	if s.err != nil {
		return nil, false, s.err
	}
	return io.NopCloser(strings.NewReader(token + "|" + source)), s.cached, nil
}

func (s *fakeService) Evict(_ context.Context, token, source string) error {
	if s.err != nil {
		return s.err
	}
	s.evicted = append(s.evicted, token+"|"+source)
	return nil
}

func (s *fakeService) Enqueue(_ context.Context, token, source string) (uuid.UUID, error) {
	if s.err != nil {
		return uuid.Nil, s.err
	}
	id := uuid.New()
	s.jobs[id] = model.Render{ID: id, Token: token, Source: source, Status: model.StatusPending}
	return id, nil
}

func (s *fakeService) GetRender(_ context.Context, id uuid.UUID) (model.Render, error) {
	job, ok := s.jobs[id]
	if !ok {
		return model.Render{}, fmt.Errorf("get render: %w", renderrepo.ErrRenderNotFound)
	}
	return job, nil
}

func newRouter(s *fakeService) *ginext.Engine {
	zlog.Init()
	return router.Setup(render.NewHandler(s))
}

func serve(r http.Handler, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

type envelope struct {
	Result  json.RawMessage `json:"result"`
	Message string          `json:"message"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env
}

var token = spec.NewPipeline(spec.NewResize(600, 600, spec.SampleCatmullRom), spec.NewFilter(spec.FilterMarine)).Token()

func TestImage(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		cached     bool
		err        error
		wantStatus int
		wantCache  string
	}{
		{"miss", "/image/" + token + "/original/cat.jpg", false, nil, http.StatusOK, "MISS"},
		{"hit", "/image/" + token + "/original/cat.jpg", true, nil, http.StatusOK, "HIT"},
		{"missing source path", "/image/" + token + "/", false, nil, http.StatusBadRequest, ""},
		{"invalid token", "/image/not!valid$$base64/original/cat.jpg", false, fmt.Errorf("render: %w", spec.ErrInvalidEncoding), http.StatusBadRequest, ""},
		{"unknown variant", "/image/CgIiAA/original/cat.jpg", false, fmt.Errorf("render: %w", spec.ErrUnknownVariant), http.StatusBadRequest, ""},
		{"invalid size", "/image/" + token + "/original/cat.jpg", false, fmt.Errorf("render: %w", processor.ErrInvalidSize), http.StatusUnprocessableEntity, ""},
		{"source not found", "/image/" + token + "/original/dog.jpg", false, fmt.Errorf("render: %w", rendersvc.ErrSourceNotFound), http.StatusNotFound, ""},
		{"storage failure", "/image/" + token + "/original/cat.jpg", false, errors.New("minio down"), http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newFakeService()
			s.cached = tt.cached
			s.err = tt.err

			rr := serve(newRouter(s), http.MethodGet, tt.target, nil, "")
			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantCache, rr.Header().Get("X-Cache"))

			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "image/jpeg", rr.Header().Get("Content-Type"))
				assert.Equal(t, token+"|original/cat.jpg", rr.Body.String())
			}
		})
	}
}

func TestEvict(t *testing.T) {
	s := newFakeService()
	r := newRouter(s)

	rr := serve(r, http.MethodDelete, "/image/"+token+"/original/cat.jpg", nil, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, []string{token + "|original/cat.jpg"}, s.evicted)

	s.err = fmt.Errorf("evict: %w", spec.ErrMalformedField)
	rr = serve(r, http.MethodDelete, "/image/CgIIAQ/original/cat.jpg", nil, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestBuildPipeline(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		want       render.PipelineResponse
	}{
		{
			name:       "with source",
			body:       `{"operations":["resize:600x600:catmullrom","filter:marine"],"source":"original/cat.jpg"}`,
			wantStatus: http.StatusOK,
			want: render.PipelineResponse{
				Token:    token,
				Pipeline: "resize:600x600:catmullrom filter:marine",
				URL:      "/image/" + token + "/original/cat.jpg",
			},
		},
		{
			name:       "watermark only",
			body:       `{"operations":["watermark:10,20"]}`,
			wantStatus: http.StatusOK,
			want: render.PipelineResponse{
				Token:    "CgYaBAgKEBQ",
				Pipeline: "watermark:10,20",
			},
		},
		{"unknown operation", `{"operations":["blur:3"]}`, http.StatusBadRequest, render.PipelineResponse{}},
		{"unknown filter", `{"operations":["filter:sepia"]}`, http.StatusBadRequest, render.PipelineResponse{}},
		{"no operations", `{"operations":[]}`, http.StatusBadRequest, render.PipelineResponse{}},
		{"not json", `{`, http.StatusBadRequest, render.PipelineResponse{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(newRouter(newFakeService()), http.MethodPost, "/api/pipeline", strings.NewReader(tt.body), "application/json")
			require.Equal(t, tt.wantStatus, rr.Code)

			env := decodeEnvelope(t, rr)
			if tt.wantStatus != http.StatusOK {
				assert.NotEmpty(t, env.Message)
				return
			}

			var got render.PipelineResponse
			require.NoError(t, json.Unmarshal(env.Result, &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDescribePipeline(t *testing.T) {
	r := newRouter(newFakeService())

	tok := spec.NewPipeline(
		spec.NewResizeSeamCarve(300, 200),
		spec.NewFilter(spec.FilterUnspecified),
		spec.NewWatermark(1, 2),
	).Token()

	rr := serve(r, http.MethodGet, "/api/pipeline/"+tok, nil, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var got struct {
		Pipeline   string                   `json:"pipeline"`
		Operations []map[string]interface{} `json:"operations"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Result, &got))

	require.Len(t, got.Operations, 3)
	assert.Equal(t, "resize", got.Operations[0]["op"])
	assert.Equal(t, "seam_carve", got.Operations[0]["type"])
	assert.Equal(t, float64(300), got.Operations[0]["width"])
	assert.Equal(t, "filter", got.Operations[1]["op"])
	assert.Nil(t, got.Operations[1]["kind"])
	assert.Equal(t, "watermark", got.Operations[2]["op"])
	assert.Equal(t, float64(2), got.Operations[2]["y"])

	rr = serve(r, http.MethodGet, "/api/pipeline/CgIiAA", nil, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeEnvelope(t, rr).Message, spec.ErrUnknownVariant.Error())
}

func TestEnqueueAndGetRender(t *testing.T) {
	s := newFakeService()
	r := newRouter(s)

	body := `{"token":"` + token + `","source":"/original/cat.jpg"}`
	rr := serve(r, http.MethodPost, "/api/render", strings.NewReader(body), "application/json")
	require.Equal(t, http.StatusAccepted, rr.Code)

	var accepted struct {
		ID     uuid.UUID `json:"id"`
		Status string    `json:"status"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Result, &accepted))
	assert.Equal(t, model.StatusPending, accepted.Status)
	assert.Equal(t, "original/cat.jpg", s.jobs[accepted.ID].Source)

	rr = serve(r, http.MethodGet, "/api/render/"+accepted.ID.String(), nil, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var job model.Render
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Result, &job))
	assert.Equal(t, accepted.ID, job.ID)
	assert.Equal(t, token, job.Token)

	rr = serve(r, http.MethodGet, "/api/render/"+uuid.NewString(), nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = serve(r, http.MethodGet, "/api/render/not-a-uuid", nil, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(r, http.MethodPost, "/api/render", strings.NewReader(`{"token":"abc"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestEnqueueRejectsBadToken(t *testing.T) {
	s := newFakeService()
	s.err = fmt.Errorf("enqueue: %w", spec.ErrTruncated)

	body := `{"token":"CgoKCA","source":"original/cat.jpg"}`
	rr := serve(newRouter(s), http.MethodPost, "/api/render", strings.NewReader(body), "application/json")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUpload(t *testing.T) {
	s := newFakeService()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("image", "../cat.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("png bytes"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	rr := serve(newRouter(s), http.MethodPost, "/api/upload", &body, w.FormDataContentType())
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, []byte("png bytes"), s.uploads["original/cat.png"])

	rr = serve(newRouter(s), http.MethodPost, "/api/upload", strings.NewReader("x"), "text/plain")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCORSPreflight(t *testing.T) {
	rr := serve(newRouter(newFakeService()), http.MethodOptions, "/api/pipeline", nil, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "X-Cache", rr.Header().Get("Access-Control-Expose-Headers"))
}
