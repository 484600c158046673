package api

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/chargewatch-go/internal/camera"
	"github.com/tphakala/chargewatch-go/internal/datastore/entities"
	"github.com/tphakala/chargewatch-go/internal/datastore/repository"
	"github.com/tphakala/chargewatch-go/internal/logger"
)

const mjpegBoundary = "chargewatchframe"

// initCameraRoutes registers camera management and video endpoints.
func (c *Controller) initCameraRoutes() {
	group := c.Group.Group("/cameras")
	group.GET("", c.ListCameras)
	group.POST("", c.CreateCamera)
	group.GET("/:id", c.GetCamera)
	group.PUT("/:id", c.UpdateCamera)
	group.DELETE("/:id", c.DeleteCamera)
	group.GET("/:id/snapshot", c.Snapshot)
	group.GET("/:id/stream", c.StreamMJPEG)
	group.GET("/:id/detections", c.ListDetections)
}

// ListCameras returns every configured camera with its stream state.
func (c *Controller) ListCameras(ctx echo.Context) error {
	cams, err := c.cameraRepo.List(ctx.Request().Context())
	if err != nil {
		c.log.Error("failed to list cameras", logger.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list cameras"})
	}

	type cameraView struct {
		entities.Camera
		StreamStatus camera.Status `json:"stream_status"`
	}
	views := make([]cameraView, 0, len(cams))
	for i := range cams {
		status, _ := c.cameras.StreamStatus(cams[i].ID)
		views = append(views, cameraView{Camera: cams[i], StreamStatus: status})
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"cameras": views,
		"count":   len(views),
	})
}

// cameraRequest is the POST/PUT body for camera management.
type cameraRequest struct {
	Name             string         `json:"name"`
	URL              string         `json:"url"`
	Location         string         `json:"location"`
	Status           string         `json:"status"`
	Resolution       string         `json:"resolution"`
	FPS              int            `json:"fps"`
	DetectionEnabled *bool          `json:"detection_enabled"`
	DetectionConfig  map[string]any `json:"detection_config"`
}

// CreateCamera registers a camera and starts its stream when active.
func (c *Controller) CreateCamera(ctx echo.Context) error {
	var req cameraRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Name == "" || req.URL == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "name and url are required"})
	}

	cam := &entities.Camera{
		Name:            req.Name,
		URL:             req.URL,
		Location:        req.Location,
		Status:          req.Status,
		Resolution:      req.Resolution,
		FPS:             req.FPS,
		DetectionConfig: entities.JSONMap(req.DetectionConfig),
	}
	if req.DetectionEnabled != nil {
		cam.DetectionEnabled = *req.DetectionEnabled
	} else {
		cam.DetectionEnabled = true
	}

	if err := c.cameras.AddCamera(ctx.Request().Context(), cam); err != nil {
		c.log.Error("failed to create camera", logger.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to create camera"})
	}
	return ctx.JSON(http.StatusCreated, cam)
}

// GetCamera returns one camera by ID.
func (c *Controller) GetCamera(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid camera ID"})
	}

	cam, err := c.cameraRepo.Get(ctx.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrCameraNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "camera not found"})
		}
		c.log.Error("failed to get camera", logger.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get camera"})
	}
	return ctx.JSON(http.StatusOK, cam)
}

// UpdateCamera applies camera changes and reconciles the stream.
func (c *Controller) UpdateCamera(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid camera ID"})
	}

	cam, err := c.cameraRepo.Get(ctx.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrCameraNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "camera not found"})
		}
		c.log.Error("failed to get camera", logger.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get camera"})
	}

	var req cameraRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Name != "" {
		cam.Name = req.Name
	}
	if req.URL != "" {
		cam.URL = req.URL
	}
	if req.Location != "" {
		cam.Location = req.Location
	}
	if req.Status != "" {
		cam.Status = req.Status
	}
	if req.Resolution != "" {
		cam.Resolution = req.Resolution
	}
	if req.FPS > 0 {
		cam.FPS = req.FPS
	}
	if req.DetectionEnabled != nil {
		cam.DetectionEnabled = *req.DetectionEnabled
	}
	if req.DetectionConfig != nil {
		cam.DetectionConfig = entities.JSONMap(req.DetectionConfig)
	}

	if err := c.cameras.UpdateCamera(ctx.Request().Context(), cam); err != nil {
		c.log.Error("failed to update camera", logger.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to update camera"})
	}
	return ctx.JSON(http.StatusOK, cam)
}

// DeleteCamera stops the stream and removes the camera.
func (c *Controller) DeleteCamera(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid camera ID"})
	}

	if err := c.cameras.DeleteCamera(ctx.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrCameraNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "camera not found"})
		}
		c.log.Error("failed to delete camera", logger.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to delete camera"})
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Snapshot returns the latest frame as JPEG. With detect=true the
// detector runs on the frame and found boxes are drawn into the image.
func (c *Controller) Snapshot(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid camera ID"})
	}

	frame, ok := c.cameras.Snapshot(id)
	if !ok {
		return ctx.JSON(http.StatusNotFound, map[string]string{"error": "no frame available"})
	}

	data := frame.Data
	if ctx.QueryParam("detect") == "true" {
		if annotated, annErr := c.annotateFrame(ctx, id, frame); annErr == nil {
			data = annotated
		} else {
			c.log.Warn("snapshot annotation failed",
				logger.Uint64("camera_id", uint64(id)),
				logger.Error(annErr),
			)
		}
	}
	return ctx.Blob(http.StatusOK, "image/jpeg", data)
}

// StreamMJPEG serves the camera as multipart/x-mixed-replace, paced at
// the configured frame rate until the client disconnects.
func (c *Controller) StreamMJPEG(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid camera ID"})
	}
	if _, tracked := c.cameras.StreamStatus(id); !tracked {
		return ctx.JSON(http.StatusNotFound, map[string]string{"error": "camera not streaming"})
	}

	fps := c.settings.Cameras.StreamFPS
	if fps <= 0 {
		fps = 20
	}
	interval := time.Second / time.Duration(fps)

	resp := ctx.Response()
	resp.Header().Set(echo.HeaderContentType, "multipart/x-mixed-replace; boundary="+mjpegBoundary)
	resp.WriteHeader(http.StatusOK)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	done := ctx.Request().Context().Done()
	for {
		select {
		case <-done:
			return nil
		case <-ticker.C:
		}

		frame, ok := c.cameras.Snapshot(id)
		if !ok {
			continue
		}
		if _, err := fmt.Fprintf(resp, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", mjpegBoundary, len(frame.Data)); err != nil {
			return nil
		}
		if _, err := resp.Write(frame.Data); err != nil {
			return nil
		}
		if _, err := fmt.Fprint(resp, "\r\n"); err != nil {
			return nil
		}
		resp.Flush()
	}
}

// ListDetections returns recent detection events for a camera.
func (c *Controller) ListDetections(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid camera ID"})
	}

	events, err := c.detections.ListByCamera(ctx.Request().Context(), id, queryInt(ctx, "limit", 50))
	if err != nil {
		c.log.Error("failed to list detections", logger.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list detections"})
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"detections": events,
		"count":      len(events),
	})
}

// annotateFrame draws detection boxes into the frame JPEG.
func (c *Controller) annotateFrame(ctx echo.Context, cameraID uint, frame camera.Frame) ([]byte, error) {
	detector := c.cameras.ActiveDetector()
	if detector == nil {
		return frame.Data, nil
	}
	found, err := detector.Infer(ctx.Request().Context(), frame)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return frame.Data, nil
	}

	img, err := jpeg.Decode(bytes.NewReader(frame.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	canvas := image.NewRGBA(img.Bounds())
	draw.Draw(canvas, img.Bounds(), img, img.Bounds().Min, draw.Src)

	boxColor := color.RGBA{R: 255, A: 255}
	for _, d := range found {
		if len(d.BBox) < 4 {
			continue
		}
		drawBox(canvas, int(d.BBox[0]), int(d.BBox[1]), int(d.BBox[2]), int(d.BBox[3]), boxColor)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode annotated frame: %w", err)
	}
	return buf.Bytes(), nil
}

// drawBox outlines a rectangle with 2px borders, clamped to the image.
func drawBox(img *image.RGBA, x, y, w, h int, col color.RGBA) {
	bounds := img.Bounds()
	for t := 0; t < 2; t++ {
		for i := x; i <= x+w; i++ {
			setIfInside(img, bounds, i, y+t, col)
			setIfInside(img, bounds, i, y+h-t, col)
		}
		for j := y; j <= y+h; j++ {
			setIfInside(img, bounds, x+t, j, col)
			setIfInside(img, bounds, x+w-t, j, col)
		}
	}
}

func setIfInside(img *image.RGBA, bounds image.Rectangle, x, y int, col color.RGBA) {
	if image.Pt(x, y).In(bounds) {
		img.SetRGBA(x, y, col)
	}
}
