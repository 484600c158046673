package camera

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// MJPEGSource opens HTTP MJPEG (multipart/x-mixed-replace) camera URLs,
// the stream format served by most IP cameras and restreamers.
type MJPEGSource struct {
	client *http.Client
}

// NewMJPEGSource creates a source. A nil client gets a default without a
// timeout, since streams are long-lived.
func NewMJPEGSource(client *http.Client) *MJPEGSource {
	if client == nil {
		client = &http.Client{}
	}
	return &MJPEGSource{client: client}
}

// Open connects to the camera URL and validates the multipart stream.
func (s *MJPEGSource) Open(ctx context.Context, url string) (FrameHandle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build stream request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("failed to connect to stream: status %d", resp.StatusCode)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") || params["boundary"] == "" {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("failed to open stream: not an mjpeg source (content-type %q)", resp.Header.Get("Content-Type"))
	}

	return &mjpegHandle{
		resp:   resp,
		reader: multipart.NewReader(resp.Body, params["boundary"]),
	}, nil
}

type mjpegHandle struct {
	resp   *http.Response
	reader *multipart.Reader
}

// Read returns the next JPEG part of the stream.
func (h *mjpegHandle) Read(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	part, err := h.reader.NextPart()
	if err != nil {
		return Frame{}, fmt.Errorf("failed to read stream part: %w", err)
	}
	defer part.Close()

	// Cap reads so a misbehaving camera cannot balloon memory.
	const maxFrameSize = 8 << 20
	data, err := io.ReadAll(io.LimitReader(part, maxFrameSize+1))
	if err != nil {
		return Frame{}, fmt.Errorf("failed to read frame body: %w", err)
	}
	if len(data) > maxFrameSize {
		return Frame{}, fmt.Errorf("failed to read frame body: frame exceeds %d bytes", maxFrameSize)
	}
	if len(data) == 0 {
		return Frame{}, fmt.Errorf("failed to read frame body: empty part")
	}
	return Frame{Data: data, Timestamp: time.Now().UTC()}, nil
}

func (h *mjpegHandle) Close() error {
	return h.resp.Body.Close()
}
