package mjpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEncoder struct {
	calls atomic.Int64
}

func (e *countingEncoder) encode(img image.Image, quality int) ([]byte, error) {
	e.calls.Add(1)
	return []byte(fmt.Sprintf("jpeg-%d-q%d", img.Bounds().Dx(), quality)), nil
}

// readPart reads one multipart section and returns its body
func readPart(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	length := -1
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if length >= 0 {
				break
			}
			continue
		}
		if v, ok := strings.CutPrefix(line, "Content-Length: "); ok {
			length, err = strconv.Atoi(v)
			require.NoError(t, err)
		}
	}
	body := make([]byte, length)
	_, err := io.ReadFull(r, body)
	require.NoError(t, err)
	return string(body)
}

func TestPushFrameWithoutViewersSkipsEncoding(t *testing.T) {
	enc := &countingEncoder{}
	p := NewPublisher(enc.encode, 80, zerolog.Nop())

	p.PushFrame(image.NewRGBA(image.Rect(0, 0, 4, 4)))
	p.UpdateCount(3)

	assert.Equal(t, int64(0), enc.calls.Load())
	assert.Equal(t, 3, p.LastCount())
	assert.Equal(t, 0, p.Viewers())
}

func TestStreamMJPEGHTTP(t *testing.T) {
	enc := &countingEncoder{}
	p := NewPublisher(enc.encode, 80, zerolog.Nop())
	p.keepalive = time.Hour

	srv := httptest.NewServer(http.HandlerFunc(p.StreamMJPEGHTTP))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "multipart/x-mixed-replace; boundary=frame", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)
	// no frame yet, so the placeholder comes first
	assert.Equal(t, "jpeg-640-q80", readPart(t, r))
	assert.Equal(t, 1, p.Viewers())

	p.PushFrame(image.NewRGBA(image.Rect(0, 0, 32, 24)))
	assert.Equal(t, "jpeg-32-q80", readPart(t, r))

	cancel()
	require.Eventually(t, func() bool { return p.Viewers() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestLatestEncodeError(t *testing.T) {
	p := NewPublisher(func(image.Image, int) ([]byte, error) {
		return nil, errors.New("encoder down")
	}, 80, zerolog.Nop())

	p.PushFrame(image.NewRGBA(image.Rect(0, 0, 4, 4)))
	_, err := p.latest()
	assert.Error(t, err)
	assert.Nil(t, p.placeholder())
}
