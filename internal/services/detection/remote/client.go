// Package remote sends frames to an external inference service over gRPC.
//
// The service takes the JPEG frame as a BytesValue and answers with a Struct
// holding a "detections" list. Each entry carries label, class_id, score and
// a four element bbox in frame pixels.
package remote

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"intersection-worker-go/internal/models"
	"intersection-worker-go/internal/services/detection"
)

const (
	ServiceName     = "intersection.detection.v1.DetectionService"
	InferMethod     = "/" + ServiceName + "/InferDetection"
	frameSeqHeader  = "x-frame-seq"
	workerIDHeader  = "x-worker-id"
	defaultTimeout  = 5 * time.Second
	maxRetryBackoff = 30 * time.Second
)

// Encoder turns a raw frame into JPEG bytes
type Encoder func(frame *models.Frame) ([]byte, error)

type Options struct {
	Endpoint string
	WorkerID string
	Timeout  time.Duration
	Encoder  Encoder
	// DialOptions replace the credentials derived from Endpoint when set
	DialOptions []grpc.DialOption
}

// Client manages the gRPC connection with exponential backoff after failures
type Client struct {
	opts   Options
	logger zerolog.Logger
	now    func() time.Time

	mu               sync.RWMutex
	conn             *grpc.ClientConn
	health           healthpb.HealthClient
	lastFailTime     time.Time
	consecutiveFails int
}

func NewClient(opts Options, logger zerolog.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Client{opts: opts, logger: logger, now: time.Now}
}

// Connect creates the client connection. The health check runs in the
// background so a slow service does not block startup.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	target, dialOpts, err := c.dialTarget()
	if err != nil {
		return err
	}

	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return fmt.Errorf("failed to connect to AI service at %s: %w", target, err)
	}

	c.conn = conn
	c.health = healthpb.NewHealthClient(conn)
	c.consecutiveFails = 0

	c.logger.Info().Str("ai_endpoint", target).Msg("AI gRPC connection initialized (health check in progress)")

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.Timeout)
		defer cancel()
		if err := c.HealthCheck(ctx); err != nil {
			c.logger.Warn().Err(err).Str("ai_endpoint", target).Msg("Initial AI health check failed - will retry on next frame")
		} else {
			c.logger.Info().Str("ai_endpoint", target).Msg("AI service health check passed")
		}
	}()

	return nil
}

func (c *Client) dialTarget() (string, []grpc.DialOption, error) {
	if len(c.opts.DialOptions) > 0 {
		return c.opts.Endpoint, c.opts.DialOptions, nil
	}
	target, creds, err := parseGRPCEndpoint(c.opts.Endpoint)
	if err != nil {
		return "", nil, fmt.Errorf("failed to parse AI endpoint %s: %w", c.opts.Endpoint, err)
	}
	return target, []grpc.DialOption{grpc.WithTransportCredentials(creds)}, nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.health = nil
	c.logger.Info().Msg("AI gRPC connection closed")
	return err
}

// HealthCheck asks the standard gRPC health service whether inference is serving
func (c *Client) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	health := c.health
	c.mu.RUnlock()

	if health == nil {
		return fmt.Errorf("AI client not connected: %w", detection.ErrDetectorUnavailable)
	}

	resp, err := health.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return fmt.Errorf("AI health check failed: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("AI service status %s: %w", resp.GetStatus(), detection.ErrDetectorUnavailable)
	}
	return nil
}

// ConnectionState reports the underlying channel state
func (c *Client) ConnectionState() connectivity.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.conn == nil {
		return connectivity.Shutdown
	}
	return c.conn.GetState()
}

// Detect encodes frame, calls InferDetection and decodes the response
func (c *Client) Detect(ctx context.Context, frame *models.Frame) ([]models.Detection, error) {
	if frame == nil || frame.Empty() {
		return nil, fmt.Errorf("remote detector: empty frame")
	}
	if !c.shouldRetry() {
		return nil, fmt.Errorf("in backoff period after consecutive failures: %w", detection.ErrDetectorUnavailable)
	}
	if err := c.ensureConnected(); err != nil {
		c.recordFailure()
		return nil, fmt.Errorf("%w: %v", detection.ErrDetectorUnavailable, err)
	}
	if c.opts.Encoder == nil {
		return nil, fmt.Errorf("remote detector: no frame encoder configured")
	}

	jpeg, err := c.opts.Encoder(frame)
	if err != nil {
		return nil, fmt.Errorf("remote detector: encode frame: %w", err)
	}

	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return nil, fmt.Errorf("AI client not connected: %w", detection.ErrDetectorUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()
	ctx = metadata.AppendToOutgoingContext(ctx,
		frameSeqHeader, strconv.FormatInt(frame.Seq, 10),
		workerIDHeader, c.opts.WorkerID,
	)

	resp := &structpb.Struct{}
	if err := conn.Invoke(ctx, InferMethod, wrapperspb.Bytes(jpeg), resp); err != nil {
		c.recordFailure()
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	c.mu.Lock()
	c.consecutiveFails = 0
	c.mu.Unlock()

	return DecodeDetections(resp), nil
}

func (c *Client) ensureConnected() error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn != nil {
		if s := conn.GetState(); s != connectivity.Shutdown {
			return nil
		}
		_ = c.Close()
	}
	return c.Connect()
}

// shouldRetry applies 1s, 2s, 4s ... 30s backoff after consecutive failures
func (c *Client) shouldRetry() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.consecutiveFails == 0 {
		return true
	}

	backoff := time.Duration(1<<uint(c.consecutiveFails-1)) * time.Second
	if backoff > maxRetryBackoff {
		backoff = maxRetryBackoff
	}
	return c.now().Sub(c.lastFailTime) >= backoff
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.consecutiveFails++
	c.lastFailTime = c.now()

	if c.consecutiveFails <= 5 {
		c.logger.Warn().Int("consecutive_fails", c.consecutiveFails).Msg("AI connection failure recorded")
	}
}

// DecodeDetections reads the detections list, skipping malformed entries
func DecodeDetections(resp *structpb.Struct) []models.Detection {
	list := resp.GetFields()["detections"].GetListValue().GetValues()
	out := make([]models.Detection, 0, len(list))
	for _, v := range list {
		fields := v.GetStructValue().GetFields()
		bbox := fields["bbox"].GetListValue().GetValues()
		if len(bbox) != 4 {
			continue
		}
		label := fields["label"].GetStringValue()
		if label == "" {
			continue
		}
		det := models.Detection{
			Label:   label,
			ClassID: int(fields["class_id"].GetNumberValue()),
			Score:   float32(fields["score"].GetNumberValue()),
		}
		for i := range bbox {
			det.BBox[i] = int(bbox[i].GetNumberValue())
		}
		out = append(out, det)
	}
	return out
}

// parseGRPCEndpoint normalizes host:port or URL endpoints and picks TLS for https
func parseGRPCEndpoint(endpoint string) (string, credentials.TransportCredentials, error) {
	if !strings.Contains(endpoint, "://") {
		host, port, found := strings.Cut(endpoint, ":")
		switch {
		case !found:
			endpoint = "https://" + host + ":443"
		case port == "443" || port == "8443" || port == "9443":
			endpoint = "https://" + endpoint
		default:
			endpoint = "http://" + endpoint
		}
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", nil, fmt.Errorf("invalid endpoint URL: %w", err)
	}

	host := u.Host
	if u.Port() == "" {
		switch u.Scheme {
		case "https":
			host = u.Hostname() + ":443"
		case "http":
			host = u.Hostname() + ":80"
		default:
			return "", nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
		}
	}

	switch u.Scheme {
	case "https":
		return host, credentials.NewTLS(&tls.Config{ServerName: u.Hostname()}), nil
	case "http":
		return host, insecure.NewCredentials(), nil
	default:
		return "", nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
}
