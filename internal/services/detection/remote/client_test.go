package remote

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"intersection-worker-go/internal/models"
	"intersection-worker-go/internal/services/detection"
)

type inferServer interface {
	infer(ctx context.Context, in *wrapperspb.BytesValue) (*structpb.Struct, error)
}

var inferServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*inferServer)(nil),
	Methods: []grpc.MethodDesc{{
		MethodName: "InferDetection",
		Handler: func(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
			in := new(wrapperspb.BytesValue)
			if err := dec(in); err != nil {
				return nil, err
			}
			return srv.(inferServer).infer(ctx, in)
		},
	}},
}

type fakeInference struct {
	mu       sync.Mutex
	calls    int
	lastJPEG []byte
	lastSeq  string
	fail     bool
}

func (f *fakeInference) infer(ctx context.Context, in *wrapperspb.BytesValue) (*structpb.Struct, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastJPEG = in.GetValue()
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(frameSeqHeader); len(v) > 0 {
			f.lastSeq = v[0]
		}
	}
	if f.fail {
		return nil, status.Error(codes.Unavailable, "model not loaded")
	}
	return structpb.NewStruct(map[string]any{
		"detections": []any{
			map[string]any{"label": "car", "class_id": 2, "score": 0.91, "bbox": []any{10, 20, 110, 220}},
			map[string]any{"label": "person", "class_id": 0, "score": 0.5, "bbox": []any{1, 2, 3, 4}},
			map[string]any{"label": "bus", "class_id": 5, "score": 0.7, "bbox": []any{1, 2}},
		},
	})
}

func (f *fakeInference) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type testEnv struct {
	client *Client
	infer  *fakeInference
	health *health.Server
}

func newTestEnv(t *testing.T, encoder Encoder) *testEnv {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	infer := &fakeInference{}
	srv.RegisterService(&inferServiceDesc, infer)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	go func() { _ = srv.Serve(lis) }()

	if encoder == nil {
		encoder = func(f *models.Frame) ([]byte, error) { return []byte("jpeg-bytes"), nil }
	}

	client := NewClient(Options{
		Endpoint: "passthrough:///bufnet",
		WorkerID: "test-worker",
		Timeout:  2 * time.Second,
		Encoder:  encoder,
		DialOptions: []grpc.DialOption{
			grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
				return lis.DialContext(ctx)
			}),
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		},
	}, zerolog.Nop())

	t.Cleanup(func() {
		_ = client.Close()
		srv.Stop()
	})

	return &testEnv{client: client, infer: infer, health: hs}
}

func testFrame() *models.Frame {
	return &models.Frame{Data: make([]byte, 12), Width: 2, Height: 2, Seq: 42}
}

func TestDetect(t *testing.T) {
	env := newTestEnv(t, nil)

	dets, err := env.client.Detect(context.Background(), testFrame())
	require.NoError(t, err)

	require.Len(t, dets, 2)
	assert.Equal(t, models.Detection{Label: "car", ClassID: 2, Score: 0.91, BBox: [4]int{10, 20, 110, 220}}, dets[0])
	assert.Equal(t, "person", dets[1].Label)

	assert.Equal(t, []byte("jpeg-bytes"), env.infer.lastJPEG)
	assert.Equal(t, "42", env.infer.lastSeq)
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t, nil)

	assert.ErrorIs(t, env.client.HealthCheck(context.Background()), detection.ErrDetectorUnavailable)

	require.NoError(t, env.client.Connect())
	assert.NoError(t, env.client.HealthCheck(context.Background()))

	env.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	assert.ErrorIs(t, env.client.HealthCheck(context.Background()), detection.ErrDetectorUnavailable)
}

func TestDetectBacksOffAfterFailure(t *testing.T) {
	env := newTestEnv(t, nil)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	env.client.now = func() time.Time { return now }

	env.infer.fail = true
	_, err := env.client.Detect(context.Background(), testFrame())
	require.Error(t, err)
	assert.Equal(t, codes.Unavailable, status.Code(errors.Unwrap(err)))
	assert.Equal(t, 1, env.infer.Calls())

	// inside the 1s backoff window the service is not called
	_, err = env.client.Detect(context.Background(), testFrame())
	assert.ErrorIs(t, err, detection.ErrDetectorUnavailable)
	assert.Equal(t, 1, env.infer.Calls())

	env.infer.mu.Lock()
	env.infer.fail = false
	env.infer.mu.Unlock()
	now = now.Add(1100 * time.Millisecond)

	dets, err := env.client.Detect(context.Background(), testFrame())
	require.NoError(t, err)
	assert.Len(t, dets, 2)
	assert.Equal(t, 2, env.infer.Calls())
}

func TestDetectEncoderError(t *testing.T) {
	env := newTestEnv(t, func(*models.Frame) ([]byte, error) { return nil, errors.New("bad pixels") })

	_, err := env.client.Detect(context.Background(), testFrame())
	assert.ErrorContains(t, err, "bad pixels")
	assert.Equal(t, 0, env.infer.Calls())
}

func TestDetectEmptyFrame(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.client.Detect(context.Background(), &models.Frame{})
	assert.Error(t, err)
}

func TestParseGRPCEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		host     string
		tls      bool
		wantErr  bool
	}{
		{endpoint: "localhost:50052", host: "localhost:50052"},
		{endpoint: "ai.internal:443", host: "ai.internal:443", tls: true},
		{endpoint: "ai.example.com", host: "ai.example.com:443", tls: true},
		{endpoint: "http://ai:9000", host: "ai:9000"},
		{endpoint: "https://ai.example.com", host: "ai.example.com:443", tls: true},
		{endpoint: "ftp://ai:21", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			host, creds, err := parseGRPCEndpoint(tt.endpoint)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.host, host)
			assert.Equal(t, tt.tls, creds.Info().SecurityProtocol == "tls")
		})
	}
}
