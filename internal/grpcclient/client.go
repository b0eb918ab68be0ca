package grpcclient

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/example/facecheck/internal/domain/face"
	"github.com/example/facecheck/internal/logging"
	"github.com/example/facecheck/internal/provider"
)

// ServiceName is the fully qualified name of the remote face service.
const ServiceName = "facecheck.biometric.v1.FaceService"

// Full method names of the remote face service.
const (
	MethodInitialize    = "/" + ServiceName + "/Initialize"
	MethodDeinitialize  = "/" + ServiceName + "/Deinitialize"
	MethodStartLiveness = "/" + ServiceName + "/StartLiveness"
	MethodMatchFaces    = "/" + ServiceName + "/MatchFaces"
)

// SessionMetadataKey carries the workflow session so the remote SDK can scope its state.
const SessionMetadataKey = "x-session-id"

// LivenessPassed is the liveness status reported for a live subject.
const LivenessPassed = "PASSED"

var (
	_ provider.Provider      = (*FaceProvider)(nil)
	_ provider.Deinitializer = (*FaceProvider)(nil)
)

// DialFaceProvider returns a ready-to-use provider backed by the remote face service.
func DialFaceProvider(ctx context.Context, addr string, logger *zap.Logger) (*FaceProvider, *grpc.ClientConn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	conn, err := grpc.DialContext(
		dialCtx,
		addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
	)
	if err != nil {
		wrapped := logging.NewOperationError("grpcclient.dial_face_provider", "", err)
		logger.Error("failed to dial face provider", zap.Error(wrapped), zap.String("addr", addr))
		return nil, nil, wrapped
	}
	return NewFaceProvider(conn, logger), conn, nil
}

// FaceProvider implements provider.Provider over gRPC. Messages are
// google.protobuf.Struct values so no generated stubs are needed.
type FaceProvider struct {
	conn   grpc.ClientConnInterface
	logger *zap.Logger
}

// NewFaceProvider wraps an existing connection.
func NewFaceProvider(conn grpc.ClientConnInterface, logger *zap.Logger) *FaceProvider {
	return &FaceProvider{conn: conn, logger: logger.Named("face_provider")}
}

// Initialize starts the remote SDK.
func (p *FaceProvider) Initialize(ctx context.Context) error {
	resp, err := p.invoke(ctx, "grpcclient.initialize", MethodInitialize, map[string]any{})
	if err != nil {
		return face.NewProviderError(face.ErrProviderInitialization, "Exception during SDK initialization", err)
	}

	fields := resp.GetFields()
	if !fields["status"].GetBoolValue() {
		return face.NewProviderError(face.ErrProviderInitialization, "SDK initialization failed", remoteError(fields))
	}

	return nil
}

// Deinitialize releases the remote SDK.
func (p *FaceProvider) Deinitialize(ctx context.Context) error {
	_, err := p.invoke(ctx, "grpcclient.deinitialize", MethodDeinitialize, map[string]any{})
	return err
}

// Capture runs a liveness capture and returns the captured face.
func (p *FaceProvider) Capture(ctx context.Context, mode face.CaptureMode) (*face.Image, error) {
	resp, err := p.invoke(ctx, "grpcclient.start_liveness", MethodStartLiveness, map[string]any{
		"liveness_type": livenessType(mode),
	})
	if err != nil {
		if isCanceled(err) {
			return nil, face.ErrCanceled
		}
		return nil, face.NewProviderError(face.ErrCaptureFailed, "Liveness error", err)
	}

	fields := resp.GetFields()
	if fields["canceled"].GetBoolValue() {
		return nil, face.ErrCanceled
	}

	if cause := remoteError(fields); cause != nil {
		return nil, face.NewProviderError(face.ErrCaptureFailed, "Liveness error", cause)
	}

	liveness := fields["liveness"].GetStringValue()
	if liveness != LivenessPassed {
		return nil, face.NewProviderError(face.ErrLivenessNotPassed,
			fmt.Sprintf("Liveness check failed (status=%s)", liveness), nil)
	}

	encoded := fields["image"].GetStringValue()
	if encoded == "" {
		return nil, face.NewProviderError(face.ErrNoImage, "No face image returned from liveness", nil)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, face.NewProviderError(face.ErrCaptureFailed, "Invalid face image returned from liveness", err)
	}

	img, err := face.DecodeImage(data)
	if err != nil {
		return nil, face.NewProviderError(face.ErrCaptureFailed, "Invalid face image returned from liveness", err)
	}

	return img, nil
}

// Compare matches a live capture against a printed (gallery) image and returns
// the first similarity in percent.
func (p *FaceProvider) Compare(ctx context.Context, a, b *face.Image) (float64, error) {
	if a == nil || b == nil {
		return 0, face.NewProviderError(face.ErrComparisonFailed, "Two images are required for comparison", nil)
	}

	resp, err := p.invoke(ctx, "grpcclient.match_faces", MethodMatchFaces, map[string]any{
		"images": []any{
			map[string]any{"image": base64.StdEncoding.EncodeToString(a.Data), "type": "LIVE"},
			map[string]any{"image": base64.StdEncoding.EncodeToString(b.Data), "type": "PRINTED"},
		},
	})
	if err != nil {
		if isCanceled(err) {
			return 0, face.ErrCanceled
		}
		return 0, face.NewProviderError(face.ErrComparisonFailed, "Face comparison error", err)
	}

	fields := resp.GetFields()
	if cause := remoteError(fields); cause != nil {
		return 0, face.NewProviderError(face.ErrComparisonFailed, "Face comparison error", cause)
	}

	results := fields["results"].GetListValue().GetValues()
	if len(results) == 0 {
		return 0, face.NewProviderError(face.ErrEmptyComparison, "No comparison result returned", nil)
	}

	similarity := results[0].GetStructValue().GetFields()["similarity"].GetNumberValue()

	return similarity * 100.0, nil
}

func (p *FaceProvider) invoke(ctx context.Context, operation, method string, payload map[string]any) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(payload)
	if err != nil {
		return nil, logging.NewOperationError(operation, "", err)
	}

	sessionID, ok := provider.SessionID(ctx)
	if ok {
		ctx = metadata.AppendToOutgoingContext(ctx, SessionMetadataKey, sessionID)
	}

	resp := new(structpb.Struct)
	if err := p.conn.Invoke(ctx, method, req, resp); err != nil {
		wrapped := logging.NewOperationError(operation, sessionID, err)
		p.logger.Error("face provider call failed", zap.Error(wrapped), zap.String("method", method))
		return nil, wrapped
	}
	return resp, nil
}

func livenessType(mode face.CaptureMode) string {
	if mode == face.PassiveLiveness {
		return "PASSIVE"
	}
	return "ACTIVE"
}

func isCanceled(err error) bool {
	var se interface{ GRPCStatus() *status.Status }
	if errors.As(err, &se) {
		return se.GRPCStatus().Code() == codes.Canceled
	}
	return errors.Is(err, context.Canceled)
}

func remoteError(fields map[string]*structpb.Value) error {
	if msg := fields["error"].GetStringValue(); msg != "" {
		return errors.New(msg)
	}
	return nil
}
