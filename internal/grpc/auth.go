package grpc

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"spensagi/portal/internal/metrics"
)

const serviceTokenHeader = "x-service-token"

// ServiceAuth guards internal RPCs with a shared service token.
type ServiceAuth struct {
	token  []byte
	exempt map[string]bool
	logger *zap.Logger
}

// NewServiceAuth builds the guard. Methods listed in exempt (full method
// names such as "/grpc.health.v1.Health/Check") skip the token check.
func NewServiceAuth(token string, logger *zap.Logger, exempt ...string) (*ServiceAuth, error) {
	if token == "" {
		return nil, errors.New("service auth token required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	skip := make(map[string]bool, len(exempt))
	for _, method := range exempt {
		skip[method] = true
	}
	return &ServiceAuth{token: []byte(token), exempt: skip, logger: logger}, nil
}

func (a *ServiceAuth) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if err := a.check(ctx, info.FullMethod); err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

func (a *ServiceAuth) Stream() grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if err := a.check(ss.Context(), info.FullMethod); err != nil {
			return err
		}
		return handler(srv, ss)
	}
}

func (a *ServiceAuth) check(ctx context.Context, method string) error {
	if a.exempt[method] {
		return nil
	}
	token := serviceTokenFromMetadata(ctx)
	if token == "" {
		metrics.AccessDenied.WithLabelValues("service_token").Inc()
		a.logger.Debug("grpc call without service token", zap.String("method", method))
		return status.Error(codes.Unauthenticated, "missing_service_token")
	}
	if subtle.ConstantTimeCompare([]byte(token), a.token) != 1 {
		metrics.AccessDenied.WithLabelValues("service_token").Inc()
		a.logger.Warn("grpc call with invalid service token", zap.String("method", method))
		return status.Error(codes.PermissionDenied, "invalid_service_token")
	}
	return nil
}

func serviceTokenFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(serviceTokenHeader)
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}
