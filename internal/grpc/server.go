package grpc

import (
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name reported through grpc.health.v1 for the portal.
const ServiceName = "spensagi.portal.v1.Portal"

// Options configures the internal gRPC server. When ServiceToken is empty
// every RPC is served without authentication.
type Options struct {
	ServiceToken string
	// PublicHealth lets liveness probes call Health/Check without a token.
	PublicHealth bool
}

func NewServer(opts Options, logger *zap.Logger) (*grpc.Server, *health.Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var serverOpts []grpc.ServerOption
	if opts.ServiceToken != "" {
		var exempt []string
		if opts.PublicHealth {
			exempt = append(exempt, healthpb.Health_Check_FullMethodName)
		}
		auth, err := NewServiceAuth(opts.ServiceToken, logger, exempt...)
		if err != nil {
			return nil, nil, err
		}
		serverOpts = append(serverOpts,
			grpc.UnaryInterceptor(auth.Unary()),
			grpc.StreamInterceptor(auth.Stream()),
		)
	} else {
		logger.Warn("grpc service auth disabled: SERVICE_AUTH_TOKEN not set")
	}

	server := grpc.NewServer(serverOpts...)
	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)
	return server, healthServer, nil
}
