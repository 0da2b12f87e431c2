package api

import (
	"context"
	"strings"
	"time"

	"google.golang.org/grpc"

	"github.com/cuemby/graphdb/internal/gdlog"
)

// LoggingInterceptor logs each unary call's method name, duration, and
// error (if any) at debug level.
func LoggingInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		log := gdlog.WithComponent("api")
		evt := log.Debug().Str("method", methodName(info.FullMethod)).Dur("took", time.Since(start))
		if err != nil {
			evt.Err(err).Msg("rpc failed")
		} else {
			evt.Msg("rpc completed")
		}
		return resp, err
	}
}

func methodName(fullMethod string) string {
	parts := strings.Split(fullMethod, "/")
	return parts[len(parts)-1]
}
