package rpc

import (
	"context"
	"net"

	"chordring/internal/logger"
	"chordring/internal/ring"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"
)

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// serviceName is the gRPC service this package's ServiceDesc registers:
// the node's routing operations plus the operator-facing Describe call.
const serviceName = "chord.Ring"

// ServiceDesc hand-writes the grpc.ServiceDesc a protoc-gen-go-grpc run
// would otherwise generate from a .proto file: see codec.go for why
// this repo forces a plain-JSON codec instead of generating one.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*interface{})(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetSuccessor", Handler: getSuccessorHandler},
		{MethodName: "GetPredecessor", Handler: getPredecessorHandler},
		{MethodName: "SetSuccessor", Handler: setSuccessorHandler},
		{MethodName: "SetPredecessor", Handler: setPredecessorHandler},
		{MethodName: "FindSuccessor", Handler: findSuccessorHandler},
		{MethodName: "FindPredecessor", Handler: findPredecessorHandler},
		{MethodName: "ClosestPrecedingFinger", Handler: closestPrecedingFingerHandler},
		{MethodName: "NotifyNewPredecessor", Handler: notifyNewPredecessorHandler},
		{MethodName: "UpdateFingerTable", Handler: updateFingerTableHandler},
		{MethodName: "LookupWithSucc", Handler: lookupWithSuccHandler},
		{MethodName: "Describe", Handler: describeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "chordring/internal/rpc/service.go",
}

// asStatus wraps a plain error as a gRPC status if the handler didn't
// already produce one, so client-side status.FromError always succeeds.
func asStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(codes.Internal, err.Error())
}

func getSuccessorHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(emptyMsg)
	if err := dec(req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	resp, err := srv.(*Service).getSuccessor(ctx, req)
	return resp, asStatus(err)
}

func getPredecessorHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(emptyMsg)
	if err := dec(req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	resp, err := srv.(*Service).getPredecessor(ctx, req)
	return resp, asStatus(err)
}

func setSuccessorHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(setSuccessorRequest)
	if err := dec(req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	resp, err := srv.(*Service).setSuccessor(ctx, req)
	return resp, asStatus(err)
}

func setPredecessorHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(setPredecessorRequest)
	if err := dec(req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	resp, err := srv.(*Service).setPredecessor(ctx, req)
	return resp, asStatus(err)
}

func findSuccessorHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(keyMsg)
	if err := dec(req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	resp, err := srv.(*Service).findSuccessor(ctx, req)
	return resp, asStatus(err)
}

func findPredecessorHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(keyMsg)
	if err := dec(req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	resp, err := srv.(*Service).findPredecessor(ctx, req)
	return resp, asStatus(err)
}

func closestPrecedingFingerHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(keyMsg)
	if err := dec(req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	resp, err := srv.(*Service).closestPrecedingFinger(ctx, req)
	return resp, asStatus(err)
}

func notifyNewPredecessorHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(notifyRequest)
	if err := dec(req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	resp, err := srv.(*Service).notifyNewPredecessor(ctx, req)
	return resp, asStatus(err)
}

func updateFingerTableHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(updateFingerTableRequest)
	if err := dec(req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	resp, err := srv.(*Service).updateFingerTable(ctx, req)
	return resp, asStatus(err)
}

func lookupWithSuccHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(keyMsg)
	if err := dec(req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	resp, err := srv.(*Service).lookupWithSucc(ctx, req)
	return resp, asStatus(err)
}

func describeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(emptyMsg)
	if err := dec(req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	resp, err := srv.(*Service).describe(ctx, req)
	return resp, asStatus(err)
}

// Server hosts a ring.Node's RPC surface on a gRPC listener.
type Server struct {
	grpc *grpc.Server
	lgr  logger.Logger
}

// NewServer wires n's RPC surface onto a grpc.Server configured with
// opts (telemetry stats handlers, TLS, etc., supplied by the caller).
func NewServer(n *ring.Node, lgr logger.Logger, opts ...grpc.ServerOption) *Server {
	if lgr == nil {
		lgr = logger.NopLogger{}
	}
	srv := grpc.NewServer(opts...)
	srv.RegisterService(&ServiceDesc, NewService(n))
	return &Server{grpc: srv, lgr: lgr.Named("rpc-server")}
}

// Serve blocks accepting connections on lis until the server stops.
func (s *Server) Serve(lis net.Listener) error {
	s.lgr.Info("serving", logger.F("addr", lis.Addr().String()))
	return s.grpc.Serve(lis)
}

// Stop forcibly tears down the listener and any in-flight RPCs.
func (s *Server) Stop() { s.grpc.Stop() }

// GracefulStop lets in-flight RPCs finish before tearing down the
// listener.
func (s *Server) GracefulStop() { s.grpc.GracefulStop() }
