package remote

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/tailored-agentic-units/gamesave/storage"
)

type server struct {
	backend storage.Backend
	logger  *slog.Logger
}

// NewHandler serves backend as a Connect StorageService. It returns the path
// prefix to mount the handler on, in the style of generated Connect code.
func NewHandler(backend storage.Backend, logger *slog.Logger, opts ...connect.HandlerOption) (string, http.Handler) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &server{backend: backend, logger: logger}

	mux := http.NewServeMux()
	mux.Handle(existsProcedure, connect.NewUnaryHandler(existsProcedure, s.exists, opts...))
	mux.Handle(readProcedure, connect.NewUnaryHandler(readProcedure, s.read, opts...))
	mux.Handle(writeProcedure, connect.NewUnaryHandler(writeProcedure, s.write, opts...))
	mux.Handle(deleteProcedure, connect.NewUnaryHandler(deleteProcedure, s.delete, opts...))
	mux.Handle(resolvePathProcedure, connect.NewUnaryHandler(resolvePathProcedure, s.resolvePath, opts...))
	mux.Handle(listProcedure, connect.NewUnaryHandler(listProcedure, s.list, opts...))
	return "/" + ServiceName + "/", mux
}

func (s *server) exists(ctx context.Context, req *connect.Request[wrapperspb.StringValue]) (*connect.Response[wrapperspb.BoolValue], error) {
	ok, err := s.backend.Exists(ctx, req.Msg.GetValue())
	if err != nil {
		return nil, s.toConnect("exists", req.Msg.GetValue(), err)
	}
	return connect.NewResponse(wrapperspb.Bool(ok)), nil
}

func (s *server) read(ctx context.Context, req *connect.Request[wrapperspb.StringValue]) (*connect.Response[wrapperspb.BytesValue], error) {
	data, err := s.backend.Read(ctx, req.Msg.GetValue())
	if err != nil {
		return nil, s.toConnect("read", req.Msg.GetValue(), err)
	}
	return connect.NewResponse(wrapperspb.Bytes(data)), nil
}

func (s *server) write(ctx context.Context, req *connect.Request[wrapperspb.BytesValue]) (*connect.Response[emptypb.Empty], error) {
	name := req.Header().Get(NameHeader)
	if err := s.backend.Write(ctx, name, req.Msg.GetValue()); err != nil {
		return nil, s.toConnect("write", name, err)
	}
	s.logger.Debug("entry written", "name", name, "bytes", len(req.Msg.GetValue()))
	return connect.NewResponse(&emptypb.Empty{}), nil
}

func (s *server) delete(ctx context.Context, req *connect.Request[wrapperspb.StringValue]) (*connect.Response[emptypb.Empty], error) {
	if err := s.backend.Delete(ctx, req.Msg.GetValue()); err != nil {
		return nil, s.toConnect("delete", req.Msg.GetValue(), err)
	}
	s.logger.Debug("entry deleted", "name", req.Msg.GetValue())
	return connect.NewResponse(&emptypb.Empty{}), nil
}

func (s *server) resolvePath(_ context.Context, req *connect.Request[wrapperspb.StringValue]) (*connect.Response[wrapperspb.StringValue], error) {
	return connect.NewResponse(wrapperspb.String(s.backend.ResolvePath(req.Msg.GetValue()))), nil
}

func (s *server) list(ctx context.Context, _ *connect.Request[emptypb.Empty]) (*connect.Response[structpb.ListValue], error) {
	lister, ok := s.backend.(storage.Lister)
	if !ok {
		return nil, connect.NewError(connect.CodeUnimplemented, errors.New("backend does not support listing"))
	}

	names, err := lister.List(ctx)
	if err != nil {
		return nil, s.toConnect("list", "", err)
	}
	values := make([]*structpb.Value, len(names))
	for i, name := range names {
		values[i] = structpb.NewStringValue(name)
	}
	return connect.NewResponse(&structpb.ListValue{Values: values}), nil
}

func (s *server) toConnect(op, name string, err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, storage.ErrInvalidName):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	}
	s.logger.Error("storage operation failed", "op", op, "name", name, "error", err)
	return connect.NewError(connect.CodeInternal, err)
}
