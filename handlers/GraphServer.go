package handlers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"social-service/metrics"
	"social-service/model"
	"social-service/repo"
	"social-service/service"
	"social-service/util"
)

// GraphServiceName is the fully qualified gRPC service name.
const GraphServiceName = "social.v1.SocialGraph"

// SocialGraphServer is the gRPC surface of the social graph. Requests and
// responses are protobuf well-known types, so clients need no generated code.
type SocialGraphServer interface {
	Ping(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
	GetUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Connect(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	Disconnect(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	CheckConnection(context.Context, *structpb.Struct) (*wrapperspb.BoolValue, error)
	ListConnections(context.Context, *structpb.Struct) (*structpb.ListValue, error)
	ListRecommendations(context.Context, *structpb.Struct) (*structpb.ListValue, error)
	RefreshRecommendations(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	BatchConnect(context.Context, *structpb.Struct) (*wrapperspb.StringValue, error)
}

type GraphServer struct {
	Svc    *service.SocialService
	logger *zap.Logger
}

func NewGraphServer(svc *service.SocialService, logger *zap.Logger) *GraphServer {
	return &GraphServer{Svc: svc, logger: logger}
}

func (h *GraphServer) Ping(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	return wrapperspb.String("pong"), nil
}

func (h *GraphServer) GetUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := stringField(req, "user_id")
	if err != nil {
		return nil, err
	}
	user, err := h.Svc.GetUser(ctx, userID)
	if err != nil {
		return nil, grpcError(err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"id":      structpb.NewStringValue(user.ID),
		"email":   structpb.NewStringValue(user.Email),
		"name":    structpb.NewStringValue(user.Profile.Name),
		"college": structpb.NewStringValue(user.Profile.College),
	}}, nil
}

func (h *GraphServer) Connect(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	u1, u2, err := pairFields(req)
	if err != nil {
		return nil, err
	}
	if err := h.Svc.AddConnection(ctx, u1, u2); err != nil {
		return nil, grpcError(err)
	}
	return &emptypb.Empty{}, nil
}

func (h *GraphServer) Disconnect(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	u1, u2, err := pairFields(req)
	if err != nil {
		return nil, err
	}
	if err := h.Svc.RemoveConnection(ctx, u1, u2); err != nil {
		return nil, grpcError(err)
	}
	return &emptypb.Empty{}, nil
}

func (h *GraphServer) CheckConnection(ctx context.Context, req *structpb.Struct) (*wrapperspb.BoolValue, error) {
	u1, u2, err := pairFields(req)
	if err != nil {
		return nil, err
	}
	ok, err := h.Svc.CheckConnectionExists(ctx, u1, u2)
	if err != nil {
		return nil, grpcError(err)
	}
	return wrapperspb.Bool(ok), nil
}

func (h *GraphServer) ListConnections(ctx context.Context, req *structpb.Struct) (*structpb.ListValue, error) {
	userID, offset, limit, err := pageFields(req)
	if err != nil {
		return nil, err
	}
	if _, err := h.Svc.GetUser(ctx, userID); err != nil {
		return nil, grpcError(err)
	}
	users, err := h.Svc.GetConnections(ctx, userID, offset, limit)
	if err != nil {
		return nil, grpcError(err)
	}
	return peerList(users), nil
}

func (h *GraphServer) ListRecommendations(ctx context.Context, req *structpb.Struct) (*structpb.ListValue, error) {
	userID, offset, limit, err := pageFields(req)
	if err != nil {
		return nil, err
	}
	if _, err := h.Svc.GetUser(ctx, userID); err != nil {
		return nil, grpcError(err)
	}
	users, err := h.Svc.GetRecommendations(ctx, userID, offset, limit)
	if err != nil {
		return nil, grpcError(err)
	}
	return peerList(users), nil
}

func (h *GraphServer) RefreshRecommendations(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	userID, err := stringField(req, "user_id")
	if err != nil {
		return nil, err
	}
	ids, err := stringListField(req, "recommended_user_ids")
	if err != nil {
		return nil, err
	}
	if _, err := h.Svc.GetUser(ctx, userID); err != nil {
		return nil, grpcError(err)
	}
	if err := h.Svc.RefreshRecommendations(ctx, userID, ids); err != nil {
		return nil, grpcError(err)
	}
	return &emptypb.Empty{}, nil
}

func (h *GraphServer) BatchConnect(ctx context.Context, req *structpb.Struct) (*wrapperspb.StringValue, error) {
	userID, err := stringField(req, "user_id")
	if err != nil {
		return nil, err
	}
	ids, err := stringListField(req, "ids")
	if err != nil {
		return nil, err
	}
	jobID, err := h.Svc.BatchAddConnections(ctx, userID, ids)
	if err != nil {
		return nil, grpcError(err)
	}
	return wrapperspb.String(jobID), nil
}

func grpcError(err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidIDs), errors.Is(err, service.ErrMalformedInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, repo.ErrUserNotFound),
		errors.Is(err, repo.ErrConnectionNotFound),
		errors.Is(err, repo.ErrRecommendationNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, repo.ErrDuplicateConnection):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, repo.ErrDataIntegrity):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, service.ErrBatchQueueFull):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, "db error")
	}
}

func stringField(req *structpb.Struct, key string) (string, error) {
	v, ok := req.GetFields()[key]
	if !ok {
		return "", status.Errorf(codes.InvalidArgument, "%s is required", key)
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", status.Errorf(codes.InvalidArgument, "%s must be a string", key)
	}
	return s.StringValue, nil
}

// intField returns def when key is absent.
func intField(req *structpb.Struct, key string, def int) (int, error) {
	v, ok := req.GetFields()[key]
	if !ok {
		return def, nil
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || n.NumberValue != math.Trunc(n.NumberValue) || n.NumberValue < 0 || n.NumberValue > math.MaxInt32 {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be an integer in [0, %d]", key, math.MaxInt32)
	}
	return int(n.NumberValue), nil
}

func stringListField(req *structpb.Struct, key string) ([]string, error) {
	v, ok := req.GetFields()[key]
	if !ok {
		return nil, status.Errorf(codes.InvalidArgument, "%s is required", key)
	}
	list := v.GetListValue()
	if list == nil {
		return nil, status.Errorf(codes.InvalidArgument, "%s must be a list", key)
	}
	out := make([]string, 0, len(list.GetValues()))
	for i, item := range list.GetValues() {
		s, ok := item.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, status.Errorf(codes.InvalidArgument, "%s[%d] must be a string", key, i)
		}
		out = append(out, s.StringValue)
	}
	return out, nil
}

func pairFields(req *structpb.Struct) (string, string, error) {
	u1, err := stringField(req, "user_id")
	if err != nil {
		return "", "", err
	}
	u2, err := stringField(req, "other_id")
	if err != nil {
		return "", "", err
	}
	return u1, u2, nil
}

func pageFields(req *structpb.Struct) (userID string, offset, limit int, err error) {
	if userID, err = stringField(req, "user_id"); err != nil {
		return
	}
	if offset, err = intField(req, "offset", 0); err != nil {
		return
	}
	limit, err = intField(req, "limit", 0)
	return
}

func peerList(users []model.User) *structpb.ListValue {
	values := make([]*structpb.Value, 0, len(users))
	for _, u := range users {
		values = append(values, structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"id":   structpb.NewStringValue(u.ID),
			"name": structpb.NewStringValue(u.Profile.Name),
		}}))
	}
	return &structpb.ListValue{Values: values}
}

// method adapts a typed server method to grpc.MethodDesc.
func method[Req, Resp any](name string, newReq func() Req, call func(SocialGraphServer, context.Context, Req) (Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := newReq()
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(SocialGraphServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fmt.Sprintf("/%s/%s", GraphServiceName, name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(SocialGraphServer), ctx, req.(Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func newStruct() *structpb.Struct { return &structpb.Struct{} }

var graphServiceDesc = grpc.ServiceDesc{
	ServiceName: GraphServiceName,
	HandlerType: (*SocialGraphServer)(nil),
	Methods: []grpc.MethodDesc{
		method("Ping", func() *emptypb.Empty { return &emptypb.Empty{} }, SocialGraphServer.Ping),
		method("GetUser", newStruct, SocialGraphServer.GetUser),
		method("Connect", newStruct, SocialGraphServer.Connect),
		method("Disconnect", newStruct, SocialGraphServer.Disconnect),
		method("CheckConnection", newStruct, SocialGraphServer.CheckConnection),
		method("ListConnections", newStruct, SocialGraphServer.ListConnections),
		method("ListRecommendations", newStruct, SocialGraphServer.ListRecommendations),
		method("RefreshRecommendations", newStruct, SocialGraphServer.RefreshRecommendations),
		method("BatchConnect", newStruct, SocialGraphServer.BatchConnect),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "social/v1/graph.proto",
}

func RegisterGraphServer(s grpc.ServiceRegistrar, srv SocialGraphServer) {
	s.RegisterService(&graphServiceDesc, srv)
}

var pingMethod = fmt.Sprintf("/%s/Ping", GraphServiceName)

// AuthInterceptor requires a valid bearer token in the authorization metadata
// for every method except Ping.
func AuthInterceptor(tokens *util.TokenManager) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if info.FullMethod == pingMethod {
			return handler(ctx, req)
		}
		token, err := util.ExtractBearer(ctx)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}
		if _, err := tokens.ValidateToken(token); err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}
		return handler(ctx, req)
	}
}

func MetricsInterceptor(m *metrics.Metrics) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		m.ObserveRequest("grpc", info.FullMethod, code.String(), time.Since(start))
		if err != nil {
			m.ObserveError("grpc", code.String())
		}
		return resp, err
	}
}

var _ SocialGraphServer = (*GraphServer)(nil)
