package grpc

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "realfolio.v1.LedgerService"

// LedgerServiceServer is the server API for the ledger service
type LedgerServiceServer interface {
	ApplyTransactions(context.Context, *ApplyTransactionsRequest) (*ReconcileResponse, error)
	SubmitBrokerOrders(context.Context, *SubmitBrokerOrdersRequest) (*SubmitBrokerOrdersResponse, error)
	ExpireOptions(context.Context, *ExpireOptionsRequest) (*ExpireOptionsResponse, error)
	RetryPending(context.Context, *RetryPendingRequest) (*ReconcileResponse, error)
	UpsertRatePoints(context.Context, *UpsertRatePointsRequest) (*UpsertRatePointsResponse, error)
	PublishPrices(context.Context, *PublishPricesRequest) (*PublishPricesResponse, error)
	GetOpenPositions(context.Context, *GetOpenPositionsRequest) (*GetOpenPositionsResponse, error)
	GetClosedTrades(context.Context, *GetClosedTradesRequest) (*GetClosedTradesResponse, error)
}

// RegisterLedgerServiceServer registers srv on s
func RegisterLedgerServiceServer(s grpc.ServiceRegistrar, srv LedgerServiceServer) {
	s.RegisterService(&LedgerServiceDesc, srv)
}

// LedgerServiceDesc describes the service for grpc.Server
var LedgerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LedgerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ApplyTransactions", Handler: unaryHandler("ApplyTransactions", LedgerServiceServer.ApplyTransactions)},
		{MethodName: "SubmitBrokerOrders", Handler: unaryHandler("SubmitBrokerOrders", LedgerServiceServer.SubmitBrokerOrders)},
		{MethodName: "ExpireOptions", Handler: unaryHandler("ExpireOptions", LedgerServiceServer.ExpireOptions)},
		{MethodName: "RetryPending", Handler: unaryHandler("RetryPending", LedgerServiceServer.RetryPending)},
		{MethodName: "UpsertRatePoints", Handler: unaryHandler("UpsertRatePoints", LedgerServiceServer.UpsertRatePoints)},
		{MethodName: "PublishPrices", Handler: unaryHandler("PublishPrices", LedgerServiceServer.PublishPrices)},
		{MethodName: "GetOpenPositions", Handler: unaryHandler("GetOpenPositions", LedgerServiceServer.GetOpenPositions)},
		{MethodName: "GetClosedTrades", Handler: unaryHandler("GetClosedTrades", LedgerServiceServer.GetClosedTrades)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "realfolio/v1/ledger.proto",
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// unaryHandler adapts a typed service method to grpc.MethodHandler, running the interceptor chain if any
func unaryHandler[Req, Resp any](method string, call func(LedgerServiceServer, context.Context, *Req) (*Resp, error)) func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(LedgerServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod(method),
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(LedgerServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// LedgerServiceClient is the client API for the ledger service
type LedgerServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewLedgerServiceClient creates a client speaking the JSON codec over cc
func NewLedgerServiceClient(cc grpc.ClientConnInterface) *LedgerServiceClient {
	return &LedgerServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in interface{}, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	if err := cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *LedgerServiceClient) ApplyTransactions(ctx context.Context, in *ApplyTransactionsRequest, opts ...grpc.CallOption) (*ReconcileResponse, error) {
	return invoke[ReconcileResponse](ctx, c.cc, "ApplyTransactions", in, opts)
}

func (c *LedgerServiceClient) SubmitBrokerOrders(ctx context.Context, in *SubmitBrokerOrdersRequest, opts ...grpc.CallOption) (*SubmitBrokerOrdersResponse, error) {
	return invoke[SubmitBrokerOrdersResponse](ctx, c.cc, "SubmitBrokerOrders", in, opts)
}

func (c *LedgerServiceClient) ExpireOptions(ctx context.Context, in *ExpireOptionsRequest, opts ...grpc.CallOption) (*ExpireOptionsResponse, error) {
	return invoke[ExpireOptionsResponse](ctx, c.cc, "ExpireOptions", in, opts)
}

func (c *LedgerServiceClient) RetryPending(ctx context.Context, in *RetryPendingRequest, opts ...grpc.CallOption) (*ReconcileResponse, error) {
	return invoke[ReconcileResponse](ctx, c.cc, "RetryPending", in, opts)
}

func (c *LedgerServiceClient) UpsertRatePoints(ctx context.Context, in *UpsertRatePointsRequest, opts ...grpc.CallOption) (*UpsertRatePointsResponse, error) {
	return invoke[UpsertRatePointsResponse](ctx, c.cc, "UpsertRatePoints", in, opts)
}

func (c *LedgerServiceClient) PublishPrices(ctx context.Context, in *PublishPricesRequest, opts ...grpc.CallOption) (*PublishPricesResponse, error) {
	return invoke[PublishPricesResponse](ctx, c.cc, "PublishPrices", in, opts)
}

func (c *LedgerServiceClient) GetOpenPositions(ctx context.Context, in *GetOpenPositionsRequest, opts ...grpc.CallOption) (*GetOpenPositionsResponse, error) {
	return invoke[GetOpenPositionsResponse](ctx, c.cc, "GetOpenPositions", in, opts)
}

func (c *LedgerServiceClient) GetClosedTrades(ctx context.Context, in *GetClosedTradesRequest, opts ...grpc.CallOption) (*GetClosedTradesResponse, error) {
	return invoke[GetClosedTradesResponse](ctx, c.cc, "GetClosedTrades", in, opts)
}
