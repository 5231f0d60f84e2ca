package handler

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"

	"github.com/rl1809/scan-catalog/internal/core/domain"
	"github.com/rl1809/scan-catalog/internal/core/service"
)

// CodecName is the content subtype clients select with
// grpc.CallContentSubtype to talk to CatalogService.
const CodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                               { return CodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type LookupRequest struct {
	Barcode string `json:"barcode"`
}

type LookupResponse struct {
	Found   bool            `json:"found"`
	Product *domain.Product `json:"product,omitempty"`
	Message string          `json:"message"`
}

type ListProductsRequest struct {
	CategoryID int64 `json:"category_id,omitempty"`
}

type ListProductsResponse struct {
	Products []domain.Product `json:"products"`
	Message  string           `json:"message,omitempty"`
}

type CatalogServer interface {
	LookupBarcode(context.Context, *LookupRequest) (*LookupResponse, error)
	ListProducts(context.Context, *ListProductsRequest) (*ListProductsResponse, error)
}

type GRPCHandler struct {
	catalog *service.CatalogService
}

func NewGRPCHandler(catalog *service.CatalogService) *GRPCHandler {
	return &GRPCHandler{catalog: catalog}
}

func (h *GRPCHandler) LookupBarcode(ctx context.Context, req *LookupRequest) (*LookupResponse, error) {
	p, err := h.catalog.GetProductByBarcode(ctx, req.Barcode)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			return &LookupResponse{Found: false, Message: "product not found"}, nil
		}
		zap.S().Errorf("grpc lookup %q failed: %v", req.Barcode, err)
		return &LookupResponse{Found: false, Message: "internal error"}, nil
	}
	return &LookupResponse{Found: true, Product: p, Message: "product found"}, nil
}

func (h *GRPCHandler) ListProducts(ctx context.Context, req *ListProductsRequest) (*ListProductsResponse, error) {
	var categoryID *int64
	if req.CategoryID > 0 {
		categoryID = &req.CategoryID
	}
	products, err := h.catalog.ListProducts(ctx, categoryID)
	if err != nil {
		zap.S().Errorf("grpc list products failed: %v", err)
		return &ListProductsResponse{Products: []domain.Product{}, Message: "internal error"}, nil
	}
	return &ListProductsResponse{Products: products}, nil
}

func RegisterCatalogServer(s grpc.ServiceRegistrar, srv CatalogServer) {
	s.RegisterService(&CatalogServiceDesc, srv)
}

var CatalogServiceDesc = grpc.ServiceDesc{
	ServiceName: "catalog.v1.CatalogService",
	HandlerType: (*CatalogServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "LookupBarcode", Handler: lookupBarcodeHandler},
		{MethodName: "ListProducts", Handler: listProductsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "catalog/v1/catalog.proto",
}

func lookupBarcodeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(LookupRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogServer).LookupBarcode(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/catalog.v1.CatalogService/LookupBarcode"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CatalogServer).LookupBarcode(ctx, req.(*LookupRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func listProductsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ListProductsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogServer).ListProducts(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/catalog.v1.CatalogService/ListProducts"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CatalogServer).ListProducts(ctx, req.(*ListProductsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// CatalogClient calls CatalogService over a connection dialed with the JSON
// content subtype.
type CatalogClient struct {
	cc grpc.ClientConnInterface
}

func NewCatalogClient(cc grpc.ClientConnInterface) *CatalogClient {
	return &CatalogClient{cc: cc}
}

func (c *CatalogClient) LookupBarcode(ctx context.Context, in *LookupRequest, opts ...grpc.CallOption) (*LookupResponse, error) {
	out := new(LookupResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/catalog.v1.CatalogService/LookupBarcode", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CatalogClient) ListProducts(ctx context.Context, in *ListProductsRequest, opts ...grpc.CallOption) (*ListProductsResponse, error) {
	out := new(ListProductsResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/catalog.v1.CatalogService/ListProducts", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
