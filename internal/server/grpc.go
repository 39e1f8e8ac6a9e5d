package server

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/docu-prompt-engine/internal/common"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/entity"
)

const DocumentServiceName = "docuprompt.v1.DocumentService"

const maxOriginalName = 255

// DocumentServiceServer is the gRPC surface. Messages are well-known types so
// no generated code is needed.
type DocumentServiceServer interface {
	ListDocuments(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ProcessFile(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var DocumentServiceDesc = grpc.ServiceDesc{
	ServiceName: DocumentServiceName,
	HandlerType: (*DocumentServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListDocuments", Handler: listDocumentsHandler},
		{MethodName: "ProcessFile", Handler: processFileHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "docuprompt/v1/documents.proto",
}

func listDocumentsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DocumentServiceServer).ListDocuments(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + DocumentServiceName + "/ListDocuments"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DocumentServiceServer).ListDocuments(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func processFileHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DocumentServiceServer).ProcessFile(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + DocumentServiceName + "/ProcessFile"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DocumentServiceServer).ProcessFile(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

type DocumentService struct {
	Deps
}

func NewDocumentService(d Deps) *DocumentService {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &DocumentService{Deps: d}
}

func (s *DocumentService) ListDocuments(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	docs, err := s.Store.ListAll(ctx)
	if err != nil {
		s.Logger.Warn("grpc.list.failed", "error", err)
		return nil, common.GRPCError(err)
	}
	items := make([]any, 0, len(docs))
	for i := range docs {
		items = append(items, documentMap(&docs[i]))
	}
	out, err := structpb.NewStruct(map[string]any{"documents": items})
	if err != nil {
		return nil, common.InternalError(err.Error())
	}
	return out, nil
}

// ProcessFile copies a server-local file into the upload dir and runs it
// through the pipeline. The caller's file is left untouched.
func (s *DocumentService) ProcessFile(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	path := strings.TrimSpace(req.GetFields()["path"].GetStringValue())
	name := strings.TrimSpace(req.GetFields()["original_name"].GetStringValue())
	v := common.NewValidator().
		Field("path", path, common.Required).
		Field("original_name", name, common.MaxLength(maxOriginalName))
	if err := common.ValidateAndReturnError(v); err != nil {
		return nil, err
	}
	if name == "" {
		name = filepath.Base(path)
	}

	fi, err := os.Stat(path)
	if err != nil {
		return nil, common.InvalidArgumentErrorf("stat %s: %v", path, err)
	}
	if err := s.Stager.Check(name, fi.Size()); err != nil {
		return nil, common.GRPCError(err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, common.InvalidArgumentErrorf("open %s: %v", path, err)
	}
	src, err := s.Stager.Stage(f, name)
	_ = f.Close()
	if err != nil {
		return nil, common.GRPCError(err)
	}

	ctx, reqID := common.EnsureRequestID(ctx)
	s.Logger.Info("grpc.process.start", "req_id", reqID, "file_name", name)
	doc, err := s.Processor.Process(ctx, src, s.Store)
	if err != nil {
		s.Logger.Warn("grpc.process.failed", "req_id", reqID, "kind", common.KindOf(err), "error", err)
		return nil, common.GRPCError(err)
	}
	out, err := structpb.NewStruct(documentMap(doc))
	if err != nil {
		return nil, common.InternalError(err.Error())
	}
	return out, nil
}

func documentMap(d *entity.Document) map[string]any {
	kv := make(map[string]any, len(d.KeyValuePairs))
	for k, v := range d.KeyValuePairs {
		kv[common.CleanText(k)] = common.CleanText(v)
	}
	return map[string]any{
		"id":            d.ID.String(),
		"fileName":      common.CleanText(d.FileName),
		"fileType":      common.CleanText(d.FileType),
		"extractedText": common.CleanText(d.ExtractedText),
		"documentType":  common.CleanText(d.DocumentType),
		"aiPrompt":      common.CleanText(d.AIPrompt),
		"keyValuePairs": kv,
		"createdAt":     d.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// NewGRPCServer registers the document service with health and reflection.
func NewGRPCServer(svc DocumentServiceServer, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	gs := grpc.NewServer(opts...)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(DocumentServiceName, healthpb.HealthCheckResponse_SERVING)
	reflection.Register(gs)
	gs.RegisterService(&DocumentServiceDesc, svc)
	return gs, hs
}
