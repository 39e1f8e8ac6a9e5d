package server

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/docu-prompt-engine/internal/entity"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/ocr/ocrtest"
)

func dialTestServer(t *testing.T, env *testEnv) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	gs, _ := NewGRPCServer(NewDocumentService(env.deps))
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestGRPC_ProcessFileThenList(t *testing.T) {
	env := newTestEnv(t, invoiceAnswer)
	conn := dialTestServer(t, env)
	ctx := context.Background()

	src := filepath.Join(t.TempDir(), "scan.pdf")
	require.NoError(t, os.WriteFile(src, ocrtest.MinimalPDF("Invoice INV-7"), 0o600))

	req, err := structpb.NewStruct(map[string]any{"path": src, "original_name": "Invoice.pdf"})
	require.NoError(t, err)
	got := new(structpb.Struct)
	require.NoError(t, conn.Invoke(ctx, "/"+DocumentServiceName+"/ProcessFile", req, got))

	m := got.AsMap()
	assert.Equal(t, "Invoice.pdf", m["fileName"])
	assert.Equal(t, ".pdf", m["fileType"])
	assert.Equal(t, map[string]any{"invoice_number": "INV-7", "total_amount": "19.5"}, m["keyValuePairs"])
	assert.FileExists(t, src, "caller's file is copied, not moved")
	assert.Equal(t, 0, env.uploadsLeft(t))

	list := new(structpb.Struct)
	require.NoError(t, conn.Invoke(ctx, "/"+DocumentServiceName+"/ListDocuments", &emptypb.Empty{}, list))
	docs := list.AsMap()["documents"].([]any)
	require.Len(t, docs, 1)
	assert.Equal(t, m["id"], docs[0].(map[string]any)["id"])
}

func TestGRPC_ErrorsCarryKind(t *testing.T) {
	env := newTestEnv(t, invoiceAnswer)
	conn := dialTestServer(t, env)
	ctx := context.Background()

	req, _ := structpb.NewStruct(map[string]any{})
	err := conn.Invoke(ctx, "/"+DocumentServiceName+"/ProcessFile", req, new(structpb.Struct))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	bad := filepath.Join(t.TempDir(), "notes.docx")
	require.NoError(t, os.WriteFile(bad, []byte("x"), 0o600))
	req, _ = structpb.NewStruct(map[string]any{"path": bad})
	err = conn.Invoke(ctx, "/"+DocumentServiceName+"/ProcessFile", req, new(structpb.Struct))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Contains(t, status.Convert(err).Message(), "UnsupportedFormat")

	corrupt := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(corrupt, []byte("nope"), 0o600))
	req, _ = structpb.NewStruct(map[string]any{"path": corrupt})
	err = conn.Invoke(ctx, "/"+DocumentServiceName+"/ProcessFile", req, new(structpb.Struct))
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	assert.Contains(t, status.Convert(err).Message(), "CorruptDocument")
}

func TestGRPC_ListSurvivesInvalidUTF8(t *testing.T) {
	env := newTestEnv(t, invoiceAnswer)
	conn := dialTestServer(t, env)
	ctx := context.Background()

	for _, text := range []string{"fine", "caf\xe9"} {
		_, err := env.deps.Store.Save(ctx, &entity.Document{
			FileName:      text + ".pdf",
			FileType:      ".pdf",
			ExtractedText: text,
			DocumentType:  "invoice",
			KeyValuePairs: map[string]string{"note": text},
			CreatedAt:     time.Now().UTC(),
		})
		require.NoError(t, err)
	}

	list := new(structpb.Struct)
	require.NoError(t, conn.Invoke(ctx, "/"+DocumentServiceName+"/ListDocuments", &emptypb.Empty{}, list))
	docs := list.AsMap()["documents"].([]any)
	require.Len(t, docs, 2)
	var texts []any
	for _, d := range docs {
		texts = append(texts, d.(map[string]any)["extractedText"])
	}
	assert.ElementsMatch(t, []any{"fine", "caf\uFFFD"}, texts)
}

func TestGRPC_RejectsLongOriginalName(t *testing.T) {
	conn := dialTestServer(t, newTestEnv(t, invoiceAnswer))
	src := filepath.Join(t.TempDir(), "scan.pdf")
	require.NoError(t, os.WriteFile(src, ocrtest.MinimalPDF("x"), 0o600))

	req, err := structpb.NewStruct(map[string]any{"path": src, "original_name": strings.Repeat("a", 300) + ".pdf"})
	require.NoError(t, err)
	err = conn.Invoke(context.Background(), "/"+DocumentServiceName+"/ProcessFile", req, new(structpb.Struct))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.FileExists(t, src)
}

func TestGRPC_Health(t *testing.T) {
	conn := dialTestServer(t, newTestEnv(t, invoiceAnswer))
	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: DocumentServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}
