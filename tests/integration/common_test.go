// Package integration drives the S3-subset HTTP adapter through a
// real aws-sdk-go-v2 S3 client against a locally bound server,
// narrowed to the PUT/GET/HEAD subset this adapter actually
// implements.
package integration

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/prn-tf/castore/internal/chunk"
	"github.com/prn-tf/castore/internal/filestore"
	"github.com/prn-tf/castore/internal/handler"
	"github.com/prn-tf/castore/internal/kv/memkv"
)

// newTestServer starts an httptest.Server in front of a fresh,
// in-memory-backed filestore.Store and returns it alongside an S3
// client pointed at it. Path-style addressing maps the SDK's
// Bucket/Key straight onto this adapter's namespace/path segments.
func newTestServer(t *testing.T) (*httptest.Server, *s3.Client) {
	t.Helper()

	store, err := filestore.Open(context.Background(), memkv.New(), 1<<20, zerolog.Nop())
	if err != nil {
		t.Fatalf("open filestore: %v", err)
	}
	objectHandler := handler.NewObjectHandler(store, chunk.New(chunk.Fixed(1<<16)), filestore.Config{}, zerolog.Nop())
	router := handler.NewRouter(objectHandler, zerolog.Nop())

	srv := httptest.NewServer(router.Handler())
	t.Cleanup(srv.Close)

	cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion("us-east-1"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")),
	)
	if err != nil {
		t.Fatalf("load aws config: %v", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(srv.URL)
		o.UsePathStyle = true
	})

	return srv, client
}
