package stresstest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/prn-tf/castore/internal/chunk"
	"github.com/prn-tf/castore/internal/filestore"
)

// Target is the collaborator a Driver writes to and reads from: write
// returns an opaque external id, read validates that id's contents
// still stream back.
type Target interface {
	Write(ctx context.Context, body io.Reader) (externalID string, err error)
	Read(ctx context.Context, externalID string) (bytesRead int64, err error)
}

// SessionTarget drives a filestore.Session directly, in-process - no
// HTTP round-trip, for measuring the core store's own throughput.
type SessionTarget struct {
	session    filestore.Session
	chunker    *chunk.Chunker
	namePrefix string
	counter    int64
}

// NewSessionTarget returns a Target that stores every write under
// namePrefix plus an incrementing counter.
func NewSessionTarget(session filestore.Session, chunker *chunk.Chunker, namePrefix string) *SessionTarget {
	return &SessionTarget{session: session, chunker: chunker, namePrefix: namePrefix}
}

func (t *SessionTarget) Write(ctx context.Context, body io.Reader) (string, error) {
	id, err := t.session.StoreFile(ctx, body, t.chunker)
	if err != nil {
		return "", fmt.Errorf("stresstest: store file: %w", err)
	}
	t.counter++
	name := fmt.Sprintf("%s/%d", t.namePrefix, t.counter)
	if err := t.session.AssociateFilename(ctx, name, id); err != nil {
		return "", fmt.Errorf("stresstest: associate filename: %w", err)
	}
	return name, nil
}

func (t *SessionTarget) Read(ctx context.Context, externalID string) (int64, error) {
	data, err := t.session.ReadNamedFile(ctx, externalID)
	if err != nil {
		return 0, fmt.Errorf("stresstest: read named file: %w", err)
	}
	return int64(len(data)), nil
}

// HTTPTarget drives the S3-subset HTTP adapter over the network,
// exercising the handler and whatever KV backend the server process
// was started with.
type HTTPTarget struct {
	client     *http.Client
	baseURL    string
	namePrefix string
	counter    int64
}

// NewHTTPTarget returns a Target issuing PUT/GET requests against
// baseURL (e.g. "http://localhost:8080/42") for namespace 42.
func NewHTTPTarget(client *http.Client, baseURL, namePrefix string) *HTTPTarget {
	return &HTTPTarget{client: client, baseURL: baseURL, namePrefix: namePrefix}
}

func (t *HTTPTarget) Write(ctx context.Context, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("stresstest: buffer payload: %w", err)
	}
	t.counter++
	name := fmt.Sprintf("%s/%d", t.namePrefix, t.counter)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, t.baseURL+"/"+name, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.ContentLength = int64(len(data))
	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("stresstest: put: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("stresstest: put %s: status %d", name, resp.StatusCode)
	}
	return name, nil
}

func (t *HTTPTarget) Read(ctx context.Context, externalID string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/"+externalID, nil)
	if err != nil {
		return 0, err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("stresstest: get: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return 0, fmt.Errorf("stresstest: get %s: status %d", externalID, resp.StatusCode)
	}
	n, err := io.Copy(io.Discard, resp.Body)
	if err != nil {
		return 0, fmt.Errorf("stresstest: read body: %w", err)
	}
	return n, nil
}
