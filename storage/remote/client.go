package remote

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/tailored-agentic-units/gamesave/storage"
)

const defaultTimeout = 30 * time.Second

func init() {
	storage.Register("remote", func(cfg *storage.Config) (storage.Backend, error) {
		if strings.TrimSpace(cfg.URL) == "" {
			return nil, fmt.Errorf("remote storage requires a url")
		}
		return NewClient(&http.Client{Timeout: defaultTimeout}, cfg.URL), nil
	})
}

// Client is a storage.Backend that forwards every operation to a remote
// StorageService.
type Client struct {
	baseURL     string
	exists      *connect.Client[wrapperspb.StringValue, wrapperspb.BoolValue]
	read        *connect.Client[wrapperspb.StringValue, wrapperspb.BytesValue]
	write       *connect.Client[wrapperspb.BytesValue, emptypb.Empty]
	delete      *connect.Client[wrapperspb.StringValue, emptypb.Empty]
	resolvePath *connect.Client[wrapperspb.StringValue, wrapperspb.StringValue]
	list        *connect.Client[emptypb.Empty, structpb.ListValue]
}

// NewClient creates a Client for the service at baseURL.
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	return &Client{
		baseURL:     baseURL,
		exists:      connect.NewClient[wrapperspb.StringValue, wrapperspb.BoolValue](httpClient, baseURL+existsProcedure, opts...),
		read:        connect.NewClient[wrapperspb.StringValue, wrapperspb.BytesValue](httpClient, baseURL+readProcedure, opts...),
		write:       connect.NewClient[wrapperspb.BytesValue, emptypb.Empty](httpClient, baseURL+writeProcedure, opts...),
		delete:      connect.NewClient[wrapperspb.StringValue, emptypb.Empty](httpClient, baseURL+deleteProcedure, opts...),
		resolvePath: connect.NewClient[wrapperspb.StringValue, wrapperspb.StringValue](httpClient, baseURL+resolvePathProcedure, opts...),
		list:        connect.NewClient[emptypb.Empty, structpb.ListValue](httpClient, baseURL+listProcedure, opts...),
	}
}

// ResolvePath returns the remote location of name without contacting the
// server. Use ServerPath for the server's own location.
func (c *Client) ResolvePath(name string) string {
	return c.baseURL + "/" + name
}

// ServerPath asks the server where it stores name.
func (c *Client) ServerPath(ctx context.Context, name string) (string, error) {
	res, err := c.resolvePath.CallUnary(ctx, connect.NewRequest(wrapperspb.String(name)))
	if err != nil {
		return "", fromConnect(err, storage.ErrReadFailed, name)
	}
	return res.Msg.GetValue(), nil
}

func (c *Client) Exists(ctx context.Context, name string) (bool, error) {
	key, err := prepare(ctx, name)
	if err != nil {
		return false, err
	}
	res, err := c.exists.CallUnary(ctx, connect.NewRequest(wrapperspb.String(key)))
	if err != nil {
		return false, fromConnect(err, storage.ErrReadFailed, name)
	}
	return res.Msg.GetValue(), nil
}

func (c *Client) Read(ctx context.Context, name string) ([]byte, error) {
	key, err := prepare(ctx, name)
	if err != nil {
		return nil, err
	}
	res, err := c.read.CallUnary(ctx, connect.NewRequest(wrapperspb.String(key)))
	if err != nil {
		return nil, fromConnect(err, storage.ErrReadFailed, name)
	}
	data := res.Msg.GetValue()
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

func (c *Client) Write(ctx context.Context, name string, data []byte) error {
	key, err := prepare(ctx, name)
	if err != nil {
		return err
	}
	req := connect.NewRequest(wrapperspb.Bytes(data))
	req.Header().Set(NameHeader, key)
	if _, err := c.write.CallUnary(ctx, req); err != nil {
		return fromConnect(err, storage.ErrWriteFailed, name)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, name string) error {
	key, err := prepare(ctx, name)
	if err != nil {
		return err
	}
	if _, err := c.delete.CallUnary(ctx, connect.NewRequest(wrapperspb.String(key))); err != nil {
		return fromConnect(err, storage.ErrWriteFailed, name)
	}
	return nil
}

func (c *Client) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := c.list.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return nil, fromConnect(err, storage.ErrReadFailed, "")
	}

	var names []string
	for _, v := range res.Msg.GetValues() {
		names = append(names, v.GetStringValue())
	}
	return names, nil
}

func prepare(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return storage.CleanName(name)
}

// fromConnect maps Connect codes back onto storage sentinels so callers can
// test errors the same way for every backend.
func fromConnect(err error, fallback error, name string) error {
	switch connect.CodeOf(err) {
	case connect.CodeNotFound:
		return fmt.Errorf("%w: %s", storage.ErrNotFound, name)
	case connect.CodeInvalidArgument:
		return fmt.Errorf("%w: %s: %v", storage.ErrInvalidName, name, err)
	case connect.CodeCanceled:
		return fmt.Errorf("%w: %s", context.Canceled, name)
	case connect.CodeDeadlineExceeded:
		return fmt.Errorf("%w: %s", context.DeadlineExceeded, name)
	}
	return fmt.Errorf("%w: %s: %v", fallback, name, err)
}
