package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"

	"cuebridge/internal/cue"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) call(method string, req, resp any) error {
	return c.client.Call(ServiceName+"."+method, req, resp)
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.call("Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Tabs lists the contexts connected through the relay.
func (c *Client) Tabs() (*TabsResponse, error) {
	var resp TabsResponse
	if err := c.call("Tabs", TabsRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TranscriptList returns stored transcripts, optionally for one domain.
func (c *Client) TranscriptList(domain string) (*TranscriptListResponse, error) {
	var resp TranscriptListResponse
	if err := c.call("TranscriptList", TranscriptListRequest{Domain: domain}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TranscriptGet returns one transcript document.
func (c *Client) TranscriptGet(domain, id string) (*TranscriptGetResponse, error) {
	var resp TranscriptGetResponse
	if err := c.call("TranscriptGet", TranscriptGetRequest{Domain: domain, ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TranscriptImport validates and stores t.
func (c *Client) TranscriptImport(t cue.Transcript) (*TranscriptImportResponse, error) {
	var resp TranscriptImportResponse
	if err := c.call("TranscriptImport", TranscriptImportRequest{Transcript: t}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TranscriptDelete removes one transcript.
func (c *Client) TranscriptDelete(domain, id string) (*TranscriptDeleteResponse, error) {
	var resp TranscriptDeleteResponse
	if err := c.call("TranscriptDelete", TranscriptDeleteRequest{Domain: domain, ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DraftList returns saved drafts.
func (c *Client) DraftList() (*DraftListResponse, error) {
	var resp DraftListResponse
	if err := c.call("DraftList", DraftListRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DraftExport converts the draft at key to a transcript document.
func (c *Client) DraftExport(key string) (*DraftExportResponse, error) {
	var resp DraftExportResponse
	if err := c.call("DraftExport", DraftKeyRequest{Key: key}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DraftPromote imports the draft at key and deletes it.
func (c *Client) DraftPromote(key string) (*DraftPromoteResponse, error) {
	var resp DraftPromoteResponse
	if err := c.call("DraftPromote", DraftKeyRequest{Key: key}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DraftDelete removes one draft.
func (c *Client) DraftDelete(key string) (*DraftDeleteResponse, error) {
	var resp DraftDeleteResponse
	if err := c.call("DraftDelete", DraftKeyRequest{Key: key}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DraftClear removes every draft.
func (c *Client) DraftClear() (*DraftClearResponse, error) {
	var resp DraftClearResponse
	if err := c.call("DraftClear", DraftClearRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ShortcutsGet returns the effective bindings.
func (c *Client) ShortcutsGet() (*ShortcutsResponse, error) {
	var resp ShortcutsResponse
	if err := c.call("ShortcutsGet", ShortcutsGetRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ShortcutsSet stores overrides and, when non-nil, the indicator preference.
func (c *Client) ShortcutsSet(overrides map[string]string, showIndicator *bool) (*ShortcutsResponse, error) {
	var resp ShortcutsResponse
	req := ShortcutsSetRequest{Overrides: overrides, ShowIndicator: showIndicator}
	if err := c.call("ShortcutsSet", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ShortcutsReset drops stored overrides.
func (c *Client) ShortcutsReset() (*ShortcutsResponse, error) {
	var resp ShortcutsResponse
	if err := c.call("ShortcutsReset", ShortcutsResetRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
