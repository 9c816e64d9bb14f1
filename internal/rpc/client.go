package rpc

import (
	"context"

	"connectrpc.com/connect"
)

// GigServiceClient calls gigboard.v1.GigService.
type GigServiceClient struct {
	listGigs  *connect.Client[ListGigsRequest, ListGigsResponse]
	getGig    *connect.Client[GetGigRequest, GetGigResponse]
	createGig *connect.Client[CreateGigRequest, CreateGigResponse]
	updateGig *connect.Client[UpdateGigRequest, UpdateGigResponse]
}

// NewGigServiceClient returns a client for the service at baseURL,
// e.g. "http://localhost:8080".
func NewGigServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *GigServiceClient {
	opts = withCodec[connect.ClientOption](opts, connect.WithCodec(Codec{}))
	return &GigServiceClient{
		listGigs:  connect.NewClient[ListGigsRequest, ListGigsResponse](httpClient, baseURL+GigServiceListGigsProcedure, opts...),
		getGig:    connect.NewClient[GetGigRequest, GetGigResponse](httpClient, baseURL+GigServiceGetGigProcedure, opts...),
		createGig: connect.NewClient[CreateGigRequest, CreateGigResponse](httpClient, baseURL+GigServiceCreateGigProcedure, opts...),
		updateGig: connect.NewClient[UpdateGigRequest, UpdateGigResponse](httpClient, baseURL+GigServiceUpdateGigProcedure, opts...),
	}
}

func (c *GigServiceClient) ListGigs(ctx context.Context, req *connect.Request[ListGigsRequest]) (*connect.Response[ListGigsResponse], error) {
	return c.listGigs.CallUnary(ctx, req)
}

func (c *GigServiceClient) GetGig(ctx context.Context, req *connect.Request[GetGigRequest]) (*connect.Response[GetGigResponse], error) {
	return c.getGig.CallUnary(ctx, req)
}

func (c *GigServiceClient) CreateGig(ctx context.Context, req *connect.Request[CreateGigRequest]) (*connect.Response[CreateGigResponse], error) {
	return c.createGig.CallUnary(ctx, req)
}

func (c *GigServiceClient) UpdateGig(ctx context.Context, req *connect.Request[UpdateGigRequest]) (*connect.Response[UpdateGigResponse], error) {
	return c.updateGig.CallUnary(ctx, req)
}

// MessageServiceClient calls gigboard.v1.MessageService.
type MessageServiceClient struct {
	sendMessage      *connect.Client[SendMessageRequest, SendMessageResponse]
	listConversation *connect.Client[ListConversationRequest, ListConversationResponse]
	listInbox        *connect.Client[ListInboxRequest, ListInboxResponse]
}

// NewMessageServiceClient returns a client for the service at baseURL.
func NewMessageServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *MessageServiceClient {
	opts = withCodec[connect.ClientOption](opts, connect.WithCodec(Codec{}))
	return &MessageServiceClient{
		sendMessage:      connect.NewClient[SendMessageRequest, SendMessageResponse](httpClient, baseURL+MessageServiceSendMessageProcedure, opts...),
		listConversation: connect.NewClient[ListConversationRequest, ListConversationResponse](httpClient, baseURL+MessageServiceListConversationProcedure, opts...),
		listInbox:        connect.NewClient[ListInboxRequest, ListInboxResponse](httpClient, baseURL+MessageServiceListInboxProcedure, opts...),
	}
}

func (c *MessageServiceClient) SendMessage(ctx context.Context, req *connect.Request[SendMessageRequest]) (*connect.Response[SendMessageResponse], error) {
	return c.sendMessage.CallUnary(ctx, req)
}

func (c *MessageServiceClient) ListConversation(ctx context.Context, req *connect.Request[ListConversationRequest]) (*connect.Response[ListConversationResponse], error) {
	return c.listConversation.CallUnary(ctx, req)
}

func (c *MessageServiceClient) ListInbox(ctx context.Context, req *connect.Request[ListInboxRequest]) (*connect.Response[ListInboxResponse], error) {
	return c.listInbox.CallUnary(ctx, req)
}
