package rpc

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// GigServiceHandler is implemented by the gig service.
type GigServiceHandler interface {
	ListGigs(context.Context, *connect.Request[ListGigsRequest]) (*connect.Response[ListGigsResponse], error)
	GetGig(context.Context, *connect.Request[GetGigRequest]) (*connect.Response[GetGigResponse], error)
	CreateGig(context.Context, *connect.Request[CreateGigRequest]) (*connect.Response[CreateGigResponse], error)
	UpdateGig(context.Context, *connect.Request[UpdateGigRequest]) (*connect.Response[UpdateGigResponse], error)
}

// MessageServiceHandler is implemented by the message service.
type MessageServiceHandler interface {
	SendMessage(context.Context, *connect.Request[SendMessageRequest]) (*connect.Response[SendMessageResponse], error)
	ListConversation(context.Context, *connect.Request[ListConversationRequest]) (*connect.Response[ListConversationResponse], error)
	ListInbox(context.Context, *connect.Request[ListInboxRequest]) (*connect.Response[ListInboxResponse], error)
}

// withCodec puts the JSON codec first so callers can still override it.
func withCodec[T any](opts []T, codec T) []T {
	return append([]T{codec}, opts...)
}

// NewGigServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewGigServiceHandler(svc GigServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withCodec[connect.HandlerOption](opts, connect.WithCodec(Codec{}))

	mux := http.NewServeMux()
	mux.Handle(GigServiceListGigsProcedure, connect.NewUnaryHandler(GigServiceListGigsProcedure, svc.ListGigs, opts...))
	mux.Handle(GigServiceGetGigProcedure, connect.NewUnaryHandler(GigServiceGetGigProcedure, svc.GetGig, opts...))
	mux.Handle(GigServiceCreateGigProcedure, connect.NewUnaryHandler(GigServiceCreateGigProcedure, svc.CreateGig, opts...))
	mux.Handle(GigServiceUpdateGigProcedure, connect.NewUnaryHandler(GigServiceUpdateGigProcedure, svc.UpdateGig, opts...))

	return "/" + GigServiceName + "/", mux
}

// NewMessageServiceHandler builds an HTTP handler from the service implementation.
func NewMessageServiceHandler(svc MessageServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withCodec[connect.HandlerOption](opts, connect.WithCodec(Codec{}))

	mux := http.NewServeMux()
	mux.Handle(MessageServiceSendMessageProcedure, connect.NewUnaryHandler(MessageServiceSendMessageProcedure, svc.SendMessage, opts...))
	mux.Handle(MessageServiceListConversationProcedure, connect.NewUnaryHandler(MessageServiceListConversationProcedure, svc.ListConversation, opts...))
	mux.Handle(MessageServiceListInboxProcedure, connect.NewUnaryHandler(MessageServiceListInboxProcedure, svc.ListInbox, opts...))

	return "/" + MessageServiceName + "/", mux
}
