package pushsubscription

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/kazz187/voicetask/internal/config"
	"github.com/kazz187/voicetask/pkg/cerr"
	"github.com/kazz187/voicetask/pkg/jsoncodec"
)

const (
	ServiceName                     = "voicetask.v1.PushService"
	GetVapidPublicKeyProcedure      = "/voicetask.v1.PushService/GetVapidPublicKey"
	RegisterSubscriptionProcedure   = "/voicetask.v1.PushService/RegisterSubscription"
	UnregisterSubscriptionProcedure = "/voicetask.v1.PushService/UnregisterSubscription"
	SendTestNotificationProcedure   = "/voicetask.v1.PushService/SendTestNotification"
)

type GetVapidPublicKeyRequest struct{}

type GetVapidPublicKeyResponse struct {
	PublicKey string `json:"public_key"`
}

type RegisterSubscriptionRequest struct {
	Endpoint  string `json:"endpoint"`
	P256dhKey string `json:"p256dh_key"`
	AuthKey   string `json:"auth_key"`
}

type RegisterSubscriptionResponse struct {
	ID string `json:"id"`
}

type UnregisterSubscriptionRequest struct {
	Endpoint string `json:"endpoint"`
}

type UnregisterSubscriptionResponse struct{}

type SendTestNotificationRequest struct{}

type SendTestNotificationResponse struct{}

type TestSender interface {
	SendTest(ctx context.Context) error
}

type Server struct {
	vapidEnv *config.VAPIDEnv
	service  *Service
	sender   TestSender
}

func NewServer(vapidEnv *config.VAPIDEnv, service *Service, sender TestSender) *Server {
	return &Server{
		vapidEnv: vapidEnv,
		service:  service,
		sender:   sender,
	}
}

func NewServiceHandler(s *Server, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = jsoncodec.HandlerOptions(opts...)
	getVapidPublicKey := connect.NewUnaryHandler(GetVapidPublicKeyProcedure, s.GetVapidPublicKey, opts...)
	register := connect.NewUnaryHandler(RegisterSubscriptionProcedure, s.RegisterSubscription, opts...)
	unregister := connect.NewUnaryHandler(UnregisterSubscriptionProcedure, s.UnregisterSubscription, opts...)
	sendTest := connect.NewUnaryHandler(SendTestNotificationProcedure, s.SendTestNotification, opts...)
	return "/" + ServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case GetVapidPublicKeyProcedure:
			getVapidPublicKey.ServeHTTP(w, r)
		case RegisterSubscriptionProcedure:
			register.ServeHTTP(w, r)
		case UnregisterSubscriptionProcedure:
			unregister.ServeHTTP(w, r)
		case SendTestNotificationProcedure:
			sendTest.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

func (s *Server) GetVapidPublicKey(_ context.Context, _ *connect.Request[GetVapidPublicKeyRequest]) (*connect.Response[GetVapidPublicKeyResponse], error) {
	if s.vapidEnv.VAPIDPublicKey == "" {
		return nil, cerr.NewError(cerr.FailedPrecondition, "VAPID keys not configured", nil).ConnectError()
	}
	return connect.NewResponse(&GetVapidPublicKeyResponse{
		PublicKey: s.vapidEnv.VAPIDPublicKey,
	}), nil
}

func (s *Server) RegisterSubscription(ctx context.Context, req *connect.Request[RegisterSubscriptionRequest]) (*connect.Response[RegisterSubscriptionResponse], error) {
	sub, err := s.service.Register(ctx, req.Msg.Endpoint, req.Msg.P256dhKey, req.Msg.AuthKey, req.Header().Get("User-Agent"))
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&RegisterSubscriptionResponse{ID: sub.ID}), nil
}

func (s *Server) UnregisterSubscription(ctx context.Context, req *connect.Request[UnregisterSubscriptionRequest]) (*connect.Response[UnregisterSubscriptionResponse], error) {
	if err := s.service.Unregister(ctx, req.Msg.Endpoint); err != nil {
		return nil, err
	}
	return connect.NewResponse(&UnregisterSubscriptionResponse{}), nil
}

func (s *Server) SendTestNotification(ctx context.Context, _ *connect.Request[SendTestNotificationRequest]) (*connect.Response[SendTestNotificationResponse], error) {
	if err := s.sender.SendTest(ctx); err != nil {
		return nil, err
	}
	return connect.NewResponse(&SendTestNotificationResponse{}), nil
}
