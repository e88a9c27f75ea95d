package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"tpf-ecosystem/internal/service"
	"tpf-ecosystem/internal/swap"
)

// Services 路由依赖的业务服务；Metrics 为空时不挂载 /metrics
type Services struct {
	Airdrop    *service.AirdropService
	CheckIn    *service.CheckInService
	Storm      *service.StormService
	Promotions *service.PromotionService
	Payments   *service.PaymentService
	Portal     *service.DevPortalClient
	Sessions   *service.SessionService
	Rates      swap.RateTable
	CookieName string
	Metrics    http.Handler
}

func NewRouter(s Services) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.NotFound(handleNotFound)
	r.MethodNotAllowed(handleMethodNotAllowed)

	airdrop := NewAirdropHandler(s.Airdrop)
	r.Post("/airdrop/process", airdrop.Claim)
	r.Get("/airdrop/status", airdrop.Status)
	r.Post("/claim", airdrop.Claim)
	r.Post("/claim-real", airdrop.ClaimReal)

	promove := NewPromotionHandler(s.Promotions, s.Payments)
	r.Route("/promove", func(r chi.Router) {
		r.Get("/links", promove.ListLinks)
		r.Post("/links", promove.CreateLink)
		r.Post("/links/{id}/click", promove.Click)
		r.Get("/payment", promove.ListPayments)
		r.Post("/payment", promove.RecordPayment)
	})

	storm := NewStormHandler(s.Storm)
	r.Get("/storm/words", storm.List)
	r.Post("/storm/words", storm.Submit)

	worldID := NewWorldIDHandler(s.Portal, s.Sessions, s.CookieName)
	r.Post("/transaction/verify", worldID.TransactionStatus)
	r.Post("/verify", worldID.VerifyProof)
	r.Get("/auth/session", worldID.Session)
	r.Delete("/auth/session", worldID.Logout)

	quotes := NewSwapHandler(s.Rates)
	r.Get("/swap/quote", quotes.Quote)
	r.Get("/swap/tokens", quotes.Tokens)

	checkIn := NewCheckInHandler(s.CheckIn)
	r.Post("/checkin", checkIn.CheckIn)
	r.Get("/checkin/status", checkIn.Status)
	r.Delete("/checkin/history", checkIn.Clear)

	r.Get("/health", HandleHealth)
	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics)
	}

	return r
}
