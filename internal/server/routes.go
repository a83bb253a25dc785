// Package server contain implementation of go-gin-server and each route handlers
package server

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"talentpool-backend/internal/auth"
	"talentpool-backend/internal/controller/admin"
	"talentpool-backend/internal/controller/candidate"
	"talentpool-backend/internal/controller/company"
	"talentpool-backend/internal/controller/dashboard"
	"talentpool-backend/internal/controller/file"
	"talentpool-backend/internal/controller/hr"
	"talentpool-backend/internal/controller/integration"
	"talentpool-backend/internal/controller/interview"
	"talentpool-backend/internal/controller/jobopening"
	"talentpool-backend/internal/controller/marketing"
	"talentpool-backend/internal/controller/payment"
	"talentpool-backend/internal/controller/punishment"
	referralctl "talentpool-backend/internal/controller/referral"
	"talentpool-backend/internal/database"
	"talentpool-backend/internal/logging"
	"talentpool-backend/internal/middleware"
	"talentpool-backend/internal/model"
	"talentpool-backend/internal/web"

	// Init swagger doc
	_ "talentpool-backend/docs"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// ResumeSizeLimit is largest accepted resume upload
const ResumeSizeLimit = 10 << 20

// RegisterRoutes will register each http endpoint routes to bound Server instance
func (s *MyServer) RegisterRoutes() (http.Handler, error) {
	r := gin.Default()

	tmpl, err := web.Templates()
	if err != nil {
		return nil, err
	}
	r.SetHTMLTemplate(tmpl)

	cfg := s.Config
	log := s.Log

	googleOauth := auth.NewGoogleOAuthConfig(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL)
	gAuth := auth.NewOauthLoginHandler(s.DB, googleOauth, auth.GoogleUserInfoEndpoint)
	lAuth := auth.NewLocalAuthHandler(s.DB, s.Referral)
	logout := auth.NewLogoutController(s.Blacklist)
	me := auth.NewMeController(s.DB)

	candidateCtl := candidate.NewCandidateController(s.DB)
	hrCtl := hr.NewHRController(s.DB, s.Quota, s.Broker, logging.Component(log, "hr"))
	companyCtl := company.NewCompanyController(s.DB, cfg.BypassVerification)
	fileCtl := file.NewFileController(s.DB, s.Storage, s.Quota, logging.Component(log, "file"))
	jobCtl := jobopening.NewJobOpeningController(s.DB, s.AI, s.Quota, logging.Component(log, "jobopening"))
	interviewCtl := interview.NewInterviewController(s.DB, s.AI, s.Notifier, logging.Component(log, "interview"))
	referralCtl := referralctl.NewReferralController(s.Referral)
	paymentCtl := payment.NewPaymentController(s.DB, s.Payments, cfg.Payment.Currency, s.Quota, s.Referral, s.Notifier, logging.Component(log, "payment"))
	integrationCtl := integration.NewIntegrationController(s.Notifier, s.Videos, s.Cache, s.PDF, s.Geo, logging.Component(log, "integration"))
	marketingCtl := marketing.NewMarketingController(s.Notifier, cfg.Email.ContactInbox, logging.Component(log, "marketing"))
	dashboardCtl := dashboard.NewDashboardController(s.DB, s.Quota)
	adminCtl := admin.NewAdminController(s.DB, s.Quota, s.Referral)
	punishCtl := punishment.NewPunishmentController(s.DB)

	limiter := middleware.RateLimiterMiddleware(cfg.RateLimitPerSecond)

	r.Use(middleware.SafeHeader())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// Public pages
	r.GET("/", marketingCtl.Home)
	r.GET("/pricing", marketingCtl.Pricing)
	r.GET("/about", marketingCtl.About)
	r.GET("/contact", marketingCtl.ContactPage)
	r.POST("/contact", limiter, marketingCtl.SubmitContact)
	r.GET("/health", s.healthHandler)

	v1 := r.Group("/api/v1")
	{
		v1.GET("plans", marketingCtl.GetPlans)
		v1.POST("referral/visit", limiter, referralCtl.RecordVisit)

		authRoute := v1.Group("/auth")
		{
			authRoute.Use(limiter)
			authRoute.POST("google/candidate", gAuth.CandidateGoogleLoginHandler)
			authRoute.POST("google/hr", gAuth.HRGoogleLoginHandler)
			authRoute.GET("google/callback", gAuth.Callback)

			authRoute.POST("login", lAuth.LocalLoginHandler)
			authRoute.POST("register", lAuth.LocalRegisterHandler)
		}

		// Any routes
		needAuth := v1.Group("")
		{
			needAuth.Use(
				middleware.JwtBlacklistCheck(s.Blacklist),
				middleware.RequireAuth(s.DB),
				middleware.CheckPunishment(s.DB, model.BanPunishment),
				limiter,
			)
			needAuth.POST("auth/logout", logout.LogoutHandler)
			needAuth.GET("me", me.MeHandler)
			needAuth.GET("dashboard", dashboardCtl.GetDashboard)
			needAuth.GET("file/:id", fileCtl.GetFile)
			needAuth.GET("company/:company_id", companyCtl.GetCompanyByID)
			needAuth.GET("interviews/:id", interviewCtl.GetInterview)
			needAuth.GET("referral/me", referralCtl.GetMyReferral)
			needAuth.GET("youtube/search", integrationCtl.SearchYouTube)
			needAuth.GET("geo", integrationCtl.GetGeo)
			needAuth.POST("pdf/render", integrationCtl.RenderPDF)

			needCandidate := needAuth.Group("/candidate")
			{
				needCandidate.Use(middleware.CheckRole(model.RoleCandidate))
				needCandidate.GET("myprofile", candidateCtl.GetMyCandidateProfile)
				needCandidate.GET("interviews", candidateCtl.GetMyInterviews)
				needCandidate.Use(middleware.CheckPunishment(s.DB, model.SuspendPunishment))
				needCandidate.PATCH("profile", candidateCtl.EditCandidateProfile)
				needCandidate.POST("profile/resume", middleware.SizeLimit(ResumeSizeLimit), fileCtl.UploadResume)
			}

			needHR := needAuth.Group("/hr")
			{
				needHR.Use(middleware.CheckRole(model.RoleHR))
				needHR.GET("myprofile", hrCtl.GetMyHRProfile)
				needHR.PATCH("profile", hrCtl.EditHRProfile)
				needHR.PATCH("company", companyCtl.EditMyCompany)
				needHR.GET("usage", hrCtl.GetUsage)
				needHR.GET("usage/stream", hrCtl.StreamUsage)
				needHR.GET("interviews", interviewCtl.GetMyInterviews)

				needHR.Use(middleware.CheckPunishment(s.DB, model.SuspendPunishment))
				needHR.POST("interviews", interviewCtl.CreateInterview)
				needHR.POST("interviews/:id/transcript", interviewCtl.AppendTranscript)
				needHR.PUT("interviews/:id/feedback", interviewCtl.SetFeedback)
				needHR.POST("interviews/:id/ai-feedback", interviewCtl.DraftAIFeedback)
				needHR.PUT("interviews/:id/recording", interviewCtl.SetRecording)

				verified := needHR.Group("")
				{
					verified.Use(middleware.RequireVerifiedCompany(s.DB))
					verified.GET("candidates", hrCtl.SearchCandidates)
					verified.GET("candidates/:email", hrCtl.GetCandidateDetail)
					verified.POST("jobs/extract", jobCtl.ExtractCriteria)
					verified.POST("jobs", jobCtl.CreateOpening)
					verified.GET("jobs", jobCtl.GetMyOpenings)
					verified.GET("jobs/:id/matches", jobCtl.GetMatches)
					verified.DELETE("jobs/:id", jobCtl.DeleteOpening)
				}
			}

			paymentRoute := needAuth.Group("/payment")
			{
				paymentRoute.Use(middleware.CheckRole(model.RoleHR))
				paymentRoute.POST("order", paymentCtl.CreateOrder)
				paymentRoute.POST("verify", paymentCtl.VerifyPayment)
				paymentRoute.GET("history", paymentCtl.GetMyPayments)
			}

			needHRAdmin := needAuth.Group("/notify")
			{
				needHRAdmin.Use(middleware.CheckRole(model.RoleHR, model.RoleAdmin))
				needHRAdmin.POST("email", integrationCtl.SendEmail)
				needHRAdmin.POST("whatsapp", integrationCtl.SendWhatsApp)
			}

			needAdmin := needAuth.Group("/admin")
			{
				needAdmin.Use(middleware.CheckRole(model.RoleAdmin))
				needAdmin.GET("admins", adminCtl.GetAdmins)
				needAdmin.POST("admins", adminCtl.CreateAdmin)
				needAdmin.GET("companies", adminCtl.GetCompanies)
				needAdmin.PATCH("companies/:company_id/verify", adminCtl.VerifyCompany)
				needAdmin.GET("candidates", adminCtl.GetCandidates)
				needAdmin.GET("hr", adminCtl.GetHRUsers)
				needAdmin.PUT("hr/:user_id/quota", adminCtl.SetHRQuota)
				needAdmin.GET("referrals", adminCtl.GetReferrals)
				needAdmin.GET("payments", adminCtl.GetPayments)
				needAdmin.PUT("punish/:user_id", punishCtl.PunishUser)
				needAdmin.DELETE("punish/:user_id", punishCtl.DeletePunishmentRecord)
			}
		}
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r, nil
}

func (s *MyServer) healthHandler(c *gin.Context) {
	stats := s.DB.Health()
	stats["redis"] = database.RedisHealth(c.Request.Context(), s.Redis)

	code := http.StatusOK
	if stats["status"] != "up" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, stats)
}
