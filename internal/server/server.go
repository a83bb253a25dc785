package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"talentpool-backend/internal/auth"
	"talentpool-backend/internal/cache"
	"talentpool-backend/internal/config"
	"talentpool-backend/internal/controller/file"
	"talentpool-backend/internal/database"
	"talentpool-backend/internal/events"
	"talentpool-backend/internal/integrations"
	"talentpool-backend/internal/logging"
	"talentpool-backend/internal/queue"
	"talentpool-backend/internal/quota"
	"talentpool-backend/internal/referral"
	"talentpool-backend/internal/scheduler"
)

// MyServer hold every dependency the route handlers are built from
type MyServer struct {
	Config *config.Config
	DB     *database.DBinstanceStruct
	Redis  *redis.Client
	Log    *logrus.Logger

	Broker    events.Broker
	Cache     cache.Cache
	Blacklist auth.JwtBlacklistStore
	Quota     *quota.Service
	Referral  *referral.Service
	Notifier  *queue.Notifier
	Scheduler *scheduler.Scheduler

	AI       integrations.TextGenerator
	Videos   integrations.VideoSearcher
	PDF      integrations.PDFRenderer
	Geo      integrations.GeoLocator
	Payments integrations.PaymentGateway
	Storage  file.StorageClient

	closers []func() error
}

// NewServer connect to database and every configured backing service. Integrations
// without credentials are left nil and their endpoints answer 503.
func NewServer(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*MyServer, error) {
	auth.SetSecretKey(cfg.SecretKey)
	if err := logging.ConfigureAuthLog(cfg.AuthLogEnabled, cfg.AuthLogFile); err != nil {
		return nil, fmt.Errorf("failed to open auth log: %w", err)
	}

	db, err := database.GetMainDB()
	if err != nil {
		return nil, fmt.Errorf("database failed to initialize: %w", err)
	}
	s := &MyServer{Config: cfg, DB: db, Log: logger}
	s.closers = append(s.closers, db.Close)

	if err := s.connectRedis(ctx); err != nil {
		s.Close()
		return nil, err
	}

	s.Quota = quota.NewService(db.DB, s.Broker, logging.Component(logger, "quota"))

	geo := integrations.NewGeo(cfg.GeoAPIURL, s.Cache)
	s.Geo = geo
	s.Referral = referral.NewService(db.DB, geo, logging.Component(logger, "referral"))

	if err := s.connectNotifier(); err != nil {
		s.Close()
		return nil, err
	}
	if err := s.connectIntegrations(ctx); err != nil {
		s.Close()
		return nil, err
	}

	var cleaner scheduler.ExpiredCleaner
	if mem, ok := s.Blacklist.(*auth.InMemoryBlacklistStore); ok {
		cleaner = mem
	}
	s.Scheduler = scheduler.New(s.Quota, cleaner, cfg.QuotaResetSpec, logging.Component(logger, "scheduler"))

	return s, nil
}

func (s *MyServer) connectRedis(ctx context.Context) error {
	if s.Config.RedisURL == "" {
		s.Log.Info("REDIS_URL not set, using in-process cache, broker and token blacklist")
		s.Broker = events.NewMemoryBroker()
		s.Cache = cache.NewMemory()
		s.Blacklist = auth.NewInMemoryBlacklistStore()
		return nil
	}

	rdb, err := database.NewRedisClient(ctx, s.Config.RedisURL)
	if err != nil {
		return err
	}
	s.Redis = rdb
	s.closers = append(s.closers, rdb.Close)
	s.Broker = events.NewRedisBroker(rdb, logging.Component(s.Log, "events"))
	s.Cache = cache.NewRedis(rdb, "talentpool:")
	s.Blacklist = auth.NewRedisBlacklistStore(rdb)
	return nil
}

func (s *MyServer) connectNotifier() error {
	cfg := s.Config
	dispatcher := &queue.Dispatcher{
		Mailer:   integrations.NewMailer(cfg.Email.APIURL, cfg.Email.APIKey, cfg.Email.From),
		WhatsApp: integrations.NewWhatsApp(cfg.WhatsAppAPIURL, cfg.WhatsAppToken, cfg.WhatsAppPhoneID),
		Log:      logging.Component(s.Log, "dispatcher"),
	}

	if cfg.RabbitMQURL == "" {
		direct := queue.NewDirect(dispatcher, 0, logging.Component(s.Log, "notifier"))
		s.closers = append(s.closers, func() error { direct.Close(); return nil })
		s.Notifier = queue.NewNotifier(direct, dispatcher)
		return nil
	}

	mq, err := queue.NewRabbitMQ(cfg.RabbitMQURL, queue.DefaultQueueName, logging.Component(s.Log, "rabbitmq"))
	if err != nil {
		return err
	}
	s.closers = append(s.closers, mq.Close)
	s.Notifier = queue.NewNotifier(mq, dispatcher)
	return nil
}

func (s *MyServer) connectIntegrations(ctx context.Context) error {
	cfg := s.Config

	switch cfg.AI.Provider {
	case config.AIProviderOpenAI:
		if cfg.AI.OpenAIKey != "" {
			s.AI = integrations.NewOpenAI(cfg.AI.OpenAIBaseURL, cfg.AI.OpenAIKey, cfg.AI.OpenAIModel)
		}
	case config.AIProviderVertex:
		if cfg.AI.VertexProject != "" {
			vertex, err := integrations.NewVertex(ctx, cfg.AI.VertexProject, cfg.AI.VertexLocation, cfg.AI.VertexModel)
			if err != nil {
				return err
			}
			s.closers = append(s.closers, vertex.Close)
			s.AI = vertex
		}
	}
	if s.AI == nil {
		s.Log.Warn("AI provider is not configured, extraction and feedback drafting are disabled")
	}

	yt, err := integrations.NewYouTube(ctx, cfg.YouTubeAPIKey)
	switch {
	case err == nil:
		s.Videos = yt
	case !errors.Is(err, integrations.ErrDisabled):
		return err
	}

	if cfg.PDFRenderURL != "" {
		s.PDF = integrations.NewGotenberg(cfg.PDFRenderURL)
	}
	if cfg.Payment.Enabled() {
		s.Payments = integrations.NewRazorpay(cfg.Payment.APIURL, cfg.Payment.KeyID, cfg.Payment.KeySecret)
	}

	if cfg.GCSBucket != "" {
		gcs, err := file.NewCloudStorageClient(ctx, cfg.GCSBucket)
		if err != nil {
			return err
		}
		s.closers = append(s.closers, gcs.Close)
		s.Storage = gcs
	} else {
		s.Log.Warn("GCS_BUCKET not set, resumes are stored in the database")
	}
	return nil
}

// HTTPServer build http.Server serving the registered routes
func (s *MyServer) HTTPServer() (*http.Server, error) {
	handler, err := s.RegisterRoutes()
	if err != nil {
		return nil, err
	}
	return &http.Server{
		Addr:         ":" + s.Config.Port,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}, nil
}

// Run serve HTTP and start the scheduler until ctx is done, then shut down gracefully
func (s *MyServer) Run(ctx context.Context) error {
	srv, err := s.HTTPServer()
	if err != nil {
		return err
	}
	if err := s.Scheduler.Start(ctx); err != nil {
		return err
	}
	defer s.Scheduler.Stop()

	serveErr := make(chan error, 1)
	go func() {
		s.Log.WithField("addr", srv.Addr).Info("server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	s.Log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// Close release connections in reverse order they were opened
func (s *MyServer) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.Log.WithError(err).Warn("failed to close resource")
		}
	}
	s.closers = nil
}
