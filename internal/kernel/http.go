// Package kernel wires the storefront together: database, cache, event bus,
// realtime transports, queue, scheduler, services and the HTTP handler.
package kernel

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/app/controllers"
	appgraphql "github.com/shashiranjanraj/storefront/app/graphql"
	"github.com/shashiranjanraj/storefront/app/jobs"
	"github.com/shashiranjanraj/storefront/app/listeners"
	"github.com/shashiranjanraj/storefront/app/realtime"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/app/routes"
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/config"
	"github.com/shashiranjanraj/storefront/pkg/cache"
	"github.com/shashiranjanraj/storefront/pkg/database"
	"github.com/shashiranjanraj/storefront/pkg/event"
	"github.com/shashiranjanraj/storefront/pkg/graphql"
	"github.com/shashiranjanraj/storefront/pkg/logger"
	"github.com/shashiranjanraj/storefront/pkg/mail"
	"github.com/shashiranjanraj/storefront/pkg/metrics"
	"github.com/shashiranjanraj/storefront/pkg/middleware"
	"github.com/shashiranjanraj/storefront/pkg/notification"
	"github.com/shashiranjanraj/storefront/pkg/queue"
	"github.com/shashiranjanraj/storefront/pkg/reqid"
	"github.com/shashiranjanraj/storefront/pkg/response"
	"github.com/shashiranjanraj/storefront/pkg/router"
	"github.com/shashiranjanraj/storefront/pkg/schedule"
	"github.com/shashiranjanraj/storefront/pkg/sse"
	"github.com/shashiranjanraj/storefront/pkg/storage"
	"github.com/shashiranjanraj/storefront/pkg/workerpool"
	"github.com/shashiranjanraj/storefront/pkg/ws"
)

// Options are the external resources an App is built around.
type Options struct {
	DB       *gorm.DB
	Redis    *redis.Client // optional
	Disk     storage.Disk
	Notifier jobs.Sender // optional
	// Async dispatches events on a worker pool instead of inline.
	Async bool
}

// App is the assembled application.
type App struct {
	DB        *gorm.DB
	Redis     *redis.Client
	Disk      storage.Disk
	Cache     *cache.Store
	Bus       *event.Bus
	Hub       *ws.Hub
	Broker    *sse.Broker
	Fanout    *realtime.Fanout
	Queue     *queue.Manager
	Scheduler *schedule.Scheduler

	Auth    *services.AuthService
	Users   *services.UserService
	Catalog *services.CatalogService
	Orders  *services.OrderService
	Reviews *services.ReviewService
	Stats   *services.StatsService

	pool    *workerpool.Pool
	driver  queue.Driver
	limiter *middleware.RateLimiter
	router  *router.Router
}

// Boot connects to the configured database, redis and storage and builds
// the App. Redis is optional: when it is unreachable the app runs without
// cache, relay or redis queue.
func Boot(ctx context.Context) (*App, error) {
	db, err := database.Connect()
	if err != nil {
		return nil, err
	}

	rdb, err := cache.Connect(ctx)
	if err != nil {
		logger.Warn("kernel: redis unavailable, continuing without it", "error", err)
		rdb = nil
	}

	notifier := notification.New(notification.Options{
		SlackWebhookURL: config.SlackWebhookURL(),
		WebhookURL:      config.AlertWebhookURL(),
		MailTo:          config.AlertEmail(),
		Mailer:          mail.New(mail.FromConfig()),
	})

	return New(Options{
		DB:       db,
		Redis:    rdb,
		Disk:     storage.FromConfig(ctx).Default(),
		Notifier: notifier,
		Async:    true,
	})
}

// New wires every component around opts.
func New(opts Options) (*App, error) {
	a := &App{
		DB:     opts.DB,
		Redis:  opts.Redis,
		Disk:   opts.Disk,
		Cache:  cache.New(opts.Redis, "storefront:cache:"),
		Hub:    ws.NewHub(originChecker(config.CORSOrigins())),
		Broker: sse.NewBroker(),
	}

	if opts.Async {
		a.pool = workerpool.New(config.EventWorkers(), config.EventQueueSize())
		a.Bus = event.NewBus(a.pool)
	} else {
		a.Bus = event.NewBus(nil)
	}
	a.Fanout = realtime.New(opts.Redis, config.RealtimeChannel(), a.Hub, a.Broker)

	a.driver = queueDriver(opts.Redis)
	a.Queue = queue.NewManager(a.driver)
	a.Queue.UseDB(opts.DB)
	jobs.Register(a.Queue, jobs.NewDeps(opts.DB, opts.Notifier))

	a.Scheduler = schedule.New()
	jobs.Schedule(a.Scheduler, a.Queue, config.LowStockSweepInterval())

	listeners.Register(a.Bus, &listeners.Listeners{Realtime: a.Fanout, Cache: a.Cache, Queue: a.Queue})

	users := repositories.NewUserRepository(opts.DB)
	a.Auth = services.NewAuthService(users)
	a.Users = services.NewUserService(users)
	a.Catalog = services.NewCatalogService(opts.DB, a.Cache, opts.Disk, a.Bus)
	a.Orders = services.NewOrderService(opts.DB, a.Bus)
	a.Reviews = services.NewReviewService(opts.DB, a.Bus)
	a.Stats = services.NewStatsService(opts.DB)

	a.limiter = middleware.NewRateLimiter(config.RateLimit(), time.Minute)
	if err := a.buildRouter(); err != nil {
		return nil, err
	}
	return a, nil
}

func queueDriver(rdb *redis.Client) queue.Driver {
	if config.QueueDriver() == "redis" && rdb != nil {
		return queue.NewRedisDriver(rdb, "storefront:queue")
	}
	return queue.NewMemoryDriver(1000)
}

func (a *App) buildRouter() error {
	schema, err := appgraphql.NewSchema(a.Catalog)
	if err != nil {
		return fmt.Errorf("kernel: graphql schema: %w", err)
	}

	r := router.New()

	// Outermost first: metrics see total latency, recovery wraps everything
	// that logs, the request id exists before the logger runs.
	r.Use(metrics.Middleware())
	r.Use(middleware.Recovery)
	r.Use(reqid.Middleware())
	r.Use(middleware.Logger)
	r.Use(middleware.CORS(middleware.DefaultCORSOptions(config.CORSOrigins())))
	r.Use(a.limiter.Middleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	r.Get("/metrics", "metrics", metrics.Handler())
	r.Get("/health", "health", a.health)
	r.Get("/graphql", "graphql.get", graphql.Handler(schema))
	r.Post("/graphql", "graphql", graphql.Handler(schema))

	if local, ok := a.Disk.(*storage.Local); ok {
		if u, err := url.Parse(config.StorageURL()); err == nil && u.Path != "" && u.Path != "/" {
			r.Mount(u.Path, http.StripPrefix(u.Path, http.FileServer(http.Dir(local.Root()))))
		}
	}

	routes.RegisterAPI(r, routes.Controllers{
		Auth:       controllers.NewAuthController(a.Auth),
		Users:      controllers.NewUserController(a.Users),
		Categories: controllers.NewCategoryController(a.Catalog),
		Products:   controllers.NewProductController(a.Catalog),
		Orders:     controllers.NewOrderController(a.Orders, a.Stats),
		Reviews:    controllers.NewReviewController(a.Reviews),
		Realtime:   controllers.NewRealtimeController(a.Hub, a.Broker),
	})

	a.router = r
	return nil
}

// Handler is the root HTTP handler.
func (a *App) Handler() http.Handler { return a.router }

// Routes lists the registered routes.
func (a *App) Routes() []router.Route { return a.router.Routes() }

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	sqlDB, err := a.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(r.Context())
	}
	if err != nil {
		logger.WithCtx(r.Context()).Error("health: database ping failed", "error", err)
		response.Error(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	response.Success(w, map[string]any{"status": "ok", "redis": a.Redis != nil})
}

// Start runs the background loops until ctx is done: the websocket hub,
// the redis relay, the rate limiter janitor and, when workers > 0, the
// queue workers and the scheduler.
func (a *App) Start(ctx context.Context, workers int, scheduler bool) {
	go a.Hub.Run(ctx)
	go a.limiter.Janitor(ctx)
	if a.Redis != nil {
		go a.Fanout.Run(ctx)
	}
	if workers > 0 {
		a.StartWorkers(ctx, workers)
	}
	if scheduler {
		go a.Scheduler.Run(ctx)
	}
}

// StartWorkers runs n queue workers in the background, plus the delayed job
// promoter for the redis driver.
func (a *App) StartWorkers(ctx context.Context, n int) {
	go a.Queue.Work(ctx, n)
	if d, ok := a.driver.(*queue.RedisDriver); ok {
		go d.Promote(ctx)
	}
}

// Close drains the event pool and closes redis.
func (a *App) Close() {
	if a.pool != nil {
		a.pool.Shutdown()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
}

// originChecker accepts websocket handshakes from the allowed origins and
// from clients that send no Origin header.
func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}
