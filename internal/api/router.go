package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	swagger "github.com/go-swagno/swagno-fiber/swagger"

	"github.com/doorwatch-io/doorwatch/internal/api/docs"
	"github.com/doorwatch-io/doorwatch/internal/api/handler"
	"github.com/doorwatch-io/doorwatch/internal/api/middleware"
	"github.com/doorwatch-io/doorwatch/internal/camera"
	"github.com/doorwatch-io/doorwatch/internal/identity"
	"github.com/doorwatch-io/doorwatch/internal/notify"
	"github.com/doorwatch-io/doorwatch/internal/ws"
)

type Dependencies struct {
	Store      handler.FaceStore
	Camera     *camera.Camera
	Cell       *identity.Cell
	Hub        *ws.Hub
	Dispatcher *notify.Dispatcher
	FrameDelay time.Duration
}

type Router struct {
	app              *fiber.App
	logger           *slog.Logger
	deps             *Dependencies
	cancelHub        context.CancelFunc
	cancelDispatcher context.CancelFunc
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "Doorwatch",
		BodyLimit:    handler.MaxUploadSize,
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	healthHandler := handler.NewHealthHandler()
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ping", healthHandler.Ping)

	r.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	if r.deps == nil {
		return
	}

	hubCtx, cancelHub := context.WithCancel(context.Background())
	r.cancelHub = cancelHub
	go r.deps.Hub.Run(hubCtx)

	dispatcherCtx, cancelDispatcher := context.WithCancel(context.Background())
	r.cancelDispatcher = cancelDispatcher
	go r.deps.Dispatcher.Run(dispatcherCtx)

	pagesHandler := handler.NewPagesHandler()
	r.app.Get("/", pagesHandler.Index)
	r.app.Get("/recognition", pagesHandler.Recognition)

	cameraHandler := handler.NewCameraHandler(r.deps.Camera, r.deps.Cell, r.deps.FrameDelay, r.logger)
	r.app.Get("/capture", cameraHandler.Capture)
	r.app.Get("/stream", cameraHandler.Stream)
	r.app.Get("/recognition_stream", cameraHandler.RecognitionStream)

	faceHandler := handler.NewFaceHandler(
		r.deps.Store,
		r.deps.Camera,
		r.deps.Cell,
		r.deps.Dispatcher,
		r.deps.Hub,
		r.logger,
	)
	r.app.Post("/enroll", faceHandler.EnrollUpload)
	r.app.Get("/enroll", faceHandler.EnrollCapture)
	r.app.Get("/faces", faceHandler.Faces)
	r.app.Delete("/faces/:id", faceHandler.Delete)
	r.app.Get("/delete_all", faceHandler.DeleteAll)
	r.app.Get("/reset_database", faceHandler.ResetDatabase)
	r.app.Get("/recognized_name", faceHandler.RecognizedName)

	r.app.Get("/ws", ws.UpgradeMiddleware(), ws.Handler(r.deps.Hub))
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	if r.cancelHub != nil {
		r.cancelHub()
	}
	if r.cancelDispatcher != nil {
		r.cancelDispatcher()
	}
	return r.app.Shutdown()
}
