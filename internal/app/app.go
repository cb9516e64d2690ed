package app

import (
	"context"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/gorelay/internal/pkg/clock"
	"github.com/shandysiswandi/gorelay/internal/pkg/config"
	"github.com/shandysiswandi/gorelay/internal/pkg/goroutine"
	"github.com/shandysiswandi/gorelay/internal/pkg/hash"
	"github.com/shandysiswandi/gorelay/internal/pkg/idempotency"
	"github.com/shandysiswandi/gorelay/internal/pkg/instrument"
	"github.com/shandysiswandi/gorelay/internal/pkg/otp"
	"github.com/shandysiswandi/gorelay/internal/pkg/ratelimit"
	"github.com/shandysiswandi/gorelay/internal/pkg/router"
	"github.com/shandysiswandi/gorelay/internal/pkg/smsgateway"
	"github.com/shandysiswandi/gorelay/internal/pkg/uid"
	"github.com/shandysiswandi/gorelay/internal/pkg/validator"
)

// App wires dependencies and manages service lifecycle.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	config config.Config
	ins    instrument.Instrumentation

	// libraries
	goroutine *goroutine.Manager
	validator validator.Validator
	clock     clock.Clocker
	uuid      uid.StringID
	keyHash   hash.Hash
	totp      otp.OTP
	limiter   *ratelimit.Limiter

	// resources
	cacheConn   *redis.Client
	idemp       idempotency.Idempotency
	gateway     smsgateway.Gateway
	gatewayConf smsgateway.Config

	// server
	router     *router.Router
	httpServer *http.Server

	//
	closers []struct {
		name string
		fn   func(context.Context) error
	}
}

// New initializes the application with default wiring and returns an App instance.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
	}

	app.initConfig()
	app.initInstrument()
	app.initLibraries()
	app.initCache()
	app.initGateway()
	app.initHTTPServer()
	app.initModules()
	app.initClosers()

	return app
}
