package server

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"app/internal/config"
	"app/internal/handler"
)

// echoのValidatorフックにvalidator/v10を差し込む。
type requestValidator struct {
	v *validator.Validate
}

func (rv *requestValidator) Validate(i interface{}) error {
	return rv.v.Struct(i)
}

type Handlers struct {
	Auth          *handler.AuthHandler
	PartsIssues   *handler.PartsIssueHandler
	CentralParts  *handler.CentralPartHandler
	ServiceCenter *handler.ServiceCenterHandler
}

// ルーティングと共通ミドルウェアを組み立てて未起動のechoを返す。
func New(cfg config.Config, h Handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.Logger())
	if cfg.FEURL != "" {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:     []string{cfg.FEURL},
			AllowCredentials: true,
		}))
	}

	e.Validator = &requestValidator{v: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	h.Auth.RegisterRoutes(e, cfg)
	h.PartsIssues.RegisterRoutes(e, cfg)
	h.CentralParts.RegisterRoutes(e, cfg)
	h.ServiceCenter.RegisterRoutes(e, cfg)

	return e
}
