// Package surface hosts the redirect payment flow on a loopback HTTP server.
// It serves the self-submitting processor form and reports every URL the
// browser subsequently hits back to the payment controller, which is the only
// channel through which the flow's outcome is observed.
package surface

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"go.pilab.hu/selfcare/domain"
	"go.pilab.hu/selfcare/payment"
)

// Navigator consumes browser navigation events. The payment controller
// implements it.
type Navigator interface {
	SurfaceNavigated(rawURL string)
	SurfaceLoadError(detail string)
}

// Server is the loopback host for one payment presentation at a time.
type Server struct {
	echo *echo.Echo
	nav  Navigator

	mu   sync.Mutex
	page string
	addr string
}

// NewServer creates a surface bound to the given navigator. Routes are
// registered up front; the served form is swapped per presentation.
func NewServer(nav Navigator) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{echo: e, nav: nav}
	e.GET("/pay", s.payHandler)
	e.Any("/*", s.catchAllHandler)
	return s
}

// Start listens on listenAddr (host:0 picks a free port) and serves in the
// background until Shutdown.
func (s *Server) Start(listenAddr string) error {
	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		s.nav.SurfaceLoadError("network: " + err.Error())
		return err
	}
	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.mu.Unlock()
	s.echo.Listener = ln

	go func() {
		if err := s.echo.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("payment surface stopped unexpectedly")
			s.nav.SurfaceLoadError("network: " + err.Error())
		}
	}()
	log.Debug().Str("addr", s.addr).Msg("payment surface listening")
	return nil
}

// URL returns the address of the served payment form.
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return "http://" + s.addr + "/pay"
}

// Present renders the session's redirect form and makes it the page served at
// /pay. The browser is pointed at URL() afterwards.
func (s *Server) Present(sess *domain.PaymentSession) error {
	page, err := payment.RenderRedirectForm(sess)
	if err != nil {
		s.nav.SurfaceLoadError("render: " + err.Error())
		return err
	}
	s.mu.Lock()
	s.page = page
	s.mu.Unlock()
	return nil
}

// Shutdown stops the server. Safe to call regardless of flow state.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) payHandler(c echo.Context) error {
	s.mu.Lock()
	page := s.page
	s.mu.Unlock()
	if page == "" {
		return c.String(http.StatusNotFound, "no payment in progress")
	}
	return c.HTML(http.StatusOK, page)
}

// catchAllHandler receives the processor's return redirects. Every hit is
// reported verbatim; classification happens in the controller.
func (s *Server) catchAllHandler(c echo.Context) error {
	raw := c.Request().RequestURI
	log.Debug().Str("uri", raw).Msg("payment surface navigation")
	s.nav.SurfaceNavigated(raw)
	return c.HTML(http.StatusOK,
		"<!DOCTYPE html><html><body><p>You may close this window and return to the application.</p></body></html>")
}
