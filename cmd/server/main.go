// Command server runs the tutor in a regular browser: the JSON API, the
// websocket event stream and the embedded front end on one address.
package main

import (
	"log"

	"deletutor/frontend"
	"deletutor/internal/bootstrap"
	"deletutor/internal/config"
	"deletutor/internal/httpapi"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	hub := httpapi.NewHub(cfg.Server.AllowedOrigins)
	defer hub.Close()

	services := bootstrap.BuildWithConfig(cfg, hub)
	defer services.Controller.Close()

	router := httpapi.NewRouter(services.Controller, hub, frontend.Assets, cfg.Server.AllowedOrigins)

	log.Printf("[http] listening on %s", cfg.Server.Addr)
	if err := router.Run(cfg.Server.Addr); err != nil {
		log.Fatalf("run server: %v", err)
	}
}
