package main

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/civicgrid/commonwealth/go/internal/gateway"
)

func setupServer(config *Config, wsHandler *gateway.WebSocketHandler) *http.Server {
	router := mux.NewRouter()
	wsHandler.RegisterRoutes(router)

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	return &http.Server{
		Addr:    fmt.Sprintf(":%s", config.Server.Port),
		Handler: c.Handler(router),
	}
}
