package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/gofiber/fiber/v2"

	auth "github.com/atlasguides/go-auth"
)

type serverConfig struct {
	ListenAddr string `env:"SERVER_ADDR" envDefault:":3000"`
	DBPath     string `env:"SERVER_DB_PATH" envDefault:"file:auth.db"`
}

func main() {
	srvCfg := &serverConfig{}
	if err := env.Parse(srvCfg); err != nil {
		log.Fatalf("server config: %v", err)
	}

	authCfg, err := auth.LoadConfig()
	if err != nil {
		log.Fatalf("auth config: %v", err)
	}

	db, err := auth.OpenDB(srvCfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := auth.CreateSchema(ctx, db); err != nil {
		log.Fatalf("create schema: %v", err)
	}

	repo := auth.NewRepositoryManager(db)
	repo.MustValidate()

	auther := auth.NewAuthenticator(repo, authCfg)

	app := fiber.New(fiber.Config{
		ErrorHandler: auth.ErrorHandler(nil),
	})

	users := app.Group("/api/v1/users")
	auth.RegisterAuthRoutes(users,
		auth.WithControllerRepo(repo),
		auth.WithControllerAuther(auther),
		auth.WithControllerResetURLBase(authCfg.GetResetURLBase()),
	)

	users.Get("/me", auth.Protect(auther), func(c *fiber.Ctx) error {
		user, _ := auth.UserFromContext(c)
		return c.JSON(fiber.Map{
			"status": "success",
			"data":   fiber.Map{"user": user},
		})
	})

	// sample of a role-gated route; everything behind it is admin-only
	admin := app.Group("/api/v1/admin", auth.Protect(auther), auth.RestrictTo(auth.RoleAdmin, auth.RoleLeadGuide))
	admin.Get("/ping", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "success"})
	})

	errc := make(chan error, 1)
	go func() {
		errc <- app.Listen(srvCfg.ListenAddr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errc:
		log.Fatalf("server error: %v", err)
	case sig := <-stop:
		log.Printf("received %s, shutting down", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}
}
