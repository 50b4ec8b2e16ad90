package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/lorenzo-12/quantas-link-delay/pkg/handler"
	"github.com/lorenzo-12/quantas-link-delay/pkg/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	port := getPort()
	store, closeStore := openStore()
	defer closeStore()
	apiHandler := handler.NewHandler(store)

	r := mux.NewRouter()
	apiHandler.Register(r)

	srv := &http.Server{Addr: ":" + port, Handler: r}
	go func() {
		log.Printf("Collector API running on port %s\n", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	<-sigs

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

// openStore uses SUMMARY_DB as a SQLite archive when set, memory otherwise.
func openStore() (storage.Store, func()) {
	path := os.Getenv("SUMMARY_DB")
	if path == "" {
		return storage.NewStore(), func() {}
	}
	db, err := storage.OpenSQLite(path)
	if err != nil {
		log.Fatalf("open summary db: %v", err)
	}
	log.Printf("Archiving summaries in %s", path)
	return db, func() { db.Close() }
}

func getPort() string {
	port := os.Getenv("PORT")
	if port == "" {
		return "8080"
	}
	return port
}
