package main

import (
	"flag"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/df07/go-sdf-pathtracer/pkg/core"
	"github.com/df07/go-sdf-pathtracer/pkg/publish"
	"github.com/df07/go-sdf-pathtracer/web/server"
)

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func main() {
	_ = godotenv.Load(getEnv("RAYTRACE_ENV_FILE", ".env"))

	defaultPort, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		defaultPort = 8080
	}

	// Parse command line flags
	port := flag.Int("port", defaultPort, "Port to serve on")
	scenesDir := flag.String("scenes", getEnv("RAYTRACE_SCENES_DIR", "scenes"), "Directory of JSON scene files")
	staticDir := flag.String("static", getEnv("RAYTRACE_STATIC_DIR", "static"), "Directory of static files (empty to disable)")
	flag.Parse()

	config := server.Config{
		Port:      *port,
		ScenesDir: *scenesDir,
		StaticDir: *staticDir,
	}

	s3Config := publish.S3Config{
		AccessKey: os.Getenv("S3_ACCESS_KEY"),
		SecretKey: os.Getenv("S3_SECRET_KEY"),
		Endpoint:  os.Getenv("S3_ENDPOINT"),
		Region:    os.Getenv("S3_REGION"),
		Bucket:    os.Getenv("S3_BUCKET"),
		Prefix:    os.Getenv("S3_PREFIX"),
		ACL:       os.Getenv("S3_ACL"),
	}
	if s3Config.Enabled() {
		publisher, err := publish.NewS3Publisher(s3Config, core.NewStdLogger(os.Stdout, "[s3] "))
		if err != nil {
			log.Printf("S3 publishing disabled: %v", err)
		} else {
			config.Publisher = publisher
		}
	}

	// Create and start web server
	webServer := server.NewServer(config)

	log.Printf("SDF Path Tracer Web Server")
	log.Printf("Visit http://localhost:%d to start rendering", *port)

	if err := webServer.Start(); err != nil {
		log.Printf("Error starting server: %v", err)
		os.Exit(1)
	}
}
