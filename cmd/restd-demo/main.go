package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Overv/restd"
	"github.com/Overv/restd/obs"
)

func main() {
	port := flag.Int("port", 8080, "port to listen on")
	verbose := flag.Bool("v", false, "log reactor events")
	flag.Parse()

	srv, err := restd.Bind(*port, restd.DefaultBacklog)
	if err != nil {
		log.Fatal(err)
	}
	if *verbose {
		srv.Logger = obs.StdLogger{L: log.New(os.Stderr, "", log.LstdFlags), Min: obs.Debug}
	}

	srv.Get("/", func(r *restd.Request) (*restd.Response, error) {
		return restd.NewResponse(200, "Hello from restd!"), nil
	})
	srv.Get("/time", func(r *restd.Request) (*restd.Response, error) {
		return restd.NewResponse(200, time.Now().Format(time.RFC1123)), nil
	})
	srv.Get("/greet", func(r *restd.Request) (*restd.Response, error) {
		name := r.Query["name"]
		if name == "" {
			name = "stranger"
		}
		return restd.NewResponse(200, fmt.Sprintf("Hello, %s!", name)), nil
	})
	srv.Post("/echo", func(r *restd.Request) (*restd.Response, error) {
		resp := restd.NewResponse(200, string(r.Body))
		if ct := r.Header.Get("Content-Type"); ct != "" {
			if err := resp.SetHeader("Content-Type", ct); err != nil {
				return nil, err
			}
		}
		return resp, nil
	})
	srv.Post("/form", func(r *restd.Request) (*restd.Response, error) {
		return restd.NewResponse(200, fmt.Sprintf("%d fields", len(r.Form))), nil
	})

	log.Printf("listening on :%d", *port)
	for {
		srv.Iterate()
		time.Sleep(time.Millisecond)
	}
}
